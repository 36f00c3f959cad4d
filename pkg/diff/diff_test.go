package diff

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yuya-takeyama/strict-s3-diff/pkg/bucket"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		name    string
		primary bucket.KeySet
		mirror  bucket.KeySet
		want    Result
	}{
		{
			name:    "both empty",
			primary: bucket.NewKeySet(),
			mirror:  bucket.NewKeySet(),
			want:    Result{OnlyInPrimary: []string{}, OnlyInMirror: []string{}},
		},
		{
			name:    "empty mirror",
			primary: bucket.NewKeySet("b", "a"),
			mirror:  bucket.NewKeySet(),
			want:    Result{OnlyInPrimary: []string{"a", "b"}, OnlyInMirror: []string{}},
		},
		{
			name:    "empty primary",
			primary: bucket.NewKeySet(),
			mirror:  bucket.NewKeySet("z", "y"),
			want:    Result{OnlyInPrimary: []string{}, OnlyInMirror: []string{"y", "z"}},
		},
		{
			name:    "equal sets",
			primary: bucket.NewKeySet("a", "b"),
			mirror:  bucket.NewKeySet("b", "a"),
			want:    Result{OnlyInPrimary: []string{}, OnlyInMirror: []string{}},
		},
		{
			name:    "mixed scenario",
			primary: bucket.ParseListing("a/1.txt\na/2.txt\na/2.txt\nb/3.txt\n", "primary"),
			mirror:  bucket.ParseListing("a/1.txt\nb/4.txt\n", "mirror"),
			want: Result{
				OnlyInPrimary: []string{"a/2.txt", "b/3.txt"},
				OnlyInMirror:  []string{"b/4.txt"},
			},
		},
		{
			name:    "byte order sorting",
			primary: bucket.NewKeySet("B", "a", "A", "_"),
			mirror:  bucket.NewKeySet(),
			want:    Result{OnlyInPrimary: []string{"A", "B", "_", "a"}, OnlyInMirror: []string{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compare(tt.primary, tt.mirror)
			assert.Equal(t, tt.want, got)
		})
	}
}

func randomKeySet(r *rand.Rand, n int) bucket.KeySet {
	s := bucket.NewKeySet()
	for i := 0; i < n; i++ {
		s.Add(fmt.Sprintf("dir%d/file%d", r.Intn(5), r.Intn(n*2)))
	}
	return s
}

func TestCompareProperties(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	for i := 0; i < 50; i++ {
		a := randomKeySet(r, r.Intn(200))
		b := randomKeySet(r, r.Intn(200))

		t.Run(fmt.Sprintf("case%d", i), func(t *testing.T) {
			self := Compare(a, a)
			assert.True(t, self.Empty(), "self comparison must be empty")

			ab := Compare(a, b)
			ba := Compare(b, a)
			assert.Equal(t, ab.OnlyInPrimary, ba.OnlyInMirror)
			assert.Equal(t, ab.OnlyInMirror, ba.OnlyInPrimary)

			inMirrorSide := bucket.NewKeySet(ab.OnlyInMirror...)
			for _, k := range ab.OnlyInPrimary {
				assert.False(t, inMirrorSide.Has(k), "key %q on both sides", k)
				assert.True(t, a.Has(k))
				assert.False(t, b.Has(k))
			}
			for _, k := range ab.OnlyInMirror {
				assert.True(t, b.Has(k))
				assert.False(t, a.Has(k))
			}
		})
	}
}

func TestCompareIsDeterministic(t *testing.T) {
	keys := []string{"x/1", "a/9", "m/3", "a/10", "z", "b"}
	mirrorKeys := []string{"a/9", "q"}

	want := Compare(bucket.NewKeySet(keys...), bucket.NewKeySet(mirrorKeys...))

	r := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]string(nil), keys...)
		r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		got := Compare(bucket.NewKeySet(shuffled...), bucket.NewKeySet(mirrorKeys...))
		assert.Equal(t, want, got)
	}
}

func BenchmarkCompare(b *testing.B) {
	r := rand.New(rand.NewSource(1))
	primary := randomKeySet(r, 100000)
	mirror := randomKeySet(r, 100000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Compare(primary, mirror)
	}
}
