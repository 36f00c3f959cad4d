// Package diff computes which keys exist on only one side of a bucket pair.
package diff

import (
	"sort"

	"github.com/yuya-takeyama/strict-s3-diff/pkg/bucket"
)

// Result holds the two one-sided key lists, each sorted lexicographically
type Result struct {
	OnlyInPrimary []string
	OnlyInMirror  []string
}

// Empty reports whether the two key sets were equal
func (r Result) Empty() bool {
	return len(r.OnlyInPrimary) == 0 && len(r.OnlyInMirror) == 0
}

// Compare returns primary − mirror and mirror − primary. It is pure and
// runs in O(|primary| + |mirror|) plus the sort.
func Compare(primary, mirror bucket.KeySet) Result {
	return Result{
		OnlyInPrimary: subtract(primary, mirror),
		OnlyInMirror:  subtract(mirror, primary),
	}
}

func subtract(a, b bucket.KeySet) []string {
	out := []string{}
	for key := range a {
		if !b.Has(key) {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}
