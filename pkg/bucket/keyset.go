package bucket

import (
	"sort"
	"strings"
)

// KeySet is a set of object keys. The zero value is not usable; use NewKeySet.
type KeySet map[string]struct{}

func NewKeySet(keys ...string) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s.Add(k)
	}
	return s
}

func (s KeySet) Add(key string) {
	s[key] = struct{}{}
}

func (s KeySet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

func (s KeySet) Len() int {
	return len(s)
}

// Keys returns the keys in no particular order
func (s KeySet) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	return keys
}

// Sorted returns the keys in lexicographic order
func (s KeySet) Sorted() []string {
	keys := s.Keys()
	sort.Strings(keys)
	return keys
}

// ParseListing turns newline-delimited listing output into a KeySet.
// Only the line terminator is removed since spaces are legal in keys.
// Blank lines are skipped, the s3://<bucket>/ prefix printed by
// --show-fullpath is stripped, and repeated keys collapse to one entry.
func ParseListing(output, bucketName string) KeySet {
	prefix := "s3://" + bucketName + "/"
	keys := NewKeySet()

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		key := strings.TrimPrefix(line, prefix)
		if key == "" {
			continue
		}
		keys.Add(key)
	}

	return keys
}
