package score

import (
	"cmp"
	"slices"
)

// Count is one account and how many sampled followees follow it.
type Count struct {
	Handle string `json:"handle"`
	Count  int    `json:"count"`
}

// Mutual returns the sorted intersection of two handle samples.
func Mutual(followers, followees []string) []string {
	in := make(map[string]bool, len(followers))
	for _, h := range followers {
		in[h] = true
	}
	out := []string{}
	seen := make(map[string]bool)
	for _, h := range followees {
		if in[h] && !seen[h] {
			seen[h] = true
			out = append(out, h)
		}
	}
	slices.Sort(out)
	return out
}

// Tally counts how many of the given lists contain each handle.
// Lists are merged sequentially, so callers fan out first and tally after the join.
func Tally(lists ...[]string) map[string]int {
	t := make(map[string]int)
	for _, l := range lists {
		for _, h := range l {
			t[h]++
		}
	}
	return t
}

// TopCounts returns the n most frequent handles, highest count first, ties by handle.
func TopCounts(tally map[string]int, n int) []Count {
	out := make([]Count, 0, len(tally))
	for h, c := range tally {
		out = append(out, Count{Handle: h, Count: c})
	}
	slices.SortFunc(out, func(a, b Count) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Handle, b.Handle)
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
