package variant

import "iter"

// Combination is one generated variant of a product at one branch. Key
// includes the branch attribute.
type Combination struct {
	Key    Key
	Branch Branch
}

// Attributes returns the combination's attributes, branch included.
func (c Combination) Attributes() map[string]string {
	return c.Key.Map()
}

func (c Combination) String() string {
	return c.Key.String()
}

// Tuples lazily enumerates the cartesian product of the dimension values in
// input order, the last dimension varying fastest. Dimensions without values
// are skipped, so an empty input yields exactly one empty tuple. Each yielded
// slice is freshly allocated.
func Tuples(dims []Dimension) iter.Seq[[]string] {
	active := make([]Dimension, 0, len(dims))
	for _, dim := range dims {
		if len(dim.Values) > 0 {
			active = append(active, dim)
		}
	}

	return func(yield func([]string) bool) {
		cursor := make([]int, len(active))
		for {
			tuple := make([]string, len(active))
			for i, dim := range active {
				tuple[i] = dim.Values[cursor[i]]
			}
			if !yield(tuple) {
				return
			}

			i := len(active) - 1
			for ; i >= 0; i-- {
				cursor[i]++
				if cursor[i] < len(active[i].Values) {
					break
				}
				cursor[i] = 0
			}
			if i < 0 {
				return
			}
		}
	}
}

// Generate enumerates every combination of dims multiplied by branches. For
// each branch, in order, it walks Tuples(dims) and injects the branch as the
// BranchAttribute before canonicalizing the key. Duplicate dimension names and
// values are merged first, so keys are unique.
func Generate(dims []Dimension, branches []Branch) iter.Seq[Combination] {
	dims = compact(dims, func(v string) string { return v })

	return func(yield func(Combination) bool) {
		for _, branch := range branches {
			for tuple := range Tuples(dims) {
				attrs := make(map[string]string, len(tuple)+1)
				for i, value := range tuple {
					attrs[dims[i].Name] = value
				}
				attrs[BranchAttribute] = string(branch)

				if !yield(Combination{Key: NewKey(attrs), Branch: branch}) {
					return
				}
			}
		}
	}
}

// Count returns how many combinations Generate yields.
func Count(dims []Dimension, branches []Branch) int {
	total := len(branches)
	for _, dim := range compact(dims, func(v string) string { return v }) {
		total *= len(dim.Values)
	}
	return total
}
