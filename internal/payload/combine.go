// FILENAME: internal/payload/combine.go
package payload

import (
	"iter"
	"strings"
)

// Marker is the injection placeholder in raw templates.
const Marker = "%s"

// MarkerCount returns the number of injection positions in template, or 1
// when there is no template at all.
func MarkerCount(template string) int {
	if template == "" {
		return 1
	}
	return strings.Count(template, Marker)
}

// NonEmpty drops wordlists with no entries, keeping order.
func NonEmpty(wordlists [][]string) [][]string {
	out := make([][]string, 0, len(wordlists))
	for _, wl := range wordlists {
		if len(wl) > 0 {
			out = append(out, wl)
		}
	}
	return out
}

// Combine yields one payload tuple per task.
//
// With more than one marker every value of every wordlist, in order, is
// repeated across all markers (battering ram). Otherwise the Cartesian
// product of the wordlists is produced with the first list varying slowest
// (pitchfork). Empty wordlists do not participate, and no participating
// lists means no tuples. Each yielded slice is freshly allocated.
func Combine(wordlists [][]string, markers int, c Case) iter.Seq[[]string] {
	lists := NonEmpty(wordlists)
	if markers > 1 {
		return batteringRam(lists, markers, c)
	}
	return pitchfork(lists, c)
}

func batteringRam(lists [][]string, markers int, c Case) iter.Seq[[]string] {
	return func(yield func([]string) bool) {
		for _, wl := range lists {
			for _, v := range wl {
				v = c.Apply(v)
				tuple := make([]string, markers)
				for i := range tuple {
					tuple[i] = v
				}
				if !yield(tuple) {
					return
				}
			}
		}
	}
}

func pitchfork(lists [][]string, c Case) iter.Seq[[]string] {
	return func(yield func([]string) bool) {
		if len(lists) == 0 {
			return
		}
		// odometer over list indices, last position turning fastest
		idx := make([]int, len(lists))
		for {
			tuple := make([]string, len(lists))
			for i, wl := range lists {
				tuple[i] = wl[idx[i]]
			}
			if !yield(c.ApplyAll(tuple)) {
				return
			}

			pos := len(idx) - 1
			for pos >= 0 {
				idx[pos]++
				if idx[pos] < len(lists[pos]) {
					break
				}
				idx[pos] = 0
				pos--
			}
			if pos < 0 {
				return
			}
		}
	}
}

// Count reports how many tuples Combine would yield without generating them.
func Count(wordlists [][]string, markers int) int {
	lists := NonEmpty(wordlists)
	if len(lists) == 0 {
		return 0
	}
	if markers > 1 {
		n := 0
		for _, wl := range lists {
			n += len(wl)
		}
		return n
	}
	n := 1
	for _, wl := range lists {
		n *= len(wl)
	}
	return n
}
