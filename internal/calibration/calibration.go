// FILENAME: internal/calibration/calibration.go

// Package calibration emits the learn-mode probes that let the engine build
// a baseline for each learn group before real tasks are classified.
package calibration

import (
	"math/rand/v2"
	"strings"
	"time"

	"github.com/xkilldash9x/mutafuzz/internal/fuzz"
)

const (
	lower  = "abcdefghijklmnopqrstuvwxyz"
	digits = "0123456789"
)

// RandString returns n characters drawn from lowercase letters and, when
// withDigits is set, digits.
func RandString(r *rand.Rand, n int, withDigits bool) string {
	alphabet := lower
	if withDigits {
		alphabet += digits
	}
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(alphabet[r.IntN(len(alphabet))])
	}
	return b.String()
}

// Category synthesizes the payload of one learn group for a given length.
type Category struct {
	Group int
	Name  string
	Synth func(r *rand.Rand, n int) string
}

// DefaultCategories are the five conventional probe shapes.
func DefaultCategories() []Category {
	return []Category{
		{Group: 1, Name: "random", Synth: func(r *rand.Rand, n int) string {
			return RandString(r, n, true)
		}},
		{Group: 2, Name: "trailing-slash", Synth: func(r *rand.Rand, n int) string {
			return RandString(r, n, true) + "/"
		}},
		{Group: 3, Name: "admin-prefix", Synth: func(r *rand.Rand, n int) string {
			return "admin" + RandString(r, n, true)
		}},
		{Group: 4, Name: "config-prefix", Synth: func(r *rand.Rand, n int) string {
			return ".htaccess" + RandString(r, n, true)
		}},
		{Group: 5, Name: "overflow", Synth: func(_ *rand.Rand, n int) string {
			return strings.Repeat("A", 1000+n)
		}},
	}
}

// Probe is one calibration request.
type Probe struct {
	Group    int
	Category string
	Payloads []string
}

// Plan decides how many probes each group gets and what they look like.
type Plan struct {
	Lengths    []int
	Categories []Category
	Rand       *rand.Rand
}

// DefaultPlan sends two probes per default category, of lengths 6 and 9.
func DefaultPlan() Plan {
	seed := uint64(time.Now().UnixNano())
	return Plan{
		Lengths:    []int{6, 9},
		Categories: DefaultCategories(),
		Rand:       rand.New(rand.NewPCG(seed, seed>>1|1)),
	}
}

// Groups lists the learn groups the plan calibrates, in category order.
func (p Plan) Groups() []int {
	out := make([]int, 0, len(p.Categories))
	for _, c := range p.Categories {
		out = append(out, c.Group)
	}
	return out
}

// Probes builds the calibration payloads for a target with the given number
// of markers. Each value is repeated across every marker.
func (p Plan) Probes(markers int) []Probe {
	if markers < 1 {
		markers = 1
	}
	r := p.Rand
	if r == nil {
		r = DefaultPlan().Rand
	}
	probes := make([]Probe, 0, len(p.Lengths)*len(p.Categories))
	for _, n := range p.Lengths {
		for _, c := range p.Categories {
			v := c.Synth(r, n)
			tuple := make([]string, markers)
			for i := range tuple {
				tuple[i] = v
			}
			probes = append(probes, Probe{Group: c.Group, Category: c.Name, Payloads: tuple})
		}
	}
	return probes
}

// Queue submits every probe as a baseline task and returns how many were
// queued. Call it before queueing the tasks that should be classified.
func (p Plan) Queue(api *fuzz.API, markers int) int {
	n := 0
	for _, pr := range p.Probes(markers) {
		if api.Payloads(pr.Payloads...).LearnGroup(pr.Group).Baseline().Queue() {
			n++
		}
	}
	return n
}
