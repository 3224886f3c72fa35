// FILENAME: internal/filter/filter.go

// Package filter composes response predicates around a response handler.
//
// Predicates are listed in the order they would be written as decorators
// above the handler: the last one sits closest to the handler and is
// evaluated first, and evaluation stops at the first rejection.
package filter

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/xkilldash9x/mutafuzz/internal/models"
)

// Handler consumes one response.
type Handler func(r *models.Response)

// Predicate decides whether a response may reach the handler.
type Predicate func(r *models.Response) bool

// Wrap returns a handler that calls h only when p accepts the response.
func (p Predicate) Wrap(h Handler) Handler {
	return func(r *models.Response) {
		if p(r) {
			h(r)
		}
	}
}

// Stack wraps h with preds in decorator order.
func Stack(h Handler, preds ...Predicate) Handler {
	for _, p := range slices.Backward(preds) {
		h = p.Wrap(h)
	}
	return h
}

// All folds preds into a single predicate with the same evaluation order as Stack.
func All(preds ...Predicate) Predicate {
	return func(r *models.Response) bool {
		for _, p := range slices.Backward(preds) {
			if !p(r) {
				return false
			}
		}
		return true
	}
}

// Status accepts responses whose status code is one of codes.
func Status(codes ...int) Predicate {
	return func(r *models.Response) bool {
		return slices.Contains(codes, r.StatusCode)
	}
}

// StatusNot rejects responses whose status code is one of codes.
func StatusNot(codes ...int) Predicate {
	return func(r *models.Response) bool {
		return !slices.Contains(codes, r.StatusCode)
	}
}

// Interesting accepts responses the engine classified as interesting.
func Interesting() Predicate {
	return func(r *models.Response) bool {
		return r.Interesting
	}
}

// Bounds is an inclusive length range. A nil bound is open.
type Bounds struct {
	Min *int
	Max *int
}

// Bound is a convenience for filling Bounds fields.
func Bound(v int) *int { return &v }

// LengthRange accepts responses whose content length falls within b.
func LengthRange(b Bounds) Predicate {
	return func(r *models.Response) bool {
		if b.Min != nil && r.Length < *b.Min {
			return false
		}
		if b.Max != nil && r.Length > *b.Max {
			return false
		}
		return true
	}
}

// Contains accepts responses whose body contains every keyword, ignoring case.
func Contains(keywords ...string) Predicate {
	lowered := make([]string, len(keywords))
	for i, k := range keywords {
		lowered[i] = strings.ToLower(k)
	}
	return func(r *models.Response) bool {
		body := strings.ToLower(r.Text())
		for _, k := range lowered {
			if !strings.Contains(body, k) {
				return false
			}
		}
		return true
	}
}

// Matches accepts responses whose body contains a match for pattern.
func Matches(pattern string, ignoreCase bool) (Predicate, error) {
	if ignoreCase {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid match pattern: %w", err)
	}
	return func(r *models.Response) bool {
		return re.MatchString(r.Text())
	}, nil
}

// MustMatch is Matches for patterns known to be valid.
func MustMatch(pattern string, ignoreCase bool) Predicate {
	p, err := Matches(pattern, ignoreCase)
	if err != nil {
		panic(err)
	}
	return p
}
