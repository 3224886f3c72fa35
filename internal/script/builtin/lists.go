// FILENAME: internal/script/builtin/lists.go
package builtin

import (
	"context"
	"errors"
	"fmt"

	"github.com/xkilldash9x/mutafuzz/internal/script"
)

// URLs requests every entry of wordlist 1 as a URL.
type URLs struct{ recordAll }

func (s *URLs) Name() string { return "urls" }

func (s *URLs) Enumerate(ctx context.Context, run *script.Run) error {
	for _, u := range run.Payloads.Wordlist(1) {
		if run.ShouldStop() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		run.Fuzz.URL(u).Queue()
	}
	return nil
}

// Numbers sends the numbers from min (inclusive) to max (exclusive) as
// payloads of the active template.
//
// Params: min (0), max (100), step (1), zfill (0 pads nothing).
type Numbers struct{ recordAll }

func (s *Numbers) Name() string { return "numbers" }

func (s *Numbers) Enumerate(ctx context.Context, run *script.Run) error {
	var errs []error
	param := func(name string, def int) int {
		v, err := run.IntParam(name, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}
	lo, hi, step, zfill := param("min", 0), param("max", 100), param("step", 1), param("zfill", 0)
	if err := errors.Join(errs...); err != nil {
		return err
	}
	if step == 0 {
		return errors.New("step must not be zero")
	}

	for n := lo; (step > 0 && n < hi) || (step < 0 && n > hi); n += step {
		if run.ShouldStop() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		v := fmt.Sprint(n)
		if zfill > 0 {
			v = fmt.Sprintf("%0*d", zfill, n)
		}
		run.Fuzz.Payloads(v).Queue()
	}
	return nil
}
