// FILENAME: internal/script/builtin/default.go
package builtin

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/xkilldash9x/mutafuzz/internal/calibration"
	"github.com/xkilldash9x/mutafuzz/internal/config"
	"github.com/xkilldash9x/mutafuzz/internal/filter"
	"github.com/xkilldash9x/mutafuzz/internal/models"
	"github.com/xkilldash9x/mutafuzz/internal/payload"
	"github.com/xkilldash9x/mutafuzz/internal/script"
)

// Default calibrates five learn groups, then fuzzes the active template
// with every wordlist: battering ram when the template has several
// markers, Cartesian product otherwise. Only interesting responses are kept.
//
// Params: classify_group (default 1) selects the baseline main tasks are
// compared against; 0 disables classification.
type Default struct {
	// Plan overrides the calibration plan. The zero value uses DefaultPlan.
	Plan calibration.Plan
}

func (d *Default) Name() string { return "default" }

func (d *Default) Enumerate(ctx context.Context, run *script.Run) error {
	template, ok := run.Fuzz.Engine().CurrentTemplate()
	if !ok {
		return errors.New("default script needs a raw request template")
	}
	group, err := run.IntParam("classify_group", config.DefaultClassifyGroup)
	if err != nil {
		return err
	}

	markers := payload.MarkerCount(template)
	plan := d.Plan
	if len(plan.Categories) == 0 {
		plan = calibration.DefaultPlan()
	}
	n := plan.Queue(run.Fuzz, markers)
	run.Log("Calibration queued", zap.Int("probes", n), zap.Ints("groups", plan.Groups()))

	if err := run.Sleep(ctx, int(config.DefaultCalibrationSettle.Milliseconds())); err != nil {
		return err
	}

	lists := run.Payloads.Lists()
	run.Log("Queueing payloads",
		zap.Int("tasks", payload.Count(lists, markers)),
		zap.Int("markers", markers),
		zap.Int("classify_group", group),
	)
	for tuple := range payload.Combine(lists, markers, run.Case) {
		if run.ShouldStop() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		run.Fuzz.Payloads(tuple...).LearnGroup(group).Queue()
	}
	return nil
}

func (d *Default) HandleResponse(run *script.Run, r *models.Response) {
	run.Table.AddWhen(r, filter.Interesting())
}
