// FILENAME: internal/script/builtin/builtin.go

// Package builtin holds the scripts shipped with mutafuzz.
package builtin

import (
	"github.com/xkilldash9x/mutafuzz/internal/models"
	"github.com/xkilldash9x/mutafuzz/internal/script"
)

// Registry returns a registry with every built-in script.
func Registry() *script.Registry {
	r := script.NewRegistry()
	r.Register("default", func() script.Script { return &Default{} })
	r.Register("urls", func() script.Script { return &URLs{} })
	r.Register("numbers", func() script.Script { return &Numbers{} })
	r.Register("params", func() script.Script { return &Params{} })
	r.Register("requests", func() script.Script { return &Requests{} })
	r.Register("custom", func() script.Script { return &Custom{} })
	r.Register("chain", func() script.Script { return &Chain{} })
	return r
}

// recordAll adds every response that passed the run's filters to the table.
type recordAll struct{}

func (recordAll) HandleResponse(run *script.Run, r *models.Response) {
	run.Table.Add(r)
}
