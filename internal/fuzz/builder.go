// FILENAME: internal/fuzz/builder.go
package fuzz

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/xkilldash9x/mutafuzz/internal/models"
)

// Builder accumulates a task description. It is a value: every setter
// returns a modified copy and nothing reaches the engine until Queue or Send.
type Builder struct {
	engine Engine
	logger *zap.Logger

	url         string
	template    string
	payloads    []string
	hasPayloads bool
	request     *models.CapturedRequest
	current     string // active template, sent unchanged
	learn       Learn
}

func (b Builder) URL(url string) Builder {
	b.url = url
	return b
}

// Payloads sets the values injected at the template markers, in order.
func (b Builder) Payloads(values ...string) Builder {
	b.payloads = slices.Clone(values)
	b.hasPayloads = true
	return b
}

// RawRequest sets a raw HTTP template containing "%s" markers.
func (b Builder) RawRequest(template string) Builder {
	b.template = template
	return b
}

// HTTPRequest sets a prepared request. It wins over every other target.
func (b Builder) HTTPRequest(req *models.CapturedRequest) Builder {
	b.request = req.Clone()
	return b
}

// CurrentTemplate targets the run's active template as-is. Like a prepared
// request it wins over raw templates, payloads and URLs, and payloads are
// not injected into it.
func (b Builder) CurrentTemplate() Builder {
	tpl, ok := b.engine.CurrentTemplate()
	if !ok {
		return b
	}
	b.current = tpl
	return b
}

// LearnGroup tags the task with a learn group. 0 disables classification.
func (b Builder) LearnGroup(id int) Builder {
	b.learn.Group = id
	return b
}

// Baseline marks the task as a calibration probe for its learn group.
func (b Builder) Baseline() Builder {
	b.learn.Baseline = true
	return b
}

// ToTask resolves the builder into a task. When several targets are set the
// prepared request wins, then the current template, then the raw template,
// then payloads, then the URL. Payloads beat the URL even when the engine has
// no active template; the engine rejects such a task.
func (b Builder) ToTask() (Task, error) {
	if b.learn.Group < 0 {
		return Task{}, invalid("learn group %d is negative", b.learn.Group)
	}
	if b.learn.Baseline && b.learn.Group == 0 {
		return Task{}, invalid("baseline task needs a learn group")
	}

	t := Task{Learn: b.learn}
	payloads := b.hasPayloads && len(b.payloads) > 0

	switch {
	case b.request != nil:
		t.Mode = ModeRequest
		t.Request = b.request
	case b.current != "":
		t.Mode = ModeRawTemplate
		t.Template = b.current
	case b.template != "":
		t.Mode = ModeRawTemplate
		t.URL = b.url
		t.Template = b.template
		t.Payloads = slices.Clone(b.payloads)
	case payloads:
		t.Mode = ModePayloads
		t.Payloads = slices.Clone(b.payloads)
	case b.url != "":
		t.Mode = ModeURL
		t.URL = b.url
	default:
		return Task{}, invalid("no target set: use URL, Payloads, RawRequest, HTTPRequest or CurrentTemplate")
	}
	return t, nil
}

func (b Builder) hasTarget() bool {
	return b.request != nil || b.current != "" || b.template != "" || b.url != "" || (b.hasPayloads && len(b.payloads) > 0)
}

// Queue submits the task for asynchronous execution and reports whether
// anything was submitted. A builder with no target is a no-op.
func (b Builder) Queue() bool {
	if !b.hasTarget() {
		return false
	}
	t, err := b.ToTask()
	if err != nil {
		b.logger.Warn("task not queued", zap.Error(err))
		return false
	}
	return t.Dispatch(b.engine)
}

// Send executes the task and waits for its response. Only the first payload
// is used: a synchronous call is exactly one request. The response is not
// added to the table and learn groups are ignored.
func (b Builder) Send(ctx context.Context) (*models.Response, error) {
	b.learn = Learn{}
	t, err := b.ToTask()
	if err != nil {
		return nil, err
	}

	first := t.Payloads
	if len(first) > 1 {
		first = first[:1]
	}

	switch t.Mode {
	case ModeRequest:
		return b.engine.SendRequest(ctx, t.Request)
	case ModeRawTemplate:
		if len(first) == 0 && b.current == "" {
			return nil, invalid("raw request requires payloads")
		}
		return b.engine.SendRawTemplate(ctx, t.URL, t.Template, first)
	case ModePayloads:
		if _, ok := b.engine.CurrentTemplate(); !ok {
			return nil, invalid("payloads require an active template")
		}
		return b.engine.SendPayloads(ctx, first)
	default:
		return b.engine.SendURL(ctx, t.URL)
	}
}
