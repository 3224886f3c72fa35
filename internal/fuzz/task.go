// FILENAME: internal/fuzz/task.go

// Package fuzz is the scripting surface for describing fuzz tasks. A Builder
// resolves a target description into exactly one Task, which is either
// queued on the Engine or sent synchronously.
package fuzz

import (
	"errors"
	"fmt"
	"slices"

	"github.com/xkilldash9x/mutafuzz/internal/models"
)

// Mode is the kind of target a Task carries.
type Mode int

const (
	ModeNone Mode = iota
	ModeURL
	ModeRawTemplate
	ModePayloads
	ModeRequest
)

func (m Mode) String() string {
	switch m {
	case ModeURL:
		return "url"
	case ModeRawTemplate:
		return "raw_template"
	case ModePayloads:
		return "payloads"
	case ModeRequest:
		return "request"
	}
	return "none"
}

// Learn tags a task for calibration. Group 0 means the response is not
// classified. Baseline marks a calibration probe whose response feeds the
// group's baseline instead of the response handler.
type Learn struct {
	Group    int
	Baseline bool
}

// Task is a resolved task descriptor. Only the fields of its Mode are meaningful.
type Task struct {
	Mode     Mode
	URL      string
	Template string
	Payloads []string
	Request  *models.CapturedRequest
	Learn    Learn
}

// ErrInvalidTask is returned, wrapped in *InvalidTaskError, for tasks that
// cannot be dispatched as configured.
var ErrInvalidTask = errors.New("invalid task")

// InvalidTaskError describes why a task could not be built or sent.
type InvalidTaskError struct {
	Reason string
}

func (e *InvalidTaskError) Error() string {
	return fmt.Sprintf("%v: %s", ErrInvalidTask, e.Reason)
}

func (e *InvalidTaskError) Unwrap() error { return ErrInvalidTask }

func invalid(format string, args ...any) error {
	return &InvalidTaskError{Reason: fmt.Sprintf(format, args...)}
}

// Dispatch queues t on e. Tasks without a target are ignored.
func (t Task) Dispatch(e Engine) bool {
	switch t.Mode {
	case ModeRequest:
		e.QueueRequest(t.Request, t.Learn)
	case ModeRawTemplate:
		e.QueueRawTemplate(t.URL, t.Template, slices.Clone(t.Payloads), t.Learn)
	case ModePayloads:
		e.QueuePayloads(slices.Clone(t.Payloads), t.Learn)
	case ModeURL:
		e.QueueURL(t.URL, t.Learn)
	default:
		return false
	}
	return true
}
