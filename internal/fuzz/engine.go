// FILENAME: internal/fuzz/engine.go
package fuzz

import (
	"context"

	"github.com/xkilldash9x/mutafuzz/internal/models"
)

// Engine executes tasks. Queue methods must return without blocking;
// responses come back later through the run's response handler. Send
// methods block for a single response and bypass learn groups and the table.
//
// Raw templates mark each injection position with the literal "%s".
type Engine interface {
	QueueURL(url string, learn Learn)
	QueueRawTemplate(url, template string, payloads []string, learn Learn)
	QueuePayloads(payloads []string, learn Learn)
	QueueRequest(req *models.CapturedRequest, learn Learn)

	SendURL(ctx context.Context, url string) (*models.Response, error)
	SendRawTemplate(ctx context.Context, url, template string, payloads []string) (*models.Response, error)
	SendPayloads(ctx context.Context, payloads []string) (*models.Response, error)
	SendRequest(ctx context.Context, req *models.CapturedRequest) (*models.Response, error)

	// Done tells the engine enumeration is over. No task is queued after it.
	Done()

	// CurrentTemplate returns the active raw template of the run, if any.
	CurrentTemplate() (string, bool)

	// RequestFromURL builds a GET request the caller can customize before
	// queueing it as a prepared request.
	RequestFromURL(url string) (*models.CapturedRequest, error)
}
