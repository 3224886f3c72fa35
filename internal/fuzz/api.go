// FILENAME: internal/fuzz/api.go
package fuzz

import (
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/mutafuzz/internal/models"
)

// API is the entry point scripts use to describe tasks.
type API struct {
	engine Engine
	logger *zap.Logger
	done   sync.Once
}

func New(engine Engine, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{engine: engine, logger: logger}
}

func (a *API) builder() Builder {
	return Builder{engine: a.engine, logger: a.logger}
}

// Builder returns an empty builder bound to the engine.
func (a *API) Builder() Builder { return a.builder() }

func (a *API) URL(url string) Builder { return a.builder().URL(url) }

func (a *API) Payloads(values ...string) Builder { return a.builder().Payloads(values...) }

func (a *API) RawRequest(template string) Builder { return a.builder().RawRequest(template) }

func (a *API) HTTPRequest(req *models.CapturedRequest) Builder {
	return a.builder().HTTPRequest(req)
}

func (a *API) CurrentTemplate() Builder { return a.builder().CurrentTemplate() }

// RequestFromURL asks the engine for a prepared GET request to customize.
func (a *API) RequestFromURL(url string) (*models.CapturedRequest, error) {
	return a.engine.RequestFromURL(url)
}

// Engine exposes the engine the API dispatches to.
func (a *API) Engine() Engine { return a.engine }

// Done signals the end of enumeration. Only the first call reaches the engine.
func (a *API) Done() {
	a.done.Do(a.engine.Done)
}
