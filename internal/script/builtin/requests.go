// FILENAME: internal/script/builtin/requests.go
package builtin

import (
	"context"

	"go.uber.org/zap"

	"github.com/xkilldash9x/mutafuzz/internal/script"
)

// DefaultInjection is the payload Params injects when none is configured.
const DefaultInjection = `xsstest'"<>\`

// Params injects a payload into every URL query parameter of every
// template exchange, one request per parameter.
//
// Params: payload (DefaultInjection), escaped as a query value.
type Params struct{ recordAll }

func (s *Params) Name() string { return "params" }

func (s *Params) Enumerate(ctx context.Context, run *script.Run) error {
	value := run.Param("payload", DefaultInjection)
	for i, ex := range run.Templates.All() {
		if run.ShouldStop() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if ex.Request == nil {
			continue
		}
		names, err := ex.Request.QueryParams()
		if err != nil {
			run.Err("Skipping template", err, zap.Int("template", i+1))
			continue
		}
		for _, name := range names {
			req, err := ex.Request.WithQueryParam(name, value)
			if err != nil {
				run.Err("Skipping parameter", err, zap.String("param", name))
				continue
			}
			run.Fuzz.HTTPRequest(req).Queue()
		}
	}
	return nil
}

// Requests replays every template exchange request as is.
type Requests struct{ recordAll }

func (s *Requests) Name() string { return "requests" }

func (s *Requests) Enumerate(ctx context.Context, run *script.Run) error {
	for _, ex := range run.Templates.All() {
		if run.ShouldStop() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if ex.Request != nil {
			run.Fuzz.HTTPRequest(ex.Request).Queue()
		}
	}
	return nil
}

// Custom queues one prepared request built from a URL with an extra header.
//
// Params: url, header, value.
type Custom struct{ recordAll }

func (s *Custom) Name() string { return "custom" }

func (s *Custom) Enumerate(ctx context.Context, run *script.Run) error {
	req, err := run.Fuzz.RequestFromURL(run.Param("url", "https://httpbin.org/anything"))
	if err != nil {
		return err
	}
	req = req.WithHeader(run.Param("header", "User-Agent"), run.Param("value", "CustomFuzzer/1.0"))
	run.Fuzz.HTTPRequest(req).Queue()
	return nil
}
