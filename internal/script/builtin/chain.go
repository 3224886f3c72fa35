// FILENAME: internal/script/builtin/chain.go
package builtin

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/mutafuzz/internal/script"
)

// Chain sends two requests synchronously: a field extracted from the JSON
// body of the first is sent as a header of the second. The second response
// is recorded when it is a 200. The extracted value is kept in the session
// under the field name.
//
// Params: first_url, field, fallback, second_url, header.
type Chain struct{ recordAll }

func (s *Chain) Name() string { return "chain" }

func (s *Chain) Enumerate(ctx context.Context, run *script.Run) error {
	first := run.Param("first_url", "https://httpbin.org/uuid")
	second := run.Param("second_url", "https://httpbin.org/headers")
	field := run.Param("field", "uuid")
	header := run.Param("header", "X-Request-ID")

	req1, err := run.Fuzz.RequestFromURL(first)
	if err != nil {
		return err
	}
	resp1, err := run.Fuzz.HTTPRequest(req1).Send(ctx)
	if err != nil {
		return fmt.Errorf("first request: %w", err)
	}

	var data map[string]any
	if err := json.Unmarshal(resp1.Body, &data); err != nil {
		return fmt.Errorf("first response is not a JSON object: %w", err)
	}
	value := run.Param("fallback", "fallback-id")
	if v, ok := data[field]; ok {
		value = fmt.Sprint(v)
	}
	run.Session.Set(field, value)
	run.Log("Extracted chain value", zap.String("field", field), zap.String("value", value))

	req2, err := run.Fuzz.RequestFromURL(second)
	if err != nil {
		return err
	}
	resp2, err := run.Fuzz.HTTPRequest(req2.WithHeader(header, value)).Send(ctx)
	if err != nil {
		return fmt.Errorf("second request: %w", err)
	}
	run.Table.AddIf(resp2, resp2.StatusCode == 200)
	return nil
}
