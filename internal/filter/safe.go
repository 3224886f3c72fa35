// FILENAME: internal/filter/safe.go
package filter

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/mutafuzz/internal/models"
)

// Safe returns a handler that recovers panics from h. The panic is logged
// and the response is dropped; the calling worker keeps running.
func Safe(h Handler, logger *zap.Logger) Handler {
	return func(r *models.Response) {
		defer func() {
			if rec := recover(); rec != nil {
				var id int64
				if r != nil {
					id = r.TaskID
				}
				logger.Error("response handler failed",
					zap.Int64("task", id),
					zap.String("panic", fmt.Sprint(rec)),
					zap.Stack("stack"),
				)
			}
		}()
		h(r)
	}
}
