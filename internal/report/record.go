// FILENAME: internal/report/record.go
package report

import (
	"github.com/xkilldash9x/mutafuzz/internal/models"
)

// Record is the flat, serializable form of a response.
type Record struct {
	TaskID      int64    `json:"task_id"`
	Method      string   `json:"method,omitempty"`
	URL         string   `json:"url"`
	Status      int      `json:"status"`
	Length      int      `json:"length"`
	Interesting bool     `json:"interesting"`
	Blocked     bool     `json:"blocked,omitempty"`
	LearnGroup  int      `json:"learn_group,omitempty"`
	Payloads    []string `json:"payloads,omitempty"`
	DurationMS  int64    `json:"duration_ms"`
	Hash        string   `json:"hash"`
	Title       string   `json:"title,omitempty"`
	Error       string   `json:"error,omitempty"`
}

func FromResponse(r *models.Response) Record {
	rec := Record{
		TaskID:      r.TaskID,
		URL:         r.URL(),
		Status:      r.StatusCode,
		Length:      r.Length,
		Interesting: r.Interesting,
		Blocked:     r.Blocked,
		LearnGroup:  r.LearnGroup,
		Payloads:    r.Payloads,
		DurationMS:  r.Duration.Milliseconds(),
		Hash:        r.BodyHash,
		Title:       r.Title,
	}
	if r.Request != nil {
		rec.Method = r.Request.Method
	}
	if r.Error != nil {
		rec.Error = r.Error.Error()
	}
	return rec
}

func FromResponses(rs []*models.Response) []Record {
	out := make([]Record, 0, len(rs))
	for _, r := range rs {
		if r != nil {
			out = append(out, FromResponse(r))
		}
	}
	return out
}
