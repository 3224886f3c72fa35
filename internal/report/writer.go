// FILENAME: internal/report/writer.go
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xkilldash9x/mutafuzz/internal/models"
)

// Writer handles artifact generation.
type Writer struct {
	BaseDir string
	RunID   string
}

func NewWriter(baseDir, runID string) *Writer {
	return &Writer{BaseDir: baseDir, RunID: runID}
}

// WriteArtifacts saves the table to disk in each of the given formats
// (json, csv, sqlite) and returns the paths written.
func (w *Writer) WriteArtifacts(responses []*models.Response, prefix string, formats []string) ([]string, error) {
	if err := os.MkdirAll(w.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	baseName := fmt.Sprintf("%s-%s", prefix, timestamp)
	records := FromResponses(responses)

	var paths []string
	for _, format := range formats {
		path := filepath.Join(w.BaseDir, baseName+"."+format)
		var err error
		switch format {
		case "json":
			err = w.writeJSON(records, path)
		case "csv":
			err = w.writeCSV(records, path)
		case "sqlite":
			path = filepath.Join(w.BaseDir, baseName+".db")
			err = w.writeSQLite(responses, path)
		default:
			err = fmt.Errorf("unknown format %q", format)
		}
		if err != nil {
			return paths, fmt.Errorf("%s report: %w", format, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (w *Writer) writeJSON(records []Record, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		RunID   string   `json:"run_id,omitempty"`
		Records []Record `json:"records"`
	}{w.RunID, records})
}

func (w *Writer) writeCSV(records []Record, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	// Header
	header := []string{"Task", "Method", "URL", "Status", "Length", "Interesting", "Blocked", "LearnGroup", "Payloads", "Duration(ms)", "Hash", "Title", "Error"}
	if err := cw.Write(header); err != nil {
		return err
	}

	// Rows
	for _, r := range records {
		row := []string{
			strconv.FormatInt(r.TaskID, 10),
			r.Method,
			r.URL,
			strconv.Itoa(r.Status),
			strconv.Itoa(r.Length),
			strconv.FormatBool(r.Interesting),
			strconv.FormatBool(r.Blocked),
			strconv.Itoa(r.LearnGroup),
			strings.Join(r.Payloads, "|"),
			strconv.FormatInt(r.DurationMS, 10),
			r.Hash,
			r.Title,
			r.Error,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	return cw.Error()
}

func (w *Writer) writeSQLite(responses []*models.Response, path string) error {
	sink, err := OpenSQLite(path, w.RunID)
	if err != nil {
		return err
	}
	for _, r := range responses {
		sink.Record(r)
	}
	if err := sink.Err(); err != nil {
		sink.Close()
		return err
	}
	return sink.Close()
}
