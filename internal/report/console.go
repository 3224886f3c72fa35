// FILENAME: internal/report/console.go
package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/xkilldash9x/mutafuzz/internal/config"
	"github.com/xkilldash9x/mutafuzz/internal/models"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(config.ColorFocus)
	subStyle    = lipgloss.NewStyle().Foreground(config.ColorSub)
	accentStyle = lipgloss.NewStyle().Foreground(config.ColorAccent)
	panelStyle  = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(config.ColorSub).
			Padding(0, 1)

	blockedFlag     = lipgloss.NewStyle().Foreground(config.ColorWarn).Bold(true).SetString("W")
	interestingFlag = lipgloss.NewStyle().Foreground(config.ColorErr).Bold(true).SetString("!")
	normalFlag      = lipgloss.NewStyle().SetString(" ")
)

// statusColor returns a style based on standard HTTP status code semantics.
func statusColor(code int) lipgloss.Style {
	s := lipgloss.NewStyle().Bold(true)
	switch {
	case code == config.SyntheticStatus:
		return s.Foreground(config.ColorErr)
	case code >= 200 && code < 300:
		return s.Foreground(config.ColorOk)
	case code >= 300 && code < 400:
		return s.Foreground(config.ColorWarn)
	case code >= 400:
		return s.Foreground(config.ColorErr)
	default:
		return s.Foreground(config.ColorSub)
	}
}

// Line renders one response as a single console row.
func Line(r *models.Response) string {
	flag := normalFlag.String()
	switch {
	case r.Blocked:
		flag = blockedFlag.String()
	case r.Interesting:
		flag = interestingFlag.String()
	}

	status := statusColor(r.StatusCode).Render(strconv.Itoa(r.StatusCode))
	if r.Error != nil {
		status = statusColor(config.SyntheticStatus).Render("ERR")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %5d %s %8d %10s", flag, r.TaskID, status, r.Length, r.Duration.Round(time.Millisecond))
	if len(r.Payloads) > 0 {
		b.WriteString(" " + accentStyle.Render(strings.Join(r.Payloads, ", ")))
	}
	if u := r.URL(); u != "" {
		b.WriteString(" " + subStyle.Render(u))
	}
	return b.String()
}

// ConsoleSink prints each table row as it arrives. It implements table.Sink.
type ConsoleSink struct {
	mu  sync.Mutex
	out io.Writer
}

func NewConsoleSink(out io.Writer) *ConsoleSink {
	return &ConsoleSink{out: out}
}

func (c *ConsoleSink) Record(r *models.Response) {
	if r == nil {
		return
	}
	line := Line(r)
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, line)
}

// Stats aggregates a finished table.
type Stats struct {
	Total       int
	Interesting int
	Blocked     int
	Errors      int
	ByStatus    map[int]int
}

func Summarize(rs []*models.Response) Stats {
	s := Stats{ByStatus: make(map[int]int)}
	for _, r := range rs {
		if r == nil {
			continue
		}
		s.Total++
		s.ByStatus[r.StatusCode]++
		if r.Interesting {
			s.Interesting++
		}
		if r.Blocked {
			s.Blocked++
		}
		if r.Error != nil {
			s.Errors++
		}
	}
	return s
}

// RenderSummary draws the end-of-run panel.
func RenderSummary(name string, rs []*models.Response, elapsed time.Duration) string {
	s := Summarize(rs)

	codes := make([]int, 0, len(s.ByStatus))
	for code := range s.ByStatus {
		codes = append(codes, code)
	}
	sort.Ints(codes)

	var dist []string
	for _, code := range codes {
		dist = append(dist, fmt.Sprintf("%s x%d", statusColor(code).Render(strconv.Itoa(code)), s.ByStatus[code]))
	}
	if len(dist) == 0 {
		dist = append(dist, subStyle.Render("no rows"))
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("mutafuzz: "+name),
		fmt.Sprintf("rows %d  interesting %d  blocked %d  errors %d  elapsed %s",
			s.Total, s.Interesting, s.Blocked, s.Errors, elapsed.Round(time.Millisecond)),
		strings.Join(dist, "  "),
	)
	return panelStyle.Render(body)
}
