// FILENAME: internal/calibration/calibration_test.go
package calibration_test

import (
	"context"
	"math/rand/v2"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/mutafuzz/internal/calibration"
	"github.com/xkilldash9x/mutafuzz/internal/fuzz"
	"github.com/xkilldash9x/mutafuzz/internal/models"
)

type queued struct {
	payloads []string
	learn    fuzz.Learn
}

// recorder implements just enough of fuzz.Engine to capture queued payloads.
type recorder struct {
	tasks    []queued
	template string
}

func (r *recorder) QueueURL(string, fuzz.Learn)                           {}
func (r *recorder) QueueRawTemplate(string, string, []string, fuzz.Learn) {}
func (r *recorder) QueueRequest(*models.CapturedRequest, fuzz.Learn)      {}
func (r *recorder) QueuePayloads(p []string, l fuzz.Learn) {
	r.tasks = append(r.tasks, queued{payloads: p, learn: l})
}
func (r *recorder) SendURL(context.Context, string) (*models.Response, error) { return nil, nil }
func (r *recorder) SendRawTemplate(context.Context, string, string, []string) (*models.Response, error) {
	return nil, nil
}
func (r *recorder) SendPayloads(context.Context, []string) (*models.Response, error) { return nil, nil }
func (r *recorder) SendRequest(context.Context, *models.CapturedRequest) (*models.Response, error) {
	return nil, nil
}
func (r *recorder) Done()                           {}
func (r *recorder) CurrentTemplate() (string, bool) { return r.template, r.template != "" }
func (r *recorder) RequestFromURL(string) (*models.CapturedRequest, error) {
	return nil, nil
}

func seeded() *rand.Rand { return rand.New(rand.NewPCG(1, 2)) }

func TestRandString(t *testing.T) {
	r := seeded()
	s := calibration.RandString(r, 32, true)
	assert.Len(t, s, 32)
	assert.Regexp(t, `^[a-z0-9]+$`, s)

	letters := calibration.RandString(r, 64, false)
	assert.Regexp(t, `^[a-z]+$`, letters)
	assert.Equal(t, "", calibration.RandString(r, 0, true))
}

func TestDefaultPlan_Probes(t *testing.T) {
	plan := calibration.DefaultPlan()
	plan.Rand = seeded()

	probes := plan.Probes(1)
	require.Len(t, probes, 10)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, plan.Groups())

	shapes := map[int]*regexp.Regexp{
		1: regexp.MustCompile(`^[a-z0-9]+$`),
		2: regexp.MustCompile(`^[a-z0-9]+/$`),
		3: regexp.MustCompile(`^admin[a-z0-9]+$`),
		4: regexp.MustCompile(`^\.htaccess[a-z0-9]+$`),
		5: regexp.MustCompile(`^A+$`),
	}
	for i, p := range probes {
		length := plan.Lengths[i/5]
		require.Len(t, p.Payloads, 1)
		v := p.Payloads[0]
		assert.Regexp(t, shapes[p.Group], v, "group %d", p.Group)

		switch p.Group {
		case 1:
			assert.Len(t, v, length)
		case 2:
			assert.Len(t, v, length+1)
		case 3:
			assert.True(t, strings.HasPrefix(v, "admin"))
			assert.Len(t, v, length+5)
		case 5:
			assert.Len(t, v, 1000+length)
		}
	}
}

func TestProbes_RepeatAcrossMarkers(t *testing.T) {
	plan := calibration.DefaultPlan()
	for _, p := range plan.Probes(3) {
		require.Len(t, p.Payloads, 3)
		assert.Equal(t, p.Payloads[0], p.Payloads[1])
		assert.Equal(t, p.Payloads[0], p.Payloads[2])
	}
	for _, p := range plan.Probes(0) {
		assert.Len(t, p.Payloads, 1, "no markers still means one position")
	}
}

func TestPlan_QueueTagsBaselines(t *testing.T) {
	rec := &recorder{}
	api := fuzz.New(rec, zap.NewNop())

	plan := calibration.DefaultPlan()
	n := plan.Queue(api, 2)

	assert.Equal(t, 10, n)
	require.Len(t, rec.tasks, 10)
	perGroup := map[int]int{}
	for _, task := range rec.tasks {
		assert.True(t, task.learn.Baseline)
		assert.Len(t, task.payloads, 2)
		perGroup[task.learn.Group]++
	}
	assert.Equal(t, map[int]int{1: 2, 2: 2, 3: 2, 4: 2, 5: 2}, perGroup)
}

func TestPlan_CustomCategories(t *testing.T) {
	plan := calibration.Plan{
		Lengths: []int{4},
		Categories: []calibration.Category{
			{Group: 7, Name: "fixed", Synth: func(_ *rand.Rand, n int) string { return strings.Repeat("z", n) }},
		},
	}
	probes := plan.Probes(1)
	require.Len(t, probes, 1)
	assert.Equal(t, calibration.Probe{Group: 7, Category: "fixed", Payloads: []string{"zzzz"}}, probes[0])
}
