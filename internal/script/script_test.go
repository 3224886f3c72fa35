// FILENAME: internal/script/script_test.go
package script_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/mutafuzz/internal/filter"
	"github.com/xkilldash9x/mutafuzz/internal/fuzz"
	"github.com/xkilldash9x/mutafuzz/internal/models"
	"github.com/xkilldash9x/mutafuzz/internal/script"
)

// fakeEngine answers every queued URL with a 200 once Done is called.
type fakeEngine struct {
	mu        sync.Mutex
	queued    []string
	done      chan struct{}
	doneCalls int
	stop      chan struct{}
	hooks     []func()
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{done: make(chan struct{}), stop: make(chan struct{})}
}

func (f *fakeEngine) QueueURL(url string, _ fuzz.Learn) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queued = append(f.queued, url)
}
func (f *fakeEngine) QueueRawTemplate(string, string, []string, fuzz.Learn) {}
func (f *fakeEngine) QueuePayloads([]string, fuzz.Learn)                    {}
func (f *fakeEngine) QueueRequest(*models.CapturedRequest, fuzz.Learn)      {}
func (f *fakeEngine) SendURL(context.Context, string) (*models.Response, error) {
	return nil, errors.New("not supported")
}
func (f *fakeEngine) SendRawTemplate(context.Context, string, string, []string) (*models.Response, error) {
	return nil, errors.New("not supported")
}
func (f *fakeEngine) SendPayloads(context.Context, []string) (*models.Response, error) {
	return nil, errors.New("not supported")
}
func (f *fakeEngine) SendRequest(context.Context, *models.CapturedRequest) (*models.Response, error) {
	return nil, errors.New("not supported")
}
func (f *fakeEngine) CurrentTemplate() (string, bool) { return "", false }
func (f *fakeEngine) RequestFromURL(url string) (*models.CapturedRequest, error) {
	return &models.CapturedRequest{Method: "GET", URL: url}, nil
}

func (f *fakeEngine) Done() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.doneCalls++
	if f.doneCalls == 1 {
		close(f.done)
	}
}

func (f *fakeEngine) OnStop(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hooks = append(f.hooks, fn)
}

func (f *fakeEngine) Stop() { close(f.stop) }

func (f *fakeEngine) Run(ctx context.Context, h filter.Handler) error {
	select {
	case <-f.done:
		f.mu.Lock()
		urls := append([]string{}, f.queued...)
		f.mu.Unlock()
		for i, u := range urls {
			r := models.NewResponse(int64(i+1), 200, nil, []byte(u), 0, nil)
			r.Request = &models.CapturedRequest{URL: u}
			h(r)
		}
		return nil
	case <-f.stop:
	case <-ctx.Done():
	}
	f.mu.Lock()
	hooks := f.hooks
	f.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
	return ctx.Err()
}

// scriptFunc adapts functions to script.Script.
type scriptFunc struct {
	enumerate func(ctx context.Context, run *script.Run) error
	stopped   chan struct{}
}

func (s *scriptFunc) Name() string { return "test" }
func (s *scriptFunc) Enumerate(ctx context.Context, run *script.Run) error {
	return s.enumerate(ctx, run)
}
func (s *scriptFunc) HandleResponse(run *script.Run, r *models.Response) { run.Table.Add(r) }
func (s *scriptFunc) OnStop(*script.Run) {
	if s.stopped != nil {
		close(s.stopped)
	}
}

func TestExecute_EnumeratesAndFilters(t *testing.T) {
	e := newFakeEngine()
	run := script.NewRun(e, zap.NewNop())
	run.Filters = []filter.Predicate{filter.Contains("keep")}

	s := &scriptFunc{enumerate: func(ctx context.Context, run *script.Run) error {
		run.Fuzz.URL("http://t/keep-1").Queue()
		run.Fuzz.URL("http://t/drop").Queue()
		run.Fuzz.URL("http://t/keep-2").Queue()
		return nil
	}}

	require.NoError(t, script.Execute(context.Background(), s, e, run))
	assert.Equal(t, 1, e.doneCalls, "Done is forwarded once")
	require.Equal(t, 2, run.Table.Len())
	for _, r := range run.Table.Records() {
		assert.Contains(t, r.Text(), "keep")
	}
	assert.NotEmpty(t, run.ID)
}

func TestExecute_EnumerationErrors(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		e := newFakeEngine()
		run := script.NewRun(e, nil)
		boom := errors.New("boom")
		err := script.Execute(context.Background(), &scriptFunc{enumerate: func(context.Context, *script.Run) error {
			return boom
		}}, e, run)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, e.doneCalls, "Done still called after failure")
	})

	t.Run("Panic", func(t *testing.T) {
		e := newFakeEngine()
		run := script.NewRun(e, nil)
		err := script.Execute(context.Background(), &scriptFunc{enumerate: func(context.Context, *script.Run) error {
			panic("bad script")
		}}, e, run)
		assert.ErrorContains(t, err, "panicked")
	})
}

func TestExecute_StopReleasesEnumeration(t *testing.T) {
	e := newFakeEngine()
	run := script.NewRun(e, nil)

	var hookCalls int
	run.OnStop(func() { hookCalls++ })
	s := &scriptFunc{
		stopped: make(chan struct{}),
		enumerate: func(ctx context.Context, run *script.Run) error {
			// Would sleep far past the test deadline without a stop
			err := run.Sleep(ctx, 60_000)
			if !run.ShouldStop() {
				return errors.New("stop not observed")
			}
			return err
		},
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		e.Stop()
	}()
	require.NoError(t, script.Execute(context.Background(), s, e, run))
	assert.Equal(t, 1, hookCalls)
	select {
	case <-s.stopped:
	default:
		t.Error("Stopper.OnStop not called")
	}
}

func TestRun_Params(t *testing.T) {
	run := script.NewRun(newFakeEngine(), nil)
	run.Params = map[string]string{"min": "5", "bad": "x", "empty": ""}

	assert.Equal(t, "5", run.Param("min", "0"))
	assert.Equal(t, "d", run.Param("empty", "d"))

	n, err := run.IntParam("min", 0)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = run.IntParam("missing", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = run.IntParam("bad", 0)
	assert.Error(t, err)
}

func TestRun_SleepAndStop(t *testing.T) {
	run := script.NewRun(newFakeEngine(), nil)
	require.NoError(t, run.Sleep(context.Background(), 1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, run.Sleep(ctx, 10_000), context.Canceled)
	assert.False(t, run.ShouldStop())
}

func TestRegistry(t *testing.T) {
	r := script.NewRegistry()
	r.Register("b", func() script.Script { return &scriptFunc{} })
	r.Register("a", func() script.Script { return &scriptFunc{} })

	assert.Equal(t, []string{"a", "b"}, r.Names())
	s, err := r.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "test", s.Name())

	_, err = r.Get("zzz")
	assert.ErrorContains(t, err, "unknown script")
}
