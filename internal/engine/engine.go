// FILENAME: internal/engine/engine.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/mutafuzz/internal/config"
	"github.com/xkilldash9x/mutafuzz/internal/filter"
	"github.com/xkilldash9x/mutafuzz/internal/fuzz"
	"github.com/xkilldash9x/mutafuzz/internal/models"
	"github.com/xkilldash9x/mutafuzz/internal/sync/barrier"
)

// ErrNoTemplate is returned when payloads are sent without an active template.
var ErrNoTemplate = errors.New("no active template")

// ErrNoMarker is returned when payloads are sent through a template with no
// injection marker.
var ErrNoMarker = errors.New("template has no injection marker")

// Options configures one engine run.
type Options struct {
	Threads              int
	Retries              int
	Timeout              time.Duration
	Delay                time.Duration // per worker, between requests
	Protocol             string        // h1, h2 or h3
	FollowRedirects      bool
	KeepHostHeader       bool
	ForceCloseConnection bool
	InsecureSkipVerify   bool
	MaxConnsPerHost      int
	QuarantineThreshold  int // 0 disables quarantine
	QuarantineCooldown   time.Duration

	// Target supplies scheme and host for templates queued without a URL.
	Target string
	// Template is the run's active raw template, used by payload-only tasks.
	Template string
}

func DefaultOptions() Options {
	return Options{
		Threads:            config.DefaultThreads,
		Retries:            config.DefaultRetries,
		Timeout:            config.DefaultTimeout,
		Protocol:           config.DefaultProtocol,
		MaxConnsPerHost:    config.DefaultMaxConnsPerHost,
		QuarantineCooldown: config.DefaultQuarantineCooldown,
	}
}

// Progress is a snapshot of the run counters.
type Progress struct {
	State  State
	Total  int64 // tasks accepted, queued or sent
	Done   int64 // tasks completed
	Errors int64 // failed or blocked tasks
	Queued int
}

// Engine is the reference executor of fuzz tasks. Queue methods resolve
// a task into a prepared request and append it to an unbounded queue that
// Run's workers drain. Send methods bypass the queue.
type Engine struct {
	Factory ClientFactory
	Logger  *zap.Logger

	opts      Options
	client    HTTPClient
	queue     *jobQueue
	baselines *Baselines
	gate      *barrier.Gate

	nextID   atomic.Int64
	total    atomic.Int64
	progress atomic.Int64
	errs     atomic.Int64

	mu          sync.Mutex
	state       State
	outstanding int
	doneCalled  bool
	drained     bool
	consecutive int
	cancel      context.CancelFunc
	cooldown    *time.Timer
	onStop      []func()
	stopOnce    sync.Once
}

var _ fuzz.Engine = (*Engine)(nil)

// New creates an engine and its transport client.
func New(f ClientFactory, opts Options, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Threads < 1 {
		opts.Threads = config.DefaultThreads
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.Timeout <= 0 {
		opts.Timeout = config.DefaultTimeout
	}
	if opts.Target != "" {
		if _, err := originOf(opts.Target); err != nil {
			return nil, fmt.Errorf("target: %w", err)
		}
	}

	client, err := f.NewClient(ClientConfig{
		Protocol:           opts.Protocol,
		FollowRedirects:    opts.FollowRedirects,
		InsecureSkipVerify: opts.InsecureSkipVerify,
		MaxConnsPerHost:    opts.MaxConnsPerHost,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("client init error: %w", err)
	}

	return &Engine{
		Factory:   f,
		Logger:    logger,
		opts:      opts,
		client:    client,
		queue:     newJobQueue(),
		baselines: NewBaselines(),
		gate:      barrier.NewGate(),
	}, nil
}

func (e *Engine) Options() Options { return e.opts }

// Baselines exposes the per-group calibration state.
func (e *Engine) Baselines() *Baselines { return e.baselines }

// Close releases the transport. Call it after Run and any Send calls.
func (e *Engine) Close() error {
	return e.client.Close()
}

// -- Lifecycle --

// Run starts the workers and blocks until the run finishes or stops.
// handler receives every delivered response; calls are concurrent and a
// panicking handler only loses its own response.
func (e *Engine) Run(ctx context.Context, handler filter.Handler) error {
	if handler == nil {
		handler = func(*models.Response) {}
	}
	handler = filter.Safe(handler, e.Logger)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.mu.Lock()
	if e.state != StateNotStarted {
		state := e.state
		e.mu.Unlock()
		return fmt.Errorf("engine cannot run from state %s", state)
	}
	e.transitionLocked(StateRunning)
	e.cancel = cancel
	e.mu.Unlock()

	e.Logger.Info("Engine started", zap.Int("threads", e.opts.Threads), zap.String("protocol", e.opts.Protocol))
	start := time.Now()

	g, gctx := errgroup.WithContext(runCtx)
	for i := 0; i < e.opts.Threads; i++ {
		g.Go(func() error {
			return e.worker(gctx, handler)
		})
	}
	err := g.Wait()

	e.mu.Lock()
	if e.cooldown != nil {
		e.cooldown.Stop()
	}
	finished := e.drained && e.state != StateStopping && ctx.Err() == nil
	e.mu.Unlock()

	// A stop can strand responses waiting on baselines that never completed
	if held := e.baselines.Drain(); len(held) > 0 {
		e.Logger.Warn("Delivering responses held for incomplete baselines", zap.Int("count", len(held)))
		for _, r := range held {
			handler(r)
		}
	}

	switch {
	case err != nil:
		e.setState(StateError)
	case finished:
		e.setState(StateFinished)
	default:
		// Parent context cancelled or Stop called
		e.Stop()
		e.setState(StateStopped)
		err = ctx.Err()
	}

	p := e.Progress()
	e.Logger.Info("Engine finished",
		zap.Stringer("state", p.State),
		zap.Int64("total", p.Total),
		zap.Int64("done", p.Done),
		zap.Int64("errors", p.Errors),
		zap.Duration("duration", time.Since(start)),
	)
	return err
}

// Stop requests shutdown. In-flight responses are dropped and OnStop hooks
// run once.
func (e *Engine) Stop() {
	e.mu.Lock()
	switch {
	case e.state == StateNotStarted:
		e.transitionLocked(StateStopped)
	case e.state.IsActive():
		e.transitionLocked(StateStopping)
	default:
		e.mu.Unlock()
		return
	}
	hooks := append([]func(){}, e.onStop...)
	cancel := e.cancel
	e.queue.close()
	e.mu.Unlock()

	e.stopOnce.Do(func() {
		for _, fn := range hooks {
			e.runHook(fn)
		}
	})
	e.gate.Release()
	if cancel != nil {
		cancel()
	}
}

func (e *Engine) runHook(fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			e.Logger.Error("stop hook failed", zap.String("panic", fmt.Sprint(rec)))
		}
	}()
	fn()
}

// OnStop registers fn to run when a stop is requested. It does not run on
// natural completion.
func (e *Engine) OnStop(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onStop = append(e.onStop, fn)
}

// Pause holds the workers after their current task.
func (e *Engine) Pause() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StatePaused || !e.transitionLocked(StatePaused) {
		return false
	}
	e.gate.Hold()
	e.Logger.Info("Engine paused")
	return true
}

// Resume releases the workers from a manual or quarantine pause.
func (e *Engine) Resume() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.state.IsPaused() {
		return false
	}
	e.resumeLocked()
	return true
}

func (e *Engine) resumeLocked() {
	if e.cooldown != nil {
		e.cooldown.Stop()
		e.cooldown = nil
	}
	if e.transitionLocked(StateRunning) {
		e.gate.Release()
		e.Logger.Info("Engine resumed")
	}
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.transitionLocked(s)
}

func (e *Engine) transitionLocked(to State) bool {
	if e.state == to {
		return true
	}
	if !CanTransition(e.state, to) {
		e.Logger.Debug("Ignoring invalid state transition", zap.Stringer("from", e.state), zap.Stringer("to", to))
		return false
	}
	e.state = to
	return true
}

func (e *Engine) Progress() Progress {
	return Progress{
		State:  e.State(),
		Total:  e.total.Load(),
		Done:   e.progress.Load(),
		Errors: e.errs.Load(),
		Queued: e.queue.len(),
	}
}

// -- Workers --

func (e *Engine) worker(ctx context.Context, handler filter.Handler) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		j := e.queue.pop(ctx)
		if j == nil {
			return nil
		}
		// A paused run keeps the popped task until resumed
		if err := e.gate.Await(ctx); err != nil {
			return nil
		}
		e.process(ctx, j, handler)
		e.finish()

		if e.opts.Delay > 0 {
			select {
			case <-time.After(e.opts.Delay):
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func (e *Engine) process(ctx context.Context, j *job, handler filter.Handler) {
	resp := e.fetch(ctx, j)
	if ctx.Err() != nil {
		// Stopped mid-flight
		return
	}
	e.progress.Add(1)
	e.observe(resp)

	group := j.learn.Group
	switch {
	case j.learn.Baseline:
		ok := resp.Error == nil && resp.StatusCode != config.SyntheticStatus
		released, complete := e.baselines.Learn(group, resp, ok)
		if !ok {
			e.Logger.Warn("Baseline request failed", zap.Int64("task", j.id), zap.Int("group", group), zap.Error(resp.Error))
		}
		if complete {
			e.logBaseline(group, len(released))
		}
		for _, r := range released {
			handler(r)
		}
	case group == 0:
		resp.Interesting = true
		handler(resp)
	default:
		if e.baselines.Classify(group, resp) {
			handler(resp)
		}
	}
}

func (e *Engine) logBaseline(group, released int) {
	a, ok := e.baselines.Analyzer(group)
	if !ok {
		e.Logger.Warn("Baseline group learned nothing, every response in it is interesting", zap.Int("group", group))
		return
	}
	e.Logger.Info("Baseline learned",
		zap.Int("group", group),
		zap.Int("samples", a.Samples()),
		zap.Strings("invariant", attrStrings(a.Invariant())),
		zap.Int("released", released),
	)
}

// finish marks one queued task complete and closes the queue once Done
// was called and nothing is left.
func (e *Engine) finish() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.outstanding--
	e.closeIfDrainedLocked()
}

func (e *Engine) closeIfDrainedLocked() {
	if e.doneCalled && e.outstanding == 0 && !e.drained {
		e.drained = true
		e.queue.close()
	}
}

// observe tracks consecutive abnormal responses for quarantine.
func (e *Engine) observe(r *models.Response) {
	abnormal := r.Error != nil || r.Blocked
	if abnormal {
		e.errs.Add(1)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !abnormal {
		e.consecutive = 0
		if e.state == StatePausedQuarantine {
			e.Logger.Info("Normal response received, leaving quarantine", zap.Int64("task", r.TaskID))
			e.resumeLocked()
		}
		return
	}

	e.consecutive++
	threshold := e.opts.QuarantineThreshold
	if threshold <= 0 || e.consecutive <= threshold || e.state != StateRunning {
		return
	}
	if !e.transitionLocked(StatePausedQuarantine) {
		return
	}
	e.gate.Hold()
	e.Logger.Warn("Quarantine: too many abnormal responses, pausing",
		zap.Int("consecutive", e.consecutive),
		zap.Int("threshold", threshold),
		zap.Duration("cooldown", e.opts.QuarantineCooldown),
	)
	if cd := e.opts.QuarantineCooldown; cd > 0 {
		e.cooldown = time.AfterFunc(cd, e.liftQuarantine)
	}
}

func (e *Engine) liftQuarantine() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cooldown = nil
	if e.state == StatePausedQuarantine {
		e.Logger.Info("Quarantine cooldown elapsed")
		e.resumeLocked()
	}
}

// -- Transport --

// fetch performs a queued task with retries. Once retries are exhausted a
// synthetic response carrying the last error is returned so the failure
// stays visible to the handler.
func (e *Engine) fetch(ctx context.Context, j *job) *models.Response {
	var lastErr error
	for attempt := 0; attempt <= e.opts.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(config.RetryBackoff * time.Duration(attempt)):
			case <-ctx.Done():
				return models.NewResponse(j.id, config.SyntheticStatus, nil, nil, 0, ctx.Err())
			}
		}

		resp, err := e.do(ctx, j.id, j.req)
		if err == nil {
			e.decorate(resp, j)
			return resp
		}
		lastErr = err
		e.Logger.Debug("Request attempt failed",
			zap.Int64("task", j.id),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}

	e.Logger.Warn("Request failed after retries", zap.Int64("task", j.id), zap.String("url", j.req.URL), zap.Error(lastErr))
	resp := models.NewResponse(j.id, config.SyntheticStatus, nil, nil, 0, lastErr)
	e.decorate(resp, j)
	return resp
}

func (e *Engine) decorate(r *models.Response, j *job) {
	r.LearnGroup = j.learn.Group
	r.Payloads = j.payloads
	r.Request = j.req
}

// do sends one attempt and reads the body up to config.MaxResponseSize.
func (e *Engine) do(ctx context.Context, id int64, spec *models.CapturedRequest) (*models.Response, error) {
	reqCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	req, err := BuildHTTPRequest(reqCtx, spec, e.opts)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := e.client.Do(reqCtx, req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, config.MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if len(body) == 0 {
		body = nil
	}

	r := models.NewResponse(id, res.StatusCode, res.Header, body, time.Since(start), nil)
	if body == nil && res.ContentLength > 0 {
		r.Length = int(res.ContentLength)
	}
	if vendor, blocked := IsBlocked(r); blocked {
		r.Blocked = true
		e.Logger.Debug("Blocked response", zap.Int64("task", id), zap.String("waf", vendor), zap.Int("status", r.StatusCode))
	}
	return r, nil
}

// -- fuzz.Engine --

func (e *Engine) QueueURL(url string, learn fuzz.Learn) {
	e.enqueue(e.urlRequest(url), nil, learn)
}

func (e *Engine) QueueRawTemplate(url, template string, payloads []string, learn fuzz.Learn) {
	req, err := e.templateRequest(url, template, payloads)
	if err != nil {
		e.Logger.Warn("Dropping template task", zap.Strings("payloads", payloads), zap.Error(err))
		return
	}
	e.enqueue(req, payloads, learn)
}

func (e *Engine) QueuePayloads(payloads []string, learn fuzz.Learn) {
	if e.opts.Template == "" {
		e.Logger.Warn("Dropping payload task: no active template", zap.Strings("payloads", payloads))
		return
	}
	if !hasMarker(e.opts.Template) {
		e.Logger.Warn("Dropping payload task: template has no injection marker", zap.Strings("payloads", payloads))
		return
	}
	e.QueueRawTemplate("", e.opts.Template, payloads, learn)
}

func (e *Engine) QueueRequest(req *models.CapturedRequest, learn fuzz.Learn) {
	if req == nil {
		e.Logger.Warn("Dropping nil prepared request")
		return
	}
	e.enqueue(req.Clone(), nil, learn)
}

func (e *Engine) enqueue(req *models.CapturedRequest, payloads []string, learn fuzz.Learn) {
	e.mu.Lock()
	if e.doneCalled || e.state.IsShuttingDown() {
		e.mu.Unlock()
		e.Logger.Warn("Dropping task queued after enumeration ended", zap.String("url", req.URL))
		return
	}
	e.outstanding++
	e.mu.Unlock()

	id := e.nextID.Add(1)
	e.total.Add(1)
	if learn.Baseline {
		e.baselines.Expect(learn.Group)
	}
	e.queue.push(&job{id: id, learn: learn, req: req, payloads: payloads})
}

func (e *Engine) SendURL(ctx context.Context, url string) (*models.Response, error) {
	return e.send(ctx, e.urlRequest(url), nil)
}

func (e *Engine) SendRawTemplate(ctx context.Context, url, template string, payloads []string) (*models.Response, error) {
	req, err := e.templateRequest(url, template, payloads)
	if err != nil {
		return nil, err
	}
	return e.send(ctx, req, payloads)
}

func (e *Engine) SendPayloads(ctx context.Context, payloads []string) (*models.Response, error) {
	if e.opts.Template == "" {
		return nil, ErrNoTemplate
	}
	if !hasMarker(e.opts.Template) {
		return nil, ErrNoMarker
	}
	return e.SendRawTemplate(ctx, "", e.opts.Template, payloads)
}

func (e *Engine) SendRequest(ctx context.Context, req *models.CapturedRequest) (*models.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	return e.send(ctx, req.Clone(), nil)
}

// send makes a single attempt outside the queue. It counts towards the
// totals but never touches learn groups or quarantine.
func (e *Engine) send(ctx context.Context, req *models.CapturedRequest, payloads []string) (*models.Response, error) {
	id := e.nextID.Add(1)
	e.total.Add(1)
	defer e.progress.Add(1)

	resp, err := e.do(ctx, id, req)
	if err != nil {
		e.errs.Add(1)
		return nil, err
	}
	resp.Request = req
	resp.Payloads = payloads
	return resp, nil
}

// Done marks the end of enumeration. The run finishes once every queued
// task has completed.
func (e *Engine) Done() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.doneCalled = true
	e.closeIfDrainedLocked()
}

func (e *Engine) CurrentTemplate() (string, bool) {
	return e.opts.Template, e.opts.Template != ""
}

func (e *Engine) RequestFromURL(url string) (*models.CapturedRequest, error) {
	if _, _, err := splitTarget(url); err != nil {
		return nil, err
	}
	return e.urlRequest(url), nil
}

func (e *Engine) urlRequest(url string) *models.CapturedRequest {
	return &models.CapturedRequest{
		Method:  http.MethodGet,
		URL:     url,
		Headers: map[string]string{"User-Agent": config.DefaultUserAgent},
	}
}

func (e *Engine) templateRequest(url, template string, payloads []string) (*models.CapturedRequest, error) {
	base := url
	if base == "" {
		base = e.opts.Target
	}
	return ParseRawRequest(RenderTemplate(template, payloads), base)
}
