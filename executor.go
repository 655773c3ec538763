package deeply

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// now is overridden in tests to provide deterministic timings.
var now = time.Now

// RunOption configures a run.
type RunOption func(*runOptions)

type runOptions struct {
	id             string
	logger         Logger
	hooks          Hooks
	maxConcurrency int
}

func defaultRunOptions() runOptions {
	return runOptions{
		logger: NopLogger(),
	}
}

// WithRunID overrides the generated run identifier.
func WithRunID(id string) RunOption {
	return func(opts *runOptions) {
		opts.id = id
	}
}

// WithLogger sets the logger receiving task lifecycle messages.
func WithLogger(logger Logger) RunOption {
	return func(opts *runOptions) {
		if logger != nil {
			opts.logger = logger
		}
	}
}

// WithHooks registers hooks applied to every task of the run.
func WithHooks(h Hooks) RunOption {
	return func(opts *runOptions) {
		opts.hooks = opts.hooks.Merge(h)
	}
}

// WithMaxConcurrency bounds how many leaf hooks run at once. Zero or less
// means unbounded.
func WithMaxConcurrency(n int) RunOption {
	return func(opts *runOptions) {
		opts.maxConcurrency = n
	}
}

// runEnv is the run-scoped ambient data carried in the context.
type runEnv struct {
	id     string
	logger Logger
	hooks  Hooks
	report *Report
	gate   *gate
}

type envKey struct{}

var detachedEnv = &runEnv{logger: NopLogger(), gate: newGate(0)}

func envFrom(ctx context.Context) *runEnv {
	if env, ok := ctx.Value(envKey{}).(*runEnv); ok {
		return env
	}
	return detachedEnv
}

// RunID returns the identifier of the run ctx belongs to, or "" outside a run.
func RunID(ctx context.Context) string {
	return envFrom(ctx).id
}

// LoggerFrom returns the run logger carried by ctx.
func LoggerFrom(ctx context.Context) Logger {
	return envFrom(ctx).logger
}

// Verify verifies the tree rooted at root.
func Verify(ctx context.Context, root Task, opts ...RunOption) (*Report, error) {
	return run(ctx, root, []Phase{PhaseVerify}, opts)
}

// Execute executes the tree rooted at root without verifying it first.
func Execute(ctx context.Context, root Task, opts ...RunOption) (*Report, error) {
	return run(ctx, root, []Phase{PhaseExecute}, opts)
}

// VerifyAndExecute verifies the tree and executes it only if verification
// succeeded.
func VerifyAndExecute(ctx context.Context, root Task, opts ...RunOption) (*Report, error) {
	return run(ctx, root, []Phase{PhaseVerify, PhaseExecute}, opts)
}

func run(ctx context.Context, root Task, phases []Phase, opts []RunOption) (*Report, error) {
	env, err := prepare(root, phases, opts)
	if err != nil {
		return nil, err
	}
	return env.report, env.drive(ctx, root, phases)
}

func prepare(root Task, phases []Phase, opts []RunOption) (*runEnv, error) {
	if root == nil {
		return nil, fmt.Errorf("%w: nil root task", ErrInvalidArgument)
	}
	o := defaultRunOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.id == "" {
		o.id = uuid.NewString()
	}
	return &runEnv{
		id:     o.id,
		logger: o.logger.With(Field{Key: "run_id", Value: o.id}),
		hooks:  o.hooks,
		report: newReport(o.id, root, phases),
		gate:   newGate(o.maxConcurrency),
	}, nil
}

func (env *runEnv) drive(ctx context.Context, root Task, phases []Phase) error {
	ctx = context.WithValue(ctx, envKey{}, env)
	env.logger.Info(ctx, "run started",
		Field{Key: "root", Value: root.Name()},
		Field{Key: "tasks", Value: len(env.report.tasks)},
	)
	for _, phase := range phases {
		env.report.beginPhase(phase)
		var err error
		if phase == PhaseExecute {
			err = root.Execute(ctx)
		} else {
			err = root.Verify(ctx)
		}
		env.report.endPhase(phase)
		if err != nil {
			env.logger.Error(ctx, "run stopped", err, Field{Key: "phase", Value: phase})
			return err
		}
	}
	env.logger.Info(ctx, "run finished")
	return nil
}

// invoke drives one task through one phase: it records the task's state,
// fires hooks, logs, recovers panics and classifies the outcome. A task whose
// context is already cancelled fails as cancelled without running fn.
func invoke(ctx context.Context, task Task, phase Phase, fn TaskFunc) error {
	env := envFrom(ctx)
	path := Path(task)
	logger := env.logger.With(Field{Key: "phase", Value: phase}, Field{Key: "task", Value: path})

	metrics := TaskMetrics{StartedAt: now(), Status: StatusRunning}
	env.report.set(phase, task, metrics)
	env.fire(ctx, env.hooks.OnStart, phase, task, path, metrics)
	logger.Info(ctx, "task started")

	var err error
	if ctx.Err() != nil {
		err = &CancelledError{Task: path, Phase: phase, Cause: context.Cause(ctx)}
	} else {
		err = runHook(ctx, path, fn)
	}
	err = classify(path, phase, err)

	metrics.CompletedAt = now()
	metrics.Duration = metrics.CompletedAt.Sub(metrics.StartedAt)
	metrics.Status = statusOf(err)
	metrics.Error = err
	env.report.set(phase, task, metrics)

	env.fire(ctx, env.hooks.terminal(metrics.Status), phase, task, path, metrics)
	env.fire(ctx, env.hooks.OnFinish, phase, task, path, metrics)

	done := logger.With(Field{Key: "duration", Value: metrics.Duration})
	switch metrics.Status {
	case StatusSucceeded:
		done.Info(ctx, "task succeeded")
	case StatusCancelled:
		done.Info(ctx, "task cancelled")
	default:
		done.Error(ctx, "task failed", err)
	}
	return err
}

func runHook(ctx context.Context, path string, fn TaskFunc) (err error) {
	if fn == nil {
		return nil
	}
	defer func() {
		if recovered := recover(); recovered != nil {
			err = TaskPanicError{Task: path, Value: recovered}
		}
	}()
	return fn(ctx)
}

// leafHook wraps a leaf's hook so it holds a concurrency slot while running.
func leafHook(phase Phase, fn TaskFunc) TaskFunc {
	if fn == nil {
		return nil
	}
	return func(ctx context.Context) error {
		env := envFrom(ctx)
		active, err := env.gate.acquire(ctx)
		if err != nil {
			return err
		}
		defer env.gate.release()
		env.report.observeConcurrency(phase, active)
		return fn(ctx)
	}
}

func (env *runEnv) fire(ctx context.Context, hook HookFunc, phase Phase, task Task, path string, metrics TaskMetrics) {
	if hook == nil {
		return
	}
	hook(ctx, TaskEvent{
		RunID:   env.id,
		Phase:   phase,
		Task:    task,
		Path:    path,
		Metrics: metrics,
	})
}

// Execution encapsulates an in-flight or completed verify-and-execute run.
type Execution struct {
	report *Report
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

// Start verifies and executes root asynchronously.
func Start(ctx context.Context, root Task, opts ...RunOption) *Execution {
	exec := &Execution{done: make(chan struct{})}

	phases := []Phase{PhaseVerify, PhaseExecute}
	env, err := prepare(root, phases, opts)
	if err != nil {
		exec.setError(err)
		close(exec.done)
		return exec
	}

	runCtx, cancel := context.WithCancel(ctx)
	exec.report = env.report
	exec.cancel = cancel

	go func() {
		defer close(exec.done)
		defer cancel()
		exec.setError(env.drive(runCtx, root, phases))
	}()
	return exec
}

// Report returns the run report, which may be partially populated. It is nil
// when the run could not start.
func (e *Execution) Report() *Report {
	return e.report
}

// Done reports when execution has completed.
func (e *Execution) Done() <-chan struct{} {
	return e.done
}

// Await blocks until execution completes.
func (e *Execution) Await() (*Report, error) {
	<-e.done
	return e.report, e.Err()
}

// Err returns the error the run finished with.
func (e *Execution) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Cancel requests cancellation. Tasks already running are expected to observe
// it through their context; no new task is launched.
func (e *Execution) Cancel() {
	if e.cancel != nil {
		e.cancel()
	}
}

func (e *Execution) setError(err error) {
	if err == nil {
		return
	}
	e.mu.Lock()
	if e.err == nil {
		e.err = err
	}
	e.mu.Unlock()
}
