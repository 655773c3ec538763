package deeply

import (
	"context"
	"fmt"
)

// Phase names the pass a task is being driven through.
type Phase string

const (
	PhaseVerify  Phase = "verify"
	PhaseExecute Phase = "execute"
)

func (p Phase) failure() error {
	if p == PhaseExecute {
		return ErrExecutionFailed
	}
	return ErrVerificationFailed
}

// Task is a unit of composable, verifiable work. Implementations embed Base,
// which carries the task's name and the parent link written by the owning
// composite.
//
// Verify must not have side effects beyond inspecting the outside world.
// Both Verify and Execute should return promptly with ctx.Err() once ctx is
// cancelled.
type Task interface {
	Name() string
	Parent() Task
	Verify(ctx context.Context) error
	Execute(ctx context.Context) error

	base() *Base
}

// Container is implemented by tasks that own child tasks. Implementations
// other than Composite link their children with Adopt and drive them with
// InvokeContainer.
type Container interface {
	Task
	Children() []Task
}

// Base holds the identity shared by every task. Embed it by value and
// initialise it with MakeBase.
type Base struct {
	name   string
	parent Task
}

// MakeBase returns a Base named name, or named by the default name generator
// when name is empty.
func MakeBase(name string) Base {
	if name == "" {
		name = NextTaskName()
	}
	return Base{name: name}
}

// Name returns the task name.
func (b *Base) Name() string {
	return b.name
}

// Parent returns the composite that owns the task, or nil for a root.
func (b *Base) Parent() Task {
	return b.parent
}

func (b *Base) base() *Base {
	return b
}

func (b *Base) attach(parent Task) {
	b.parent = parent
}

// TaskFunc is the signature of a task's verification or execution hook.
type TaskFunc func(ctx context.Context) error

type taskConfig struct {
	name       string
	names      NameGenerator
	verify     TaskFunc
	execute    TaskFunc
	concurrent bool
}

// TaskOption configures task construction.
type TaskOption func(*taskConfig)

// WithName sets an explicit task name.
func WithName(name string) TaskOption {
	return func(cfg *taskConfig) {
		cfg.name = name
	}
}

// WithNameGenerator supplies the generator used when no name is given.
func WithNameGenerator(gen NameGenerator) TaskOption {
	return func(cfg *taskConfig) {
		cfg.names = gen
	}
}

// WithVerify sets the task's own verification hook. On a composite it runs
// before any child is verified.
func WithVerify(fn TaskFunc) TaskOption {
	return func(cfg *taskConfig) {
		cfg.verify = fn
	}
}

// WithExecute sets the task's own execution hook. On a composite it runs
// before any child is executed.
func WithExecute(fn TaskFunc) TaskOption {
	return func(cfg *taskConfig) {
		cfg.execute = fn
	}
}

// WithConcurrentExecute makes a composite execute its children concurrently
// instead of in order.
func WithConcurrentExecute() TaskOption {
	return func(cfg *taskConfig) {
		cfg.concurrent = true
	}
}

func newTaskConfig(opts []TaskOption) taskConfig {
	cfg := taskConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.name == "" {
		gen := cfg.names
		if gen == nil {
			gen = DefaultNameGenerator()
		}
		cfg.name = gen.NextTaskName()
	}
	return cfg
}

// Action is a leaf task driven by optional verify and execute hooks. A
// missing hook is a no-op.
type Action struct {
	Base
	verify  TaskFunc
	execute TaskFunc
}

// NewAction constructs a leaf task.
func NewAction(opts ...TaskOption) *Action {
	cfg := newTaskConfig(opts)
	return &Action{
		Base:    Base{name: cfg.name},
		verify:  cfg.verify,
		execute: cfg.execute,
	}
}

// Verify runs the action's verification hook.
func (a *Action) Verify(ctx context.Context) error {
	return invoke(ctx, a, PhaseVerify, leafHook(PhaseVerify, a.verify))
}

// Execute runs the action's execution hook.
func (a *Action) Execute(ctx context.Context) error {
	return invoke(ctx, a, PhaseExecute, leafHook(PhaseExecute, a.execute))
}

func (a *Action) String() string {
	return fmt.Sprintf("action(%s)", a.name)
}

// Invoke drives a leaf task through phase with fn as its own hook, the way
// Action does. Custom leaf tasks call it from Verify and Execute so they take
// part in run reports, hooks, logging and the concurrency limit. fn holds a
// concurrency slot while it runs, so it must not wait on other tasks; custom
// containers use InvokeContainer instead.
func Invoke(ctx context.Context, task Task, phase Phase, fn TaskFunc) error {
	return invoke(ctx, task, phase, leafHook(phase, fn))
}

// InvokeContainer is Invoke for tasks that drive their own children from fn.
// fn does not take a concurrency slot, so children can acquire one under
// WithMaxConcurrency.
func InvokeContainer(ctx context.Context, task Task, phase Phase, fn TaskFunc) error {
	return invoke(ctx, task, phase, fn)
}
