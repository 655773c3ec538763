package deeply

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"sync"
)

// Composite is a task that owns an ordered set of child tasks. Verification
// fans out to every child concurrently. Execution runs the children in order,
// or concurrently when built with WithConcurrentExecute.
type Composite struct {
	Base
	children   []Task
	verify     TaskFunc
	execute    TaskFunc
	concurrent bool
}

// NewComposite captures tasks once, in order, and becomes the parent of each
// of them. A nil sequence, a nil child or a child that already has a parent
// is rejected before any parent link is written.
func NewComposite(tasks iter.Seq[Task], opts ...TaskOption) (*Composite, error) {
	if tasks == nil {
		return nil, fmt.Errorf("%w: nil task sequence", ErrInvalidArgument)
	}

	children := slices.Collect(tasks)
	if err := checkOrphans(nil, children); err != nil {
		return nil, err
	}

	cfg := newTaskConfig(opts)
	c := &Composite{
		Base:       Base{name: cfg.name},
		children:   children,
		verify:     cfg.verify,
		execute:    cfg.execute,
		concurrent: cfg.concurrent,
	}
	for _, child := range children {
		child.base().attach(c)
	}
	return c, nil
}

// Adopt makes parent the parent of every child, for custom Container
// implementations that do not embed a Composite. It applies the same checks
// as NewComposite: a nil child, a duplicate or a child that already has a
// parent is rejected before any parent link is written.
func Adopt(parent Task, children ...Task) error {
	if parent == nil {
		return fmt.Errorf("%w: nil parent", ErrInvalidArgument)
	}
	if err := checkOrphans(parent, children); err != nil {
		return err
	}
	for _, child := range children {
		child.base().attach(parent)
	}
	return nil
}

// checkOrphans validates that children can be parented, without touching them.
func checkOrphans(parent Task, children []Task) error {
	seen := make(map[*Base]struct{}, len(children))
	for i, child := range children {
		if child == nil {
			return fmt.Errorf("%w: nil task at position %d", ErrInvalidArgument, i)
		}
		b := child.base()
		if parent != nil && b == parent.base() {
			return fmt.Errorf("%w: %s cannot be its own child", ErrInvalidArgument, child.Name())
		}
		if _, dup := seen[b]; dup {
			return fmt.Errorf("%w: %s appears more than once", ErrAlreadyParented, child.Name())
		}
		if b.parent != nil {
			return fmt.Errorf("%w: %s belongs to %s", ErrAlreadyParented, child.Name(), b.parent.Name())
		}
		seen[b] = struct{}{}
	}
	return nil
}

// Sequence builds a composite that executes tasks in order.
func Sequence(name string, tasks ...Task) (*Composite, error) {
	return NewComposite(slices.Values(tasks), WithName(name))
}

// Parallel builds a composite that executes tasks concurrently.
func Parallel(name string, tasks ...Task) (*Composite, error) {
	return NewComposite(slices.Values(tasks), WithName(name), WithConcurrentExecute())
}

// Children returns a copy of the captured child tasks.
func (c *Composite) Children() []Task {
	return slices.Clone(c.children)
}

// Concurrent reports whether the composite executes its children concurrently.
func (c *Composite) Concurrent() bool {
	return c.concurrent
}

// Verify runs the composite's own hook, then verifies every child
// concurrently. Cancellation is checked before each child is launched;
// children already launched are waited for but never interrupted.
func (c *Composite) Verify(ctx context.Context) error {
	return invoke(ctx, c, PhaseVerify, func(ctx context.Context) error {
		if c.verify != nil {
			if err := c.verify(ctx); err != nil {
				return err
			}
		}
		errs, aborted := fanOut(ctx, c.children, Task.Verify)
		return aggregate(Path(c), PhaseVerify, errs, aborted)
	})
}

// Execute runs the composite's own hook, then executes the children.
func (c *Composite) Execute(ctx context.Context) error {
	return invoke(ctx, c, PhaseExecute, func(ctx context.Context) error {
		if c.execute != nil {
			if err := c.execute(ctx); err != nil {
				return err
			}
		}
		if c.concurrent {
			errs, aborted := fanOut(ctx, c.children, Task.Execute)
			return aggregate(Path(c), PhaseExecute, errs, aborted)
		}
		return c.executeInOrder(ctx)
	})
}

func (c *Composite) executeInOrder(ctx context.Context) error {
	path := Path(c)
	for _, child := range c.children {
		if err := ctx.Err(); err != nil {
			return &CancelledError{Task: path, Phase: PhaseExecute, Cause: context.Cause(ctx)}
		}
		if err := child.Execute(ctx); err != nil {
			if IsCancelled(err) {
				return &CancelledError{Task: path, Phase: PhaseExecute, Cause: err}
			}
			return &CompositeError{Task: path, Phase: PhaseExecute, Errs: []error{err}}
		}
	}
	return nil
}

func (c *Composite) String() string {
	return fmt.Sprintf("composite(%s, %d children)", c.name, len(c.children))
}

// fanOut starts call for each task in order on its own goroutine, checking
// ctx before every launch, and waits for all launched calls. errs is indexed
// by launch position; aborted is the cancellation cause when the loop stopped
// early.
func fanOut(ctx context.Context, tasks []Task, call func(Task, context.Context) error) (errs []error, aborted error) {
	errs = make([]error, len(tasks))
	var wg sync.WaitGroup
	for i, task := range tasks {
		if ctx.Err() != nil {
			aborted = context.Cause(ctx)
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if recovered := recover(); recovered != nil {
					errs[i] = TaskPanicError{Task: Path(task), Value: recovered}
				}
			}()
			errs[i] = call(task, ctx)
		}()
	}
	wg.Wait()
	return errs, aborted
}

// aggregate folds child outcomes into the composite's outcome. An aborted
// launch loop wins over everything, then any cancelled child, then failures.
func aggregate(path string, phase Phase, errs []error, aborted error) error {
	var (
		failures  []error
		cancelled error
	)
	for _, err := range errs {
		if err == nil {
			continue
		}
		failures = append(failures, err)
		if cancelled == nil && IsCancelled(err) {
			cancelled = err
		}
	}

	switch {
	case aborted != nil:
		return &CancelledError{Task: path, Phase: phase, Cause: aborted, Errs: failures}
	case cancelled != nil:
		return &CancelledError{Task: path, Phase: phase, Cause: cancelled, Errs: failures}
	case len(failures) > 0:
		return &CompositeError{Task: path, Phase: phase, Errs: failures}
	default:
		return nil
	}
}
