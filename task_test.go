package deeply

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checker is a custom task built on Base rather than Action.
type checker struct {
	Base
	checked bool
}

func (p *checker) Verify(ctx context.Context) error {
	return Invoke(ctx, p, PhaseVerify, func(ctx context.Context) error {
		p.checked = true
		return nil
	})
}

func (p *checker) Execute(ctx context.Context) error {
	return Invoke(ctx, p, PhaseExecute, nil)
}

func TestAction_ExplicitName(t *testing.T) {
	a := NewAction(WithName("build"))
	assert.Equal(t, "build", a.Name())
	assert.Nil(t, a.Parent())
}

func TestAction_GeneratedName(t *testing.T) {
	a := NewAction(WithNameGenerator(NameGeneratorFunc(func() string { return "fixed" })))
	assert.Equal(t, "fixed", a.Name())
}

func TestAction_NoHooksSucceed(t *testing.T) {
	a := NewAction()
	assert.NoError(t, a.Verify(context.Background()))
	assert.NoError(t, a.Execute(context.Background()))
}

func TestAction_VerifyFailureIsWrapped(t *testing.T) {
	boom := errors.New("boom")
	a := NewAction(WithName("db"), WithVerify(func(ctx context.Context) error { return boom }))

	err := a.Verify(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVerificationFailed)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrExecutionFailed)

	var taskErr *TaskError
	require.ErrorAs(t, err, &taskErr)
	assert.Equal(t, "db", taskErr.Task)
	assert.Equal(t, PhaseVerify, taskErr.Phase)
}

func TestAction_ExecuteFailureMatchesExecutionSentinel(t *testing.T) {
	a := NewAction(WithExecute(func(ctx context.Context) error { return errors.New("disk full") }))
	err := a.Execute(context.Background())
	assert.ErrorIs(t, err, ErrExecutionFailed)
	assert.NotErrorIs(t, err, ErrVerificationFailed)
}

func TestAction_CancelledContextSkipsHook(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	a := NewAction(WithVerify(func(ctx context.Context) error {
		called = true
		return nil
	}))

	err := a.Verify(ctx)
	assert.True(t, IsCancelled(err))
	assert.ErrorIs(t, err, ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called, "hook must not run once cancellation is requested")
}

func TestAction_HookReturningContextErrorIsCancellation(t *testing.T) {
	a := NewAction(WithVerify(func(ctx context.Context) error {
		return fmt.Errorf("checker: %w", context.DeadlineExceeded)
	}))
	err := a.Verify(context.Background())

	var cancelled *CancelledError
	require.ErrorAs(t, err, &cancelled)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAction_PanicBecomesFailure(t *testing.T) {
	a := NewAction(WithName("boom"), WithVerify(func(ctx context.Context) error {
		panic("kaboom")
	}))

	err := a.Verify(context.Background())
	assert.ErrorIs(t, err, ErrVerificationFailed)

	var panicErr TaskPanicError
	require.ErrorAs(t, err, &panicErr)
	assert.Equal(t, "kaboom", panicErr.Value)
}

func TestCustomTask_ComposesWithBase(t *testing.T) {
	p := &checker{Base: MakeBase("checker")}
	root, err := Sequence("root", p)
	require.NoError(t, err)

	require.NoError(t, root.Verify(context.Background()))
	assert.True(t, p.checked)
	assert.Same(t, root, p.Parent())
}

func TestMakeBase_UsesDefaultGenerator(t *testing.T) {
	restore := SetDefaultNameGenerator(NameGeneratorFunc(func() string { return "stub" }))
	defer restore()

	b := MakeBase("")
	assert.Equal(t, "stub", b.Name())
	assert.Equal(t, "stub", NewAction().Name())
}

func TestPathRootDepth(t *testing.T) {
	leaf := NewAction(WithName("leaf"))
	mid, err := Sequence("mid", leaf)
	require.NoError(t, err)
	root, err := Parallel("root", mid)
	require.NoError(t, err)

	assert.Equal(t, "root/mid/leaf", Path(leaf))
	assert.Equal(t, "root", Path(root))
	assert.Same(t, root, Root(leaf))
	assert.Equal(t, 2, Depth(leaf))
	assert.Equal(t, 0, Depth(root))
	assert.Nil(t, Root(nil))
	assert.Equal(t, "", Path(nil))
}

func TestWalk_PreOrder(t *testing.T) {
	a := NewAction(WithName("a"))
	b := NewAction(WithName("b"))
	c := NewAction(WithName("c"))
	inner, err := Sequence("inner", b, c)
	require.NoError(t, err)
	root, err := Sequence("root", a, inner)
	require.NoError(t, err)

	var visited []string
	err = Walk(root, func(task Task, depth int) error {
		visited = append(visited, fmt.Sprintf("%s@%d", task.Name(), depth))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"root@0", "a@1", "inner@1", "b@2", "c@2"}, visited)
	assert.Equal(t, 5, Count(root))
}

func TestWalk_SkipChildrenAndStop(t *testing.T) {
	inner, err := Sequence("inner", NewAction(WithName("hidden")))
	require.NoError(t, err)
	root, err := Sequence("root", inner, NewAction(WithName("after")))
	require.NoError(t, err)

	var visited []string
	err = Walk(root, func(task Task, depth int) error {
		visited = append(visited, task.Name())
		if task.Name() == "inner" {
			return SkipChildren
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"root", "inner", "after"}, visited)

	stop := errors.New("stop")
	err = Walk(root, func(task Task, depth int) error {
		if task.Name() == "inner" {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.ErrorIs(t, Walk(nil, nil), ErrInvalidArgument)
}

func TestNames_ConcurrentConstructionIsDistinct(t *testing.T) {
	const n = 200
	gen := NewSequentialNames("t")

	var (
		mu    sync.Mutex
		names = make(map[string]struct{}, n)
		wg    sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a := NewAction(WithNameGenerator(gen))
			mu.Lock()
			names[a.Name()] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, names, n)
}

func TestNames_DefaultGeneratorIsConcurrencySafe(t *testing.T) {
	const n = 200
	results := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = NewAction().Name()
		}()
	}
	wg.Wait()

	seen := make(map[string]struct{}, n)
	for _, name := range results {
		seen[name] = struct{}{}
	}
	assert.Len(t, seen, n)
}

func TestNames_UUIDGenerator(t *testing.T) {
	gen := NewUUIDNames()
	first := gen.NextTaskName()
	second := gen.NextTaskName()
	assert.NotEqual(t, first, second)
	assert.Regexp(t, `^task-[0-9a-f-]{36}$`, first)
}

func TestNames_SequentialFormat(t *testing.T) {
	gen := NewSequentialNames("")
	assert.Equal(t, "task-1", gen.NextTaskName())
	assert.Equal(t, "task-2", gen.NextTaskName())
}

func TestSetDefaultNameGenerator_NilIsIgnored(t *testing.T) {
	before := DefaultNameGenerator()
	restore := SetDefaultNameGenerator(nil)
	restore()
	assert.Same(t, before, DefaultNameGenerator())
}
