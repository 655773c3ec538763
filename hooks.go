package deeply

import (
	"context"
)

// TaskEvent is passed to hook callbacks to describe task progress.
type TaskEvent struct {
	RunID   string
	Phase   Phase
	Task    Task
	Path    string
	Metrics TaskMetrics
}

// HookFunc is invoked for lifecycle notifications.
type HookFunc func(context.Context, TaskEvent)

// Hooks aggregates optional lifecycle callbacks. OnFinish fires after every
// terminal outcome; exactly one of OnSuccess, OnFailure and OnCancel fires
// before it.
type Hooks struct {
	OnStart   HookFunc
	OnSuccess HookFunc
	OnFailure HookFunc
	OnCancel  HookFunc
	OnFinish  HookFunc
}

// Merge combines two hook sets, running the receiver first.
func (h Hooks) Merge(other Hooks) Hooks {
	return Hooks{
		OnStart:   chainHooks(h.OnStart, other.OnStart),
		OnSuccess: chainHooks(h.OnSuccess, other.OnSuccess),
		OnFailure: chainHooks(h.OnFailure, other.OnFailure),
		OnCancel:  chainHooks(h.OnCancel, other.OnCancel),
		OnFinish:  chainHooks(h.OnFinish, other.OnFinish),
	}
}

func (h Hooks) terminal(status Status) HookFunc {
	switch status {
	case StatusSucceeded:
		return h.OnSuccess
	case StatusCancelled:
		return h.OnCancel
	default:
		return h.OnFailure
	}
}

func chainHooks(first, second HookFunc) HookFunc {
	switch {
	case first == nil:
		return second
	case second == nil:
		return first
	default:
		return func(ctx context.Context, event TaskEvent) {
			first(ctx, event)
			second(ctx, event)
		}
	}
}
