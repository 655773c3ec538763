package deeply

import (
	"errors"
	"slices"
	"strings"
)

// SkipChildren may be returned from a WalkFunc to skip the current task's
// descendants without stopping the walk.
var SkipChildren = errors.New("deeply: skip children")

// WalkFunc is called for every task visited by Walk. depth is 0 for the root.
type WalkFunc func(task Task, depth int) error

// Walk visits root and its descendants depth-first, parents before children
// and children in captured order. Any task implementing Container is
// descended into.
func Walk(root Task, fn WalkFunc) error {
	if root == nil {
		return ErrInvalidArgument
	}
	return walk(root, 0, fn)
}

func walk(task Task, depth int, fn WalkFunc) error {
	if err := fn(task, depth); err != nil {
		if errors.Is(err, SkipChildren) {
			return nil
		}
		return err
	}
	container, ok := task.(Container)
	if !ok {
		return nil
	}
	for _, child := range container.Children() {
		if err := walk(child, depth+1, fn); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of tasks in the tree rooted at root.
func Count(root Task) int {
	n := 0
	_ = Walk(root, func(Task, int) error {
		n++
		return nil
	})
	return n
}

// Root follows parent links up to the task that has no parent.
func Root(task Task) Task {
	if task == nil {
		return nil
	}
	for task.Parent() != nil {
		task = task.Parent()
	}
	return task
}

// Depth returns the number of ancestors of task.
func Depth(task Task) int {
	depth := 0
	for task != nil && task.Parent() != nil {
		depth++
		task = task.Parent()
	}
	return depth
}

// Path returns the names from the root down to task joined by "/".
func Path(task Task) string {
	if task == nil {
		return ""
	}
	var names []string
	for t := task; t != nil; t = t.Parent() {
		names = append(names, t.Name())
	}
	slices.Reverse(names)
	return strings.Join(names, "/")
}
