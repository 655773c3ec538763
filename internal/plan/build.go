package plan

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"slices"
	"time"

	"github.com/bpradana/deeply"
)

// Builder turns plan nodes into deeply task trees.
type Builder struct {
	// Stdout and Stderr receive the output of command tasks. Nil discards it.
	Stdout io.Writer
	Stderr io.Writer
	// LookPath resolves command binaries during verification. Defaults to exec.LookPath.
	LookPath func(file string) (string, error)
	// Names names nodes without a name. Defaults to the process-wide generator.
	Names deeply.NameGenerator
}

// Build validates n and builds its task tree.
func (b *Builder) Build(n *Node) (deeply.Task, error) {
	if n == nil {
		return nil, fmt.Errorf("%w: nil plan", deeply.ErrInvalidArgument)
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return b.build(n)
}

func (b *Builder) build(n *Node) (deeply.Task, error) {
	opts := []deeply.TaskOption{deeply.WithName(n.Name)}
	if b.Names != nil {
		opts = append(opts, deeply.WithNameGenerator(b.Names))
	}

	if n.Kind.Composite() {
		children := make([]deeply.Task, 0, len(n.Tasks))
		for i := range n.Tasks {
			child, err := b.build(&n.Tasks[i])
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		if n.Kind == KindParallel {
			opts = append(opts, deeply.WithConcurrentExecute())
		}
		c, err := deeply.NewComposite(slices.Values(children), opts...)
		if err != nil {
			return nil, err
		}
		return c, nil
	}

	switch n.Kind {
	case KindCommand:
		opts = append(opts, deeply.WithVerify(b.verifyCommand(n)), deeply.WithExecute(b.runCommand(n)))
	case KindFile:
		opts = append(opts, deeply.WithVerify(verifyFile(n.Path)))
	case KindEnv:
		opts = append(opts, deeply.WithVerify(verifyEnv(n.Env)))
	case KindSleep:
		d, err := time.ParseDuration(n.Duration)
		if err != nil {
			return nil, fmt.Errorf("plan: %s has invalid duration: %w", n.Name, err)
		}
		opts = append(opts, deeply.WithExecute(sleep(d)))
	}
	return deeply.NewAction(opts...), nil
}

func (b *Builder) verifyCommand(n *Node) deeply.TaskFunc {
	lookPath := b.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	name, dir := n.Command[0], n.Dir
	return func(ctx context.Context) error {
		if _, err := lookPath(name); err != nil {
			return fmt.Errorf("command %q not found: %w", name, err)
		}
		if dir == "" {
			return nil
		}
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("working directory: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("working directory %s is not a directory", dir)
		}
		return nil
	}
}

func (b *Builder) runCommand(n *Node) deeply.TaskFunc {
	args := slices.Clone(n.Command)
	dir := n.Dir
	return func(ctx context.Context) error {
		cmd := exec.CommandContext(ctx, args[0], args[1:]...)
		cmd.Dir = dir
		cmd.Stdout = b.Stdout
		cmd.Stderr = b.Stderr
		if err := cmd.Run(); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%s: %w", args[0], err)
		}
		return nil
	}
}

func verifyFile(path string) deeply.TaskFunc {
	return func(ctx context.Context) error {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("required file: %w", err)
		}
		return nil
	}
}

func verifyEnv(name string) deeply.TaskFunc {
	return func(ctx context.Context) error {
		if _, ok := os.LookupEnv(name); !ok {
			return fmt.Errorf("environment variable %s is not set", name)
		}
		return nil
	}
}

func sleep(d time.Duration) deeply.TaskFunc {
	return func(ctx context.Context) error {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}
}
