// Package plan loads task trees from YAML plan files.
package plan

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Kind selects what a plan node turns into.
type Kind string

const (
	KindSequential Kind = "sequential"
	KindParallel   Kind = "parallel"
	KindCommand    Kind = "command"
	KindFile       Kind = "file"
	KindEnv        Kind = "env"
	KindSleep      Kind = "sleep"
)

// Composite reports whether nodes of kind k hold child tasks.
func (k Kind) Composite() bool {
	return k == KindSequential || k == KindParallel
}

var (
	// ErrEmptyPlan indicates the plan document has no content.
	ErrEmptyPlan = errors.New("plan: empty plan")
	// ErrUnknownKind indicates a node with an unsupported kind.
	ErrUnknownKind = errors.New("plan: unknown kind")
	// ErrMissingField indicates a node lacks a field its kind requires.
	ErrMissingField = errors.New("plan: missing field")
	// ErrUnexpectedTasks indicates a leaf node declared child tasks.
	ErrUnexpectedTasks = errors.New("plan: leaf node declares tasks")
)

// Node is one entry of a plan file. Composite kinds use Tasks; leaf kinds use
// the field matching their kind.
type Node struct {
	Name     string   `yaml:"name,omitempty"`
	Kind     Kind     `yaml:"kind"`
	Tasks    []Node   `yaml:"tasks,omitempty"`
	Command  []string `yaml:"command,omitempty"`
	Dir      string   `yaml:"dir,omitempty"`
	Path     string   `yaml:"path,omitempty"`
	Env      string   `yaml:"env,omitempty"`
	Duration string   `yaml:"duration,omitempty"`
}

// Load reads and validates the plan at path.
func Load(path string) (*Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a plan document. Unknown fields are rejected.
func Parse(data []byte) (*Node, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var root Node
	if err := dec.Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyPlan
		}
		return nil, fmt.Errorf("failed to parse plan: %w", err)
	}
	if err := root.Validate(); err != nil {
		return nil, err
	}
	return &root, nil
}

// Validate checks n and its descendants.
func (n *Node) Validate() error {
	where := n.Name
	if where == "" {
		where = "root"
	}
	return n.validate(where)
}

func (n *Node) validate(where string) error {
	if n.Kind.Composite() {
		for i := range n.Tasks {
			child := &n.Tasks[i]
			if err := child.validate(where + "/" + child.label(i)); err != nil {
				return err
			}
		}
		return nil
	}

	if len(n.Tasks) > 0 {
		return fmt.Errorf("%w: %s", ErrUnexpectedTasks, where)
	}
	switch n.Kind {
	case KindCommand:
		if len(n.Command) == 0 || n.Command[0] == "" {
			return fmt.Errorf("%w: %s needs command", ErrMissingField, where)
		}
	case KindFile:
		if n.Path == "" {
			return fmt.Errorf("%w: %s needs path", ErrMissingField, where)
		}
	case KindEnv:
		if n.Env == "" {
			return fmt.Errorf("%w: %s needs env", ErrMissingField, where)
		}
	case KindSleep:
		if n.Duration == "" {
			return fmt.Errorf("%w: %s needs duration", ErrMissingField, where)
		}
		if _, err := time.ParseDuration(n.Duration); err != nil {
			return fmt.Errorf("plan: %s has invalid duration: %w", where, err)
		}
	case "":
		return fmt.Errorf("%w: %s needs kind", ErrMissingField, where)
	default:
		return fmt.Errorf("%w %q at %s", ErrUnknownKind, n.Kind, where)
	}
	return nil
}

func (n *Node) label(index int) string {
	if n.Name != "" {
		return n.Name
	}
	return fmt.Sprintf("[%d]", index)
}
