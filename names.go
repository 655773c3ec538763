package deeply

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// NameGenerator supplies names for tasks constructed without one.
// Implementations must return distinct names under concurrent calls.
type NameGenerator interface {
	NextTaskName() string
}

// NameGeneratorFunc adapts a function to NameGenerator.
type NameGeneratorFunc func() string

func (f NameGeneratorFunc) NextTaskName() string {
	return f()
}

type sequentialNames struct {
	prefix  string
	counter atomic.Uint64
}

// NewSequentialNames returns a generator producing prefix-1, prefix-2, ...
func NewSequentialNames(prefix string) NameGenerator {
	if prefix == "" {
		prefix = "task"
	}
	return &sequentialNames{prefix: prefix}
}

func (g *sequentialNames) NextTaskName() string {
	return fmt.Sprintf("%s-%d", g.prefix, g.counter.Add(1))
}

type uuidNames struct{}

// NewUUIDNames returns a generator producing task-<uuid> names, distinct
// across processes as well.
func NewUUIDNames() NameGenerator {
	return uuidNames{}
}

func (uuidNames) NextTaskName() string {
	return "task-" + uuid.NewString()
}

type nameGeneratorHolder struct {
	gen NameGenerator
}

var defaultNames atomic.Pointer[nameGeneratorHolder]

func init() {
	defaultNames.Store(&nameGeneratorHolder{gen: NewSequentialNames("task")})
}

// DefaultNameGenerator returns the process-wide generator.
func DefaultNameGenerator() NameGenerator {
	return defaultNames.Load().gen
}

// SetDefaultNameGenerator replaces the process-wide generator and returns a
// function restoring the previous one. A nil gen is ignored.
func SetDefaultNameGenerator(gen NameGenerator) (restore func()) {
	if gen == nil {
		return func() {}
	}
	prev := defaultNames.Swap(&nameGeneratorHolder{gen: gen})
	return func() {
		defaultNames.Store(prev)
	}
}

// NextTaskName returns the next name from the process-wide generator.
func NextTaskName() string {
	return DefaultNameGenerator().NextTaskName()
}
