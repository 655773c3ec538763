package deeply

import (
	"sync"
	"time"
)

// Status captures the lifecycle status of a task within one phase.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusRunning    Status = "running"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether s is a final status.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCancelled
}

func statusOf(err error) Status {
	switch {
	case err == nil:
		return StatusSucceeded
	case IsCancelled(err):
		return StatusCancelled
	default:
		return StatusFailed
	}
}

// TaskMetrics captures the outcome of one task in one phase.
type TaskMetrics struct {
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	Status      Status
	Error       error
}

// Summary aggregates phase-level measurements.
type Summary struct {
	Phase           Phase
	StartedAt       time.Time
	CompletedAt     time.Time
	Duration        time.Duration
	MaxConcurrency  int
	TasksTotal      int
	TasksSucceeded  int
	TasksFailed     int
	TasksCancelled  int
	TasksNotStarted int
}

type phaseKey struct {
	phase Phase
	task  *Base
}

type phaseTiming struct {
	startedAt      time.Time
	completedAt    time.Time
	maxConcurrency int
}

// Report tracks the per-task state of a run. Every task in the tree starts
// out as StatusNotStarted for each phase the run drives; tasks never launched
// because of cancellation keep that status.
type Report struct {
	runID string

	mu      sync.RWMutex
	tasks   []Task
	phases  []Phase
	metrics map[phaseKey]TaskMetrics
	timings map[Phase]*phaseTiming
}

func newReport(runID string, root Task, phases []Phase) *Report {
	r := &Report{
		runID:   runID,
		phases:  phases,
		metrics: make(map[phaseKey]TaskMetrics),
		timings: make(map[Phase]*phaseTiming, len(phases)),
	}
	_ = Walk(root, func(task Task, _ int) error {
		r.tasks = append(r.tasks, task)
		for _, phase := range phases {
			r.metrics[phaseKey{phase, task.base()}] = TaskMetrics{Status: StatusNotStarted}
		}
		return nil
	})
	for _, phase := range phases {
		r.timings[phase] = &phaseTiming{}
	}
	return r
}

// RunID returns the identifier of the run that produced the report.
func (r *Report) RunID() string {
	return r.runID
}

// Tasks returns every task of the tree in walk order.
func (r *Report) Tasks() []Task {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Task(nil), r.tasks...)
}

// Status returns the observed status of task in phase, or "" when the task is
// unknown to the report.
func (r *Report) Status(phase Phase, task Task) Status {
	m, _ := r.Metrics(phase, task)
	return m.Status
}

// Metrics returns the metrics recorded for task in phase.
func (r *Report) Metrics(phase Phase, task Task) (TaskMetrics, bool) {
	if task == nil {
		return TaskMetrics{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.metrics[phaseKey{phase, task.base()}]
	return m, ok
}

// Summary aggregates the task metrics of phase.
func (r *Report) Summary(phase Phase) Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Summary{Phase: phase}
	if t, ok := r.timings[phase]; ok {
		s.StartedAt = t.startedAt
		s.CompletedAt = t.completedAt
		if !t.startedAt.IsZero() && !t.completedAt.IsZero() {
			s.Duration = t.completedAt.Sub(t.startedAt)
		}
		s.MaxConcurrency = t.maxConcurrency
	}
	for key, m := range r.metrics {
		if key.phase != phase {
			continue
		}
		s.TasksTotal++
		switch m.Status {
		case StatusSucceeded:
			s.TasksSucceeded++
		case StatusFailed:
			s.TasksFailed++
		case StatusCancelled:
			s.TasksCancelled++
		case StatusNotStarted:
			s.TasksNotStarted++
		}
	}
	return s
}

func (r *Report) set(phase Phase, task Task, m TaskMetrics) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.metrics[phaseKey{phase, task.base()}] = m
	r.mu.Unlock()
}

func (r *Report) beginPhase(phase Phase) {
	r.mu.Lock()
	if t, ok := r.timings[phase]; ok {
		t.startedAt = now()
	}
	r.mu.Unlock()
}

func (r *Report) endPhase(phase Phase) {
	r.mu.Lock()
	if t, ok := r.timings[phase]; ok {
		t.completedAt = now()
	}
	r.mu.Unlock()
}

func (r *Report) observeConcurrency(phase Phase, current int) {
	if r == nil {
		return
	}
	r.mu.Lock()
	if t, ok := r.timings[phase]; ok && current > t.maxConcurrency {
		t.maxConcurrency = current
	}
	r.mu.Unlock()
}
