package simulation

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/events"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/types"
)

const eventSource = "analysis-simulation"

// Task is one in-flight or finished analysis run. Every task carries its own
// cancellation token so an abandoned run tears down cleanly instead of walking
// the remaining steps.
type Task struct {
	ID        types.ID
	PatientID types.ID

	mu          sync.Mutex
	status      TaskStatus
	currentStep int
	stepDetail  string
	startedAt   time.Time
	finishedAt  *time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// Snapshot returns a consistent copy of the task state.
func (t *Task) Snapshot() TaskView {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TaskView{
		ID:          t.ID,
		PatientID:   t.PatientID,
		Status:      t.status,
		CurrentStep: t.currentStep,
		TotalSteps:  len(AnalysisSteps),
		StepDetail:  t.stepDetail,
		StartedAt:   t.startedAt,
		FinishedAt:  t.finishedAt,
	}
}

// Cancel stops the run. Safe to call repeatedly and after completion.
func (t *Task) Cancel() {
	t.cancel()
}

// Done is closed once the task reaches a terminal status.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Runner launches simulated analysis runs and tracks them by id. Each run
// walks the fixed step pipeline on its own goroutine, publishing one bus event
// per transition.
type Runner struct {
	bus       events.EventBus
	log       *zap.Logger
	stepDelay time.Duration
	now       func() time.Time

	mu    sync.Mutex
	tasks map[types.ID]*Task
}

// NewRunner creates a runner with the given delay between steps.
func NewRunner(bus events.EventBus, stepDelay time.Duration, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	if stepDelay <= 0 {
		stepDelay = 600 * time.Millisecond
	}
	return &Runner{
		bus:       bus,
		log:       log,
		stepDelay: stepDelay,
		now:       func() time.Time { return time.Now().UTC() },
		tasks:     map[types.ID]*Task{},
	}
}

// Start begins a new analysis run for the patient and returns immediately.
// The run is detached from the caller's context; use Task.Cancel (or the
// runner's Cancel) to stop it.
func (r *Runner) Start(patientID types.ID) *Task {
	ctx, cancel := context.WithCancel(context.Background())
	task := &Task{
		ID:        types.NewEntityID("an"),
		PatientID: patientID,
		status:    TaskRunning,
		startedAt: r.now(),
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	r.mu.Lock()
	r.tasks[task.ID] = task
	r.mu.Unlock()

	r.publish(ctx, EventAnalysisStarted, task, map[string]any{
		"taskId":     task.ID,
		"patientId":  task.PatientID,
		"totalSteps": len(AnalysisSteps),
	})

	go r.run(ctx, task)
	return task
}

// Get returns a tracked task by id.
func (r *Runner) Get(id types.ID) (*Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	return task, ok
}

// Cancel stops a tracked task. Returns whether the id was known.
func (r *Runner) Cancel(id types.ID) bool {
	task, ok := r.Get(id)
	if !ok {
		return false
	}
	task.Cancel()
	return true
}

// Shutdown cancels every running task and waits for them to finish.
func (r *Runner) Shutdown() {
	r.mu.Lock()
	tasks := make([]*Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		tasks = append(tasks, t)
	}
	r.mu.Unlock()

	for _, t := range tasks {
		t.Cancel()
	}
	for _, t := range tasks {
		<-t.Done()
	}
}

func (r *Runner) run(ctx context.Context, task *Task) {
	defer close(task.done)

	timer := time.NewTimer(r.stepDelay)
	defer timer.Stop()

	for i, step := range AnalysisSteps {
		select {
		case <-ctx.Done():
			r.finish(task, TaskCancelled)
			r.publish(context.Background(), EventAnalysisCancelled, task, map[string]any{
				"taskId":        task.ID,
				"patientId":     task.PatientID,
				"cancelledStep": i,
			})
			return
		case <-timer.C:
		}

		task.mu.Lock()
		task.currentStep = i + 1
		task.stepDetail = step.Detail
		task.mu.Unlock()

		r.publish(ctx, EventAnalysisStep, task, map[string]any{
			"taskId":     task.ID,
			"patientId":  task.PatientID,
			"step":       i + 1,
			"totalSteps": len(AnalysisSteps),
			"name":       step.Name,
			"detail":     step.Detail,
		})
		timer.Reset(r.stepDelay)
	}

	r.finish(task, TaskCompleted)
	r.publish(ctx, EventAnalysisCompleted, task, map[string]any{
		"taskId":    task.ID,
		"patientId": task.PatientID,
	})
}

func (r *Runner) finish(task *Task, status TaskStatus) {
	now := r.now()
	task.mu.Lock()
	task.status = status
	task.finishedAt = &now
	task.mu.Unlock()
}

func (r *Runner) publish(ctx context.Context, eventType string, task *Task, data map[string]any) {
	if r.bus == nil {
		return
	}
	event := events.NewEvent(eventType, eventSource, data).
		WithCorrelation(task.ID.String())
	if err := r.bus.Publish(ctx, event); err != nil {
		r.log.Warn("failed to publish analysis event",
			zap.String("event_type", eventType),
			zap.Error(err))
	}
}
