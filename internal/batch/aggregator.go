package batch

import (
	"context"
	"sync"
	"time"

	"video-compressor/internal/domain"
)

// SmoothingPolicy is the single configurable progress-smoothing behavior
// shared by every strategy variant.
type SmoothingPolicy struct {
	// MinInterval throttles per-task emissions for the whole batch.
	MinInterval time.Duration
	// MinDelta lets large jumps bypass the interval throttle.
	MinDelta float64
	// StallWindow is how long raw progress may sit at the ceiling before
	// the display value starts creeping.
	StallWindow time.Duration
	// Ceiling bounds the synthesized creep; the true 100% only comes from
	// a completion transition.
	Ceiling float64
	// CreepStep is added per recompute tick while stalled.
	CreepStep float64
	// RecomputeInterval drives batch snapshots and stall creep.
	RecomputeInterval time.Duration
	// TaskDuration is the coarse per-task estimate behind the batch ETA.
	TaskDuration time.Duration
}

// DefaultSmoothingPolicy returns the production smoothing configuration.
func DefaultSmoothingPolicy() SmoothingPolicy {
	return SmoothingPolicy{
		MinInterval:       500 * time.Millisecond,
		MinDelta:          1.0,
		StallWindow:       3 * time.Second,
		Ceiling:           99.5,
		CreepStep:         0.1,
		RecomputeInterval: time.Second,
		TaskDuration:      30 * time.Second,
	}
}

// Emitter receives the batch's externally visible events. The bootstrap
// layer implements it on top of the UI event bus. Each task ends with
// exactly one of EmitComplete, EmitError, or EmitCancelled.
type Emitter interface {
	EmitStarted(task domain.CompressionTask)
	EmitProgress(task domain.CompressionTask, timemark string)
	EmitComplete(task domain.CompressionTask)
	EmitError(task domain.CompressionTask, cerr *domain.CompressionError)
	EmitCancelled(task domain.CompressionTask)
	EmitBatchProgress(state domain.BatchState)
}

// taskState is the aggregator's per-task bookkeeping.
type taskState struct {
	task          domain.CompressionTask
	raw           float64
	lastRawChange time.Time
	display       float64
	lastEmitted   float64
}

// Aggregator exclusively owns one batch's task table and converts raw task
// percentages into smoothed display values and periodic batch snapshots.
// A fresh aggregator is constructed per batch.
type Aggregator struct {
	policy  SmoothingPolicy
	emitter Emitter
	now     func() time.Time

	mu       sync.Mutex
	tasks    map[domain.TaskKey]*taskState
	order    []domain.TaskKey
	running  map[domain.TaskKey]bool
	lastEmit time.Time
}

// NewAggregator constructs an empty aggregator for one batch.
func NewAggregator(policy SmoothingPolicy, emitter Emitter) *Aggregator {
	return &Aggregator{
		policy:  policy,
		emitter: emitter,
		now:     time.Now,
		tasks:   make(map[domain.TaskKey]*taskState),
		running: make(map[domain.TaskKey]bool),
	}
}

// Seed installs the full task universe and emits one started event per task
// so observers can render the complete list before any subprocess spawns.
func (a *Aggregator) Seed(tasks []Task) {
	seeded := make([]domain.CompressionTask, 0, len(tasks))

	a.mu.Lock()
	for _, t := range tasks {
		ct := domain.CompressionTask{
			Key:        t.Key,
			FileName:   t.InputPath,
			PresetID:   t.Key.PresetID,
			Status:     domain.TaskStatusPending,
			OutputPath: t.OutputPath,
			StartedAt:  a.now(),
		}
		a.tasks[t.Key] = &taskState{task: ct, lastRawChange: a.now()}
		a.order = append(a.order, t.Key)
		seeded = append(seeded, ct)
	}
	a.mu.Unlock()

	for _, ct := range seeded {
		a.emitter.EmitStarted(ct)
	}
}

// TaskRunning applies the pending → compressing transition.
func (a *Aggregator) TaskRunning(key domain.TaskKey) {
	a.mu.Lock()
	defer a.mu.Unlock()

	st, ok := a.tasks[key]
	if !ok || st.task.Status.IsTerminal() {
		return
	}
	st.task.Status = domain.TaskStatusCompressing
	st.task.StartedAt = a.now()
	a.running[key] = true
}

// TaskProgress records a raw percentage and emits a throttled display
// update. Percent -1 (indeterminate) refreshes the timemark only.
func (a *Aggregator) TaskProgress(key domain.TaskKey, percent float64, timemark string) {
	a.mu.Lock()
	st, ok := a.tasks[key]
	if !ok || st.task.Status.IsTerminal() {
		a.mu.Unlock()
		return
	}

	now := a.now()
	if percent >= 0 {
		if percent != st.raw {
			st.raw = percent
			st.lastRawChange = now
		}
		if percent > st.display {
			st.display = percent
		}
	}

	delta := st.display - st.lastEmitted
	if now.Sub(a.lastEmit) < a.policy.MinInterval && delta < a.policy.MinDelta {
		a.mu.Unlock()
		return
	}

	st.task.Progress = st.display
	st.lastEmitted = st.display
	a.lastEmit = now
	task := st.task
	a.mu.Unlock()

	a.emitter.EmitProgress(task, timemark)
}

// Complete marks a task successful at a true 100%, emitted immediately.
func (a *Aggregator) Complete(key domain.TaskKey, outputPath string) {
	a.mu.Lock()
	st, ok := a.tasks[key]
	if !ok || st.task.Status.IsTerminal() {
		a.mu.Unlock()
		return
	}
	st.task.Status = domain.TaskStatusCompleted
	st.task.Progress = 100
	st.display = 100
	st.task.OutputPath = outputPath
	delete(a.running, key)
	task := st.task
	a.mu.Unlock()

	a.emitter.EmitComplete(task)
}

// Fail marks a task failed with its classified error.
func (a *Aggregator) Fail(key domain.TaskKey, cerr *domain.CompressionError) {
	a.mu.Lock()
	st, ok := a.tasks[key]
	if !ok || st.task.Status.IsTerminal() {
		a.mu.Unlock()
		return
	}
	st.task.Status = domain.TaskStatusFailed
	st.task.Error = cerr.Error()
	delete(a.running, key)
	task := st.task
	a.mu.Unlock()

	a.emitter.EmitError(task, cerr)
}

// Cancel marks one task cancelled.
func (a *Aggregator) Cancel(key domain.TaskKey) {
	a.mu.Lock()
	st, ok := a.tasks[key]
	if !ok || st.task.Status.IsTerminal() {
		a.mu.Unlock()
		return
	}
	st.task.Status = domain.TaskStatusCancelled
	delete(a.running, key)
	task := st.task
	a.mu.Unlock()

	a.emitter.EmitCancelled(task)
}

// CancelRemaining cancels every non-terminal task, used when the batch is
// abandoned before the queue drains.
func (a *Aggregator) CancelRemaining() {
	a.mu.Lock()
	var cancelled []domain.CompressionTask
	for _, st := range a.tasks {
		if st.task.Status.IsTerminal() {
			continue
		}
		st.task.Status = domain.TaskStatusCancelled
		delete(a.running, st.task.Key)
		cancelled = append(cancelled, st.task)
	}
	a.mu.Unlock()

	for _, task := range cancelled {
		a.emitter.EmitCancelled(task)
	}
}

// Snapshot computes the current batch state: counts, mean completion, and
// the coarse ETA heuristic.
func (a *Aggregator) Snapshot() domain.BatchState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

func (a *Aggregator) snapshotLocked() domain.BatchState {
	state := domain.BatchState{TotalTasks: len(a.tasks)}

	var sum float64
	remaining := 0
	for _, st := range a.tasks {
		switch st.task.Status {
		case domain.TaskStatusCompleted:
			state.CompletedTasks++
			sum += 100
		case domain.TaskStatusFailed:
			state.FailedTasks++
			sum += 100
		case domain.TaskStatusCancelled:
			state.CancelledTasks++
			sum += 100
		default:
			// The batch mean reflects real transcoder progress; smoothing
			// and stall creep stay a per-task display concern.
			sum += st.raw
			remaining++
		}
	}
	if state.TotalTasks > 0 {
		state.OverallProgress = sum / float64(state.TotalTasks)
	}
	state.EstimatedTimeRemaining = time.Duration(remaining) * a.policy.TaskDuration
	return state
}

// Tasks returns a copy of the full task universe in seed order.
func (a *Aggregator) Tasks() []domain.CompressionTask {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]domain.CompressionTask, 0, len(a.order))
	for _, key := range a.order {
		out = append(out, a.tasks[key].task)
	}
	return out
}

// RunningKeys returns the keys of currently compressing tasks.
func (a *Aggregator) RunningKeys() []domain.TaskKey {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]domain.TaskKey, 0, len(a.running))
	for key := range a.running {
		out = append(out, key)
	}
	return out
}

// StartRecompute emits batch snapshots on a fixed interval, independent of
// task event timing, and advances stall creep. It returns when ctx ends.
func (a *Aggregator) StartRecompute(ctx context.Context) {
	ticker := time.NewTicker(a.policy.RecomputeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.creepStalled()
			a.emitter.EmitBatchProgress(a.Snapshot())
		}
	}
}

// creepStalled synthesizes slow forward motion for tasks whose raw progress
// is stuck at the ceiling, so the UI does not appear frozen during the
// transcoder's final flush.
func (a *Aggregator) creepStalled() {
	now := a.now()

	a.mu.Lock()
	var updates []domain.CompressionTask
	for key := range a.running {
		st := a.tasks[key]
		if st.raw < 99 || now.Sub(st.lastRawChange) <= a.policy.StallWindow {
			continue
		}
		next := st.display + a.policy.CreepStep
		if next > a.policy.Ceiling {
			next = a.policy.Ceiling
		}
		if next == st.display {
			continue
		}
		st.display = next
		st.task.Progress = next
		st.lastEmitted = next
		updates = append(updates, st.task)
	}
	a.mu.Unlock()

	for _, task := range updates {
		a.emitter.EmitProgress(task, "")
	}
}
