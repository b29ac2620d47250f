package batch

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"video-compressor/internal/domain"
)

// ThermalSource is the scheduler's read-only view of the thermal monitor.
// A nil source disables thermal admission control.
type ThermalSource interface {
	Current() domain.ThermalStatus
}

// DefaultConcurrency derives the scheduling bound from the core count.
func DefaultConcurrency() int {
	return clampInt(runtime.NumCPU()-1, 1, 4)
}

// Scheduler drains the task list in bounded chunks: tasks within a chunk
// run concurrently and the whole chunk is awaited before the next starts.
// Thermal feedback is advisory; the scheduler decides between chunks
// whether to lower the bound or hold.
type Scheduler struct {
	bound     int
	thermal   ThermalSource
	logger    hclog.Logger
	pausePoll time.Duration
}

// NewScheduler constructs a scheduler with the given concurrency bound.
func NewScheduler(bound int, thermal ThermalSource, logger hclog.Logger) *Scheduler {
	if bound < 1 {
		bound = DefaultConcurrency()
	}
	return &Scheduler{
		bound:     bound,
		thermal:   thermal,
		logger:    logger.Named("scheduler"),
		pausePoll: time.Second,
	}
}

// Run executes fn for every task, bounded chunk by chunk. It stops
// launching new chunks once ctx is cancelled and returns ctx.Err(); tasks
// already launched are awaited either way.
func (s *Scheduler) Run(ctx context.Context, tasks []Task, fn func(ctx context.Context, task Task)) error {
	bound := s.bound

	for start := 0; start < len(tasks); start += bound {
		if err := ctx.Err(); err != nil {
			return err
		}

		bound = s.admit(ctx, bound)
		if err := ctx.Err(); err != nil {
			return err
		}

		end := start + bound
		if end > len(tasks) {
			end = len(tasks)
		}
		chunk := tasks[start:end]

		var wg sync.WaitGroup
		for _, task := range chunk {
			wg.Add(1)
			go func(task Task) {
				defer wg.Done()
				fn(ctx, task)
			}(task)
		}
		wg.Wait()
	}

	return ctx.Err()
}

// admit applies the thermal recommendation before a chunk starts: pause
// blocks until the monitor relents, reduce lowers the bound for the rest of
// the batch.
func (s *Scheduler) admit(ctx context.Context, bound int) int {
	if s.thermal == nil {
		return bound
	}

	for {
		status := s.thermal.Current()
		switch status.Action {
		case domain.ThermalActionPause:
			s.logger.Info("pausing before next chunk on thermal pressure", "pressure", status.Pressure)
			select {
			case <-ctx.Done():
				return bound
			case <-time.After(s.pausePoll):
			}
			continue
		case domain.ThermalActionReduce:
			if bound > 1 {
				bound--
				s.logger.Info("reducing concurrency on thermal pressure",
					"pressure", status.Pressure, "bound", bound)
			}
			return bound
		default:
			return bound
		}
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
