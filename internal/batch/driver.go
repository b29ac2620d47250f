package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"

	"video-compressor/internal/classify"
	"video-compressor/internal/domain"
	"video-compressor/internal/presets"
	"video-compressor/internal/strategy"
)

// Driver runs one batch end to end: expansion, seeding, thermally-bounded
// scheduling, strategy execution, and result collection. A single task's
// failure never aborts the batch; only output-directory validation at
// batch start does.
type Driver struct {
	registry *presets.Registry
	deps     strategy.Deps
	emitter  Emitter
	thermal  ThermalSource
	policy   SmoothingPolicy
	logger   hclog.Logger
}

// NewDriver wires a batch driver from its collaborators. thermal may be nil.
func NewDriver(registry *presets.Registry, deps strategy.Deps, emitter Emitter, thermal ThermalSource, policy SmoothingPolicy, logger hclog.Logger) *Driver {
	return &Driver{
		registry: registry,
		deps:     deps,
		emitter:  emitter,
		thermal:  thermal,
		policy:   policy,
		logger:   logger.Named("batch"),
	}
}

// Run executes the batch and returns one result per expanded task. Results
// for tasks never launched (batch cancelled first) are marked cancelled.
func (d *Driver) Run(ctx context.Context, req Request) ([]domain.CompressionResult, error) {
	if cerr := strategy.ValidateOutputDir(req.OutputDir); cerr != nil {
		return nil, cerr
	}

	expander := NewExpander(d.registry, d.logger)
	tasks := expander.Expand(req)
	if len(tasks) == 0 {
		d.logger.Warn("batch expanded to zero tasks")
		return []domain.CompressionResult{}, nil
	}

	agg := NewAggregator(d.policy, d.emitter)
	agg.Seed(tasks)

	recomputeCtx, stopRecompute := context.WithCancel(ctx)
	defer stopRecompute()
	go agg.StartRecompute(recomputeCtx)

	index := make(map[domain.TaskKey]int, len(tasks))
	for i, t := range tasks {
		index[t.Key] = i
	}
	results := make([]domain.CompressionResult, len(tasks))
	filled := make([]bool, len(tasks))

	bound := 0
	if req.Advanced != nil && req.Advanced.MaxConcurrent >= strategy.MinConcurrent && req.Advanced.MaxConcurrent <= strategy.MaxConcurrent {
		bound = req.Advanced.MaxConcurrent
	}
	sched := NewScheduler(bound, d.thermal, d.logger)

	var failMu sync.Mutex
	var failures []*domain.CompressionError

	err := sched.Run(ctx, tasks, func(taskCtx context.Context, task Task) {
		result, cerr := d.runTask(taskCtx, agg, task, req.Advanced)
		i := index[task.Key]
		results[i] = result
		filled[i] = true
		if cerr != nil {
			failMu.Lock()
			failures = append(failures, cerr)
			failMu.Unlock()
		}
	})
	if err != nil {
		d.logger.Info("batch interrupted", "reason", err)
	}

	if len(failures) > 0 {
		summary := classify.Summarize(failures)
		d.logger.Warn("batch finished with failures",
			"failed", summary.Total,
			"recoverable", summary.Recoverable,
			"suggestions", summary.Suggestions)
	}

	// Anything the scheduler never launched, and anything non-terminal, is
	// cancelled now.
	agg.CancelRemaining()
	for i, task := range tasks {
		if !filled[i] {
			results[i] = domain.CompressionResult{
				File:     task.InputPath,
				PresetID: task.Key.PresetID,
				Success:  false,
				Error:    "cancelled before start",
			}
		}
	}

	d.emitter.EmitBatchProgress(agg.Snapshot())
	return results, nil
}

// runTask executes one task with the strategy its settings select and maps
// the outcome onto the aggregator. The classified error is returned for the
// batch failure rollup; cancellations are not failures.
func (d *Driver) runTask(ctx context.Context, agg *Aggregator, task Task, adv *domain.AdvancedSettings) (domain.CompressionResult, *domain.CompressionError) {
	strat := d.selectStrategy(adv)

	result, err := strat.Execute(ctx, strategy.Context{
		Key:        task.Key,
		InputPath:  task.InputPath,
		OutputPath: task.OutputPath,
		Preset:     task.Preset,
		KeepAudio:  task.KeepAudio,
		Advanced:   adv,
		Sink:       agg,
	})
	if err != nil {
		var cerr *domain.CompressionError
		if !errors.As(err, &cerr) {
			cerr = &domain.CompressionError{
				Kind:    domain.ErrorKindUnknown,
				Message: fmt.Sprintf("unexpected failure: %v", err),
				Err:     err,
			}
		}
		if cerr.Kind == domain.ErrorKindCancellation {
			agg.Cancel(task.Key)
			return result, nil
		}
		agg.Fail(task.Key, cerr)
		return result, cerr
	}

	agg.Complete(task.Key, result.OutputPath)
	return result, nil
}

// selectStrategy picks the variant for this batch: overrides absent means
// the preset-only basic strategy; two-pass when requested; otherwise the
// override-aware single pass.
func (d *Driver) selectStrategy(adv *domain.AdvancedSettings) strategy.Strategy {
	switch {
	case adv == nil:
		return strategy.NewBasic(d.deps)
	case adv.TwoPass:
		return strategy.NewTwoPass(d.deps)
	default:
		return strategy.NewSinglePass(d.deps)
	}
}
