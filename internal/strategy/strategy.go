package strategy

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"

	"video-compressor/internal/classify"
	"video-compressor/internal/domain"
	"video-compressor/internal/ffmpeg"
	"video-compressor/internal/procs"
)

// Context bundles everything one strategy execution needs.
type Context struct {
	Key        domain.TaskKey
	InputPath  string
	OutputPath string
	Preset     domain.Preset
	KeepAudio  bool
	Advanced   *domain.AdvancedSettings
	Sink       EventSink
}

// EventSink receives lifecycle events from a running strategy. The progress
// aggregator implements it.
type EventSink interface {
	// TaskRunning marks the pending → compressing transition.
	TaskRunning(key domain.TaskKey)
	// TaskProgress reports a raw 0–100 percentage with the transcoder's
	// timemark. Percent is -1 when the input duration is unknown.
	TaskProgress(key domain.TaskKey, percent float64, timemark string)
}

// Strategy is one interchangeable compression behavior. Execute runs at most
// one task to a terminal outcome and never re-emits events afterward.
type Strategy interface {
	Name() string
	Execute(ctx context.Context, task Context) (domain.CompressionResult, error)
}

// Deps are the shared collaborators every strategy drives.
type Deps struct {
	Runner ffmpeg.Runner
	Prober DurationProber
	Procs  *procs.Registry
	Logger hclog.Logger
}

// DurationProber resolves input duration for percentage mapping.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// base carries the behavior common to all three strategies: validation,
// duration probing, subprocess lifecycle, progress forwarding, registry
// bookkeeping, and output verification.
type base struct {
	deps Deps
}

// runPass executes one transcoder invocation for the task. mapPercent
// rescales raw percentages (two-pass uses it to split 0–50/50–100);
// indeterminate progress (-1) is passed through unmapped.
func (b *base) runPass(ctx context.Context, task Context, args []string, durationSeconds float64, mapPercent func(float64) float64) (ffmpeg.RunResult, error) {
	opts := ffmpeg.RunOptions{
		OnStart: func(h ffmpeg.Handle) {
			b.deps.Procs.Register(task.Key, h)
		},
		OnLine: func(line string) {
			p, ok := ffmpeg.ParseProgressLine(line)
			if !ok || task.Sink == nil {
				return
			}
			pct := ffmpeg.Percent(p.Seconds, durationSeconds)
			if pct >= 0 && mapPercent != nil {
				pct = mapPercent(pct)
			}
			task.Sink.TaskProgress(task.Key, pct, p.Timemark)
		},
	}

	result, err := b.deps.Runner.Run(ctx, "ffmpeg", args, opts)
	b.deps.Procs.Deregister(task.Key)
	return result, err
}

// execute drives the full single-invocation flow shared by the basic and
// single-pass strategies.
func (b *base) execute(ctx context.Context, task Context, spec ffmpeg.EncodeSpec) (domain.CompressionResult, error) {
	if cerr := Validate(task); cerr != nil {
		return failure(task, cerr), cerr
	}

	duration := b.probeDuration(ctx, task)
	if task.Sink != nil {
		task.Sink.TaskRunning(task.Key)
	}

	args := ffmpeg.BuildEncodeArgs(spec)
	b.deps.Logger.Debug("starting transcode", "file", task.InputPath, "preset", task.Key.PresetID)

	result, err := b.runPass(ctx, task, args, duration, nil)
	if err != nil {
		cerr := b.classifyRunError(ctx, err, result.StderrTail, task, spec)
		return failure(task, cerr), cerr
	}

	if cerr := verifyOutput(task.OutputPath); cerr != nil {
		return failure(task, cerr), cerr
	}

	return success(task), nil
}

// probeDuration resolves input duration, degrading to indeterminate on
// probe failure rather than failing the task.
func (b *base) probeDuration(ctx context.Context, task Context) float64 {
	duration, err := b.deps.Prober.Duration(ctx, task.InputPath)
	if err != nil {
		b.deps.Logger.Warn("duration probe failed, progress will be indeterminate",
			"file", task.InputPath, "error", err)
		return 0
	}
	return duration
}

// classifyRunError maps a subprocess failure, honoring cancellation first.
func (b *base) classifyRunError(ctx context.Context, err error, stderr string, task Context, spec ffmpeg.EncodeSpec) *domain.CompressionError {
	if ctx.Err() == context.Canceled {
		err = context.Canceled
	}
	return classify.Classify(err, stderr, classify.Context{
		File:     task.InputPath,
		PresetID: task.Key.PresetID,
		Codec:    spec.VideoCodec,
	})
}

// verifyOutput confirms the transcoder actually produced a usable file.
func verifyOutput(path string) *domain.CompressionError {
	info, err := os.Stat(path)
	if err != nil {
		return &domain.CompressionError{
			Kind:    domain.ErrorKindTranscoder,
			Message: fmt.Sprintf("transcoder exited cleanly but output is missing: %s", path),
			Err:     err,
		}
	}
	if info.Size() == 0 {
		return &domain.CompressionError{
			Kind:    domain.ErrorKindTranscoder,
			Message: fmt.Sprintf("transcoder produced an empty output: %s", path),
		}
	}
	return nil
}

// resolveSpec applies advanced overrides on top of the preset. Zero values
// fall back to preset settings.
func resolveSpec(task Context) ffmpeg.EncodeSpec {
	s := task.Preset.Settings
	spec := ffmpeg.EncodeSpec{
		InputPath:    task.InputPath,
		OutputPath:   task.OutputPath,
		VideoCodec:   s.VideoCodec,
		VideoBitrate: s.VideoBitrate,
		AudioCodec:   s.AudioCodec,
		AudioBitrate: s.AudioBitrate,
		Resolution:   s.Resolution,
		FPS:          s.FPS,
		CRF:          s.CRF,
		SpeedPreset:  s.SpeedPreset,
		KeepAudio:    task.KeepAudio,
	}

	adv := task.Advanced
	if adv == nil {
		return spec
	}
	if adv.CRF > 0 {
		spec.CRF = adv.CRF
	}
	if adv.VideoBitrate != "" {
		spec.VideoBitrate = adv.VideoBitrate
	}
	if adv.AudioBitrate != "" {
		spec.AudioBitrate = adv.AudioBitrate
	}
	if adv.FPS > 0 {
		spec.FPS = adv.FPS
	}
	if adv.Resolution != "" {
		spec.Resolution = adv.Resolution
	}
	spec.PreserveAspectRatio = adv.PreserveAspectRatio
	spec.FastStart = adv.FastStart
	spec.OptimizeForWeb = adv.OptimizeForWeb
	return spec
}

// success and failure build the task's CompressionResult.
func success(task Context) domain.CompressionResult {
	return domain.CompressionResult{
		File:       task.InputPath,
		PresetID:   task.Key.PresetID,
		OutputPath: task.OutputPath,
		Success:    true,
	}
}

func failure(task Context, cerr *domain.CompressionError) domain.CompressionResult {
	return domain.CompressionResult{
		File:     task.InputPath,
		PresetID: task.Key.PresetID,
		Success:  false,
		Error:    cerr.Error(),
	}
}
