package strategy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"video-compressor/internal/domain"
	"video-compressor/internal/ffmpeg"
)

// TwoPass encodes the input twice: pass 1 analyzes the stream and discards
// output, pass 2 performs the real encode against pass-1 statistics. Task
// progress is piecewise: pass 1 maps onto 0–50, pass 2 onto 50–100.
type TwoPass struct {
	base
	tempDir func() string
}

// NewTwoPass constructs the two-pass strategy.
func NewTwoPass(deps Deps) *TwoPass {
	return &TwoPass{base: base{deps: deps}, tempDir: os.TempDir}
}

// Name identifies the strategy in logs.
func (s *TwoPass) Name() string { return "two-pass" }

// Execute runs both passes sequentially to a terminal outcome. Pass 2 never
// starts before pass 1 finishes; its statistics artifact is removed after a
// successful pass 2. Cancellation mid-pass-2 leaves the statistics behind,
// acceptable because the whole batch is being abandoned.
func (s *TwoPass) Execute(ctx context.Context, task Context) (domain.CompressionResult, error) {
	if cerr := Validate(task); cerr != nil {
		return failure(task, cerr), cerr
	}

	spec := resolveSpec(task)
	if spec.VideoBitrate == "" {
		cerr := domain.NewValidationError(
			fmt.Sprintf("two-pass encoding requires a target bitrate for preset %s", task.Key.PresetID))
		return failure(task, cerr), cerr
	}
	// CRF and two-pass rate control are mutually exclusive; the bitrate
	// target governs both passes.
	spec.CRF = 0

	duration := s.probeDuration(ctx, task)
	if task.Sink != nil {
		task.Sink.TaskRunning(task.Key)
	}

	passLog := filepath.Join(s.tempDir(), fmt.Sprintf("ffpass-%d", time.Now().UnixNano()))
	pass1Args, pass2Args := ffmpeg.BuildTwoPassArgs(spec, passLog)

	s.deps.Logger.Debug("starting two-pass transcode", "file", task.InputPath, "preset", task.Key.PresetID)

	result, err := s.runPass(ctx, task, pass1Args, duration, func(pct float64) float64 {
		return pct / 2
	})
	if err != nil {
		cerr := s.classifyRunError(ctx, err, result.StderrTail, task, spec)
		s.removeArtifacts(passLog)
		return failure(task, cerr), cerr
	}

	result, err = s.runPass(ctx, task, pass2Args, duration, func(pct float64) float64 {
		return 50 + pct/2
	})
	if err != nil {
		cerr := s.classifyRunError(ctx, err, result.StderrTail, task, spec)
		return failure(task, cerr), cerr
	}
	s.removeArtifacts(passLog)

	if cerr := verifyOutput(task.OutputPath); cerr != nil {
		return failure(task, cerr), cerr
	}

	return success(task), nil
}

// removeArtifacts deletes the pass-1 statistics files.
func (s *TwoPass) removeArtifacts(passLog string) {
	for _, path := range ffmpeg.PassLogArtifacts(passLog) {
		_ = os.Remove(path)
	}
}
