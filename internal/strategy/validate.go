package strategy

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"video-compressor/internal/domain"
)

// Override range limits. A zero value means "not set" and falls back to the
// preset, so ranges apply only to explicitly supplied values.
const (
	MinCRF        = 0
	MaxCRF        = 51
	MinFPS        = 1
	MaxFPS        = 120
	MinConcurrent = 1
	MaxConcurrent = 6
)

// reBitrate matches the required "<integer>k" bitrate format.
var reBitrate = regexp.MustCompile(`^\d+k$`)

// Validate performs every pre-flight check before a subprocess is spawned:
// readable input, usable output directory, complete preset settings, and
// advanced override ranges. Any violation is a validation-kind error.
func Validate(task Context) *domain.CompressionError {
	if _, err := os.Stat(task.InputPath); err != nil {
		return &domain.CompressionError{
			Kind:    domain.ErrorKindValidation,
			Message: fmt.Sprintf("input file is not accessible: %s", task.InputPath),
			Err:     err,
		}
	}

	if cerr := ValidateOutputDir(filepath.Dir(task.OutputPath)); cerr != nil {
		return cerr
	}

	if task.Preset.Settings.VideoCodec == "" {
		return domain.NewValidationError(
			fmt.Sprintf("preset %s is missing a video codec", task.Key.PresetID))
	}

	return ValidateAdvanced(task.Advanced)
}

// ValidateOutputDir ensures the directory exists (creating it if needed) and
// is writable, probed by creating and deleting a sentinel file.
func ValidateOutputDir(dir string) *domain.CompressionError {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &domain.CompressionError{
			Kind:    domain.ErrorKindValidation,
			Message: fmt.Sprintf("cannot create output directory: %s", dir),
			Err:     err,
		}
	}

	probe, err := os.CreateTemp(dir, ".write-probe-*")
	if err != nil {
		return &domain.CompressionError{
			Kind:    domain.ErrorKindValidation,
			Message: fmt.Sprintf("output directory is not writable: %s", dir),
			Err:     err,
		}
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)
	return nil
}

// ValidateAdvanced range-checks explicitly supplied overrides. Nil means no
// overrides and always passes.
func ValidateAdvanced(adv *domain.AdvancedSettings) *domain.CompressionError {
	if adv == nil {
		return nil
	}

	if adv.CRF != 0 && (adv.CRF < MinCRF || adv.CRF > MaxCRF) {
		return domain.NewValidationError(
			fmt.Sprintf("crf %d is out of range %d-%d", adv.CRF, MinCRF, MaxCRF))
	}
	if adv.FPS != 0 && (adv.FPS < MinFPS || adv.FPS > MaxFPS) {
		return domain.NewValidationError(
			fmt.Sprintf("frame rate %d is out of range %d-%d", adv.FPS, MinFPS, MaxFPS))
	}
	if adv.VideoBitrate != "" && !reBitrate.MatchString(adv.VideoBitrate) {
		return domain.NewValidationError(
			fmt.Sprintf("video bitrate %q must be formatted as <integer>k", adv.VideoBitrate))
	}
	if adv.AudioBitrate != "" && !reBitrate.MatchString(adv.AudioBitrate) {
		return domain.NewValidationError(
			fmt.Sprintf("audio bitrate %q must be formatted as <integer>k", adv.AudioBitrate))
	}
	if adv.MaxConcurrent != 0 && (adv.MaxConcurrent < MinConcurrent || adv.MaxConcurrent > MaxConcurrent) {
		return domain.NewValidationError(
			fmt.Sprintf("concurrency limit %d is out of range %d-%d", adv.MaxConcurrent, MinConcurrent, MaxConcurrent))
	}
	return nil
}
