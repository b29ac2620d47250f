package classify

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"

	"video-compressor/internal/domain"
)

// Context carries task identity into classification so messages can name the
// file and preset involved.
type Context struct {
	File     string
	PresetID string
	Codec    string
}

// Pre-compiled matchers over transcoder stderr. Checked in order by
// Classify; the first match wins.
var (
	reHardwareUnavailable = regexp.MustCompile(
		`(?i)Cannot load .*(nvenc|cuda|qsv|videotoolbox)|` +
			`No capable devices found|` +
			`Failed to initialise VAAPI|` +
			`(nvenc|qsv|videotoolbox).* not available|` +
			`Device creation failed`)

	reEncoderMismatch = regexp.MustCompile(
		`(?i)Unknown encoder|` +
			`Encoder not found|` +
			`codec not currently supported in container|` +
			`Could not find tag for codec`)

	reMissingInput = regexp.MustCompile(
		`(?i)No such file or directory|` +
			`Invalid argument.*input|` +
			`does not exist`)

	rePermissionDenied = regexp.MustCompile(
		`(?i)Permission denied|` +
			`Operation not permitted`)

	reDiskFull = regexp.MustCompile(
		`(?i)No space left on device|` +
			`Disk quota exceeded`)

	reUnsupportedFormat = regexp.MustCompile(
		`(?i)Invalid data found when processing input|` +
			`moov atom not found|` +
			`Unknown format|` +
			`Unable to find a suitable output format`)
)

// Classify maps a raw subprocess failure plus stderr into a structured
// CompressionError. Already-classified errors pass through unchanged.
func Classify(err error, stderr string, ctx Context) *domain.CompressionError {
	if err == nil {
		return nil
	}

	var already *domain.CompressionError
	if errors.As(err, &already) {
		return already
	}

	if errors.Is(err, context.Canceled) {
		return &domain.CompressionError{
			Kind:        domain.ErrorKindCancellation,
			Message:     fmt.Sprintf("compression of %s was cancelled", ctx.File),
			Recoverable: true,
			Err:         err,
		}
	}

	switch {
	case reHardwareUnavailable.MatchString(stderr):
		return &domain.CompressionError{
			Kind:            domain.ErrorKindHardware,
			Message:         fmt.Sprintf("hardware acceleration unavailable for %s", ctx.Codec),
			Detail:          ctx.File,
			Recoverable:     true,
			SuggestedAction: "Switch to a software codec such as libx264 and retry.",
			Err:             err,
		}
	case reEncoderMismatch.MatchString(stderr):
		return &domain.CompressionError{
			Kind:            domain.ErrorKindTranscoder,
			Message:         fmt.Sprintf("encoder %s is not usable for preset %s", ctx.Codec, ctx.PresetID),
			Detail:          ctx.File,
			Recoverable:     false,
			SuggestedAction: "Pick a preset whose codec this ffmpeg build supports.",
			Err:             err,
		}
	case reMissingInput.MatchString(stderr):
		return &domain.CompressionError{
			Kind:            domain.ErrorKindValidation,
			Message:         fmt.Sprintf("input file is missing: %s", ctx.File),
			Recoverable:     false,
			SuggestedAction: "Verify the file still exists and re-add it.",
			Err:             err,
		}
	case rePermissionDenied.MatchString(stderr):
		return &domain.CompressionError{
			Kind:            domain.ErrorKindSystem,
			Message:         fmt.Sprintf("permission denied while processing %s", ctx.File),
			Recoverable:     false,
			SuggestedAction: "Check read access to the input and write access to the output directory.",
			Err:             err,
		}
	case reDiskFull.MatchString(stderr):
		return &domain.CompressionError{
			Kind:            domain.ErrorKindSystem,
			Message:         "insufficient disk space for output",
			Detail:          ctx.File,
			Recoverable:     true,
			SuggestedAction: "Free disk space or choose another output directory.",
			Err:             err,
		}
	case reUnsupportedFormat.MatchString(stderr):
		return &domain.CompressionError{
			Kind:            domain.ErrorKindTranscoder,
			Message:         fmt.Sprintf("unsupported or corrupt container: %s", ctx.File),
			Recoverable:     false,
			SuggestedAction: "Remux the file into a standard container and retry.",
			Err:             err,
		}
	default:
		return &domain.CompressionError{
			Kind:        domain.ErrorKindTranscoder,
			Message:     fmt.Sprintf("transcoder failed for %s (preset %s)", ctx.File, ctx.PresetID),
			Detail:      lastLine(stderr),
			Recoverable: false,
			Err:         err,
		}
	}
}

// lastLine returns the final non-empty stderr line, where ffmpeg usually
// states its actual complaint.
func lastLine(stderr string) string {
	last := ""
	start := 0
	for i := 0; i <= len(stderr); i++ {
		if i == len(stderr) || stderr[i] == '\n' {
			if i > start {
				last = stderr[start:i]
			}
			start = i + 1
		}
	}
	return last
}

// Summary rolls many task failures into batch-level counts.
type Summary struct {
	Total          int                      `json:"total"`
	Recoverable    int                      `json:"recoverable"`
	NonRecoverable int                      `json:"nonRecoverable"`
	ByKind         map[domain.ErrorKind]int `json:"byKind"`
	Suggestions    []string                 `json:"suggestions"`
}

// Summarize aggregates classified errors with de-duplicated suggestions.
func Summarize(errs []*domain.CompressionError) Summary {
	s := Summary{ByKind: make(map[domain.ErrorKind]int)}
	seen := make(map[string]bool)

	for _, e := range errs {
		if e == nil {
			continue
		}
		s.Total++
		if e.Recoverable {
			s.Recoverable++
		} else {
			s.NonRecoverable++
		}
		s.ByKind[e.Kind]++
		if e.SuggestedAction != "" && !seen[e.SuggestedAction] {
			seen[e.SuggestedAction] = true
			s.Suggestions = append(s.Suggestions, e.SuggestedAction)
		}
	}

	sort.Strings(s.Suggestions)
	return s
}
