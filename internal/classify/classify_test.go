package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"video-compressor/internal/domain"
)

var testCtx = Context{File: "clip.mp4", PresetID: "web-standard", Codec: "h264_nvenc"}

// TestClassifyPrecedence verifies the first-match-wins ordering across the
// error taxonomy.
func TestClassifyPrecedence(t *testing.T) {
	raw := errors.New("exit status 1")

	cases := []struct {
		name   string
		stderr string
		kind   domain.ErrorKind
	}{
		{"hardware", "Cannot load libnvidia-encode.so, nvenc not available", domain.ErrorKindHardware},
		{"encoder mismatch", "Unknown encoder 'libx999'", domain.ErrorKindTranscoder},
		{"missing input", "clip.mp4: No such file or directory", domain.ErrorKindValidation},
		{"permission", "out.mp4: Permission denied", domain.ErrorKindSystem},
		{"disk full", "av_interleaved_write_frame(): No space left on device", domain.ErrorKindSystem},
		{"bad container", "Invalid data found when processing input", domain.ErrorKindTranscoder},
		{"generic", "Conversion failed!", domain.ErrorKindTranscoder},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(raw, tc.stderr, testCtx)
			require.NotNil(t, got)
			assert.Equal(t, tc.kind, got.Kind)
		})
	}
}

// TestClassifyHardwareSuggestsSoftwareFallback checks remediation text and
// recoverability for hardware-acceleration failures.
func TestClassifyHardwareSuggestsSoftwareFallback(t *testing.T) {
	got := Classify(errors.New("exit status 1"), "No capable devices found", testCtx)

	require.Equal(t, domain.ErrorKindHardware, got.Kind)
	assert.True(t, got.Recoverable)
	assert.Contains(t, got.SuggestedAction, "software codec")
}

// TestClassifyCancellation checks context cancellation maps to the
// cancellation kind regardless of stderr content.
func TestClassifyCancellation(t *testing.T) {
	got := Classify(context.Canceled, "Permission denied", testCtx)
	assert.Equal(t, domain.ErrorKindCancellation, got.Kind)
}

// TestClassifyPassesThroughClassified checks idempotence for errors that are
// already CompressionErrors.
func TestClassifyPassesThroughClassified(t *testing.T) {
	orig := domain.NewValidationError("crf out of range")
	got := Classify(orig, "", testCtx)
	assert.Same(t, orig, got)
}

// TestSummarize checks batch rollup counts and suggestion de-duplication.
func TestSummarize(t *testing.T) {
	errs := []*domain.CompressionError{
		{Kind: domain.ErrorKindHardware, Recoverable: true, SuggestedAction: "Use libx264."},
		{Kind: domain.ErrorKindHardware, Recoverable: true, SuggestedAction: "Use libx264."},
		{Kind: domain.ErrorKindSystem, Recoverable: false, SuggestedAction: "Free disk space."},
		nil,
	}

	s := Summarize(errs)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.Recoverable)
	assert.Equal(t, 1, s.NonRecoverable)
	assert.Equal(t, 2, s.ByKind[domain.ErrorKindHardware])
	assert.Equal(t, []string{"Free disk space.", "Use libx264."}, s.Suggestions)
}
