package strategy

import (
	"context"

	"video-compressor/internal/domain"
	"video-compressor/internal/ffmpeg"
)

// Basic drives a single transcode configured directly from the preset; no
// advanced overrides or output flags apply.
type Basic struct {
	base
}

// NewBasic constructs the basic strategy.
func NewBasic(deps Deps) *Basic {
	return &Basic{base: base{deps: deps}}
}

// Name identifies the strategy in logs.
func (s *Basic) Name() string { return "basic" }

// Execute runs one preset-only transcode to a terminal outcome.
func (s *Basic) Execute(ctx context.Context, task Context) (domain.CompressionResult, error) {
	// Ignore overrides entirely; the preset is the whole configuration.
	stripped := task
	stripped.Advanced = nil

	p := task.Preset.Settings
	spec := ffmpeg.EncodeSpec{
		InputPath:    task.InputPath,
		OutputPath:   task.OutputPath,
		VideoCodec:   p.VideoCodec,
		VideoBitrate: p.VideoBitrate,
		AudioCodec:   p.AudioCodec,
		AudioBitrate: p.AudioBitrate,
		Resolution:   p.Resolution,
		FPS:          p.FPS,
		CRF:          p.CRF,
		SpeedPreset:  p.SpeedPreset,
		KeepAudio:    task.KeepAudio,
	}

	return s.execute(ctx, stripped, spec)
}
