package strategy

import (
	"context"

	"video-compressor/internal/domain"
)

// SinglePass drives one transcode with advanced overrides layered over the
// preset, plus the fast-start and optimize-for-web output flags.
type SinglePass struct {
	base
}

// NewSinglePass constructs the single-pass strategy.
func NewSinglePass(deps Deps) *SinglePass {
	return &SinglePass{base: base{deps: deps}}
}

// Name identifies the strategy in logs.
func (s *SinglePass) Name() string { return "single-pass" }

// Execute runs one override-aware transcode to a terminal outcome.
func (s *SinglePass) Execute(ctx context.Context, task Context) (domain.CompressionResult, error) {
	return s.execute(ctx, task, resolveSpec(task))
}
