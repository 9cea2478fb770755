package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"brain/internal/provider"
	"brain/internal/types"
)

// SynthesisBackendID is the marker recorded as the producing backend of a
// synthesized answer.
const SynthesisBackendID = "synthesis"

// SynthesisResult is the fused outcome of a fan-out. It embeds a Result
// (Backend = "synthesis") so consumers can treat it like any other backend
// answer, and additionally carries the complete fan-out set for inspection.
type SynthesisResult struct {
	types.Result
	PerBackend map[string]types.Result
}

// Synthesizer combines fan-out results by delegating a meta-prompt to one
// designated backend.
type Synthesizer struct {
	registry *provider.Registry
	backend  string
	logger   *zap.Logger
}

// NewSynthesizer creates a Synthesizer that delegates to the named backend.
func NewSynthesizer(registry *provider.Registry, backend string, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{registry: registry, backend: backend, logger: logger}
}

// Backend returns the designated synthesis backend id.
func (s *Synthesizer) Backend() string { return s.backend }

// Synthesize builds a meta-prompt from the original question and every
// backend's verbatim output, then delegates it to the synthesis backend with
// empty context (the meta-prompt is self-contained). Failed backend outputs
// are embedded verbatim, failure text included, so the synthesizing model can
// reason about degraded coverage; synthesis is attempted even when every
// backend failed.
//
// If the synthesis backend itself fails or is unknown, the result carries
// Failed=true while PerBackend still holds the full fan-out map.
func (s *Synthesizer) Synthesize(ctx context.Context, prompt string, fanout map[string]types.Result) SynthesisResult {
	metaPrompt := buildMetaPrompt(prompt, fanout)

	client, err := s.registry.Get(s.backend)
	if err != nil {
		s.logger.Warn("synthesis backend unavailable", zap.String("backend", s.backend), zap.Error(err))
		res := types.Failure(SynthesisBackendID, err)
		return SynthesisResult{Result: res, PerBackend: fanout}
	}

	res := client.Generate(ctx, metaPrompt, nil)
	res.Backend = SynthesisBackendID
	if res.Failed {
		s.logger.Warn("synthesis failed", zap.String("backend", s.backend), zap.String("detail", res.ErrorDetail))
	}
	return SynthesisResult{Result: res, PerBackend: fanout}
}

// buildMetaPrompt embeds the question and every backend's content, backends
// in sorted order for deterministic output.
func buildMetaPrompt(prompt string, fanout map[string]types.Result) string {
	backends := make([]string, 0, len(fanout))
	for name := range fanout {
		backends = append(backends, name)
	}
	sort.Strings(backends)

	var sb strings.Builder
	sb.WriteString("Analyze the following responses from different AI models and provide a comprehensive synthesis.\n\n")
	sb.WriteString("Question: ")
	sb.WriteString(prompt)
	sb.WriteString("\n\nResponses:\n")

	for _, name := range backends {
		res := fanout[name]
		status := "ok"
		if res.Failed {
			status = "failed"
		}
		sb.WriteString(fmt.Sprintf("\n### %s (%s)\n%s\n", name, status, res.Content))
	}

	sb.WriteString("\nProvide a well-reasoned synthesis that combines the best insights from each perspective. ")
	sb.WriteString("If a model failed, weigh the remaining answers accordingly.")
	return sb.String()
}
