// Package orchestrator dispatches prompts to one or all registered backends
// and fuses fan-out results into a single synthesized answer.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"brain/internal/provider"
	"brain/internal/types"
)

// Orchestrator routes prompts to backend adapters. It holds no mutable state
// between calls; every dispatch is independently reentrant.
type Orchestrator struct {
	registry *provider.Registry
	logger   *zap.Logger
}

// New creates an Orchestrator over the given registry.
func New(registry *provider.Registry, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{registry: registry, logger: logger}
}

// Registry exposes the backend set for callers that need to validate ids.
func (o *Orchestrator) Registry() *provider.Registry { return o.registry }

// Dispatch sends the prompt to a single backend. An unknown backend id is a
// configuration error returned to the caller; adapter failures come back as
// failed Results, not errors.
func (o *Orchestrator) Dispatch(ctx context.Context, prompt string, history []types.Message, backend string) (types.Result, error) {
	client, err := o.registry.Get(backend)
	if err != nil {
		return types.Result{}, err
	}

	start := time.Now()
	res := client.Generate(ctx, prompt, history)
	o.logger.Debug("dispatch complete",
		zap.String("backend", backend),
		zap.Bool("failed", res.Failed),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

// DispatchAll sends the same prompt and context to every registered backend
// concurrently and joins on all of them. The returned map holds exactly one
// entry per registered backend; a failing adapter contributes a failed
// Result, never an absence. There is no early exit and no cancellation of
// in-flight siblings.
func (o *Orchestrator) DispatchAll(ctx context.Context, prompt string, history []types.Message) map[string]types.Result {
	results := make(map[string]types.Result, o.registry.Len())

	var mu sync.Mutex
	eg, egCtx := errgroup.WithContext(ctx)

	start := time.Now()
	o.registry.Each(func(name string, client provider.Client) {
		eg.Go(func() error {
			res := client.Generate(egCtx, prompt, history)
			mu.Lock()
			results[name] = res
			mu.Unlock()
			return nil
		})
	})

	// Generate never returns an error, so Wait cannot fail; the join is
	// what matters here.
	_ = eg.Wait()

	failed := 0
	for _, res := range results {
		if res.Failed {
			failed++
		}
	}
	o.logger.Debug("fan-out complete",
		zap.Int("backends", len(results)),
		zap.Int("failed", failed),
		zap.Duration("elapsed", time.Since(start)),
	)
	return results
}
