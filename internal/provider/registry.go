package provider

import (
	"fmt"
	"sort"

	"brain/internal/config"
)

// Registry maps backend identifiers to their adapters. Backend dispatch is a
// closed set resolved through this explicit mapping; there is no runtime
// reflection or dynamic lookup.
type Registry struct {
	clients map[string]Client
	order   []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]Client)}
}

// Register adds a client under its own name. Re-registering a name replaces
// the previous adapter.
func (r *Registry) Register(c Client) {
	name := c.Name()
	if _, exists := r.clients[name]; !exists {
		r.order = append(r.order, name)
	}
	r.clients[name] = c
}

// Get resolves a backend id. An unknown id is a configuration error.
func (r *Registry) Get(name string) (Client, error) {
	c, ok := r.clients[name]
	if !ok {
		return nil, fmt.Errorf("unknown backend %q (registered: %v)", name, r.Names())
	}
	return c, nil
}

// Has reports whether a backend id is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.clients[name]
	return ok
}

// Names returns all registered backend ids in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	sort.Strings(names)
	return names
}

// Len returns the number of registered backends.
func (r *Registry) Len() int { return len(r.clients) }

// Each calls fn for every registered adapter.
func (r *Registry) Each(fn func(name string, c Client)) {
	for _, name := range r.order {
		fn(name, r.clients[name])
	}
}

// NewDefaultRegistry registers the three standard providers from config and
// credentials. All providers are registered whether or not their credential
// is present; a missing key surfaces as a failed Result at call time, never
// as a registration error.
func NewDefaultRegistry(cfg config.Config, creds config.Credentials) *Registry {
	reg := NewRegistry()

	mistralCfg := DefaultMistralConfig(creds.Mistral)
	if cfg.DefaultProvider == "mistral" && cfg.DefaultModel != "" {
		mistralCfg.Model = cfg.DefaultModel
	}
	mistralCfg.MaxTokens = cfg.MaxTokens
	mistralCfg.Temperature = cfg.Temperature
	reg.Register(NewMistralClientWithConfig(mistralCfg))

	geminiCfg := DefaultGeminiConfig(creds.Gemini)
	if cfg.DefaultProvider == "gemini" && cfg.DefaultModel != "" {
		geminiCfg.Model = cfg.DefaultModel
	}
	geminiCfg.MaxOutputTokens = cfg.MaxTokens
	geminiCfg.Temperature = cfg.Temperature
	reg.Register(NewGeminiClientWithConfig(geminiCfg))

	claudeCfg := DefaultClaudeConfig(creds.Anthropic)
	if cfg.DefaultProvider == "claude" && cfg.DefaultModel != "" {
		claudeCfg.Model = cfg.DefaultModel
	}
	claudeCfg.MaxTokens = cfg.MaxTokens
	claudeCfg.Temperature = cfg.Temperature
	reg.Register(NewClaudeClientWithConfig(claudeCfg))

	return reg
}
