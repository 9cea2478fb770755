// Package session runs the conversation loop: it owns the active thread
// and backend selection, routes each turn through the orchestrator, and
// persists the exchange to the history store.
package session

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"brain/internal/config"
	"brain/internal/history"
	"brain/internal/orchestrator"
	"brain/internal/types"
)

// Mode selects how a turn is dispatched.
type Mode int

const (
	// ModeSingle sends the prompt to the active backend only.
	ModeSingle Mode = iota
	// ModeFanOut sends the prompt to every backend and keeps each
	// response as its own message.
	ModeFanOut
	// ModeDeep fans out to every backend and then synthesizes the
	// results into a single combined response.
	ModeDeep
)

func (m Mode) String() string {
	switch m {
	case ModeFanOut:
		return "fan-out"
	case ModeDeep:
		return "deep"
	default:
		return "single"
	}
}

// TurnResult is the outcome of one completed turn. For ModeDeep,
// PerBackend carries the raw fan-out results behind the synthesis.
type TurnResult struct {
	Mode       Mode
	Result     types.Result
	PerBackend map[string]types.Result
}

// Controller drives a session: one active thread, one active backend,
// and a turn counter. Safe for use from a single goroutine at a time
// plus concurrent read access to the accessors.
type Controller struct {
	cfg    config.Config
	store  history.Store
	orch   *orchestrator.Orchestrator
	synth  *orchestrator.Synthesizer
	logger *zap.Logger

	sessionID string

	mu      sync.Mutex
	thread  string
	backend string
	turns   int
}

// New builds a Controller starting on the "default" thread with the
// configured default backend active.
func New(cfg config.Config, store history.Store, orch *orchestrator.Orchestrator, synth *orchestrator.Synthesizer, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		cfg:       cfg,
		store:     store,
		orch:      orch,
		synth:     synth,
		logger:    logger,
		sessionID: uuid.NewString(),
		thread:    "default",
		backend:   cfg.DefaultProvider,
	}
}

// SessionID identifies this process's session in logs.
func (c *Controller) SessionID() string { return c.sessionID }

// Thread returns the active thread name.
func (c *Controller) Thread() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.thread
}

// Backend returns the active backend id.
func (c *Controller) Backend() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.backend
}

// Turns returns the number of completed turns this session.
func (c *Controller) Turns() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.turns
}

// SwitchThread makes name the active thread. The thread need not exist
// yet; it is created on the first appended message.
func (c *Controller) SwitchThread(name string) error {
	if name == "" {
		return fmt.Errorf("thread name must not be empty")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.thread = name
	c.logger.Debug("switched thread", zap.String("thread", name))
	return nil
}

// SwitchBackend makes name the active backend. Unknown backends are
// rejected so a typo cannot stick as session state.
func (c *Controller) SwitchBackend(name string) error {
	if _, err := c.orch.Registry().Get(name); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.backend = name
	c.logger.Debug("switched backend", zap.String("backend", name))
	return nil
}

// Backends lists the registered backend ids.
func (c *Controller) Backends() []string {
	return c.orch.Registry().Names()
}

// History returns the last limit messages of the active thread, or all
// of them when limit <= 0.
func (c *Controller) History(limit int) ([]types.Message, error) {
	thread := c.Thread()
	if limit <= 0 {
		return c.store.Load(thread)
	}
	return c.store.Window(thread, limit)
}

// Threads lists the thread names with stored history.
func (c *Controller) Threads() ([]string, error) {
	return c.store.Threads()
}

// Snapshot describes the session's current settings for display.
type Snapshot struct {
	Thread        string
	Backend       string
	Model         string
	SynthesisWith string
	ContextWindow int
	MaxTokens     int
	Temperature   float64
	Turns         int
	HistoryStore  string
}

// Snapshot returns the current session settings.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Thread:        c.thread,
		Backend:       c.backend,
		Model:         c.cfg.DefaultModel,
		SynthesisWith: c.synth.Backend(),
		ContextWindow: c.cfg.ContextWindow,
		MaxTokens:     c.cfg.MaxTokens,
		Temperature:   c.cfg.Temperature,
		Turns:         c.turns,
		HistoryStore:  c.cfg.History.Backend,
	}
}

// RunTurn executes one turn: gather the context window, dispatch per the
// mode, then persist the user prompt followed by the response messages.
// Failed backend results are persisted like any other response, with the
// error text as content. The returned error covers configuration and
// persistence problems only; backend failures live in the Result.
func (c *Controller) RunTurn(ctx context.Context, prompt string, mode Mode) (TurnResult, error) {
	c.mu.Lock()
	thread := c.thread
	backend := c.backend
	c.mu.Unlock()

	window, err := c.store.Window(thread, c.cfg.ContextWindow)
	if err != nil {
		return TurnResult{}, fmt.Errorf("loading context for thread %q: %w", thread, err)
	}

	turn := TurnResult{Mode: mode}
	var replies []types.Message

	switch mode {
	case ModeFanOut:
		results := c.orch.DispatchAll(ctx, prompt, window)
		turn.PerBackend = results
		for _, name := range sortedKeys(results) {
			res := results[name]
			replies = append(replies, types.NewMessage(types.RoleAssistant, res.Content, res.Backend))
		}
	case ModeDeep:
		results := c.orch.DispatchAll(ctx, prompt, window)
		sres := c.synth.Synthesize(ctx, prompt, results)
		turn.Result = sres.Result
		turn.PerBackend = sres.PerBackend
		replies = append(replies, types.NewMessage(types.RoleAssistant, sres.Content, sres.Backend))
	default:
		res, err := c.orch.Dispatch(ctx, prompt, window, backend)
		if err != nil {
			return TurnResult{}, err
		}
		turn.Result = res
		replies = append(replies, types.NewMessage(types.RoleAssistant, res.Content, res.Backend))
	}

	if err := c.store.Append(thread, types.NewMessage(types.RoleUser, prompt, "")); err != nil {
		return TurnResult{}, fmt.Errorf("persisting prompt to thread %q: %w", thread, err)
	}
	for _, msg := range replies {
		if err := c.store.Append(thread, msg); err != nil {
			return TurnResult{}, fmt.Errorf("persisting response to thread %q: %w", thread, err)
		}
	}

	c.mu.Lock()
	c.turns++
	turns := c.turns
	c.mu.Unlock()

	c.logger.Debug("turn complete",
		zap.String("session", c.sessionID),
		zap.String("thread", thread),
		zap.Stringer("mode", mode),
		zap.Int("turn", turns))

	return turn, nil
}

func sortedKeys(m map[string]types.Result) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
