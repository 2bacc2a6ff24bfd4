// Package sshauth assembles SSH authentication for a connection: it discovers
// and unlocks key material, builds an ordered authentication plan, and turns
// that plan into golang.org/x/crypto/ssh auth methods and live connections.
package sshauth

import (
	"context"

	"github.com/dwhitley/credflow/internal/authflow"
	"github.com/dwhitley/credflow/internal/authplan"
	"github.com/dwhitley/credflow/internal/hardware"
	"github.com/dwhitley/credflow/internal/keyscan"
	"github.com/dwhitley/credflow/internal/logger"
	"github.com/dwhitley/credflow/internal/prompt"
)

// Engine owns the pieces of one credential negotiation: the prompt broker,
// the key locator, and any hardware-backed key providers. One engine serves
// many connections; per-connection state lives in the plan and attempt.
type Engine struct {
	broker    *prompt.Broker
	locator   *keyscan.Locator
	providers []hardware.KeyProvider
	log       logger.Logger
}

// Options configures an Engine. Zero values get working defaults.
type Options struct {
	Broker    *prompt.Broker
	Locator   *keyscan.Locator
	Providers []hardware.KeyProvider
	Log       logger.Logger
}

func NewEngine(opts Options) *Engine {
	log := opts.Log
	if log == nil {
		log = logger.Noop()
	}
	broker := opts.Broker
	if broker == nil {
		broker = prompt.NewBroker(log)
	}
	locator := opts.Locator
	if locator == nil {
		locator = keyscan.NewLocator("", log)
	}
	return &Engine{
		broker:    broker,
		locator:   locator,
		providers: opts.Providers,
		log:       log,
	}
}

// Broker exposes the engine's prompt broker so a UI surface can resolve
// requests against it.
func (e *Engine) Broker() *prompt.Broker {
	return e.broker
}

// Close releases the engine's prompt broker, resolving anything pending.
func (e *Engine) Close() {
	e.broker.Close()
}

// PlanRequest is the input to BuildPlan for one connection.
type PlanRequest struct {
	Hostname string
	Explicit authplan.Explicit

	// Surface receives passphrase prompts during the unlock flow. Nil or
	// dead surfaces skip unlocking; encrypted keys stay out of the plan.
	Surface prompt.Surface

	// UnlockKeys enables the interactive unlock of encrypted default keys.
	UnlockKeys bool
}

// BuildPlan runs discovery and unlocking, then builds the ordered plan.
// Cancelled reports that the user aborted the unlock flow; the caller should
// not proceed with the connection.
func (e *Engine) BuildPlan(ctx context.Context, req PlanRequest) (plan authplan.Plan, cancelled bool, err error) {
	defaults := e.locator.FindDefaultKeys(false)

	var unlocked []authplan.UnlockedKey
	if req.UnlockKeys && req.Surface != nil && req.Surface.Alive() {
		result := authflow.UnlockEncryptedDefaultKeys(ctx, e.broker, req.Surface,
			e.locator, req.Hostname, e.log)
		if result.Cancelled {
			return authplan.Plan{}, true, nil
		}
		unlocked = result.Keys
	}

	for _, provider := range e.providers {
		keys, err := provider.ProvideKeys(ctx)
		if err != nil {
			return authplan.Plan{}, false, err
		}
		unlocked = append(unlocked, keys...)
	}

	plan = authplan.Build(req.Explicit, defaults, authplan.SystemAgentSocket(), unlocked)
	e.log.Debug("built plan for %s: %v", req.Hostname, plan.IDs())
	return plan, false, nil
}

// NewAttempt starts the per-connection attempt state machine over a plan.
func (e *Engine) NewAttempt(plan authplan.Plan, username string) *authflow.Attempt {
	return authflow.NewAttempt(plan, username, e.log)
}
