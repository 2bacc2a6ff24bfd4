// Package authflow executes an authentication plan: the per-connection
// attempt state machine and the sequential encrypted-key unlock flow.
package authflow

import (
	"github.com/dwhitley/credflow/internal/authplan"
	"github.com/dwhitley/credflow/internal/logger"
)

// Offer is one concrete authentication attempt handed to the transport.
type Offer struct {
	Kind        authplan.Kind
	ID          string
	Username    string
	Key         []byte
	Passphrase  string
	Password    string
	AgentSocket string
}

// Attempt is the mutable cursor over one plan for one connection attempt.
// It tracks which entries have been offered so none is ever offered twice.
// An Attempt must not be reused across reconnects: default keys may have
// changed on disk and agent state may differ.
type Attempt struct {
	plan      authplan.Plan
	username  string
	cursor    int
	attempted map[string]bool
	log       logger.Logger
}

// NewAttempt creates the state machine for one connection attempt.
func NewAttempt(plan authplan.Plan, username string, log logger.Logger) *Attempt {
	if log == nil {
		log = logger.Noop()
	}
	return &Attempt{
		plan:      plan,
		username:  username,
		attempted: make(map[string]bool, len(plan)),
		log:       log,
	}
}

// Next returns the next eligible offer, or ok=false when the plan is
// exhausted. The transport calls it once per server round, passing the
// method types the server still accepts; entries of a rejected type are
// never offered, even if they appear later in the plan. An empty
// methodsAccepted (the first round, before the server has said anything)
// allows every type.
func (a *Attempt) Next(methodsAccepted []string, partialSuccess bool) (Offer, bool) {
	if partialSuccess {
		a.log.Debug("server reported partial success, continuing with remaining methods")
	}

	for i := a.cursor; i < len(a.plan); i++ {
		entry := a.plan[i]
		if a.attempted[entry.ID] {
			continue
		}
		if !methodAllowed(entry.Kind, methodsAccepted) {
			continue
		}

		a.attempted[entry.ID] = true
		a.cursor = i + 1
		a.log.Debug("offering %s (%d/%d)", entry.ID, i+1, len(a.plan))

		return Offer{
			Kind:        entry.Kind,
			ID:          entry.ID,
			Username:    a.username,
			Key:         entry.Key,
			Passphrase:  entry.Passphrase,
			Password:    entry.Password,
			AgentSocket: entry.AgentSocket,
		}, true
	}

	a.log.Debug("plan exhausted after %d attempts", len(a.attempted))
	return Offer{}, false
}

// Attempted returns the ids offered so far.
func (a *Attempt) Attempted() []string {
	ids := make([]string, 0, len(a.attempted))
	for _, entry := range a.plan {
		if a.attempted[entry.ID] {
			ids = append(ids, entry.ID)
		}
	}
	return ids
}

func methodAllowed(kind authplan.Kind, methodsAccepted []string) bool {
	if len(methodsAccepted) == 0 {
		return true
	}
	for _, m := range methodsAccepted {
		if m == kind.Method() {
			return true
		}
	}
	return false
}
