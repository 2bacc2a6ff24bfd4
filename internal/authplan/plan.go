// Package authplan turns the credentials available for one connection into
// an ordered, immutable plan of authentication attempts.
//
// Planning is deliberately separated from execution: Build is a pure
// function of its inputs, so the ordering rules are unit-testable without a
// transport, and the state machine that walks the plan never mutates it.
package authplan

import (
	"github.com/dwhitley/credflow/internal/keyscan"
)

// Kind is the authentication method type of one plan entry.
type Kind string

const (
	KindAgent               Kind = "agent"
	KindPublicKey           Kind = "publickey"
	KindPassword            Kind = "password"
	KindKeyboardInteractive Kind = "keyboard-interactive"
)

// Method returns the SSH auth method name the server negotiates with.
// Agent-held keys go over the wire as publickey.
func (k Kind) Method() string {
	if k == KindAgent {
		return string(KindPublicKey)
	}
	return string(k)
}

// Stable entry ids. Every id in a plan is unique so the attempt state
// machine can mark entries tried without ever re-offering one.
const (
	IDAgent               = "agent"
	IDPassword            = "password"
	IDPublicKeyUser       = "publickey-user"
	IDKeyboardInteractive = "keyboard-interactive"
)

// DefaultKeyID returns the stable id for a discovered default key.
func DefaultKeyID(name string) string {
	return "publickey-default-" + name
}

// Entry is one planned authentication attempt. Key material is carried by
// value; the slice fields are never mutated after Build returns.
type Entry struct {
	Kind        Kind
	ID          string
	Key         []byte
	Passphrase  string
	Password    string
	AgentSocket string
}

// Plan is the ordered attempt sequence for one connection. Immutable once
// built; a reconnect gets a fresh plan.
type Plan []Entry

// IDs returns the entry ids in plan order.
func (p Plan) IDs() []string {
	ids := make([]string, len(p))
	for i, e := range p {
		ids[i] = e.ID
	}
	return ids
}

// Explicit is what the caller configured for this connection. At most one
// of each credential kind. HasPassword distinguishes an empty configured
// password from no password at all.
type Explicit struct {
	Password    string
	HasPassword bool
	Key         []byte
	Passphrase  string
	AgentSocket string
	HasAgent    bool
}

// UnlockedKey is a discovered encrypted key plus the passphrase the user
// supplied for it. Held only for the duration of one connection attempt.
type UnlockedKey struct {
	keyscan.DiscoveredKey
	Passphrase string
}

type classification int

const (
	classPasswordOnly classification = iota
	classKeyOnly
	classAgentOrNone
)

// classify buckets the explicit config. A key always wins (with or without
// an agent alongside); a password without a key is password-only;
// everything else, agent or nothing, falls through to agent-or-none.
func classify(e Explicit) classification {
	switch {
	case len(e.Key) > 0:
		return classKeyOnly
	case e.HasPassword:
		return classPasswordOnly
	default:
		return classAgentOrNone
	}
}

// Build produces the ordered plan for one connection attempt.
//
// Ordering respects user intent: explicitly supplied credentials come before
// silent fallbacks, every viable fallback is still offered, and no physical
// credential appears twice under different labels. Encrypted default keys
// never enter through defaults; they arrive in unlocked, already paired with
// their passphrase, and are tried after the unencrypted candidates.
// Keyboard-interactive is always the final entry.
func Build(explicit Explicit, defaults []keyscan.DiscoveredKey, systemAgentSocket string, unlocked []UnlockedKey) Plan {
	agentSocket := systemAgentSocket
	if explicit.HasAgent && explicit.AgentSocket != "" {
		agentSocket = explicit.AgentSocket
	}

	agentEntry := func() (Entry, bool) {
		if agentSocket == "" {
			return Entry{}, false
		}
		return Entry{Kind: KindAgent, ID: IDAgent, AgentSocket: agentSocket}, true
	}
	passwordEntry := Entry{Kind: KindPassword, ID: IDPassword, Password: explicit.Password}
	userKeyEntry := Entry{Kind: KindPublicKey, ID: IDPublicKeyUser, Key: explicit.Key, Passphrase: explicit.Passphrase}
	defaultEntry := func(k keyscan.DiscoveredKey) Entry {
		return Entry{Kind: KindPublicKey, ID: DefaultKeyID(k.Name), Key: k.Bytes}
	}

	var plan Plan

	switch classify(explicit) {
	case classPasswordOnly:
		plan = append(plan, passwordEntry)
		if e, ok := agentEntry(); ok {
			plan = append(plan, e)
		}
		for _, k := range defaults {
			plan = append(plan, defaultEntry(k))
		}

	case classKeyOnly:
		plan = append(plan, userKeyEntry)
		if explicit.HasPassword {
			plan = append(plan, passwordEntry)
		}
		if e, ok := agentEntry(); ok {
			plan = append(plan, e)
		}
		// The user's key is not among the defaults, so all of them remain
		// viable fallbacks.
		for _, k := range defaults {
			plan = append(plan, defaultEntry(k))
		}

	case classAgentOrNone:
		if e, ok := agentEntry(); ok {
			plan = append(plan, e)
		}
		// An agent-less, keyless, passwordless connection should still try
		// the user's own strongest identity before generic fallbacks, so the
		// highest-priority default key is promoted here instead of waiting
		// at the tail.
		promoted := ""
		if len(explicit.Key) == 0 && len(defaults) > 0 {
			plan = append(plan, defaultEntry(defaults[0]))
			promoted = defaults[0].Name
		}
		if len(explicit.Key) > 0 {
			plan = append(plan, userKeyEntry)
		}
		if explicit.HasPassword {
			plan = append(plan, passwordEntry)
		}
		for _, k := range defaults {
			if k.Name == promoted {
				continue
			}
			plan = append(plan, defaultEntry(k))
		}
	}

	// Keys the user actively unlocked moments earlier: tried once the
	// unencrypted candidates are exhausted.
	for _, k := range unlocked {
		plan = append(plan, Entry{
			Kind:       KindPublicKey,
			ID:         DefaultKeyID(k.Name),
			Key:        k.Bytes,
			Passphrase: k.Passphrase,
		})
	}

	// Last resort every server must be given a chance to offer.
	plan = append(plan, Entry{Kind: KindKeyboardInteractive, ID: IDKeyboardInteractive})

	return dedupe(plan)
}

// dedupe keeps the first occurrence of each id.
func dedupe(plan Plan) Plan {
	seen := make(map[string]struct{}, len(plan))
	out := make(Plan, 0, len(plan))
	for _, e := range plan {
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		out = append(out, e)
	}
	return out
}
