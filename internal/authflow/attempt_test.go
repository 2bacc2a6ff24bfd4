package authflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwhitley/credflow/internal/authplan"
	"github.com/dwhitley/credflow/internal/logger"
)

func testPlan() authplan.Plan {
	return authplan.Plan{
		{Kind: authplan.KindPassword, ID: authplan.IDPassword, Password: "pw"},
		{Kind: authplan.KindAgent, ID: authplan.IDAgent, AgentSocket: "/tmp/agent.sock"},
		{Kind: authplan.KindPublicKey, ID: "publickey-default-id_ed25519", Key: []byte("ed")},
		{Kind: authplan.KindPublicKey, ID: "publickey-default-id_rsa", Key: []byte("rsa"), Passphrase: "p"},
		{Kind: authplan.KindKeyboardInteractive, ID: authplan.IDKeyboardInteractive},
	}
}

func TestAttempt_WalksPlanInOrder(t *testing.T) {
	a := NewAttempt(testPlan(), "deploy", logger.Noop())

	var offered []string
	for {
		offer, ok := a.Next(nil, false)
		if !ok {
			break
		}
		offered = append(offered, offer.ID)
		assert.Equal(t, "deploy", offer.Username)
	}

	assert.Equal(t, []string{
		authplan.IDPassword,
		authplan.IDAgent,
		"publickey-default-id_ed25519",
		"publickey-default-id_rsa",
		authplan.IDKeyboardInteractive,
	}, offered)
}

func TestAttempt_NeverReoffers(t *testing.T) {
	a := NewAttempt(testPlan(), "u", logger.Noop())

	seen := make(map[string]int)
	for i := 0; i < 20; i++ {
		offer, ok := a.Next(nil, false)
		if !ok {
			break
		}
		seen[offer.ID]++
	}

	for id, count := range seen {
		assert.Equal(t, 1, count, "entry %q offered more than once", id)
	}
	assert.Len(t, seen, len(testPlan()))
}

func TestAttempt_FiltersRejectedMethodTypes(t *testing.T) {
	a := NewAttempt(testPlan(), "u", logger.Noop())

	// server refuses publickey outright
	methods := []string{"password", "keyboard-interactive"}
	for {
		offer, ok := a.Next(methods, false)
		if !ok {
			break
		}
		assert.NotEqual(t, authplan.KindPublicKey, offer.Kind)
		assert.NotEqual(t, authplan.KindAgent, offer.Kind)
	}
}

func TestAttempt_AgentCountsAsPublickey(t *testing.T) {
	plan := authplan.Plan{
		{Kind: authplan.KindAgent, ID: authplan.IDAgent, AgentSocket: "/a"},
	}
	a := NewAttempt(plan, "u", logger.Noop())

	offer, ok := a.Next([]string{"publickey"}, false)
	require.True(t, ok)
	assert.Equal(t, authplan.KindAgent, offer.Kind)
}

func TestAttempt_ExhaustionIsTerminal(t *testing.T) {
	a := NewAttempt(testPlan(), "u", logger.Noop())

	for {
		if _, ok := a.Next(nil, false); !ok {
			break
		}
	}

	// once exhausted, stays exhausted
	for i := 0; i < 3; i++ {
		_, ok := a.Next(nil, false)
		assert.False(t, ok)
	}
}

func TestAttempt_EmptyPlan(t *testing.T) {
	a := NewAttempt(nil, "u", logger.Noop())
	_, ok := a.Next(nil, false)
	assert.False(t, ok)
}

func TestAttempt_OffersCarryMaterial(t *testing.T) {
	a := NewAttempt(testPlan(), "u", logger.Noop())

	offer, ok := a.Next(nil, false)
	require.True(t, ok)
	assert.Equal(t, "pw", offer.Password)

	offer, ok = a.Next(nil, false)
	require.True(t, ok)
	assert.Equal(t, "/tmp/agent.sock", offer.AgentSocket)

	offer, ok = a.Next(nil, false)
	require.True(t, ok)
	assert.Equal(t, []byte("ed"), offer.Key)

	offer, ok = a.Next(nil, false)
	require.True(t, ok)
	assert.Equal(t, "p", offer.Passphrase)
}

func TestAttempt_AttemptedTracksOffers(t *testing.T) {
	a := NewAttempt(testPlan(), "u", logger.Noop())

	a.Next(nil, false)
	a.Next(nil, false)

	assert.Equal(t, []string{authplan.IDPassword, authplan.IDAgent}, a.Attempted())
}
