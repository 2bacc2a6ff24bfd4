package sshauth

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	stderrors "errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/dwhitley/credflow/internal/authplan"
	"github.com/dwhitley/credflow/internal/hardware"
	"github.com/dwhitley/credflow/internal/keyscan"
	"github.com/dwhitley/credflow/internal/logger"
	"github.com/dwhitley/credflow/internal/prompt"
)

func generateKeyPEM(t *testing.T, passphrase string) []byte {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	var block *pem.Block
	if passphrase != "" {
		block, err = ssh.MarshalPrivateKeyWithPassphrase(priv, "", []byte(passphrase))
	} else {
		block, err = ssh.MarshalPrivateKey(priv, "")
	}
	require.NoError(t, err)
	return pem.EncodeToMemory(block)
}

// scriptedSurface answers each passphrase request with the next scripted
// result through the broker.
type scriptedSurface struct {
	broker  *prompt.Broker
	mu      sync.Mutex
	results []prompt.PassphraseResult
}

func (s *scriptedSurface) SendPassphraseRequest(req prompt.PassphraseRequest) error {
	s.mu.Lock()
	res := s.results[0]
	s.results = s.results[1:]
	s.mu.Unlock()
	go s.broker.ResolvePassphrase(req.RequestID, res)
	return nil
}

func (s *scriptedSurface) SendPassphraseTimeout(string) error                    { return nil }
func (s *scriptedSurface) SendKeyboardInteractive(prompt.KeyboardInteractiveRequest) error { return nil }
func (s *scriptedSurface) Alive() bool                                           { return true }

type fakeProvider struct {
	keys []authplan.UnlockedKey
	err  error
}

func (p *fakeProvider) ProvideKeys(ctx context.Context) ([]authplan.UnlockedKey, error) {
	return p.keys, p.err
}

func newTestEngine(t *testing.T, dir string, providers ...hardware.KeyProvider) *Engine {
	t.Helper()
	t.Setenv("SSH_AUTH_SOCK", "")

	e := NewEngine(Options{
		Locator:   keyscan.NewLocator(dir, logger.Noop()),
		Providers: providers,
		Log:       logger.Noop(),
	})
	t.Cleanup(e.Close)
	return e
}

func TestBuildPlanUnlocksEncryptedDefaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "id_rsa"), generateKeyPEM(t, ""), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "id_ed25519"), generateKeyPEM(t, "pp"), 0600))

	e := newTestEngine(t, dir)
	surface := &scriptedSurface{
		broker:  e.Broker(),
		results: []prompt.PassphraseResult{{Passphrase: "pp"}},
	}

	plan, cancelled, err := e.BuildPlan(context.Background(), PlanRequest{
		Hostname:   "example.com",
		Surface:    surface,
		UnlockKeys: true,
	})
	require.NoError(t, err)
	assert.False(t, cancelled)

	assert.Equal(t, []string{
		authplan.DefaultKeyID("id_rsa"),
		authplan.DefaultKeyID("id_ed25519"),
		authplan.IDKeyboardInteractive,
	}, plan.IDs())

	// The unlocked entry carries the passphrase collected from the surface.
	assert.Equal(t, "pp", plan[1].Passphrase)
}

func TestBuildPlanCancelledUnlock(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "id_ed25519"), generateKeyPEM(t, "pp"), 0600))

	e := newTestEngine(t, dir)
	surface := &scriptedSurface{
		broker:  e.Broker(),
		results: []prompt.PassphraseResult{{Cancelled: true}},
	}

	plan, cancelled, err := e.BuildPlan(context.Background(), PlanRequest{
		Hostname:   "example.com",
		Surface:    surface,
		UnlockKeys: true,
	})
	require.NoError(t, err)
	assert.True(t, cancelled)
	assert.Empty(t, plan)
}

func TestBuildPlanNoSurfaceSkipsUnlock(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "id_ed25519"), generateKeyPEM(t, "pp"), 0600))

	e := newTestEngine(t, dir)

	plan, cancelled, err := e.BuildPlan(context.Background(), PlanRequest{
		Hostname:   "example.com",
		UnlockKeys: true,
	})
	require.NoError(t, err)
	assert.False(t, cancelled)

	// The encrypted key never makes it into the plan.
	assert.Equal(t, []string{authplan.IDKeyboardInteractive}, plan.IDs())
}

func TestBuildPlanProviderKeys(t *testing.T) {
	dir := t.TempDir()
	provider := &fakeProvider{keys: []authplan.UnlockedKey{{
		DiscoveredKey: keyscan.DiscoveredKey{
			Bytes: generateKeyPEM(t, "hw"),
			Path:  "/hw/id_ed25519_bio",
			Name:  "id_ed25519_bio",
		},
		Passphrase: "hw",
	}}}

	e := newTestEngine(t, dir, provider)

	plan, cancelled, err := e.BuildPlan(context.Background(), PlanRequest{Hostname: "example.com"})
	require.NoError(t, err)
	assert.False(t, cancelled)
	assert.Equal(t, []string{
		authplan.DefaultKeyID("id_ed25519_bio"),
		authplan.IDKeyboardInteractive,
	}, plan.IDs())
}

func TestBuildPlanProviderError(t *testing.T) {
	provider := &fakeProvider{err: stderrors.New("verification declined")}
	e := newTestEngine(t, t.TempDir(), provider)

	_, _, err := e.BuildPlan(context.Background(), PlanRequest{Hostname: "example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declined")
}

func TestBuildPlanExplicitPassword(t *testing.T) {
	e := newTestEngine(t, t.TempDir())

	plan, _, err := e.BuildPlan(context.Background(), PlanRequest{
		Hostname: "example.com",
		Explicit: authplan.Explicit{Password: "hunter2", HasPassword: true},
	})
	require.NoError(t, err)
	require.NotEmpty(t, plan)
	assert.Equal(t, authplan.IDPassword, plan.IDs()[0])
}
