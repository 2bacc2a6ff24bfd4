package hardware

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/pem"
	"os"
	"path/filepath"

	"golang.org/x/crypto/ssh"

	"github.com/dwhitley/credflow/internal/authplan"
	"github.com/dwhitley/credflow/internal/errors"
	"github.com/dwhitley/credflow/internal/keyscan"
	"github.com/dwhitley/credflow/internal/logger"
)

// SecretStore is an opaque handle to OS-secure credential storage
// (Keychain, TPM-backed vaults, libsecret). Secrets are keyed by ID.
type SecretStore interface {
	Store(id string, secret []byte) error
	Retrieve(id string) ([]byte, error)
}

// PlatformVerifier gates secret release behind the OS user-presence check
// (Touch ID, Windows Hello). It returns false when the user declined.
type PlatformVerifier interface {
	VerifyPlatformUser(ctx context.Context) (bool, error)
}

// BiometricProvider manages an SSH key whose passphrase never leaves the
// OS secret store. Generation encrypts a fresh ed25519 key under a random
// passphrase and parks that passphrase in the store; unlocking requires a
// successful platform user verification first.
type BiometricProvider struct {
	store    SecretStore
	verifier PlatformVerifier
	keyPath  string
	log      logger.Logger
}

func NewBiometricProvider(store SecretStore, verifier PlatformVerifier, keyPath string, log logger.Logger) *BiometricProvider {
	if log == nil {
		log = logger.Noop()
	}
	return &BiometricProvider{store: store, verifier: verifier, keyPath: keyPath, log: log}
}

// CheckSupport reports whether both halves of the flow are wired.
func (p *BiometricProvider) CheckSupport() Support {
	if p.store == nil {
		return Support{Reason: "no platform secret store available"}
	}
	if p.verifier == nil {
		return Support{Reason: "no platform user verifier available"}
	}
	return Support{Supported: true}
}

// Generate creates the protected key pair at the configured path. The
// passphrase is 32 bytes of entropy and is only ever held in the secret
// store; it is not part of the result.
func (p *BiometricProvider) Generate(ctx context.Context, comment string) GenerateResult {
	if s := p.CheckSupport(); !s.Supported {
		return GenerateResult{Error: s.Reason}
	}
	if _, err := os.Stat(p.keyPath); err == nil {
		return GenerateResult{Error: "key " + p.keyPath + " already exists"}
	}

	passphrase, err := randomPassphrase()
	if err != nil {
		return GenerateResult{Error: "cannot generate passphrase: " + err.Error()}
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return GenerateResult{Error: "cannot generate key: " + err.Error()}
	}
	block, err := ssh.MarshalPrivateKeyWithPassphrase(priv, comment, []byte(passphrase))
	if err != nil {
		return GenerateResult{Error: "cannot encrypt key: " + err.Error()}
	}
	privPEM := pem.EncodeToMemory(block)

	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		return GenerateResult{Error: "cannot encode public key: " + err.Error()}
	}
	pubLine := ssh.MarshalAuthorizedKey(sshPub)

	if err := p.store.Store(p.secretID(), []byte(passphrase)); err != nil {
		return GenerateResult{Error: "cannot store passphrase: " + err.Error()}
	}

	if err := os.MkdirAll(filepath.Dir(p.keyPath), 0700); err != nil {
		return GenerateResult{Error: "cannot create key directory: " + err.Error()}
	}
	if err := os.WriteFile(p.keyPath, privPEM, 0600); err != nil {
		return GenerateResult{Error: "cannot write key: " + err.Error()}
	}
	if err := os.WriteFile(p.keyPath+".pub", pubLine, 0644); err != nil {
		return GenerateResult{Error: "cannot write public key: " + err.Error()}
	}

	p.log.Debug("generated protected key at %s", p.keyPath)
	return GenerateResult{Success: true, PrivateKey: privPEM, PublicKey: pubLine}
}

// ProvideKeys unlocks the protected key for use in an authentication plan.
// No key on disk means nothing to offer. A declined verification is an
// error: the caller must not silently fall through to other methods as if
// the key did not exist.
func (p *BiometricProvider) ProvideKeys(ctx context.Context) ([]authplan.UnlockedKey, error) {
	data, err := os.ReadFile(p.keyPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.WrapWithCode(err, errors.ErrHardware, "failed to read protected key",
			"Check permissions on "+p.keyPath)
	}

	ok, err := p.verifier.VerifyPlatformUser(ctx)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrHardware, "platform user verification failed",
			"Retry, or remove the protected key to stop using it")
	}
	if !ok {
		return nil, errors.New(errors.ErrHardware, "platform user verification declined",
			"Approve the verification prompt to unlock your protected key")
	}

	secret, err := p.store.Retrieve(p.secretID())
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrHardware, "passphrase missing from secret store",
			"Regenerate the protected key; its passphrase is no longer recoverable")
	}

	return []authplan.UnlockedKey{{
		DiscoveredKey: keyscan.DiscoveredKey{
			Bytes:     data,
			Path:      p.keyPath,
			Name:      filepath.Base(p.keyPath),
			Encrypted: true,
		},
		Passphrase: string(secret),
	}}, nil
}

func (p *BiometricProvider) secretID() string {
	return "credflow/" + filepath.Base(p.keyPath)
}

func randomPassphrase() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawStdEncoding.EncodeToString(raw), nil
}
