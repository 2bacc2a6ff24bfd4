// Package hardware supplies key material backed by FIDO2 security keys and
// OS platform authenticators. Providers are pluggable producers of
// (private key, passphrase) pairs that feed the same authentication plan as
// on-disk keys.
package hardware

import (
	"context"

	"github.com/dwhitley/credflow/internal/authplan"
)

// KeyProvider produces ready-to-use key material through its own, possibly
// interactive, device flow. Implementations must honor ctx cancellation;
// a provider with nothing to offer returns an empty slice, not an error.
type KeyProvider interface {
	ProvideKeys(ctx context.Context) ([]authplan.UnlockedKey, error)
}

// Device is one attached authenticator.
type Device struct {
	Path         string
	Manufacturer string
	Product      string
}

// Support reports whether a provider can run on this system, with a
// human-readable reason when it cannot.
type Support struct {
	Supported bool
	Reason    string
}

// GenerateResult is the outcome of a key generation flow.
type GenerateResult struct {
	Success    bool
	PublicKey  []byte
	PrivateKey []byte
	Error      string
}
