// Package prompt brokers asynchronous credential prompts between the
// authentication engine and a UI surface: passphrase requests with a bounded
// lifetime, and keyboard-interactive challenges relayed from the server.
//
// Every request resolves exactly once, whether by user response, timeout,
// cancellation, or the surface going away.
package prompt

// PassphraseRequest asks the surface for one key's passphrase.
type PassphraseRequest struct {
	RequestID string
	KeyPath   string
	KeyName   string
	Hostname  string
}

// KeyboardInteractivePrompt is a single server-issued prompt. Echo false
// prompts must be rendered as masked input by the surface; the broker does
// not mask values itself.
type KeyboardInteractivePrompt struct {
	Prompt string
	Echo   bool
}

// KeyboardInteractiveRequest forwards a server challenge round to the surface.
// SavedPassword, when present, lets the surface offer a prefill for
// password-like prompts.
type KeyboardInteractiveRequest struct {
	RequestID     string
	SessionID     string
	Name          string
	Instructions  string
	Prompts       []KeyboardInteractivePrompt
	Hostname      string
	SavedPassword string
}

// Surface is the UI endpoint prompts are delivered to. Implementations reply
// through the broker's Resolve methods, keyed by request id.
type Surface interface {
	SendPassphraseRequest(PassphraseRequest) error

	// SendPassphraseTimeout tells the surface to dismiss a prompt whose
	// request expired. Notification only, no reply expected.
	SendPassphraseTimeout(requestID string) error

	SendKeyboardInteractive(KeyboardInteractiveRequest) error

	// Alive reports whether the surface can still receive prompts.
	Alive() bool
}
