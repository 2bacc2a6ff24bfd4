package authflow

import (
	"context"

	"github.com/dwhitley/credflow/internal/authplan"
	"github.com/dwhitley/credflow/internal/keyscan"
	"github.com/dwhitley/credflow/internal/logger"
	"github.com/dwhitley/credflow/internal/prompt"
)

// UnlockResult holds the keys unlocked before the flow ended and whether the
// user cancelled the remainder.
type UnlockResult struct {
	Keys      []authplan.UnlockedKey
	Cancelled bool
}

// UnlockEncryptedDefaultKeys prompts for each encrypted default key, one at
// a time, in discovery priority order. Sequential on purpose: one prompt at
// a time keeps the user oriented and lets an early cancel short-circuit the
// rest.
//
// A cancel response stops the whole flow; a skip abandons only that key; a
// nil answer (timeout, dead surface) is logged and the flow continues.
func UnlockEncryptedDefaultKeys(ctx context.Context, broker *prompt.Broker, surface prompt.Surface, locator *keyscan.Locator, hostname string, log logger.Logger) UnlockResult {
	if log == nil {
		log = logger.Noop()
	}

	var result UnlockResult
	for _, key := range locator.FindEncryptedKeys() {
		answer := broker.RequestPassphrase(ctx, surface, key.Path, key.Name, hostname)
		switch {
		case answer == nil:
			log.Warn("no passphrase obtained for %s, continuing", key.Name)
		case answer.Cancelled:
			log.Debug("unlock flow cancelled at %s", key.Name)
			result.Cancelled = true
			return result
		case answer.Skipped:
			log.Debug("user skipped %s", key.Name)
		default:
			result.Keys = append(result.Keys, authplan.UnlockedKey{
				DiscoveredKey: key,
				Passphrase:    answer.Passphrase,
			})
		}
	}
	return result
}
