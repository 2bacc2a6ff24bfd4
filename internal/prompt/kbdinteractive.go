package prompt

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dwhitley/credflow/internal/errors"
)

// KeyboardInteractiveChallenge returns a challenge function in the shape
// golang.org/x/crypto/ssh expects, bridging server prompt rounds to the
// surface. A zero-prompt round completes immediately; some servers use one
// purely as a handshake step. There is no timeout on this path, only the
// caller's ctx and the outer connection bound it.
func (b *Broker) KeyboardInteractiveChallenge(ctx context.Context, surface Surface, sessionID, hostname, savedPassword string) func(name, instruction string, questions []string, echos []bool) ([]string, error) {
	return func(name, instruction string, questions []string, echos []bool) ([]string, error) {
		if len(questions) == 0 {
			return []string{}, nil
		}
		if len(questions) != len(echos) {
			return nil, fmt.Errorf("bad challenge from server: %d questions, %d echo flags", len(questions), len(echos))
		}
		if surface == nil || !surface.Alive() {
			return nil, errors.New(errors.ErrPrompt,
				"Keyboard-interactive challenge with no surface to answer it",
				"Reconnect with an interactive session")
		}

		prompts := make([]KeyboardInteractivePrompt, len(questions))
		for i, q := range questions {
			prompts[i] = KeyboardInteractivePrompt{Prompt: q, Echo: echos[i]}
		}

		id := uuid.NewString()
		ch := make(chan []string, 1)
		b.kiMu.Lock()
		b.kiPending[id] = ch
		b.kiMu.Unlock()

		err := surface.SendKeyboardInteractive(KeyboardInteractiveRequest{
			RequestID:     id,
			SessionID:     sessionID,
			Name:          name,
			Instructions:  instruction,
			Prompts:       prompts,
			Hostname:      hostname,
			SavedPassword: savedPassword,
		})
		if err != nil {
			b.kiMu.Lock()
			delete(b.kiPending, id)
			b.kiMu.Unlock()
			return nil, errors.WrapWithCode(err, errors.ErrPrompt,
				"Could not deliver keyboard-interactive challenge",
				"The UI surface rejected the prompt; try reconnecting")
		}

		select {
		case answers, ok := <-ch:
			if !ok {
				return nil, errors.New(errors.ErrPrompt,
					"Keyboard-interactive challenge abandoned",
					"The prompt broker was shut down mid-challenge")
			}
			return answers, nil
		case <-ctx.Done():
			b.kiMu.Lock()
			delete(b.kiPending, id)
			b.kiMu.Unlock()
			return nil, ctx.Err()
		}
	}
}

// ResolveKeyboardInteractive delivers the surface's ordered answers for a
// pending challenge. Returns false for unknown or already-resolved ids.
func (b *Broker) ResolveKeyboardInteractive(requestID string, answers []string) bool {
	b.kiMu.Lock()
	ch, ok := b.kiPending[requestID]
	if ok {
		delete(b.kiPending, requestID)
	}
	b.kiMu.Unlock()

	if !ok {
		b.log.Debug("stale keyboard-interactive response for %s", requestID)
		return false
	}
	ch <- answers
	return true
}

// NewSessionID generates an id correlating all prompts of one connection
// attempt.
func NewSessionID() string {
	return uuid.NewString()
}
