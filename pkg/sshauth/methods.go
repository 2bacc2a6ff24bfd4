package sshauth

import (
	"context"
	"net"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"

	"github.com/dwhitley/credflow/internal/authplan"
	"github.com/dwhitley/credflow/internal/prompt"
)

// keyboardInteractiveAttempts bounds how many challenge rounds one
// keyboard-interactive method may run before the transport gives up on it.
const keyboardInteractiveAttempts = 3

// AuthMethods converts a plan into ordered ssh.AuthMethod values, walking the
// attempt state machine so each plan entry is offered at most once. Entries
// whose key material fails to parse are skipped with a warning rather than
// poisoning the whole negotiation.
//
// ctx bounds keyboard-interactive prompt rounds; surface answers them.
func (e *Engine) AuthMethods(ctx context.Context, plan authplan.Plan, username, hostname string, surface prompt.Surface, savedPassword string) []ssh.AuthMethod {
	attempt := e.NewAttempt(plan, username)
	sessionID := prompt.NewSessionID()

	var methods []ssh.AuthMethod
	for {
		offer, ok := attempt.Next(nil, false)
		if !ok {
			break
		}

		switch offer.Kind {
		case authplan.KindPublicKey:
			method, err := publicKeyMethod(offer.Key, offer.Passphrase)
			if err != nil {
				e.log.Warn("skipping key %s: %v", offer.ID, err)
				continue
			}
			methods = append(methods, method)

		case authplan.KindAgent:
			method := e.agentMethod(offer.AgentSocket)
			if method == nil {
				continue
			}
			methods = append(methods, method)

		case authplan.KindPassword:
			methods = append(methods, ssh.Password(offer.Password))

		case authplan.KindKeyboardInteractive:
			challenge := e.broker.KeyboardInteractiveChallenge(ctx, surface,
				sessionID, hostname, savedPassword)
			methods = append(methods, ssh.RetryableAuthMethod(
				ssh.KeyboardInteractive(challenge), keyboardInteractiveAttempts))
		}
	}

	return methods
}

// publicKeyMethod parses key material into a single-signer auth method.
func publicKeyMethod(key []byte, passphrase string) (ssh.AuthMethod, error) {
	var signer ssh.Signer
	var err error
	if passphrase != "" {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(key, []byte(passphrase))
	} else {
		signer, err = ssh.ParsePrivateKey(key)
	}
	if err != nil {
		return nil, err
	}
	return ssh.PublicKeys(signer), nil
}

// agentMethod connects to the agent at socket and returns an auth method
// backed by its keys. An unreachable or empty agent yields nil; an empty
// agent placed early in the order would otherwise burn an auth attempt.
func (e *Engine) agentMethod(socket string) ssh.AuthMethod {
	if socket == "" {
		return nil
	}

	conn, err := net.Dial("unix", socket)
	if err != nil {
		e.log.Debug("agent at %s unreachable: %v", socket, err)
		return nil
	}

	client := agent.NewClient(conn)
	signers, err := client.Signers()
	if err != nil || len(signers) == 0 {
		conn.Close()
		return nil
	}

	return ssh.PublicKeysCallback(client.Signers)
}
