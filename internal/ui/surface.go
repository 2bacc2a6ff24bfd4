// Package ui renders credential prompts on the local terminal. TerminalSurface
// is the interactive implementation of prompt.Surface: passphrase requests and
// keyboard-interactive challenges become huh forms, answers flow back through
// the broker.
package ui

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/dwhitley/credflow/internal/logger"
	"github.com/dwhitley/credflow/internal/prompt"
)

// TerminalSurface answers prompts on the controlling terminal. Send methods
// return immediately; the form runs on its own goroutine and resolves the
// request through the broker when the user is done. Concurrent prompts are
// serialized so forms never interleave on one terminal.
type TerminalSurface struct {
	broker *prompt.Broker
	in     *os.File
	out    *os.File
	log    logger.Logger

	promptMu sync.Mutex

	// Form hooks, replaceable in tests where no TTY exists.
	input   func(title, description string, masked bool) (string, error)
	confirm func(title string) (bool, error)
}

func NewTerminalSurface(broker *prompt.Broker, log logger.Logger) *TerminalSurface {
	if log == nil {
		log = logger.Noop()
	}
	s := &TerminalSurface{
		broker: broker,
		in:     os.Stdin,
		out:    os.Stdout,
		log:    log,
	}
	s.input = s.huhInput
	s.confirm = s.huhConfirm
	return s
}

// Alive reports whether the surface still has a terminal to draw on.
func (s *TerminalSurface) Alive() bool {
	return IsTerminal(s.in)
}

// SendPassphraseRequest starts an asynchronous masked prompt for one key.
func (s *TerminalSurface) SendPassphraseRequest(req prompt.PassphraseRequest) error {
	go s.promptPassphrase(req)
	return nil
}

func (s *TerminalSurface) promptPassphrase(req prompt.PassphraseRequest) {
	s.promptMu.Lock()
	defer s.promptMu.Unlock()

	title := fmt.Sprintf("Enter passphrase for %s", req.KeyName)
	desc := req.KeyPath
	if req.Hostname != "" {
		desc += " (connecting to " + req.Hostname + ")"
	}

	value, err := s.input(title, desc, true)
	if err != nil {
		if !errors.Is(err, huh.ErrUserAborted) {
			s.log.Warn("passphrase prompt failed: %v", err)
		}
		s.broker.ResolvePassphrase(req.RequestID, prompt.PassphraseResult{Cancelled: true})
		return
	}

	// An empty submission is ambiguous: some keys really have empty
	// passphrases, but usually the user wants to move on to the next key.
	if value == "" {
		skip, err := s.confirm(fmt.Sprintf("Skip %s and try the next method?", req.KeyName))
		if err != nil {
			s.broker.ResolvePassphrase(req.RequestID, prompt.PassphraseResult{Cancelled: true})
			return
		}
		if skip {
			s.broker.ResolvePassphrase(req.RequestID, prompt.PassphraseResult{Skipped: true})
			return
		}
	}

	s.broker.ResolvePassphrase(req.RequestID, prompt.PassphraseResult{Passphrase: value})
}

// SendPassphraseTimeout prints a dismissal notice. The expired request was
// already resolved by the broker; there is nothing left to answer.
func (s *TerminalSurface) SendPassphraseTimeout(requestID string) error {
	fmt.Fprintln(s.out, WarningStyle.Render("Passphrase prompt timed out, moving on"))
	s.log.Debug("passphrase request %s expired", requestID)
	return nil
}

// SendKeyboardInteractive starts an asynchronous form for one server
// challenge round, one field per prompt.
func (s *TerminalSurface) SendKeyboardInteractive(req prompt.KeyboardInteractiveRequest) error {
	go s.promptKeyboardInteractive(req)
	return nil
}

func (s *TerminalSurface) promptKeyboardInteractive(req prompt.KeyboardInteractiveRequest) {
	s.promptMu.Lock()
	defer s.promptMu.Unlock()

	if req.Name != "" {
		fmt.Fprintln(s.out, TitleStyle.Render(req.Name))
	}
	if req.Instructions != "" {
		fmt.Fprintln(s.out, MutedStyle.Render(req.Instructions))
	}

	answers := make([]string, len(req.Prompts))
	for i, p := range req.Prompts {
		masked := !p.Echo

		// Offer the already-collected password for the typical
		// single-masked-prompt PAM round.
		if masked && req.SavedPassword != "" && len(req.Prompts) == 1 {
			use, err := s.confirm("Use saved password for " + req.Hostname + "?")
			if err != nil {
				s.broker.ResolveKeyboardInteractive(req.RequestID, nil)
				return
			}
			if use {
				answers[i] = req.SavedPassword
				continue
			}
		}

		value, err := s.input(p.Prompt, "", masked)
		if err != nil {
			if !errors.Is(err, huh.ErrUserAborted) {
				s.log.Warn("keyboard-interactive prompt failed: %v", err)
			}
			s.broker.ResolveKeyboardInteractive(req.RequestID, nil)
			return
		}
		answers[i] = value
	}

	s.broker.ResolveKeyboardInteractive(req.RequestID, answers)
}

func (s *TerminalSurface) huhInput(title, description string, masked bool) (string, error) {
	var value string
	input := huh.NewInput().Title(title).Description(description).Value(&value)
	if masked {
		input = input.EchoMode(huh.EchoModePassword)
	}
	form := huh.NewForm(huh.NewGroup(input)).
		WithTheme(huh.ThemeBase()).
		WithInput(s.in).
		WithOutput(s.out)
	if err := form.Run(); err != nil {
		return "", err
	}
	return value, nil
}

func (s *TerminalSurface) huhConfirm(title string) (bool, error) {
	var ok bool
	form := huh.NewForm(huh.NewGroup(huh.NewConfirm().Title(title).Value(&ok))).
		WithTheme(huh.ThemeBase()).
		WithInput(s.in).
		WithOutput(s.out)
	if err := form.Run(); err != nil {
		return false, err
	}
	return ok, nil
}

// IsTerminal returns true if the file descriptor is a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
