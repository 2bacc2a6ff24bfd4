package hardware

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dwhitley/credflow/internal/errors"
	"github.com/dwhitley/credflow/internal/logger"
)

// GenerateTimeout is the hard ceiling on one key generation. The spawned
// ssh-keygen is killed when it elapses, even if the user is mid-touch.
const GenerateTimeout = 120 * time.Second

// FIDO2GenerateOptions controls generation of a security-key-backed SSH key.
type FIDO2GenerateOptions struct {
	RequestID   string
	Dir         string // destination directory, defaults to ~/.ssh
	Name        string // key file basename, defaults to id_ed25519_sk
	Comment     string
	Application string // relying party, passed as -O application=
	Resident    bool
	Passphrase  string
}

// FIDO2Provider drives ssh-keygen and fido2-token to enumerate security
// keys and mint ed25519-sk keys on them. Each in-flight generation is
// registered under its request ID so it can be cancelled from another
// goroutine while the user interaction is pending.
type FIDO2Provider struct {
	log logger.Logger

	keygenPath string
	tokenPath  string
	timeout    time.Duration

	// TouchNotify, when set, fires just before the device interaction
	// starts so the UI can tell the user to touch the key.
	TouchNotify func(requestID string)

	mu     sync.Mutex
	active map[string]context.CancelFunc
}

func NewFIDO2Provider(log logger.Logger) *FIDO2Provider {
	if log == nil {
		log = logger.Noop()
	}
	return &FIDO2Provider{
		log:        log,
		keygenPath: "ssh-keygen",
		tokenPath:  "fido2-token",
		timeout:    GenerateTimeout,
		active:     make(map[string]context.CancelFunc),
	}
}

// CheckSupport reports whether security-key generation can work here.
func (p *FIDO2Provider) CheckSupport() Support {
	if _, err := exec.LookPath(p.keygenPath); err != nil {
		return Support{Reason: "ssh-keygen not found in PATH"}
	}
	return Support{Supported: true}
}

// ListDevices enumerates attached FIDO2 authenticators via fido2-token -L.
// A missing fido2-token binary is reported as no devices, not an error.
func (p *FIDO2Provider) ListDevices(ctx context.Context) ([]Device, error) {
	if _, err := exec.LookPath(p.tokenPath); err != nil {
		p.log.Debug("fido2-token not installed, no devices")
		return nil, nil
	}

	out, err := exec.CommandContext(ctx, p.tokenPath, "-L").Output()
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrHardware, "failed to list security keys",
			"Check that your security key is plugged in and permissions allow access")
	}
	return parseTokenList(out), nil
}

// fido2-token -L prints one device per line:
//
//	/dev/hidraw2: vendor=0x1050, product=0x0407 (Yubico YubiKey OTP+FIDO+CCID)
func parseTokenList(out []byte) []Device {
	var devices []Device
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		path, rest, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		dev := Device{Path: strings.TrimSpace(path)}
		if open := strings.Index(rest, "("); open >= 0 {
			desc := strings.TrimSuffix(strings.TrimSpace(rest[open+1:]), ")")
			if maker, product, ok := strings.Cut(desc, " "); ok {
				dev.Manufacturer = maker
				dev.Product = product
			} else {
				dev.Product = desc
			}
		}
		devices = append(devices, dev)
	}
	return devices
}

// Generate mints an ed25519-sk key pair on the attached security key. The
// user must touch the key to approve; the flow is bounded by GenerateTimeout
// and can be aborted early through Cancel with the same request ID.
func (p *FIDO2Provider) Generate(ctx context.Context, opts FIDO2GenerateOptions) GenerateResult {
	dir := opts.Dir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return GenerateResult{Error: "cannot determine home directory: " + err.Error()}
		}
		dir = filepath.Join(home, ".ssh")
	}
	name := opts.Name
	if name == "" {
		name = "id_ed25519_sk"
	}
	keyPath := filepath.Join(dir, name)

	if _, err := os.Stat(keyPath); err == nil {
		return GenerateResult{Error: fmt.Sprintf("key %s already exists", keyPath)}
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return GenerateResult{Error: "cannot create key directory: " + err.Error()}
	}

	genCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if opts.RequestID != "" {
		p.mu.Lock()
		p.active[opts.RequestID] = cancel
		p.mu.Unlock()
		defer func() {
			p.mu.Lock()
			delete(p.active, opts.RequestID)
			p.mu.Unlock()
		}()
	}

	args := []string{"-t", "ed25519-sk", "-f", keyPath, "-N", opts.Passphrase, "-C", opts.Comment}
	if opts.Resident {
		args = append(args, "-O", "resident")
	}
	if opts.Application != "" {
		args = append(args, "-O", "application="+opts.Application)
	}

	if p.TouchNotify != nil {
		p.TouchNotify(opts.RequestID)
	}
	p.log.Debug("generating %s, touch your security key", keyPath)

	cmd := exec.CommandContext(genCtx, p.keygenPath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		// Partial files left behind by a killed ssh-keygen are garbage.
		os.Remove(keyPath)
		os.Remove(keyPath + ".pub")
		switch {
		case genCtx.Err() == context.DeadlineExceeded:
			return GenerateResult{Error: "security key generation timed out waiting for touch"}
		case genCtx.Err() == context.Canceled:
			return GenerateResult{Error: "security key generation cancelled"}
		default:
			return GenerateResult{Error: fmt.Sprintf("ssh-keygen failed: %s", strings.TrimSpace(string(out)))}
		}
	}

	priv, err := os.ReadFile(keyPath)
	if err != nil {
		return GenerateResult{Error: "generated key unreadable: " + err.Error()}
	}
	pub, err := os.ReadFile(keyPath + ".pub")
	if err != nil {
		return GenerateResult{Error: "generated public key unreadable: " + err.Error()}
	}
	return GenerateResult{Success: true, PrivateKey: priv, PublicKey: pub}
}

// Cancel aborts the in-flight generation registered under requestID. It
// reports whether such a generation existed.
func (p *FIDO2Provider) Cancel(requestID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	cancel, ok := p.active[requestID]
	if ok {
		cancel()
		delete(p.active, requestID)
	}
	return ok
}
