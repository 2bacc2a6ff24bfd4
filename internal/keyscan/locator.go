package keyscan

import (
	"os"
	"path/filepath"

	"github.com/dwhitley/credflow/internal/logger"
)

// DiscoveredKey is a private key found under a canonical filename in the
// key directory. The bytes are read once at discovery and never mutated.
type DiscoveredKey struct {
	Bytes     []byte
	Path      string
	Name      string
	Encrypted bool
}

// defaultKeyNames is the fixed scan order. Ed25519 first, then ecdsa, then
// rsa: a security/compatibility preference the rest of the engine relies on
// when promoting the "strongest identity" into the auth plan.
var defaultKeyNames = []string{"id_ed25519", "id_ecdsa", "id_rsa"}

// DefaultKeyDir returns the user's standard SSH key directory.
func DefaultKeyDir() string {
	return filepath.Join(homeDir(), ".ssh")
}

// Locator scans the canonical key filenames inside a single directory.
type Locator struct {
	dir string
	log logger.Logger
}

// NewLocator creates a Locator for the given key directory.
// An empty dir means the user's ~/.ssh.
func NewLocator(dir string, log logger.Logger) *Locator {
	if dir == "" {
		dir = DefaultKeyDir()
	}
	if log == nil {
		log = logger.Noop()
	}
	return &Locator{dir: dir, log: log}
}

// Dir returns the directory this locator scans.
func (l *Locator) Dir() string {
	return l.dir
}

// FindDefaultKeys scans the canonical key filenames in order and returns
// every readable key. Encrypted keys are included, flagged, only when
// includeEncrypted is true; callers that want immediately-usable keys pass
// false. Unreadable files are skipped silently: partial results are normal.
func (l *Locator) FindDefaultKeys(includeEncrypted bool) []DiscoveredKey {
	var keys []DiscoveredKey

	for _, name := range defaultKeyNames {
		path := filepath.Join(l.dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			l.log.Debug("skipping %s: %v", path, err)
			continue
		}

		encrypted := IsEncrypted(data)
		if encrypted && !includeEncrypted {
			l.log.Debug("skipping encrypted key %s", path)
			continue
		}

		keys = append(keys, DiscoveredKey{
			Bytes:     data,
			Path:      path,
			Name:      name,
			Encrypted: encrypted,
		})
	}

	return keys
}

// FindEncryptedKeys returns only the encrypted default keys, in scan order.
func (l *Locator) FindEncryptedKeys() []DiscoveredKey {
	var encrypted []DiscoveredKey
	for _, key := range l.FindDefaultKeys(true) {
		if key.Encrypted {
			encrypted = append(encrypted, key)
		}
	}
	return encrypted
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}
