package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dwhitley/credflow/internal/errors"
)

// Save writes the config as YAML. The file is created 0600 since host
// entries may carry passwords and passphrases.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot serialize config",
			"This is a bug; please report it")
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot write "+path,
			"Check directory permissions")
	}
	return nil
}
