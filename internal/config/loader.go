package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/dwhitley/credflow/internal/errors"
)

const (
	// ConfigFileName is the per-directory config file name.
	ConfigFileName = ".credflow.yaml"
	// GlobalConfigDir holds the user-wide config, relative to $HOME.
	GlobalConfigDir = ".config/credflow"
	// GlobalConfigFile is the file name inside GlobalConfigDir.
	GlobalConfigFile = "config.yaml"
)

// Load reads and parses the config file at path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Config file not found",
				"Create "+ConfigFileName+" or specify one with --config")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read config file",
			"Check the file exists and is valid YAML")
	}

	return parseConfig(v, path)
}

// Find locates the config file. Search order: the explicit --config path,
// .credflow.yaml in the current directory, then parent directories up to the
// git root or home, then the global ~/.config/credflow/config.yaml.
// An empty return with nil error means no config exists anywhere.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine current directory",
			"Check directory permissions")
	}

	home, _ := os.UserHomeDir()
	for dir := cwd; ; {
		candidate := filepath.Join(dir, ConfigFileName)
		if fileExists(candidate) {
			return candidate, nil
		}
		// A git root marks the project boundary; searching above it would
		// pick up unrelated configs.
		if dir != cwd && fileExists(filepath.Join(dir, ".git")) {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir || parent == home {
			break
		}
		dir = parent
	}

	if home != "" {
		global := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
		if fileExists(global) {
			return global, nil
		}
	}

	return "", nil
}

// LoadOrDefault loads the first config found, or the built-in defaults when
// none exists. Commands that must work pre-init go through this.
func LoadOrDefault() (*Config, error) {
	path, err := Find("")
	if err != nil {
		return nil, err
	}
	if path == "" {
		return DefaultConfig(), nil
	}
	return Load(path)
}

func parseConfig(v *viper.Viper, path string) (*Config, error) {
	cfg := DefaultConfig()

	v.SetDefault("unlock_keys", true)

	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax in "+path)
	}

	cfg.KeyDir = expandPath(cfg.KeyDir)
	for name, host := range cfg.Hosts {
		host.Key = expandPath(host.Key)
		cfg.Hosts[name] = host
	}

	return cfg, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}
