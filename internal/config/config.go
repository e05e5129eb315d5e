// Package config loads pkgops settings from ~/.pkgops/config.yaml and from
// PKGOPS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	homeDir   = ".pkgops"
	fileName  = "config"
	fileType  = "yaml"
	envPrefix = "PKGOPS"
)

// Keys.
const (
	KeyPackageManager = "package_manager"
	KeyRegistry       = "registry"
	KeyConfigFile     = "config_file"
	KeyLogDir         = "log_dir"
	KeyTimeout        = "timeout"
)

// Keys lists every recognised key in display order.
var Keys = []string{KeyPackageManager, KeyRegistry, KeyConfigFile, KeyLogDir, KeyTimeout}

// Config is the resolved configuration for one run.
type Config struct {
	// PackageManager is used when the project has no lockfile. Empty means
	// the built-in default.
	PackageManager string        `mapstructure:"package_manager"`
	Registry       string        `mapstructure:"registry"`
	ConfigFile     string        `mapstructure:"config_file"`
	LogDir         string        `mapstructure:"log_dir"`
	Timeout        time.Duration `mapstructure:"timeout"`

	// Path is the config file that was consulted. It may not exist.
	Path string `mapstructure:"-"`
}

// Dir returns ~/.pkgops, or ./.pkgops when the home directory is unknown.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", homeDir)
	}
	return filepath.Join(home, homeDir)
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

func defaults(v *viper.Viper) {
	v.SetDefault(KeyPackageManager, "")
	v.SetDefault(KeyRegistry, "https://registry.npmjs.org")
	v.SetDefault(KeyConfigFile, "package.json")
	v.SetDefault(KeyLogDir, Dir())
	v.SetDefault(KeyTimeout, 10*time.Second)
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType(fileType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path (DefaultPath when empty) merged over defaults and under
// the environment. A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	v := newViper(path)
	defaults(v)
	if err := read(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	cfg.Path = path
	cfg.LogDir = ExpandHome(cfg.LogDir)
	return &cfg, nil
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

func read(v *viper.Viper) error {
	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err == nil || errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("read config %s: %w", v.ConfigFileUsed(), err)
}

// Get returns the effective value of key as a string.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case KeyPackageManager:
		return c.PackageManager, nil
	case KeyRegistry:
		return c.Registry, nil
	case KeyConfigFile:
		return c.ConfigFile, nil
	case KeyLogDir:
		return c.LogDir, nil
	case KeyTimeout:
		return c.Timeout.String(), nil
	}
	return "", unknownKey(key)
}

// Set stores key=value in the config file at path (DefaultPath when empty).
// Only keys already in the file and key itself are written; defaults and
// environment values are not persisted.
func Set(path, key, value string) error {
	if !slices.Contains(Keys, key) {
		return unknownKey(key)
	}
	if key == KeyTimeout {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, value, err)
		}
	}
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType(fileType)
	if err := read(v); err != nil {
		return err
	}
	v.Set(key, value)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

func unknownKey(key string) error {
	return fmt.Errorf("unknown config key %q (known: %s)", key, strings.Join(Keys, ", "))
}
