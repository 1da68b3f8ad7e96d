// Package config loads kspec settings from a config file, KSPEC_*
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// AppName is used for the config directory and the env prefix.
	AppName = "kspec"
	// FileName is the config file name without extension.
	FileName = "config"
)

// Config holds every setting kspec reads.
type Config struct {
	// Jupyter is the executable used for kernel discovery.
	Jupyter string `mapstructure:"jupyter"`
	// Prefix is where env-kernel writes bin/jupyter-kernel-<name>.
	Prefix string `mapstructure:"prefix"`
	// Kind is the default environment kind for env-kernel.
	Kind string `mapstructure:"kind"`
	// Shell runs activation sessions.
	Shell string `mapstructure:"shell"`
	// Python is the interpreter name inside activated environments.
	Python string `mapstructure:"python"`
	// MinIpykernel is the oldest ipykernel env-kernel accepts.
	MinIpykernel string `mapstructure:"min_ipykernel"`
	// Activate overrides the activation command per kind.
	Activate ActivateConfig `mapstructure:"activate"`
	// PathPrefixes adds <prefix>/share/jupyter/kernels for every
	// <prefix>/bin on $PATH to the kernel search.
	PathPrefixes bool `mapstructure:"path_prefixes"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`
}

// ActivateConfig holds per-kind activation commands.
type ActivateConfig struct {
	Conda string `mapstructure:"conda"`
	Venv  string `mapstructure:"venv"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Jupyter:      "jupyter",
		Prefix:       "/usr/local",
		Kind:         "conda",
		Shell:        "bash",
		Python:       "python",
		MinIpykernel: "4.0.0",
		Activate: ActivateConfig{
			Conda: "source activate",
			Venv:  "workon",
		},
		PathPrefixes: true,
		LogLevel:     "warn",
	}
}

// Dir returns $XDG_CONFIG_HOME/kspec, defaulting to ~/.config/kspec.
func Dir() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", AppName), nil
}

// LoadOptions controls where Load looks.
type LoadOptions struct {
	// File is an explicit config file. It must exist when set.
	File string
	// Flags are bound over file and environment values. Flag names map to
	// keys by replacing '-' with '_'. Only flags the user set take effect.
	Flags *pflag.FlagSet
	// FlagKeys limits which flags are bound; nil binds none.
	FlagKeys []string
}

// Load reads the configuration.
func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()
	setDefaults(v, Defaults())

	v.SetEnvPrefix(strings.ToUpper(AppName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.File != "" {
		v.SetConfigFile(opts.File)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", opts.File, err)
		}
	} else if dir, err := Dir(); err == nil {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	if opts.Flags != nil {
		for _, key := range opts.FlagKeys {
			flag := opts.Flags.Lookup(strings.ReplaceAll(key, "_", "-"))
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("jupyter", d.Jupyter)
	v.SetDefault("prefix", d.Prefix)
	v.SetDefault("kind", d.Kind)
	v.SetDefault("shell", d.Shell)
	v.SetDefault("python", d.Python)
	v.SetDefault("min_ipykernel", d.MinIpykernel)
	v.SetDefault("activate.conda", d.Activate.Conda)
	v.SetDefault("activate.venv", d.Activate.Venv)
	v.SetDefault("path_prefixes", d.PathPrefixes)
	v.SetDefault("log_level", d.LogLevel)
}
