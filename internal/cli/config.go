package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config is what the config file and FOCAL_* environment variables may set.
// Flags given on the command line always win; resolution happens in the root
// command's PersistentPreRunE before any subcommand runs.
type Config struct {
	DataDir      string        `mapstructure:"data_dir"`
	Database     string        `mapstructure:"database"`
	Channel      string        `mapstructure:"channel"`
	Remote       string        `mapstructure:"remote"`
	Account      string        `mapstructure:"account"`
	Client       string        `mapstructure:"client"`
	TickInterval time.Duration `mapstructure:"tick_interval"`
}

// configKeys lists every settable key. Registering them as defaults is what
// lets AutomaticEnv surface FOCAL_* variables through Unmarshal.
var configKeys = []string{
	"data_dir", "database", "channel", "remote", "account", "client", "tick_interval",
}

// LoadConfig reads ~/.config/focal/config.yaml (or the file named by
// FOCAL_CONFIG) and applies FOCAL_* environment overrides. A missing default
// config file is not an error; a missing FOCAL_CONFIG file is, since the user
// asked for that exact file.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FOCAL")
	v.AutomaticEnv()
	for _, key := range configKeys {
		if key == "tick_interval" {
			v.SetDefault(key, "0s")
			continue
		}
		v.SetDefault(key, "")
	}

	explicit := os.Getenv("FOCAL_CONFIG")
	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "focal"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// DefaultDataDir is where the database and shared snapshot live unless
// configured otherwise: $XDG_DATA_HOME/focal, or ~/.local/share/focal.
func DefaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "focal")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "focal-data"
	}
	return filepath.Join(home, ".local", "share", "focal")
}
