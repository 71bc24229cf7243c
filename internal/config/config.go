package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the complete clipview configuration
type Config struct {
	Player   PlayerConfig   `mapstructure:"player" yaml:"player"`
	Playback PlaybackConfig `mapstructure:"playback" yaml:"playback"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Advanced AdvancedConfig `mapstructure:"advanced" yaml:"advanced"`
}

// PlayerConfig configures the mpv media element
type PlayerConfig struct {
	// Executable overrides the mpv binary looked up in PATH
	Executable     string   `mapstructure:"executable" yaml:"executable"`
	LoadUserConfig bool     `mapstructure:"load_user_config" yaml:"load_user_config"`
	Volume         int      `mapstructure:"volume" yaml:"volume"`
	UserAgent      string   `mapstructure:"user_agent" yaml:"user_agent"`
	ExtraArgs      []string `mapstructure:"extra_args" yaml:"extra_args"`
}

// PlaybackConfig configures the playback controller
type PlaybackConfig struct {
	AutoPlay          bool          `mapstructure:"autoplay" yaml:"autoplay"`
	AutoPlayCountdown time.Duration `mapstructure:"autoplay_countdown" yaml:"autoplay_countdown"`
	SkipAmount        time.Duration `mapstructure:"skip_amount" yaml:"skip_amount"`
	SeekStep          time.Duration `mapstructure:"seek_step" yaml:"seek_step"`
	LongSeekStep      time.Duration `mapstructure:"long_seek_step" yaml:"long_seek_step"`
	HideDelay         time.Duration `mapstructure:"hide_delay" yaml:"hide_delay"`
}

// ServerConfig points at the Clipset API
type ServerConfig struct {
	BaseURL string        `mapstructure:"base_url" yaml:"base_url"`
	Token   string        `mapstructure:"token" yaml:"token"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// LoggingConfig configures the application logger
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"`
	File       string `mapstructure:"file" yaml:"file"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
	Color      bool   `mapstructure:"color" yaml:"color"`
}

// AdvancedConfig holds rarely changed settings
type AdvancedConfig struct {
	Debug     bool            `mapstructure:"debug" yaml:"debug"`
	Clipboard ClipboardConfig `mapstructure:"clipboard" yaml:"clipboard"`
}

// ClipboardConfig overrides the clipboard tool
type ClipboardConfig struct {
	// Command receives the copied text on stdin, e.g. "wl-copy"
	Command string `mapstructure:"command" yaml:"command"`
}

// SetDefaults registers every default value on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("player.executable", "")
	v.SetDefault("player.load_user_config", false)
	v.SetDefault("player.volume", 100)
	v.SetDefault("player.user_agent", "")
	v.SetDefault("player.extra_args", []string{})

	v.SetDefault("playback.autoplay", false)
	v.SetDefault("playback.autoplay_countdown", 5*time.Second)
	v.SetDefault("playback.skip_amount", 5*time.Second)
	v.SetDefault("playback.seek_step", 5*time.Second)
	v.SetDefault("playback.long_seek_step", 10*time.Second)
	v.SetDefault("playback.hide_delay", 3*time.Second)

	v.SetDefault("server.base_url", "http://localhost:8000")
	v.SetDefault("server.token", "")
	v.SetDefault("server.timeout", 15*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", false)
	v.SetDefault("logging.color", true)

	v.SetDefault("advanced.debug", false)
	v.SetDefault("advanced.clipboard.command", "")
}

// Default returns the built-in configuration
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg := &Config{}
	// Defaults always decode.
	_ = v.Unmarshal(cfg)
	return cfg
}

// Load reads the configuration from cfgFile, or from the default location
// when cfgFile is empty. A missing default file is not an error. Environment
// variables prefixed with CLIPVIEW_ override file values.
func Load(cfgFile string) (*Config, *viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(GetConfigDir())
	}

	v.SetEnvPrefix("CLIPVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	return cfg, v, nil
}

// Validate rejects values the player cannot work with
func (c *Config) Validate() error {
	if c.Player.Volume < 0 || c.Player.Volume > 100 {
		return fmt.Errorf("player.volume must be between 0 and 100, got %d", c.Player.Volume)
	}
	durations := map[string]time.Duration{
		"playback.autoplay_countdown": c.Playback.AutoPlayCountdown,
		"playback.skip_amount":        c.Playback.SkipAmount,
		"playback.seek_step":          c.Playback.SeekStep,
		"playback.long_seek_step":     c.Playback.LongSeekStep,
		"playback.hide_delay":         c.Playback.HideDelay,
	}
	for key, d := range durations {
		if d < 0 {
			return fmt.Errorf("%s must not be negative, got %s", key, d)
		}
	}
	return nil
}

// SaveDefaultConfig writes the default configuration as YAML to path
func SaveDefaultConfig(path string) error {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}

	header := []byte("# clipview configuration\n# Durations use Go syntax, e.g. 5s or 1m30s\n\n")
	if err := os.WriteFile(path, append(header, data...), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GetConfigDir returns the clipview configuration directory
func GetConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "clipview")
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "clipview")
	}
	return filepath.Join(".", ".clipview")
}

// getStateDir returns the base directory for logs and other runtime state
func getStateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return dir
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "state")
	}
	return os.TempDir()
}

// InitializeDirs creates the configuration and state directories
func InitializeDirs() error {
	for _, dir := range []string{GetConfigDir(), filepath.Join(getStateDir(), "clipview")} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}
