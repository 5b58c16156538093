// Package config loads talky's configuration using Viper, from a YAML file,
// TALKY_-prefixed environment variables and command-line flags.
//
// Load applies defaults for every key, then validates the result. A missing
// or unusable content directory is a startup error, since there is nothing
// to serve without one.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/conneroisu/talky/internal/errors"
	"github.com/conneroisu/talky/internal/resolver"
	"github.com/conneroisu/talky/internal/templates"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable talky reads.
const EnvPrefix = "TALKY"

// DefaultConfigFile is looked up in the working directory when no config
// file is given.
const DefaultConfigFile = ".talky.yml"

type Config struct {
	Server      ServerConfig      `mapstructure:"server" yaml:"server"`
	Content     ContentConfig     `mapstructure:"content" yaml:"content"`
	Development DevelopmentConfig `mapstructure:"development" yaml:"development"`
	Metrics     MetricsConfig     `mapstructure:"metrics" yaml:"metrics"`
	Log         LogConfig         `mapstructure:"log" yaml:"log"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port" yaml:"port"`
	Host string `mapstructure:"host" yaml:"host"`
}

type ContentConfig struct {
	BaseDir          string   `mapstructure:"base_dir" yaml:"base_dir"`
	DefaultTemplate  string   `mapstructure:"default_template" yaml:"default_template"`
	OverrideFilename string   `mapstructure:"override_filename" yaml:"override_filename"`
	InlineExtensions []string `mapstructure:"inline_extensions" yaml:"inline_extensions"`
	Readme           bool     `mapstructure:"readme" yaml:"readme"`
}

type DevelopmentConfig struct {
	LiveReload     bool          `mapstructure:"live_reload" yaml:"live_reload"`
	LiveReloadPath string        `mapstructure:"live_reload_path" yaml:"live_reload_path"`
	Debounce       time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

type MetricsConfig struct {
	// Addr enables the metrics listener when set
	Addr string `mapstructure:"addr" yaml:"addr"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("content.base_dir", "")
	v.SetDefault("content.default_template", "")
	v.SetDefault("content.override_filename", templates.DefaultOverrideFilename)
	v.SetDefault("content.inline_extensions", resolver.DefaultInlineExtensions)
	v.SetDefault("content.readme", false)
	v.SetDefault("development.live_reload", false)
	v.SetDefault("development.live_reload_path", "/_talky/livereload")
	v.SetDefault("development.debounce", 300*time.Millisecond)
	v.SetDefault("metrics.addr", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// BindLegacyEnv binds APP_PORT and BASE_DIR alongside the prefixed names.
func BindLegacyEnv(v *viper.Viper) error {
	if err := v.BindEnv("server.port", EnvPrefix+"_SERVER_PORT", "APP_PORT"); err != nil {
		return err
	}
	return v.BindEnv("content.base_dir", EnvPrefix+"_CONTENT_BASE_DIR", "BASE_DIR")
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads and validates the configuration held by v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid, "could not decode configuration: "+err.Error())
	}

	result := ValidateConfigWithDetails(&config)
	if result.HasErrors() {
		return nil, fmt.Errorf("invalid configuration: %w",
			errors.NewConfigError(errors.ErrCodeConfigInvalid, strings.TrimSpace(result.String())))
	}

	return &config, nil
}

// Addr is the content listener address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// ResolverOptions builds the resolver options, reading the default template
// file if one is configured.
func (c *Config) ResolverOptions() (resolver.Options, error) {
	opts := resolver.Options{
		BaseDir:          c.Content.BaseDir,
		OverrideFilename: c.Content.OverrideFilename,
		InlineExtensions: c.Content.InlineExtensions,
		Readme:           c.Content.Readme,
	}

	if c.Content.DefaultTemplate != "" {
		source, err := os.ReadFile(c.Content.DefaultTemplate)
		if err != nil {
			return opts, errors.NewIOError(errors.ErrCodeReadFile, "could not read default template", err).
				WithPath(c.Content.DefaultTemplate)
		}
		opts.DefaultTemplate = string(source)
	}

	return opts, nil
}
