package config

import (
	stderrors "errors"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/turtacn/mcbuilder/pkg/errors"
)

// envPrefix is the environment variable prefix of every setting.
const envPrefix = "MCBUILDER"

var (
	ErrConfigFileNotFound = errors.New(errors.ErrCodeNotFound, "config file not found")
	ErrConfigParseError   = errors.New(errors.ErrCodeBadRequest, "config file could not be parsed")
	ErrConfigValidation   = errors.New(errors.ErrCodeValidation, "configuration is invalid")
)

type loadOptions struct {
	path string
}

// LoadOption customises Load.
type LoadOption func(*loadOptions)

// WithConfigPath reads the YAML file at path before applying environment
// overrides.
func WithConfigPath(path string) LoadOption {
	return func(o *loadOptions) { o.path = path }
}

// newViper builds a Viper instance reading YAML, binding MCBUILDER_*
// variables and mapping "." to "_" so that "assembly.max_depth" resolves to
// MCBUILDER_ASSEMBLY_MAX_DEPTH.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setViperDefaults(v)
	return v
}

// Load builds the configuration from defaults, an optional YAML file and
// MCBUILDER_* environment variables, in increasing priority, and validates
// the result.
func Load(opts ...LoadOption) (*Config, error) {
	o := &loadOptions{}
	for _, opt := range opts {
		opt(o)
	}

	v := newViper()
	if o.path != "" {
		if _, err := os.Stat(o.path); stderrors.Is(err, fs.ErrNotExist) {
			return nil, ErrConfigFileNotFound.WithDetail(o.path).WithCause(err)
		}
		v.SetConfigFile(o.path)
		if err := v.ReadInConfig(); err != nil {
			return nil, ErrConfigParseError.WithDetail(o.path).WithCause(err)
		}
	}
	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config from defaults and environment variables only.
func LoadFromEnv() (*Config, error) {
	return Load()
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, ErrConfigParseError.WithCause(err)
	}
	ApplyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, ErrConfigValidation.WithCause(err)
	}
	return cfg, nil
}
