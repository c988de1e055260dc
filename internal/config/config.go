// Package config defines the configuration of an mcbuilder run.  No I/O or
// parsing logic lives here; only plain data types and validation.
package config

import (
	"fmt"
	"time"

	"github.com/turtacn/mcbuilder/internal/domain/assembly"
	"github.com/turtacn/mcbuilder/internal/domain/cluster"
	"github.com/turtacn/mcbuilder/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/mcbuilder/pkg/errors"
)

// InputConfig lists the input files and directories.
type InputConfig struct {
	Paths []string `mapstructure:"paths"`
}

// AssemblyConfig tunes the assembler.
type AssemblyConfig struct {
	RMSDThreshold float64       `mapstructure:"rmsd_threshold"`
	ClashDistance float64       `mapstructure:"clash_distance"`
	Stoichiometry string        `mapstructure:"stoichiometry"`
	ChainLimit    int           `mapstructure:"chain_limit"`
	Exhaustive    bool          `mapstructure:"exhaustive"`
	MaxDepth      int           `mapstructure:"max_depth"`
	MaxStates     int           `mapstructure:"max_states"`
	Workers       int           `mapstructure:"workers"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// Domain converts the section to the assembler's configuration.
func (c AssemblyConfig) Domain() assembly.Config {
	return assembly.Config{
		RMSDThreshold: c.RMSDThreshold,
		ClashDistance: c.ClashDistance,
		ChainLimit:    c.ChainLimit,
		Exhaustive:    c.Exhaustive,
		MaxDepth:      c.MaxDepth,
		MaxStates:     c.MaxStates,
		Workers:       c.Workers,
	}
}

// ClusteringConfig tunes the sequence clusterer.
type ClusteringConfig struct {
	IdentityThreshold float64 `mapstructure:"identity_threshold"`
	Workers           int     `mapstructure:"workers"`
}

// Domain converts the section to the clusterer's configuration.
func (c ClusteringConfig) Domain() cluster.Config {
	return cluster.Config{IdentityThreshold: c.IdentityThreshold, Workers: c.Workers}
}

// RedisConfig locates the shared alignment cache.
type RedisConfig struct {
	Mode       string        `mapstructure:"mode"`
	Addr       string        `mapstructure:"addr"`
	Addrs      []string      `mapstructure:"addrs"`
	MasterName string        `mapstructure:"master_name"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	PoolSize   int           `mapstructure:"pool_size"`
	KeyPrefix  string        `mapstructure:"key_prefix"`
	TTL        time.Duration `mapstructure:"ttl"`
}

// CacheConfig selects where pairwise alignments are memoised.
type CacheConfig struct {
	// Backend is "memory" or "redis".
	Backend string      `mapstructure:"backend"`
	Redis   RedisConfig `mapstructure:"redis"`
}

// MinIOConfig locates the object store models are uploaded to.
type MinIOConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
}

// StorageConfig groups the object storage backends.
type StorageConfig struct {
	MinIO MinIOConfig `mapstructure:"minio"`
}

// MetricsConfig controls the export of run metrics.
type MetricsConfig struct {
	Namespace string `mapstructure:"namespace"`
	// TextfilePath is where metrics are written after the run; empty disables
	// the export.
	TextfilePath string `mapstructure:"textfile_path"`
	// PushURL is a Pushgateway the metrics are pushed to after the run,
	// grouped by job and run id; empty disables the push.
	PushURL string `mapstructure:"push_url"`
	PushJob string `mapstructure:"push_job"`
}

// OutputConfig controls the written model and the run report.
type OutputConfig struct {
	Path string `mapstructure:"path"`
	// Format of the run report on stdout: "text" or "json".
	Format string `mapstructure:"format"`
}

// Config is the root configuration.
type Config struct {
	Input      InputConfig       `mapstructure:"input"`
	Assembly   AssemblyConfig    `mapstructure:"assembly"`
	Clustering ClusteringConfig  `mapstructure:"clustering"`
	Cache      CacheConfig       `mapstructure:"cache"`
	Storage    StorageConfig     `mapstructure:"storage"`
	Metrics    MetricsConfig     `mapstructure:"metrics"`
	Output     OutputConfig      `mapstructure:"output"`
	Log        logging.LogConfig `mapstructure:"log"`
}

// Validate performs semantic validation of the fully-populated Config and
// returns the first problem found.
func (c *Config) Validate() error {
	if err := c.Assembly.Domain().Validate(); err != nil {
		return err
	}
	if c.Assembly.Timeout < 0 {
		return errors.NewValidationError("assembly.timeout", "timeout must not be negative")
	}
	if c.Assembly.Stoichiometry != "" {
		if _, err := assembly.ParseStoichiometry(c.Assembly.Stoichiometry); err != nil {
			return err
		}
	}
	if err := c.Clustering.Domain().Validate(); err != nil {
		return err
	}

	switch c.Cache.Backend {
	case CacheMemory:
	case CacheRedis:
		if c.Cache.Redis.Addr == "" && len(c.Cache.Redis.Addrs) == 0 {
			return errors.NewValidationError("cache.redis.addr", "redis address is required")
		}
		if c.Cache.Redis.DB < 0 {
			return errors.NewValidationError("cache.redis.db", fmt.Sprintf("redis db must be >= 0, got %d", c.Cache.Redis.DB))
		}
	default:
		return errors.NewValidationError("cache.backend", fmt.Sprintf("cache backend %q is invalid; expected memory|redis", c.Cache.Backend))
	}

	if c.Storage.MinIO.Enabled {
		if c.Storage.MinIO.Endpoint == "" {
			return errors.NewValidationError("storage.minio.endpoint", "minio endpoint is required when uploads are enabled")
		}
		if c.Storage.MinIO.Bucket == "" {
			return errors.NewValidationError("storage.minio.bucket", "minio bucket is required when uploads are enabled")
		}
	}

	if c.Output.Path == "" {
		return errors.NewValidationError("output.path", "output path is required")
	}
	switch c.Output.Format {
	case FormatText, FormatJSON:
	default:
		return errors.NewValidationError("output.format", fmt.Sprintf("output format %q is invalid; expected text|json", c.Output.Format))
	}

	switch c.Log.Level {
	case logging.LevelDebug, logging.LevelInfo, logging.LevelWarn, logging.LevelError:
	default:
		return errors.NewValidationError("log.level", fmt.Sprintf("log level %q is invalid; expected debug|info|warn|error", c.Log.Level))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return errors.NewValidationError("log.format", fmt.Sprintf("log format %q is invalid; expected json|console", c.Log.Format))
	}
	return nil
}
