package config

import (
	"runtime"

	"github.com/spf13/viper"

	"github.com/turtacn/mcbuilder/internal/domain/assembly"
	"github.com/turtacn/mcbuilder/internal/domain/cluster"
)

const (
	CacheMemory = "memory"
	CacheRedis  = "redis"

	FormatText = "text"
	FormatJSON = "json"

	DefaultOutputPath      = "macrocomplex.pdb"
	DefaultLogLevel        = "warn"
	DefaultLogFormat       = "console"
	DefaultLogFileLevel    = "warn"
	DefaultRedisAddr       = "localhost:6379"
	DefaultRedisKeyPrefix  = "mcbuilder:"
	DefaultMinIOEndpoint   = "localhost:9000"
	DefaultMinIOBucket     = "mcbuilder-models"
	DefaultMetricNamespace = "mcbuilder"
	DefaultMetricPushJob   = "mcbuilder"
)

// NewDefaultConfig returns a Config with every default applied.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills every zero-value field in cfg with its default.  Fields
// already set are left unchanged.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	if len(cfg.Input.Paths) == 0 {
		cfg.Input.Paths = []string{"."}
	}

	if cfg.Assembly.RMSDThreshold == 0 {
		cfg.Assembly.RMSDThreshold = assembly.DefaultRMSDThreshold
	}
	if cfg.Assembly.ClashDistance == 0 {
		cfg.Assembly.ClashDistance = assembly.DefaultClashDistance
	}
	if cfg.Assembly.MaxDepth == 0 {
		cfg.Assembly.MaxDepth = assembly.DefaultMaxDepth
	}
	if cfg.Assembly.MaxStates == 0 {
		cfg.Assembly.MaxStates = assembly.DefaultMaxStates
	}
	if cfg.Assembly.Workers == 0 {
		cfg.Assembly.Workers = runtime.NumCPU()
	}

	if cfg.Clustering.IdentityThreshold == 0 {
		cfg.Clustering.IdentityThreshold = cluster.DefaultIdentityThreshold
	}
	if cfg.Clustering.Workers == 0 {
		cfg.Clustering.Workers = runtime.NumCPU()
	}

	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = CacheMemory
	}
	if cfg.Cache.Redis.Addr == "" && len(cfg.Cache.Redis.Addrs) == 0 {
		cfg.Cache.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Cache.Redis.KeyPrefix == "" {
		cfg.Cache.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}

	if cfg.Storage.MinIO.Endpoint == "" {
		cfg.Storage.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.Storage.MinIO.Bucket == "" {
		cfg.Storage.MinIO.Bucket = DefaultMinIOBucket
	}

	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricNamespace
	}
	if cfg.Metrics.PushJob == "" {
		cfg.Metrics.PushJob = DefaultMetricPushJob
	}

	if cfg.Output.Path == "" {
		cfg.Output.Path = DefaultOutputPath
	}
	if cfg.Output.Format == "" {
		cfg.Output.Format = FormatText
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if cfg.Log.FileLevel == "" {
		cfg.Log.FileLevel = DefaultLogFileLevel
	}
}

// setViperDefaults registers every key with viper so that MCBUILDER_*
// variables are picked up by Unmarshal even when no file mentions the key.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()
	v.SetDefault("input.paths", d.Input.Paths)

	v.SetDefault("assembly.rmsd_threshold", d.Assembly.RMSDThreshold)
	v.SetDefault("assembly.clash_distance", d.Assembly.ClashDistance)
	v.SetDefault("assembly.stoichiometry", d.Assembly.Stoichiometry)
	v.SetDefault("assembly.chain_limit", d.Assembly.ChainLimit)
	v.SetDefault("assembly.exhaustive", d.Assembly.Exhaustive)
	v.SetDefault("assembly.max_depth", d.Assembly.MaxDepth)
	v.SetDefault("assembly.max_states", d.Assembly.MaxStates)
	v.SetDefault("assembly.workers", d.Assembly.Workers)
	v.SetDefault("assembly.timeout", d.Assembly.Timeout)

	v.SetDefault("clustering.identity_threshold", d.Clustering.IdentityThreshold)
	v.SetDefault("clustering.workers", d.Clustering.Workers)

	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.redis.mode", d.Cache.Redis.Mode)
	v.SetDefault("cache.redis.addr", d.Cache.Redis.Addr)
	v.SetDefault("cache.redis.password", d.Cache.Redis.Password)
	v.SetDefault("cache.redis.db", d.Cache.Redis.DB)
	v.SetDefault("cache.redis.key_prefix", d.Cache.Redis.KeyPrefix)
	v.SetDefault("cache.redis.ttl", d.Cache.Redis.TTL)

	v.SetDefault("storage.minio.enabled", d.Storage.MinIO.Enabled)
	v.SetDefault("storage.minio.endpoint", d.Storage.MinIO.Endpoint)
	v.SetDefault("storage.minio.access_key_id", d.Storage.MinIO.AccessKeyID)
	v.SetDefault("storage.minio.secret_access_key", d.Storage.MinIO.SecretAccessKey)
	v.SetDefault("storage.minio.use_ssl", d.Storage.MinIO.UseSSL)
	v.SetDefault("storage.minio.bucket", d.Storage.MinIO.Bucket)
	v.SetDefault("storage.minio.prefix", d.Storage.MinIO.Prefix)

	v.SetDefault("metrics.namespace", d.Metrics.Namespace)
	v.SetDefault("metrics.textfile_path", d.Metrics.TextfilePath)
	v.SetDefault("metrics.push_url", d.Metrics.PushURL)
	v.SetDefault("metrics.push_job", d.Metrics.PushJob)

	v.SetDefault("output.path", d.Output.Path)
	v.SetDefault("output.format", d.Output.Format)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.file_level", d.Log.FileLevel)
}
