package cli

import (
	"context"
	"time"

	"github.com/turtacn/mcbuilder/internal/application/assembly"
	"github.com/turtacn/mcbuilder/internal/config"
	"github.com/turtacn/mcbuilder/internal/domain/cluster"
	"github.com/turtacn/mcbuilder/internal/infrastructure/database/redis"
	"github.com/turtacn/mcbuilder/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/mcbuilder/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/mcbuilder/internal/infrastructure/storage/minio"
)

const metricsPushTimeout = 10 * time.Second

// deps are the infrastructure components one command run needs.
type deps struct {
	aligner   *cluster.Aligner
	cache     *redis.AlignmentCache
	store     *minio.ModelStore
	collector prometheus.MetricsCollector
	metrics   *prometheus.RunMetrics
	closers   []func() error
	logger    logging.Logger
}

// initDeps connects the alignment cache backend, the metrics collector and,
// when uploads are enabled, the model store.
func initDeps(ctx context.Context, cfg *config.Config, logger logging.Logger) (*deps, error) {
	d := &deps{logger: logger}

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:       cfg.Metrics.Namespace,
		EnableGoMetrics: cfg.Metrics.TextfilePath != "",
	}, logger)
	if err != nil {
		return nil, err
	}
	d.collector = collector
	d.metrics = prometheus.NewRunMetrics(collector)

	var backend cluster.AlignmentCache
	if cfg.Cache.Backend == config.CacheRedis {
		cache, err := initRedisCache(ctx, cfg, logger, d)
		if err != nil {
			d.Close()
			return nil, err
		}
		backend = cache
	}
	d.aligner = cluster.NewAligner(backend, logger)

	if cfg.Storage.MinIO.Enabled {
		m := cfg.Storage.MinIO
		store, err := minio.NewMinIOClient(ctx, &minio.MinIOConfig{
			Enabled:         m.Enabled,
			Endpoint:        m.Endpoint,
			AccessKeyID:     m.AccessKeyID,
			SecretAccessKey: m.SecretAccessKey,
			UseSSL:          m.UseSSL,
			Region:          m.Region,
			Bucket:          m.Bucket,
			Prefix:          m.Prefix,
		}, logger)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.store = store
	}
	return d, nil
}

func initRedisCache(ctx context.Context, cfg *config.Config, logger logging.Logger, d *deps) (*redis.AlignmentCache, error) {
	r := cfg.Cache.Redis
	client, err := redis.NewClient(ctx, &redis.Config{
		Mode:       r.Mode,
		Addr:       r.Addr,
		Addrs:      r.Addrs,
		MasterName: r.MasterName,
		Password:   r.Password,
		DB:         r.DB,
		PoolSize:   r.PoolSize,
	}, logger)
	if err != nil {
		return nil, err
	}
	d.closers = append(d.closers, client.Close)

	opts := []redis.CacheOption{redis.WithPrefix(r.KeyPrefix)}
	if r.TTL > 0 {
		opts = append(opts, redis.WithTTL(r.TTL))
	}
	d.cache = redis.NewAlignmentCache(client, logger, opts...)
	return d.cache, nil
}

// service builds the application service over the dependencies.
func (d *deps) service(cfg *config.Config) assembly.Service {
	opts := assembly.Options{
		Aligner:      d.aligner,
		Metrics:      d.metrics,
		CacheBackend: cfg.Cache.Backend,
		Workers:      cfg.Assembly.Workers,
		Logger:       d.logger,
	}
	if d.store != nil {
		opts.Store = d.store
	}
	return assembly.NewService(opts)
}

// exportMetrics writes the run's metrics to the configured textfile and
// pushes them to the configured Pushgateway.  The push outlives a canceled
// run context.
func (d *deps) exportMetrics(ctx context.Context, m config.MetricsConfig, runID string) error {
	if m.TextfilePath != "" {
		if err := d.collector.WriteToTextfile(m.TextfilePath); err != nil {
			return err
		}
		d.logger.Info("Metrics written", logging.String("path", m.TextfilePath))
	}
	if m.PushURL == "" {
		return nil
	}
	var grouping map[string]string
	if runID != "" {
		grouping = map[string]string{"run_id": runID}
	}
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsPushTimeout)
	defer cancel()
	if err := d.collector.Push(pushCtx, m.PushURL, m.PushJob, grouping); err != nil {
		return err
	}
	d.logger.Info("Metrics pushed", logging.String("url", m.PushURL), logging.String("run_id", runID))
	return nil
}

// Close releases every connection opened by initDeps.
func (d *deps) Close() {
	for _, c := range d.closers {
		if err := c(); err != nil {
			d.logger.Warn("Failed to close connection", logging.Err(err))
		}
	}
	d.closers = nil
}
