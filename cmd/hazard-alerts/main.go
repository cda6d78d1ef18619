package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/hazard-alerts/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/hazard-alerts/internal/adapter/kafka"
	"github.com/couchcryptid/hazard-alerts/internal/adapter/nominatim"
	"github.com/couchcryptid/hazard-alerts/internal/adapter/openmeteo"
	"github.com/couchcryptid/hazard-alerts/internal/config"
	"github.com/couchcryptid/hazard-alerts/internal/domain"
	"github.com/couchcryptid/hazard-alerts/internal/observability"
	"github.com/couchcryptid/hazard-alerts/internal/pipeline"
	"github.com/couchcryptid/hazard-alerts/internal/reports"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

// alwaysReady is the readiness checker when the Kafka pipeline is disabled.
type alwaysReady struct{}

func (alwaysReady) CheckReadiness(context.Context) error { return nil }

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	forecasts := openmeteo.NewClient(cfg.OpenMeteoURL, cfg.ForecastDays, cfg.ForecastTimeout, metrics, logger)
	geocoder, closeGeocoder := newGeocoder(cfg, metrics, logger)
	defer closeGeocoder()

	assessor := pipeline.NewAssessor(forecasts, geocoder, cfg.FallbackLocation, metrics, logger)

	deps := httpadapter.Dependencies{
		Ready:      alwaysReady{},
		Assessor:   assessor,
		Reports:    reports.NewStore(clockwork.NewRealClock()),
		DefaultGeo: domain.Geo{Lat: cfg.DefaultLat, Lon: cfg.DefaultLon},
		Metrics:    metrics,
	}

	var (
		p            *pipeline.Pipeline
		reader       *kafkaadapter.Reader
		alertWriter  *kafkaadapter.Writer
		reportWriter *kafkaadapter.Writer
	)
	if cfg.KafkaEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		alertWriter = kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaAlertTopic, logger)
		reportWriter = kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaReportTopic, logger)
		p = pipeline.New(reader, pipeline.NewTransformer(assessor, metrics), alertWriter, logger, metrics, cfg.BatchSize)

		deps.Ready = p
		deps.Publisher = reportWriter
		logger.Info("kafka pipeline enabled",
			"brokers", cfg.KafkaBrokers,
			"request_topic", cfg.KafkaRequestTopic,
			"alert_topic", cfg.KafkaAlertTopic,
			"report_topic", cfg.KafkaReportTopic,
		)
	} else {
		logger.Info("kafka pipeline disabled")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, deps, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if p != nil {
		g.Go(func() error {
			return p.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	exitCode := 0
	if err := g.Wait(); err != nil {
		logger.Error("service error", "error", err)
		exitCode = 1
	}

	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	for _, w := range []*kafkaadapter.Writer{alertWriter, reportWriter} {
		if w == nil {
			continue
		}
		if err := w.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	if exitCode != 0 {
		closeGeocoder()
		os.Exit(exitCode)
	}
}

// newGeocoder builds the reverse geocoding chain: in-process LRU, then the
// optional Redis cache, then Nominatim. It returns nil when geocoding is
// disabled. The returned func releases the Redis connection.
func newGeocoder(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) (domain.Geocoder, func()) {
	noop := func() {}
	if !cfg.GeocoderEnabled {
		metrics.GeocodeEnabled.Set(0)
		logger.Info("reverse geocoding disabled", "fallback", cfg.FallbackLocation)
		return nil, noop
	}
	metrics.GeocodeEnabled.Set(1)

	var geocoder domain.Geocoder = nominatim.NewClient(cfg.NominatimURL, cfg.GeocoderLanguage, cfg.GeocoderTimeout, metrics, logger)

	closeFn := noop
	if cfg.RedisURL != "" {
		client, err := nominatim.NewRedisClient(cfg.RedisURL)
		if err != nil {
			logger.Warn("invalid REDIS_URL, shared geocode cache disabled", "error", err)
		} else {
			geocoder = nominatim.NewRedisCache(geocoder, client, cfg.RedisTTL, metrics, logger)
			closeFn = func() {
				if err := client.Close(); err != nil {
					logger.Warn("redis close error", "error", err)
				}
			}
			logger.Info("redis geocode cache enabled", "ttl", cfg.RedisTTL)
		}
	}

	logger.Info("reverse geocoding enabled",
		"url", cfg.NominatimURL,
		"cache_size", cfg.GeocoderCacheSize,
		"timeout", cfg.GeocoderTimeout,
	)
	return nominatim.NewCachedGeocoder(geocoder, cfg.GeocoderCacheSize, metrics), closeFn
}
