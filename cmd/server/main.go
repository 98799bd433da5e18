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
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	jwttoken "paythru/internal/jwt_token"
	ocrhandler "paythru/internal/ocr/handler"
	ocrmetrics "paythru/internal/ocr/metrics"
	"paythru/internal/ocr/providers/s3store"
	"paythru/internal/ocr/providers/textract"
	ocrservice "paythru/internal/ocr/service"
	"paythru/internal/platform/awsconfig"
	"paythru/internal/platform/config"
	"paythru/internal/platform/httpserver"
	"paythru/internal/platform/logger"
	"paythru/internal/platform/metrics"
	"paythru/internal/platform/middleware"
	redisclient "paythru/internal/platform/redis"
	usagemetrics "paythru/internal/ratelimit/metrics"
	"paythru/internal/ratelimit/service/usagelimit"
	"paythru/internal/ratelimit/store/usage"
	"paythru/pkg/platform/httputil"
	"paythru/pkg/platform/middleware/metadata"
	"paythru/pkg/platform/middleware/requesttime"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = 10 * time.Minute
	tokenIssuer     = "paythru"
	tokenAudience   = "paythru-api"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal service packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	extractor, err := buildExtractor(ctx, cfg, log)
	if err != nil {
		return err
	}

	memStore := usage.NewInMemoryStore()
	limiter, redisClient, err := buildLimiter(ctx, cfg, log, memStore)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer func() {
			if cerr := redisClient.Close(); cerr != nil {
				log.Warn("failed to close redis client", "error", cerr)
			}
		}()
	}

	router := newRouter(cfg, log, extractor, limiter, redisClient)
	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting paythru", "addr", cfg.Server.Addr, "environment", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n := memStore.Sweep(); n > 0 {
					log.Debug("swept expired usage windows", "removed", n)
				}
			}
		}
	})
	return g.Wait()
}

func buildExtractor(ctx context.Context, cfg config.Config, log *slog.Logger) (*ocrservice.Service, error) {
	awsCfg, err := awsconfig.Load(ctx, cfg.AWS)
	if err != nil {
		return nil, err
	}
	provider, err := textract.NewFromConfig(awsCfg, textract.WithLogger(log))
	if err != nil {
		return nil, err
	}
	store, err := s3store.NewFromConfig(awsCfg, s3store.WithLogger(log))
	if err != nil {
		return nil, err
	}
	if cfg.OCR.Bucket == "" {
		log.Warn("AWS_TEXTRACT_BUCKET is not set; PDF and large documents will be rejected")
	}

	m := ocrmetrics.New()
	orch, err := ocrservice.NewOrchestrator(provider, store, ocrservice.Config{
		Bucket:       cfg.OCR.Bucket,
		MaxSyncBytes: cfg.OCR.MaxSyncBytes,
		PollInterval: cfg.OCR.PollInterval,
		PollAttempts: cfg.OCR.PollAttempts,
	}, ocrservice.WithLogger(log), ocrservice.WithMetrics(m))
	if err != nil {
		return nil, err
	}
	return ocrservice.New(orch, ocrservice.WithServiceLogger(log), ocrservice.WithServiceMetrics(m))
}

// buildLimiter counts usage in Redis when REDIS_URL is set and in memory
// otherwise. memStore also serves as the fallback while Redis is failing.
func buildLimiter(ctx context.Context, cfg config.Config, log *slog.Logger, memStore *usage.InMemoryStore) (*usagelimit.Service, *redisclient.Client, error) {
	client, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}

	var primary usagelimit.Store = memStore
	if client != nil {
		primary = usage.NewRedisStore(client.Client)
		log.Info("ocr usage counters stored in redis")
	}

	limiter, err := usagelimit.New(primary, cfg.Usage.Limit, cfg.Usage.Window,
		usagelimit.WithLogger(log),
		usagelimit.WithMetrics(usagemetrics.New()),
		usagelimit.WithFallback(memStore),
		usagelimit.WithBypass(cfg.IsDevelopment()),
	)
	if err != nil {
		if client != nil {
			_ = client.Close()
		}
		return nil, nil, err
	}
	return limiter, client, nil
}

func newRouter(cfg config.Config, log *slog.Logger, extractor *ocrservice.Service, limiter *usagelimit.Service, redisClient *redisclient.Client) http.Handler {
	httpMetrics := metrics.New()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(chimiddleware.Recoverer)
	r.Use(httpMetrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok"}
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				status["redis"] = "degraded"
			}
		}
		httputil.WriteJSON(w, http.StatusOK, status)
	})
	r.Handle("/metrics", promhttp.Handler())

	handler := ocrhandler.New(extractor, cfg.OCR.MaxUploadBytes, log, ocrhandler.WithLimiter(limiter))
	r.Group(func(r chi.Router) {
		if cfg.Server.JWTSigningKey != "" {
			jwtService := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, tokenIssuer, tokenAudience)
			r.Use(middleware.OptionalAuth(jwttoken.NewJWTServiceAdapter(jwtService), log))
		}
		handler.Register(r)
	})
	return r
}
