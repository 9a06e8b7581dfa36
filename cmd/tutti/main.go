package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/layer-3/tutti/adapters/events"
	"github.com/layer-3/tutti/adapters/hasher"
	"github.com/layer-3/tutti/adapters/metrics"
	"github.com/layer-3/tutti/adapters/store"
	"github.com/layer-3/tutti/adapters/tokenizer"
	"github.com/layer-3/tutti/internal/config"
	"github.com/layer-3/tutti/internal/logger"
	"github.com/layer-3/tutti/ports"
	"github.com/layer-3/tutti/service"
	transport "github.com/layer-3/tutti/transport/http"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		logger.New(0).Fatal("failed to load config", "error", err)
	}

	log := logger.New(cfg.LogLevel)
	log.Info("starting tutti", "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dir, closeDir, err := openDirectory(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open directory", "error", err)
	}
	defer closeDir()

	publisher, closers, err := newPublisher(cfg, log)
	if err != nil {
		log.Fatal("failed to create event publisher", "error", err)
	}
	defer closeAll(log, closers)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder, err := metrics.NewPrometheusRecorder(reg)
	if err != nil {
		log.Fatal("failed to register metrics", "error", err)
	}

	tk, err := tokenizer.NewJWTTokenizer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL())
	if err != nil {
		log.Fatal("failed to create tokenizer", "error", err)
	}

	authService := service.NewAuthService(
		tk,
		hasher.NewPBKDF2Hasher(),
		dir,
		events.NewWatermillPublisher(publisher, cfg.Events.Topic),
		recorder,
		log,
	)
	directoryService := service.NewDirectoryService(dir, log)

	gin.SetMode(cfg.HTTP.Mode)
	router := transport.SetupRouter(transport.RouterConfig{
		Auth:      authService,
		Directory: directoryService,
		Cookie:    transport.CookieConfig{Name: cfg.Auth.CookieName, Secure: cfg.Auth.CookieSecure},
		Recorder:  recorder,
		Gatherer:  reg,
		Logger:    log,
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server.start", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("server.stop", "reason", "signal")
	case err := <-errCh:
		log.Error("server.fail", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server.shutdown.fail", "error", err)
	}
	log.Info("server.stopped")
}

// openDirectory picks Postgres when DATABASE_URL is set and the in-memory store otherwise
func openDirectory(ctx context.Context, cfg *config.Config, log *logger.Logger) (ports.Directory, func(), error) {
	if cfg.Database.URL == "" {
		log.Warn("DATABASE_URL is empty, using the in-memory directory")
		return store.NewMemoryStore(store.DefaultInstruments...), func() {}, nil
	}

	pg, err := store.OpenPostgres(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}
	return pg, func() {
		if err := pg.Close(); err != nil {
			log.Error("failed to close postgres", "error", err)
		}
	}, nil
}

// newPublisher picks Redis streams when REDIS_URL is set and an in-process channel otherwise.
// Closers are returned in shutdown order, publisher first.
func newPublisher(cfg *config.Config, log *logger.Logger) (message.Publisher, []io.Closer, error) {
	wmLogger := watermill.NewStdLogger(false, false)

	if cfg.Redis.URL == "" {
		log.Warn("REDIS_URL is empty, auth events stay in process")
		pubSub := gochannel.NewGoChannel(gochannel.Config{}, wmLogger)
		return pubSub, []io.Closer{pubSub}, nil
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, nil, err
	}
	client := redis.NewClient(opts)

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: client,
		},
		wmLogger,
	)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return publisher, []io.Closer{publisher, client}, nil
}

func closeAll(log *logger.Logger, closers []io.Closer) {
	for _, c := range closers {
		if err := c.Close(); err != nil {
			log.Error("failed to close", "resource", fmt.Sprintf("%T", c), "error", err)
		}
	}
}
