package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rxscan/internal/completion"
	"rxscan/internal/completion/claude"
	"rxscan/internal/completion/gemini"
	"rxscan/internal/completion/openai"
	"rxscan/internal/completion/vertex"
	"rxscan/internal/config"
	"rxscan/internal/handler"
	"rxscan/internal/logging"
	"rxscan/internal/metrics"
	"rxscan/internal/pdf"
	"rxscan/internal/port"
	firestorerepo "rxscan/internal/repository/firestore"
	"rxscan/internal/repository/postgres"
	"rxscan/internal/router"
	"rxscan/internal/service"
	gcsstorage "rxscan/internal/storage/gcs"
	s3storage "rxscan/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
	}()

	m := metrics.New()

	// Initialize the document store
	var (
		repo   port.ScanRepository
		checks []handler.ReadinessCheck
	)
	switch cfg.Store.Backend {
	case "firestore":
		client, err := firestorerepo.NewClient(ctx, &cfg.Firestore)
		if err != nil {
			return err
		}
		closers = append(closers, client)
		repo = firestorerepo.NewScanRepo(client, cfg.Firestore.Collection)
		checks = append(checks, handler.ReadinessCheck{
			Name: "firestore",
			Check: func(ctx context.Context) error {
				return firestorerepo.Ping(ctx, client, cfg.Firestore.Collection)
			},
		})
	default:
		db, err := postgres.NewDB(&cfg.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		closers = append(closers, db)
		repo = postgres.NewScanRepo(db)
		checks = append(checks, handler.ReadinessCheck{Name: "database", Check: db.PingContext})
	}

	// Initialize the image host
	var host port.ImageHost
	switch cfg.ImageHost.Backend {
	case "gcs":
		gcsHost, err := gcsstorage.NewImageHost(ctx, &cfg.GCS)
		if err != nil {
			return fmt.Errorf("failed to initialize GCS image host: %w", err)
		}
		closers = append(closers, gcsHost)
		host = gcsHost
	default:
		s3Host, err := s3storage.NewImageHost(ctx, &cfg.S3)
		if err != nil {
			return fmt.Errorf("failed to initialize S3 image host: %w", err)
		}
		host = s3Host
	}

	// Initialize the completion chain
	completion.RegisterProvider("openai", newOpenAI)
	completion.RegisterProvider("together", newOpenAI)
	completion.RegisterProvider("claude", func(pc *config.ProviderConfig) (port.CompletionClient, error) {
		return claude.NewClient(pc), nil
	})
	completion.RegisterProvider("gemini", func(pc *config.ProviderConfig) (port.CompletionClient, error) {
		return gemini.NewClient(pc), nil
	})
	completion.RegisterProvider("vertex", func(pc *config.ProviderConfig) (port.CompletionClient, error) {
		c, err := vertex.NewClient(ctx, pc)
		if err != nil {
			return nil, err
		}
		closers = append(closers, c)
		return c, nil
	})

	var providers []completion.Provider
	for _, pc := range cfg.Completion.Providers() {
		client, err := completion.NewClient(pc)
		if err != nil {
			return fmt.Errorf("failed to initialize %s provider: %w", pc.Provider, err)
		}
		providers = append(providers, completion.Provider{Name: pc.Provider, Client: client})
		logger.Info("completion provider ready", zap.String("provider", pc.Provider), zap.String("model", pc.DefaultModel))
	}
	if len(providers) == 0 {
		return errors.New("no completion provider configured")
	}
	completionClient := completion.NewRateLimited(
		completion.NewFallbackClient(providers, cfg.Breaker, logger, m),
		cfg.RateLimit,
	)

	// Initialize services and handlers
	scanSvc := service.NewScanService(repo, host, pdf.NewRasterizer(logger), completionClient, &cfg.Scan, logger, m)
	scanH := handler.NewScanHandler(scanSvc, cfg.Scan.MaxUploadSizeMB)
	healthH := handler.NewHealthHandler(checks...)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := router.Setup(logger, m, scanH, healthH)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func newOpenAI(pc *config.ProviderConfig) (port.CompletionClient, error) {
	return openai.NewClient(pc), nil
}
