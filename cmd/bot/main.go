package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"fetchbot/internal/bot"
	"fetchbot/internal/config"
	"fetchbot/internal/downloader"
	apphttp "fetchbot/internal/http"
	"fetchbot/internal/registry"
	"fetchbot/internal/repository/sqlite"
	"fetchbot/internal/service"
	"fetchbot/internal/stats"
	"fetchbot/internal/storage"
	"fetchbot/internal/transport"
	"fetchbot/internal/worker"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		logger.Fatalf("auth jwt secret is required")
	}
	if strings.TrimSpace(cfg.Auth.RegisterPassword) == "" {
		logger.Fatalf("auth registration password is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	userRepo := sqlite.NewUserRepository(db)
	if err := userRepo.Init(ctx); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}
	userService := service.NewUserService(userRepo, cfg.Auth.RegisterPassword)

	ledger := stats.Load(cfg.Stats.Path, logger)

	storageSvc, err := buildStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup storage: %v", err)
	}

	torrent := downloader.NewTorrent(cfg.Download.DataDir, logger)
	if err := torrent.Start(); err != nil {
		logger.Fatalf("start torrent client: %v", err)
	}
	defer torrent.Close()

	engine := worker.New(worker.Config{
		DataDir:    cfg.Download.DataDir,
		MaxWorkers: cfg.Download.Workers,
		Logger:     logger,
	}, downloader.NewHTTP(logger), torrent, storageSvc, ledger)
	if err := engine.Start(ctx); err != nil {
		logger.Fatalf("start worker engine: %v", err)
	}

	outbox := transport.NewOutbox()
	b := bot.New(registry.New(), engine, ledger, outbox, downloader.NewHTTPProber(), logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(
		b,
		userService,
		outbox,
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute,
		logger,
	)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	engine.Shutdown()

	ledger.Persist()

	logger.Info("bye")
}

func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Backend)) {
	case "", "buzzheavier":
		if cfg.Storage.AccountID == "" {
			return nil, fmt.Errorf("storage account id is required")
		}
		svc := storage.NewBuzzService(storage.BuzzConfig{
			AccountID:      cfg.Storage.AccountID,
			APIEndpoint:    cfg.Storage.APIEndpoint,
			UploadEndpoint: cfg.Storage.UploadEndpoint,
			Logger:         logger,
		})
		if err := svc.ResolveRootDir(ctx); err != nil {
			return nil, fmt.Errorf("resolve storage root: %w", err)
		}
		logger.Infof("using buzzheavier storage at %s", cfg.Storage.APIEndpoint)
		return svc, nil

	case "s3":
		if cfg.Storage.Bucket == "" {
			return nil, fmt.Errorf("storage bucket is required")
		}

		loadOpts := []func(*awscfg.LoadOptions) error{
			awscfg.WithRegion(cfg.Storage.Region),
		}
		if cfg.AWS.Profile != "" {
			loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
		}

		awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}

		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if cfg.Storage.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
				o.UsePathStyle = true
			}
		})
		logger.Infof("using s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
		return storage.NewS3Service(client, cfg.Storage.Bucket, cfg.Storage.KeyPrefix), nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
