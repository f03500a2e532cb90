package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"

	"certify/cmd/buildCFG"
	"certify/internal/api/api"
	"certify/internal/auth"
	rabbitReader "certify/internal/consumerWorker"
	"certify/internal/mailer"
	"certify/internal/qrcode"
	"certify/internal/rabbit"
	"certify/internal/repo"
	"certify/internal/service"
	"certify/internal/storage"
)

func main() {
	zlog.Init()
	log := zlog.Logger

	cfg := config.New()
	if err := cfg.Load("config.yaml", "", "CERTIFY"); err != nil {
		log.Fatal().Msgf("failed to load configuration: %v", err)
	}
	serverCfg := buildCFG.BuildServerConfig(cfg, &log)

	masterDSN, slaveDSNs, poolOptions, err := buildCFG.BuildDBConfig(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build DB config")
	}
	db, err := dbpg.New(masterDSN, slaveDSNs, poolOptions)
	if err != nil {
		log.Fatal().Msgf("failed to connect to DB: %v", err)
	}
	defer db.Master.Close()

	repository, err := repo.NewRepository(db, &log)
	if err != nil {
		log.Fatal().Msgf("failed to initialize repository: %v", err)
	}
	log.Info().Msg("Database connected successfully")

	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal().Err(err).Msg("cannot get working directory")
	}
	migrationPath := filepath.Join(cwd, "migrations/postgres")
	if err := repository.MigrateUp(migrationPath); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	redisCfg := buildCFG.BuildRedisConfig(cfg, &log)
	var rdb *redis.Client
	if redisCfg.Enabled() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     redisCfg.Addr,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("addr", redisCfg.Addr).Msg("redis unavailable, running without cache and rate limit")
			_ = rdb.Close()
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}
	certificates := repo.NewCertificateCache(repository, rdb, redisCfg.CacheTTL, &log)

	storageCfg, err := buildCFG.BuildStorageConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build storage config")
	}
	store, err := storage.New(context.Background(), storageCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize storage")
	}

	qrOpts := buildCFG.BuildQRConfig(cfg, &log)
	fetcher := qrcode.NewFetcher(nil, qrOpts, &log)

	rabbitCfg, err := buildCFG.BuildRabbitConfig(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load RabbitMQ config")
	}

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	var (
		publisher service.Publisher
		reader    *rabbitReader.Reader
	)
	if rabbitCfg.Enabled {
		rmq, err := rabbit.NewRabbit(rabbitCfg.Url, rabbitCfg.Exchange, rabbitCfg.Queue)
		if err != nil {
			log.Fatal().Msgf("Failed to connect to RabbitMQ: %v", err)
		}
		defer rmq.Close()

		mail, err := mailer.New(buildCFG.BuildMailConfig(cfg), &log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize mailer")
		}
		reader = rabbitReader.NewReader(rmq, mail, &log)
		reader.Start(workerCtx)
		publisher = rmq
	}

	authenticator, err := auth.New(buildCFG.BuildAuthConfig(cfg))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize authentication")
	}
	defer authenticator.Close()
	if authenticator == nil {
		log.Warn().Msg("auth is not configured, organizer routes are open")
	}

	serviceInstance := service.NewService(service.Params{
		Repo:           repository,
		Certificates:   certificates,
		Fetcher:        fetcher,
		Generator:      qrcode.Generator{Size: qrOpts.Size},
		Store:          store,
		Publisher:      publisher,
		Log:            &log,
		BaseURL:        serverCfg.BaseURL,
		MaxUploadBytes: serverCfg.MaxUploadBytes,
	})

	routers := &api.Routers{
		Service:         serviceInstance,
		Log:             &log,
		GinMode:         serverCfg.GinMode,
		Auth:            authenticator,
		CORSOrigins:     serverCfg.CORSOrigins,
		Redis:           rdb,
		VerifyRateLimit: serverCfg.VerifyRateLimit,
		VerifyWindow:    serverCfg.VerifyWindow,
		Ready: func(ctx context.Context) error {
			return db.Master.PingContext(ctx)
		},
	}
	if local, ok := store.(*storage.Local); ok && strings.HasPrefix(local.BaseURL(), "/") {
		routers.QRDir, routers.QRURL = local.Dir(), local.BaseURL()
	}
	app := api.NewRouters(routers)

	srv := &http.Server{
		Addr:              ":" + serverCfg.Port,
		Handler:           app,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		log.Info().Msgf("Starting server on %s", serverCfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("failed to start server: %w", err)
		}
	}()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-signalChan:
		log.Info().Msgf("Received signal %s. Initiating shutdown...", sig)
	case err := <-serverErrChan:
		log.Error().Msgf("Server error: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Msgf("Error shutting down server: %v", err)
	}

	cancelWorkers()
	if reader != nil {
		reader.Stop()
	}

	log.Info().Msg("Shutdown complete")
}
