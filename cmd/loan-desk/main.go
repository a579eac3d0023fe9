package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"ethoscore/internal/common/auth"
	"ethoscore/internal/common/config"
	"ethoscore/internal/common/database"
	commonhttp "ethoscore/internal/common/http"
	"ethoscore/internal/common/logger"
	"ethoscore/internal/loan"
	"ethoscore/internal/session"
	"ethoscore/internal/store"
	"ethoscore/internal/tui"
)

func main() {
	configPath := flag.String("config", "", "Path to a config file (default: configs/config.yaml)")
	categoryName := flag.String("category", "home", "Initial loan type: home, general or credit")
	fair := flag.Bool("fair", false, "Start in fair model mode")
	withRecords := flag.Bool("records", false, "Enable application submission to PostgreSQL")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}
	// The terminal belongs to the prompts; logs go to stderr at warn level
	// unless configured otherwise.
	level := cfg.Logging.Level
	if level == "" || level == "info" {
		level = "warn"
	}
	zapLog := logger.New(level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	category, err := loan.ParseCategory(*categoryName)
	if err != nil {
		zapLog.Fatal("invalid category", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	timeout := config.GetDuration(cfg.Prediction.Timeout)
	dispatcher := loan.NewDispatcher(
		commonhttp.NewClient(commonhttp.ClientConfig{BaseURL: cfg.Prediction.BaseURL, Timeout: timeout}),
		loan.DispatcherConfig{Timeout: timeout},
		log,
	)

	var opts []loan.SessionOption
	var identity *session.Context

	if cfg.Auth.Keycloak.URL != "" {
		kc := auth.NewKeycloakClient(
			cfg.Auth.Keycloak.URL,
			cfg.Auth.Keycloak.Realm,
			cfg.Auth.Keycloak.ClientID,
			cfg.Auth.Keycloak.ClientSecret,
		)
		var authenticator session.Authenticator = kc
		if cfg.Database.Redis.Address != "" {
			rdb, err := database.ConnectRedis(ctx, cfg.Database.Redis)
			if err != nil {
				zapLog.Warn("identity cache unavailable, using keycloak directly", zap.Error(err))
			} else {
				defer rdb.Close()
				authenticator = auth.NewCachedAuthenticator(kc, rdb.Client, config.GetDuration(cfg.Auth.Keycloak.CacheTTL), log)
			}
		}
		identity = session.NewContext(authenticator, log)
		opts = append(opts, loan.WithSessionContext(identity))
	}

	if *withRecords {
		pg, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			zapLog.Fatal("postgres open failed", zap.Error(err))
		}
		defer pg.Close()

		schemaCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err = pg.EnsureSchema(schemaCtx)
		cancel()
		if err != nil {
			zapLog.Fatal("postgres schema failed", zap.Error(err))
		}
		opts = append(opts, loan.WithRecordWriter(store.NewRecords(pg.DB, log)))
	}

	form := loan.NewFormSession(dispatcher, category, log, opts...)
	defer form.Close()
	if *fair {
		if err := form.SetFairMode(true); err != nil {
			zapLog.Fatal("fair mode", zap.Error(err))
		}
	}

	desk := tui.NewDesk(tui.NewSurveyDriver(), form, identity, log)
	if err := desk.Run(ctx); err != nil && ctx.Err() == nil {
		zapLog.Error("loan desk stopped", zap.Error(err))
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}
