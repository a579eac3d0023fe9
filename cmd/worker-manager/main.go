package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"ethoscore/internal/api"
	"ethoscore/internal/common/auth"
	awsclients "ethoscore/internal/common/aws"
	"ethoscore/internal/common/camunda"
	"ethoscore/internal/common/config"
	"ethoscore/internal/common/database"
	commonhttp "ethoscore/internal/common/http"
	"ethoscore/internal/common/logger"
	"ethoscore/internal/common/observability"
	"ethoscore/internal/loan"
	"ethoscore/internal/store"
	"ethoscore/pkg/registry"

	clr "ethoscore/internal/workers/loan/create-loan-application-record"
	ild "ethoscore/internal/workers/loan/index-loan-decision"
	plo "ethoscore/internal/workers/loan/predict-loan-outcome"
	sdn "ethoscore/internal/workers/loan/send-decision-notification"
	vla "ethoscore/internal/workers/loan/validate-loan-application"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...", zap.String("version", cfg.App.Version))

	obs := observability.New(cfg.App.Name, observability.TracingConfig{
		Enabled:           cfg.Tracing.Enabled,
		CollectorEndpoint: cfg.Tracing.CollectorEndpoint,
		SampleRatio:       cfg.Tracing.SampleRatio,
	}, log)
	defer func() {
		if err := obs.Shutdown(context.Background()); err != nil {
			zapLog.Warn("observability shutdown", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := make(map[string]api.Checker)
	var workers []*camunda.CamundaWorker
	var zeebe *camunda.Client

	if cfg.Camunda.Enabled {
		deps := connectDependencies(ctx, cfg, zapLog)
		defer deps.close(zapLog)
		checks["postgres"] = deps.pg
		checks["elasticsearch"] = deps.es

		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
				GatewayAddress:         cfg.Camunda.BrokerAddress,
				UsePlaintextConnection: true,
				RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
			})
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		checks["zeebe"] = api.CheckerFunc(zeebe.HealthCheck)
		zapLog.Info("Zeebe client connected successfully")

		workers = startWorkers(cfg, zeebe, deps, obs, log)
		zapLog.Info("Loan workers registered", zap.Int("count", len(workers)))
	} else {
		zapLog.Info("camunda disabled, serving metadata endpoints only")
	}

	// --- Health, Metrics & Form Metadata Server ---
	server := &http.Server{
		Addr: cfg.Server.Addr(),
		Handler: api.NewRouter(api.Options{
			Registry: registry.LoanActivities(),
			Checks:   checks,
			Logger:   log,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	zapLog.Info("Shutdown signal received, stopping workers...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop(shutdownCtx)
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

// dependencies are the backing services the loan workers write to.
type dependencies struct {
	pg    *database.PostgresClient
	es    *database.ElasticsearchClient
	users sdn.UserDirectory
	ses   awsclients.SESAPI
	sns   awsclients.SNSAPI
}

func connectDependencies(ctx context.Context, cfg *config.Config, zapLog *zap.Logger) *dependencies {
	deps := &dependencies{}

	err := retryWithBackoff(func() error {
		var err error
		deps.pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return deps.pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	if err := deps.pg.EnsureSchema(ctx); err != nil {
		zapLog.Fatal("postgres schema failed", zap.Error(err))
	}
	zapLog.Info("PostgreSQL connected successfully")

	err = retryWithBackoff(func() error {
		var err error
		deps.es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return deps.es.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// Assigned only when configured so the handler sees a nil interface
	// rather than a nil *KeycloakClient.
	if cfg.Auth.Keycloak.URL != "" {
		deps.users = auth.NewKeycloakClient(
			cfg.Auth.Keycloak.URL,
			cfg.Auth.Keycloak.Realm,
			cfg.Auth.Keycloak.ClientID,
			cfg.Auth.Keycloak.ClientSecret,
		)
	}

	if cfg.Notifications.Email.Enabled {
		sesClient, err := awsclients.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("ses client", zap.Error(err))
		}
		deps.ses = sesClient
	}
	if cfg.Notifications.SMS.Enabled {
		snsClient, err := awsclients.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("sns client", zap.Error(err))
		}
		deps.sns = snsClient
	}

	zapLog.Info("All external service clients initialized")
	return deps
}

func (d *dependencies) close(zapLog *zap.Logger) {
	if d.pg != nil {
		if err := d.pg.Close(); err != nil {
			zapLog.Warn("postgres close", zap.Error(err))
		}
	}
}

func startWorkers(cfg *config.Config, zeebe *camunda.Client, deps *dependencies, recorder camunda.JobRecorder, log logger.Logger) []*camunda.CamundaWorker {
	var started []*camunda.CamundaWorker
	start := func(taskType string, handler camunda.JobHandler) {
		if !config.IsWorkerEnabled(cfg, taskType) {
			log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
			return
		}
		wcfg := config.GetWorkerConfig(cfg, taskType)
		started = append(started, camunda.NewWorker(zeebe.GetClient(), taskType, camunda.WorkerOptions{
			MaxJobsActive: wcfg.MaxJobsActive,
			Timeout:       config.GetDuration(wcfg.Timeout),
			Recorder:      recorder,
		}, handler, log))
	}
	timeout := func(taskType string, def time.Duration) time.Duration {
		if ms := config.GetWorkerConfig(cfg, taskType).Timeout; ms > 0 {
			return config.GetDuration(ms)
		}
		return def
	}

	vlaCfg := vla.LoadConfig()
	vlaCfg.Timeout = timeout(vla.TaskType, vlaCfg.Timeout)
	start(vla.TaskType, vla.NewHandler(vlaCfg, log))

	predictionTimeout := config.GetDuration(cfg.Prediction.Timeout)
	dispatcher := loan.NewDispatcher(
		commonhttp.NewClient(commonhttp.ClientConfig{BaseURL: cfg.Prediction.BaseURL, Timeout: predictionTimeout}),
		loan.DispatcherConfig{Timeout: predictionTimeout},
		log,
	)
	ploCfg := plo.LoadConfig()
	ploCfg.Timeout = timeout(plo.TaskType, ploCfg.Timeout)
	start(plo.TaskType, plo.NewHandler(ploCfg, dispatcher, log))

	clrCfg := clr.LoadConfig()
	clrCfg.Timeout = timeout(clr.TaskType, clrCfg.Timeout)
	start(clr.TaskType, clr.NewHandler(clrCfg, store.NewRecords(deps.pg.DB, log), log))

	ildCfg := ild.LoadConfig()
	ildCfg.Timeout = timeout(ild.TaskType, ildCfg.Timeout)
	if cfg.Database.Elasticsearch.DecisionIndex != "" {
		ildCfg.Index = cfg.Database.Elasticsearch.DecisionIndex
	}
	start(ild.TaskType, ild.NewHandler(ildCfg, deps.es, log))

	sdnCfg := sdn.LoadConfig()
	sdnCfg.Timeout = timeout(sdn.TaskType, sdnCfg.Timeout)
	sdnCfg.EmailEnabled = cfg.Notifications.Email.Enabled
	sdnCfg.SMSEnabled = cfg.Notifications.SMS.Enabled
	sdnCfg.FromEmail = cfg.Notifications.Email.FromEmail
	sdnCfg.SenderID = cfg.Notifications.SMS.SenderID
	sdnCfg.AWSRegion = cfg.Notifications.AWS.Region
	start(sdn.TaskType, sdn.NewHandler(sdnCfg, deps.ses, deps.sns, deps.users, log))

	return started
}
