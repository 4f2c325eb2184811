// cmd/notification-service/main.go
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

	"insurance-notifications/internal/api"
	"insurance-notifications/internal/common/aws"
	"insurance-notifications/internal/common/camunda"
	"insurance-notifications/internal/common/config"
	"insurance-notifications/internal/common/database"
	commonhttp "insurance-notifications/internal/common/http"
	"insurance-notifications/internal/common/logger"
	"insurance-notifications/internal/common/observability"
	"insurance-notifications/internal/notification/delivery"
	"insurance-notifications/internal/notification/dispatch"
	"insurance-notifications/internal/notification/formatter"
	"insurance-notifications/internal/store"
	sbn "insurance-notifications/internal/workers/notification/send-bulk-notification"
	sn "insurance-notifications/internal/workers/notification/send-notification"
	"insurance-notifications/pkg/registry"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// retryWithBackoff retries operation with capped exponential backoff until it
// succeeds or maxRetries is spent.
func retryWithBackoff(ctx context.Context, operation func(ctx context.Context) error, maxRetries uint64, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	backoff := retry.WithMaxRetries(maxRetries, retry.WithCappedDuration(30*time.Second, retry.NewExponential(initialDelay)))

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := operation(ctx); err != nil {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", attempt),
				zap.Uint64("maxRetries", maxRetries),
			)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s failed after %d attempts: %w", operationName, attempt, err)
	}
	return nil
}

// worker is the lifecycle shared by the notification job handlers.
type worker interface {
	Register() error
	Close(ctx context.Context)
	GetTaskType() string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting notification service...",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", cfg.App.Version),
	)

	obs := observability.New(observability.Options{
		ServiceName:    cfg.App.Name,
		TracingEnabled: cfg.Tracing.Enabled,
		JaegerEndpoint: cfg.Tracing.JaegerEndpoint,
		SampleRatio:    cfg.Tracing.SampleRatio,
		Logger:         zapLog,
	})
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalogue, err := registry.LoadCatalogue(cfg.Notifications.CataloguePath)
	if err != nil {
		zapLog.Fatal("catalogue load failed", zap.Error(err))
	}

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(ctx, func(ctx context.Context) error {
		if pg == nil {
			client, err := database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			pg = client
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(ctx, func(ctx context.Context) error {
		if rdb == nil {
			client, err := database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			rdb = client
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	checks := []commonhttp.ReadinessCheck{
		{Name: "postgres", Check: pg.Ping},
		{Name: "redis", Check: rdb.Ping},
	}

	// --- Init Elasticsearch with retry (optional) ---
	var esClient *database.ElasticsearchClient
	if cfg.Database.Elasticsearch.Enabled {
		err = retryWithBackoff(ctx, func(ctx context.Context) error {
			if esClient == nil {
				client, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
				if err != nil {
					return err
				}
				esClient = client
			}
			return esClient.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		checks = append(checks, commonhttp.ReadinessCheck{Name: "elasticsearch", Check: esClient.Ping})
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Delivery channel ---
	awsCfg, err := aws.LoadConfig(ctx, cfg.Integrations.AWS.Region)
	if err != nil {
		zapLog.Fatal("aws config load failed", zap.Error(err))
	}

	var mailer delivery.SESService = &logMailer{log: log}
	if cfg.Integrations.AWS.SES.Enabled {
		mailer = aws.NewSESClient(awsCfg, cfg.Integrations.AWS.Endpoint)
	} else {
		zapLog.Warn("SES disabled, notifications are logged instead of mailed")
	}

	repo := store.NewPostgres(pg.DB, store.WithPaymentUserColumn(cfg.Notifications.PaymentUserColumn))
	channelOpts := []delivery.Option{}
	channelCfg := delivery.Config{FromEmail: cfg.Integrations.AWS.SES.FromEmail}
	if cfg.Integrations.AWS.SNS.Enabled {
		channelCfg.TopicARN = cfg.Integrations.AWS.SNS.TopicARN
		channelOpts = append(channelOpts, delivery.WithEventPublisher(aws.NewSNSClient(awsCfg, cfg.Integrations.AWS.Endpoint)))
	}
	if esClient != nil {
		channelCfg.SearchIndex = cfg.Notifications.SearchIndex
		channelOpts = append(channelOpts, delivery.WithSearchIndexer(esClient))
	}
	channel := delivery.NewChannel(channelCfg, mailer, repo, log, channelOpts...)

	// --- Dispatch service ---
	service := dispatch.NewService(dispatch.ServiceDependencies{
		Lookup:        repo,
		Providers:     store.NewProviderCache(rdb.Client, repo, config.GetDuration(cfg.Notifications.ProviderCacheTTL), log),
		Notifications: repo,
		Channel:       channel,
		Formatter:     formatter.New(cfg.Notifications.AppName, cfg.Notifications.AppURL),
		Catalogue:     catalogue,
		Observability: obs,
		Logger:        log,
	}, &dispatch.Config{
		HistoryPerPage:  cfg.Notifications.HistoryPerPage,
		BulkConcurrency: cfg.Notifications.BulkConcurrency,
	})

	// --- Zeebe workers (optional) ---
	var workers []worker
	var zeebe *camunda.Client
	if cfg.Camunda.Enabled {
		err = retryWithBackoff(ctx, func(ctx context.Context) error {
			client, err := camunda.NewClient(cfg.Camunda.BrokerAddress)
			if err != nil {
				return err
			}
			zeebe = client
			return nil
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		checks = append(checks, commonhttp.ReadinessCheck{Name: "zeebe", Check: zeebe.HealthCheck})
		zapLog.Info("Zeebe client connected successfully")

		single, err := sn.NewHandler(sn.HandlerOptions{
			AppConfig:  cfg,
			Camunda:    zeebe,
			Catalogue:  catalogue,
			Dispatcher: service,
			Lookup:     repo,
			Logger:     log,
			ZapLogger:  zapLog,
		})
		if err != nil {
			zapLog.Fatal("failed to create send-notification handler", zap.Error(err))
		}

		bulk, err := sbn.NewHandler(sbn.HandlerOptions{
			AppConfig:  cfg,
			Camunda:    zeebe,
			Catalogue:  catalogue,
			Dispatcher: service,
			Logger:     log,
			ZapLogger:  zapLog,
		})
		if err != nil {
			zapLog.Fatal("failed to create send-bulk-notification handler", zap.Error(err))
		}

		workers = append(workers, single, bulk)
		for _, w := range workers {
			if err := w.Register(); err != nil {
				zapLog.Fatal("worker registration failed", zap.String("taskType", w.GetTaskType()), zap.Error(err))
			}
		}
		zapLog.Info("Notification workers registered", zap.Int("count", len(workers)))
	}

	// --- HTTP API ---
	validator, err := api.NewValidator()
	if err != nil {
		zapLog.Fatal("validator init failed", zap.Error(err))
	}

	router := commonhttp.NewRouter(cfg.HTTP, checks...)
	api.NewHandler(api.HandlerDependencies{
		Service:   service,
		Lookup:    repo,
		Catalogue: catalogue,
		Validator: validator,
		Logger:    log,
	}).Register(router)

	server := commonhttp.NewServer(cfg.HTTP, router)
	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	zapLog.Info("Shutdown signal received, stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}
	for _, w := range workers {
		w.Close(shutdownCtx)
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}

	zapLog.Info("Notification service stopped gracefully")
}

// logMailer stands in for SES when mail is disabled, e.g. in local runs.
type logMailer struct {
	log logger.Logger
}

func (m *logMailer) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	id := uuid.NewString()
	m.log.Info("Mail delivery disabled, message logged", map[string]interface{}{
		"messageId": id,
		"to":        params.Destination.ToAddresses,
		"subject":   *params.Message.Subject.Data,
	})
	return &ses.SendEmailOutput{MessageId: &id}, nil
}
