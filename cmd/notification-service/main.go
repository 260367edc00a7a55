// cmd/notification-service/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"

	"edumatch-notifications/internal/api"
	awsclient "edumatch-notifications/internal/common/aws"
	"edumatch-notifications/internal/common/camunda"
	"edumatch-notifications/internal/common/config"
	"edumatch-notifications/internal/common/database"
	"edumatch-notifications/internal/common/logger"
	"edumatch-notifications/internal/common/messaging"
	"edumatch-notifications/internal/common/observability"
	"edumatch-notifications/internal/notification/consumer"
	"edumatch-notifications/internal/notification/directory"
	"edumatch-notifications/internal/notification/dispatcher"
	"edumatch-notifications/internal/notification/email"
	"edumatch-notifications/internal/notification/push"
	"edumatch-notifications/internal/notification/recipients"
	"edumatch-notifications/internal/notification/store"
	sb "edumatch-notifications/internal/workers/notification/send-broadcast"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func fatal(log logger.Logger, msg string, err error) {
	log.Error(msg, map[string]interface{}{"error": err.Error()})
	_ = logger.Unwrap(log).Sync()
	os.Exit(1)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	log := logger.NewStructured(cfg.App.Name, cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer logger.Unwrap(log).Sync()

	log.Info("starting notification service", map[string]interface{}{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		log.Warn("metrics exporter unavailable", map[string]interface{}{"error": err.Error()})
	}
	shutdownTracing, err := observability.InitTracing(cfg.Tracing, cfg.App.Name)
	if err != nil {
		fatal(log, "tracing init failed", err)
	}

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, log, "PostgreSQL connection")
	if err != nil {
		fatal(log, "postgres failed after retries", err)
	}
	defer pg.Close()
	log.Info("PostgreSQL connected successfully", nil)

	if err := store.Migrate(ctx, pg.DB); err != nil {
		fatal(log, "schema migration failed", err)
	}

	// --- Init Redis with retry ---
	rdb := database.NewRedis(cfg.Database.Redis)
	err = retryWithBackoff(func() error {
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, log, "Redis connection")
	if err != nil {
		fatal(log, "redis failed after retries", err)
	}
	defer rdb.Close()
	log.Info("Redis connected successfully", nil)

	// --- Init Elasticsearch (optional) ---
	var historyIndex *store.HistoryIndex
	var esClient *database.ElasticsearchClient
	if cfg.Database.Elasticsearch.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			if err := esClient.Ping(ctx); err != nil {
				return err
			}
			return esClient.EnsureIndex(ctx, cfg.Database.Elasticsearch.HistoryIndex, store.HistoryIndexMapping)
		}, 5, 2*time.Second, log, "Elasticsearch connection")
		if err != nil {
			log.Warn("history search disabled", map[string]interface{}{"error": err.Error()})
			esClient = nil
		} else {
			historyIndex = store.NewHistoryIndex(esClient.Client, cfg.Database.Elasticsearch.HistoryIndex)
			log.Info("Elasticsearch connected successfully", nil)
		}
	}

	// --- Init RabbitMQ with retry ---
	var broker *messaging.Broker
	err = retryWithBackoff(func() error {
		var err error
		broker, err = messaging.Dial(cfg.RabbitMQ, log)
		return err
	}, 15, 2*time.Second, log, "RabbitMQ connection")
	if err != nil {
		fatal(log, "rabbitmq failed after retries", err)
	}
	defer broker.Close()

	publisher := messaging.NewPublisher(broker, cfg.App.Name)
	defer publisher.Close()

	// --- Stores ---
	historyStore := store.NewHistoryStore(pg.DB)
	notificationStore := store.NewNotificationStore(pg.DB)
	templateStore := store.NewTemplateStore(pg.DB)
	tokens := push.NewTokenCache(
		rdb.Client,
		store.NewTokenStore(pg.DB),
		time.Duration(cfg.Database.Redis.TokenTTL)*time.Second,
		log,
	)

	// --- Push provider ---
	pusher, err := newPusher(ctx, cfg, tokens, log)
	if err != nil {
		fatal(log, "push provider init failed", err)
	}

	// --- Consumer ---
	handler := consumer.NewHandler(notificationStore, pusher, log).WithObservability(obs)
	if cfg.Integrations.AWS.SES.Enabled {
		sesClient, err := awsclient.NewSESClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			fatal(log, "ses client init failed", err)
		}
		handler.WithMailer(email.NewMailer(sesClient, cfg.Integrations.AWS.SES.FromEmail), 0)
		log.Info("email copies enabled", map[string]interface{}{"from": cfg.Integrations.AWS.SES.FromEmail})
	}

	subscriber := messaging.NewSubscriber(broker, messaging.SubscriberOptions{
		Queue:          cfg.RabbitMQ.Queue,
		ConsumerTag:    cfg.App.Name,
		Prefetch:       cfg.RabbitMQ.Prefetch,
		Workers:        cfg.Consumer.Workers,
		HandlerTimeout: config.GetDuration(cfg.Consumer.HandlerTimeout),
	}, handler.Handle, log)

	// --- Dispatcher ---
	resolver := recipients.NewResolver(
		directory.NewClient(cfg.Directory.BaseURL, config.GetDuration(cfg.Directory.Timeout)),
		cfg.Directory.PageSize,
		log,
	)
	disp := dispatcher.New(resolver, publisher, historyStore, dispatcher.Options{
		Workers:        cfg.Dispatcher.PublishWorkers,
		PublishTimeout: config.GetDuration(cfg.Dispatcher.PublishTimeout),
	}, log).WithObservability(obs)

	var searcher api.HistorySearcher
	if historyIndex != nil {
		disp.WithIndex(historyIndex)
		searcher = historyIndex
	}

	// --- Zeebe workers (optional) ---
	var workers []*camunda.Worker
	if cfg.Camunda.Enabled {
		zeebeClient, err := camunda.Connect(ctx, camunda.DefaultClientConfig(cfg.Camunda.BrokerAddress))
		if err != nil {
			fatal(log, "zeebe client failed after retries", err)
		}
		defer zeebeClient.Close()
		log.Info("Zeebe client connected successfully", nil)

		if w := startWorker(zeebeClient, cfg, sb.TaskType, sb.NewHandler(sb.LoadConfig(cfg), disp, log), log); w != nil {
			workers = append(workers, w)
		}
	}

	// --- HTTP API ---
	ready := map[string]api.Checker{
		"postgres": pg.Ping,
		"redis":    rdb.Ping,
		"rabbitmq": func(context.Context) error {
			if !broker.Healthy() {
				return errors.New("connection closed")
			}
			return nil
		},
	}
	if esClient != nil {
		ready["elasticsearch"] = esClient.Ping
	}

	router := api.NewRouter(api.Deps{
		Auth: api.AuthConfig{
			Secret:    cfg.Auth.JWT.Secret,
			Issuer:    cfg.Auth.JWT.Issuer,
			AdminRole: cfg.Auth.JWT.AdminRole,
		},
		Admin:         api.NewAdminHandler(disp, historyStore, templateStore, searcher),
		Notifications: api.NewNotificationHandler(notificationStore),
		Tokens:        api.NewTokenHandler(tokens, pusher),
		Ready:         ready,
		Logger:        log,
		Release:       cfg.App.Environment == "production",
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := subscriber.Run(ctx); err != nil {
			log.Error("subscriber exited", map[string]interface{}{"error": err.Error()})
		}
	}()
	go func() {
		defer wg.Done()
		log.Info("http server listening", map[string]interface{}{"address": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", map[string]interface{}{"error": err.Error()})
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownGrace))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", map[string]interface{}{"error": err.Error()})
	}
	for _, w := range workers {
		w.Stop()
	}
	wg.Wait()

	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn("tracing shutdown failed", map[string]interface{}{"error": err.Error()})
	}
	if obs != nil {
		_ = obs.Shutdown(shutdownCtx)
	}
	log.Info("notification service stopped", nil)
}

type pushSender interface {
	Send(ctx context.Context, m push.PushMessage) push.Outcome
}

func newPusher(ctx context.Context, cfg *config.Config, tokens *push.TokenCache, log logger.Logger) (pushSender, error) {
	timeout := config.GetDuration(cfg.Push.Timeout)

	switch cfg.Push.Provider {
	case "fcm":
		sender, err := push.NewFCMSender(ctx, cfg.Push.FCM.CredentialsFile)
		if err != nil {
			return nil, err
		}
		log.Info("push via firebase", nil)
		return push.NewAdapter(tokens, sender, timeout, log), nil
	case "sns":
		client, err := awsclient.NewSNSClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			return nil, err
		}
		log.Info("push via sns", map[string]interface{}{"region": cfg.Integrations.AWS.Region})
		return push.NewAdapter(tokens, push.NewSNSSender(client), timeout, log), nil
	case "none":
		log.Warn("push delivery disabled", nil)
		return push.Disabled{}, nil
	}
	return nil, fmt.Errorf("unknown push provider %q", cfg.Push.Provider)
}

func startWorker(client zbc.Client, cfg *config.Config, taskType string, handler camunda.JobHandler, log logger.Logger) *camunda.Worker {
	wc, ok := cfg.Workers[taskType]
	if !ok || !wc.Enabled {
		log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return nil
	}

	maxJobs := wc.MaxJobsActive
	if maxJobs <= 0 {
		maxJobs = cfg.Camunda.MaxJobsActive
	}
	return camunda.StartWorker(client, taskType, maxJobs, handler, log)
}
