// Command review-workers runs the image review workers as one daemon. Each
// configured queue gets its own dispatcher goroutine; a small HTTP server
// exposes /healthz and /metrics.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	awssesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	awssns "github.com/aws/aws-sdk-go-v2/service/sns"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tendant/image-review/pkg/imagereview"
	"github.com/tendant/image-review/pkg/imagereview/config"
	"github.com/tendant/image-review/pkg/imagereview/mail/ses"
	"github.com/tendant/image-review/pkg/imagereview/messaging"
	snstopic "github.com/tendant/image-review/pkg/imagereview/messaging/sns"
	sqsqueue "github.com/tendant/image-review/pkg/imagereview/messaging/sqs"
	"github.com/tendant/image-review/pkg/imagereview/metrics"
	dynamorepo "github.com/tendant/image-review/pkg/imagereview/repo/dynamo"
	memoryrepo "github.com/tendant/image-review/pkg/imagereview/repo/memory"
	postgresrepo "github.com/tendant/image-review/pkg/imagereview/repo/postgres"
	s3storage "github.com/tendant/image-review/pkg/imagereview/storage/s3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		log.Fatalf("Failed to load AWS configuration: %v", err)
	}
	sqsClient := awssqs.NewFromConfig(awsCfg)

	records, err := buildRecordStore(ctx, cfg, awsCfg)
	if err != nil {
		log.Fatalf("Failed to build record store: %v", err)
	}

	dispatchers, err := buildDispatchers(cfg, awsCfg, sqsClient, records, logger)
	if err != nil {
		log.Fatalf("Failed to wire workers: %v", err)
	}
	if len(dispatchers) == 0 {
		log.Fatal("No queues configured; nothing to do")
	}

	var wg sync.WaitGroup
	for _, d := range dispatchers {
		wg.Add(1)
		go func(d *messaging.Dispatcher) {
			defer wg.Done()
			if err := d.Run(ctx); err != nil {
				logger.Error("dispatcher stopped", "error", err)
			}
		}(d)
	}

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: routes(),
	}
	go func() {
		logger.Info("review workers started",
			"http_addr", cfg.HTTPAddr, "dispatchers", len(dispatchers))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	wg.Wait()
	logger.Info("review workers exiting")
}

func routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())
	return r
}

func buildRecordStore(ctx context.Context, cfg *config.Config, awsCfg aws.Config) (imagereview.RecordStore, error) {
	switch {
	case cfg.TableName != "":
		store, err := dynamorepo.New(awsdynamodb.NewFromConfig(awsCfg), cfg.TableName)
		if err != nil {
			return nil, err
		}
		return store, nil
	case cfg.DatabaseURL != "":
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return postgresrepo.NewWithPool(pool), nil
	default:
		return memoryrepo.New(), nil
	}
}

func buildDispatchers(cfg *config.Config, awsCfg aws.Config, sqsClient *awssqs.Client,
	records imagereview.RecordStore, logger *slog.Logger) ([]*messaging.Dispatcher, error) {

	opts := []messaging.DispatcherOption{
		messaging.WithLogger(logger),
		messaging.WithBatchSize(cfg.BatchSize),
		messaging.WithWaitTime(cfg.WaitTime),
		messaging.WithHandlerTimeout(cfg.HandlerTimeout),
	}

	var dispatchers []*messaging.Dispatcher
	add := func(name, queueURL, dlqURL string, handler messaging.Handler) error {
		if queueURL == "" {
			return nil
		}
		queue, err := sqsqueue.New(sqsClient, sqsqueue.Config{
			QueueURL:           queueURL,
			DeadLetterQueueURL: dlqURL,
		})
		if err != nil {
			return fmt.Errorf("failed to bind queue for %s: %w", name, err)
		}
		dispatchers = append(dispatchers, messaging.NewDispatcher(name, queue, handler, opts...))
		return nil
	}

	intake := imagereview.NewIntakeValidator(records, cfg.AllowedExtensionList(), logger)
	if err := add("intake", cfg.IntakeQueueURL, cfg.IntakeDLQURL, intake); err != nil {
		return nil, err
	}

	if cfg.IntakeDLQURL != "" {
		objects := s3storage.NewWithClient(awss3.NewFromConfig(awsCfg))
		reaper := imagereview.NewInvalidObjectReaper(objects, cfg.AllowedExtensionList(), logger)
		if err := add("reaper", cfg.IntakeDLQURL, "", reaper); err != nil {
			return nil, err
		}
	}

	applier := imagereview.NewMetadataApplier(records, logger)
	if err := add("metadata", cfg.MetadataQueueURL, "", applier); err != nil {
		return nil, err
	}

	if cfg.StatusQueueURL != "" {
		if cfg.NotifyTopicARN == "" {
			return nil, fmt.Errorf("STATUS_NOTIFY_TOPIC_ARN is required with STATUS_QUEUE_URL")
		}
		notify, err := snstopic.New(awssns.NewFromConfig(awsCfg), cfg.NotifyTopicARN)
		if err != nil {
			return nil, err
		}
		status := imagereview.NewStatusTransitionWorker(records, notify, logger)
		if err := add("status", cfg.StatusQueueURL, "", status); err != nil {
			return nil, err
		}
	}

	if cfg.NotifyQueueURL != "" {
		if cfg.FromEmail == "" || cfg.ToEmail == "" {
			return nil, fmt.Errorf("FROM_EMAIL and TO_EMAIL are required with NOTIFY_QUEUE_URL")
		}
		sender := ses.New(awssesv2.NewFromConfig(awsCfg))
		notifier := imagereview.NewNotificationWorker(sender, cfg.FromEmail, cfg.ToEmail, logger)
		if err := add("notify", cfg.NotifyQueueURL, "", notifier); err != nil {
			return nil, err
		}
	}

	return dispatchers, nil
}
