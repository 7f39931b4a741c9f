package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lexhelp/precedent-search/internal/bootstrap"
	"github.com/lexhelp/precedent-search/internal/config"
	"github.com/lexhelp/precedent-search/internal/observability/logging"
	"github.com/lexhelp/precedent-search/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("worker", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("worker metrics server error: %v", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	log.Printf("worker subscribed to %s", cfg.NATSSubject)
	err = app.Queue.SubscribeFeedbackRecorded(ctx, func(handlerCtx context.Context, documentID string) error {
		recomputeCtx, cancel := context.WithTimeout(handlerCtx, 30*time.Second)
		defer cancel()

		workerMetrics.StartRecompute()
		start := time.Now()
		agg, err := app.UpdaterUC.RecomputeByDocumentID(recomputeCtx, documentID)
		workerMetrics.FinishRecompute("worker", time.Since(start), err)
		if err != nil {
			return err
		}

		slog.Info("aggregate_recomputed",
			"document_id", agg.DocumentID,
			"total_feedback_count", agg.TotalFeedbackCount,
			"like_ratio", agg.LikeRatio,
			"should_exclude", agg.ShouldExclude,
		)
		return nil
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
