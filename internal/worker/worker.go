package worker

import (
	"context"
	"encoding/json"
	"time"

	"pimsync/internal/config"
	"pimsync/internal/logger"
	"pimsync/internal/models"
	syncpkg "pimsync/internal/sync"

	"github.com/segmentio/kafka-go"
)

// Event is a sync trigger consumed from the message bus. PIM webhooks and
// scheduled jobs land here.
type Event struct {
	Type      string    `json:"type"`
	ProductID string    `json:"product_id,omitempty"`
	FullSync  bool      `json:"full_sync"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	EventTypeSyncRequested   = "sync.requested"
	EventTypeProductModified = "product.modified"
)

// RunResult is published to the progress topic when a pass finishes, so
// downstream consumers (dashboards, alerting) don't have to poll the API.
type RunResult struct {
	RunID             string    `json:"run_id"`
	Status            string    `json:"status"`
	ProductsProcessed int       `json:"products_processed"`
	ProductsSkipped   int       `json:"products_skipped"`
	ErrorsCount       int       `json:"errors_count"`
	Timestamp         time.Time `json:"timestamp"`
}

type Worker struct {
	config       *config.Config
	logger       *logger.Logger
	reader       *kafka.Reader
	writer       *kafka.Writer
	orchestrator *syncpkg.Orchestrator
}

func New(cfg *config.Config, logger *logger.Logger, orchestrator *syncpkg.Orchestrator) *Worker {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        []string{cfg.KafkaBrokers},
		GroupID:        "pimsync-worker",
		Topic:          "sync-events",
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
	})
	writer := &kafka.Writer{
		Addr:     kafka.TCP(cfg.KafkaBrokers),
		Topic:    "sync-progress",
		Balancer: &kafka.LeastBytes{},
	}

	return &Worker{
		config:       cfg,
		logger:       logger,
		reader:       reader,
		writer:       writer,
		orchestrator: orchestrator,
	}
}

func (w *Worker) Start() {
	w.logger.Info("Worker started, listening for sync events...")

	for {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		message, err := w.reader.ReadMessage(ctx)
		cancel()

		if err != nil {
			if err == context.DeadlineExceeded {
				continue
			}
			w.logger.Error("Failed to read message: %v", err)
			continue
		}

		w.logger.Debug("Received message: %s", string(message.Value))

		var event Event
		if err := json.Unmarshal(message.Value, &event); err != nil {
			w.logger.Error("Failed to parse event: %v", err)
			continue
		}

		if err := w.process(event); err != nil {
			w.logger.Error("Failed to process event: %v", err)
			continue
		}
	}
}

func (w *Worker) process(event Event) error {
	switch event.Type {
	case EventTypeSyncRequested, EventTypeProductModified:
		if w.orchestrator.Running() {
			w.logger.Info("Sync already running, dropping %s event", event.Type)
			return nil
		}
		run, err := w.orchestrator.Run(context.Background(), syncpkg.RunOptions{FullSync: event.FullSync})
		if err != nil {
			return err
		}
		w.logger.Info("Sync run %s finished with status %s", run.ID, run.Status)
		w.emitResult(run)
		return nil
	default:
		w.logger.Debug("Ignoring event type %s", event.Type)
		return nil
	}
}

func (w *Worker) emitResult(run *models.SyncRun) {
	result := RunResult{
		RunID:             run.ID,
		Status:            string(run.Status),
		ProductsProcessed: run.ProductsProcessed,
		ProductsSkipped:   run.ProductsSkipped,
		ErrorsCount:       run.ErrorsCount,
		Timestamp:         time.Now().UTC(),
	}
	payload, err := json.Marshal(result)
	if err != nil {
		w.logger.Error("Failed to marshal run result: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := w.writer.WriteMessages(ctx, kafka.Message{Key: []byte(run.ID), Value: payload}); err != nil {
		// Progress events are best-effort; the run record is already persisted.
		w.logger.Warn("Failed to publish run result: %v", err)
	}
}

func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	w.reader.Close()
	w.writer.Close()
}
