package processor

import (
	"context"

	"homefinder/server/config"
	"homefinder/server/internal/amenities"
	"homefinder/server/internal/queue"

	"github.com/sirupsen/logrus"
)

// Ingestor is the pipeline surface the workers drive.
type Ingestor interface {
	Ingest(ctx context.Context, features []amenities.RawFeature, sourceLabel string) (amenities.IngestResult, error)
}

// IngestWorkers drain the feature queue into the ingestion pipeline. There
// is no retry here: upserts are idempotent and partial failures are reported
// in the batch counts, so a caller that cares simply re-submits.
type IngestWorkers struct {
	pipeline Ingestor
	logger   *logrus.Logger
	config   *config.Config
	queue    *queue.FeatureQueue
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewIngestWorkers(pipeline Ingestor, q *queue.FeatureQueue, cfg *config.Config, logger *logrus.Logger) *IngestWorkers {
	if logger == nil {
		logger = logrus.New()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &IngestWorkers{
		pipeline: pipeline,
		queue:    q,
		config:   cfg,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start registers the batch handler and spins up the configured number of
// queue dispatchers. Each queued batch is handled exactly once.
func (w *IngestWorkers) Start() {
	w.queue.Subscribe(w.processBatch)
	for i := 0; i < w.config.Ingestion.WorkerCount; i++ {
		w.queue.Start()
	}
}

// Stop cancels any in-flight ingestion contexts. The dispatchers themselves
// exit when the queue is closed.
func (w *IngestWorkers) Stop() {
	w.cancel()
}

func (w *IngestWorkers) processBatch(batch queue.FeatureBatch) error {
	result, err := w.pipeline.Ingest(w.ctx, batch.Features, batch.SourceLabel)
	if err != nil {
		w.logger.WithError(err).WithField("source", batch.SourceLabel).
			Error("Feature batch partially failed")
		return err
	}

	w.logger.WithFields(logrus.Fields{
		"source":   batch.SourceLabel,
		"inserted": result.Inserted,
		"updated":  result.Updated,
		"dropped":  result.Dropped,
	}).Info("Processed feature batch")
	return nil
}
