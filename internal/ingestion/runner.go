// Package ingestion mirrors the upstream activity firehose into the ledger.
package ingestion

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/tshjustin/pokerdots-tiktok/internal/domain"
	"github.com/tshjustin/pokerdots-tiktok/internal/idhash"
	"github.com/tshjustin/pokerdots-tiktok/internal/observability"
	"github.com/tshjustin/pokerdots-tiktok/internal/storage"
)

// Runner consumes firehose events, seals origins into fingerprints, assigns
// deterministic activity ids, and writes ledger batches.
type Runner struct {
	events          <-chan *ActivityEvent
	activityStore   storage.ActivityStore
	fingerprintSalt string
	batchSize       int
	flushInterval   time.Duration
	logger          *log.Logger

	buffer []*domain.TokenActivity
	seen   map[string]struct{} // activity ids in the current buffer
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Events          <-chan *ActivityEvent
	ActivityStore   storage.ActivityStore
	FingerprintSalt string
	BatchSize       int           // Default: 500
	FlushInterval   time.Duration // Default: 2s
	Logger          *log.Logger
}

// NewRunner creates a new ingestion runner.
func NewRunner(opts RunnerOptions) *Runner {
	batchSize := opts.BatchSize
	if batchSize == 0 {
		batchSize = 500
	}

	flushInterval := opts.FlushInterval
	if flushInterval == 0 {
		flushInterval = 2 * time.Second
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stdout, "[ingestion] ", log.LstdFlags|log.Lshortfile)
	}

	return &Runner{
		events:          opts.Events,
		activityStore:   opts.ActivityStore,
		fingerprintSalt: opts.FingerprintSalt,
		batchSize:       batchSize,
		flushInterval:   flushInterval,
		logger:          logger,
		buffer:          make([]*domain.TokenActivity, 0, batchSize),
		seen:            make(map[string]struct{}, batchSize),
	}
}

// Run consumes events until the context is cancelled or the event channel
// closes, flushing the buffer on size, interval, and shutdown.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Printf("runner started, batch size: %d, flush interval: %v", r.batchSize, r.flushInterval)

	flushTicker := time.NewTicker(r.flushInterval)
	defer flushTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.flush(context.WithoutCancel(ctx))
			r.logger.Println("runner stopping...")
			return ctx.Err()

		case event, ok := <-r.events:
			if !ok {
				r.flush(ctx)
				r.logger.Println("event stream closed")
				return nil
			}
			r.add(event)
			if len(r.buffer) >= r.batchSize {
				r.flush(ctx)
			}

		case <-flushTicker.C:
			r.flush(ctx)
		}
	}
}

// add converts one firehose event into a ledger record. Duplicate ids inside
// the current buffer are dropped here so a flush never trips the store's
// intra-batch check.
func (r *Runner) add(event *ActivityEvent) {
	var actorID *string
	if event.ActorID != "" {
		id := event.ActorID
		actorID = &id
	}

	fingerprint := idhash.ComputeOriginFingerprint(event.Origin, r.fingerprintSalt)
	activityID := idhash.ComputeActivityID(event.CreatorID, event.VideoID, event.ActorID, fingerprint, event.UsedAt)

	if _, dup := r.seen[activityID]; dup {
		return
	}
	r.seen[activityID] = struct{}{}

	r.buffer = append(r.buffer, &domain.TokenActivity{
		ActivityID:        activityID,
		CreatorID:         event.CreatorID,
		VideoID:           event.VideoID,
		ActorID:           actorID,
		OriginFingerprint: fingerprint,
		UsedAt:            event.UsedAt,
		Source:            domain.Source(event.Source),
		ActorName:         event.ActorName,
		Comments:          event.Comments,
	})
	observability.UpdateActivityBuffer(len(r.buffer))
}

// flush writes the buffered batch to the ledger. The ledger deduplicates on
// activity_id, so re-delivered events after a reconnect are harmless.
func (r *Runner) flush(ctx context.Context) {
	if len(r.buffer) == 0 {
		return
	}

	batch := r.buffer
	r.buffer = make([]*domain.TokenActivity, 0, r.batchSize)
	r.seen = make(map[string]struct{}, r.batchSize)

	if err := r.activityStore.InsertBulk(ctx, batch); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			observability.RecordIngestionError("duplicate_batch")
		} else {
			observability.RecordIngestionError("store_write")
		}
		r.logger.Printf("flush failed, dropping %d activities: %v", len(batch), err)
		observability.UpdateActivityBuffer(0)
		return
	}

	observability.RecordActivitiesStored(len(batch))
	observability.UpdateActivityBuffer(0)
	observability.DefaultMetrics.LastSuccessfulIngestion.Set(float64(time.Now().Unix()))
}
