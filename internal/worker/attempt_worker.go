package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/examly/session-engine/internal/config"
	"github.com/examly/session-engine/internal/model"
	"github.com/examly/session-engine/internal/store"
)

const (
	AttemptBatchSize    = 50
	AttemptBatchTimeout = 2 * time.Second
	AttemptPollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// AttemptWorker drains the attempt queue into the official store.
// Batches go through COPY; on failure each record is retried
// individually and unrecoverable ones are requeued.
type AttemptWorker struct {
	official *store.OfficialStore
	rdb      *redis.Client
	log      zerolog.Logger
}

// NewAttemptWorker creates a new AttemptWorker.
func NewAttemptWorker(official *store.OfficialStore, rdb *redis.Client, log zerolog.Logger) *AttemptWorker {
	return &AttemptWorker{
		official: official,
		rdb:      rdb,
		log:      log.With().Str("component", "attempt_worker").Logger(),
	}
}

// Start begins the worker loop. Call in a goroutine.
func (w *AttemptWorker) Start(ctx context.Context) {
	w.log.Info().Msg("AttemptWorker started")

	batch := make([]*model.OfficialAttempt, 0, AttemptBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= AttemptBatchSize || time.Since(lastFlush) >= AttemptBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			w.flushSafe(shutdownCtx, batch)
			cancel()
			return

		default:
			item, err := w.rdb.BLPop(ctx, AttemptPollTimeout, config.WorkerKey.PersistAttemptsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
					time.Sleep(3 * time.Second)
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var attempt model.OfficialAttempt
			if err := json.Unmarshal([]byte(item[1]), &attempt); err != nil {
				// Malformed JSON cannot be retried. Log and discard.
				w.log.Error().Err(err).Str("data", item[1]).Msg("Discarding malformed attempt payload")
				continue
			}

			batch = append(batch, &attempt)
		}
	}
}

// flushSafe attempts bulk insert, then row-by-row recovery with requeue.
func (w *AttemptWorker) flushSafe(ctx context.Context, batch []*model.OfficialAttempt) {
	if len(batch) == 0 {
		return
	}

	if err := w.official.SaveAttemptBatch(ctx, batch); err == nil {
		return
	} else {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk attempt insert failed, attempting row-by-row recovery")
	}

	requeue := make([]*model.OfficialAttempt, 0)
	for _, attempt := range batch {
		if err := w.official.SaveAttempt(ctx, attempt); err != nil {
			w.log.Error().Err(err).Str("exam_id", attempt.ExamID).Msg("Attempt insert failed, requeueing")
			requeue = append(requeue, attempt)
		}
	}

	if len(requeue) > 0 {
		w.requeue(ctx, requeue)
	}
}

func (w *AttemptWorker) requeue(ctx context.Context, items []*model.OfficialAttempt) {
	pipe := w.rdb.Pipeline()
	for _, attempt := range items {
		raw, _ := json.Marshal(attempt)
		pipe.RPush(ctx, config.WorkerKey.PersistAttemptsQueue, raw)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue attempts. Data loss occurred.")
		return
	}
	w.log.Info().Int("count", len(items)).Msg("Requeued failed attempts")
	// Back off so a hard-down database is not thrashed.
	time.Sleep(2 * time.Second)
}
