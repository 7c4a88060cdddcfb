package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/examly/session-engine/internal/config"
	"github.com/examly/session-engine/internal/store"
)

const (
	ViolationBatchSize    = 50
	ViolationBatchTimeout = 2 * time.Second
	ViolationPollTimeout  = 1 * time.Second
)

// ViolationWorker drains queued integrity events into the append-only
// session_violations table. The trail is advisory: persistence failures
// never touch the exam path, they only delay the queue.
type ViolationWorker struct {
	official *store.OfficialStore
	rdb      *redis.Client
	log      zerolog.Logger
}

// NewViolationWorker creates a new ViolationWorker.
func NewViolationWorker(official *store.OfficialStore, rdb *redis.Client, log zerolog.Logger) *ViolationWorker {
	return &ViolationWorker{
		official: official,
		rdb:      rdb,
		log:      log.With().Str("component", "violation_worker").Logger(),
	}
}

// Start begins the worker loop. Call in a goroutine.
func (w *ViolationWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ViolationWorker started")

	batch := make([]*store.ViolationRow, 0, ViolationBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= ViolationBatchSize || time.Since(lastFlush) >= ViolationBatchTimeout) {

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
			item, err := w.rdb.BLPop(ctx, ViolationPollTimeout, config.WorkerKey.PersistViolationsQueue).Result()
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

			var p violationPayload
			if err := json.Unmarshal([]byte(item[1]), &p); err != nil {
				w.log.Error().Err(err).Str("data", item[1]).Msg("Discarding malformed violation payload")
				continue
			}

			batch = append(batch, &store.ViolationRow{
				ExamID:     p.ExamID,
				UserID:     p.UserID,
				EventType:  p.EventType,
				RecordedAt: time.Unix(p.Timestamp, 0),
			})
		}
	}
}

func (w *ViolationWorker) flushSafe(ctx context.Context, batch []*store.ViolationRow) {
	if len(batch) == 0 {
		return
	}

	if err := w.official.SaveViolationBatch(ctx, batch); err == nil {
		return
	} else {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk violation insert failed, attempting row-by-row recovery")
	}

	requeue := make([]*store.ViolationRow, 0)
	for _, row := range batch {
		if err := w.official.SaveViolation(ctx, row); err != nil {
			w.log.Error().Err(err).Str("exam_id", row.ExamID).Msg("Violation insert failed, requeueing")
			requeue = append(requeue, row)
		}
	}

	if len(requeue) > 0 {
		w.requeue(ctx, requeue)
	}
}

func (w *ViolationWorker) requeue(ctx context.Context, items []*store.ViolationRow) {
	pipe := w.rdb.Pipeline()
	for _, row := range items {
		raw, _ := json.Marshal(violationPayload{
			ExamID:    row.ExamID,
			UserID:    row.UserID,
			EventType: row.EventType,
			Timestamp: row.RecordedAt.Unix(),
		})
		pipe.RPush(ctx, config.WorkerKey.PersistViolationsQueue, raw)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue violations. Data loss occurred.")
		return
	}
	w.log.Info().Int("count", len(items)).Msg("Requeued failed violations")
	time.Sleep(2 * time.Second)
}
