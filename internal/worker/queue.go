package worker

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/examly/session-engine/internal/config"
	"github.com/examly/session-engine/internal/model"
)

// AttemptQueue is the producer side of official-attempt persistence.
// The dispatcher pushes here and returns; AttemptWorker drains to
// PostgreSQL.
type AttemptQueue struct {
	rdb *redis.Client
}

// NewAttemptQueue creates a new AttemptQueue.
func NewAttemptQueue(rdb *redis.Client) *AttemptQueue {
	return &AttemptQueue{rdb: rdb}
}

// EnqueueAttempt queues one completed attempt record.
func (q *AttemptQueue) EnqueueAttempt(ctx context.Context, attempt *model.OfficialAttempt) error {
	raw, err := json.Marshal(attempt)
	if err != nil {
		return err
	}
	return q.rdb.RPush(ctx, config.WorkerKey.PersistAttemptsQueue, raw).Err()
}

// violationPayload is the queue encoding of one integrity event.
type violationPayload struct {
	ExamID    string `json:"exam_id"`
	UserID    string `json:"user_id"`
	EventType string `json:"event_type"`
	Timestamp int64  `json:"timestamp"`
}

// ViolationQueue is the producer side of integrity-event persistence.
// The session bridge records here and never blocks on the database.
type ViolationQueue struct {
	rdb *redis.Client
}

// NewViolationQueue creates a new ViolationQueue.
func NewViolationQueue(rdb *redis.Client) *ViolationQueue {
	return &ViolationQueue{rdb: rdb}
}

// RecordViolation queues one violation event.
func (q *ViolationQueue) RecordViolation(ctx context.Context, examID, userID string, ev model.ViolationEvent) error {
	raw, err := json.Marshal(violationPayload{
		ExamID:    examID,
		UserID:    userID,
		EventType: ev.Type,
		Timestamp: ev.Timestamp.Unix(),
	})
	if err != nil {
		return err
	}
	return q.rdb.RPush(ctx, config.WorkerKey.PersistViolationsQueue, raw).Err()
}
