package integrity

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/examly/session-engine/internal/config"
	"github.com/examly/session-engine/internal/model"
)

// RedisMonitor is the production Monitor implementation. The proctoring
// subsystem publishes violation events on a per-handle Redis PubSub
// channel; this side subscribes and forwards them to the session bridge.
type RedisMonitor struct {
	rdb *redis.Client
	log zerolog.Logger

	mu   sync.Mutex
	subs map[Handle]func() // handle → subscription stop
}

// NewRedisMonitor creates a new RedisMonitor.
func NewRedisMonitor(rdb *redis.Client, log zerolog.Logger) *RedisMonitor {
	return &RedisMonitor{
		rdb:  rdb,
		log:  log.With().Str("component", "redis_monitor").Logger(),
		subs: make(map[Handle]func()),
	}
}

// StartSession registers a monitoring session and subscribes to its
// event channel. The handle is what the proctoring side keys its
// publishes on.
func (m *RedisMonitor) StartSession(ctx context.Context, examID, userID string, onEvent func(model.ViolationEvent)) (Handle, error) {
	handle := Handle(uuid.New().String())

	err := m.rdb.HSet(ctx, config.CacheKey.ProctorSessionKey(string(handle)),
		"exam_id", examID,
		"user_id", userID,
		"started_at", time.Now().Unix(),
	).Err()
	if err != nil {
		return "", err
	}

	sub := m.rdb.Subscribe(ctx, config.CacheKey.ProctorChannel(string(handle)))
	// Confirm the subscription before handing the handle out.
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return "", err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	go m.pump(runCtx, sub, onEvent)

	m.mu.Lock()
	m.subs[handle] = func() {
		cancel()
		sub.Close()
	}
	m.mu.Unlock()

	return handle, nil
}

// pump forwards channel messages to the bridge callback until the
// subscription is torn down. Malformed payloads are discarded.
func (m *RedisMonitor) pump(ctx context.Context, sub *redis.PubSub, onEvent func(model.ViolationEvent)) {
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev model.ViolationEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				m.log.Warn().Err(err).Str("payload", msg.Payload).Msg("Discarding malformed violation event")
				continue
			}
			if ev.Timestamp.IsZero() {
				ev.Timestamp = time.Now().UTC()
			}
			onEvent(ev)
		}
	}
}

// EndSession tears down the subscription and removes the session record.
func (m *RedisMonitor) EndSession(ctx context.Context, handle Handle) error {
	m.mu.Lock()
	stop, ok := m.subs[handle]
	delete(m.subs, handle)
	m.mu.Unlock()

	if ok {
		stop()
	}
	return m.rdb.Del(ctx, config.CacheKey.ProctorSessionKey(string(handle))).Err()
}
