package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/examly/session-engine/internal/integrity"
	"github.com/examly/session-engine/internal/model"
	"github.com/examly/session-engine/internal/store"
)

type captureOfficialSink struct {
	mu       sync.Mutex
	attempts []*model.OfficialAttempt
}

func (c *captureOfficialSink) EnqueueAttempt(ctx context.Context, a *model.OfficialAttempt) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts = append(c.attempts, a)
	return nil
}

func (c *captureOfficialSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.attempts)
}

type captureCommunitySink struct {
	mu       sync.Mutex
	sessions []*model.PracticeSessionRecord
}

func (c *captureCommunitySink) SaveResult(ctx context.Context, sess *model.PracticeSessionRecord, attempts []model.PracticeAttemptRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions = append(c.sessions, sess)
	return nil
}

type fakeMonitor struct {
	mu      sync.Mutex
	starts  int
	ends    int
	onEvent func(model.ViolationEvent)
}

func (m *fakeMonitor) StartSession(ctx context.Context, examID, userID string, onEvent func(model.ViolationEvent)) (integrity.Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.starts++
	m.onEvent = onEvent
	return "handle-1", nil
}

func (m *fakeMonitor) EndSession(ctx context.Context, handle integrity.Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ends++
	return nil
}

func (m *fakeMonitor) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts, m.ends
}

// emit pushes an event through the callback captured at StartSession.
func (m *fakeMonitor) emit(ev model.ViolationEvent) {
	m.mu.Lock()
	fire := m.onEvent
	m.mu.Unlock()
	if fire != nil {
		fire(ev)
	}
}

// sessionFixture builds an engine over a 3-question official exam
// (correct sets {A}, {A,B}, {C}) plus the capture sinks.
func sessionFixture(t *testing.T, durationMinutes, previewLimit int) (*Engine, *captureOfficialSink, *fakeMonitor) {
	t.Helper()

	examID := uuid.New()
	official := &fakeOfficial{
		exam: &store.OfficialExam{
			ID:              examID,
			Slug:            "sample-exam",
			Title:           "Sample Exam",
			DurationMinutes: durationMinutes,
			QuestionCount:   3,
			Difficulty:      "medium",
		},
		questions: []store.OfficialQuestion{
			{ID: uuid.New(), ExamID: examID, Prompt: "q1", OptionA: "a", OptionB: "b", AnswerKey: "A", OrderNum: 1},
			{ID: uuid.New(), ExamID: examID, Prompt: "q2", OptionA: "a", OptionB: "b", AnswerKey: "AB", OrderNum: 2},
			{ID: uuid.New(), ExamID: examID, Prompt: "q3", OptionA: "a", OptionB: "b", OptionC: strPtr("c"), AnswerKey: "C", OrderNum: 3},
		},
	}

	sink := &captureOfficialSink{}
	monitor := &fakeMonitor{}
	loader := NewLoader(official, &fakeCommunity{}, zerolog.Nop())
	dispatcher := NewDispatcher(sink, &captureCommunitySink{}, zerolog.Nop())

	engine := NewEngine(loader, dispatcher, monitor, nil, EngineOptions{
		FreePreviewLimit: previewLimit,
		// A huge tick keeps the wall-clock goroutine quiet; tests step
		// the countdown explicitly.
		ClockTick: time.Hour,
	}, zerolog.Nop())

	return engine, sink, monitor
}

func TestSessionManualSubmitScenario(t *testing.T) {
	engine, sink, monitor := sessionFixture(t, 1, 5)
	user := "user-1"

	sess, err := engine.Start(context.Background(), "sample-exam", model.SourceOfficial, &user)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	paper := sess.Paper()
	if len(paper) != 3 {
		t.Fatalf("paper len = %d, want 3", len(paper))
	}

	if _, err := sess.Select(paper[0].ID, "A"); err != nil {
		t.Fatalf("Select q1: %v", err)
	}
	if _, err := sess.Select(paper[1].ID, "A"); err != nil {
		t.Fatalf("Select q2: %v", err)
	}
	// q3 left blank.

	// 40 seconds pass.
	for i := 0; i < 40; i++ {
		sess.clock.Tick()
	}

	result := sess.Submit(context.Background())
	if result == nil {
		t.Fatal("Submit returned nil")
	}

	if result.TotalQuestions != 3 || result.CorrectCount != 1 {
		t.Fatalf("correct = %d/%d, want 1/3", result.CorrectCount, result.TotalQuestions)
	}
	if result.ScorePercent != 33 {
		t.Fatalf("score = %d, want 33", result.ScorePercent)
	}
	if result.TimeSpentSeconds != 40 {
		t.Fatalf("time spent = %d, want 40", result.TimeSpentSeconds)
	}
	if sess.clock.State() != ClockCancelled {
		t.Fatalf("clock state = %s, want CANCELLED", sess.clock.State())
	}

	if sink.count() != 1 {
		t.Fatalf("persisted %d attempts, want 1", sink.count())
	}
	starts, ends := monitor.counts()
	if starts != 1 || ends != 1 {
		t.Fatalf("monitor starts/ends = %d/%d, want 1/1", starts, ends)
	}
}

func TestSessionTimeoutAutoSubmits(t *testing.T) {
	engine, sink, monitor := sessionFixture(t, 1, 5)
	user := "user-1"

	sess, err := engine.Start(context.Background(), "sample-exam", model.SourceOfficial, &user)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Run the full minute down. The zero tick finalizes synchronously.
	for i := 0; i < 60; i++ {
		sess.clock.Tick()
	}

	if sess.clock.State() != ClockExpired {
		t.Fatalf("clock state = %s, want EXPIRED", sess.clock.State())
	}

	result := sess.Result()
	if result == nil {
		t.Fatal("no result after timeout")
	}
	if result.ScorePercent != 0 || result.CorrectCount != 0 {
		t.Fatalf("blank timeout scored %d%% (%d correct), want 0", result.ScorePercent, result.CorrectCount)
	}
	if result.TimeSpentSeconds != 60 {
		t.Fatalf("time spent = %d, want 60", result.TimeSpentSeconds)
	}

	if sink.count() != 1 {
		t.Fatalf("persisted %d attempts, want 1", sink.count())
	}
	if _, ends := monitor.counts(); ends != 1 {
		t.Fatalf("monitor ends = %d, want 1", ends)
	}

	// A late manual submit observes the same result, no second persist.
	late := sess.Submit(context.Background())
	if late != result {
		t.Fatal("late submit produced a different result")
	}
	if sink.count() != 1 {
		t.Fatalf("late submit re-persisted: %d attempts", sink.count())
	}
}

func TestSessionConcurrentSubmitProducesOneResult(t *testing.T) {
	engine, sink, _ := sessionFixture(t, 2, 5)
	user := "user-1"

	sess, err := engine.Start(context.Background(), "sample-exam", model.SourceOfficial, &user)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	const n = 8
	results := make([]*model.SubmissionResult, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = sess.Submit(context.Background())
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if results[i] != results[0] {
			t.Fatalf("submit %d saw a different result", i)
		}
	}
	if sink.count() != 1 {
		t.Fatalf("persisted %d attempts, want 1", sink.count())
	}
}

func TestSessionLedgerFreezesAfterTerminal(t *testing.T) {
	engine, _, _ := sessionFixture(t, 2, 5)
	user := "user-1"

	sess, err := engine.Start(context.Background(), "sample-exam", model.SourceOfficial, &user)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	paper := sess.Paper()
	sess.Select(paper[0].ID, "A")
	sess.Submit(context.Background())

	// Stale picks after the latch are silently ignored.
	sel, err := sess.Select(paper[0].ID, "B")
	if err != nil {
		t.Fatalf("post-terminal Select errored: %v", err)
	}
	if len(sel) != 1 || sel[0] != "A" {
		t.Fatalf("post-terminal selection = %v, want frozen [A]", sel)
	}

	if err := sess.Flag(paper[1].ID); err != nil {
		t.Fatalf("post-terminal Flag errored: %v", err)
	}
	if got := sess.State().Flagged; len(got) != 0 {
		t.Fatalf("post-terminal flag recorded: %v", got)
	}
}

func TestSessionAnonymousPreview(t *testing.T) {
	engine, sink, monitor := sessionFixture(t, 2, 2)

	sess, err := engine.Start(context.Background(), "sample-exam", model.SourceOfficial, nil)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if len(sess.Paper()) != 2 {
		t.Fatalf("anonymous paper len = %d, want 2", len(sess.Paper()))
	}
	if sess.Withheld() != 1 {
		t.Fatalf("withheld = %d, want 1", sess.Withheld())
	}

	// No monitoring for anonymous sessions.
	if starts, _ := monitor.counts(); starts != 0 {
		t.Fatalf("monitor started for anonymous session")
	}

	// Scoring runs over the truncated set only.
	paper := sess.Paper()
	sess.Select(paper[0].ID, "A")
	result := sess.Submit(context.Background())
	if result.TotalQuestions != 2 {
		t.Fatalf("total = %d, want 2", result.TotalQuestions)
	}
	if result.ScorePercent != 50 {
		t.Fatalf("score = %d, want 50", result.ScorePercent)
	}
	if sink.count() != 1 {
		t.Fatalf("persisted %d attempts, want 1", sink.count())
	}
	if sink.attempts[0].UserID != nil {
		t.Fatal("anonymous attempt carried a user ID")
	}
}

func TestSessionAbandonPersistsNothing(t *testing.T) {
	engine, sink, monitor := sessionFixture(t, 2, 5)
	user := "user-1"

	sess, err := engine.Start(context.Background(), "sample-exam", model.SourceOfficial, &user)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	id := sess.ID

	engine.Drop(context.Background(), id)

	if _, ok := engine.Get(id); ok {
		t.Fatal("dropped session still registered")
	}
	if sess.Result() != nil {
		t.Fatal("abandoned session produced a result")
	}
	if sink.count() != 0 {
		t.Fatalf("abandoned session persisted %d attempts", sink.count())
	}
	if _, ends := monitor.counts(); ends != 1 {
		t.Fatalf("monitor ends = %d, want 1", ends)
	}

	// Submit after abandon yields nothing.
	if got := sess.Submit(context.Background()); got != nil {
		t.Fatal("submit after abandon produced a result")
	}
}

func TestSessionViolationsCounted(t *testing.T) {
	engine, sink, monitor := sessionFixture(t, 2, 5)
	user := "user-1"

	sess, err := engine.Start(context.Background(), "sample-exam", model.SourceOfficial, &user)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Events arrive from the monitor callback and from the client.
	monitor.emit(model.ViolationEvent{Type: "focus_lost", Timestamp: time.Now()})
	sess.ReportViolation(model.ViolationEvent{Type: "tab_switch", Timestamp: time.Now()})

	state := sess.State()
	if state.ViolationCount != 2 {
		t.Fatalf("violation count = %d, want 2", state.ViolationCount)
	}
	if state.LastViolationType != "tab_switch" {
		t.Fatalf("last violation = %q, want tab_switch", state.LastViolationType)
	}

	result := sess.Submit(context.Background())
	if result.ViolationCount != 2 {
		t.Fatalf("result violation count = %d, want 2", result.ViolationCount)
	}
	if sink.attempts[0].Score != result.ScorePercent {
		t.Fatal("persisted attempt diverged from result")
	}
}
