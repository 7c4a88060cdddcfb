package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/examly/session-engine/internal/integrity"
	"github.com/examly/session-engine/internal/model"
)

type trigger string

const (
	triggerManual  trigger = "manual"
	triggerTimeout trigger = "timeout"
	triggerAbandon trigger = "abandon"
)

// Session is one run of a single user through a single exam, from load
// to terminal state. It owns the definition, the question list, the
// answer ledger with its flags, the clock and the monitoring bridge,
// and is discarded at session end.
type Session struct {
	ID        string
	def       *model.ExamDefinition
	questions []model.Question
	withheld  int
	userID    *string

	ledger     *Ledger
	clock      *Clock
	bridge     *integrity.Bridge
	dispatcher *Dispatcher
	log        zerolog.Logger

	mu sync.Mutex
	// terminal is the submission latch: set synchronously before any
	// persistence work begins, by whichever trigger arrives first.
	terminal  bool
	abandoned bool
	result    *model.SubmissionResult
	done      chan struct{}
}

// State is a point-in-time snapshot served to the view layer, including
// everything needed to recover from a page reload.
type State struct {
	SessionID         string                  `json:"session_id"`
	Exam              *model.ExamDefinition   `json:"exam"`
	TotalQuestions    int                     `json:"total_questions"`
	WithheldQuestions int                     `json:"withheld_questions"`
	Answers           map[string][]string     `json:"answers"`
	Flagged           []string                `json:"flagged"`
	RemainingSeconds  int                     `json:"remaining_seconds"`
	ClockState        ClockState              `json:"clock_state"`
	ViolationCount    int                     `json:"violation_count"`
	LastViolationType string                  `json:"last_violation_type,omitempty"`
	Terminal          bool                    `json:"terminal"`
	Abandoned         bool                    `json:"abandoned"`
	Result            *model.SubmissionResult `json:"result,omitempty"`
}

// Definition returns the session's immutable exam definition.
func (s *Session) Definition() *model.ExamDefinition {
	return s.def
}

// Withheld returns how many questions the access policy held back,
// for the informational banner on anonymous sessions.
func (s *Session) Withheld() int {
	return s.withheld
}

// Paper returns the sanitized question views served to the client.
func (s *Session) Paper() []model.QuestionView {
	views := make([]model.QuestionView, 0, len(s.questions))
	for i := range s.questions {
		views = append(views, s.questions[i].View())
	}
	return views
}

// Select records one option pick. A no-op returning the stored
// selection once the session is terminal: the ledger is frozen and the
// stale pick is silently ignored.
func (s *Session) Select(questionID, letter string) ([]string, error) {
	if s.isClosed() {
		return s.ledger.Selection(questionID), nil
	}
	return s.ledger.Select(questionID, letter)
}

// Flag marks a question for later review. Frozen once terminal.
func (s *Session) Flag(questionID string) error {
	if s.isClosed() {
		return nil
	}
	return s.ledger.Flag(questionID)
}

// Unflag removes a review-later mark. Frozen once terminal.
func (s *Session) Unflag(questionID string) {
	if s.isClosed() {
		return
	}
	s.ledger.Unflag(questionID)
}

// ReportViolation records a client-observed proctoring event, such as
// a tab switch. Ignored once terminal.
func (s *Session) ReportViolation(ev model.ViolationEvent) {
	if s.isClosed() {
		return
	}
	s.bridge.Report(ev)
}

// Remaining returns the remaining whole seconds on the session clock.
func (s *Session) Remaining() int {
	return s.clock.Remaining()
}

// Done returns a channel closed when the session reaches a terminal
// state by any trigger. Stream consumers use it to push the final
// result without polling.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	closed := s.terminal
	s.mu.Unlock()
	return closed || s.clock.Expired()
}

// IsTerminal reports whether the session has reached a terminal state.
func (s *Session) IsTerminal() bool {
	return s.isClosed()
}

// Result returns the submission result, nil while the session runs or
// when it was abandoned.
func (s *Session) Result() *model.SubmissionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// State builds the current snapshot.
func (s *Session) State() *State {
	s.mu.Lock()
	terminal := s.terminal
	abandoned := s.abandoned
	result := s.result
	s.mu.Unlock()

	return &State{
		SessionID:         s.ID,
		Exam:              s.def,
		TotalQuestions:    len(s.questions),
		WithheldQuestions: s.withheld,
		Answers:           s.ledger.Snapshot(),
		Flagged:           s.ledger.Flagged(),
		RemainingSeconds:  s.clock.Remaining(),
		ClockState:        s.clock.State(),
		ViolationCount:    s.bridge.Count(),
		LastViolationType: s.bridge.LastType(),
		Terminal:          terminal || s.clock.Expired(),
		Abandoned:         abandoned,
		Result:            result,
	}
}

// Submit is the manual terminal trigger. It races the clock's timeout
// signal; whichever arrives first produces the single SubmissionResult
// and the other observes it. Returns nil for an abandoned session.
func (s *Session) Submit(ctx context.Context) *model.SubmissionResult {
	return s.finalize(ctx, triggerManual)
}

// handleTimeout is the clock's terminal callback and the only
// automatic submission path.
func (s *Session) handleTimeout() {
	s.finalize(context.Background(), triggerTimeout)
}

// finalize resolves the submit race with first-arrival-wins semantics.
// The latch is taken synchronously before any persistence work begins;
// the losing trigger waits for the winner's result and performs no
// further action.
func (s *Session) finalize(ctx context.Context, tg trigger) *model.SubmissionResult {
	s.mu.Lock()
	if s.terminal {
		s.mu.Unlock()
		<-s.done
		s.mu.Lock()
		result := s.result
		s.mu.Unlock()
		return result
	}
	s.terminal = true
	snapshot := s.ledger.Snapshot()
	s.mu.Unlock()

	// No-op on the timeout path, where the clock is already Expired.
	s.clock.Cancel()
	elapsed := s.def.DurationMinutes*60 - s.clock.Remaining()

	result, err := s.dispatcher.Dispatch(ctx, s.ID, s.def, s.questions, snapshot, s.userID, elapsed, s.bridge.Count())
	if err != nil {
		// Only reachable with an empty question list, which Load rejects.
		s.log.Error().Err(err).Msg("Scoring failed at submission")
	}

	s.mu.Lock()
	s.result = result
	s.mu.Unlock()
	close(s.done)

	s.bridge.End(ctx)

	if result != nil {
		s.log.Info().
			Str("trigger", string(tg)).
			Int("score", result.ScorePercent).
			Int("correct", result.CorrectCount).
			Int("total", result.TotalQuestions).
			Int("elapsed_sec", result.TimeSpentSeconds).
			Msg("Session submitted")
	}
	return result
}

// Abandon ends the session without scoring or persisting anything:
// the clock is disarmed and the monitoring session is closed. A no-op
// once the session is terminal.
func (s *Session) Abandon(ctx context.Context) {
	s.mu.Lock()
	if s.terminal {
		s.mu.Unlock()
		return
	}
	s.terminal = true
	s.abandoned = true
	s.mu.Unlock()
	close(s.done)

	s.clock.Cancel()
	s.bridge.End(ctx)
	s.log.Info().Msg("Session abandoned")
}
