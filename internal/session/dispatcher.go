package session

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/examly/session-engine/internal/model"
)

// OfficialSink accepts one completed official attempt record.
// Production wires the Redis persistence queue here.
type OfficialSink interface {
	EnqueueAttempt(ctx context.Context, attempt *model.OfficialAttempt) error
}

// CommunitySink accepts one practice session record plus its
// per-question attempt records.
type CommunitySink interface {
	SaveResult(ctx context.Context, sess *model.PracticeSessionRecord, attempts []model.PracticeAttemptRecord) error
}

// Dispatcher turns a finished session into its write-once
// SubmissionResult and routes persistence by source tag. Persistence is
// fire-and-forget: a storage failure is logged and the computed result
// is still returned, so nobody is told to redo a completed, timed exam
// because a write failed.
type Dispatcher struct {
	official  OfficialSink
	community CommunitySink
	log       zerolog.Logger
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(official OfficialSink, community CommunitySink, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		official:  official,
		community: community,
		log:       log.With().Str("component", "dispatcher").Logger(),
	}
}

// Dispatch scores the snapshot, builds the SubmissionResult and persists
// it to the source-appropriate store. The caller guarantees at-most-once
// invocation per session via the terminal latch.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	sessionID string,
	def *model.ExamDefinition,
	questions []model.Question,
	answers map[string][]string,
	userID *string,
	elapsedSeconds int,
	violationCount int,
) (*model.SubmissionResult, error) {
	outcome, err := Score(questions, answers)
	if err != nil {
		return nil, err
	}

	result := &model.SubmissionResult{
		SessionID:        sessionID,
		ExamID:           def.ID,
		Source:           def.Source,
		TotalQuestions:   outcome.TotalQuestions,
		CorrectCount:     outcome.CorrectCount,
		ScorePercent:     outcome.ScorePercent,
		TimeSpentSeconds: elapsedSeconds,
		Answers:          answers,
		PerQuestion:      outcome.PerQuestion,
		ViolationCount:   violationCount,
		SubmittedAt:      time.Now().UTC(),
	}

	switch def.Source {
	case model.SourceCommunity:
		d.persistCommunity(ctx, result, userID)
	default:
		d.persistOfficial(ctx, result, userID)
	}

	return result, nil
}

func (d *Dispatcher) persistOfficial(ctx context.Context, result *model.SubmissionResult, userID *string) {
	attempt := &model.OfficialAttempt{
		ExamID:           result.ExamID,
		UserID:           userID,
		Score:            result.ScorePercent,
		TotalQuestions:   result.TotalQuestions,
		CorrectAnswers:   result.CorrectCount,
		TimeSpentSeconds: result.TimeSpentSeconds,
		Answers:          result.Answers,
	}

	if err := d.official.EnqueueAttempt(ctx, attempt); err != nil {
		d.log.Error().Err(err).
			Str("exam_id", result.ExamID).
			Str("session_id", result.SessionID).
			Msg("Official attempt persistence failed; result still served")
	}
}

func (d *Dispatcher) persistCommunity(ctx context.Context, result *model.SubmissionResult, userID *string) {
	uid := ""
	if userID != nil {
		uid = *userID
	}

	sess := &model.PracticeSessionRecord{
		ID:             result.SessionID,
		UserID:         uid,
		SetID:          result.ExamID,
		DurationSec:    result.TimeSpentSeconds,
		Score:          result.ScorePercent,
		CorrectCount:   result.CorrectCount,
		TotalQuestions: result.TotalQuestions,
	}

	attempts := make([]model.PracticeAttemptRecord, 0, len(result.PerQuestion))
	for _, qr := range result.PerQuestion {
		attempts = append(attempts, model.PracticeAttemptRecord{
			SessionID:  result.SessionID,
			UserID:     uid,
			QuestionID: qr.QuestionID,
			Selected:   qr.Selected,
			IsCorrect:  qr.Correct,
		})
	}

	if err := d.community.SaveResult(ctx, sess, attempts); err != nil {
		d.log.Error().Err(err).
			Str("set_id", result.ExamID).
			Str("session_id", result.SessionID).
			Msg("Practice result persistence failed; result still served")
	}
}
