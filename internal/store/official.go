package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/examly/session-engine/internal/model"
)

// ErrNotFound is returned when an exam reference resolves to nothing in
// either store.
var ErrNotFound = errors.New("exam not found")

// OfficialExam is the raw exams row of the curated store. Field names
// follow the official schema; the session adapter maps them onto the
// common shape.
type OfficialExam struct {
	ID              uuid.UUID
	Slug            string
	Title           string
	DurationMinutes int
	QuestionCount   int
	Difficulty      string
}

// OfficialQuestion is the raw exam_questions row. Options are stored one
// column per letter; C-H are nullable.
type OfficialQuestion struct {
	ID          uuid.UUID
	ExamID      uuid.UUID
	Prompt      string
	OptionA     string
	OptionB     string
	OptionC     *string
	OptionD     *string
	OptionE     *string
	OptionF     *string
	OptionG     *string
	OptionH     *string
	AnswerKey   string // concatenated correct letters, e.g. "AC"
	Explanation *string
	OrderNum    int
}

// OfficialStore is the PostgreSQL-backed curated content store.
type OfficialStore struct {
	pool *pgxpool.Pool
}

// NewOfficialStore creates a new OfficialStore.
func NewOfficialStore(pool *pgxpool.Pool) *OfficialStore {
	return &OfficialStore{pool: pool}
}

const officialExamColumns = `id, slug, title, duration_minutes, question_count, difficulty`

// ExamBySlugOrID resolves an exam by slug, falling back to a UUID lookup
// when the slug misses. Returns ErrNotFound when both miss.
func (s *OfficialStore) ExamBySlugOrID(ctx context.Context, ref string) (*OfficialExam, error) {
	e, err := s.examByQuery(ctx,
		`SELECT `+officialExamColumns+` FROM exams WHERE slug = $1`, ref)
	if err == nil {
		return e, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	id, parseErr := uuid.Parse(ref)
	if parseErr != nil {
		return nil, ErrNotFound
	}
	e, err = s.examByQuery(ctx,
		`SELECT `+officialExamColumns+` FROM exams WHERE id = $1`, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *OfficialStore) examByQuery(ctx context.Context, query string, arg interface{}) (*OfficialExam, error) {
	e := &OfficialExam{}
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&e.ID, &e.Slug, &e.Title, &e.DurationMinutes, &e.QuestionCount, &e.Difficulty)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// QuestionsByExam retrieves all questions for an exam ordered by order_num.
func (s *OfficialStore) QuestionsByExam(ctx context.Context, examID string) ([]OfficialQuestion, error) {
	id, err := uuid.Parse(examID)
	if err != nil {
		return nil, ErrNotFound
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, exam_id, prompt,
		        option_a, option_b, option_c, option_d,
		        option_e, option_f, option_g, option_h,
		        answer_key, explanation, order_num
		 FROM exam_questions WHERE exam_id = $1
		 ORDER BY order_num`, id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []OfficialQuestion
	for rows.Next() {
		var q OfficialQuestion
		if err := rows.Scan(&q.ID, &q.ExamID, &q.Prompt,
			&q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD,
			&q.OptionE, &q.OptionF, &q.OptionG, &q.OptionH,
			&q.AnswerKey, &q.Explanation, &q.OrderNum); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// SaveAttempt inserts a single completed-attempt record.
// Used by the dispatcher worker's row-by-row fallback path.
func (s *OfficialStore) SaveAttempt(ctx context.Context, a *model.OfficialAttempt) error {
	examID, err := uuid.Parse(a.ExamID)
	if err != nil {
		return err
	}
	answers, err := json.Marshal(a.Answers)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO exam_attempts
		   (exam_id, user_id, score, total_questions, correct_answers, time_spent_seconds, answers)
		 VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb)`,
		examID, a.UserID, a.Score, a.TotalQuestions, a.CorrectAnswers, a.TimeSpentSeconds, answers,
	)
	return err
}

// SaveAttemptBatch bulk-inserts attempt records with COPY.
func (s *OfficialStore) SaveAttemptBatch(ctx context.Context, batch []*model.OfficialAttempt) error {
	records := make([][]interface{}, 0, len(batch))
	for _, a := range batch {
		examID, err := uuid.Parse(a.ExamID)
		if err != nil {
			// Let the fallback path handle the bad record individually.
			return err
		}
		answers, err := json.Marshal(a.Answers)
		if err != nil {
			return err
		}
		records = append(records, []interface{}{
			examID, a.UserID, a.Score, a.TotalQuestions,
			a.CorrectAnswers, a.TimeSpentSeconds, string(answers),
		})
	}

	_, err := s.pool.CopyFrom(
		ctx,
		pgx.Identifier{"exam_attempts"},
		[]string{"exam_id", "user_id", "score", "total_questions", "correct_answers", "time_spent_seconds", "answers"},
		pgx.CopyFromRows(records),
	)
	return err
}

// ViolationRow is one persisted integrity event.
type ViolationRow struct {
	ExamID     string
	UserID     string
	EventType  string
	RecordedAt time.Time
}

// SaveViolation inserts a single integrity event record.
func (s *OfficialStore) SaveViolation(ctx context.Context, v *ViolationRow) error {
	examID, err := uuid.Parse(v.ExamID)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO session_violations (exam_id, user_id, event_type, recorded_at)
		 VALUES ($1, $2, $3, $4)`,
		examID, v.UserID, v.EventType, v.RecordedAt,
	)
	return err
}

// SaveViolationBatch bulk-inserts integrity events with COPY.
func (s *OfficialStore) SaveViolationBatch(ctx context.Context, batch []*ViolationRow) error {
	records := make([][]interface{}, 0, len(batch))
	for _, v := range batch {
		examID, err := uuid.Parse(v.ExamID)
		if err != nil {
			return err
		}
		records = append(records, []interface{}{examID, v.UserID, v.EventType, v.RecordedAt})
	}

	_, err := s.pool.CopyFrom(
		ctx,
		pgx.Identifier{"session_violations"},
		[]string{"exam_id", "user_id", "event_type", "recorded_at"},
		pgx.CopyFromRows(records),
	)
	return err
}
