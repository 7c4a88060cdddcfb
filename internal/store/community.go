package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/examly/session-engine/internal/model"
)

// PracticeSet is the raw practice_sets row of the community store.
// User-authored sets use their own vocabulary (name, time limit, hint).
type PracticeSet struct {
	ID           string
	Slug         string
	Name         string
	AuthorID     string
	TimeLimitMin int
	Difficulty   string
}

// PracticeQuestion is the raw practice_questions row. Choices and the
// answer key are JSON documents authored by the set owner.
type PracticeQuestion struct {
	ID          string
	SetID       string
	Body        string
	ChoicesJSON []byte
	AnswerJSON  []byte
	Hint        *string
	Position    int
}

// CommunityStore is the SQLite-backed user-content store.
type CommunityStore struct {
	db *sql.DB
}

// NewCommunityStore creates a new CommunityStore.
func NewCommunityStore(db *sql.DB) *CommunityStore {
	return &CommunityStore{db: db}
}

const practiceSetColumns = `id, slug, name, author_id, time_limit_min, difficulty`

// SetBySlugOrID resolves a practice set by slug, falling back to an ID
// lookup. Returns ErrNotFound when both miss.
func (s *CommunityStore) SetBySlugOrID(ctx context.Context, ref string) (*PracticeSet, error) {
	set, err := s.setByQuery(ctx,
		`SELECT `+practiceSetColumns+` FROM practice_sets WHERE slug = ?`, ref)
	if err == nil {
		return set, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	set, err = s.setByQuery(ctx,
		`SELECT `+practiceSetColumns+` FROM practice_sets WHERE id = ?`, ref)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return set, nil
}

func (s *CommunityStore) setByQuery(ctx context.Context, query, ref string) (*PracticeSet, error) {
	set := &PracticeSet{}
	err := s.db.QueryRowContext(ctx, query, ref).Scan(
		&set.ID, &set.Slug, &set.Name, &set.AuthorID, &set.TimeLimitMin, &set.Difficulty)
	if err != nil {
		return nil, err
	}
	return set, nil
}

// QuestionsBySet retrieves all questions of a practice set ordered by position.
func (s *CommunityStore) QuestionsBySet(ctx context.Context, setID string) ([]PracticeQuestion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, set_id, body, choices_json, answer_json, hint, position
		 FROM practice_questions WHERE set_id = ?
		 ORDER BY position`, setID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []PracticeQuestion
	for rows.Next() {
		var q PracticeQuestion
		if err := rows.Scan(&q.ID, &q.SetID, &q.Body, &q.ChoicesJSON, &q.AnswerJSON, &q.Hint, &q.Position); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// SaveResult writes one session record plus its per-question attempt
// records in a single transaction.
func (s *CommunityStore) SaveResult(ctx context.Context, sess *model.PracticeSessionRecord, attempts []model.PracticeAttemptRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO practice_sessions
		   (id, user_id, set_id, duration_sec, score, correct_count, total_questions, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.UserID, sess.SetID, sess.DurationSec,
		sess.Score, sess.CorrectCount, sess.TotalQuestions, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	for _, a := range attempts {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO practice_attempts (session_id, user_id, question_id, selected, is_correct)
			 VALUES (?, ?, ?, ?, ?)`,
			a.SessionID, a.UserID, a.QuestionID, strings.Join(a.Selected, ""), boolToInt(a.IsCorrect),
		)
		if err != nil {
			return fmt.Errorf("insert attempt: %w", err)
		}
	}

	return tx.Commit()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
