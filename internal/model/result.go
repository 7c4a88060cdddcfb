package model

import "time"

// QuestionResult is the per-question outcome included in a submission
// result so the review view needs no recomputation.
type QuestionResult struct {
	QuestionID string   `json:"question_id"`
	Selected   []string `json:"selected"`
	Correct    bool     `json:"correct"`
}

// SubmissionResult is the write-once record a session produces exactly
// once, on whichever terminal trigger arrives first.
type SubmissionResult struct {
	SessionID        string              `json:"session_id"`
	ExamID           string              `json:"exam_id"`
	Source           Source              `json:"source"`
	TotalQuestions   int                 `json:"total_questions"`
	CorrectCount     int                 `json:"correct_count"`
	ScorePercent     int                 `json:"score_percent"`
	TimeSpentSeconds int                 `json:"time_spent_seconds"`
	Answers          map[string][]string `json:"answers"`
	PerQuestion      []QuestionResult    `json:"per_question"`
	ViolationCount   int                 `json:"violation_count"`
	SubmittedAt      time.Time           `json:"submitted_at"`
}

// OfficialAttempt is the single record the official store persists per
// completed session. UserID is nil for anonymous preview sessions.
type OfficialAttempt struct {
	ExamID           string              `json:"exam_id"`
	UserID           *string             `json:"user_id"`
	Score            int                 `json:"score"`
	TotalQuestions   int                 `json:"total_questions"`
	CorrectAnswers   int                 `json:"correct_answers"`
	TimeSpentSeconds int                 `json:"time_spent_seconds"`
	Answers          map[string][]string `json:"answers"`
}

// PracticeSessionRecord is the community-store session row.
type PracticeSessionRecord struct {
	ID             string `json:"id"`
	UserID         string `json:"user_id"`
	SetID          string `json:"set_id"`
	DurationSec    int    `json:"duration_sec"`
	Score          int    `json:"score"`
	CorrectCount   int    `json:"correct_count"`
	TotalQuestions int    `json:"total_questions"`
}

// PracticeAttemptRecord is one per-question community attempt row,
// referencing its session record.
type PracticeAttemptRecord struct {
	SessionID  string   `json:"session_id"`
	UserID     string   `json:"user_id"`
	QuestionID string   `json:"question_id"`
	Selected   []string `json:"selected"`
	IsCorrect  bool     `json:"is_correct"`
}
