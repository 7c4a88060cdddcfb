package model

// Source tags which backing content store an exam definition came from.
type Source string

const (
	SourceOfficial  Source = "official"
	SourceCommunity Source = "community"
)

// ExamDefinition is the normalized, immutable description of one exam.
// A session owns exactly one definition for its entire lifetime.
type ExamDefinition struct {
	ID              string `json:"id"`
	Slug            string `json:"slug"`
	Title           string `json:"title"`
	DurationMinutes int    `json:"duration_minutes"`
	QuestionCount   int    `json:"question_count"`
	Difficulty      string `json:"difficulty"`
	Source          Source `json:"source"`
}
