package session

import (
	"errors"
	"math"
	"sort"
	"strings"

	"github.com/examly/session-engine/internal/model"
)

// ErrNothingToScore signals an empty question list reaching the scorer.
// Load already rejects question-less exams, so hitting this is a
// programming error upstream.
var ErrNothingToScore = errors.New("score: empty question list")

// Outcome is the aggregate scoring result plus per-question correctness,
// so the review view needs no recomputation.
type Outcome struct {
	TotalQuestions int
	CorrectCount   int
	ScorePercent   int
	PerQuestion    []model.QuestionResult
}

// Score grades an answer snapshot against the session's question list.
// Correctness is exact set equality between the user's selection and the
// correct-answer set; multi-select questions earn no partial credit.
// Pure: no session state is read or written.
func Score(questions []model.Question, answers map[string][]string) (*Outcome, error) {
	if len(questions) == 0 {
		return nil, ErrNothingToScore
	}

	out := &Outcome{
		TotalQuestions: len(questions),
		PerQuestion:    make([]model.QuestionResult, 0, len(questions)),
	}

	for i := range questions {
		q := &questions[i]
		selected := normalizeSelection(answers[q.ID])
		correct := equalSets(selected, q.Correct)
		if correct {
			out.CorrectCount++
		}
		out.PerQuestion = append(out.PerQuestion, model.QuestionResult{
			QuestionID: q.ID,
			Selected:   selected,
			Correct:    correct,
		})
	}

	out.ScorePercent = int(math.Round(100 * float64(out.CorrectCount) / float64(out.TotalQuestions)))
	return out, nil
}

// normalizeSelection uppercases, deduplicates and sorts a selection set.
// The ledger already maintains this form; normalizing again keeps Score
// safe on arbitrary snapshots.
func normalizeSelection(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, letter := range in {
		letter = strings.ToUpper(strings.TrimSpace(letter))
		if letter == "" {
			continue
		}
		if _, dup := seen[letter]; dup {
			continue
		}
		seen[letter] = struct{}{}
		out = append(out, letter)
	}
	sort.Strings(out)
	return out
}

func equalSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
