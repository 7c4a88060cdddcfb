package session

import (
	"errors"
	"testing"

	"github.com/examly/session-engine/internal/model"
)

func singleQ(id, correct string) model.Question {
	return model.Question{
		ID:      id,
		Prompt:  "prompt " + id,
		Options: map[string]string{"A": "a", "B": "b", "C": "c", "D": "d"},
		Correct: []string{correct},
	}
}

func multiQ(id string, correct ...string) model.Question {
	return model.Question{
		ID:      id,
		Prompt:  "prompt " + id,
		Options: map[string]string{"A": "a", "B": "b", "C": "c", "D": "d"},
		Correct: model.SortLetters(correct),
	}
}

func TestScoreSingleSelect(t *testing.T) {
	questions := []model.Question{singleQ("q1", "B")}

	tests := []struct {
		name     string
		selected []string
		correct  bool
	}{
		{"exact match", []string{"B"}, true},
		{"wrong letter", []string{"A"}, false},
		{"blank", nil, false},
		{"superset is wrong", []string{"A", "B"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Score(questions, map[string][]string{"q1": tt.selected})
			if err != nil {
				t.Fatalf("Score: %v", err)
			}
			if got := out.PerQuestion[0].Correct; got != tt.correct {
				t.Fatalf("correct = %v, want %v", got, tt.correct)
			}
		})
	}
}

func TestScoreMultiSelectExactSet(t *testing.T) {
	questions := []model.Question{multiQ("q1", "A", "C")}

	tests := []struct {
		name     string
		selected []string
		correct  bool
	}{
		{"exact set", []string{"A", "C"}, true},
		{"order independent", []string{"C", "A"}, true},
		{"subset earns nothing", []string{"A"}, false},
		{"superset earns nothing", []string{"A", "B", "C"}, false},
		{"disjoint", []string{"B", "D"}, false},
		{"blank", nil, false},
		{"duplicates collapse", []string{"A", "A", "C"}, true},
		{"lowercase normalized", []string{"a", "c"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Score(questions, map[string][]string{"q1": tt.selected})
			if err != nil {
				t.Fatalf("Score: %v", err)
			}
			if got := out.PerQuestion[0].Correct; got != tt.correct {
				t.Fatalf("correct = %v, want %v", got, tt.correct)
			}
		})
	}
}

func TestScorePercentRounding(t *testing.T) {
	tests := []struct {
		name    string
		total   int
		right   int
		percent int
	}{
		{"one of three", 3, 1, 33},
		{"two of three", 3, 2, 67},
		{"all", 4, 4, 100},
		{"none", 4, 0, 0},
		{"one of six", 6, 1, 17},
		{"one of eight", 8, 1, 13},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			questions := make([]model.Question, tt.total)
			answers := make(map[string][]string, tt.total)
			for i := 0; i < tt.total; i++ {
				id := string(rune('a' + i))
				questions[i] = singleQ(id, "A")
				if i < tt.right {
					answers[id] = []string{"A"}
				} else {
					answers[id] = []string{"B"}
				}
			}

			out, err := Score(questions, answers)
			if err != nil {
				t.Fatalf("Score: %v", err)
			}
			if out.CorrectCount != tt.right {
				t.Fatalf("CorrectCount = %d, want %d", out.CorrectCount, tt.right)
			}
			if out.ScorePercent != tt.percent {
				t.Fatalf("ScorePercent = %d, want %d", out.ScorePercent, tt.percent)
			}
		})
	}
}

func TestScoreUnansweredCountsAsWrong(t *testing.T) {
	questions := []model.Question{singleQ("q1", "A"), singleQ("q2", "A"), singleQ("q3", "C")}
	out, err := Score(questions, map[string][]string{"q1": {"A"}})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if out.TotalQuestions != 3 {
		t.Fatalf("TotalQuestions = %d, want 3", out.TotalQuestions)
	}
	if out.CorrectCount != 1 {
		t.Fatalf("CorrectCount = %d, want 1", out.CorrectCount)
	}
	if out.ScorePercent != 33 {
		t.Fatalf("ScorePercent = %d, want 33", out.ScorePercent)
	}
}

func TestScoreEmptyQuestionList(t *testing.T) {
	_, err := Score(nil, map[string][]string{})
	if !errors.Is(err, ErrNothingToScore) {
		t.Fatalf("err = %v, want ErrNothingToScore", err)
	}
}
