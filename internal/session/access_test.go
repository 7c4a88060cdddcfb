package session

import (
	"fmt"
	"testing"

	"github.com/examly/session-engine/internal/model"
)

func accessQuestions(n int) []model.Question {
	out := make([]model.Question, n)
	for i := range out {
		out[i] = singleQ(fmt.Sprintf("q%02d", i), "A")
		out[i].Sequence = i
	}
	return out
}

func TestApplyAccess(t *testing.T) {
	tests := []struct {
		name          string
		total         int
		authenticated bool
		limit         int
		wantLen       int
		wantWithheld  int
	}{
		{"authenticated full set", 20, true, 5, 20, 0},
		{"anonymous truncated", 20, false, 5, 5, 15},
		{"anonymous under limit", 3, false, 5, 3, 0},
		{"anonymous exactly at limit", 5, false, 5, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, withheld := ApplyAccess(accessQuestions(tt.total), tt.authenticated, tt.limit)
			if len(got) != tt.wantLen {
				t.Fatalf("len = %d, want %d", len(got), tt.wantLen)
			}
			if withheld != tt.wantWithheld {
				t.Fatalf("withheld = %d, want %d", withheld, tt.wantWithheld)
			}
		})
	}
}

func TestApplyAccessDeterministicPrefix(t *testing.T) {
	questions := accessQuestions(20)

	first, _ := ApplyAccess(questions, false, 5)
	second, _ := ApplyAccess(questions, false, 5)

	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("prefix differs at %d: %s vs %s", i, first[i].ID, second[i].ID)
		}
		if first[i].Sequence != i {
			t.Fatalf("expected the first %d questions in order, got sequence %d at %d", 5, first[i].Sequence, i)
		}
	}
}
