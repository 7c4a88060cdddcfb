package session

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/examly/session-engine/internal/model"
)

var (
	// ErrUnknownQuestion is returned for a question ID outside the
	// session's question set.
	ErrUnknownQuestion = errors.New("unknown question")
	// ErrUnknownOption is returned for an option letter the question
	// does not carry.
	ErrUnknownOption = errors.New("unknown option")
)

// Ledger records the ordered, deduplicated set of selected option
// letters per question, plus the advisory review-later flag set. It is
// owned exclusively by one session; single- vs multi-select behavior
// comes from the question's own correct-answer cardinality.
type Ledger struct {
	mu         sync.Mutex
	questions  map[string]*model.Question
	selections map[string][]string
	flags      map[string]struct{}
}

// NewLedger builds a ledger over the session's authoritative question set.
func NewLedger(questions []model.Question) *Ledger {
	byID := make(map[string]*model.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}
	return &Ledger{
		questions:  byID,
		selections: make(map[string][]string),
		flags:      make(map[string]struct{}),
	}
}

// Select records one option pick. Single-answer questions replace any
// existing selection; multi-answer questions toggle membership, keeping
// the set sorted. Returns the resulting selection for the question.
func (l *Ledger) Select(questionID, letter string) ([]string, error) {
	letter = strings.ToUpper(strings.TrimSpace(letter))

	l.mu.Lock()
	defer l.mu.Unlock()

	q, ok := l.questions[questionID]
	if !ok {
		return nil, ErrUnknownQuestion
	}
	if !q.HasOption(letter) {
		return nil, ErrUnknownOption
	}

	if !q.MultiSelect() {
		l.selections[questionID] = []string{letter}
		return []string{letter}, nil
	}

	current := l.selections[questionID]
	idx := sort.SearchStrings(current, letter)
	if idx < len(current) && current[idx] == letter {
		// Toggle off.
		current = append(current[:idx:idx], current[idx+1:]...)
	} else {
		current = append(current, letter)
		sort.Strings(current)
	}
	l.selections[questionID] = current

	out := make([]string, len(current))
	copy(out, current)
	return out, nil
}

// Selection returns a copy of the current selection for a question.
// An absent key and an empty selection are equivalent.
func (l *Ledger) Selection(questionID string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	current := l.selections[questionID]
	out := make([]string, len(current))
	copy(out, current)
	return out
}

// IsAnswered reports whether the question has a non-empty selection.
func (l *Ledger) IsAnswered(questionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.selections[questionID]) > 0
}

// AnsweredCount returns how many questions have non-empty selections.
func (l *Ledger) AnsweredCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, sel := range l.selections {
		if len(sel) > 0 {
			n++
		}
	}
	return n
}

// Flag marks a question for later review. Advisory only.
func (l *Ledger) Flag(questionID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.questions[questionID]; !ok {
		return ErrUnknownQuestion
	}
	l.flags[questionID] = struct{}{}
	return nil
}

// Unflag removes the review-later mark.
func (l *Ledger) Unflag(questionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.flags, questionID)
}

// Flagged returns the sorted list of flagged question IDs.
func (l *Ledger) Flagged() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.flags))
	for id := range l.flags {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Snapshot deep-copies the current selections. Scoring and persistence
// work off snapshots so no stale read can race a fresh write.
func (l *Ledger) Snapshot() map[string][]string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string][]string, len(l.selections))
	for id, sel := range l.selections {
		cp := make([]string, len(sel))
		copy(cp, sel)
		out[id] = cp
	}
	return out
}

// Reset clears all selections and flags. The only engine-internal
// mutation path.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.selections = make(map[string][]string)
	l.flags = make(map[string]struct{})
}
