package model

import "sort"

// OptionLetters is the full range of labels a question may use.
// A and B are always present; C-H are optional and absent when unused.
var OptionLetters = []string{"A", "B", "C", "D", "E", "F", "G", "H"}

// Question is the normalized in-session question shape. Both content
// stores map onto it; the engine never branches on origin.
type Question struct {
	ID     string `json:"id"`
	Prompt string `json:"prompt"`
	// Options maps option letter to option text. Only letters the
	// question actually has appear as keys, so "no such option" is
	// distinguishable from "option left blank".
	Options map[string]string `json:"options"`
	// Correct is the sorted, non-empty set of correct option letters.
	// Two or more letters make the question multi-select.
	Correct []string `json:"correct"`
	// Explanation is shown on the review screen. Optional.
	Explanation string `json:"explanation,omitempty"`
	Sequence    int    `json:"sequence"`
}

// MultiSelect reports whether the question accepts more than one answer.
func (q *Question) MultiSelect() bool {
	return len(q.Correct) >= 2
}

// HasOption reports whether the question carries the given option letter.
func (q *Question) HasOption(letter string) bool {
	_, ok := q.Options[letter]
	return ok
}

// SortLetters sorts a selection set in place and returns it.
// Selections are kept sorted so set comparison is deterministic.
func SortLetters(letters []string) []string {
	sort.Strings(letters)
	return letters
}

// QuestionView is a question as served to the client: no correct set,
// no explanation. Built once per session start.
type QuestionView struct {
	ID          string            `json:"id"`
	Prompt      string            `json:"prompt"`
	Options     map[string]string `json:"options"`
	MultiSelect bool              `json:"multi_select"`
	Sequence    int               `json:"sequence"`
}

// View strips grading data from a question.
func (q *Question) View() QuestionView {
	return QuestionView{
		ID:          q.ID,
		Prompt:      q.Prompt,
		Options:     q.Options,
		MultiSelect: q.MultiSelect(),
		Sequence:    q.Sequence,
	}
}
