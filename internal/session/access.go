package session

import "github.com/examly/session-engine/internal/model"

// ApplyAccess truncates the question list for unauthenticated sessions.
// Authenticated callers get the full list and a withheld count of 0;
// anonymous callers get the first limit questions, so re-entering the
// same exam always presents the same prefix. The returned list is the
// authoritative question set for the rest of the session.
func ApplyAccess(questions []model.Question, authenticated bool, limit int) ([]model.Question, int) {
	if authenticated || len(questions) <= limit {
		return questions, 0
	}
	return questions[:limit], len(questions) - limit
}
