package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/examly/session-engine/internal/model"
	"github.com/examly/session-engine/internal/store"
)

var (
	// ErrExamNotFound means the exam reference resolved to nothing in the
	// selected store. Terminal for session start, not retried.
	ErrExamNotFound = errors.New("exam not found")
	// ErrNoQuestions means the exam resolved but has no usable questions.
	// Terminal for session start; no partial session is created.
	ErrNoQuestions = errors.New("exam has no questions")
)

// OfficialSource is the read contract of the curated content store.
type OfficialSource interface {
	ExamBySlugOrID(ctx context.Context, ref string) (*store.OfficialExam, error)
	QuestionsByExam(ctx context.Context, examID string) ([]store.OfficialQuestion, error)
}

// CommunitySource is the read contract of the user-content store.
type CommunitySource interface {
	SetBySlugOrID(ctx context.Context, ref string) (*store.PracticeSet, error)
	QuestionsBySet(ctx context.Context, setID string) ([]store.PracticeQuestion, error)
}

// Loader resolves one exam definition plus its ordered question list
// from either backing store and normalizes both into the in-session
// shape. Read-only: loading never touches attempt counters.
type Loader struct {
	official  OfficialSource
	community CommunitySource
	log       zerolog.Logger
}

// NewLoader creates a new Loader.
func NewLoader(official OfficialSource, community CommunitySource, log zerolog.Logger) *Loader {
	return &Loader{
		official:  official,
		community: community,
		log:       log.With().Str("component", "content_loader").Logger(),
	}
}

// Load fetches and normalizes an exam by slug-or-ID from the store the
// source tag selects. Fails with ErrExamNotFound or ErrNoQuestions.
func (l *Loader) Load(ctx context.Context, ref string, source model.Source) (*model.ExamDefinition, []model.Question, error) {
	var (
		def       *model.ExamDefinition
		questions []model.Question
		err       error
	)

	switch source {
	case model.SourceCommunity:
		def, questions, err = l.loadCommunity(ctx, ref)
	case model.SourceOfficial:
		def, questions, err = l.loadOfficial(ctx, ref)
	default:
		return nil, nil, fmt.Errorf("unknown content source %q", source)
	}
	if err != nil {
		return nil, nil, err
	}

	if len(questions) == 0 {
		return nil, nil, ErrNoQuestions
	}

	// Explicit sequence order, ties broken by load order.
	sort.SliceStable(questions, func(i, j int) bool {
		return questions[i].Sequence < questions[j].Sequence
	})

	return def, questions, nil
}

func (l *Loader) loadOfficial(ctx context.Context, ref string) (*model.ExamDefinition, []model.Question, error) {
	exam, err := l.official.ExamBySlugOrID(ctx, ref)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, ErrExamNotFound
		}
		return nil, nil, fmt.Errorf("fetch official exam: %w", err)
	}

	rows, err := l.official.QuestionsByExam(ctx, exam.ID.String())
	if err != nil {
		return nil, nil, fmt.Errorf("fetch official questions: %w", err)
	}

	def := &model.ExamDefinition{
		ID:              exam.ID.String(),
		Slug:            exam.Slug,
		Title:           exam.Title,
		DurationMinutes: exam.DurationMinutes,
		QuestionCount:   exam.QuestionCount,
		Difficulty:      exam.Difficulty,
		Source:          model.SourceOfficial,
	}

	questions := make([]model.Question, 0, len(rows))
	for i := range rows {
		q, ok := l.normalizeOfficial(&rows[i])
		if !ok {
			continue
		}
		questions = append(questions, q)
	}
	return def, questions, nil
}

func (l *Loader) loadCommunity(ctx context.Context, ref string) (*model.ExamDefinition, []model.Question, error) {
	set, err := l.community.SetBySlugOrID(ctx, ref)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, ErrExamNotFound
		}
		return nil, nil, fmt.Errorf("fetch practice set: %w", err)
	}

	rows, err := l.community.QuestionsBySet(ctx, set.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch practice questions: %w", err)
	}

	def := &model.ExamDefinition{
		ID:              set.ID,
		Slug:            set.Slug,
		Title:           set.Name,
		DurationMinutes: set.TimeLimitMin,
		QuestionCount:   len(rows),
		Difficulty:      set.Difficulty,
		Source:          model.SourceCommunity,
	}

	questions := make([]model.Question, 0, len(rows))
	for i := range rows {
		q, ok := l.normalizeCommunity(&rows[i])
		if !ok {
			continue
		}
		questions = append(questions, q)
	}
	return def, questions, nil
}

// normalizeOfficial maps the column-per-letter official row onto the
// common shape. Absent option columns stay absent in the map.
func (l *Loader) normalizeOfficial(row *store.OfficialQuestion) (model.Question, bool) {
	options := map[string]string{
		"A": row.OptionA,
		"B": row.OptionB,
	}
	for letter, text := range map[string]*string{
		"C": row.OptionC, "D": row.OptionD, "E": row.OptionE,
		"F": row.OptionF, "G": row.OptionG, "H": row.OptionH,
	} {
		if text != nil && *text != "" {
			options[letter] = *text
		}
	}

	correct := splitAnswerKey(row.AnswerKey)

	q := model.Question{
		ID:       row.ID.String(),
		Prompt:   row.Prompt,
		Options:  options,
		Correct:  correct,
		Sequence: row.OrderNum,
	}
	if row.Explanation != nil {
		q.Explanation = *row.Explanation
	}

	if !validQuestion(&q) {
		l.log.Warn().Str("question_id", q.ID).Msg("Skipping malformed official question")
		return model.Question{}, false
	}
	return q, true
}

// normalizeCommunity maps the JSON-document community row onto the
// common shape. Malformed user-authored rows are skipped, not fatal.
func (l *Loader) normalizeCommunity(row *store.PracticeQuestion) (model.Question, bool) {
	var options map[string]string
	if err := json.Unmarshal(row.ChoicesJSON, &options); err != nil {
		l.log.Warn().Err(err).Str("question_id", row.ID).Msg("Skipping practice question with malformed choices")
		return model.Question{}, false
	}

	normalized := make(map[string]string, len(options))
	for letter, text := range options {
		normalized[strings.ToUpper(strings.TrimSpace(letter))] = text
	}

	correct, ok := parseAnswerDoc(row.AnswerJSON)
	if !ok {
		l.log.Warn().Str("question_id", row.ID).Msg("Skipping practice question with malformed answer key")
		return model.Question{}, false
	}

	q := model.Question{
		ID:       row.ID,
		Prompt:   row.Body,
		Options:  normalized,
		Correct:  correct,
		Sequence: row.Position,
	}
	if row.Hint != nil {
		q.Explanation = *row.Hint
	}

	if !validQuestion(&q) {
		l.log.Warn().Str("question_id", q.ID).Msg("Skipping malformed practice question")
		return model.Question{}, false
	}
	return q, true
}

// splitAnswerKey turns the official concatenated key ("AC") into a
// sorted letter set.
func splitAnswerKey(key string) []string {
	key = strings.ToUpper(strings.TrimSpace(key))
	seen := make(map[string]struct{}, len(key))
	out := make([]string, 0, len(key))
	for _, r := range key {
		letter := string(r)
		if _, dup := seen[letter]; dup {
			continue
		}
		seen[letter] = struct{}{}
		out = append(out, letter)
	}
	sort.Strings(out)
	return out
}

// parseAnswerDoc accepts the two community answer-key encodings: a bare
// letter array, or an object with a "correct" array.
func parseAnswerDoc(raw []byte) ([]string, bool) {
	var letters []string
	if err := json.Unmarshal(raw, &letters); err != nil {
		var doc struct {
			Correct []string `json:"correct"`
		}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, false
		}
		letters = doc.Correct
	}

	seen := make(map[string]struct{}, len(letters))
	out := make([]string, 0, len(letters))
	for _, letter := range letters {
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
	if len(out) == 0 {
		return nil, false
	}
	sort.Strings(out)
	return out, true
}

// validQuestion enforces the normalized invariants: options A and B
// present, 2-8 options total, a non-empty correct set whose letters all
// exist among the options.
func validQuestion(q *model.Question) bool {
	if len(q.Options) < 2 || len(q.Options) > len(model.OptionLetters) {
		return false
	}
	if !q.HasOption("A") || !q.HasOption("B") {
		return false
	}
	if len(q.Correct) == 0 {
		return false
	}
	for _, letter := range q.Correct {
		if !q.HasOption(letter) {
			return false
		}
	}
	return true
}
