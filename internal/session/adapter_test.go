package session

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/examly/session-engine/internal/model"
	"github.com/examly/session-engine/internal/store"
)

type fakeOfficial struct {
	exam      *store.OfficialExam
	questions []store.OfficialQuestion
}

func (f *fakeOfficial) ExamBySlugOrID(ctx context.Context, ref string) (*store.OfficialExam, error) {
	if f.exam == nil || (ref != f.exam.Slug && ref != f.exam.ID.String()) {
		return nil, store.ErrNotFound
	}
	return f.exam, nil
}

func (f *fakeOfficial) QuestionsByExam(ctx context.Context, examID string) ([]store.OfficialQuestion, error) {
	return f.questions, nil
}

type fakeCommunity struct {
	set       *store.PracticeSet
	questions []store.PracticeQuestion
}

func (f *fakeCommunity) SetBySlugOrID(ctx context.Context, ref string) (*store.PracticeSet, error) {
	if f.set == nil || (ref != f.set.Slug && ref != f.set.ID) {
		return nil, store.ErrNotFound
	}
	return f.set, nil
}

func (f *fakeCommunity) QuestionsBySet(ctx context.Context, setID string) ([]store.PracticeQuestion, error) {
	return f.questions, nil
}

func strPtr(s string) *string { return &s }

func officialFixture() *fakeOfficial {
	examID := uuid.New()
	return &fakeOfficial{
		exam: &store.OfficialExam{
			ID:              examID,
			Slug:            "go-fundamentals",
			Title:           "Go Fundamentals",
			DurationMinutes: 30,
			QuestionCount:   2,
			Difficulty:      "medium",
		},
		questions: []store.OfficialQuestion{
			{
				ID: uuid.New(), ExamID: examID, Prompt: "second",
				OptionA: "a", OptionB: "b", OptionC: strPtr("c"),
				AnswerKey: "CA", OrderNum: 2,
			},
			{
				ID: uuid.New(), ExamID: examID, Prompt: "first",
				OptionA: "a", OptionB: "b",
				AnswerKey: "B", Explanation: strPtr("because"), OrderNum: 1,
			},
		},
	}
}

func newTestLoader(official OfficialSource, community CommunitySource) *Loader {
	return NewLoader(official, community, zerolog.Nop())
}

func TestLoadOfficialNormalizes(t *testing.T) {
	f := officialFixture()
	loader := newTestLoader(f, &fakeCommunity{})

	def, questions, err := loader.Load(context.Background(), "go-fundamentals", model.SourceOfficial)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if def.Source != model.SourceOfficial {
		t.Fatalf("source = %s, want official", def.Source)
	}
	if def.Title != "Go Fundamentals" || def.DurationMinutes != 30 {
		t.Fatalf("definition not mapped: %+v", def)
	}

	if len(questions) != 2 {
		t.Fatalf("len(questions) = %d, want 2", len(questions))
	}
	// Sorted by sequence, not load order.
	if questions[0].Prompt != "first" || questions[1].Prompt != "second" {
		t.Fatalf("questions out of order: %q then %q", questions[0].Prompt, questions[1].Prompt)
	}

	q1 := questions[0]
	if q1.MultiSelect() {
		t.Fatal("single-key question reported multi-select")
	}
	if q1.Explanation != "because" {
		t.Fatalf("explanation = %q", q1.Explanation)
	}
	if q1.HasOption("C") {
		t.Fatal("absent option column surfaced as an option")
	}

	q2 := questions[1]
	if !q2.MultiSelect() {
		t.Fatal("two-letter key question not multi-select")
	}
	// "CA" arrives sorted.
	if q2.Correct[0] != "A" || q2.Correct[1] != "C" {
		t.Fatalf("correct = %v, want [A C]", q2.Correct)
	}
}

func TestLoadOfficialByIDFallback(t *testing.T) {
	f := officialFixture()
	loader := newTestLoader(f, &fakeCommunity{})

	def, _, err := loader.Load(context.Background(), f.exam.ID.String(), model.SourceOfficial)
	if err != nil {
		t.Fatalf("Load by ID: %v", err)
	}
	if def.Slug != "go-fundamentals" {
		t.Fatalf("slug = %q", def.Slug)
	}
}

func TestLoadCommunityNormalizes(t *testing.T) {
	community := &fakeCommunity{
		set: &store.PracticeSet{
			ID: "set-1", Slug: "practice-slices", Name: "Slices Practice",
			AuthorID: "u1", TimeLimitMin: 15, Difficulty: "easy",
		},
		questions: []store.PracticeQuestion{
			{
				ID: "pq1", SetID: "set-1", Body: "pick two",
				ChoicesJSON: []byte(`{"a":"one","b":"two","c":"three"}`),
				AnswerJSON:  []byte(`{"correct":["c","a"]}`),
				Position:    1,
			},
			{
				ID: "pq2", SetID: "set-1", Body: "pick one",
				ChoicesJSON: []byte(`{"A":"yes","B":"no"}`),
				AnswerJSON:  []byte(`["B"]`),
				Hint:        strPtr("read carefully"),
				Position:    2,
			},
			{
				ID: "pq3", SetID: "set-1", Body: "broken",
				ChoicesJSON: []byte(`not json`),
				AnswerJSON:  []byte(`["A"]`),
				Position:    3,
			},
		},
	}
	loader := newTestLoader(&fakeOfficial{}, community)

	def, questions, err := loader.Load(context.Background(), "practice-slices", model.SourceCommunity)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if def.Source != model.SourceCommunity || def.Title != "Slices Practice" {
		t.Fatalf("definition not mapped: %+v", def)
	}

	// The malformed row is skipped, not fatal.
	if len(questions) != 2 {
		t.Fatalf("len(questions) = %d, want 2", len(questions))
	}

	q1 := questions[0]
	if !q1.MultiSelect() {
		t.Fatal("object-form answer key with two letters not multi-select")
	}
	if q1.Correct[0] != "A" || q1.Correct[1] != "C" {
		t.Fatalf("correct = %v, want [A C]", q1.Correct)
	}
	// Lowercase choice keys normalized.
	if !q1.HasOption("A") || !q1.HasOption("C") {
		t.Fatalf("options not normalized: %v", q1.Options)
	}

	q2 := questions[1]
	if q2.Explanation != "read carefully" {
		t.Fatalf("hint not mapped: %q", q2.Explanation)
	}
}

func TestLoadUnknownRef(t *testing.T) {
	loader := newTestLoader(officialFixture(), &fakeCommunity{})

	_, _, err := loader.Load(context.Background(), "missing", model.SourceOfficial)
	if !errors.Is(err, ErrExamNotFound) {
		t.Fatalf("err = %v, want ErrExamNotFound", err)
	}
	_, _, err = loader.Load(context.Background(), "missing", model.SourceCommunity)
	if !errors.Is(err, ErrExamNotFound) {
		t.Fatalf("err = %v, want ErrExamNotFound", err)
	}
}

func TestLoadExamWithoutQuestions(t *testing.T) {
	f := officialFixture()
	f.questions = nil
	loader := newTestLoader(f, &fakeCommunity{})

	_, _, err := loader.Load(context.Background(), "go-fundamentals", model.SourceOfficial)
	if !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("err = %v, want ErrNoQuestions", err)
	}
}

func TestLoadSkipsInvalidQuestions(t *testing.T) {
	f := officialFixture()
	// Correct letter points at an absent option.
	f.questions = append(f.questions, store.OfficialQuestion{
		ID: uuid.New(), ExamID: f.exam.ID, Prompt: "bad key",
		OptionA: "a", OptionB: "b", AnswerKey: "D", OrderNum: 3,
	})
	loader := newTestLoader(f, &fakeCommunity{})

	_, questions, err := loader.Load(context.Background(), "go-fundamentals", model.SourceOfficial)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("len(questions) = %d, want 2 after skipping invalid row", len(questions))
	}
}
