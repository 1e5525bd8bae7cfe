package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/backsoul/intake/pkg/models"
	"github.com/backsoul/intake/pkg/redis"
	"github.com/backsoul/intake/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeQuestions(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "questions.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

type examFixture struct {
	exam         *ExamService
	progressPath string
}

func newExamFixture(t *testing.T, questionsDoc string) examFixture {
	t.Helper()
	questions := NewQuestionService(writeQuestions(t, questionsDoc))
	progressPath := filepath.Join(t.TempDir(), "answers.json")
	backend, err := store.NewFileBackend(progressPath)
	require.NoError(t, err)
	progress := store.NewProgressStore(backend, questions)
	return examFixture{
		exam:         NewExamService(questions, progress),
		progressPath: progressPath,
	}
}

func TestExamService_Scenario(t *testing.T) {
	ctx := context.Background()
	f := newExamFixture(t, `{"A": {"1": "Name?", "2": "Age?"}}`)

	current, err := f.exam.GetCurrentQuestion(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Name?", current)

	result, err := f.exam.SaveAnswer(ctx, "Alice")
	require.NoError(t, err)
	assert.Equal(t, "Answer saved. Next question: Age?", result)

	progress, err := f.exam.GetProgress(ctx)
	require.NoError(t, err)
	assert.Equal(t, "A", progress.CurrentSection)
	assert.Equal(t, 2, progress.CurrentQuestion)

	result, err = f.exam.SkipQuestion(ctx)
	require.NoError(t, err)
	assert.Equal(t, CompletionMessage, result)

	progress, err = f.exam.GetProgress(ctx)
	require.NoError(t, err)
	assert.True(t, progress.Completed())
	value, ok := progress.Answer("A", 2)
	assert.True(t, ok)
	assert.Nil(t, value)
	before, err := os.ReadFile(f.progressPath)
	require.NoError(t, err)

	result, err = f.exam.SaveAnswer(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, CompletionMessage, result)
	result, err = f.exam.SkipQuestion(ctx)
	require.NoError(t, err)
	assert.Equal(t, CompletionMessage, result)

	after, err := f.exam.GetProgress(ctx)
	require.NoError(t, err)
	assert.Equal(t, progress, after)
	assert.Equal(t, map[int]*string{1: strPtr("Alice"), 2: nil}, after.Answers["A"])
	_, ok = after.Answers[""]
	assert.False(t, ok)

	persisted, err := os.ReadFile(f.progressPath)
	require.NoError(t, err)
	assert.Equal(t, before, persisted, "completed record must not be rewritten")

	current, err = f.exam.GetCurrentQuestion(ctx)
	require.NoError(t, err)
	assert.Equal(t, NoQuestionsMessage, current)
}

func TestExamService_CrossesSectionsInCatalogOrder(t *testing.T) {
	ctx := context.Background()
	f := newExamFixture(t, `{"Personal": {"1": "Name?", "2": "Age?"}, "Health": {"1": "Allergies?"}, "Contact": {"1": "Phone?"}}`)

	result, err := f.exam.SaveAnswer(ctx, "Bob")
	require.NoError(t, err)
	assert.Equal(t, "Answer saved. Next question: Age?", result)

	result, err = f.exam.SaveAnswer(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "Answer saved. Next question: Allergies?", result)

	slot, err := f.exam.GetCurrentSlot(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.QuestionResponse{Section: "Health", Number: 1, Question: "Allergies?"}, slot)

	result, err = f.exam.SkipQuestion(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Question skipped. Next question: Phone?", result)

	result, err = f.exam.SaveAnswer(ctx, "555")
	require.NoError(t, err)
	assert.Equal(t, CompletionMessage, result)

	progress, err := f.exam.GetProgress(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]map[int]*string{
		"Personal": {1: strPtr("Bob"), 2: strPtr("42")},
		"Health":   {1: nil},
		"Contact":  {1: strPtr("555")},
	}, progress.Answers)

	slot, err = f.exam.GetCurrentSlot(ctx)
	require.NoError(t, err)
	assert.True(t, slot.Complete)
	assert.Equal(t, NoQuestionsMessage, slot.Question)
}

func TestExamService_ResetStartsOver(t *testing.T) {
	ctx := context.Background()
	f := newExamFixture(t, `{"A": {"1": "one", "2": "two"}}`)

	_, err := f.exam.SaveAnswer(ctx, "first")
	require.NoError(t, err)
	_, err = f.exam.Reset(ctx)
	require.NoError(t, err)

	_, err = f.exam.SkipQuestion(ctx)
	require.NoError(t, err)

	progress, err := f.exam.GetProgress(ctx)
	require.NoError(t, err)
	value, ok := progress.Answer("A", 1)
	assert.True(t, ok)
	assert.Nil(t, value)
	assert.Equal(t, 2, progress.CurrentQuestion)
}

func TestExamService_DoubleDigitQuestions(t *testing.T) {
	ctx := context.Background()
	var b strings.Builder
	b.WriteString(`{"A": {`)
	for i := 1; i <= 12; i++ {
		if i > 1 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `"%d": "q%d"`, i, i)
	}
	b.WriteString(`}, "B": {"1": "b1"}}`)
	f := newExamFixture(t, b.String())

	for i := 1; i <= 9; i++ {
		_, err := f.exam.SkipQuestion(ctx)
		require.NoError(t, err)
	}
	current, err := f.exam.GetCurrentQuestion(ctx)
	require.NoError(t, err)
	assert.Equal(t, "q10", current)

	for i := 10; i <= 12; i++ {
		_, err := f.exam.SkipQuestion(ctx)
		require.NoError(t, err)
	}
	current, err = f.exam.GetCurrentQuestion(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b1", current)
}

func TestExamService_SectionMissingFromCatalog(t *testing.T) {
	ctx := context.Background()
	f := newExamFixture(t, `{"A": {"1": "Name?"}}`)

	// Progress written against an older catalog.
	stale := `{"current_section": "Old", "current_question": "3", "answers": {"Old": {"1": null, "2": null, "3": null}}}`
	require.NoError(t, os.WriteFile(f.progressPath, []byte(stale), 0o644))

	current, err := f.exam.GetCurrentQuestion(ctx)
	require.NoError(t, err)
	assert.Equal(t, NoQuestionsMessage, current)

	result, err := f.exam.SaveAnswer(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, NoQuestionsMessage, result)

	data, err := os.ReadFile(f.progressPath)
	require.NoError(t, err)
	assert.Equal(t, stale, string(data))
}

func TestExamService_QuestionMissingFromExistingSection(t *testing.T) {
	ctx := context.Background()
	f := newExamFixture(t, `{"A": {"1": "Name?"}, "B": {"1": "City?"}}`)

	// Question 3 was removed from section A after the record was written.
	stale := `{"current_section": "A", "current_question": "3", "answers": {"A": {"1": "Alice", "2": null, "3": null}, "B": {"1": null}}}`
	require.NoError(t, os.WriteFile(f.progressPath, []byte(stale), 0o644))

	current, err := f.exam.GetCurrentQuestion(ctx)
	require.NoError(t, err)
	assert.Equal(t, NoQuestionsMessage, current)

	result, err := f.exam.SaveAnswer(ctx, "z")
	require.NoError(t, err)
	assert.Equal(t, "Answer saved. Next question: City?", result)

	slot, err := f.exam.GetCurrentSlot(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.QuestionResponse{Section: "B", Number: 1, Question: "City?"}, slot)

	progress, err := f.exam.GetProgress(ctx)
	require.NoError(t, err)
	assert.Equal(t, "z", *progress.Answers["A"][3])

	result, err = f.exam.SkipQuestion(ctx)
	require.NoError(t, err)
	assert.Equal(t, CompletionMessage, result)
}

func TestExamService_EmptyCatalog(t *testing.T) {
	ctx := context.Background()
	questions := NewQuestionService(filepath.Join(t.TempDir(), "missing.json"))
	backend, err := store.NewFileBackend(filepath.Join(t.TempDir(), "answers.json"))
	require.NoError(t, err)
	exam := NewExamService(questions, store.NewProgressStore(backend, questions))

	assert.True(t, exam.GetQuestions().Empty())

	current, err := exam.GetCurrentQuestion(ctx)
	require.NoError(t, err)
	assert.Equal(t, NoQuestionsMessage, current)

	result, err := exam.SaveAnswer(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, CompletionMessage, result)
}

func TestExamService_CorruptProgressIsAnError(t *testing.T) {
	ctx := context.Background()
	f := newExamFixture(t, `{"A": {"1": "Name?"}}`)
	require.NoError(t, os.WriteFile(f.progressPath, []byte(`{"current_section": "A", "current_question": 1}`), 0o644))

	_, err := f.exam.GetProgress(ctx)
	assert.ErrorIs(t, err, store.ErrCorruptState)
	_, err = f.exam.GetCurrentQuestion(ctx)
	assert.ErrorIs(t, err, store.ErrCorruptState)
	_, err = f.exam.SaveAnswer(ctx, "x")
	assert.ErrorIs(t, err, store.ErrCorruptState)
}

func TestExamService_ConcurrentAdvancesAreSerialized(t *testing.T) {
	ctx := context.Background()
	const n = 40

	var b strings.Builder
	b.WriteString(`{"A": {`)
	for i := 1; i <= n+5; i++ {
		if i > 1 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `"%d": "q%d"`, i, i)
	}
	b.WriteString(`}}`)
	f := newExamFixture(t, b.String())

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.exam.SaveAnswer(ctx, fmt.Sprintf("answer-%d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	progress, err := f.exam.GetProgress(ctx)
	require.NoError(t, err)
	assert.Equal(t, n+1, progress.CurrentQuestion)

	seen := make(map[string]bool)
	for q := 1; q <= n; q++ {
		value, ok := progress.Answer("A", q)
		require.True(t, ok)
		require.NotNil(t, value, "slot %d lost its answer", q)
		assert.False(t, seen[*value], "answer %s stored twice", *value)
		seen[*value] = true
	}
	assert.Len(t, seen, n)
}

func TestExamService_ReplicasSharingRedisDoNotLoseAnswers(t *testing.T) {
	ctx := context.Background()
	const perReplica = 15

	var b strings.Builder
	b.WriteString(`{"A": {`)
	for i := 1; i <= 2*perReplica+1; i++ {
		if i > 1 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `"%d": "q%d"`, i, i)
	}
	b.WriteString(`}}`)
	questions := NewQuestionService(writeQuestions(t, b.String()))

	mr := miniredis.RunT(t)
	// Each replica has its own client, store and mutex.
	newReplica := func() *ExamService {
		client, err := redis.NewRedisClient(ctx, mr.Addr(), "", 0)
		require.NoError(t, err)
		backend := store.NewRedisBackend(client, "intake:progress")
		t.Cleanup(func() { backend.Close() })
		return NewExamService(questions, store.NewProgressStore(backend, questions))
	}
	replicas := []*ExamService{newReplica(), newReplica()}

	var wg sync.WaitGroup
	for r, exam := range replicas {
		for i := 0; i < perReplica; i++ {
			wg.Add(1)
			go func(exam *ExamService, answer string) {
				defer wg.Done()
				_, err := exam.SaveAnswer(ctx, answer)
				assert.NoError(t, err)
			}(exam, fmt.Sprintf("replica%d-%d", r, i))
		}
	}
	wg.Wait()

	progress, err := replicas[0].GetProgress(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2*perReplica+1, progress.CurrentQuestion)

	seen := make(map[string]bool)
	for q := 1; q <= 2*perReplica; q++ {
		value, ok := progress.Answer("A", q)
		require.True(t, ok)
		require.NotNil(t, value, "slot %d lost its answer", q)
		assert.False(t, seen[*value], "answer %s stored twice", *value)
		seen[*value] = true
	}
	assert.Len(t, seen, 2*perReplica)
}

func TestExamService_OnChangeReceivesCopies(t *testing.T) {
	ctx := context.Background()
	f := newExamFixture(t, `{"A": {"1": "Name?", "2": "Age?"}}`)

	var got []*models.ProgressRecord
	f.exam.OnChange(func(record *models.ProgressRecord) {
		got = append(got, record)
	})

	_, err := f.exam.SaveAnswer(ctx, "Alice")
	require.NoError(t, err)
	_, err = f.exam.SkipQuestion(ctx)
	require.NoError(t, err)
	_, err = f.exam.SkipQuestion(ctx)
	require.NoError(t, err)

	require.Len(t, got, 2, "no notification once completed")
	assert.Equal(t, 2, got[0].CurrentQuestion)
	assert.True(t, got[1].Completed())

	got[1].SetAnswer("A", 1, nil)
	progress, err := f.exam.GetProgress(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Alice", *progress.Answers["A"][1])
}

func strPtr(s string) *string {
	return &s
}
