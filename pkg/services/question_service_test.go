package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuestionService_LoadsInFileOrder(t *testing.T) {
	s := NewQuestionService(writeQuestions(t, `{"Personal": {"1": "Name?", "2": "Age?"}, "Health": {"1": "Allergies?"}}`))

	catalog := s.GetQuestions()
	require.Len(t, catalog.Sections, 2)
	assert.Equal(t, "Personal", catalog.Sections[0].ID)
	assert.Equal(t, "Health", catalog.Sections[1].ID)
	assert.Same(t, catalog, s.GetQuestions(), "catalog is cached after first load")
}

func TestQuestionService_LoadIsIdempotent(t *testing.T) {
	s := NewQuestionService(writeQuestions(t, `{"A": {"1": "x", "2": "y"}}`))
	assert.Equal(t, s.Load(), s.Load())
}

func TestQuestionService_MissingOrInvalidDegradesToEmpty(t *testing.T) {
	cases := map[string]string{
		"not json":       `{"A": `,
		"string values":  `{"A": "Name?"}`,
		"numeric text":   `{"A": {"1": 5}}`,
		"bad key":        `{"A": {"first": "Name?"}}`,
		"gap":            `{"A": {"1": "x", "3": "z"}}`,
		"empty section":  `{"A": {}}`,
		"top level list": `[]`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			s := NewQuestionService(writeQuestions(t, doc))
			_, err := s.LoadQuestionsFromFile(s.filePath)
			assert.Error(t, err)
			assert.True(t, s.GetQuestions().Empty())
		})
	}

	t.Run("missing file", func(t *testing.T) {
		s := NewQuestionService(filepath.Join(t.TempDir(), "nope.json"))
		assert.True(t, s.GetQuestions().Empty())
	})
}

func TestQuestionService_ReloadKeepsPreviousOnFailure(t *testing.T) {
	path := writeQuestions(t, `{"A": {"1": "x"}}`)
	s := NewQuestionService(path)
	first := s.GetQuestions()

	require.NoError(t, os.WriteFile(path, []byte(`{"A": {"1": "x"}, "B": {"1": "y"}}`), 0o644))
	reloaded, err := s.ReloadQuestions()
	require.NoError(t, err)
	assert.Len(t, reloaded.Sections, 2)
	assert.Same(t, reloaded, s.GetQuestions())
	assert.Len(t, first.Sections, 1, "previous catalog is not mutated")

	require.NoError(t, os.WriteFile(path, []byte(`broken`), 0o644))
	_, err = s.ReloadQuestions()
	assert.Error(t, err)
	assert.Same(t, reloaded, s.GetQuestions())
}
