package clarify

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNeedsClarificationDetectsHedgingPhrase(t *testing.T) {
	require.True(t, NeedsClarification("The total could be either 12 or 15 depending on the table."))
}

func TestNeedsClarificationDetectsMultipleQuestionMarks(t *testing.T) {
	require.True(t, NeedsClarification("Did you mean the 2023 report??"))
}

func TestNeedsClarificationDetectsWhichOfConstruction(t *testing.T) {
	require.True(t, NeedsClarification("Which of the two tables should I summarize?"))
}

func TestNeedsClarificationDetectsMarkerComment(t *testing.T) {
	require.True(t, NeedsClarification(`Some text. <!-- QUESTION?: "Should totals include tax?" -->`))
}

func TestNeedsClarificationFalseOnConfidentText(t *testing.T) {
	require.False(t, NeedsClarification("The total revenue for Q1 was $450,000."))
}

func TestExtractQuestionsMarkerFormFirst(t *testing.T) {
	text := `Intro text.
<!-- QUESTION?: "Should totals include tax?" -->
More text that is not a question.`
	qs := ExtractQuestions(text)
	require.Equal(t, []string{"Should totals include tax?"}, qs)
}

func TestExtractQuestionsPlainLinesAfterMarkers(t *testing.T) {
	text := `<!-- QUESTION?: "Is this the final draft?" -->
Which fiscal year should this cover?
short?`
	qs := ExtractQuestions(text)
	require.Equal(t, []string{"Is this the final draft?", "Which fiscal year should this cover?"}, qs)
}

func TestExtractQuestionsDeduplicatesNearDuplicates(t *testing.T) {
	text := `<!-- QUESTION?: "Should totals include tax amounts?" -->
Should totals include tax amount?`
	qs := ExtractQuestions(text)
	require.Len(t, qs, 1)
}

func TestExtractQuestionsIgnoresShortLines(t *testing.T) {
	text := "Why?\nWhat is the expected completion date for this report?"
	qs := ExtractQuestions(text)
	require.Equal(t, []string{"What is the expected completion date for this report?"}, qs)
}
