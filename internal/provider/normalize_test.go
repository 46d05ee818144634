package provider

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeStringPassesThrough(t *testing.T) {
	out, err := Normalize("abcd")
	require.NoError(t, err)
	require.Equal(t, "abcd", out)
}

func TestNormalizeArrayConcatenatesInOrder(t *testing.T) {
	out, err := Normalize([]any{"ab", "cd"})
	require.NoError(t, err)
	require.Equal(t, "abcd", out)
}

func TestNormalizeIntKeyedObjectOrdersByNumericKey(t *testing.T) {
	out, err := Normalize(map[string]any{"1": "cd", "0": "ab"})
	require.NoError(t, err)
	require.Equal(t, "abcd", out)
}

func TestNormalizeAllThreeShapesAgree(t *testing.T) {
	shapes := []any{
		map[string]any{"0": "abc", "1": "de"},
		[]any{"ab", "cd"},
		"abcd",
	}
	var results []string
	for _, s := range shapes {
		out, err := Normalize(s)
		require.NoError(t, err)
		results = append(results, out)
	}
	require.Equal(t, "abcd", results[2])
	require.Equal(t, "abcd", results[0])
	require.Equal(t, "abcd", results[1])
}

func TestNormalizeEmptyStringIsError(t *testing.T) {
	_, err := Normalize("")
	require.ErrorIs(t, err, ErrEmptyResponse)
}

func TestNormalizeRejectsUnknownShape(t *testing.T) {
	_, err := Normalize(42)
	require.Error(t, err)
}

func TestNormalizeRejectsNonIntegerKeys(t *testing.T) {
	_, err := Normalize(map[string]any{"first": "a"})
	require.Error(t, err)
}
