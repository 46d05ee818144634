package contextbuilder

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docwizard/engine/pkg/types"
)

func TestBuildGlobalIncludesEveryFileInOrder(t *testing.T) {
	files := []*types.File{
		{ID: "f1", PlainText: "alpha"},
		{ID: "f2", PlainText: "beta"},
	}
	prompt := &types.Prompt{TargetType: types.TargetGlobal}

	built, err := Build(prompt, files, nil)
	require.NoError(t, err)
	require.Len(t, built.FileTexts, 2)
	require.Equal(t, "f1", built.FileTexts[0].FileID)
	require.Equal(t, "alpha", built.FileTexts[0].Text)
	require.Equal(t, "f2", built.FileTexts[1].FileID)
}

func TestBuildFoldsPreviousResultsIntoSystemPrompt(t *testing.T) {
	files := []*types.File{{ID: "f1", PlainText: "alpha"}}
	prompt := &types.Prompt{TargetType: types.TargetGlobal}

	built, err := Build(prompt, files, []string{"first result", "second result"})
	require.NoError(t, err)
	require.Contains(t, built.SystemPrompt, "first result")
	require.Contains(t, built.SystemPrompt, "second result")
}

func TestBuildFileSpecificSelectsOnlyTargetFile(t *testing.T) {
	files := []*types.File{
		{ID: "f1", PlainText: "alpha"},
		{ID: "f2", PlainText: "beta"},
	}
	prompt := &types.Prompt{TargetType: types.TargetFileSpecific, TargetFileID: "f2"}

	built, err := Build(prompt, files, nil)
	require.NoError(t, err)
	require.Len(t, built.FileTexts, 1)
	require.Equal(t, "f2", built.FileTexts[0].FileID)
	require.Equal(t, "beta", built.FileTexts[0].Text)
}

func TestBuildFileSpecificErrorsWhenFileMissing(t *testing.T) {
	prompt := &types.Prompt{TargetType: types.TargetFileSpecific, TargetFileID: "missing"}
	_, err := Build(prompt, nil, nil)
	require.Error(t, err)
}

func TestBuildLineSpecificSlicesInclusive1Indexed(t *testing.T) {
	files := []*types.File{{ID: "f1", PlainText: "line1\nline2\nline3\nline4"}}
	prompt := &types.Prompt{
		TargetType:   types.TargetLineSpecific,
		TargetFileID: "f1",
		TargetLines:  &types.LineRange{Start: 2, End: 3},
	}

	built, err := Build(prompt, files, nil)
	require.NoError(t, err)
	require.Equal(t, "line2\nline3", built.FileTexts[0].Text)
}

func TestBuildSectionSpecificMatchesTitleCaseInsensitively(t *testing.T) {
	files := []*types.File{{
		ID: "f1",
		Sections: []types.Section{
			{Title: "Executive Summary", Content: "summary content"},
			{Title: "Appendix", Content: "appendix content"},
		},
	}}
	prompt := &types.Prompt{
		TargetType:    types.TargetSectionSpecific,
		TargetFileID:  "f1",
		TargetSection: "executive",
	}

	built, err := Build(prompt, files, nil)
	require.NoError(t, err)
	require.Equal(t, "summary content", built.FileTexts[0].Text)
}

func TestBuildSectionSpecificSearchesAllFilesWithoutTargetFileID(t *testing.T) {
	files := []*types.File{
		{ID: "f1", Sections: []types.Section{{Title: "Appendix", Content: "nope"}}},
		{ID: "f2", Sections: []types.Section{{Title: "Executive Summary", Content: "summary content"}}},
	}
	prompt := &types.Prompt{TargetType: types.TargetSectionSpecific, TargetSection: "executive"}

	built, err := Build(prompt, files, nil)
	require.NoError(t, err)
	require.Len(t, built.FileTexts, 1)
	require.Equal(t, "f2", built.FileTexts[0].FileID)
	require.Equal(t, "summary content", built.FileTexts[0].Text)
}

func TestBuildSectionSpecificErrorsWhenNoMatch(t *testing.T) {
	files := []*types.File{{ID: "f1", Sections: []types.Section{{Title: "Appendix"}}}}
	prompt := &types.Prompt{TargetType: types.TargetSectionSpecific, TargetFileID: "f1", TargetSection: "nope"}

	_, err := Build(prompt, files, nil)
	require.Error(t, err)
}
