package filestore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docwizard/engine/internal/storage"
	"github.com/docwizard/engine/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	durable, err := storage.OpenDurable(filepath.Join(t.TempDir(), "wizard.db"))
	require.NoError(t, err)
	t.Cleanup(func() { durable.Close() })
	return New(durable)
}

func TestCreateFilesPreservesSectionsAndTables(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	drafts := []*types.File{{
		OriginalName: "report.docx",
		MimeType:     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		Size:         1024,
		PlainText:    "hello world",
		Sections:     []types.Section{{Title: "Intro", Level: 1, StartLine: 1, EndLine: 3, Content: "hello"}},
		Tables:       []types.Table{{Headers: []string{"a", "b"}, Rows: [][]string{{"1", "2"}}}},
		CreatedAt:    1000,
	}}

	created, err := s.CreateFiles(ctx, "sess-1", drafts)
	require.NoError(t, err)
	require.Len(t, created, 1)
	require.NotEmpty(t, created[0].ID)
	require.Equal(t, "sess-1", created[0].SessionID)

	got, err := s.Get(ctx, created[0].ID)
	require.NoError(t, err)
	require.Equal(t, "hello world", got.PlainText)
	require.Len(t, got.Sections, 1)
	require.Equal(t, "Intro", got.Sections[0].Title)
	require.Len(t, got.Tables, 1)
}

func TestListBySessionReturnsUploadOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.CreateFiles(ctx, "sess-1", []*types.File{
		{OriginalName: "a.docx", CreatedAt: 1000},
		{OriginalName: "b.docx", CreatedAt: 1001},
	})
	require.NoError(t, err)

	files, err := s.ListBySession(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, files, 2)
	require.Equal(t, "a.docx", files[0].OriginalName)
	require.Equal(t, "b.docx", files[1].OriginalName)
}

func TestGetReturnsNilWhenMissing(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	got, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	require.Nil(t, got)
}
