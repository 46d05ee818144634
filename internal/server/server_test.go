package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/docwizard/engine/internal/conversation"
	"github.com/docwizard/engine/internal/event"
	"github.com/docwizard/engine/internal/executor"
	"github.com/docwizard/engine/internal/filestore"
	"github.com/docwizard/engine/internal/promptstore"
	"github.com/docwizard/engine/internal/provider"
	"github.com/docwizard/engine/internal/queue"
	"github.com/docwizard/engine/internal/result"
	"github.com/docwizard/engine/internal/sessionstore"
	"github.com/docwizard/engine/internal/storage"
	"github.com/docwizard/engine/pkg/types"
)

type noopNotifier struct{}

func (noopNotifier) Notify() {}

type testServer struct {
	srv      *Server
	sessions *sessionstore.Store
	files    *filestore.Store
	prompts  *promptstore.Store
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	event.Reset()
	t.Cleanup(event.Reset)

	dir := t.TempDir()
	durable, err := storage.OpenDurable(filepath.Join(dir, "wizard.db"))
	require.NoError(t, err)
	t.Cleanup(func() { durable.Close() })
	hot := storage.New(filepath.Join(dir, "hot"))

	sessions := sessionstore.New(hot, durable, time.Hour, zerolog.Nop())
	files := filestore.New(durable)
	prompts := promptstore.New(durable)
	convLog := conversation.New(durable)
	assembler := result.New(durable)
	q := queue.New(durable)

	reg := provider.New(durable, hot, 5*time.Minute, zerolog.Nop())
	gw := provider.NewGateway(reg, nil, zerolog.Nop())
	exec := executor.New(executor.Config{
		Prompts: prompts, Files: files, Log: convLog, Sessions: sessions,
		Gateway: gw, Assembler: assembler, Logger: zerolog.Nop(),
	})

	srv := New(&Config{Port: 0, EnableCORS: false, ReadTimeout: time.Second}, Deps{
		Sessions: sessions, Files: files, Prompts: prompts, Conv: convLog,
		Assembler: assembler, Queue: q, Executor: exec, Notify: noopNotifier{}, Logger: zerolog.Nop(),
	})

	return testServer{srv: srv, sessions: sessions, files: files, prompts: prompts}
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestUploadCreatesSessionAndFiles(t *testing.T) {
	ts := newTestServer(t)

	rec := doJSON(t, ts.srv.Router(), http.MethodPost, "/session", uploadRequest{
		Files: []uploadFile{{OriginalName: "a.docx", PlainText: "hello"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
}

func TestUploadRejectsEmptyFileList(t *testing.T) {
	ts := newTestServer(t)

	rec := doJSON(t, ts.srv.Router(), http.MethodPost, "/session", uploadRequest{})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.False(t, resp.Success)
	require.Equal(t, ErrCodeInvalidRequest, resp.Error.Code)
}

func TestSubmitPromptsEnqueuesJobs(t *testing.T) {
	ctx := t.Context()
	ts := newTestServer(t)

	sess, err := ts.sessions.CreateSession(ctx, "", nil)
	require.NoError(t, err)
	_, err = ts.files.CreateFiles(ctx, sess.ID, []*types.File{{OriginalName: "a.docx", PlainText: "hi"}})
	require.NoError(t, err)

	rec := doJSON(t, ts.srv.Router(), http.MethodPost, "/session/"+sess.ID+"/prompts", submitPromptsRequest{
		Prompts: []promptInput{{Content: "Summarize", Priority: 1, TargetType: types.TargetGlobal}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, 1, ts.srv.queue.Size())
}

func TestGetSessionNotFound(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/session/missing", nil)
	rec := httptest.NewRecorder()
	ts.srv.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetStatusReturnsPrompts(t *testing.T) {
	ctx := t.Context()
	ts := newTestServer(t)

	sess, err := ts.sessions.CreateSession(ctx, "", nil)
	require.NoError(t, err)
	_, err = ts.prompts.CreatePrompts(ctx, sess.ID, []*types.Prompt{{Content: "x", Priority: 1, TargetType: types.TargetGlobal}})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/session/"+sess.ID+"/status", nil)
	rec := httptest.NewRecorder()
	ts.srv.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
}

func TestRegenerateResultResetsPromptsAndReenqueues(t *testing.T) {
	ctx := t.Context()
	ts := newTestServer(t)

	sess, err := ts.sessions.CreateSession(ctx, "", nil)
	require.NoError(t, err)
	created, err := ts.prompts.CreatePrompts(ctx, sess.ID, []*types.Prompt{
		{Content: "x", Priority: 1, TargetType: types.TargetGlobal},
	})
	require.NoError(t, err)
	require.NoError(t, ts.prompts.SetResult(ctx, created[0].ID, "done"))
	require.NoError(t, ts.sessions.UpdateStatus(ctx, sess.ID, types.SessionProcessing))
	require.NoError(t, ts.sessions.UpdateStatus(ctx, sess.ID, types.SessionCompleted))

	rec := doJSON(t, ts.srv.Router(), http.MethodPost, "/session/"+sess.ID+"/result/regenerate", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, 1, ts.srv.queue.Size())

	reloaded, err := ts.prompts.GetPrompt(ctx, created[0].ID)
	require.NoError(t, err)
	require.Equal(t, types.PromptPending, reloaded.Status)
	require.Empty(t, reloaded.Result)

	sessAfter, err := ts.sessions.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, types.SessionProcessing, sessAfter.Status)
}

func TestRegenerateResultNotFoundWhenNoPrompts(t *testing.T) {
	ctx := t.Context()
	ts := newTestServer(t)

	sess, err := ts.sessions.CreateSession(ctx, "", nil)
	require.NoError(t, err)

	rec := doJSON(t, ts.srv.Router(), http.MethodPost, "/session/"+sess.ID+"/result/regenerate", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRespondToClarificationOnNonPendingStillRecordsReply(t *testing.T) {
	ctx := t.Context()
	ts := newTestServer(t)

	sess, err := ts.sessions.CreateSession(ctx, "", nil)
	require.NoError(t, err)

	rec := doJSON(t, ts.srv.Router(), http.MethodPost, "/session/"+sess.ID+"/clarifications/some-id", respondRequest{
		Response: "yes, the first total",
	})
	require.Equal(t, http.StatusOK, rec.Code)
}
