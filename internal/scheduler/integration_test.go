package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/docwizard/engine/internal/clarify"
	"github.com/docwizard/engine/pkg/types"
)

// TestSchedulerSerializesSameSessionPriorityOrder submits three prompts to
// one session out of priority order, enqueues their jobs, and runs the full
// Scheduler (with a concurrency cap well above one) to confirm two things
// at once: prompts run in ascending-priority order, and the per-session
// lock keeps them from overlapping even though the dequeue loop is willing
// to dispatch up to three jobs at a time.
func TestSchedulerSerializesSameSessionPriorityOrder(t *testing.T) {
	d := newTestDeps(t, "The figures reconcile.")
	d.sched.maxConcurrent = 3
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess, err := d.sessions.CreateSession(ctx, "", nil)
	require.NoError(t, err)
	_, err = d.files.CreateFiles(ctx, sess.ID, []*types.File{{OriginalName: "a.docx", PlainText: "data"}})
	require.NoError(t, err)

	// Submitted out of priority order; CreatePrompts sorts by (priority,
	// submission order) and assigns executionOrder accordingly.
	created, err := d.prompts.CreatePrompts(ctx, sess.ID, []*types.Prompt{
		{Content: "third", Priority: 3, TargetType: types.TargetGlobal},
		{Content: "first", Priority: 1, TargetType: types.TargetGlobal},
		{Content: "second", Priority: 2, TargetType: types.TargetGlobal},
	})
	require.NoError(t, err)
	require.Len(t, created, 3)

	for _, p := range created {
		require.NoError(t, d.queue.Enqueue(ctx, types.Job{
			SessionID: sess.ID, PromptID: p.ID, Priority: p.Priority, Sequence: int64(p.ExecutionOrder),
		}))
	}

	go func() { _ = d.sched.Run(ctx) }()

	require.Eventually(t, func() bool {
		all, err := d.prompts.ListBySession(ctx, sess.ID)
		if err != nil {
			return false
		}
		for _, p := range all {
			if p.Status != types.PromptCompleted {
				return false
			}
		}
		return true
	}, 5*time.Second, 10*time.Millisecond)

	all, err := d.prompts.ListBySession(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, all, 3)

	byPriority := make(map[int]*types.Prompt, 3)
	for _, p := range all {
		byPriority[p.Priority] = p
	}

	require.LessOrEqual(t, byPriority[1].CompletedAt, byPriority[2].StartedAt,
		"priority 2 must not start before priority 1's run finishes")
	require.LessOrEqual(t, byPriority[2].CompletedAt, byPriority[3].StartedAt,
		"priority 3 must not start before priority 2's run finishes")
}

// TestSchedulerClarificationBlocksSessionCompletion runs a single prompt
// whose response hedges ("possibly... not sure"), confirming the session
// stays PROCESSING until the clarification is answered and the Executor's
// completion check is re-run.
func TestSchedulerClarificationBlocksSessionCompletion(t *testing.T) {
	d := newTestDeps(t, "The total is possibly 42, I am not sure which total this refers to.")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess, prompt := d.newSessionWithPrompt(t, ctx)
	require.NoError(t, d.queue.Enqueue(ctx, types.Job{SessionID: sess.ID, PromptID: prompt.ID, Priority: 1, Sequence: 1}))

	go func() { _ = d.sched.Run(ctx) }()

	require.Eventually(t, func() bool {
		p, err := d.prompts.GetPrompt(ctx, prompt.ID)
		return err == nil && p.Status == types.PromptCompleted
	}, 5*time.Second, 10*time.Millisecond)

	sessAfterPrompt, err := d.sessions.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, types.SessionProcessing, sessAfterPrompt.Status, "session must wait on the pending clarification")

	pending, err := d.conv.PendingClarifications(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	_, err = clarify.Respond(ctx, d.conv, sess.ID, pending[0].ID, "it's the grand total")
	require.NoError(t, err)
	require.NoError(t, d.sched.executor.EvaluateSessionTransition(ctx, sess.ID))

	sessFinal, err := d.sessions.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, types.SessionCompleted, sessFinal.Status)
}
