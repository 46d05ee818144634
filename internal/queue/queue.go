// Package queue implements the engine's global priority queue: jobs across
// every session are ordered by types.Job.Score() and popped lowest-score
// first, per spec.md §4.4. The in-memory heap is mirrored into the durable
// queue_jobs table so a restart can rebuild it without losing pending work.
package queue

import (
	"container/heap"
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/docwizard/engine/internal/storage"
	"github.com/docwizard/engine/pkg/types"
)

// Queue is a durable, mutex-protected min-heap of types.Job.
type Queue struct {
	mu      sync.Mutex
	heap    jobHeap
	durable *storage.Durable
	seq     atomic.Int64
}

// New creates an empty Queue over the given durable tier.
func New(durable *storage.Durable) *Queue {
	return &Queue{durable: durable}
}

// NextSequence returns the next value of the global, monotonically
// increasing submission counter used as Job.Sequence — the tie-breaker
// term in Score() (spec.md §4.3). Every producer of a Job (submitPrompts,
// wizardctl retry) must call this rather than a wall-clock timestamp:
// jobs submitted more than about a second apart would otherwise collapse
// the priority ordering, since the nanosecond epoch dwarfs QueueScoreK.
func (q *Queue) NextSequence() int64 {
	return q.seq.Add(1)
}

// Restore reloads every persisted job from queue_jobs into the in-memory
// heap, intended to run once at startup, and seeds the sequence counter
// one past the highest sequence still queued so newly submitted jobs
// never sort ahead of work that was already waiting before the restart.
func (q *Queue) Restore(ctx context.Context) error {
	rows, err := q.durable.Conn().QueryContext(ctx,
		`SELECT session_id, prompt_id, priority, sequence, enqueue_time FROM queue_jobs`)
	if err != nil {
		return fmt.Errorf("restore queue: %w", err)
	}
	defer rows.Close()

	q.mu.Lock()
	defer q.mu.Unlock()

	q.heap = q.heap[:0]
	var maxSeq int64
	for rows.Next() {
		var j types.Job
		if err := rows.Scan(&j.SessionID, &j.PromptID, &j.Priority, &j.Sequence, &j.EnqueueTime); err != nil {
			return err
		}
		q.heap = append(q.heap, j)
		if j.Sequence > maxSeq {
			maxSeq = j.Sequence
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	heap.Init(&q.heap)
	q.seq.Store(maxSeq)
	return nil
}

// Enqueue adds a single job to the heap and persists it.
func (q *Queue) Enqueue(ctx context.Context, job types.Job) error {
	return q.EnqueueBatch(ctx, []types.Job{job})
}

// EnqueueBatch adds many jobs to the heap in one locked pass and persists
// all of them in a single transaction.
func (q *Queue) EnqueueBatch(ctx context.Context, jobs []types.Job) error {
	if len(jobs) == 0 {
		return nil
	}

	tx, err := q.durable.Conn().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, j := range jobs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO queue_jobs (session_id, prompt_id, priority, sequence, enqueue_time)
			VALUES (?, ?, ?, ?, ?)`,
			j.SessionID, j.PromptID, j.Priority, j.Sequence, j.EnqueueTime); err != nil {
			return fmt.Errorf("persist job %s/%s: %w", j.SessionID, j.PromptID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	for _, j := range jobs {
		heap.Push(&q.heap, j)
	}
	return nil
}

// Peek returns the lowest-score job without removing it. The second return
// value is false if the queue is empty.
func (q *Queue) Peek() (types.Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.heap) == 0 {
		return types.Job{}, false
	}
	return q.heap[0], true
}

// Pop removes and returns the lowest-score job, deleting its durable row.
func (q *Queue) Pop(ctx context.Context) (types.Job, bool, error) {
	q.mu.Lock()
	if len(q.heap) == 0 {
		q.mu.Unlock()
		return types.Job{}, false, nil
	}
	job := heap.Pop(&q.heap).(types.Job)
	q.mu.Unlock()

	if _, err := q.durable.Conn().ExecContext(ctx,
		`DELETE FROM queue_jobs WHERE session_id = ? AND prompt_id = ?`, job.SessionID, job.PromptID); err != nil {
		return job, true, fmt.Errorf("delete job row: %w", err)
	}
	return job, true, nil
}

// Remove drops every queued job for a session (used when a session is
// cancelled or expires mid-queue) and returns how many were removed.
func (q *Queue) Remove(ctx context.Context, sessionID string) (int, error) {
	q.mu.Lock()
	kept := q.heap[:0]
	removed := 0
	for _, j := range q.heap {
		if j.SessionID == sessionID {
			removed++
			continue
		}
		kept = append(kept, j)
	}
	q.heap = kept
	heap.Init(&q.heap)
	q.mu.Unlock()

	if _, err := q.durable.Conn().ExecContext(ctx,
		`DELETE FROM queue_jobs WHERE session_id = ?`, sessionID); err != nil {
		return removed, fmt.Errorf("delete session jobs: %w", err)
	}
	return removed, nil
}

// Size returns the current number of queued jobs.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.heap)
}

// Clear empties the heap and the durable table entirely.
func (q *Queue) Clear(ctx context.Context) error {
	q.mu.Lock()
	q.heap = nil
	q.mu.Unlock()

	_, err := q.durable.Conn().ExecContext(ctx, `DELETE FROM queue_jobs`)
	return err
}

// jobHeap implements container/heap.Interface over types.Job, ordering by
// Score() ascending — lower score pops first.
type jobHeap []types.Job

func (h jobHeap) Len() int            { return len(h) }
func (h jobHeap) Less(i, j int) bool  { return h[i].Score() < h[j].Score() }
func (h jobHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *jobHeap) Push(x any)         { *h = append(*h, x.(types.Job)) }
func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
