package types

// Job is the ephemeral priority-queue element that schedules one Prompt's
// execution. It holds weak references (IDs only) into the Session and
// Prompt Stores rather than embedding their data, so the queue stays cheap
// to persist and never goes stale relative to the stores it points at.
type Job struct {
	SessionID string `json:"sessionID"`
	PromptID  string `json:"promptID"`
	Priority  int    `json:"priority"`
	// Sequence is the monotonically increasing submission counter used as
	// the tie-breaker term in the priority score (spec.md §4.3:
	// score = priority*K + sequence), guaranteeing FIFO order among jobs
	// of equal priority.
	Sequence    int64 `json:"sequence"`
	EnqueueTime int64 `json:"enqueueTime"`
}

// QueueScoreK is the multiplier applied to Priority before adding Sequence,
// chosen large enough that no realistic backlog depth lets a higher-priority
// job's sequence term cross into the next priority band.
const QueueScoreK = 1_000_000_000

// Score computes the ordering key used by the priority queue's heap. Lower
// scores are popped first: per spec.md's glossary, a lower Priority value
// means earlier execution, and within the same Priority, lower Sequence
// (older) must sort first.
func (j Job) Score() int64 {
	return int64(j.Priority)*QueueScoreK + j.Sequence
}
