// Package chunking implements the Chunking Planner: it decides, for one
// Prompt and its Session's files, whether a single Gateway call suffices or
// the work must be split across files and/or sub-chunks, per spec.md §4.6.
package chunking

import (
	"github.com/docwizard/engine/pkg/types"
)

// Constants from spec.md §4.6.
const (
	SafeFraction           = 0.8
	PerFileContentFraction = 0.6
	ChunkOverlapChars      = 500
	// FallbackCharThreshold is used when the model's context window is
	// unknown (spec.md §4.6 fallback).
	FallbackCharThreshold = 100_000
	charsPerToken         = 4
)

// PlanKind distinguishes the three execution shapes a Plan can take.
type PlanKind string

const (
	PlanSingleCall       PlanKind = "SINGLE_CALL"
	PlanPerFileSequential PlanKind = "PER_FILE_SEQUENTIAL"
	PlanPerFileSubChunked PlanKind = "PER_FILE_SUB_CHUNKED"
)

// Chunk is one unit of content to send to the LLM Gateway in sequence.
type Chunk struct {
	FileID  string // empty for a single-call plan with no per-file split
	Text    string
	IsFirst bool
	IsLast  bool
}

// Plan is the Chunking Planner's output: an ordered sequence of calls to
// make, each carrying its own content chunk.
type Plan struct {
	Kind   PlanKind
	Chunks []Chunk
}

// EstimateTokens estimates a token count from character count as
// ceil(chars/4), the char/4 ratio spec.md §9 open question 1 fixes as the
// estimation contract.
func EstimateTokens(text string) int {
	n := len(text)
	if n == 0 {
		return 0
	}
	return (n + charsPerToken - 1) / charsPerToken
}

// PlanFor builds an execution plan for a GLOBAL-targeted prompt spanning every
// file in the session, or a single-file plan for FILE_SPECIFIC,
// LINE_SPECIFIC, and SECTION_SPECIFIC targeting (which always address one
// file's content already narrowed to the relevant slice by the caller).
func PlanFor(targetType types.TargetType, systemPrompt string, fileTexts []FileText, contextWindow int) Plan {
	safeThresholdChars := safeCharThreshold(contextWindow)

	totalChars := len(systemPrompt)
	for _, f := range fileTexts {
		totalChars += len(f.Text)
	}

	if totalChars <= safeThresholdChars {
		var combined string
		for i, f := range fileTexts {
			if i > 0 {
				combined += "\n\n"
			}
			combined += f.Text
		}
		return Plan{Kind: PlanSingleCall, Chunks: []Chunk{{Text: combined, IsFirst: true, IsLast: true}}}
	}

	if targetType != types.TargetGlobal {
		return subChunkPlan(fileTexts, contextWindow)
	}

	var chunks []Chunk
	needsSubChunking := false
	for _, f := range fileTexts {
		if len(f.Text) > safeThresholdChars {
			needsSubChunking = true
			break
		}
	}
	if needsSubChunking {
		return subChunkPlan(fileTexts, contextWindow)
	}

	for i, f := range fileTexts {
		chunks = append(chunks, Chunk{
			FileID:  f.FileID,
			Text:    f.Text,
			IsFirst: i == 0,
			IsLast:  i == len(fileTexts)-1,
		})
	}
	return Plan{Kind: PlanPerFileSequential, Chunks: chunks}
}

// FileText is one File's plain text, pre-sliced to whatever the prompt's
// targeting contract selects (whole document, one line range, one
// section).
type FileText struct {
	FileID string
	Text   string
}

// subChunkPlan splits every oversized file's text into overlapping windows
// sized to PerFileContentFraction of the window, advancing the window
// strictly monotonically per spec.md §4.6 ("if end - overlap <= start,
// stop to prevent an infinite loop").
func subChunkPlan(fileTexts []FileText, contextWindow int) Plan {
	windowChars := perFileWindowChars(contextWindow)

	var chunks []Chunk
	for _, f := range fileTexts {
		fileChunks := splitWithOverlap(f.Text, windowChars, ChunkOverlapChars)
		for i, c := range fileChunks {
			chunks = append(chunks, Chunk{
				FileID:  f.FileID,
				Text:    c,
				IsFirst: i == 0,
				IsLast:  i == len(fileChunks)-1,
			})
		}
	}
	return Plan{Kind: PlanPerFileSubChunked, Chunks: chunks}
}

// splitWithOverlap splits text into windows of at most windowSize
// characters, each overlapping the previous by overlap characters.
func splitWithOverlap(text string, windowSize, overlap int) []string {
	if len(text) <= windowSize {
		return []string{text}
	}

	var out []string
	start := 0
	for start < len(text) {
		end := start + windowSize
		if end > len(text) {
			end = len(text)
		}
		out = append(out, text[start:end])
		if end >= len(text) {
			break
		}
		next := end - overlap
		if next <= start {
			break
		}
		start = next
	}
	return out
}

func safeCharThreshold(contextWindow int) int {
	if contextWindow <= 0 {
		return FallbackCharThreshold
	}
	return int(SafeFraction * float64(contextWindow) * charsPerToken)
}

func perFileWindowChars(contextWindow int) int {
	if contextWindow <= 0 {
		return int(PerFileContentFraction * float64(FallbackCharThreshold))
	}
	return int(PerFileContentFraction * float64(contextWindow) * charsPerToken)
}
