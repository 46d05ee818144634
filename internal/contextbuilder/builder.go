// Package contextbuilder assembles the system prompt and per-file content the
// Executor plans chunks from: the slice of File content the current Prompt's
// targeting contract selects, and the results of every lower-priority
// COMPLETED prompt in the same session folded into the system prompt, per
// spec.md §4.5 steps 1-2 and §4.6's "content + systemPrompt" input. The
// Prompt's instruction itself is added to each user prompt by the Executor.
//
// The assembly order mirrors the teacher's ContextBuilder.Build: system
// material first, accumulated prior context next, then the current turn.
package contextbuilder

import (
	"fmt"
	"strings"

	"github.com/docwizard/engine/pkg/types"
)

// Built is the assembled context ready to hand to the Chunking Planner.
type Built struct {
	SystemPrompt string
	// FileTexts is the targeting-resolved content for every file this
	// prompt's targetType selects, in file order.
	FileTexts []FileText
}

// FileText pairs a file id with the slice of its content the prompt's
// targeting contract selects.
type FileText struct {
	FileID string
	Text   string
}

const defaultSystemPrompt = "You are a document-processing assistant. Follow the instruction precisely and produce well-formed markdown output."

// Build resolves targeting and assembles the system prompt and per-file
// content slices for one Prompt against its session's Files.
//
// previousResults is the ordered list of lower-priority COMPLETED prompts'
// results (per spec.md §4.5 step 2); it is folded into the system prompt so
// every chunk call the Chunking Planner later schedules carries the same
// accumulated context.
func Build(prompt *types.Prompt, files []*types.File, previousResults []string) (Built, error) {
	sys := defaultSystemPrompt
	if len(previousResults) > 0 {
		var b strings.Builder
		b.WriteString(sys)
		b.WriteString("\n\n# Prior results from earlier instructions in this session\n")
		for i, r := range previousResults {
			fmt.Fprintf(&b, "\n## Result %d\n%s\n", i+1, r)
		}
		sys = b.String()
	}

	targets, err := resolveTargets(prompt, files)
	if err != nil {
		return Built{}, err
	}

	return Built{SystemPrompt: sys, FileTexts: targets}, nil
}

// resolveTargets applies the prompt's targeting contract to the session's
// files, returning the selected text slice per file in file order.
func resolveTargets(prompt *types.Prompt, files []*types.File) ([]FileText, error) {
	switch prompt.TargetType {
	case types.TargetGlobal:
		out := make([]FileText, 0, len(files))
		for _, f := range files {
			out = append(out, FileText{FileID: f.ID, Text: f.PlainText})
		}
		return out, nil

	case types.TargetFileSpecific:
		f := findFile(files, prompt.TargetFileID)
		if f == nil {
			return nil, fmt.Errorf("contextbuilder: target file %q not found in session", prompt.TargetFileID)
		}
		return []FileText{{FileID: f.ID, Text: f.PlainText}}, nil

	case types.TargetLineSpecific:
		f := findFile(files, prompt.TargetFileID)
		if f == nil {
			return nil, fmt.Errorf("contextbuilder: target file %q not found in session", prompt.TargetFileID)
		}
		if prompt.TargetLines == nil {
			return nil, fmt.Errorf("contextbuilder: LINE_SPECIFIC prompt missing target lines")
		}
		text := sliceLines(f.PlainText, prompt.TargetLines.Start, prompt.TargetLines.End)
		return []FileText{{FileID: f.ID, Text: text}}, nil

	case types.TargetSectionSpecific:
		// Only targetSection is required (pkg/types/prompt.go's
		// ValidateTargeting): the match is the first file, in session
		// order, containing a section whose title contains the target
		// string case-insensitively — not a lookup against a
		// pre-specified targetFileId.
		for _, f := range files {
			if sec := findSection(f.Sections, prompt.TargetSection); sec != nil {
				return []FileText{{FileID: f.ID, Text: sec.Content}}, nil
			}
		}
		return nil, fmt.Errorf("contextbuilder: no section matching %q in any file", prompt.TargetSection)

	default:
		return nil, fmt.Errorf("contextbuilder: unknown target type %q", prompt.TargetType)
	}
}

func findFile(files []*types.File, id string) *types.File {
	for _, f := range files {
		if f.ID == id {
			return f
		}
	}
	return nil
}

// findSection performs a case-insensitive substring match on section
// titles, per spec.md §3's targetSection contract.
func findSection(sections []types.Section, target string) *types.Section {
	lower := strings.ToLower(target)
	for i := range sections {
		if strings.Contains(strings.ToLower(sections[i].Title), lower) {
			return &sections[i]
		}
	}
	return nil
}

// sliceLines returns the 1-indexed, inclusive line range [start, end] of
// text. Out-of-range bounds are clamped rather than treated as errors,
// since upstream validation already guarantees 1 <= start <= end.
func sliceLines(text string, start, end int) string {
	lines := strings.Split(text, "\n")
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end || start > len(lines) {
		return ""
	}
	return strings.Join(lines[start-1:end], "\n")
}
