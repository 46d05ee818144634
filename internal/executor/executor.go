// Package executor implements the per-job pipeline: for one dequeued Job
// it loads the Prompt and its session's Files, accumulates prior results,
// asks the Chunking Planner for an execution plan, drives the LLM Gateway
// through that plan, assembles the combined output, and runs uncertainty
// detection over it, per spec.md §4.5.
package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/docwizard/engine/internal/chunking"
	"github.com/docwizard/engine/internal/clarify"
	"github.com/docwizard/engine/internal/contextbuilder"
	"github.com/docwizard/engine/internal/conversation"
	"github.com/docwizard/engine/internal/event"
	"github.com/docwizard/engine/internal/filestore"
	"github.com/docwizard/engine/internal/promptstore"
	"github.com/docwizard/engine/internal/provider"
	"github.com/docwizard/engine/internal/result"
	"github.com/docwizard/engine/internal/sessionstore"
	"github.com/docwizard/engine/pkg/types"
)

// Executor runs one Job's pipeline to completion or failure.
type Executor struct {
	prompts   *promptstore.Store
	files     *filestore.Store
	log       *conversation.Log
	sessions  *sessionstore.Store
	gateway   *provider.Gateway
	assembler *result.Assembler
	logger    zerolog.Logger
}

// Config bundles the collaborators an Executor is built from.
type Config struct {
	Prompts   *promptstore.Store
	Files     *filestore.Store
	Log       *conversation.Log
	Sessions  *sessionstore.Store
	Gateway   *provider.Gateway
	Assembler *result.Assembler
	Logger    zerolog.Logger
}

// New creates an Executor from its collaborators.
func New(cfg Config) *Executor {
	return &Executor{
		prompts:   cfg.Prompts,
		files:     cfg.Files,
		log:       cfg.Log,
		sessions:  cfg.Sessions,
		gateway:   cfg.Gateway,
		assembler: cfg.Assembler,
		logger:    cfg.Logger.With().Str("component", "executor").Logger(),
	}
}

// Run executes one Job's pipeline. Any failure marks the owning prompt
// FAILED and the session FAILED; the Scheduler does not retry automatically
// (spec.md §4.5 failure policy).
func (e *Executor) Run(ctx context.Context, job types.Job) error {
	if err := e.run(ctx, job); err != nil {
		e.fail(ctx, job.SessionID, job.PromptID, err)
		return err
	}
	return nil
}

func (e *Executor) run(ctx context.Context, job types.Job) error {
	prompt, err := e.prompts.GetPrompt(ctx, job.PromptID)
	if err != nil {
		return fmt.Errorf("load prompt: %w", err)
	}
	if prompt == nil {
		return fmt.Errorf("prompt %s not found", job.PromptID)
	}

	files, err := e.files.ListBySession(ctx, job.SessionID)
	if err != nil {
		return fmt.Errorf("load session files: %w", err)
	}

	previousResults, err := e.previousResultTexts(ctx, job.SessionID, prompt.Priority)
	if err != nil {
		return fmt.Errorf("collect previous results: %w", err)
	}

	model, err := e.gateway.ResolvedModelWindow(ctx, "")
	if err != nil {
		return fmt.Errorf("resolve model: %w", err)
	}

	built, err := contextbuilder.Build(prompt, files, previousResults)
	if err != nil {
		return fmt.Errorf("build context: %w", err)
	}

	plan := chunking.PlanFor(prompt.TargetType, built.SystemPrompt, toChunkingFileTexts(built.FileTexts), model.ContextWindow)

	combined, err := e.executePlan(ctx, job, prompt, built.SystemPrompt, plan, files)
	if err != nil {
		return fmt.Errorf("execute plan: %w", err)
	}

	if err := e.prompts.SetResult(ctx, prompt.ID, combined); err != nil {
		return fmt.Errorf("persist result: %w", err)
	}

	if _, err := clarify.RaiseQuestions(ctx, e.log, job.SessionID, prompt.ID, combined); err != nil {
		return fmt.Errorf("raise clarifications: %w", err)
	}

	return e.evaluateSessionTransition(ctx, job.SessionID)
}

// executePlan runs every chunk in the plan against the Gateway in order,
// combining outputs per spec.md §4.9's two shapes.
func (e *Executor) executePlan(ctx context.Context, job types.Job, prompt *types.Prompt, systemPrompt string, plan chunking.Plan, files []*types.File) (string, error) {
	fileNames := make(map[string]string, len(files))
	for _, f := range files {
		fileNames[f.ID] = f.OriginalName
	}

	switch plan.Kind {
	case chunking.PlanSingleCall:
		out, err := e.call(ctx, job, prompt, systemPrompt, plan.Chunks[0].Text, nil)
		if err != nil {
			return "", err
		}
		return out, nil

	case chunking.PlanPerFileSequential:
		var priorOutputs []string
		var fileOutputs []result.FileOutput
		for _, c := range plan.Chunks {
			out, err := e.call(ctx, job, prompt, systemPrompt, c.Text, priorOutputs)
			if err != nil {
				return "", err
			}
			priorOutputs = append(priorOutputs, out)
			fileOutputs = append(fileOutputs, result.FileOutput{Filename: fileNames[c.FileID], Output: out})
		}
		return result.CombineFiles(fileOutputs), nil

	case chunking.PlanPerFileSubChunked:
		var priorOutputs []string
		var fileOutputs []result.FileOutput
		currentFileID := ""
		var currentFileChunks []string
		flush := func() {
			if currentFileID == "" {
				return
			}
			fileOutputs = append(fileOutputs, result.FileOutput{
				Filename: fileNames[currentFileID],
				Output:   result.CombineChunks(currentFileChunks),
			})
		}
		for _, c := range plan.Chunks {
			if c.FileID != currentFileID {
				flush()
				currentFileID = c.FileID
				currentFileChunks = nil
				priorOutputs = nil
			}
			out, err := e.call(ctx, job, prompt, systemPrompt, c.Text, priorOutputs)
			if err != nil {
				return "", err
			}
			currentFileChunks = append(currentFileChunks, out)
			priorOutputs = append(priorOutputs, out)
		}
		flush()
		return result.CombineFiles(fileOutputs), nil

	default:
		return "", fmt.Errorf("unknown plan kind %q", plan.Kind)
	}
}

// call issues one Gateway completion, logs it to the Conversation Log, and
// publishes a model_result event.
func (e *Executor) call(ctx context.Context, job types.Job, prompt *types.Prompt, systemPrompt, chunkText string, priorOutputs []string) (string, error) {
	userPrompt := prompt.Content
	if chunkText != "" {
		userPrompt = fmt.Sprintf("%s\n\n# Content\n%s", prompt.Content, chunkText)
	}
	if len(priorOutputs) > 0 {
		userPrompt = fmt.Sprintf("%s\n\n# Prior parts already produced\n%s", userPrompt, strings.Join(priorOutputs, "\n\n"))
	}

	start := time.Now()
	res, err := e.gateway.Complete(ctx, "", &provider.CompletionRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
	})
	if err != nil {
		return "", fmt.Errorf("gateway call: %w", err)
	}
	elapsed := time.Since(start)

	if _, err := e.log.Append(ctx, job.SessionID, types.MessageGeneral, types.RoleAssistant, res.Content,
		map[string]any{"promptId": prompt.ID, "tokensUsed": res.TokensUsed, "processingTimeMs": elapsed.Milliseconds()}, ""); err != nil {
		return "", fmt.Errorf("append conversation message: %w", err)
	}

	event.PublishSync(event.Event{Type: event.ModelResult, Data: event.Envelope{
		SessionID: job.SessionID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      event.ModelResultData{PromptID: prompt.ID, Provider: res.Provider, Model: res.Model, Content: res.Content},
	}})

	return res.Content, nil
}

// previousResultTexts extracts result text, in order, from every
// lower-priority COMPLETED prompt in the session (spec.md §4.5 step 2).
func (e *Executor) previousResultTexts(ctx context.Context, sessionID string, priority int) ([]string, error) {
	completed, err := e.prompts.CompletedBelowPriority(ctx, sessionID, priority)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(completed))
	for _, p := range completed {
		if p.Result != "" {
			out = append(out, p.Result)
		}
	}
	return out, nil
}

// EvaluateSessionTransition re-checks whether a session can now complete.
// Besides being called internally after a prompt finishes, the server
// calls it after a clarification response in case that response was the
// session's last pending blocker.
func (e *Executor) EvaluateSessionTransition(ctx context.Context, sessionID string) error {
	return e.evaluateSessionTransition(ctx, sessionID)
}

// evaluateSessionTransition re-checks the session's completion condition
// after a prompt finishes, per spec.md §4.5 step 9.
func (e *Executor) evaluateSessionTransition(ctx context.Context, sessionID string) error {
	all, err := e.prompts.ListBySession(ctx, sessionID)
	if err != nil {
		return err
	}

	anyFailed := false
	allCompleted := true
	for _, p := range all {
		switch p.Status {
		case types.PromptFailed:
			anyFailed = true
		case types.PromptCompleted, types.PromptSkipped:
			// counts toward completion
		default:
			allCompleted = false
		}
	}

	switch {
	case anyFailed:
		return e.sessions.UpdateStatus(ctx, sessionID, types.SessionFailed)
	case allCompleted:
		pending, err := clarify.HasPending(ctx, e.log, sessionID)
		if err != nil {
			return err
		}
		if pending {
			return nil
		}
		if err := e.sessions.UpdateStatus(ctx, sessionID, types.SessionCompleted); err != nil {
			return err
		}

		res, err := e.finalizeResult(ctx, sessionID, all)
		if err != nil {
			return fmt.Errorf("finalize result: %w", err)
		}

		event.PublishSync(event.Event{Type: event.Completed, Data: event.Envelope{
			SessionID: sessionID,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Data:      event.CompletedData{ResultID: res.ID, Version: res.Version},
		}})
		return nil
	default:
		return nil
	}
}

// finalizeResult combines every COMPLETED (non-SKIPPED) prompt's result, in
// execution order, into one versioned session Result, per spec.md §4.9 and
// the data-flow note "on completion, Result Assembler finalizes version".
func (e *Executor) finalizeResult(ctx context.Context, sessionID string, prompts []*types.Prompt) (*types.Result, error) {
	var outputs []result.FileOutput
	promptCount := 0
	for _, p := range prompts {
		if p.Status != types.PromptCompleted {
			continue
		}
		promptCount++
		label := p.Content
		if len(label) > 60 {
			label = label[:60] + "…"
		}
		outputs = append(outputs, result.FileOutput{Filename: label, Output: p.Result})
	}

	content := result.CombineFiles(outputs)
	return e.assembler.Persist(ctx, sessionID, content, promptCount, time.Now().UnixMilli())
}

// fail marks the owning prompt FAILED, the session FAILED, and emits an
// error event. It does not return an error itself: failure handling is
// best-effort once the pipeline has already failed.
func (e *Executor) fail(ctx context.Context, sessionID, promptID string, cause error) {
	if err := e.prompts.SetFailed(ctx, promptID, cause.Error()); err != nil {
		e.logger.Error().Err(err).Str("prompt", promptID).Msg("failed to mark prompt FAILED")
	}
	if err := e.sessions.UpdateStatus(ctx, sessionID, types.SessionFailed); err != nil {
		e.logger.Error().Err(err).Str("session", sessionID).Msg("failed to mark session FAILED")
	}
	event.PublishSync(event.Event{Type: event.Failed, Data: event.Envelope{
		SessionID: sessionID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      event.ErrorData{PromptID: promptID, Message: cause.Error()},
	}})
}

func toChunkingFileTexts(in []contextbuilder.FileText) []chunking.FileText {
	out := make([]chunking.FileText, len(in))
	for i, f := range in {
		out[i] = chunking.FileText{FileID: f.FileID, Text: f.Text}
	}
	return out
}
