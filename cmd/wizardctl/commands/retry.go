package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/docwizard/engine/pkg/types"
)

var retryCmd = &cobra.Command{
	Use:   "retry <promptID>",
	Short: "Re-queue a FAILED prompt as a new PENDING prompt",
	Long: `Retry creates a new prompt carrying the same content and targeting as the
given prompt, linked back to it via RetryOf, and enqueues it for the
Scheduler to pick up. The original prompt is left untouched in the
conversation history.`,
	Args: cobra.ExactArgs(1),
	RunE: runRetry,
}

func runRetry(cmd *cobra.Command, args []string) error {
	promptID := args[0]

	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()
	ctx := cmd.Context()

	original, err := eng.prompts.GetPrompt(ctx, promptID)
	if err != nil {
		return fmt.Errorf("load prompt: %w", err)
	}
	if original == nil {
		return fmt.Errorf("prompt %s not found", promptID)
	}
	if original.Status != types.PromptFailed {
		return fmt.Errorf("prompt %s is %s, not FAILED", promptID, original.Status)
	}

	draft := &types.Prompt{
		Content:       original.Content,
		Priority:      original.Priority,
		TargetType:    original.TargetType,
		TargetFileID:  original.TargetFileID,
		TargetLines:   original.TargetLines,
		TargetSection: original.TargetSection,
		RetryOf:       original.ID,
	}

	created, err := eng.prompts.CreatePrompts(ctx, original.SessionID, []*types.Prompt{draft})
	if err != nil {
		return fmt.Errorf("create retry prompt: %w", err)
	}
	retried := created[0]

	if err := eng.queue.Enqueue(ctx, types.Job{
		SessionID:   retried.SessionID,
		PromptID:    retried.ID,
		Priority:    retried.Priority,
		Sequence:    eng.queue.NextSequence(),
		EnqueueTime: time.Now().UnixMilli(),
	}); err != nil {
		return fmt.Errorf("enqueue retry job: %w", err)
	}

	fmt.Printf("Retrying prompt %s as %s (session %s)\n", promptID, retried.ID, retried.SessionID)
	return nil
}
