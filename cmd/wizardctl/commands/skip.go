package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var skipCmd = &cobra.Command{
	Use:   "skip <promptID> <reason>",
	Short: "Mark a prompt SKIPPED",
	Long: `Skip marks a prompt SKIPPED with an operator-supplied reason. Per the
engine's design, SKIPPED is reserved for operator action alone — the engine
never sets it automatically.`,
	Args: cobra.ExactArgs(2),
	RunE: runSkip,
}

func runSkip(cmd *cobra.Command, args []string) error {
	promptID, reason := args[0], args[1]

	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()
	ctx := cmd.Context()

	prompt, err := eng.prompts.GetPrompt(ctx, promptID)
	if err != nil {
		return fmt.Errorf("load prompt: %w", err)
	}
	if prompt == nil {
		return fmt.Errorf("prompt %s not found", promptID)
	}

	if err := eng.prompts.Skip(ctx, promptID, reason); err != nil {
		return fmt.Errorf("skip prompt: %w", err)
	}

	fmt.Printf("Skipped prompt %s: %s\n", promptID, reason)
	return nil
}
