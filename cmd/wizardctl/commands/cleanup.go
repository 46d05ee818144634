package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Manually sweep expired sessions",
	Long: `cleanup runs the same expired-session sweep the Scheduler's cleanup
loop runs on its timer, on demand — useful when an operator doesn't want to
wait for the next tick.`,
	RunE: runCleanup,
}

func runCleanup(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	n, err := eng.sessions.CleanupExpired(cmd.Context())
	if err != nil {
		return fmt.Errorf("cleanup expired sessions: %w", err)
	}

	fmt.Printf("Cleaned up %d expired session(s)\n", n)
	return nil
}
