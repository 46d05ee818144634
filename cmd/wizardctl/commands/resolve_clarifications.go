package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docwizard/engine/internal/clarify"
)

var resolveClarificationsCmd = &cobra.Command{
	Use:   "resolve-clarifications <sessionID> <clarificationID...>",
	Short: "Mark one or more pending clarifications resolved without a response",
	Long: `resolve-clarifications lets an operator unblock a session stuck on
clarifications nobody is going to answer, marking each given clarification
message resolved so the session can proceed past it.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runResolveClarifications,
}

func runResolveClarifications(cmd *cobra.Command, args []string) error {
	sessionID := args[0]
	clarificationIDs := args[1:]

	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()
	ctx := cmd.Context()

	sess, err := eng.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		return fmt.Errorf("session %s not found", sessionID)
	}

	if err := clarify.MarkResolved(ctx, eng.conv, sessionID, clarificationIDs); err != nil {
		return fmt.Errorf("mark resolved: %w", err)
	}

	fmt.Printf("Resolved %d clarification(s) for session %s\n", len(clarificationIDs), sessionID)
	return nil
}
