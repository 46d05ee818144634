// Command wizardctl is the operator CLI for the document wizard engine: a
// thin wrapper over the same Go API the HTTP server calls, for the actions
// the engine never takes automatically (retry, skip, resolve-clarifications,
// cleanup).
package main

import (
	"fmt"
	"os"

	"github.com/docwizard/engine/cmd/wizardctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
