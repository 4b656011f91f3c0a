// Command dap-mcp exposes a debug adapter runtime as a set of MCP tools:
// start a session, set breakpoints, step, inspect stack and variables, and
// evaluate expressions, all through the Model Context Protocol instead of
// a DAP client UI.
package main

import (
	"fmt"
	"os"

	"github.com/dapcore/runtime/cmd/dap-mcp/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
