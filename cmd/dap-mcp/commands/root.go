// Package commands implements the dap-mcp command line.
package commands

import (
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/dapcore/runtime/core"
	"github.com/dapcore/runtime/debugger"
)

var (
	transportMode string
	addr          string
	adapterCmd    string
	logLevel      string
	logFormat     string
)

var rootCmd = &cobra.Command{
	Use:   "dap-mcp",
	Short: "Expose a debug adapter runtime as MCP tools",
	Long: `dap-mcp runs an MCP server whose tools drive a debug adapter runtime:
start a session, set breakpoints, step, inspect stack and variables, and
evaluate expressions, all through the Model Context Protocol instead of a
DAP client UI.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	rootCmd.Flags().StringVar(&transportMode, "transport", "stdio", "MCP transport: stdio or sse")
	rootCmd.Flags().StringVar(&addr, "addr", ":8080", "listen address for sse transport")
	rootCmd.Flags().StringVar(&adapterCmd, "adapter-cmd", "dlv", "debug adapter executable spawned for each debug session")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.Flags().StringVar(&logFormat, "log-format", "text", "log format: text or json")
}

// Execute runs the dap-mcp root command.
func Execute() error {
	return rootCmd.Execute()
}

func runServe(cmd *cobra.Command, args []string) error {
	log := core.NewLogger(core.LogConfig{Level: logLevel, Format: logFormat})
	dbg := debugger.New(log)

	server := mcp.NewServer(&mcp.Implementation{Name: "dap-mcp", Version: "v1.0.0"}, nil)
	registerTools(server, dbg, adapterCmd, log)

	switch transportMode {
	case "stdio":
		return server.Run(cmd.Context(), mcp.NewStdioTransport())
	case "sse":
		getServer := func(*http.Request) *mcp.Server { return server }
		log.Info("listening", "addr", addr)
		return http.ListenAndServe(addr, mcp.NewSSEHandler(getServer))
	default:
		return fmt.Errorf("unknown transport mode %q (expected 'stdio' or 'sse')", transportMode)
	}
}
