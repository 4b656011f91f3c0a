package commands

import (
	"bytes"
	"strings"

	"github.com/dapcore/runtime/transport"
)

// dlvConnectCondition waits for Delve's own banner line and dials the
// address it reports, rather than assuming the requested --listen port
// was free and honored verbatim.
func dlvConnectCondition() transport.ConnectCondition {
	const marker = "DAP server listening at: "
	return func(buffered []byte) (string, bool) {
		idx := bytes.Index(buffered, []byte(marker))
		if idx < 0 {
			return "", false
		}
		rest := string(buffered[idx+len(marker):])
		end := strings.IndexAny(rest, "\r\n")
		if end < 0 {
			return "", false
		}
		return strings.TrimSpace(rest[:end]), true
	}
}

// adapterSpec describes how dap-mcp launches one dlv dap server per debug
// session. It always asks for an ephemeral port and lets
// dlvConnectCondition recover whatever address Delve actually bound.
func adapterSpec(command string) transport.AdapterSpec {
	return transport.AdapterSpec{
		Kind:             transport.Server,
		Command:          command,
		Args:             []string{"dap", "--listen", "127.0.0.1:0"},
		ConnectCondition: dlvConnectCondition(),
	}
}

// dlvLaunchBody builds the launch/attach request body Delve's DAP
// implementation expects for each of the three debug modes dap-mcp
// supports.
func dlvLaunchBody(mode, path string, args []string, processID int, stopOnEntry bool) map[string]any {
	switch mode {
	case "source":
		return map[string]any{"mode": "debug", "program": path, "args": args, "stopOnEntry": stopOnEntry}
	case "binary":
		return map[string]any{"mode": "exec", "program": path, "args": args, "stopOnEntry": stopOnEntry}
	default: // "attach"
		return map[string]any{"mode": "local", "processId": processID, "stopOnEntry": stopOnEntry}
	}
}
