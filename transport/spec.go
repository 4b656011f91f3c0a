package transport

// Kind selects how an adapter process is launched and connected.
type Kind int

const (
	// Stdio attaches to the spawned child's stdin/stdout directly.
	Stdio Kind = iota
	// Server spawns the child, watches its stdout for a connect address,
	// then dials a TCP connection to it. The child stays alive until the
	// connection closes.
	Server
)

func (k Kind) String() string {
	switch k {
	case Stdio:
		return "stdio"
	case Server:
		return "server"
	default:
		return "unknown"
	}
}

// ConnectCondition inspects accumulated stdout bytes from a Server-mode
// adapter and reports the address to dial once it can be determined. It is
// called again with a growing buffer after every chunk read until it
// returns ok=true. Generalizes the common "scan the child's stdout for a
// listening-address banner" pattern into an injectable predicate so
// callers aren't stuck with one adapter's log format.
type ConnectCondition func(buffered []byte) (addr string, ok bool)

// AdapterSpec describes how to launch and connect to a debug adapter
// process.
type AdapterSpec struct {
	Kind Kind
	// Command and Args spawn the adapter process.
	Command string
	Args    []string
	// Env, if non-nil, replaces the child's environment entirely (as
	// os/exec.Cmd.Env does); nil inherits the current process's
	// environment.
	Env []string
	// ConnectCondition is required when Kind == Server.
	ConnectCondition ConnectCondition
}
