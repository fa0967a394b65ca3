package ports

import "context"

// Result is the captured outcome of a finished process.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Invoker runs external commands, locally or on a remote host.
type Invoker interface {
	// Run waits for the command to exit. A launch failure is returned as an
	// error wrapping domain.ErrProcessLaunchFailed; a non-zero exit is not.
	Run(ctx context.Context, name string, args ...string) (Result, error)
	// Stream returns stdout line by line. The channel is closed when the
	// process exits or ctx is cancelled, which also kills the process.
	Stream(ctx context.Context, name string, args ...string) (<-chan string, error)
}
