package process

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/melih/dockerbar/internal/core/domain"
	"github.com/melih/dockerbar/internal/core/ports"
	"github.com/melih/dockerbar/internal/lines"
)

// waitDelay bounds how long Wait blocks on output pipes still held open by
// grandchildren after the child itself was killed.
const waitDelay = 2 * time.Second

// Invoker implements ports.Invoker with local child processes.
type Invoker struct {
	env []string
	log logrus.FieldLogger
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithPath prepends dirs to the PATH seen by child processes.
func WithPath(dirs ...string) Option {
	return func(inv *Invoker) {
		if len(dirs) == 0 {
			return
		}
		current := lookup(inv.env, "PATH")
		parts := append([]string(nil), dirs...)
		if current != "" {
			parts = append(parts, current)
		}
		inv.env = setEnv(inv.env, "PATH", strings.Join(parts, string(filepath.ListSeparator)))
	}
}

// WithEnv sets variables for child processes, overriding inherited ones.
func WithEnv(vars map[string]string) Option {
	return func(inv *Invoker) {
		for k, v := range vars {
			inv.env = setEnv(inv.env, k, v)
		}
	}
}

// NewInvoker creates an Invoker that inherits the current environment.
func NewInvoker(log logrus.FieldLogger, opts ...Option) *Invoker {
	inv := &Invoker{
		env: os.Environ(),
		log: log.WithField("component", "invoker"),
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Run executes the command and waits for it to exit.
func (inv *Invoker) Run(ctx context.Context, name string, args ...string) (ports.Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = inv.env
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	inv.log.WithField("cmd", name).Debugf("Running %v", args)
	if err := cmd.Start(); err != nil {
		return ports.Result{}, errors.Wrapf(domain.ErrProcessLaunchFailed, "%s: %v", name, err)
	}

	err := cmd.Wait()
	res := ports.Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return res, errors.Wrapf(err, "wait for %s", name)
		}
		res.ExitCode = exitErr.ExitCode()
		inv.log.WithFields(logrus.Fields{
			"cmd":       name,
			"exit_code": res.ExitCode,
		}).Debugf("Process exited with error: %s", strings.TrimSpace(stderr.String()))
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, errors.Wrapf(ctxErr, "%s", name)
	}
	return res, nil
}

// Stream starts the command and returns its stdout line by line.
func (inv *Invoker) Stream(ctx context.Context, name string, args ...string) (<-chan string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = inv.env
	cmd.WaitDelay = waitDelay

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrapf(domain.ErrProcessLaunchFailed, "%s: %v", name, err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(domain.ErrProcessLaunchFailed, "%s: %v", name, err)
	}
	inv.log.WithField("cmd", name).Debugf("Streaming %v (pid %d)", args, cmd.Process.Pid)

	out := make(chan string)
	go func() {
		defer close(out)
		entry := inv.log.WithField("cmd", name)
		if err := lines.Copy(ctx, stdout, out, entry); err != nil && ctx.Err() == nil {
			entry.WithError(err).Warn("Failed to read stream")
		}
		if ctx.Err() == nil {
			// Wait closes the pipe, so anything left unread is drained first.
			_, _ = io.Copy(io.Discard, stdout)
		}
		err := cmd.Wait()
		if err != nil && ctx.Err() == nil {
			entry.WithError(err).Warnf("Stream ended: %s", strings.TrimSpace(stderr.String()))
			return
		}
		entry.Debug("Stream ended")
	}()

	return out, nil
}

func lookup(env []string, key string) string {
	prefix := key + "="
	for i := len(env) - 1; i >= 0; i-- {
		if strings.HasPrefix(env[i], prefix) {
			return env[i][len(prefix):]
		}
	}
	return ""
}

func setEnv(env []string, key, value string) []string {
	prefix := key + "="
	out := env[:0:0]
	for _, kv := range env {
		if !strings.HasPrefix(kv, prefix) {
			out = append(out, kv)
		}
	}
	return append(out, prefix+value)
}
