// Package ssh runs engine commands on a remote host over SSH.
package ssh

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/melih/dockerbar/internal/core/domain"
	"github.com/melih/dockerbar/internal/core/ports"
	"github.com/melih/dockerbar/internal/lines"
	"github.com/melih/dockerbar/internal/shell"
)

// Config describes the remote engine host.
type Config struct {
	User       string
	Host       string // host:port, port defaults to 22
	KeyPath    string
	KnownHosts string
	// InsecureIgnoreHostKey accepts any host key. KnownHosts is then unused.
	InsecureIgnoreHostKey bool
	Timeout               time.Duration
}

// Invoker implements ports.Invoker on top of a shared SSH connection.
// The connection is dialed lazily and re-dialed after a failure.
type Invoker struct {
	cfg    Config
	log    logrus.FieldLogger
	dialFn func(network, addr string, config *ssh.ClientConfig) (*ssh.Client, error)

	mu     sync.Mutex
	client *ssh.Client
}

// NewInvoker creates an Invoker for cfg. Nothing is dialed until first use.
func NewInvoker(cfg Config, log logrus.FieldLogger) *Invoker {
	if !strings.Contains(cfg.Host, ":") {
		cfg.Host = net.JoinHostPort(cfg.Host, "22")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Invoker{
		cfg:    cfg,
		log:    log.WithFields(logrus.Fields{"component": "ssh", "host": cfg.Host}),
		dialFn: ssh.Dial,
	}
}

// Close closes the SSH connection if one is open.
func (inv *Invoker) Close() error {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.client == nil {
		return nil
	}
	err := inv.client.Close()
	inv.client = nil
	return err
}

// Run executes the command on the remote host and waits for it to exit.
func (inv *Invoker) Run(ctx context.Context, name string, args ...string) (ports.Result, error) {
	session, err := inv.session()
	if err != nil {
		return ports.Result{}, err
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	command := shell.Join(name, args...)
	inv.log.Debugf("Running %s", command)
	if err := session.Start(command); err != nil {
		return ports.Result{}, errors.Wrapf(domain.ErrProcessLaunchFailed, "%s: %v", name, err)
	}

	done := make(chan error, 1)
	go func() { done <- session.Wait() }()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		_ = session.Close()
		return ports.Result{}, errors.Wrapf(ctx.Err(), "%s", name)
	case err = <-done:
	}

	res := ports.Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err != nil {
		var exitErr *ssh.ExitError
		if !errors.As(err, &exitErr) {
			inv.reset()
			return res, errors.Wrapf(err, "wait for %s", name)
		}
		res.ExitCode = exitErr.ExitStatus()
	}
	return res, nil
}

// Stream runs the command remotely and returns its stdout line by line.
func (inv *Invoker) Stream(ctx context.Context, name string, args ...string) (<-chan string, error) {
	session, err := inv.session()
	if err != nil {
		return nil, err
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		return nil, errors.Wrapf(domain.ErrProcessLaunchFailed, "%s: %v", name, err)
	}

	command := shell.Join(name, args...)
	if err := session.Start(command); err != nil {
		session.Close()
		return nil, errors.Wrapf(domain.ErrProcessLaunchFailed, "%s: %v", name, err)
	}
	inv.log.Debugf("Streaming %s", command)

	out := make(chan string)
	stop := context.AfterFunc(ctx, func() {
		_ = session.Signal(ssh.SIGKILL)
		_ = session.Close()
	})
	go func() {
		defer close(out)
		defer stop()
		defer session.Close()

		if err := lines.Copy(ctx, stdout, out, inv.log); err != nil {
			if ctx.Err() == nil {
				inv.log.WithError(err).Warnf("Failed to read remote stream: %s", command)
			}
			return
		}
		if err := session.Wait(); err != nil && ctx.Err() == nil {
			inv.log.WithError(err).Warnf("Remote stream ended: %s", command)
		}
	}()

	return out, nil
}

func (inv *Invoker) session() (*ssh.Session, error) {
	client, err := inv.connect()
	if err != nil {
		return nil, err
	}
	session, err := client.NewSession()
	if err != nil {
		// The connection is likely dead; dial again next time.
		inv.reset()
		return nil, errors.Wrapf(domain.ErrProcessLaunchFailed, "open ssh session: %v", err)
	}
	return session, nil
}

func (inv *Invoker) connect() (*ssh.Client, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.client != nil {
		return inv.client, nil
	}

	config, err := clientConfig(inv.cfg)
	if err != nil {
		return nil, errors.Wrapf(domain.ErrProcessLaunchFailed, "ssh config: %v", err)
	}
	client, err := inv.dialFn("tcp", inv.cfg.Host, config)
	if err != nil {
		return nil, errors.Wrapf(domain.ErrProcessLaunchFailed, "unable to connect to remote host: %v", err)
	}
	inv.log.Info("Connected to remote engine host")
	inv.client = client
	return client, nil
}

func (inv *Invoker) reset() {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.client != nil {
		_ = inv.client.Close()
		inv.client = nil
	}
}

func clientConfig(cfg Config) (*ssh.ClientConfig, error) {
	key, err := os.ReadFile(expandHome(cfg.KeyPath))
	if err != nil {
		return nil, errors.Wrap(err, "unable to read private key")
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, errors.Wrap(err, "unable to parse private key")
	}

	var hostKeyCallback ssh.HostKeyCallback
	switch {
	case cfg.InsecureIgnoreHostKey:
		hostKeyCallback = ssh.InsecureIgnoreHostKey()
	case cfg.KnownHosts == "":
		return nil, errors.New("a known_hosts file is required unless host key checking is disabled")
	default:
		hostKeyCallback, err = knownhosts.New(expandHome(cfg.KnownHosts))
		if err != nil {
			return nil, errors.Wrap(err, "unable to load known_hosts")
		}
	}

	return &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         cfg.Timeout,
	}, nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
