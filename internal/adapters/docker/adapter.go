package docker

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/events"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/melih/dockerbar/internal/core/domain"
)

// API is the subset of the Docker client the adapter uses.
type API interface {
	ContainerList(ctx context.Context, options types.ContainerListOptions) ([]types.Container, error)
	ContainerStart(ctx context.Context, containerID string, options types.ContainerStartOptions) error
	ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error
	ContainerRestart(ctx context.Context, containerID string, options container.StopOptions) error
	ContainerPause(ctx context.Context, containerID string) error
	ContainerUnpause(ctx context.Context, containerID string) error
	ContainerRemove(ctx context.Context, containerID string, options types.ContainerRemoveOptions) error
	Events(ctx context.Context, options types.EventsOptions) (<-chan events.Message, <-chan error)
}

// Terminal opens interactive commands in a terminal window.
type Terminal interface {
	Launch(ctx context.Context, name string, args ...string) error
}

// Adapter implements ports.Engine using the Docker SDK
type Adapter struct {
	cli      API
	terminal Terminal
	cliPath  string // docker binary used for interactive actions
	log      logrus.FieldLogger
}

// NewAdapter creates a new Docker adapter instance from the environment
// (DOCKER_HOST, DOCKER_CERT_PATH, ...). opts are applied after the
// environment and take precedence.
func NewAdapter(terminal Terminal, cliPath string, log logrus.FieldLogger, opts ...client.Opt) (*Adapter, error) {
	opts = append([]client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}, opts...)
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create docker client")
	}
	return NewAdapterWithClient(cli, terminal, cliPath, log), nil
}

// EnvOptions converts engine variables, such as those printed by
// docker-machine env, into client options.
func EnvOptions(env map[string]string) []client.Opt {
	var opts []client.Opt
	if host := env[client.EnvOverrideHost]; host != "" {
		opts = append(opts, client.WithHost(host))
	}
	if dir := env[client.EnvOverrideCertPath]; dir != "" && env[client.EnvTLSVerify] != "" {
		opts = append(opts, client.WithTLSClientConfig(
			filepath.Join(dir, "ca.pem"),
			filepath.Join(dir, "cert.pem"),
			filepath.Join(dir, "key.pem"),
		))
	}
	if version := env[client.EnvOverrideAPIVersion]; version != "" {
		opts = append(opts, client.WithVersion(version))
	}
	return opts
}

// NewAdapterWithClient wraps an existing client.
func NewAdapterWithClient(cli API, terminal Terminal, cliPath string, log logrus.FieldLogger) *Adapter {
	return &Adapter{
		cli:      cli,
		terminal: terminal,
		cliPath:  cliPath,
		log:      log.WithField("component", "engine-sdk"),
	}
}

// ListContainers returns all containers, running or not, in a showable state.
func (a *Adapter) ListContainers(ctx context.Context) ([]domain.Container, error) {
	return a.list(ctx, types.ContainerListOptions{All: true})
}

// GetContainer looks up one container by id.
func (a *Adapter) GetContainer(ctx context.Context, id string) (domain.Container, error) {
	containers, err := a.list(ctx, types.ContainerListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("id", id)),
	})
	if err != nil {
		return domain.Container{}, err
	}
	idx, err := domain.Resolve(containers, id)
	if err != nil {
		return domain.Container{}, err
	}
	return containers[idx], nil
}

func (a *Adapter) list(ctx context.Context, opts types.ContainerListOptions) ([]domain.Container, error) {
	containers, err := a.cli.ContainerList(ctx, opts)
	if err != nil {
		return nil, errors.Wrapf(domain.ErrProcessLaunchFailed, "failed to list containers: %v", err)
	}

	result := make([]domain.Container, 0, len(containers))
	for _, c := range containers {
		// Use the first name if available, remove slash
		name := ""
		if len(c.Names) > 0 {
			name = strings.TrimPrefix(c.Names[0], "/")
		}
		state := c.State
		if state == "" {
			state = domain.StateFromStatusText(c.Status)
		}
		dc, ok := domain.NewContainer(shortID(c.ID), name, state)
		if !ok {
			a.log.WithFields(logrus.Fields{"name": name, "state": state}).Debug("Skipping container in unsupported state")
			continue
		}
		result = append(result, dc)
	}
	return result, nil
}

// RunAction performs action through the Engine API.
func (a *Adapter) RunAction(ctx context.Context, action domain.Action, c domain.Container) error {
	ref := c.Key()
	a.log.WithFields(logrus.Fields{"action": action.String(), "container": c.Name}).Info("Running action")

	var err error
	switch action {
	case domain.ActionStart:
		err = a.cli.ContainerStart(ctx, ref, types.ContainerStartOptions{})
	case domain.ActionStop:
		err = a.cli.ContainerStop(ctx, ref, container.StopOptions{})
	case domain.ActionRestart:
		err = a.cli.ContainerRestart(ctx, ref, container.StopOptions{})
	case domain.ActionPause:
		err = a.cli.ContainerPause(ctx, ref)
	case domain.ActionUnpause:
		err = a.cli.ContainerUnpause(ctx, ref)
	case domain.ActionRemove:
		err = a.cli.ContainerRemove(ctx, ref, types.ContainerRemoveOptions{})
	case domain.ActionShowLogs:
		return a.terminal.Launch(ctx, a.cliPath, "logs", "-f", c.Name)
	case domain.ActionOpenShell:
		return a.terminal.Launch(ctx, a.cliPath, "exec", "-it", c.Name, "sh", "-c",
			"command -v bash >/dev/null && exec bash || exec sh")
	default:
		return errors.Wrapf(domain.ErrUnknownAction, "%d", int(action))
	}

	if err == nil {
		return nil
	}
	if client.IsErrNotFound(err) {
		return errors.Wrapf(domain.ErrContainerNotFound, "%s: %v", c.Name, err)
	}
	return errors.Wrapf(domain.ErrActionFailed, "%s %s: %v", action, c.Name, err)
}

// StreamEvents subscribes to container events.
func (a *Adapter) StreamEvents(ctx context.Context) (<-chan domain.EngineEvent, error) {
	msgs, errs := a.cli.Events(ctx, types.EventsOptions{
		Filters: filters.NewArgs(filters.Arg("type", "container")),
	})

	out := make(chan domain.EngineEvent)
	go func() {
		defer close(out)
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				ev := domain.EngineEvent{
					Type:        string(msg.Type),
					Action:      string(msg.Action),
					ContainerID: msg.Actor.ID,
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			case err, ok := <-errs:
				if ok && err != nil && ctx.Err() == nil {
					a.log.WithError(err).Warn("Event stream ended")
				}
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
