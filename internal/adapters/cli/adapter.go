// Package cli talks to the container engine by running its command line tool.
package cli

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/melih/dockerbar/internal/core/domain"
	"github.com/melih/dockerbar/internal/core/ports"
)

// Terminal opens interactive commands in a terminal window.
type Terminal interface {
	Command(name string, args ...string) (string, []string)
	Launch(ctx context.Context, name string, args ...string) error
}

// Adapter implements ports.Engine using the engine CLI.
type Adapter struct {
	invoker  ports.Invoker
	engine   string
	format   Format
	terminal Terminal
	log      logrus.FieldLogger
}

// NewAdapter creates an Adapter that runs the engine binary at enginePath.
func NewAdapter(invoker ports.Invoker, enginePath string, format Format, terminal Terminal, log logrus.FieldLogger) *Adapter {
	if format == "" {
		format = FormatJSON
	}
	return &Adapter{
		invoker:  invoker,
		engine:   enginePath,
		format:   format,
		terminal: terminal,
		log:      log.WithField("component", "engine-cli"),
	}
}

// ListContainers returns every container whose state the menu can show.
func (a *Adapter) ListContainers(ctx context.Context) ([]domain.Container, error) {
	return a.list(ctx, "ps", "-a", "--format", a.format.Template())
}

// GetContainer looks up a single container by id.
func (a *Adapter) GetContainer(ctx context.Context, id string) (domain.Container, error) {
	containers, err := a.list(ctx, "ps", "-a", "--filter", "id="+id, "--format", a.format.Template())
	if err != nil {
		return domain.Container{}, err
	}
	idx, err := domain.Resolve(containers, id)
	if err != nil {
		return domain.Container{}, err
	}
	return containers[idx], nil
}

func (a *Adapter) list(ctx context.Context, args ...string) ([]domain.Container, error) {
	res, err := a.invoker.Run(ctx, a.engine, args...)
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		// Whatever was printed is still worth showing.
		a.log.WithField("exit_code", res.ExitCode).Warnf("Listing exited with error: %s",
			strings.TrimSpace(string(res.Stderr)))
	}

	records := ParseListing(res.Stdout, a.format, a.log)
	containers := make([]domain.Container, 0, len(records))
	for _, rec := range records {
		c, ok := domain.NewContainer(rec.ID, rec.Name, rec.State)
		if !ok {
			a.log.WithFields(logrus.Fields{"name": rec.Name, "state": rec.State}).Debug("Skipping container in unsupported state")
			continue
		}
		containers = append(containers, c)
	}
	return containers, nil
}

// ActionCommand returns the command that performs action on the named
// container. Interactive actions return the terminal launch command.
func (a *Adapter) ActionCommand(action domain.Action, name string) (string, []string, error) {
	args, interactive, err := engineArgs(action, name)
	if err != nil {
		return "", nil, err
	}
	if interactive {
		exe, targs := a.terminal.Command(a.engine, args...)
		return exe, targs, nil
	}
	return a.engine, args, nil
}

// RunAction performs action and waits for the engine to finish.
func (a *Adapter) RunAction(ctx context.Context, action domain.Action, c domain.Container) error {
	args, interactive, err := engineArgs(action, c.Name)
	if err != nil {
		return err
	}
	log := a.log.WithFields(logrus.Fields{"action": action.String(), "container": c.Name})
	if interactive {
		log.Info("Opening terminal")
		return a.terminal.Launch(ctx, a.engine, args...)
	}

	log.Info("Running action")
	res, err := a.invoker.Run(ctx, a.engine, args...)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return errors.Wrapf(domain.ErrActionFailed, "%s %s: exit %d: %s",
			action, c.Name, res.ExitCode, strings.TrimSpace(string(res.Stderr)))
	}
	return nil
}

// StreamEvents follows the engine event stream.
func (a *Adapter) StreamEvents(ctx context.Context) (<-chan domain.EngineEvent, error) {
	lines, err := a.invoker.Stream(ctx, a.engine,
		"events", "--filter", "type=container", "--format", "{{json .}}")
	if err != nil {
		return nil, err
	}

	events := make(chan domain.EngineEvent)
	go func() {
		defer close(events)
		for line := range lines {
			if strings.TrimSpace(line) == "" {
				continue
			}
			ev, err := ParseEvent(line)
			if err != nil {
				a.log.WithError(err).Debug("Skipping event line")
				continue
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, nil
}

// engineArgs is the static action table. interactive is true for actions
// that must run in a terminal.
func engineArgs(action domain.Action, name string) (args []string, interactive bool, err error) {
	switch action {
	case domain.ActionStart:
		return []string{"start", name}, false, nil
	case domain.ActionStop:
		return []string{"stop", name}, false, nil
	case domain.ActionRestart:
		return []string{"restart", name}, false, nil
	case domain.ActionPause:
		return []string{"pause", name}, false, nil
	case domain.ActionUnpause:
		return []string{"unpause", name}, false, nil
	case domain.ActionRemove:
		return []string{"rm", name}, false, nil
	case domain.ActionShowLogs:
		return []string{"logs", "-f", name}, true, nil
	case domain.ActionOpenShell:
		return []string{"exec", "-it", name, "sh", "-c", "command -v bash >/dev/null && exec bash || exec sh"}, true, nil
	}
	return nil, false, errors.Wrapf(domain.ErrUnknownAction, "%d", int(action))
}
