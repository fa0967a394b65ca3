package app

import (
	"context"
	"net"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/melih/dockerbar/internal/adapters/cli"
	"github.com/melih/dockerbar/internal/adapters/docker"
	"github.com/melih/dockerbar/internal/adapters/hub"
	"github.com/melih/dockerbar/internal/adapters/launcher"
	"github.com/melih/dockerbar/internal/adapters/process"
	"github.com/melih/dockerbar/internal/adapters/ssh"
	"github.com/melih/dockerbar/internal/config"
	"github.com/melih/dockerbar/internal/core/ports"
	"github.com/melih/dockerbar/internal/core/services"
)

// hubBuffer is the number of notifications a subscriber may fall behind.
const hubBuffer = 16

// App is the wired application. Build it once with New and drive it with Run.
type App struct {
	Config *config.Config
	Log    logrus.FieldLogger

	Engine     ports.Engine
	CLI        *cli.Adapter // nil with the sdk backend
	Hub        *hub.Hub
	Syncer     *services.Syncer
	Listener   *services.Listener
	Dispatcher *services.Dispatcher
	Controller *services.Controller

	closers []func() error
}

// New wires every component. ctx bounds dispatched actions, so it should be
// the context Run is later called with.
func New(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*App, error) {
	a := &App{Config: cfg, Log: log}

	local := process.NewInvoker(log, process.WithPath(cfg.Engine.ExtraPath...))
	var machineEnv map[string]string
	if cfg.Engine.Machine != "" {
		env, err := process.MachineEnv(ctx, local, cfg.Engine.MachinePath, cfg.Engine.Machine)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load environment of machine %s", cfg.Engine.Machine)
		}
		log.WithField("machine", cfg.Engine.Machine).Infof("Loaded %d engine variables", len(env))
		local = process.NewInvoker(log, process.WithPath(cfg.Engine.ExtraPath...), process.WithEnv(env))
		machineEnv = env
	}

	var engineInvoker ports.Invoker = local
	var prefix []string
	if cfg.IsRemote() {
		remote := ssh.NewInvoker(ssh.Config{
			User:       cfg.Remote.User,
			Host:       cfg.Remote.Host,
			KeyPath:    cfg.Remote.KeyPath,
			KnownHosts: cfg.Remote.KnownHosts,

			InsecureIgnoreHostKey: cfg.Remote.InsecureIgnoreHostKey,
		}, log)
		a.closers = append(a.closers, remote.Close)
		engineInvoker = remote
		prefix = sshPrefix(cfg.Remote)
	}

	term := launcher.New(local, cfg.Terminal.Command, prefix, log)

	switch cfg.Engine.Backend {
	case "sdk":
		engine, err := docker.NewAdapter(term, cfg.Engine.Path, log, docker.EnvOptions(machineEnv)...)
		if err != nil {
			return nil, err
		}
		a.Engine = engine
	default:
		a.CLI = cli.NewAdapter(engineInvoker, cfg.Engine.Path, cli.Format(cfg.Engine.ListFormat), term, log)
		a.Engine = a.CLI
	}

	a.Hub = hub.New(hubBuffer, log)
	a.Syncer = services.NewSyncer(a.Engine, a.Hub, services.SyncerConfig{
		HideUnknown: cfg.Sync.HideUnknown,
		ListTimeout: cfg.Sync.ListTimeout,
	}, log)
	a.Listener = services.NewListener(a.Engine, a.Syncer, cfg.Sync.PatchEvents, log)
	a.Dispatcher = services.NewDispatcher(ctx, a.Engine, a.Hub, a.Syncer, services.DispatcherConfig{
		Workers:       cfg.Sync.Workers,
		ActionTimeout: cfg.Sync.ActionTimeout,
	}, log)
	a.Controller = services.NewController(a.Syncer, a.Dispatcher, log)
	return a, nil
}

// Run starts the syncer and the event listener and blocks until ctx is done.
// A listener that cannot open the event stream is logged, not fatal: the view
// still refreshes after every action.
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = a.Syncer.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		if err := a.Listener.Run(ctx); err != nil {
			a.Log.WithError(err).Error("Failed to follow engine events")
		}
	}()

	<-ctx.Done()
	wg.Wait()
	a.Dispatcher.Wait()
	a.Hub.Close()
	return nil
}

// Close releases connections held by the engine invoker.
func (a *App) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// sshPrefix opens interactive commands on the remote host.
func sshPrefix(r config.RemoteConfig) []string {
	args := []string{"ssh", "-t"}
	host := r.Host
	if h, port, err := net.SplitHostPort(r.Host); err == nil {
		host = h
		if port != "22" {
			args = append(args, "-p", port)
		}
	}
	if r.KeyPath != "" {
		args = append(args, "-i", r.KeyPath)
	}
	if r.User != "" {
		host = r.User + "@" + host
	}
	return append(args, host)
}
