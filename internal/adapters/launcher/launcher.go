// Package launcher opens interactive engine commands (logs, shells) in a
// terminal window.
package launcher

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/melih/dockerbar/internal/core/ports"
	"github.com/melih/dockerbar/internal/shell"
)

// Placeholder in a terminal template is replaced by the command line to run.
const Placeholder = "%s"

// DefaultTemplate opens a new Terminal.app window on macOS.
var DefaultTemplate = []string{
	"/usr/bin/osascript", "-e", `tell application "Terminal" to do script "%s"`,
}

// Launcher runs engine commands inside a terminal emulator.
type Launcher struct {
	invoker  ports.Invoker
	template []string
	prefix   []string
	log      logrus.FieldLogger
}

// New creates a Launcher. invoker must run locally since the terminal is
// local. prefix is prepended to every command line, e.g. ["ssh", "-t",
// "me@host"] when the engine is remote.
func New(invoker ports.Invoker, template, prefix []string, log logrus.FieldLogger) *Launcher {
	if len(template) == 0 {
		template = DefaultTemplate
	}
	return &Launcher{
		invoker:  invoker,
		template: template,
		prefix:   prefix,
		log:      log.WithField("component", "launcher"),
	}
}

// Command returns the executable and arguments that open a terminal running
// name with args.
func (l *Launcher) Command(name string, args ...string) (string, []string) {
	argv := append(append([]string(nil), l.prefix...), name)
	argv = append(argv, args...)
	line := shell.Join(argv[0], argv[1:]...)
	if filepath.Base(l.template[0]) == "osascript" {
		line = appleScriptEscape(line)
	}

	out := make([]string, 0, len(l.template)-1)
	for _, part := range l.template[1:] {
		out = append(out, strings.ReplaceAll(part, Placeholder, line))
	}
	return l.template[0], out
}

// Launch opens the terminal. It returns once the terminal launcher exits,
// not when the interactive command ends.
func (l *Launcher) Launch(ctx context.Context, name string, args ...string) error {
	exe, argv := l.Command(name, args...)
	l.log.WithField("cmd", exe).Debugf("Launching terminal for %s", name)
	res, err := l.invoker.Run(ctx, exe, argv...)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return errors.Errorf("terminal launcher exited %d: %s", res.ExitCode, strings.TrimSpace(string(res.Stderr)))
	}
	return nil
}

func appleScriptEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
