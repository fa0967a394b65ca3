package process

import (
	"bufio"
	"bytes"
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/melih/dockerbar/internal/core/ports"
)

// MachineEnv runs `docker-machine env <machine>` and returns the DOCKER_*
// variables it exports, for engines that live inside a docker-machine VM.
func MachineEnv(ctx context.Context, inv ports.Invoker, machinePath, machine string) (map[string]string, error) {
	res, err := inv.Run(ctx, machinePath, "env", machine)
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, errors.Errorf("%s env %s exited %d: %s",
			machinePath, machine, res.ExitCode, strings.TrimSpace(string(res.Stderr)))
	}
	return ParseMachineEnv(res.Stdout), nil
}

// ParseMachineEnv extracts `export DOCKER_X="value"` lines.
func ParseMachineEnv(raw []byte) map[string]string {
	vars := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "export DOCKER") {
			continue
		}
		name, value, ok := strings.Cut(strings.TrimPrefix(line, "export "), "=")
		if !ok || name == "" {
			continue
		}
		vars[name] = strings.Trim(value, `"`)
	}
	return vars
}
