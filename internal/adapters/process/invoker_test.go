package process

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/melih/dockerbar/internal/core/domain"
)

func newTestInvoker(opts ...Option) *Invoker {
	logger, _ := test.NewNullLogger()
	return NewInvoker(logger, opts...)
}

func TestRunCapturesOutput(t *testing.T) {
	inv := newTestInvoker()

	res, err := inv.Run(context.Background(), "sh", "-c", "echo out; echo err 1>&2")
	assert.NilError(t, err)
	assert.Equal(t, string(res.Stdout), "out\n")
	assert.Equal(t, string(res.Stderr), "err\n")
	assert.Equal(t, res.ExitCode, 0)
}

func TestRunNonZeroExitIsNotAnError(t *testing.T) {
	inv := newTestInvoker()

	res, err := inv.Run(context.Background(), "sh", "-c", "echo partial; exit 3")
	assert.NilError(t, err)
	assert.Equal(t, res.ExitCode, 3)
	assert.Equal(t, string(res.Stdout), "partial\n")
}

func TestRunLaunchFailure(t *testing.T) {
	inv := newTestInvoker()

	_, err := inv.Run(context.Background(), "/nonexistent/engine", "ps")
	assert.Assert(t, errors.Is(err, domain.ErrProcessLaunchFailed), "got %v", err)
}

func TestRunTimeout(t *testing.T) {
	inv := newTestInvoker()
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := inv.Run(ctx, "sleep", "5")
	assert.Assert(t, err != nil)
	assert.Assert(t, time.Since(start) < 3*time.Second)
}

func TestWithPathPrependsDirectories(t *testing.T) {
	inv := newTestInvoker(WithPath("/opt/engine/bin"))

	res, err := inv.Run(context.Background(), "sh", "-c", "echo $PATH")
	assert.NilError(t, err)
	assert.Assert(t, strings.HasPrefix(string(res.Stdout), "/opt/engine/bin:"), "PATH=%s", res.Stdout)
}

func TestWithEnvOverrides(t *testing.T) {
	inv := newTestInvoker(WithEnv(map[string]string{"DOCKER_HOST": "tcp://10.0.0.5:2376"}))

	res, err := inv.Run(context.Background(), "sh", "-c", "echo $DOCKER_HOST")
	assert.NilError(t, err)
	assert.Equal(t, strings.TrimSpace(string(res.Stdout)), "tcp://10.0.0.5:2376")
}

func TestStreamLines(t *testing.T) {
	inv := newTestInvoker()

	lines, err := inv.Stream(context.Background(), "sh", "-c", `printf 'one\ntwo\r\nthree'`)
	assert.NilError(t, err)

	var got []string
	for line := range lines {
		got = append(got, line)
	}
	assert.DeepEqual(t, got, []string{"one", "two", "three"})
}

func TestStreamSkipsOverlongLine(t *testing.T) {
	inv := newTestInvoker()

	script := `echo first; head -c 2097152 /dev/zero | tr '\0' x; echo; echo after`
	lines, err := inv.Stream(context.Background(), "sh", "-c", script)
	assert.NilError(t, err)

	var got []string
	for line := range lines {
		got = append(got, line)
	}
	assert.DeepEqual(t, got, []string{"first", "after"})
}

func TestStreamCancel(t *testing.T) {
	inv := newTestInvoker()
	ctx, cancel := context.WithCancel(context.Background())

	lines, err := inv.Stream(ctx, "sh", "-c", "echo ready; sleep 30")
	assert.NilError(t, err)

	select {
	case line := <-lines:
		assert.Equal(t, line, "ready")
	case <-time.After(2 * time.Second):
		t.Fatal("no line received")
	}

	cancel()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case _, ok := <-lines:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("stream not closed after cancel")
		}
	}
}

func TestStreamLaunchFailure(t *testing.T) {
	inv := newTestInvoker()

	_, err := inv.Stream(context.Background(), "/nonexistent/engine", "events")
	assert.Assert(t, errors.Is(err, domain.ErrProcessLaunchFailed))
}

func TestParseMachineEnv(t *testing.T) {
	raw := []byte(`export DOCKER_TLS_VERIFY="1"
export DOCKER_HOST="tcp://192.168.99.100:2376"
export DOCKER_CERT_PATH="/Users/me/.docker/machine/machines/default"
export DOCKER_MACHINE_NAME="default"
# Run this command to configure your shell:
# eval $(docker-machine env default)
`)
	vars := ParseMachineEnv(raw)
	assert.Check(t, is.Len(vars, 4))
	assert.Equal(t, vars["DOCKER_HOST"], "tcp://192.168.99.100:2376")
	assert.Equal(t, vars["DOCKER_MACHINE_NAME"], "default")
}

func TestMachineEnvRunsMachineBinary(t *testing.T) {
	inv := newTestInvoker()
	machine := filepath.Join(t.TempDir(), "docker-machine")
	script := "#!/bin/sh\n[ \"$1\" = env ] && [ \"$2\" = dev ] || exit 2\necho 'export DOCKER_HOST=\"tcp://1.2.3.4:2376\"'\n"
	assert.NilError(t, os.WriteFile(machine, []byte(script), 0o755))

	vars, err := MachineEnv(context.Background(), inv, machine, "dev")
	assert.NilError(t, err)
	assert.Equal(t, vars["DOCKER_HOST"], "tcp://1.2.3.4:2376")

	_, err = MachineEnv(context.Background(), inv, machine, "other")
	assert.ErrorContains(t, err, "exited 2")
}
