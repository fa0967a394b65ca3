package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/melih/dockerbar/internal/config"
	"github.com/melih/dockerbar/internal/core/domain"
)

const fakeEngine = `#!/bin/sh
case "$1" in
ps)
	echo '{"ID":"aaa111","Names":"web","State":"running"}'
	echo '{"ID":"bbb222","Names":"db","State":"exited"}'
	;;
events)
	exec sleep 30
	;;
*)
	exit 1
	;;
esac
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docker")
	assert.NilError(t, os.WriteFile(path, []byte(fakeEngine), 0o755))

	cfg := config.DefaultConfig()
	cfg.Engine.Path = path
	cfg.Engine.ExtraPath = nil
	return cfg
}

func TestAppServesView(t *testing.T) {
	log, _ := test.NewNullLogger()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := New(ctx, testConfig(t), log)
	assert.NilError(t, err)
	assert.Assert(t, a.CLI != nil)

	_, notifications, err := a.Hub.Subscribe()
	assert.NilError(t, err)

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	select {
	case n := <-notifications:
		assert.Assert(t, n.Update != nil)
		assert.Check(t, is.Len(n.Update.Containers, 2))
	case <-time.After(5 * time.Second):
		t.Fatal("no view update")
	}

	got, err := a.Controller.Containers(ctx)
	assert.NilError(t, err)
	assert.Equal(t, got[0].Name, "web")
	assert.Equal(t, got[1].Status, domain.StatusStopped)

	cancel()
	select {
	case err := <-done:
		assert.NilError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.NilError(t, a.Close())
}

func TestAppMachineFailure(t *testing.T) {
	log, _ := test.NewNullLogger()
	cfg := testConfig(t)
	cfg.Engine.Machine = "dev"
	cfg.Engine.MachinePath = filepath.Join(t.TempDir(), "missing")

	_, err := New(context.Background(), cfg, log)
	assert.ErrorContains(t, err, "machine dev")
}

func TestSSHPrefix(t *testing.T) {
	assert.DeepEqual(t, sshPrefix(config.RemoteConfig{Host: "box"}), []string{"ssh", "-t", "box"})
	assert.DeepEqual(t,
		sshPrefix(config.RemoteConfig{Host: "box:2222", User: "me", KeyPath: "/k"}),
		[]string{"ssh", "-t", "-p", "2222", "-i", "/k", "me@box"})
	assert.DeepEqual(t, sshPrefix(config.RemoteConfig{Host: "box:22", User: "me"}), []string{"ssh", "-t", "me@box"})
}
