package docker

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/events"
	"github.com/docker/docker/client"
	"github.com/sirupsen/logrus/hooks/test"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/melih/dockerbar/internal/core/domain"
)

type fakeAPI struct {
	containers []types.Container
	listOpts   []types.ContainerListOptions
	calls      []string
	failWith   error
	msgs       chan events.Message
	errs       chan error
}

func (f *fakeAPI) ContainerList(_ context.Context, opts types.ContainerListOptions) ([]types.Container, error) {
	f.listOpts = append(f.listOpts, opts)
	return f.containers, nil
}

func (f *fakeAPI) record(op, id string) error {
	f.calls = append(f.calls, op+" "+id)
	return f.failWith
}

func (f *fakeAPI) ContainerStart(_ context.Context, id string, _ types.ContainerStartOptions) error {
	return f.record("start", id)
}

func (f *fakeAPI) ContainerStop(_ context.Context, id string, _ container.StopOptions) error {
	return f.record("stop", id)
}

func (f *fakeAPI) ContainerRestart(_ context.Context, id string, _ container.StopOptions) error {
	return f.record("restart", id)
}

func (f *fakeAPI) ContainerPause(_ context.Context, id string) error {
	return f.record("pause", id)
}

func (f *fakeAPI) ContainerUnpause(_ context.Context, id string) error {
	return f.record("unpause", id)
}

func (f *fakeAPI) ContainerRemove(_ context.Context, id string, _ types.ContainerRemoveOptions) error {
	return f.record("remove", id)
}

func (f *fakeAPI) Events(context.Context, types.EventsOptions) (<-chan events.Message, <-chan error) {
	return f.msgs, f.errs
}

type fakeTerminal struct{ args []string }

func (f *fakeTerminal) Launch(_ context.Context, name string, args ...string) error {
	f.args = append([]string{name}, args...)
	return nil
}

func newTestAdapter(api *fakeAPI) (*Adapter, *fakeTerminal) {
	logger, _ := test.NewNullLogger()
	term := &fakeTerminal{}
	return NewAdapterWithClient(api, term, "docker", logger), term
}

func TestListContainers(t *testing.T) {
	api := &fakeAPI{containers: []types.Container{
		{ID: "4f1e2d3c4b5a6b7c8d9e", Names: []string{"/web"}, State: "running"},
		{ID: "9a8b7c6d5e4f", Names: []string{"/db"}, Status: "Exited (1) 2 hours ago"},
		{ID: "0000", Names: []string{"/weird"}, State: "hibernating"},
	}}
	a, _ := newTestAdapter(api)

	got, err := a.ListContainers(context.Background())
	assert.NilError(t, err)
	assert.DeepEqual(t, got, []domain.Container{
		{ID: "4f1e2d3c4b5a", Name: "web", State: "running", Status: domain.StatusRunning},
		{ID: "9a8b7c6d5e4f", Name: "db", State: "exited", Status: domain.StatusStopped},
	})
	assert.Check(t, api.listOpts[0].All)
}

func TestGetContainerNotFound(t *testing.T) {
	a, _ := newTestAdapter(&fakeAPI{})

	_, err := a.GetContainer(context.Background(), "abc")
	assert.Assert(t, errors.Is(err, domain.ErrContainerNotFound))
}

func TestRunAction(t *testing.T) {
	api := &fakeAPI{}
	a, term := newTestAdapter(api)
	c := domain.Container{ID: "4f1e2d3c4b5a", Name: "web"}

	for _, action := range []domain.Action{
		domain.ActionStart, domain.ActionStop, domain.ActionRestart,
		domain.ActionPause, domain.ActionUnpause, domain.ActionRemove,
	} {
		assert.NilError(t, a.RunAction(context.Background(), action, c))
	}
	assert.DeepEqual(t, api.calls, []string{
		"start 4f1e2d3c4b5a", "stop 4f1e2d3c4b5a", "restart 4f1e2d3c4b5a",
		"pause 4f1e2d3c4b5a", "unpause 4f1e2d3c4b5a", "remove 4f1e2d3c4b5a",
	})

	assert.NilError(t, a.RunAction(context.Background(), domain.ActionShowLogs, c))
	assert.DeepEqual(t, term.args, []string{"docker", "logs", "-f", "web"})
}

func TestRunActionFailure(t *testing.T) {
	api := &fakeAPI{failWith: errors.New("conflict: container is running")}
	a, _ := newTestAdapter(api)

	err := a.RunAction(context.Background(), domain.ActionRemove, domain.Container{ID: "x", Name: "web"})
	assert.Assert(t, errors.Is(err, domain.ErrActionFailed))
}

func TestStreamEvents(t *testing.T) {
	api := &fakeAPI{msgs: make(chan events.Message, 2), errs: make(chan error, 1)}
	a, _ := newTestAdapter(api)

	out, err := a.StreamEvents(context.Background())
	assert.NilError(t, err)

	api.msgs <- events.Message{Type: "container", Action: "pause", Actor: events.Actor{ID: "abc"}}
	select {
	case ev := <-out:
		assert.DeepEqual(t, ev, domain.EngineEvent{Type: "container", Action: "pause", ContainerID: "abc"})
	case <-time.After(time.Second):
		t.Fatal("no event")
	}

	api.errs <- errors.New("connection reset")
	select {
	case _, ok := <-out:
		assert.Check(t, !ok, "stream should close after error")
	case <-time.After(time.Second):
		t.Fatal("stream not closed")
	}
}

func TestEnvOptions(t *testing.T) {
	cli, err := client.NewClientWithOpts(EnvOptions(map[string]string{
		"DOCKER_HOST":        "tcp://192.168.99.100:2376",
		"DOCKER_API_VERSION": "1.41",
	})...)
	assert.NilError(t, err)
	assert.Equal(t, cli.DaemonHost(), "tcp://192.168.99.100:2376")
	assert.Equal(t, cli.ClientVersion(), "1.41")

	_, err = client.NewClientWithOpts(EnvOptions(map[string]string{
		"DOCKER_TLS_VERIFY": "1",
		"DOCKER_CERT_PATH":  t.TempDir(),
	})...)
	assert.ErrorContains(t, err, "tls")
	assert.Check(t, is.Len(EnvOptions(nil), 0))
}

func TestNewAdapterOptionsLeaveProcessEnvAlone(t *testing.T) {
	t.Setenv("DOCKER_HOST", "unix:///var/run/docker.sock")
	logger, _ := test.NewNullLogger()

	a, err := NewAdapter(nil, "docker", logger, EnvOptions(map[string]string{
		"DOCKER_HOST": "tcp://192.168.99.100:2376",
	})...)
	assert.NilError(t, err)
	assert.Equal(t, a.cli.(*client.Client).DaemonHost(), "tcp://192.168.99.100:2376")
	assert.Equal(t, os.Getenv("DOCKER_HOST"), "unix:///var/run/docker.sock")
}
