package services

import (
	"context"
	"sync"
	"time"

	"github.com/melih/dockerbar/internal/core/domain"
)

type fakeEngine struct {
	mu         sync.Mutex
	containers []domain.Container
	listErr    error
	getErr     error
	actionErr  error
	block      chan struct{}

	lists   int
	gets    []string
	actions []string

	events    chan domain.EngineEvent
	eventsErr error
}

func (f *fakeEngine) set(containers ...domain.Container) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.containers = containers
}

func (f *fakeEngine) ListContainers(context.Context) ([]domain.Container, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]domain.Container(nil), f.containers...), nil
}

func (f *fakeEngine) GetContainer(_ context.Context, id string) (domain.Container, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets = append(f.gets, id)
	if f.getErr != nil {
		return domain.Container{}, f.getErr
	}
	idx, err := domain.Resolve(f.containers, id)
	if err != nil {
		return domain.Container{}, err
	}
	return f.containers[idx], nil
}

func (f *fakeEngine) RunAction(ctx context.Context, action domain.Action, c domain.Container) error {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action.String()+" "+c.Name)
	return f.actionErr
}

func (f *fakeEngine) StreamEvents(context.Context) (<-chan domain.EngineEvent, error) {
	if f.eventsErr != nil {
		return nil, f.eventsErr
	}
	return f.events, nil
}

func (f *fakeEngine) listCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists
}

func (f *fakeEngine) actionLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.actions...)
}

type recordingPresenter struct {
	updates chan domain.ViewUpdate
	results chan domain.ActionResult
}

func newRecordingPresenter() *recordingPresenter {
	return &recordingPresenter{
		updates: make(chan domain.ViewUpdate, 32),
		results: make(chan domain.ActionResult, 32),
	}
}

func (p *recordingPresenter) Render(u domain.ViewUpdate)            { p.updates <- u }
func (p *recordingPresenter) ActionCompleted(r domain.ActionResult) { p.results <- r }

func (p *recordingPresenter) nextUpdate() (domain.ViewUpdate, bool) {
	select {
	case u := <-p.updates:
		return u, true
	case <-time.After(2 * time.Second):
		return domain.ViewUpdate{}, false
	}
}

func (p *recordingPresenter) nextResult() (domain.ActionResult, bool) {
	select {
	case r := <-p.results:
		return r, true
	case <-time.After(2 * time.Second):
		return domain.ActionResult{}, false
	}
}

type recordingSink struct {
	mu        sync.Mutex
	refreshes int
	patches   []string
	notify    chan struct{}
}

func newRecordingSink() *recordingSink {
	return &recordingSink{notify: make(chan struct{}, 32)}
}

func (s *recordingSink) RequestRefresh() {
	s.mu.Lock()
	s.refreshes++
	s.mu.Unlock()
	s.notify <- struct{}{}
}

func (s *recordingSink) RequestPatch(id string) {
	s.mu.Lock()
	s.patches = append(s.patches, id)
	s.mu.Unlock()
	s.notify <- struct{}{}
}

func (s *recordingSink) counts() (int, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshes, append([]string(nil), s.patches...)
}
