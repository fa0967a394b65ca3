package services

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/melih/dockerbar/internal/core/domain"
	"github.com/melih/dockerbar/internal/core/ports"
)

// SyncerConfig tunes a Syncer.
type SyncerConfig struct {
	// HideUnknown drops containers in the Unknown status from the view.
	HideUnknown bool
	// ListTimeout bounds each engine query.
	ListTimeout time.Duration
}

type requestKind int

const (
	requestRefresh requestKind = iota
	requestPatch
	requestSnapshot
)

type request struct {
	kind  requestKind
	id    string
	reply chan []domain.Container
}

// Syncer owns the visible container list. Only its Run goroutine reads or
// writes the list; everything else talks to it through requests.
type Syncer struct {
	engine    ports.ContainerService
	presenter ports.Presenter
	cfg       SyncerConfig
	log       logrus.FieldLogger

	requests chan request
	// pendingRefresh is set when a refresh request found the queue full.
	pendingRefresh atomic.Bool

	containers []domain.Container
	seq        uint64
}

// NewSyncer creates a Syncer. Call Run to start it.
func NewSyncer(engine ports.ContainerService, presenter ports.Presenter, cfg SyncerConfig, log logrus.FieldLogger) *Syncer {
	if cfg.ListTimeout <= 0 {
		cfg.ListTimeout = 15 * time.Second
	}
	return &Syncer{
		engine:    engine,
		presenter: presenter,
		cfg:       cfg,
		log:       log.WithField("component", "syncer"),
		requests:  make(chan request, 64),
	}
}

// Run performs an initial refresh and then serves requests until ctx is done.
func (s *Syncer) Run(ctx context.Context) error {
	s.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-s.requests:
			s.handle(ctx, req)
		}
		if s.pendingRefresh.CompareAndSwap(true, false) {
			s.refresh(ctx)
		}
	}
}

func (s *Syncer) handle(ctx context.Context, req request) {
	switch req.kind {
	case requestRefresh:
		s.refresh(ctx)
	case requestPatch:
		s.patch(ctx, req.id)
	case requestSnapshot:
		req.reply <- append([]domain.Container(nil), s.containers...)
	}
}

// RequestRefresh asks for a full re-query. It never blocks.
func (s *Syncer) RequestRefresh() {
	select {
	case s.requests <- request{kind: requestRefresh}:
	default:
		s.pendingRefresh.Store(true)
	}
}

// RequestPatch asks for the container with the given id to be re-queried.
// It never blocks; when the queue is full a full refresh is scheduled instead.
func (s *Syncer) RequestPatch(id string) {
	select {
	case s.requests <- request{kind: requestPatch, id: id}:
	default:
		s.pendingRefresh.Store(true)
	}
}

// Snapshot returns a copy of the visible list.
func (s *Syncer) Snapshot(ctx context.Context) ([]domain.Container, error) {
	reply := make(chan []domain.Container, 1)
	select {
	case s.requests <- request{kind: requestSnapshot, reply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case containers := <-reply:
		return containers, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Syncer) refresh(ctx context.Context) {
	qctx, cancel := context.WithTimeout(ctx, s.cfg.ListTimeout)
	defer cancel()

	containers, err := s.engine.ListContainers(qctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		// Keep the current view; at startup that is an empty list.
		s.log.WithError(err).Error("Failed to list containers")
		return
	}
	s.apply(s.visible(containers))
}

func (s *Syncer) patch(ctx context.Context, id string) {
	idx := s.indexOf(id)
	if idx < 0 || s.containers[idx].ID == "" {
		s.log.WithField("id", id).Debug("Event for unknown container, refreshing all")
		s.refresh(ctx)
		return
	}

	qctx, cancel := context.WithTimeout(ctx, s.cfg.ListTimeout)
	defer cancel()

	c, err := s.engine.GetContainer(qctx, s.containers[idx].Key())
	switch {
	case errors.Is(err, domain.ErrContainerNotFound):
		s.log.WithField("id", id).Info("Container not found, refreshing all")
		s.refresh(ctx)
		return
	case err != nil:
		s.log.WithError(err).WithField("id", id).Warn("Failed to query container")
		return
	}

	next := make([]domain.Container, 0, len(s.containers))
	next = append(next, s.containers[:idx]...)
	next = append(next, s.visible([]domain.Container{c})...)
	next = append(next, s.containers[idx+1:]...)
	s.apply(next)
}

func (s *Syncer) apply(next []domain.Container) {
	ops := Reconcile(s.containers, next)
	s.containers = next
	if len(ops) == 0 {
		return
	}
	s.seq++
	s.log.WithFields(logrus.Fields{"seq": s.seq, "ops": len(ops)}).Debug("View changed")
	s.presenter.Render(domain.ViewUpdate{
		Seq:        s.seq,
		Ops:        ops,
		Containers: append([]domain.Container(nil), next...),
	})
}

func (s *Syncer) visible(containers []domain.Container) []domain.Container {
	if !s.cfg.HideUnknown {
		return containers
	}
	out := containers[:0:0]
	for _, c := range containers {
		if c.Status != domain.StatusUnknown {
			out = append(out, c)
		}
	}
	return out
}

func (s *Syncer) indexOf(ref string) int {
	idx, err := domain.Resolve(s.containers, ref)
	if err != nil {
		return -1
	}
	return idx
}
