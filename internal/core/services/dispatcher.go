package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/melih/dockerbar/internal/core/domain"
	"github.com/melih/dockerbar/internal/core/ports"
)

// DispatcherConfig tunes a Dispatcher.
type DispatcherConfig struct {
	Workers       int
	ActionTimeout time.Duration
}

// Dispatcher runs actions on a bounded pool of goroutines so callers never
// wait for the engine.
type Dispatcher struct {
	engine    ports.ContainerService
	presenter ports.Presenter
	sink      RefreshSink
	cfg       DispatcherConfig
	log       logrus.FieldLogger

	ctx   context.Context
	slots chan struct{}
	wg    sync.WaitGroup
}

// NewDispatcher creates a Dispatcher. Actions run under ctx, so cancelling it
// aborts in-flight actions.
func NewDispatcher(ctx context.Context, engine ports.ContainerService, presenter ports.Presenter, sink RefreshSink, cfg DispatcherConfig, log logrus.FieldLogger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.ActionTimeout <= 0 {
		cfg.ActionTimeout = time.Minute
	}
	return &Dispatcher{
		engine:    engine,
		presenter: presenter,
		sink:      sink,
		cfg:       cfg,
		log:       log.WithField("component", "dispatcher"),
		ctx:       ctx,
		slots:     make(chan struct{}, cfg.Workers),
	}
}

// Submit queues action for c and returns its request id immediately.
func (d *Dispatcher) Submit(action domain.Action, c domain.Container) string {
	id := uuid.NewString()
	d.wg.Add(1)
	go d.run(id, action, c)
	return id
}

// StopAll lists the containers and submits Stop for every running or paused
// one. It returns immediately with the id of the batch.
func (d *Dispatcher) StopAll() string {
	batch := uuid.NewString()
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(d.ctx, d.cfg.ActionTimeout)
		defer cancel()

		log := d.log.WithField("batch", batch)
		containers, err := d.engine.ListContainers(ctx)
		if err != nil {
			log.WithError(err).Error("Stop all: failed to list containers")
			d.presenter.ActionCompleted(domain.ActionResult{
				RequestID: batch, Action: domain.ActionStop, Err: err,
			})
			return
		}
		n := 0
		for _, c := range containers {
			if c.Status == domain.StatusRunning || c.Status == domain.StatusPaused {
				d.Submit(domain.ActionStop, c)
				n++
			}
		}
		log.Infof("Stopping %d containers", n)
	}()
	return batch
}

// Wait blocks until every submitted action has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) run(id string, action domain.Action, c domain.Container) {
	defer d.wg.Done()

	select {
	case d.slots <- struct{}{}:
	case <-d.ctx.Done():
		return
	}
	defer func() { <-d.slots }()

	ctx, cancel := context.WithTimeout(d.ctx, d.cfg.ActionTimeout)
	defer cancel()

	log := d.log.WithFields(logrus.Fields{
		"request":   id,
		"action":    action.String(),
		"container": c.Name,
	})
	start := time.Now()
	err := d.engine.RunAction(ctx, action, c)
	if err != nil {
		log.WithError(err).Error("Action failed")
	} else {
		log.WithField("took", time.Since(start).Round(time.Millisecond)).Info("Action done")
	}

	d.presenter.ActionCompleted(domain.ActionResult{
		RequestID: id,
		Action:    action,
		Container: c,
		Err:       err,
	})
	if c.ID != "" {
		d.sink.RequestPatch(c.ID)
	} else {
		d.sink.RequestRefresh()
	}
}
