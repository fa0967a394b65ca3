package services

import (
	"context"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/melih/dockerbar/internal/core/ports"
)

// ListenerState is the lifecycle state of a Listener.
type ListenerState int32

const (
	ListenerIdle ListenerState = iota
	ListenerStreaming
	ListenerClosed
)

func (s ListenerState) String() string {
	switch s {
	case ListenerIdle:
		return "idle"
	case ListenerStreaming:
		return "streaming"
	default:
		return "closed"
	}
}

// RefreshSink receives reconciliation requests.
type RefreshSink interface {
	RequestRefresh()
	RequestPatch(id string)
}

// Listener turns engine events into refresh requests.
type Listener struct {
	source ports.EventSource
	sink   RefreshSink
	patch  bool
	log    logrus.FieldLogger
	state  atomic.Int32
}

// NewListener creates a Listener. With patch set, events that name a
// container request a targeted re-query instead of a full refresh.
func NewListener(source ports.EventSource, sink RefreshSink, patch bool, log logrus.FieldLogger) *Listener {
	return &Listener{
		source: source,
		sink:   sink,
		patch:  patch,
		log:    log.WithField("component", "listener"),
	}
}

// State returns the current lifecycle state.
func (l *Listener) State() ListenerState {
	return ListenerState(l.state.Load())
}

// Run follows the event stream until it ends or ctx is cancelled. It returns
// an error only when the stream cannot be opened.
func (l *Listener) Run(ctx context.Context) error {
	events, err := l.source.StreamEvents(ctx)
	if err != nil {
		l.state.Store(int32(ListenerClosed))
		return err
	}
	l.state.Store(int32(ListenerStreaming))
	l.log.Info("Listening for engine events")
	defer l.state.Store(int32(ListenerClosed))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				l.log.Warn("Engine event stream closed")
				return nil
			}
			if !ev.Relevant() {
				continue
			}
			entry := l.log.WithFields(logrus.Fields{"action": ev.Action, "id": ev.ContainerID})
			if l.patch && ev.ContainerID != "" {
				entry.Debug("Container changed")
				l.sink.RequestPatch(ev.ContainerID)
				continue
			}
			entry.Debug("Container changed, refreshing all")
			l.sink.RequestRefresh()
		}
	}
}
