package hub

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/melih/dockerbar/internal/core/domain"
)

// ErrClosed is returned by Subscribe after Close.
var ErrClosed = errors.New("hub is closed")

// ActionEvent is the wire form of a domain.ActionResult.
type ActionEvent struct {
	RequestID string           `json:"request_id"`
	Action    domain.Action    `json:"action"`
	Container domain.Container `json:"container"`
	Error     string           `json:"error,omitempty"`
}

// NewActionEvent converts an action result for subscribers.
func NewActionEvent(r domain.ActionResult) ActionEvent {
	ev := ActionEvent{RequestID: r.RequestID, Action: r.Action, Container: r.Container}
	if r.Err != nil {
		ev.Error = r.Err.Error()
	}
	return ev
}

// Notification carries exactly one of Update or Action.
type Notification struct {
	Update *domain.ViewUpdate `json:"update,omitempty"`
	Action *ActionEvent       `json:"action,omitempty"`
}

// Hub fans presenter calls out to any number of subscribers. It never blocks
// the caller. A subscriber that falls behind loses its oldest view updates;
// action notifications are always delivered.
type Hub struct {
	mu          sync.Mutex
	subscribers map[string]*subscriber
	latest      *domain.ViewUpdate
	buffer      int
	closed      bool
	log         logrus.FieldLogger
}

// New creates a Hub that keeps up to buffer undelivered view updates per
// subscriber.
func New(buffer int, log logrus.FieldLogger) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{
		subscribers: make(map[string]*subscriber),
		buffer:      buffer,
		log:         log.WithField("component", "hub"),
	}
}

// Render implements ports.Presenter.
func (h *Hub) Render(update domain.ViewUpdate) {
	h.mu.Lock()
	h.latest = &update
	h.mu.Unlock()
	h.publish(Notification{Update: &update})
}

// ActionCompleted implements ports.Presenter.
func (h *Hub) ActionCompleted(result domain.ActionResult) {
	ev := NewActionEvent(result)
	h.publish(Notification{Action: &ev})
}

// Latest returns the most recent view update, if any.
func (h *Hub) Latest() (domain.ViewUpdate, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.latest == nil {
		return domain.ViewUpdate{}, false
	}
	return *h.latest, true
}

// Subscribe registers a new subscriber. The channel must be read until it is
// closed, which happens on Unsubscribe or once Close has delivered everything
// pending.
func (h *Hub) Subscribe() (string, <-chan Notification, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return "", nil, ErrClosed
	}
	id := uuid.NewString()
	sub := newSubscriber()
	h.subscribers[id] = sub
	go sub.run()
	h.log.WithField("subscriber", id).Debug("New subscriber")
	return id, sub.out, nil
}

// Unsubscribe removes a subscriber and discards what it has not read.
// Unknown ids are ignored.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sub, ok := h.subscribers[id]
	if !ok {
		return
	}
	delete(h.subscribers, id)
	close(sub.stop)
	h.log.WithField("subscriber", id).Debug("Unsubscribed")
}

// Close rejects new subscribers. Existing channels are closed after their
// pending notifications are delivered.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subscribers {
		sub.finish()
		delete(h.subscribers, id)
	}
}

func (h *Hub) publish(n Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, sub := range h.subscribers {
		if sub.push(n, h.buffer) {
			h.log.WithField("subscriber", id).Debug("Subscriber behind, dropped a view update")
		}
	}
}

// subscriber queues notifications for one reader. A goroutine moves them
// from pending to out.
type subscriber struct {
	out  chan Notification
	wake chan struct{}
	stop chan struct{}

	mu      sync.Mutex
	pending []Notification
	closing bool
}

func newSubscriber() *subscriber {
	return &subscriber{
		out:  make(chan Notification),
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
	}
}

// push queues n. When more than limit view updates are pending the oldest
// one is dropped and push reports true.
func (s *subscriber) push(n Notification, limit int) bool {
	s.mu.Lock()
	s.pending = append(s.pending, n)
	dropped := false
	if n.Update != nil && countUpdates(s.pending) > limit {
		for i, p := range s.pending {
			if p.Update != nil {
				s.pending = append(s.pending[:i], s.pending[i+1:]...)
				dropped = true
				break
			}
		}
	}
	s.mu.Unlock()
	s.signal()
	return dropped
}

func (s *subscriber) finish() {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()
	s.signal()
}

func (s *subscriber) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) run() {
	defer close(s.out)
	for {
		n, ok := s.next()
		if !ok {
			return
		}
		select {
		case s.out <- n:
		case <-s.stop:
			return
		}
	}
}

// next blocks until a notification is pending. ok is false once the
// subscriber is stopped, or finished with nothing left to deliver.
func (s *subscriber) next() (Notification, bool) {
	for {
		s.mu.Lock()
		if len(s.pending) > 0 {
			n := s.pending[0]
			s.pending = s.pending[1:]
			s.mu.Unlock()
			return n, true
		}
		closing := s.closing
		s.mu.Unlock()
		if closing {
			return Notification{}, false
		}
		select {
		case <-s.wake:
		case <-s.stop:
			return Notification{}, false
		}
	}
}

func countUpdates(ns []Notification) int {
	count := 0
	for _, n := range ns {
		if n.Update != nil {
			count++
		}
	}
	return count
}
