package console

import (
	"context"
	"fmt"
	"io"

	"github.com/melih/dockerbar/internal/adapters/hub"
	"github.com/melih/dockerbar/internal/core/domain"
)

// Watcher prints hub notifications as they arrive.
type Watcher struct {
	out io.Writer
	st  styles
}

func NewWatcher(out io.Writer) *Watcher {
	return &Watcher{out: out, st: newStyles(out)}
}

// Follow prints notifications until the channel closes or ctx is done.
func (w *Watcher) Follow(ctx context.Context, notifications <-chan hub.Notification) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-notifications:
			if !ok {
				return
			}
			w.Print(n)
		}
	}
}

// Print writes one notification.
func (w *Watcher) Print(n hub.Notification) {
	if n.Update != nil {
		w.printUpdate(*n.Update)
	}
	if n.Action != nil {
		w.printAction(*n.Action)
	}
}

func (w *Watcher) printUpdate(u domain.ViewUpdate) {
	seq := w.st.dim.Render(fmt.Sprintf("#%d", u.Seq))
	for _, op := range u.Ops {
		switch op.Kind {
		case domain.ViewAdd:
			fmt.Fprintf(w.out, "%s + %s %s %s\n", seq, w.st.title.Render(op.Container.Name),
				w.st.status(op.Container.Status), w.st.dim.Render(shortID(op.Container.ID)))
		case domain.ViewInPlace:
			fmt.Fprintf(w.out, "%s ~ %s %s %s\n", seq, w.st.title.Render(op.Container.Name),
				w.st.status(op.Container.Status), w.st.dim.Render(shortID(op.Container.ID)))
		case domain.ViewRemove:
			fmt.Fprintf(w.out, "%s - %s\n", seq, w.st.dim.Render(shortID(op.Key)))
		}
	}
}

func (w *Watcher) printAction(ev hub.ActionEvent) {
	req := w.st.dim.Render(shortRequest(ev.RequestID))
	name := ev.Container.Name
	if name == "" {
		name = "all"
	}
	if ev.Error != "" {
		fmt.Fprintf(w.out, "%s %s %s %s: %s\n", w.st.failed.Render("✗"), ev.Action, name, req, ev.Error)
		return
	}
	fmt.Fprintf(w.out, "%s %s %s %s\n", w.st.ok.Render("✓"), ev.Action, name, req)
}

func shortRequest(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
