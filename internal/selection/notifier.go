// Package selection tracks the currently selected station and notifies
// subscribers when it changes.
package selection

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/couchcryptid/station-weather/internal/domain"
	"github.com/couchcryptid/station-weather/internal/observability"
)

// Observer is notified on every selection. Implementations must be
// comparable so they can be unsubscribed; use pointer receivers.
type Observer interface {
	StationSelected(ctx context.Context, st *domain.Station)
}

// Notifier holds the current selection and an ordered list of observers.
type Notifier struct {
	logger  *slog.Logger
	metrics *observability.Metrics

	mu        sync.Mutex
	observers []Observer
	selected  *domain.Station
}

// NewNotifier creates a notifier with no observers and no selection.
func NewNotifier(logger *slog.Logger, metrics *observability.Metrics) *Notifier {
	return &Notifier{logger: logger, metrics: metrics}
}

// Subscribe appends o unless it is already subscribed.
func (n *Notifier) Subscribe(o Observer) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if slices.Contains(n.observers, o) {
		return
	}
	n.observers = append(n.observers, o)
}

// Unsubscribe removes o. Removing an observer that is not subscribed is a no-op.
func (n *Notifier) Unsubscribe(o Observer) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.observers = slices.DeleteFunc(n.observers, func(existing Observer) bool {
		return existing == o
	})
}

// Len returns the number of subscribed observers.
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.observers)
}

// Selected returns the most recently selected station, or nil.
func (n *Notifier) Selected() *domain.Station {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.selected
}

// Select records st as the current selection and notifies every observer
// synchronously, in subscription order. Observers see the subscriber list as
// it was when Select was called; a Select made from inside an observer runs
// its own pass.
func (n *Notifier) Select(ctx context.Context, st *domain.Station) {
	n.mu.Lock()
	n.selected = st
	observers := slices.Clone(n.observers)
	n.mu.Unlock()

	if st != nil {
		n.logger.Debug("station selected", "station_id", st.ID, "observers", len(observers))
	}
	n.metrics.StationSelections.Inc()

	for _, o := range observers {
		o.StationSelected(ctx, st)
	}
}
