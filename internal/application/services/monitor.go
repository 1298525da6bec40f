package services

import (
	"context"
	"log/slog"
	"time"
)

// ReservationLister is the part of ReservationService the monitor polls.
type ReservationLister interface {
	GetReservations(ctx context.Context) ([]ReserveItem, error)
}

// Snapshot is the result of one successful poll
type Snapshot struct {
	At    time.Time
	Items []ReserveItem
}

// Recording returns the items recording at the snapshot time.
func (s Snapshot) Recording() []ReserveItem {
	var out []ReserveItem
	for _, it := range s.Items {
		if it.IsRecording(s.At) {
			out = append(out, it)
		}
	}
	return out
}

// Monitor polls the reservation list at a fixed interval
type Monitor struct {
	lister   ReservationLister
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewMonitor creates a monitor polling every interval
func NewMonitor(lister ReservationLister, interval time.Duration, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Monitor{
		lister:   lister,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Run polls immediately and then every interval until ctx is done, passing
// each successful result to fn. Failed polls are logged and skipped.
func (m *Monitor) Run(ctx context.Context, fn func(Snapshot)) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		m.poll(ctx, fn)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (m *Monitor) poll(ctx context.Context, fn func(Snapshot)) {
	items, err := m.lister.GetReservations(ctx)
	if err != nil {
		if ctx.Err() == nil {
			m.logger.Warn("poll reservations failed", slog.Any("error", err))
		}
		return
	}
	snap := Snapshot{At: m.now(), Items: items}
	m.logger.Debug("polled reservations",
		slog.Int("reservations", len(items)),
		slog.Int("recording", len(snap.Recording())),
	)
	fn(snap)
}
