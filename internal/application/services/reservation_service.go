package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/githubixx/edcbmon-go/internal/domain"
	"github.com/githubixx/edcbmon-go/internal/ports"
)

// RetryPolicy bounds how often an operation is attempted
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// ReservationConfig holds the service settings
type ReservationConfig struct {
	// Margins in seconds applied to reservations without their own.
	DefaultStartMargin int32
	DefaultEndMargin   int32

	EnumRetry   RetryPolicy
	ChangeRetry RetryPolicy
}

// DefaultReservationConfig returns the settings EpgTimerSrv ships with.
func DefaultReservationConfig() ReservationConfig {
	return ReservationConfig{
		DefaultStartMargin: 5,
		DefaultEndMargin:   2,
		EnumRetry:          RetryPolicy{Attempts: 5, Delay: 500 * time.Millisecond},
		ChangeRetry:        RetryPolicy{Attempts: 3, Delay: 200 * time.Millisecond},
	}
}

// ReservationService reads and changes reservations on the server. Only one
// operation talks to the server at a time.
type ReservationService struct {
	client ports.EDCBClient
	cfg    ReservationConfig
	logger *slog.Logger
	gate   chan struct{}
}

// NewReservationService creates a new reservation service
func NewReservationService(client ports.EDCBClient, cfg ReservationConfig, logger *slog.Logger) *ReservationService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ReservationService{
		client: client,
		cfg:    cfg,
		logger: logger,
		gate:   make(chan struct{}, 1),
	}
}

func (s *ReservationService) acquire(ctx context.Context) error {
	select {
	case s.gate <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ReservationService) release() { <-s.gate }

// GetReservations returns all reservations with their program info and tuner
// assignment, sorted by start time.
func (s *ReservationService) GetReservations(ctx context.Context) ([]ReserveItem, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.release()

	var items []ReserveItem
	err := s.retry(ctx, "get reservations", s.cfg.EnumRetry, func() error {
		var err error
		items, err = s.collect(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get reservations: %w", err)
	}
	return items, nil
}

func (s *ReservationService) collect(ctx context.Context) ([]ReserveItem, error) {
	tunerByReserve := map[uint32]domain.TunerReserveInfo{}
	var tunerNames map[uint32]string
	if tuners, err := s.client.EnumTunerReserve(ctx); err == nil {
		tunerNames = make(map[uint32]string, len(tuners))
		for _, t := range tuners {
			tunerNames[t.TunerID] = t.TunerName
			for _, id := range t.ReserveList {
				if _, seen := tunerByReserve[id]; !seen {
					tunerByReserve[id] = t
				}
			}
		}
	} else {
		s.logger.Debug("tuner assignment unavailable", slog.Any("error", err))
	}

	reserves, err := s.client.EnumReserve(ctx)
	if err != nil {
		return nil, err
	}

	// Program reservations share one event list per service.
	serviceEvents := map[uint64][]domain.EpgEventInfo{}

	items := make([]ReserveItem, 0, len(reserves))
	for _, r := range reserves {
		item := ReserveItem{
			Data:               r,
			TunerNames:         tunerNames,
			DefaultStartMargin: s.cfg.DefaultStartMargin,
			DefaultEndMargin:   s.cfg.DefaultEndMargin,
		}
		if t, ok := tunerByReserve[r.ReserveID]; ok {
			id := t.TunerID
			item.AllocatedTunerID = &id
			item.AllocatedTunerName = t.TunerName
		}

		if !r.IsProgramReserve() {
			if e, err := s.client.GetPgInfo(ctx, r.EventKey().PgID()); err == nil {
				item.EventInfo = &e
			}
		} else {
			key := r.ServiceKey()
			events, cached := serviceEvents[key]
			if !cached {
				events, err = s.client.EnumPgInfo(ctx, key)
				if err != nil {
					events = nil
				}
				serviceEvents[key] = events
			}
			for i := range events {
				if events[i].Covers(r.StartTime) {
					e := events[i]
					item.EventInfo = &e
					break
				}
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, backoff.Permanent(err)
		}
		items = append(items, item)
	}

	slices.SortStableFunc(items, func(a, b ReserveItem) int {
		return a.Data.StartTime.Compare(b.Data.StartTime)
	})
	return items, nil
}

// ToggleReservations flips the enabled state of the given reservations.
// Unknown ids are ignored.
func (s *ReservationService) ToggleReservations(ctx context.Context, ids []uint32) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	err := s.retry(ctx, "toggle reservations", s.cfg.ChangeRetry, func() error {
		list, err := s.client.EnumReserve(ctx)
		if err != nil {
			return fmt.Errorf("enumerate: %w", err)
		}

		var changes []domain.ReserveData
		for _, r := range list {
			if !slices.Contains(ids, r.ReserveID) {
				continue
			}
			r.RecSetting.SetEnabled(!r.RecSetting.IsEnabled())
			changes = append(changes, r)
		}
		if len(changes) == 0 {
			return nil
		}
		return s.client.ChgReserve(ctx, changes)
	})
	if err != nil {
		return fmt.Errorf("toggle reservations: %w", err)
	}
	return nil
}

// DeleteReservations removes the given reservations.
func (s *ReservationService) DeleteReservations(ctx context.Context, ids []uint32) error {
	if len(ids) == 0 {
		return domain.ErrInvalidInput
	}
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	err := s.retry(ctx, "delete reservations", s.cfg.ChangeRetry, func() error {
		return s.client.DelReserve(ctx, ids)
	})
	if err != nil {
		return fmt.Errorf("delete reservations: %w", err)
	}
	return nil
}

// retry runs op up to p.Attempts times with a constant pause. Connection
// failures are expected while the server starts and are logged at debug.
func (s *ReservationService) retry(ctx context.Context, name string, p RetryPolicy, op func() error) error {
	attempts := max(p.Attempts, 1)
	attempt := 0
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Delay), uint64(attempts-1)),
		ctx,
	)
	return backoff.Retry(func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrInvalidInput) {
			return backoff.Permanent(err)
		}

		level := slog.LevelWarn
		if errors.Is(err, domain.ErrConnection) {
			level = slog.LevelDebug
		}
		s.logger.Log(ctx, level, name+" failed",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
			slog.Any("error", err),
		)
		return err
	}, b)
}
