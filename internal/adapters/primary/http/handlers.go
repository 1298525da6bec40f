package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/githubixx/edcbmon-go/internal/application/services"
	"github.com/githubixx/edcbmon-go/internal/domain"
)

// ReservationManager changes reservations on the server
type ReservationManager interface {
	ToggleReservations(ctx context.Context, ids []uint32) error
	DeleteReservations(ctx context.Context, ids []uint32) error
}

// Handler serves the latest monitor snapshot and forwards changes to the
// reservation service.
type Handler struct {
	logger *slog.Logger
	svc    ReservationManager

	mu       sync.RWMutex
	snapshot services.Snapshot
	has      bool
}

// NewHandler creates a new HTTP handler
func NewHandler(svc ReservationManager, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{logger: logger, svc: svc}
}

// SetSnapshot replaces the snapshot served by the read endpoints.
func (h *Handler) SetSnapshot(s services.Snapshot) {
	h.mu.Lock()
	h.snapshot, h.has = s, true
	h.mu.Unlock()
}

func (h *Handler) current() (services.Snapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snapshot, h.has
}

type snapshotResponse struct {
	At           time.Time              `json:"at"`
	Reservations []services.ReserveView `json:"reservations"`
}

// Health reports whether a poll has succeeded yet
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	s, ok := h.current()
	if !ok {
		http.Error(w, "no snapshot yet", http.StatusServiceUnavailable)
		return
	}
	h.writeJSON(w, r, http.StatusOK, map[string]any{
		"status":       "ok",
		"at":           s.At,
		"reservations": len(s.Items),
	})
}

// Reservations returns every reservation of the latest snapshot
func (h *Handler) Reservations(w http.ResponseWriter, r *http.Request) {
	h.serveItems(w, r, func(s services.Snapshot) []services.ReserveItem { return s.Items })
}

// Recording returns the reservations recording at the snapshot time
func (h *Handler) Recording(w http.ResponseWriter, r *http.Request) {
	h.serveItems(w, r, services.Snapshot.Recording)
}

func (h *Handler) serveItems(w http.ResponseWriter, r *http.Request, pick func(services.Snapshot) []services.ReserveItem) {
	s, ok := h.current()
	if !ok {
		http.Error(w, "no snapshot yet", http.StatusServiceUnavailable)
		return
	}
	items := pick(s)
	views := make([]services.ReserveView, 0, len(items))
	for _, it := range items {
		views = append(views, it.View(s.At))
	}
	h.writeJSON(w, r, http.StatusOK, snapshotResponse{At: s.At, Reservations: views})
}

// Toggle flips the enabled state of one reservation
func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, err := reserveID(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	if err := h.svc.ToggleReservations(r.Context(), []uint32{id}); err != nil {
		h.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete removes one reservation
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := reserveID(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	if err := h.svc.DeleteReservations(r.Context(), []uint32{id}); err != nil {
		h.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func reserveID(r *http.Request) (uint32, error) {
	raw := r.PathValue("id")
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: reservation id %q", domain.ErrInvalidInput, raw)
	}
	return uint32(v), nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("encode response failed", slog.Any("error", err), slog.String("path", r.URL.Path))
	}
}

func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("handler error", slog.Any("error", err), slog.String("path", r.URL.Path))

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		http.Error(w, "Bad Request", http.StatusBadRequest)
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "Not Found", http.StatusNotFound)
	case errors.Is(err, domain.ErrConnection), errors.Is(err, domain.ErrTimeout), errors.Is(err, domain.ErrDisconnected):
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
	case errors.Is(err, domain.ErrRejected):
		http.Error(w, "Bad Gateway", http.StatusBadGateway)
	default:
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
