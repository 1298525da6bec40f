package ports

import (
	"context"
	"slices"
	"sync"

	"github.com/githubixx/edcbmon-go/internal/domain"
)

// MockEDCBClient is a flexible test double for EDCBClient with function field customization.
// This is the canonical mock implementation used across all tests.
//
// Usage with function fields (maximum flexibility):
//
//	mock := &ports.MockEDCBClient{
//	    EnumReserveFunc: func(ctx context.Context) ([]domain.ReserveData, error) {
//	        return []domain.ReserveData{{ReserveID: 1, Title: "Test"}}, nil
//	    },
//	}
//
// Usage with builder pattern (convenience):
//
//	mock := ports.NewMockEDCBClient().
//	    WithReserves([]domain.ReserveData{{ReserveID: 1, Title: "Test"}}).
//	    WithTuners([]domain.TunerReserveInfo{{TunerID: 1, ReserveList: []uint32{1}}})
type MockEDCBClient struct {
	// Function fields for custom behavior
	ServerAvailableFunc  func() bool
	EnumReserveFunc      func(ctx context.Context) ([]domain.ReserveData, error)
	GetReserveFunc       func(ctx context.Context, id uint32) (domain.ReserveData, error)
	AddReserveFunc       func(ctx context.Context, list []domain.ReserveData) error
	ChgReserveFunc       func(ctx context.Context, list []domain.ReserveData) error
	DelReserveFunc       func(ctx context.Context, ids []uint32) error
	EnumTunerReserveFunc func(ctx context.Context) ([]domain.TunerReserveInfo, error)
	GetPgInfoFunc        func(ctx context.Context, pgID uint64) (domain.EpgEventInfo, error)
	EnumPgInfoFunc       func(ctx context.Context, serviceKey uint64) ([]domain.EpgEventInfo, error)

	// Data fields for builder pattern
	mu       sync.RWMutex
	reserves []domain.ReserveData
	tuners   []domain.TunerReserveInfo
	events   []domain.EpgEventInfo
	nextID   uint32
}

var _ EDCBClient = (*MockEDCBClient)(nil)

// NewMockEDCBClient creates a new mock with default behavior.
// Use builder methods to configure data or set function fields directly for custom behavior.
func NewMockEDCBClient() *MockEDCBClient {
	return &MockEDCBClient{
		reserves: []domain.ReserveData{},
		tuners:   []domain.TunerReserveInfo{},
		events:   []domain.EpgEventInfo{},
	}
}

// WithReserves sets the reservations returned by EnumReserve.
func (m *MockEDCBClient) WithReserves(reserves []domain.ReserveData) *MockEDCBClient {
	m.reserves = slices.Clone(reserves)
	return m
}

// WithTuners sets the tuner assignments returned by EnumTunerReserve.
func (m *MockEDCBClient) WithTuners(tuners []domain.TunerReserveInfo) *MockEDCBClient {
	m.tuners = tuners
	return m
}

// WithEvents sets the program events served by GetPgInfo and EnumPgInfo.
func (m *MockEDCBClient) WithEvents(events []domain.EpgEventInfo) *MockEDCBClient {
	m.events = events
	return m
}

// Reserves returns a copy of the current reservations.
func (m *MockEDCBClient) Reserves() []domain.ReserveData {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.reserves)
}

// Implementation of EDCBClient interface

func (m *MockEDCBClient) ServerAvailable() bool {
	if m.ServerAvailableFunc != nil {
		return m.ServerAvailableFunc()
	}
	return true
}

func (m *MockEDCBClient) EnumReserve(ctx context.Context) ([]domain.ReserveData, error) {
	if m.EnumReserveFunc != nil {
		return m.EnumReserveFunc(ctx)
	}
	return m.Reserves(), nil
}

func (m *MockEDCBClient) GetReserve(ctx context.Context, id uint32) (domain.ReserveData, error) {
	if m.GetReserveFunc != nil {
		return m.GetReserveFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := domain.FindReserve(m.reserves, id); ok {
		return *r, nil
	}
	return domain.ReserveData{}, domain.ErrNotFound
}

func (m *MockEDCBClient) AddReserve(ctx context.Context, list []domain.ReserveData) error {
	if m.AddReserveFunc != nil {
		return m.AddReserveFunc(ctx, list)
	}
	if len(list) == 0 {
		return domain.ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range list {
		for _, existing := range m.reserves {
			m.nextID = max(m.nextID, existing.ReserveID)
		}
		m.nextID++
		r.ReserveID = m.nextID
		m.reserves = append(m.reserves, r)
	}
	return nil
}

func (m *MockEDCBClient) ChgReserve(ctx context.Context, list []domain.ReserveData) error {
	if m.ChgReserveFunc != nil {
		return m.ChgReserveFunc(ctx, list)
	}
	if len(list) == 0 {
		return domain.ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range list {
		cur, ok := domain.FindReserve(m.reserves, r.ReserveID)
		if !ok {
			return domain.ErrNotFound
		}
		*cur = r
	}
	return nil
}

func (m *MockEDCBClient) DelReserve(ctx context.Context, ids []uint32) error {
	if m.DelReserveFunc != nil {
		return m.DelReserveFunc(ctx, ids)
	}
	if len(ids) == 0 {
		return domain.ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reserves = slices.DeleteFunc(m.reserves, func(r domain.ReserveData) bool {
		return slices.Contains(ids, r.ReserveID)
	})
	return nil
}

func (m *MockEDCBClient) EnumTunerReserve(ctx context.Context) ([]domain.TunerReserveInfo, error) {
	if m.EnumTunerReserveFunc != nil {
		return m.EnumTunerReserveFunc(ctx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tuners, nil
}

func (m *MockEDCBClient) GetPgInfo(ctx context.Context, pgID uint64) (domain.EpgEventInfo, error) {
	if m.GetPgInfoFunc != nil {
		return m.GetPgInfoFunc(ctx, pgID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.events {
		if e.Key().PgID() == pgID {
			return e, nil
		}
	}
	return domain.EpgEventInfo{}, domain.ErrNotFound
}

func (m *MockEDCBClient) EnumPgInfo(ctx context.Context, serviceKey uint64) ([]domain.EpgEventInfo, error) {
	if m.EnumPgInfoFunc != nil {
		return m.EnumPgInfoFunc(ctx, serviceKey)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []domain.EpgEventInfo{}
	for _, e := range m.events {
		if domain.ServiceKey(e.OriginalNetworkID, e.TransportStreamID, e.ServiceID) == serviceKey {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		return nil, domain.ErrNotFound
	}
	return out, nil
}
