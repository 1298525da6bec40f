package ports

import (
	"context"
	"testing"
	"time"

	"github.com/githubixx/edcbmon-go/internal/domain"
)

// ClientFactory creates an EDCBClient backed by the given server state and
// returns a cleanup function.
type ClientFactory func(t *testing.T, reserves []domain.ReserveData, tuners []domain.TunerReserveInfo, events []domain.EpgEventInfo) (EDCBClient, func())

var contractStart = time.Date(2026, 3, 1, 21, 0, 0, 0, time.Local)

func contractFixtures() ([]domain.ReserveData, []domain.TunerReserveInfo, []domain.EpgEventInfo) {
	news := domain.NewReserveData()
	news.ReserveID = 1
	news.Title = "News"
	news.StartTime = contractStart
	news.DurationSecond = 1800
	news.OriginalNetworkID, news.TransportStreamID, news.ServiceID, news.EventID = 4, 16625, 211, 100

	slot := domain.NewReserveData()
	slot.ReserveID = 2
	slot.Title = "Slot"
	slot.StartTime = contractStart.Add(time.Hour)
	slot.DurationSecond = 3600
	slot.OriginalNetworkID, slot.TransportStreamID, slot.ServiceID = 4, 16625, 211
	slot.EventID = domain.ProgramReserveEventID

	tuners := []domain.TunerReserveInfo{{TunerID: 0x00010001, TunerName: "PT3-T", ReserveList: []uint32{1, 2}}}

	events := []domain.EpgEventInfo{{
		OriginalNetworkID: 4, TransportStreamID: 16625, ServiceID: 211, EventID: 100,
		StartTimeFlag: 1, StartTime: contractStart, DurationFlag: 1, DurationSec: 1800,
		ShortInfo: &domain.EpgShortEventInfo{EventName: "News"},
	}}
	return []domain.ReserveData{news, slot}, tuners, events
}

// RunEDCBClientContractTests runs the complete contract test suite against an EDCBClient implementation.
// This ensures that all implementations (real CtrlCmd client, mocks) behave consistently.
func RunEDCBClientContractTests(t *testing.T, factory ClientFactory) {
	t.Run("Reserves", func(t *testing.T) { testReserves(t, factory) })
	t.Run("ReserveChanges", func(t *testing.T) { testReserveChanges(t, factory) })
	t.Run("Tuners", func(t *testing.T) { testTuners(t, factory) })
	t.Run("ProgramInfo", func(t *testing.T) { testProgramInfo(t, factory) })
}

func newContractClient(t *testing.T, factory ClientFactory) (EDCBClient, context.Context) {
	t.Helper()
	reserves, tuners, events := contractFixtures()
	client, cleanup := factory(t, reserves, tuners, events)
	t.Cleanup(cleanup)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return client, ctx
}

func testReserves(t *testing.T, factory ClientFactory) {
	t.Run("EnumReserve", func(t *testing.T) {
		client, ctx := newContractClient(t, factory)

		list, err := client.EnumReserve(ctx)
		if err != nil {
			t.Fatalf("EnumReserve failed: %v", err)
		}
		if len(list) != 2 {
			t.Fatalf("Expected 2 reservations, got %d", len(list))
		}
		if list[0].Title != "News" || !list[0].StartTime.Equal(contractStart) {
			t.Errorf("Unexpected first reservation: %+v", list[0])
		}
		if !list[1].IsProgramReserve() {
			t.Errorf("Second reservation should be a program reserve")
		}
	})

	t.Run("GetReserve", func(t *testing.T) {
		client, ctx := newContractClient(t, factory)

		r, err := client.GetReserve(ctx, 1)
		if err != nil {
			t.Fatalf("GetReserve failed: %v", err)
		}
		if r.ReserveID != 1 || r.Title != "News" {
			t.Errorf("Unexpected reservation: %+v", r)
		}

		if _, err := client.GetReserve(ctx, 999); err == nil {
			t.Error("GetReserve should fail for an unknown id")
		}
	})

	t.Run("ServerAvailable", func(t *testing.T) {
		client, _ := newContractClient(t, factory)
		if !client.ServerAvailable() {
			t.Error("ServerAvailable should be true")
		}
	})
}

func testReserveChanges(t *testing.T, factory ClientFactory) {
	t.Run("AddReserve", func(t *testing.T) {
		client, ctx := newContractClient(t, factory)

		add := domain.NewReserveData()
		add.Title = "Movie"
		add.StartTime = contractStart.Add(3 * time.Hour)
		if err := client.AddReserve(ctx, []domain.ReserveData{add}); err != nil {
			t.Fatalf("AddReserve failed: %v", err)
		}

		list, err := client.EnumReserve(ctx)
		if err != nil {
			t.Fatalf("EnumReserve failed: %v", err)
		}
		if len(list) != 3 {
			t.Fatalf("Expected 3 reservations, got %d", len(list))
		}
		if id := list[2].ReserveID; id == 0 || id == 1 || id == 2 {
			t.Errorf("New reservation should get a fresh id, got %d", id)
		}
	})

	t.Run("ChgReserve", func(t *testing.T) {
		client, ctx := newContractClient(t, factory)

		list, err := client.EnumReserve(ctx)
		if err != nil {
			t.Fatalf("EnumReserve failed: %v", err)
		}
		list[0].RecSetting.SetEnabled(false)
		if err := client.ChgReserve(ctx, list[:1]); err != nil {
			t.Fatalf("ChgReserve failed: %v", err)
		}

		r, err := client.GetReserve(ctx, list[0].ReserveID)
		if err != nil {
			t.Fatalf("GetReserve failed: %v", err)
		}
		if r.RecSetting.IsEnabled() {
			t.Error("Reservation should be disabled after ChgReserve")
		}
	})

	t.Run("DelReserve", func(t *testing.T) {
		client, ctx := newContractClient(t, factory)

		if err := client.DelReserve(ctx, []uint32{2}); err != nil {
			t.Fatalf("DelReserve failed: %v", err)
		}
		list, err := client.EnumReserve(ctx)
		if err != nil {
			t.Fatalf("EnumReserve failed: %v", err)
		}
		if len(list) != 1 || list[0].ReserveID != 1 {
			t.Errorf("Expected only reservation 1 to remain, got %+v", list)
		}
	})
}

func testTuners(t *testing.T, factory ClientFactory) {
	client, ctx := newContractClient(t, factory)

	tuners, err := client.EnumTunerReserve(ctx)
	if err != nil {
		t.Fatalf("EnumTunerReserve failed: %v", err)
	}
	if len(tuners) != 1 || tuners[0].TunerName != "PT3-T" || len(tuners[0].ReserveList) != 2 {
		t.Errorf("Unexpected tuners: %+v", tuners)
	}
}

func testProgramInfo(t *testing.T, factory ClientFactory) {
	t.Run("GetPgInfo", func(t *testing.T) {
		client, ctx := newContractClient(t, factory)
		key := domain.EventKey{OriginalNetworkID: 4, TransportStreamID: 16625, ServiceID: 211, EventID: 100}

		e, err := client.GetPgInfo(ctx, key.PgID())
		if err != nil {
			t.Fatalf("GetPgInfo failed: %v", err)
		}
		if e.Key() != key || e.ShortInfo == nil || e.ShortInfo.EventName != "News" {
			t.Errorf("Unexpected event: %+v", e)
		}

		key.EventID = 101
		if _, err := client.GetPgInfo(ctx, key.PgID()); err == nil {
			t.Error("GetPgInfo should fail for an unknown event")
		}
	})

	t.Run("EnumPgInfo", func(t *testing.T) {
		client, ctx := newContractClient(t, factory)

		events, err := client.EnumPgInfo(ctx, domain.ServiceKey(4, 16625, 211))
		if err != nil {
			t.Fatalf("EnumPgInfo failed: %v", err)
		}
		if len(events) != 1 || !events[0].Covers(contractStart) {
			t.Errorf("Unexpected events: %+v", events)
		}
	})
}
