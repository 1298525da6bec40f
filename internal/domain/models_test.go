package domain

import (
	"testing"
	"time"
)

// TestEventKeyPgID tests packing of the program id
func TestEventKeyPgID(t *testing.T) {
	k := EventKey{OriginalNetworkID: 0x7FE0, TransportStreamID: 0x7FE1, ServiceID: 0x0400, EventID: 0x1234}
	want := uint64(0x7FE0_7FE1_0400_1234)
	if got := k.PgID(); got != want {
		t.Errorf("PgID() = %#x, want %#x", got, want)
	}

	if got := ServiceKey(0x7FE0, 0x7FE1, 0x0400); got != 0x7FE0_7FE1_0400 {
		t.Errorf("ServiceKey() = %#x, want %#x", got, uint64(0x7FE0_7FE1_0400))
	}
}

// TestRecModeToggle tests the packed enabled/style encoding of RecMode
func TestRecModeToggle(t *testing.T) {
	tests := []struct {
		mode     byte
		disabled bool
		style    byte
	}{
		{0, false, RecStyleAllServices},
		{1, false, RecStyleSpecifiedServices},
		{4, false, RecStyleView},
		{5, true, RecStyleAllServices},
		{6, true, RecStyleSpecifiedServices},
		{9, true, RecStyleView},
	}

	for _, tt := range tests {
		s := RecSettingData{RecMode: tt.mode}
		if got := RecModeDisabled(tt.mode); got != tt.disabled {
			t.Errorf("RecModeDisabled(%d) = %v, want %v", tt.mode, got, tt.disabled)
		}
		if got := s.IsEnabled(); got == tt.disabled {
			t.Errorf("IsEnabled() for mode %d = %v", tt.mode, got)
		}
		if got := s.RecStyle(); got != tt.style {
			t.Errorf("RecStyle() for mode %d = %d, want %d", tt.mode, got, tt.style)
		}
	}

	t.Run("DisableIsIdempotent", func(t *testing.T) {
		if got := DisableRecMode(DisableRecMode(2)); got != 7 {
			t.Errorf("DisableRecMode twice = %d, want 7", got)
		}
	})

	t.Run("SetEnabledKeepsStyle", func(t *testing.T) {
		s := RecSettingData{RecMode: 3}
		s.SetEnabled(false)
		if s.RecMode != 8 || s.IsEnabled() {
			t.Fatalf("after disable RecMode = %d", s.RecMode)
		}
		s.SetEnabled(true)
		if s.RecMode != 3 || !s.IsEnabled() {
			t.Fatalf("after enable RecMode = %d", s.RecMode)
		}
	})
}

// TestNewReserveData tests the server defaults
func TestNewReserveData(t *testing.T) {
	r := NewReserveData()
	if r.RecSetting.RecMode != 1 || r.RecSetting.Priority != 1 || r.RecSetting.TuijyuuFlag != 1 {
		t.Errorf("unexpected rec setting defaults: %+v", r.RecSetting)
	}
	if r.RecSetting.StartMargine != 10 || r.RecSetting.EndMargine != 5 {
		t.Errorf("margins = %d/%d, want 10/5", r.RecSetting.StartMargine, r.RecSetting.EndMargine)
	}
	if r.RecFileNameList == nil || r.AutoAddInfo == nil || r.RecSetting.RecFolderList == nil {
		t.Error("list fields should be non-nil")
	}
}

// TestReserveData tests reservation helpers
func TestReserveData(t *testing.T) {
	start := time.Date(2026, 3, 1, 21, 0, 0, 0, time.UTC)
	r := ReserveData{
		StartTime:         start,
		DurationSecond:    1800,
		OriginalNetworkID: 4,
		TransportStreamID: 16625,
		ServiceID:         211,
		EventID:           ProgramReserveEventID,
	}

	if !r.IsProgramReserve() {
		t.Error("EventID 0xFFFF should be a program reserve")
	}
	if got := r.EndTime(); !got.Equal(start.Add(30 * time.Minute)) {
		t.Errorf("EndTime() = %v", got)
	}
	if got := r.ServiceKey(); got != ServiceKey(4, 16625, 211) {
		t.Errorf("ServiceKey() = %#x", got)
	}

	r.EventID = 100
	if r.IsProgramReserve() {
		t.Error("EventID 100 should not be a program reserve")
	}
	if got := r.EventKey().PgID(); got != uint64(4)<<48|uint64(16625)<<32|uint64(211)<<16|100 {
		t.Errorf("EventKey().PgID() = %#x", got)
	}
}

// TestEpgEventInfoCovers tests the broadcast slot check
func TestEpgEventInfoCovers(t *testing.T) {
	start := time.Date(2026, 3, 1, 21, 0, 0, 0, time.UTC)
	e := EpgEventInfo{StartTimeFlag: 1, StartTime: start, DurationFlag: 1, DurationSec: 3600}

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"AtStart", start, true},
		{"Inside", start.Add(59 * time.Minute), true},
		{"AtEnd", start.Add(time.Hour), false},
		{"Before", start.Add(-time.Second), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.Covers(tt.at); got != tt.want {
				t.Errorf("Covers(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}

	t.Run("NoStartTime", func(t *testing.T) {
		e := EpgEventInfo{StartTime: start, DurationSec: 3600}
		if e.Covers(start) {
			t.Error("event without start time flag should cover nothing")
		}
	})
}

// TestFindReserve tests lookup by reservation id
func TestFindReserve(t *testing.T) {
	list := []ReserveData{{ReserveID: 1, Title: "a"}, {ReserveID: 42, Title: "b"}}

	r, ok := FindReserve(list, 42)
	if !ok || r.Title != "b" {
		t.Fatalf("FindReserve(42) = %v, %v", r, ok)
	}
	r.Title = "changed"
	if list[1].Title != "changed" {
		t.Error("FindReserve should return a pointer into the list")
	}

	if _, ok := FindReserve(list, 7); ok {
		t.Error("FindReserve(7) should not find anything")
	}
}
