package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/githubixx/edcbmon-go/internal/domain"
)

// ReserveItem is a reservation joined with its program and tuner assignment
type ReserveItem struct {
	Data      domain.ReserveData
	EventInfo *domain.EpgEventInfo

	AllocatedTunerID   *uint32
	AllocatedTunerName string
	// TunerNames maps every known tuner id to its driver name.
	TunerNames map[uint32]string

	// Server-wide margins in seconds, used unless the reservation sets its own.
	DefaultStartMargin int32
	DefaultEndMargin   int32
}

// StartMargin returns the margin applied before the scheduled start.
func (it *ReserveItem) StartMargin() time.Duration {
	if it.Data.RecSetting.UseMargineFlag != 0 {
		return time.Duration(it.Data.RecSetting.StartMargine) * time.Second
	}
	return time.Duration(it.DefaultStartMargin) * time.Second
}

// EndMargin returns the margin applied after the scheduled end.
func (it *ReserveItem) EndMargin() time.Duration {
	if it.Data.RecSetting.UseMargineFlag != 0 {
		return time.Duration(it.Data.RecSetting.EndMargine) * time.Second
	}
	return time.Duration(it.DefaultEndMargin) * time.Second
}

// EffectiveStart is when recording begins.
func (it *ReserveItem) EffectiveStart() time.Time {
	return it.Data.StartTime.Add(-it.StartMargin())
}

// EffectiveEnd is when recording stops.
func (it *ReserveItem) EffectiveEnd() time.Time {
	return it.Data.EndTime().Add(it.EndMargin())
}

// IsEnabled reports whether the reservation will record.
func (it *ReserveItem) IsEnabled() bool {
	return it.Data.RecSetting.IsEnabled()
}

// IsRecording reports whether an enabled reservation has started. A
// reservation past its end still counts until the server drops it.
func (it *ReserveItem) IsRecording(now time.Time) bool {
	return it.IsEnabled() && !now.Before(it.EffectiveStart())
}

// Progress returns the recorded fraction in [0, 1].
func (it *ReserveItem) Progress(now time.Time) float64 {
	if !it.IsRecording(now) {
		return 0
	}
	start, end := it.EffectiveStart(), it.EffectiveEnd()
	total := end.Sub(start)
	if total <= 0 || !now.Before(end) {
		return 1
	}
	return float64(now.Sub(start)) / float64(total)
}

// Remaining returns the time left until EffectiveEnd, rounded up to the minute.
func (it *ReserveItem) Remaining(now time.Time) time.Duration {
	left := it.EffectiveEnd().Sub(now)
	if left <= 0 {
		return 0
	}
	return (left + time.Minute - 1).Truncate(time.Minute)
}

// Description returns the short program text on one line, or "" without
// program info.
func (it *ReserveItem) Description() string {
	if it.EventInfo == nil || it.EventInfo.ShortInfo == nil {
		return ""
	}
	return descReplacer.Replace(it.EventInfo.ShortInfo.TextChar)
}

var descReplacer = strings.NewReplacer("\r\n", " ", "\n", " ")

// TunerLabel describes the tuner that will record the reservation.
func (it *ReserveItem) TunerLabel() string {
	if !it.IsEnabled() {
		return "ID:FFFFFFFF (disabled)"
	}
	if it.AllocatedTunerID != nil {
		if it.AllocatedTunerName == "" {
			return fmt.Sprintf("ID:%08X", *it.AllocatedTunerID)
		}
		return fmt.Sprintf("ID:%08X (%s)", *it.AllocatedTunerID, it.AllocatedTunerName)
	}
	return it.ForcedTunerLabel()
}

// ForcedTunerLabel describes the tuner pinned by the recording setting.
func (it *ReserveItem) ForcedTunerLabel() string {
	id := it.Data.RecSetting.TunerID
	if id == 0 {
		return "auto"
	}
	if name := it.TunerNames[id]; name != "" {
		return fmt.Sprintf("ID:%08X (%s)", id, name)
	}
	if it.AllocatedTunerID != nil && *it.AllocatedTunerID == id && it.AllocatedTunerName != "" {
		return fmt.Sprintf("ID:%08X (%s)", id, it.AllocatedTunerName)
	}
	return fmt.Sprintf("ID:%08X", id)
}

// NetworkName classifies the original network id.
func (it *ReserveItem) NetworkName() string {
	onid := it.Data.OriginalNetworkID
	switch {
	case onid == 0x0004:
		return "BS"
	case onid == 0x0006:
		return "CS1"
	case onid == 0x0007:
		return "CS2"
	case onid == 0x000A:
		return "SKY"
	case onid >= 0x7880 && onid <= 0x7FE8:
		return "Terrestrial"
	case onid == 0:
		return ""
	default:
		return fmt.Sprintf("ONID:0x%04X", onid)
	}
}

// ReserveView is the flattened form of a ReserveItem for JSON output
type ReserveView struct {
	ID          uint32    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Station     string    `json:"station" yaml:"station"`
	Network     string    `json:"network" yaml:"network"`
	Start       time.Time `json:"start" yaml:"start"`
	DurationSec uint32    `json:"duration_sec" yaml:"duration_sec"`
	Enabled     bool      `json:"enabled" yaml:"enabled"`
	Recording   bool      `json:"recording" yaml:"recording"`
	Program     bool      `json:"program_reserve" yaml:"program_reserve"`
	Tuner       string    `json:"tuner" yaml:"tuner"`
	Progress    float64   `json:"progress" yaml:"progress"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
}

// View flattens the item as seen at now.
func (it *ReserveItem) View(now time.Time) ReserveView {
	return ReserveView{
		ID:          it.Data.ReserveID,
		Title:       it.Data.Title,
		Station:     it.Data.StationName,
		Network:     it.NetworkName(),
		Start:       it.Data.StartTime,
		DurationSec: it.Data.DurationSecond,
		Enabled:     it.IsEnabled(),
		Recording:   it.IsRecording(now),
		Program:     it.Data.IsProgramReserve(),
		Tuner:       it.TunerLabel(),
		Progress:    it.Progress(now),
		Description: it.Description(),
	}
}
