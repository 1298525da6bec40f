package domain

import "time"

// ProgramReserveEventID marks a reservation that is bound to a time slot
// instead of an EPG event.
const ProgramReserveEventID uint16 = 0xFFFF

// Recording styles selected by RecMode % 5.
const (
	RecStyleAllServices       byte = 0
	RecStyleSpecifiedServices byte = 1
	RecStyleAllServicesNoDec  byte = 2
	RecStyleSpecifiedNoDec    byte = 3
	RecStyleView              byte = 4
)

const (
	recModeDisabledOffset byte = 5
	recModeStyleCount     byte = 5
)

// EventKey identifies a program event.
type EventKey struct {
	OriginalNetworkID uint16
	TransportStreamID uint16
	ServiceID         uint16
	EventID           uint16
}

// PgID packs the key into the 64-bit program id used by the server.
func (k EventKey) PgID() uint64 {
	return uint64(k.OriginalNetworkID)<<48 |
		uint64(k.TransportStreamID)<<32 |
		uint64(k.ServiceID)<<16 |
		uint64(k.EventID)
}

// ServiceKey packs a service triple into the 64-bit service key used by the server.
func ServiceKey(onid, tsid, sid uint16) uint64 {
	return uint64(onid)<<32 | uint64(tsid)<<16 | uint64(sid)
}

// EpgEventInfo describes a program event
type EpgEventInfo struct {
	OriginalNetworkID uint16
	TransportStreamID uint16
	ServiceID         uint16
	EventID           uint16
	StartTimeFlag     byte
	StartTime         time.Time // valid only if StartTimeFlag != 0
	DurationFlag      byte
	DurationSec       uint32

	// Optional sub-records; nil means absent on the wire.
	ShortInfo      *EpgShortEventInfo
	ExtInfo        *EpgExtendedEventInfo
	ContentInfo    *EpgContentInfo
	ComponentInfo  *OpaqueRecord
	AudioInfo      *OpaqueRecord
	EventGroupInfo *EpgEventGroupInfo
	EventRelayInfo *EpgEventGroupInfo

	FreeCAFlag byte
}

// Key returns the identifying tuple of the event.
func (e *EpgEventInfo) Key() EventKey {
	return EventKey{
		OriginalNetworkID: e.OriginalNetworkID,
		TransportStreamID: e.TransportStreamID,
		ServiceID:         e.ServiceID,
		EventID:           e.EventID,
	}
}

// Covers reports whether t falls inside the event's broadcast slot.
func (e *EpgEventInfo) Covers(t time.Time) bool {
	if e.StartTimeFlag == 0 {
		return false
	}
	end := e.StartTime.Add(time.Duration(e.DurationSec) * time.Second)
	return !t.Before(e.StartTime) && t.Before(end)
}

// EpgShortEventInfo contains the title and short description
type EpgShortEventInfo struct {
	EventName string
	TextChar  string
}

// EpgExtendedEventInfo contains the extended description
type EpgExtendedEventInfo struct {
	TextChar string
}

// EpgContentInfo contains the genre classification
type EpgContentInfo struct {
	NibbleList []EpgContentData
}

// EpgContentData is a single genre nibble quadruple
type EpgContentData struct {
	ContentNibbleLevel1 byte
	ContentNibbleLevel2 byte
	UserNibble1         byte
	UserNibble2         byte
}

// EpgEventGroupInfo lists events sharing or relaying this one
type EpgEventGroupInfo struct {
	GroupType     byte
	EventDataList []EpgEventData
}

// EpgEventData references another event
type EpgEventData struct {
	OriginalNetworkID uint16
	TransportStreamID uint16
	ServiceID         uint16
	EventID           uint16
}

// OpaqueRecord is a sub-record this client carries without interpreting.
// Payload holds the bytes between the record's size field and its tail.
type OpaqueRecord struct {
	Payload []byte
}

// RecFileSetInfo is one output folder target
type RecFileSetInfo struct {
	RecFolder     string
	WritePlugIn   string
	RecNamePlugIn string
	RecFileName   string
}

// RecSettingData is the recording policy of a reservation
type RecSettingData struct {
	RecMode          byte
	Priority         byte
	TuijyuuFlag      byte // follow program changes
	ServiceMode      uint32
	PittariFlag      byte // exact start/stop
	BatFilePath      string
	RecTag           string
	RecFolderList    []RecFileSetInfo
	SuspendMode      byte
	RebootFlag       byte
	UseMargineFlag   byte
	StartMargine     int32 // seconds
	EndMargine       int32 // seconds
	ContinueRecFlag  byte
	PartialRecFlag   byte
	TunerID          uint32
	PartialRecFolder []RecFileSetInfo // version >= 2
}

// NewRecSettingData returns a recording setting with the server defaults.
func NewRecSettingData() RecSettingData {
	return RecSettingData{
		RecMode:          1,
		Priority:         1,
		TuijyuuFlag:      1,
		StartMargine:     10,
		EndMargine:       5,
		RecFolderList:    []RecFileSetInfo{},
		PartialRecFolder: []RecFileSetInfo{},
	}
}

// DisableRecMode returns the disabled variant of mode.
func DisableRecMode(mode byte) byte {
	if RecModeDisabled(mode) {
		return mode
	}
	return mode + recModeDisabledOffset
}

// EnableRecMode returns the enabled variant of mode.
func EnableRecMode(mode byte) byte {
	return mode % recModeStyleCount
}

// RecModeDisabled reports whether the packed mode carries the disabled toggle.
func RecModeDisabled(mode byte) bool {
	return (mode/recModeDisabledOffset)%2 != 0
}

// IsEnabled reports whether the reservation will record.
func (s *RecSettingData) IsEnabled() bool {
	return !RecModeDisabled(s.RecMode)
}

// SetEnabled toggles the disabled bit of RecMode, keeping the style.
func (s *RecSettingData) SetEnabled(enabled bool) {
	if enabled {
		s.RecMode = EnableRecMode(s.RecMode)
	} else {
		s.RecMode = DisableRecMode(s.RecMode)
	}
}

// RecStyle returns the recording style (0-4).
func (s *RecSettingData) RecStyle() byte {
	return s.RecMode % recModeStyleCount
}

// EpgAutoAddBasicInfo references the auto-add rule that created a reservation
type EpgAutoAddBasicInfo struct {
	DataID uint32
	Key    string
}

// ReserveData is a scheduled recording
type ReserveData struct {
	Title             string
	StartTime         time.Time
	DurationSecond    uint32
	StationName       string
	OriginalNetworkID uint16
	TransportStreamID uint16
	ServiceID         uint16
	EventID           uint16
	Comment           string
	ReserveID         uint32
	UnusedRecWaitFlag byte
	OverlapMode       byte
	UnusedRecFilePath string
	StartTimeEpg      time.Time
	RecSetting        RecSettingData
	ReserveStatus     uint32

	RecFileNameList []string // version >= 5
	UnusedParam1    uint32   // version >= 5

	AutoAddInfo []EpgAutoAddBasicInfo // version >= 6
}

// NewReserveData returns a reservation with the server defaults.
func NewReserveData() ReserveData {
	return ReserveData{
		RecSetting:      NewRecSettingData(),
		RecFileNameList: []string{},
		AutoAddInfo:     []EpgAutoAddBasicInfo{},
	}
}

// IsProgramReserve reports whether the reservation is bound to a time slot.
func (r *ReserveData) IsProgramReserve() bool {
	return r.EventID == ProgramReserveEventID
}

// EventKey returns the program key of the reservation.
func (r *ReserveData) EventKey() EventKey {
	return EventKey{
		OriginalNetworkID: r.OriginalNetworkID,
		TransportStreamID: r.TransportStreamID,
		ServiceID:         r.ServiceID,
		EventID:           r.EventID,
	}
}

// ServiceKey returns the service key of the reservation.
func (r *ReserveData) ServiceKey() uint64 {
	return ServiceKey(r.OriginalNetworkID, r.TransportStreamID, r.ServiceID)
}

// EndTime returns the scheduled end of the reservation.
func (r *ReserveData) EndTime() time.Time {
	return r.StartTime.Add(time.Duration(r.DurationSecond) * time.Second)
}

// TunerReserveInfo lists the reservations assigned to one tuner
type TunerReserveInfo struct {
	TunerID     uint32
	TunerName   string
	ReserveList []uint32
}

// FindReserve returns the reservation with the given id from a fetched list.
func FindReserve(list []ReserveData, id uint32) (*ReserveData, bool) {
	for i := range list {
		if list[i].ReserveID == id {
			return &list[i], true
		}
	}
	return nil, false
}
