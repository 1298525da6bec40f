package ctrlcmd

import (
	"errors"
	"strings"

	"github.com/githubixx/edcbmon-go/internal/adapters/secondary/ctrlcmd/wire"
	"github.com/githubixx/edcbmon-go/internal/domain"
)

// Versions that introduced trailing record fields.
const (
	verPartialRecFolder uint16 = 2
	verRecFileNameList  uint16 = 5
	verAutoAddInfo      uint16 = 6
)

// batTagSeparator joins BatFilePath and RecTag in a single wire string.
const batTagSeparator = "*"

func writeRecord(w *wire.Writer, body func()) {
	m := w.Begin()
	body()
	w.End(m)
}

func readRecord(r *wire.Reader, stage string, body func(f *wire.Fields, env wire.Envelope)) error {
	env, err := r.Begin()
	if err != nil {
		return wire.Annotate(err, stage, "")
	}
	f := wire.NewFields(r, stage)
	body(f, env)
	if err := f.Err(); err != nil {
		return err
	}
	if err := r.End(env); err != nil {
		return wire.Annotate(err, stage, "")
	}
	return nil
}

// gated reports whether a trailing field added in version since is present.
// Streams from older peers end the envelope early, so the envelope bound
// is checked as well as the negotiated version.
func gated(r *wire.Reader, env wire.Envelope, since uint16) bool {
	return r.Version() >= since && r.RemainIn(env) > 0
}

func writeOptional[T any](w *wire.Writer, v *T, write func(*wire.Writer, T)) {
	if v == nil {
		w.WriteAbsent()
		return
	}
	write(w, *v)
}

func readOptional[T any](f *wire.Fields, field string, dst **T, read func(*wire.Reader) (T, error)) {
	f.Do(field, func(r *wire.Reader) error {
		absent, err := r.ProbeAbsent()
		if err != nil || absent {
			return err
		}
		v, err := read(r)
		if err != nil {
			return err
		}
		*dst = &v
		return nil
	})
}

// RecFileSetInfo

func writeRecFileSetInfo(w *wire.Writer, v domain.RecFileSetInfo) {
	writeRecord(w, func() {
		w.WriteString(v.RecFolder)
		w.WriteString(v.WritePlugIn)
		w.WriteString(v.RecNamePlugIn)
		w.WriteString(v.RecFileName)
	})
}

func readRecFileSetInfo(r *wire.Reader) (domain.RecFileSetInfo, error) {
	var v domain.RecFileSetInfo
	err := readRecord(r, "RecFileSetInfo", func(f *wire.Fields, _ wire.Envelope) {
		f.String("RecFolder", &v.RecFolder)
		f.String("WritePlugIn", &v.WritePlugIn)
		f.String("RecNamePlugIn", &v.RecNamePlugIn)
		f.String("RecFileName", &v.RecFileName)
	})
	return v, err
}

// EncodeRecFileSetList writes a list of output folder targets.
func EncodeRecFileSetList(w *wire.Writer, list []domain.RecFileSetInfo) {
	wire.WriteList(w, list, writeRecFileSetInfo)
}

// DecodeRecFileSetList reads a list of output folder targets.
func DecodeRecFileSetList(r *wire.Reader) ([]domain.RecFileSetInfo, error) {
	return wire.ReadList(r, readRecFileSetInfo)
}

// RecSettingData

func packBatFile(s *domain.RecSettingData) string {
	if s.RecTag == "" {
		return s.BatFilePath
	}
	return s.BatFilePath + batTagSeparator + s.RecTag
}

func unpackBatFile(s *domain.RecSettingData, packed string) {
	s.BatFilePath, s.RecTag, _ = strings.Cut(packed, batTagSeparator)
}

// EncodeRecSetting writes a recording setting at the writer's version.
func EncodeRecSetting(w *wire.Writer, v domain.RecSettingData) {
	writeRecord(w, func() {
		w.WriteUint8(v.RecMode)
		w.WriteUint8(v.Priority)
		w.WriteUint8(v.TuijyuuFlag)
		w.WriteUint32(v.ServiceMode)
		w.WriteUint8(v.PittariFlag)
		w.WriteString(packBatFile(&v))
		EncodeRecFileSetList(w, v.RecFolderList)
		w.WriteUint8(v.SuspendMode)
		w.WriteUint8(v.RebootFlag)
		w.WriteUint8(v.UseMargineFlag)
		w.WriteInt32(v.StartMargine)
		w.WriteInt32(v.EndMargine)
		w.WriteUint8(v.ContinueRecFlag)
		w.WriteUint8(v.PartialRecFlag)
		w.WriteUint32(v.TunerID)
		if w.Version() >= verPartialRecFolder {
			EncodeRecFileSetList(w, v.PartialRecFolder)
		}
	})
}

// DecodeRecSetting reads a recording setting at the reader's version.
func DecodeRecSetting(r *wire.Reader) (domain.RecSettingData, error) {
	v := domain.RecSettingData{
		RecFolderList:    []domain.RecFileSetInfo{},
		PartialRecFolder: []domain.RecFileSetInfo{},
	}
	err := readRecord(r, "RecSettingData", func(f *wire.Fields, env wire.Envelope) {
		var bat string
		f.Uint8("RecMode", &v.RecMode)
		f.Uint8("Priority", &v.Priority)
		f.Uint8("TuijyuuFlag", &v.TuijyuuFlag)
		f.Uint32("ServiceMode", &v.ServiceMode)
		f.Uint8("PittariFlag", &v.PittariFlag)
		f.String("BatFilePath", &bat)
		wire.FieldList(f, "RecFolderList", &v.RecFolderList, readRecFileSetInfo)
		f.Uint8("SuspendMode", &v.SuspendMode)
		f.Uint8("RebootFlag", &v.RebootFlag)
		f.Uint8("UseMargineFlag", &v.UseMargineFlag)
		f.Int32("StartMargine", &v.StartMargine)
		f.Int32("EndMargine", &v.EndMargine)
		f.Uint8("ContinueRecFlag", &v.ContinueRecFlag)
		f.Uint8("PartialRecFlag", &v.PartialRecFlag)
		f.Uint32("TunerID", &v.TunerID)
		if f.Err() == nil && gated(r, env, verPartialRecFolder) {
			wire.FieldList(f, "PartialRecFolder", &v.PartialRecFolder, readRecFileSetInfo)
		}
		unpackBatFile(&v, bat)
	})
	return v, err
}

// EpgAutoAddBasicInfo

func writeAutoAddInfo(w *wire.Writer, v domain.EpgAutoAddBasicInfo) {
	writeRecord(w, func() {
		w.WriteUint32(v.DataID)
		w.WriteString(v.Key)
	})
}

func readAutoAddInfo(r *wire.Reader) (domain.EpgAutoAddBasicInfo, error) {
	var v domain.EpgAutoAddBasicInfo
	err := readRecord(r, "EpgAutoAddBasicInfo", func(f *wire.Fields, _ wire.Envelope) {
		f.Uint32("DataID", &v.DataID)
		f.String("Key", &v.Key)
	})
	return v, err
}

// ReserveData

// EncodeReserve writes one reservation at the writer's version.
func EncodeReserve(w *wire.Writer, v domain.ReserveData) {
	writeRecord(w, func() {
		w.WriteString(v.Title)
		w.WriteTime(v.StartTime)
		w.WriteUint32(v.DurationSecond)
		w.WriteString(v.StationName)
		w.WriteUint16(v.OriginalNetworkID)
		w.WriteUint16(v.TransportStreamID)
		w.WriteUint16(v.ServiceID)
		w.WriteUint16(v.EventID)
		w.WriteString(v.Comment)
		w.WriteUint32(v.ReserveID)
		w.WriteUint8(v.UnusedRecWaitFlag)
		w.WriteUint8(v.OverlapMode)
		w.WriteString(v.UnusedRecFilePath)
		w.WriteTime(v.StartTimeEpg)
		EncodeRecSetting(w, v.RecSetting)
		w.WriteUint32(v.ReserveStatus)
		if w.Version() >= verRecFileNameList {
			wire.WriteList(w, v.RecFileNameList, wire.WriteStringElem)
			w.WriteUint32(v.UnusedParam1)
		}
		if w.Version() >= verAutoAddInfo {
			wire.WriteList(w, v.AutoAddInfo, writeAutoAddInfo)
		}
	})
}

// DecodeReserve reads one reservation at the reader's version.
func DecodeReserve(r *wire.Reader) (domain.ReserveData, error) {
	v := domain.ReserveData{
		RecFileNameList: []string{},
		AutoAddInfo:     []domain.EpgAutoAddBasicInfo{},
	}
	err := readRecord(r, "ReserveData", func(f *wire.Fields, env wire.Envelope) {
		f.String("Title", &v.Title)
		f.Time("StartTime", &v.StartTime)
		f.Uint32("DurationSecond", &v.DurationSecond)
		f.String("StationName", &v.StationName)
		f.Uint16("OriginalNetworkID", &v.OriginalNetworkID)
		f.Uint16("TransportStreamID", &v.TransportStreamID)
		f.Uint16("ServiceID", &v.ServiceID)
		f.Uint16("EventID", &v.EventID)
		f.String("Comment", &v.Comment)
		f.Uint32("ReserveID", &v.ReserveID)
		f.Uint8("UnusedRecWaitFlag", &v.UnusedRecWaitFlag)
		f.Uint8("OverlapMode", &v.OverlapMode)
		f.String("UnusedRecFilePath", &v.UnusedRecFilePath)
		f.Time("StartTimeEpg", &v.StartTimeEpg)
		f.Do("RecSetting", func(r *wire.Reader) (err error) {
			v.RecSetting, err = DecodeRecSetting(r)
			return err
		})
		f.Uint32("ReserveStatus", &v.ReserveStatus)
		if f.Err() == nil && gated(r, env, verRecFileNameList) {
			wire.FieldList(f, "RecFileNameList", &v.RecFileNameList, wire.ReadStringElem)
			f.Uint32("UnusedParam1", &v.UnusedParam1)
		}
		if f.Err() == nil && gated(r, env, verAutoAddInfo) {
			wire.FieldList(f, "AutoAddInfo", &v.AutoAddInfo, readAutoAddInfo)
		}
	})
	return v, err
}

// EncodeReserveList writes a list of reservations at the writer's version.
func EncodeReserveList(w *wire.Writer, list []domain.ReserveData) {
	wire.WriteList(w, list, EncodeReserve)
}

// DecodeReserveList reads a list of reservations at the reader's version.
func DecodeReserveList(r *wire.Reader) ([]domain.ReserveData, error) {
	return wire.ReadList(r, DecodeReserve)
}

// TunerReserveInfo

func writeTunerReserveInfo(w *wire.Writer, v domain.TunerReserveInfo) {
	writeRecord(w, func() {
		w.WriteUint32(v.TunerID)
		w.WriteString(v.TunerName)
		wire.WriteList(w, v.ReserveList, wire.WriteUint32Elem)
	})
}

func readTunerReserveInfo(r *wire.Reader) (domain.TunerReserveInfo, error) {
	v := domain.TunerReserveInfo{ReserveList: []uint32{}}
	err := readRecord(r, "TunerReserveInfo", func(f *wire.Fields, _ wire.Envelope) {
		f.Uint32("TunerID", &v.TunerID)
		f.String("TunerName", &v.TunerName)
		wire.FieldList(f, "ReserveList", &v.ReserveList, wire.ReadUint32Elem)
	})
	return v, err
}

// EncodeTunerReserveList writes the tuner assignment list.
func EncodeTunerReserveList(w *wire.Writer, list []domain.TunerReserveInfo) {
	wire.WriteList(w, list, writeTunerReserveInfo)
}

// DecodeTunerReserveList reads the tuner assignment list.
func DecodeTunerReserveList(r *wire.Reader) ([]domain.TunerReserveInfo, error) {
	return wire.ReadList(r, readTunerReserveInfo)
}

// EPG sub-records

func writeShortEventInfo(w *wire.Writer, v domain.EpgShortEventInfo) {
	writeRecord(w, func() {
		w.WriteString(v.EventName)
		w.WriteString(v.TextChar)
	})
}

func readShortEventInfo(r *wire.Reader) (domain.EpgShortEventInfo, error) {
	var v domain.EpgShortEventInfo
	err := readRecord(r, "EpgShortEventInfo", func(f *wire.Fields, _ wire.Envelope) {
		f.String("EventName", &v.EventName)
		f.String("TextChar", &v.TextChar)
	})
	return v, err
}

func writeExtendedEventInfo(w *wire.Writer, v domain.EpgExtendedEventInfo) {
	writeRecord(w, func() {
		w.WriteString(v.TextChar)
	})
}

func readExtendedEventInfo(r *wire.Reader) (domain.EpgExtendedEventInfo, error) {
	var v domain.EpgExtendedEventInfo
	err := readRecord(r, "EpgExtendedEventInfo", func(f *wire.Fields, _ wire.Envelope) {
		f.String("TextChar", &v.TextChar)
	})
	return v, err
}

func writeContentData(w *wire.Writer, v domain.EpgContentData) {
	writeRecord(w, func() {
		w.WriteUint8(v.ContentNibbleLevel1)
		w.WriteUint8(v.ContentNibbleLevel2)
		w.WriteUint8(v.UserNibble1)
		w.WriteUint8(v.UserNibble2)
	})
}

func readContentData(r *wire.Reader) (domain.EpgContentData, error) {
	var v domain.EpgContentData
	err := readRecord(r, "EpgContentData", func(f *wire.Fields, _ wire.Envelope) {
		f.Uint8("ContentNibbleLevel1", &v.ContentNibbleLevel1)
		f.Uint8("ContentNibbleLevel2", &v.ContentNibbleLevel2)
		f.Uint8("UserNibble1", &v.UserNibble1)
		f.Uint8("UserNibble2", &v.UserNibble2)
	})
	return v, err
}

func writeContentInfo(w *wire.Writer, v domain.EpgContentInfo) {
	writeRecord(w, func() {
		wire.WriteList(w, v.NibbleList, writeContentData)
	})
}

func readContentInfo(r *wire.Reader) (domain.EpgContentInfo, error) {
	v := domain.EpgContentInfo{NibbleList: []domain.EpgContentData{}}
	err := readRecord(r, "EpgContentInfo", func(f *wire.Fields, _ wire.Envelope) {
		wire.FieldList(f, "NibbleList", &v.NibbleList, readContentData)
	})
	return v, err
}

func writeEventData(w *wire.Writer, v domain.EpgEventData) {
	writeRecord(w, func() {
		w.WriteUint16(v.OriginalNetworkID)
		w.WriteUint16(v.TransportStreamID)
		w.WriteUint16(v.ServiceID)
		w.WriteUint16(v.EventID)
	})
}

func readEventData(r *wire.Reader) (domain.EpgEventData, error) {
	var v domain.EpgEventData
	err := readRecord(r, "EpgEventData", func(f *wire.Fields, _ wire.Envelope) {
		f.Uint16("OriginalNetworkID", &v.OriginalNetworkID)
		f.Uint16("TransportStreamID", &v.TransportStreamID)
		f.Uint16("ServiceID", &v.ServiceID)
		f.Uint16("EventID", &v.EventID)
	})
	return v, err
}

func writeEventGroupInfo(w *wire.Writer, v domain.EpgEventGroupInfo) {
	writeRecord(w, func() {
		w.WriteUint8(v.GroupType)
		wire.WriteList(w, v.EventDataList, writeEventData)
	})
}

func readEventGroupInfo(r *wire.Reader) (domain.EpgEventGroupInfo, error) {
	v := domain.EpgEventGroupInfo{EventDataList: []domain.EpgEventData{}}
	err := readRecord(r, "EpgEventGroupInfo", func(f *wire.Fields, _ wire.Envelope) {
		f.Uint8("GroupType", &v.GroupType)
		wire.FieldList(f, "EventDataList", &v.EventDataList, readEventData)
	})
	return v, err
}

// writeOpaque reproduces a carried sub-record. An empty payload has the
// wire form of an absent record.
func writeOpaque(w *wire.Writer, v domain.OpaqueRecord) {
	writeRecord(w, func() {
		w.WriteBytes(v.Payload)
	})
}

func readOpaque(r *wire.Reader) (domain.OpaqueRecord, error) {
	var v domain.OpaqueRecord
	err := readRecord(r, "OpaqueRecord", func(f *wire.Fields, env wire.Envelope) {
		f.Do("Payload", func(r *wire.Reader) error {
			b, err := r.ReadBytes(r.RemainIn(env))
			if err != nil {
				return err
			}
			v.Payload = append([]byte(nil), b...)
			return nil
		})
	})
	return v, err
}

// EpgEventInfo

// EncodeEventInfo writes one program event.
func EncodeEventInfo(w *wire.Writer, v domain.EpgEventInfo) {
	writeRecord(w, func() {
		w.WriteUint16(v.OriginalNetworkID)
		w.WriteUint16(v.TransportStreamID)
		w.WriteUint16(v.ServiceID)
		w.WriteUint16(v.EventID)
		w.WriteUint8(v.StartTimeFlag)
		w.WriteTime(v.StartTime)
		w.WriteUint8(v.DurationFlag)
		w.WriteUint32(v.DurationSec)
		writeOptional(w, v.ShortInfo, writeShortEventInfo)
		writeOptional(w, v.ExtInfo, writeExtendedEventInfo)
		writeOptional(w, v.ContentInfo, writeContentInfo)
		writeOptional(w, v.ComponentInfo, writeOpaque)
		writeOptional(w, v.AudioInfo, writeOpaque)
		writeOptional(w, v.EventGroupInfo, writeEventGroupInfo)
		writeOptional(w, v.EventRelayInfo, writeEventGroupInfo)
		w.WriteUint8(v.FreeCAFlag)
	})
}

// DecodeEventInfo reads one program event. A malformed start time is
// tolerated and leaves StartTime zero.
func DecodeEventInfo(r *wire.Reader) (domain.EpgEventInfo, error) {
	var v domain.EpgEventInfo
	err := readRecord(r, "EpgEventInfo", func(f *wire.Fields, _ wire.Envelope) {
		f.Uint16("OriginalNetworkID", &v.OriginalNetworkID)
		f.Uint16("TransportStreamID", &v.TransportStreamID)
		f.Uint16("ServiceID", &v.ServiceID)
		f.Uint16("EventID", &v.EventID)
		f.Uint8("StartTimeFlag", &v.StartTimeFlag)
		f.Do("StartTime", func(r *wire.Reader) error {
			t, err := r.ReadTime()
			if errors.Is(err, wire.ErrInvalidTime) {
				return nil
			}
			v.StartTime = t
			return err
		})
		f.Uint8("DurationFlag", &v.DurationFlag)
		f.Uint32("DurationSec", &v.DurationSec)
		readOptional(f, "ShortInfo", &v.ShortInfo, readShortEventInfo)
		readOptional(f, "ExtInfo", &v.ExtInfo, readExtendedEventInfo)
		readOptional(f, "ContentInfo", &v.ContentInfo, readContentInfo)
		readOptional(f, "ComponentInfo", &v.ComponentInfo, readOpaque)
		readOptional(f, "AudioInfo", &v.AudioInfo, readOpaque)
		readOptional(f, "EventGroupInfo", &v.EventGroupInfo, readEventGroupInfo)
		readOptional(f, "EventRelayInfo", &v.EventRelayInfo, readEventGroupInfo)
		f.Uint8("FreeCAFlag", &v.FreeCAFlag)
	})
	return v, err
}

// EncodeEventInfoList writes a list of program events.
func EncodeEventInfoList(w *wire.Writer, list []domain.EpgEventInfo) {
	wire.WriteList(w, list, EncodeEventInfo)
}

// DecodeEventInfoList reads a list of program events.
func DecodeEventInfoList(r *wire.Reader) ([]domain.EpgEventInfo, error) {
	return wire.ReadList(r, DecodeEventInfo)
}
