package ctrlcmd

import (
	"bytes"
	"encoding/binary"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/githubixx/edcbmon-go/internal/adapters/secondary/ctrlcmd/wire"
	"github.com/githubixx/edcbmon-go/internal/domain"
	"golang.org/x/text/encoding/unicode"
)

func encodeWith[T any](version uint16, v T, enc func(*wire.Writer, T)) []byte {
	w := wire.NewWriter(version)
	enc(w, v)
	return w.Bytes()
}

func sampleRecSetting() domain.RecSettingData {
	s := domain.NewRecSettingData()
	s.ServiceMode = 0x11
	s.BatFilePath = `C:\EDCB\bat\post.bat`
	s.RecTag = "anime"
	s.RecFolderList = []domain.RecFileSetInfo{
		{RecFolder: `D:\rec`, WritePlugIn: "Write_Default.dll", RecNamePlugIn: "RecName_Macro.dll?$Title$.ts"},
	}
	s.UseMargineFlag = 1
	s.StartMargine = -30
	s.EndMargine = 60
	s.TunerID = 0x00010002
	s.PartialRecFolder = []domain.RecFileSetInfo{{RecFolder: `E:\1seg`}}
	return s
}

func sampleReserve() domain.ReserveData {
	r := domain.NewReserveData()
	r.Title = "ニュース7"
	r.StartTime = time.Date(2026, 3, 1, 19, 0, 0, 0, time.Local)
	r.DurationSecond = 1800
	r.StationName = "ＮＨＫ総合１・東京"
	r.OriginalNetworkID = 0x7FE0
	r.TransportStreamID = 0x7FE0
	r.ServiceID = 0x0400
	r.EventID = 0x1234
	r.Comment = "EPG自動予約"
	r.ReserveID = 42
	r.OverlapMode = 1
	r.StartTimeEpg = r.StartTime
	r.RecSetting = sampleRecSetting()
	r.ReserveStatus = 3
	r.RecFileNameList = []string{`D:\rec\news.ts`}
	r.UnusedParam1 = 9
	r.AutoAddInfo = []domain.EpgAutoAddBasicInfo{{DataID: 3, Key: "ニュース"}}
	return r
}

// atVersion clears the fields a peer of the given version never sends.
func atVersion(r domain.ReserveData, version uint16) domain.ReserveData {
	if version < verPartialRecFolder {
		r.RecSetting.PartialRecFolder = []domain.RecFileSetInfo{}
	}
	if version < verRecFileNameList {
		r.RecFileNameList = []string{}
		r.UnusedParam1 = 0
	}
	if version < verAutoAddInfo {
		r.AutoAddInfo = []domain.EpgAutoAddBasicInfo{}
	}
	return r
}

func TestReserveRoundTrip(t *testing.T) {
	for _, version := range []uint16{1, 2, 4, 5, 6} {
		for mode := byte(0); mode <= 9; mode++ {
			in := sampleReserve()
			in.RecSetting.RecMode = mode
			buf := encodeWith(version, in, EncodeReserve)

			r := wire.NewReader(buf, version)
			got, err := DecodeReserve(r)
			if err != nil {
				t.Fatalf("v%d mode %d: DecodeReserve() error: %v", version, mode, err)
			}
			if want := atVersion(in, version); !reflect.DeepEqual(got, want) {
				t.Fatalf("v%d mode %d: round trip mismatch\n got: %+v\nwant: %+v", version, mode, got, want)
			}
			if r.Remaining() != 0 {
				t.Errorf("v%d: %d bytes left after decode", version, r.Remaining())
			}
		}
	}
}

func TestReserveEmptyFields(t *testing.T) {
	in := domain.NewReserveData()
	buf := encodeWith(CurrentVersion, in, EncodeReserve)
	got, err := DecodeReserve(wire.NewReader(buf, CurrentVersion))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, in) {
		t.Errorf("round trip mismatch\n got: %+v\nwant: %+v", got, in)
	}
}

func TestEnvelopeSizeCorruption(t *testing.T) {
	buf := encodeWith(6, sampleReserve(), EncodeReserve)
	if size := binary.LittleEndian.Uint32(buf); int(size) != len(buf) {
		t.Fatalf("declared size %d, encoded %d bytes", size, len(buf))
	}

	for _, delta := range []int{-1, +1} {
		corrupt := append([]byte(nil), buf...)
		binary.LittleEndian.PutUint32(corrupt, uint32(len(buf)+delta))

		_, err := DecodeReserve(wire.NewReader(corrupt, 6))
		if !errors.Is(err, domain.ErrFraming) {
			t.Errorf("size %+d: error = %v, want framing error", delta, err)
		}
	}
}

func TestReserveVersionGates(t *testing.T) {
	in := sampleReserve()

	t.Run("OlderPeer", func(t *testing.T) {
		buf := encodeWith(4, in, EncodeReserve)
		full := encodeWith(5, in, EncodeReserve)
		if len(buf) >= len(full) {
			t.Fatalf("v4 encoding (%d bytes) should be shorter than v5 (%d bytes)", len(buf), len(full))
		}

		atV4, err := DecodeReserve(wire.NewReader(buf, 4))
		if err != nil {
			t.Fatal(err)
		}
		atV6, err := DecodeReserve(wire.NewReader(buf, 6))
		if err != nil {
			t.Fatalf("decoding v4 bytes at v6: %v", err)
		}
		if !reflect.DeepEqual(atV4, atV6) || !reflect.DeepEqual(atV4, atVersion(in, 4)) {
			t.Errorf("v4 bytes decoded differently at v4 and v6")
		}
		if len(atV6.RecFileNameList) != 0 || len(atV6.AutoAddInfo) != 0 || atV6.UnusedParam1 != 0 {
			t.Errorf("v5/v6 fields should stay at defaults: %+v", atV6)
		}
	})

	t.Run("NewerPeer", func(t *testing.T) {
		buf := encodeWith(6, in, EncodeReserve)
		r := wire.NewReader(buf, 4)
		got, err := DecodeReserve(r)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(got, atVersion(in, 4)) {
			t.Errorf("v6 bytes at v4 mismatch: %+v", got)
		}
		if r.Remaining() != 0 {
			t.Errorf("unknown trailing fields should be skipped, %d bytes left", r.Remaining())
		}
	})
}

func TestBatFilePacking(t *testing.T) {
	in := domain.NewReserveData()
	in.Title = "Test"
	in.ReserveID = 42
	in.RecSetting.BatFilePath = `C:\run.bat`
	in.RecSetting.RecTag = "tagA"

	buf := encodeWith(5, in, EncodeReserve)
	packed, _ := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder().String(`C:\run.bat*tagA`)
	if !bytes.Contains(buf, []byte(packed)) {
		t.Fatalf("encoding does not contain packed bat string")
	}

	got, err := DecodeReserve(wire.NewReader(buf, 5))
	if err != nil {
		t.Fatal(err)
	}
	if got.RecSetting.BatFilePath != `C:\run.bat` || got.RecSetting.RecTag != "tagA" {
		t.Errorf("bat/tag = %q/%q", got.RecSetting.BatFilePath, got.RecSetting.RecTag)
	}
	if got.Title != "Test" || got.ReserveID != 42 {
		t.Errorf("title/id = %q/%d", got.Title, got.ReserveID)
	}

	t.Run("NoTagNoSeparator", func(t *testing.T) {
		s := domain.NewRecSettingData()
		s.BatFilePath = `C:\run.bat`
		if packBatFile(&s) != `C:\run.bat` {
			t.Errorf("packBatFile() = %q", packBatFile(&s))
		}
	})

	t.Run("SplitAtFirstSeparator", func(t *testing.T) {
		var s domain.RecSettingData
		unpackBatFile(&s, "a.bat*tag*more")
		if s.BatFilePath != "a.bat" || s.RecTag != "tag*more" {
			t.Errorf("unpackBatFile() = %q/%q", s.BatFilePath, s.RecTag)
		}
	})
}

func TestRecFileSetList(t *testing.T) {
	in := []domain.RecFileSetInfo{
		{RecFolder: `D:\a`, WritePlugIn: "Write_Default.dll"},
		{RecFolder: `D:\b`, RecNamePlugIn: "RecName_Macro.dll", RecFileName: "x.ts"},
		{},
	}
	got, err := DecodeRecFileSetList(wire.NewReader(encodeWith(5, in, EncodeRecFileSetList), 5))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, in) {
		t.Errorf("round trip mismatch: %+v", got)
	}

	empty, err := DecodeRecFileSetList(wire.NewReader(encodeWith(5, nil, EncodeRecFileSetList), 5))
	if err != nil {
		t.Fatal(err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("empty list = %#v, want non-nil empty", empty)
	}
}

func TestRecSettingWithoutPartialFolder(t *testing.T) {
	in := sampleRecSetting()
	buf := encodeWith(1, in, EncodeRecSetting)
	got, err := DecodeRecSetting(wire.NewReader(buf, 1))
	if err != nil {
		t.Fatal(err)
	}
	in.PartialRecFolder = []domain.RecFileSetInfo{}
	if !reflect.DeepEqual(got, in) {
		t.Errorf("round trip mismatch\n got: %+v\nwant: %+v", got, in)
	}
}

func TestEventInfoAllAbsent(t *testing.T) {
	in := domain.EpgEventInfo{
		OriginalNetworkID: 4, TransportStreamID: 16625, ServiceID: 211, EventID: 7,
		StartTimeFlag: 1, StartTime: time.Date(2026, 3, 1, 21, 0, 0, 0, time.Local),
		DurationFlag: 1, DurationSec: 3600,
		FreeCAFlag: 1,
	}
	buf := encodeWith(5, in, EncodeEventInfo)

	// size + ids + flags/time/duration + seven empty envelopes + free CA flag
	if want := 4 + 8 + 1 + 16 + 1 + 4 + 7*4 + 1; len(buf) != want {
		t.Fatalf("encoded %d bytes, want %d", len(buf), want)
	}

	r := wire.NewReader(buf, 5)
	got, err := DecodeEventInfo(r)
	if err != nil {
		t.Fatal(err)
	}
	if got.ShortInfo != nil || got.ExtInfo != nil || got.ContentInfo != nil ||
		got.ComponentInfo != nil || got.AudioInfo != nil ||
		got.EventGroupInfo != nil || got.EventRelayInfo != nil {
		t.Errorf("all sub-records should be nil: %+v", got)
	}
	if got.FreeCAFlag != 1 || r.Remaining() != 0 {
		t.Errorf("FreeCAFlag = %d, %d bytes left", got.FreeCAFlag, r.Remaining())
	}
	if !reflect.DeepEqual(got, in) {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestEventInfoAllPresent(t *testing.T) {
	group := &domain.EpgEventGroupInfo{
		GroupType:     1,
		EventDataList: []domain.EpgEventData{{OriginalNetworkID: 4, TransportStreamID: 16625, ServiceID: 212, EventID: 8}},
	}
	in := domain.EpgEventInfo{
		OriginalNetworkID: 4, TransportStreamID: 16625, ServiceID: 211, EventID: 7,
		StartTimeFlag: 1, StartTime: time.Date(2026, 3, 1, 21, 0, 0, 0, time.Local),
		DurationFlag: 1, DurationSec: 3600,
		ShortInfo:   &domain.EpgShortEventInfo{EventName: "映画", TextChar: "あらすじ"},
		ExtInfo:     &domain.EpgExtendedEventInfo{TextChar: "出演者\r\n..."},
		ContentInfo: &domain.EpgContentInfo{NibbleList: []domain.EpgContentData{{ContentNibbleLevel1: 6, ContentNibbleLevel2: 1, UserNibble1: 0xF, UserNibble2: 0xF}}},
		ComponentInfo:  &domain.OpaqueRecord{Payload: []byte{0xB3, 0x00, 0x01}},
		AudioInfo:      &domain.OpaqueRecord{Payload: []byte{1, 2, 3, 4}},
		EventGroupInfo: group,
		EventRelayInfo: &domain.EpgEventGroupInfo{GroupType: 2, EventDataList: []domain.EpgEventData{}},
	}

	got, err := DecodeEventInfo(wire.NewReader(encodeWith(5, in, EncodeEventInfo), 5))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, in) {
		t.Errorf("round trip mismatch\n got: %+v\nwant: %+v", got, in)
	}

	t.Run("EmptyOpaqueIsAbsent", func(t *testing.T) {
		e := in
		e.ComponentInfo = &domain.OpaqueRecord{}
		got, err := DecodeEventInfo(wire.NewReader(encodeWith(5, e, EncodeEventInfo), 5))
		if err != nil {
			t.Fatal(err)
		}
		if got.ComponentInfo != nil {
			t.Errorf("empty opaque record should decode as absent")
		}
	})
}

func TestEventInfoInvalidStartTime(t *testing.T) {
	in := domain.EpgEventInfo{EventID: 1, StartTimeFlag: 1, DurationSec: 60, FreeCAFlag: 0}
	buf := encodeWith(5, in, EncodeEventInfo)

	// StartTime begins after the size field, four ids and the flag
	binary.LittleEndian.PutUint16(buf[4+8+1:], 2026)
	binary.LittleEndian.PutUint16(buf[4+8+1+2:], 14) // month 14

	got, err := DecodeEventInfo(wire.NewReader(buf, 5))
	if err != nil {
		t.Fatalf("invalid start time should be tolerated: %v", err)
	}
	if !got.StartTime.IsZero() || got.DurationSec != 60 {
		t.Errorf("StartTime = %v, DurationSec = %d", got.StartTime, got.DurationSec)
	}

	t.Run("ReserveRejectsInvalidTime", func(t *testing.T) {
		r := domain.NewReserveData()
		r.StartTime = time.Date(2026, 3, 1, 0, 0, 0, 0, time.Local)
		buf := encodeWith(5, r, EncodeReserve)
		// Title "" is 6 bytes after the record size
		binary.LittleEndian.PutUint16(buf[4+6+2:], 13)
		if _, err := DecodeReserve(wire.NewReader(buf, 5)); !errors.Is(err, wire.ErrInvalidTime) {
			t.Errorf("DecodeReserve() error = %v, want ErrInvalidTime", err)
		}
	})
}

func TestEventInfoList(t *testing.T) {
	in := []domain.EpgEventInfo{{EventID: 1}, {EventID: 2, ShortInfo: &domain.EpgShortEventInfo{EventName: "b"}}}
	got, err := DecodeEventInfoList(wire.NewReader(encodeWith(5, in, EncodeEventInfoList), 5))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, in) {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestTunerReserveList(t *testing.T) {
	in := []domain.TunerReserveInfo{
		{TunerID: 0x00010001, TunerName: "BonDriver_PT3-T.dll", ReserveList: []uint32{1, 42}},
		{TunerID: 0xFFFFFFFF, TunerName: "チューナー不足", ReserveList: []uint32{}},
	}
	got, err := DecodeTunerReserveList(wire.NewReader(encodeWith(0, in, EncodeTunerReserveList), 0))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, in) {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestDecodeErrorLocation(t *testing.T) {
	in := sampleReserve()
	buf := encodeWith(5, in, EncodeReserve)

	// truncate inside the first RecFolderList element
	marker, _ := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder().String(`D:\rec`)
	idx := bytes.Index(buf, []byte(marker))
	if idx < 0 {
		t.Fatal("folder string not found")
	}
	binary.LittleEndian.PutUint32(buf[idx-4:], 3)

	_, err := DecodeReserve(wire.NewReader(buf, 5))
	var fe *wire.FramingError
	if !errors.As(err, &fe) {
		t.Fatalf("error = %v, want *wire.FramingError", err)
	}
	if fe.Stage != "RecFileSetInfo" || fe.Field != "RecFolder" {
		t.Errorf("innermost location = %s.%s", fe.Stage, fe.Field)
	}
	if !strings.Contains(err.Error(), "ReserveData.RecSetting > RecSettingData.RecFolderList > RecFileSetInfo.RecFolder") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestReserveRoundTrip_ServerZone(t *testing.T) {
	jst := time.FixedZone("JST", 9*60*60)
	in := sampleReserve()
	in.StartTime = time.Date(2026, 3, 1, 19, 0, 0, 0, jst)
	in.StartTimeEpg = in.StartTime

	w := wire.NewWriterIn(CurrentVersion, jst)
	EncodeReserve(w, in)
	got, err := DecodeReserve(wire.NewReaderIn(w.Bytes(), CurrentVersion, jst))
	if err != nil {
		t.Fatalf("DecodeReserve() error: %v", err)
	}
	if !reflect.DeepEqual(got, in) {
		t.Fatalf("round trip mismatch\n got: %+v\nwant: %+v", got, in)
	}

	// A UTC caller sees the same instant written as JST wall clock.
	w = wire.NewWriterIn(CurrentVersion, jst)
	utcIn := in
	utcIn.StartTime = in.StartTime.UTC()
	EncodeReserve(w, utcIn)
	got, err = DecodeReserve(wire.NewReaderIn(w.Bytes(), CurrentVersion, jst))
	if err != nil {
		t.Fatalf("DecodeReserve() error: %v", err)
	}
	if !got.StartTime.Equal(in.StartTime) || got.StartTime.Hour() != 19 {
		t.Errorf("expected 19:00 JST, got %v", got.StartTime)
	}
}
