// Command ctrlcmdstub serves a fixed set of reservations over the CtrlCmd
// TCP protocol for integration tests.
package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/githubixx/edcbmon-go/internal/adapters/secondary/ctrlcmd/ctrlcmdtest"
	"github.com/githubixx/edcbmon-go/internal/domain"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	addr := getenv("CTRLCMD_ADDR", ":5678")

	srv := ctrlcmdtest.NewServer(ctrlcmdtest.WithLogger(logger), ctrlcmdtest.WithLocation(time.UTC))
	srv.Seed(seed(time.Now().UTC().Truncate(time.Minute)))

	ln, err := srv.Listen("tcp", addr)
	if err != nil {
		logger.Error("listen failed", slog.String("addr", addr), slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("ctrlcmd stub listening", slog.String("addr", ln.String()))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	_ = srv.Close()
}

// seed returns one reservation recording now, one upcoming program
// reservation and one disabled reservation, with matching program info.
func seed(now time.Time) ([]domain.ReserveData, []domain.TunerReserveInfo, []domain.EpgEventInfo) {
	onAir := domain.NewReserveData()
	onAir.ReserveID = 1
	onAir.Title = "ニュース"
	onAir.StationName = "NHK BS1"
	onAir.StartTime = now.Add(-10 * time.Minute)
	onAir.DurationSecond = 3600
	onAir.OriginalNetworkID, onAir.TransportStreamID, onAir.ServiceID, onAir.EventID = 4, 16625, 101, 1000
	onAir.RecSetting.BatFilePath = `C:\EDCB\post.bat`
	onAir.RecSetting.RecTag = "news"
	onAir.RecSetting.RecFolderList = []domain.RecFileSetInfo{{RecFolder: `D:\録画`, WritePlugIn: "Write_Default.dll"}}

	slot := domain.NewReserveData()
	slot.ReserveID = 2
	slot.Title = "Late slot"
	slot.StationName = "NHK BS1"
	slot.StartTime = now.Add(2 * time.Hour)
	slot.DurationSecond = 1800
	slot.OriginalNetworkID, slot.TransportStreamID, slot.ServiceID = 4, 16625, 101
	slot.EventID = domain.ProgramReserveEventID

	off := domain.NewReserveData()
	off.ReserveID = 3
	off.Title = "Movie"
	off.StationName = "BS Asahi"
	off.StartTime = now.Add(5 * time.Hour)
	off.DurationSecond = 7200
	off.OriginalNetworkID, off.TransportStreamID, off.ServiceID, off.EventID = 4, 16400, 151, 2000
	off.RecSetting.SetEnabled(false)

	tuners := []domain.TunerReserveInfo{
		{TunerID: 0x00010001, TunerName: "BonDriver_PT3-S.dll", ReserveList: []uint32{1, 2}},
		{TunerID: 0x00010002, TunerName: "BonDriver_PT3-S.dll", ReserveList: []uint32{}},
	}

	events := []domain.EpgEventInfo{
		{
			OriginalNetworkID: 4, TransportStreamID: 16625, ServiceID: 101, EventID: 1000,
			StartTimeFlag: 1, StartTime: onAir.StartTime, DurationFlag: 1, DurationSec: 3600,
			ShortInfo:   &domain.EpgShortEventInfo{EventName: "ニュース", TextChar: "今日の出来事"},
			ContentInfo: &domain.EpgContentInfo{NibbleList: []domain.EpgContentData{{ContentNibbleLevel1: 0x0, ContentNibbleLevel2: 0x1}}},
		},
		{
			OriginalNetworkID: 4, TransportStreamID: 16625, ServiceID: 101, EventID: 1001,
			StartTimeFlag: 1, StartTime: slot.StartTime, DurationFlag: 1, DurationSec: 1800,
			ShortInfo: &domain.EpgShortEventInfo{EventName: "Late show"},
		},
	}
	return []domain.ReserveData{onAir, slot, off}, tuners, events
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
