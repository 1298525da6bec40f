package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/githubixx/edcbmon-go/internal/application/services"
	"github.com/githubixx/edcbmon-go/internal/domain"
)

const timeLayout = "2006-01-02 15:04"

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func (a *app) structured() bool { return a.format == formatJSON || a.format == formatYAML }

// printData writes v as JSON or YAML.
func (a *app) printData(v any) error {
	if a.format == formatYAML {
		enc := yaml.NewEncoder(a.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			_ = enc.Close()
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) table() *tabwriter.Writer {
	return tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
}

func status(r services.ReserveView) string {
	switch {
	case r.Recording:
		return "REC"
	case !r.Enabled:
		return "disabled"
	default:
		return "enabled"
	}
}

func (a *app) printReservations(items []services.ReserveItem, now time.Time) error {
	rows := make([]services.ReserveView, 0, len(items))
	for _, it := range items {
		rows = append(rows, it.View(now))
	}
	if a.structured() {
		return a.printData(rows)
	}

	tw := a.table()
	fmt.Fprintln(tw, "ID\tSTATUS\tSTART\tDURATION\tSTATION\tTITLE\tTUNER")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, status(r), r.Start.Local().Format(timeLayout),
			formatDuration(r.DurationSec), r.Station, r.Title, r.Tuner)
	}
	return tw.Flush()
}

// formatDuration renders seconds as h:mm.
func formatDuration(sec uint32) string {
	d := time.Duration(sec) * time.Second
	return fmt.Sprintf("%d:%02d", int(d.Hours()), int(d.Minutes())%60)
}

func (a *app) printTuners(tuners []domain.TunerReserveInfo) error {
	if a.structured() {
		return a.printData(tuners)
	}
	tw := a.table()
	fmt.Fprintln(tw, "TUNER\tNAME\tRESERVES")
	for _, t := range tuners {
		ids := make([]string, 0, len(t.ReserveList))
		for _, id := range t.ReserveList {
			ids = append(ids, fmt.Sprint(id))
		}
		fmt.Fprintf(tw, "%08X\t%s\t%s\n", t.TunerID, t.TunerName, strings.Join(ids, ","))
	}
	return tw.Flush()
}

func (a *app) printEvent(e domain.EpgEventInfo) error {
	if a.structured() {
		return a.printData(e)
	}
	tw := a.table()
	fmt.Fprintf(tw, "Key\t%d-%d-%d-%d\n", e.OriginalNetworkID, e.TransportStreamID, e.ServiceID, e.EventID)
	if e.StartTimeFlag != 0 {
		fmt.Fprintf(tw, "Start\t%s\n", e.StartTime.Local().Format(timeLayout))
	}
	if e.DurationFlag != 0 {
		fmt.Fprintf(tw, "Duration\t%s\n", formatDuration(e.DurationSec))
	}
	if e.ShortInfo != nil {
		fmt.Fprintf(tw, "Title\t%s\n", e.ShortInfo.EventName)
		fmt.Fprintf(tw, "Summary\t%s\n", strings.ReplaceAll(e.ShortInfo.TextChar, "\n", " "))
	}
	if e.EventRelayInfo != nil && len(e.EventRelayInfo.EventDataList) > 0 {
		fmt.Fprintf(tw, "Relay\t%d event(s)\n", len(e.EventRelayInfo.EventDataList))
	}
	fmt.Fprintf(tw, "Free\t%t\n", e.FreeCAFlag == 0)
	return tw.Flush()
}

func (a *app) printFolders(folders []string) error {
	if a.structured() {
		return a.printData(folders)
	}
	for _, f := range folders {
		fmt.Fprintln(a.out, f)
	}
	return nil
}

func (a *app) printSnapshot(s services.Snapshot, recording []services.ReserveItem) error {
	if a.structured() {
		rows := make([]services.ReserveView, 0, len(recording))
		for _, it := range recording {
			rows = append(rows, it.View(s.At))
		}
		return a.printData(struct {
			At           time.Time              `json:"at" yaml:"at"`
			Reservations int                    `json:"reservations" yaml:"reservations"`
			Recording    []services.ReserveView `json:"recording" yaml:"recording"`
		}{s.At, len(s.Items), rows})
	}

	fmt.Fprintf(a.out, "%s  %d reservation(s), %d recording\n", s.At.Local().Format(time.TimeOnly), len(s.Items), len(recording))
	for _, it := range recording {
		fmt.Fprintf(a.out, "  [%d] %s  %s  %.0f%%  %s left\n",
			it.Data.ReserveID, it.Data.Title, it.TunerLabel(),
			it.Progress(s.At)*100, it.Remaining(s.At))
	}
	return nil
}
