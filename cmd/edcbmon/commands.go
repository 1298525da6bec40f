package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	httpAdapter "github.com/githubixx/edcbmon-go/internal/adapters/primary/http"
	"github.com/githubixx/edcbmon-go/internal/application/services"
	"github.com/githubixx/edcbmon-go/internal/domain"
	"github.com/githubixx/edcbmon-go/internal/infrastructure/edcbini"
)

func newListCmd(a *app) *cobra.Command {
	var recordingOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reservations with program and tuner details",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := a.svc.GetReservations(cmd.Context())
			if err != nil {
				return err
			}
			now := time.Now()
			if recordingOnly {
				items = services.Snapshot{At: now, Items: items}.Recording()
			}
			return a.printReservations(items, now)
		},
	}
	cmd.Flags().BoolVar(&recordingOnly, "recording", false, "only show reservations recording now")
	return cmd
}

func newTunersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tuners",
		Short: "List tuners and their assigned reservations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tuners, err := a.client.EnumTunerReserve(cmd.Context())
			if err != nil {
				return fmt.Errorf("enumerate tuners: %w", err)
			}
			return a.printTuners(tuners)
		},
	}
}

func newPgInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pginfo <onid> <tsid> <sid> <eid>",
		Short: "Show program information for one event",
		Long: `Show program information for one event. Ids are decimal or 0x-prefixed
hexadecimal.`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ids [4]uint16
			for i, s := range args {
				v, err := strconv.ParseUint(s, 0, 16)
				if err != nil {
					return fmt.Errorf("%w: id %q: %v", domain.ErrInvalidInput, s, err)
				}
				ids[i] = uint16(v)
			}
			key := domain.EventKey{
				OriginalNetworkID: ids[0],
				TransportStreamID: ids[1],
				ServiceID:         ids[2],
				EventID:           ids[3],
			}
			e, err := a.client.GetPgInfo(cmd.Context(), key.PgID())
			if err != nil {
				return fmt.Errorf("get program info: %w", err)
			}
			return a.printEvent(e)
		},
	}
}

func newToggleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>...",
		Short: "Enable disabled reservations and disable enabled ones",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			if err := a.svc.ToggleReservations(cmd.Context(), ids); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "toggled %d reservation(s)\n", len(ids))
			return nil
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete reservations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			if err := a.svc.DeleteReservations(cmd.Context(), ids); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "deleted %d reservation(s)\n", len(ids))
			return nil
		},
	}
}

func newFoldersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "folders",
		Short: "List the common recording folders of the local EDCB install",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.EDCB.InstallPath == "" {
				return fmt.Errorf("%w: edcb.install_path is not set", domain.ErrInvalidInput)
			}
			folders, err := edcbini.RecFolders(a.cfg.EDCB.InstallPath)
			if err != nil {
				return fmt.Errorf("read recording folders: %w", err)
			}
			return a.printFolders(folders)
		},
	}
}

func newWatchCmd(a *app) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll reservations and report what is recording",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if interval <= 0 {
				interval = a.cfg.Monitor.PollInterval
			}

			api := httpAdapter.NewHandler(a.svc, a.logger)
			if a.cfg.Metrics.Enabled {
				stop := a.serveStatus(api)
				defer stop()
			}

			a.logger.Info("watching reservations", slog.Duration("interval", interval))
			mon := services.NewMonitor(a.svc, interval, a.logger)
			return mon.Run(ctx, func(s services.Snapshot) {
				rec := s.Recording()
				a.metrics.ObserveSnapshot(s.At, len(s.Items), len(rec))
				api.SetSnapshot(s)
				if err := a.printSnapshot(s, rec); err != nil {
					a.logger.Warn("print snapshot failed", slog.Any("error", err))
				}
			})
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "poll interval (defaults to monitor.poll_interval)")
	return cmd
}

// serveStatus starts the status API and returns a function that stops it.
func (a *app) serveStatus(h *httpAdapter.Handler) func() {
	srv := httpAdapter.NewServer(a.cfg.Metrics.Listen, a.logger,
		httpAdapter.SetupRoutes(h, a.metrics.Handler(), a.logger))

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("status server error", slog.Any("error", err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			a.logger.Error("status server shutdown error", slog.Any("error", err))
		}
	}
}

func parseIDs(args []string) ([]uint32, error) {
	ids := make([]uint32, 0, len(args))
	for _, s := range args {
		v, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: reservation id %q", domain.ErrInvalidInput, s)
		}
		ids = append(ids, uint32(v))
	}
	return ids, nil
}
