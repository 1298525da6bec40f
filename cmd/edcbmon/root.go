package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/githubixx/edcbmon-go/internal/adapters/secondary/ctrlcmd"
	"github.com/githubixx/edcbmon-go/internal/application/services"
	"github.com/githubixx/edcbmon-go/internal/domain"
	"github.com/githubixx/edcbmon-go/internal/infrastructure/config"
	"github.com/githubixx/edcbmon-go/internal/infrastructure/edcbini"
	"github.com/githubixx/edcbmon-go/internal/infrastructure/logging"
	"github.com/githubixx/edcbmon-go/internal/infrastructure/metrics"
)

// app carries the flags and the components built from them for one run.
type app struct {
	configPath string
	mode       string
	host       string
	port       int
	format     string
	jsonOut    bool

	out    io.Writer
	errOut io.Writer

	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	client  *ctrlcmd.Client
	svc     *services.ReservationService
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "edcbmon",
		Short: "Monitor and manage EpgTimerSrv reservations",
		Long: `edcbmon talks to an EDCB EpgTimerSrv over its CtrlCmd protocol, either
through the local named pipe or over TCP, to list, toggle and delete
recording reservations and to watch what is recording.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.setup(cmd)
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "config.yaml", "path to configuration file")
	root.PersistentFlags().StringVar(&a.mode, "mode", "", "transport: pipe or tcp (overrides config)")
	root.PersistentFlags().StringVar(&a.host, "host", "", "server host in tcp mode (overrides config)")
	root.PersistentFlags().IntVar(&a.port, "port", 0, "server port in tcp mode (overrides config)")
	root.PersistentFlags().StringVarP(&a.format, "output", "o", formatTable, "output format: table, json or yaml")
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "shorthand for --output json")

	root.AddCommand(
		newListCmd(a),
		newTunersCmd(a),
		newPgInfoCmd(a),
		newToggleCmd(a),
		newDeleteCmd(a),
		newFoldersCmd(a),
		newWatchCmd(a),
		newVersionCmd(a),
	)
	return root
}

// setup loads the configuration, applies flag overrides and wires the client.
func (a *app) setup(cmd *cobra.Command) error {
	if a.jsonOut {
		a.format = formatJSON
	}
	switch a.format {
	case formatTable, formatJSON, formatYAML:
	default:
		return fmt.Errorf("%w: output format %q", domain.ErrInvalidInput, a.format)
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("mode") {
		cfg.EDCB.Mode = a.mode
	}
	if flags.Changed("host") {
		cfg.EDCB.Host = a.host
	}
	if flags.Changed("port") {
		cfg.EDCB.Port = a.port
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg
	a.logger = logging.New(cfg.Log, a.errOut)
	a.metrics = metrics.New()

	a.client, err = ctrlcmd.NewClient(cfg.ClientConfig(),
		ctrlcmd.WithLogger(a.logger),
		ctrlcmd.WithObserver(a.metrics),
	)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	rc := cfg.ReservationConfig()
	if cfg.EDCB.InstallPath != "" {
		start, end, ok := edcbini.DefaultMargins(cfg.EDCB.InstallPath, rc.DefaultStartMargin, rc.DefaultEndMargin)
		if ok {
			rc.DefaultStartMargin, rc.DefaultEndMargin = start, end
		} else {
			a.logger.Debug("EpgTimerSrv.ini not found, using configured margins",
				slog.String("install_path", cfg.EDCB.InstallPath))
		}
	}
	a.svc = services.NewReservationService(a.client, rc, a.logger)

	a.logger.Debug("configuration loaded",
		slog.String("mode", cfg.EDCB.Mode),
		slog.String("host", cfg.EDCB.Host),
		slog.Int("port", cfg.EDCB.Port),
		slog.Int("protocol_version", int(cfg.EDCB.ProtocolVersion)),
	)
	return nil
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.out, "edcbmon %s (%s %s), protocol version %d\n", version, commit, date, ctrlcmd.CurrentVersion)
		},
	}
}
