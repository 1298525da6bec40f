package config

import (
	"fmt"
	"os"
	"time"
	// Windows hosts ship no zoneinfo database for edcb.time_zone.
	_ "time/tzdata"

	"go.yaml.in/yaml/v4"

	"github.com/githubixx/edcbmon-go/internal/adapters/secondary/ctrlcmd"
	"github.com/githubixx/edcbmon-go/internal/application/services"
)

// Config represents the application configuration
type Config struct {
	EDCB    EDCBConfig    `yaml:"edcb"`
	Monitor MonitorConfig `yaml:"monitor"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// EDCBConfig contains EpgTimerSrv connection settings
type EDCBConfig struct {
	Mode            string        `yaml:"mode"`
	EventName       string        `yaml:"event_name"`
	PipeName        string        `yaml:"pipe_name"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
	ProtocolVersion uint16        `yaml:"protocol_version"`
	MaxPayloadBytes uint32        `yaml:"max_payload_bytes"`
	// TimeZone names the zone of the server's wall clock, such as
	// "Asia/Tokyo". Empty means the local zone.
	TimeZone        string        `yaml:"time_zone"`
	// InstallPath is the EDCB directory. When set, default margins are read
	// from its EpgTimerSrv.ini.
	InstallPath     string        `yaml:"install_path"`
}

// MonitorConfig contains polling and retry settings
type MonitorConfig struct {
	PollInterval       time.Duration `yaml:"poll_interval"`
	DefaultStartMargin int32         `yaml:"default_start_margin"` // seconds
	DefaultEndMargin   int32         `yaml:"default_end_margin"`   // seconds
	Retry              RetryConfig   `yaml:"retry"`
}

// RetryConfig contains retry limits for server operations
type RetryConfig struct {
	EnumAttempts   int           `yaml:"enum_attempts"`
	EnumDelay      time.Duration `yaml:"enum_delay"`
	ChangeAttempts int           `yaml:"change_attempts"`
	ChangeDelay    time.Duration `yaml:"change_delay"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig contains Prometheus exporter settings
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		EDCB: EDCBConfig{
			Mode:            string(ctrlcmd.ModePipe),
			EventName:       ctrlcmd.DefaultEventName,
			PipeName:        ctrlcmd.DefaultPipeName,
			Host:            ctrlcmd.DefaultTCPHost,
			Port:            ctrlcmd.DefaultTCPPort,
			ConnectTimeout:  3 * time.Second,
			ProtocolVersion: ctrlcmd.CurrentVersion,
			MaxPayloadBytes: ctrlcmd.DefaultLimits.MaxPayloadBytes,
		},
		Monitor: MonitorConfig{
			PollInterval:       30 * time.Second,
			DefaultStartMargin: 5,
			DefaultEndMargin:   2,
			Retry: RetryConfig{
				EnumAttempts:   5,
				EnumDelay:      500 * time.Millisecond,
				ChangeAttempts: 3,
				ChangeDelay:    200 * time.Millisecond,
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  "127.0.0.1:9464",
		},
	}
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	cfg := Default()

	// If config file exists, load it
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, nil // Use defaults if file doesn't exist
			}
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch ctrlcmd.Mode(c.EDCB.Mode) {
	case ctrlcmd.ModePipe:
		if c.EDCB.EventName == "" {
			return fmt.Errorf("edcb.event_name is required in pipe mode")
		}
		if c.EDCB.PipeName == "" {
			return fmt.Errorf("edcb.pipe_name is required in pipe mode")
		}
	case ctrlcmd.ModeTCP:
		if c.EDCB.Host == "" {
			return fmt.Errorf("edcb.host is required in tcp mode")
		}
		if c.EDCB.Port < 1 || c.EDCB.Port > 65535 {
			return fmt.Errorf("invalid edcb port: %d", c.EDCB.Port)
		}
	default:
		return fmt.Errorf("invalid edcb.mode: %q (must be pipe or tcp)", c.EDCB.Mode)
	}

	if c.EDCB.ConnectTimeout <= 0 {
		return fmt.Errorf("edcb.connect_timeout must be positive")
	}

	if _, err := time.LoadLocation(c.EDCB.TimeZone); err != nil {
		return fmt.Errorf("invalid edcb.time_zone: %q: %w", c.EDCB.TimeZone, err)
	}

	if c.EDCB.ProtocolVersion < 1 {
		return fmt.Errorf("invalid edcb.protocol_version: %d", c.EDCB.ProtocolVersion)
	}

	if c.Monitor.PollInterval < time.Second {
		return fmt.Errorf("invalid monitor.poll_interval: %s (must be at least 1s)", c.Monitor.PollInterval)
	}

	if c.Monitor.Retry.EnumAttempts < 1 || c.Monitor.Retry.ChangeAttempts < 1 {
		return fmt.Errorf("retry attempts must be at least 1")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
		// ok
	default:
		return fmt.Errorf("invalid log.level: %q (must be debug, info, warn, or error)", c.Log.Level)
	}

	switch c.Log.Format {
	case "json", "text":
		// ok
	default:
		return fmt.Errorf("invalid log.format: %q (must be json or text)", c.Log.Format)
	}

	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return fmt.Errorf("metrics.listen is required when metrics are enabled")
	}

	return nil
}

// ClientConfig converts the connection settings for the CtrlCmd client.
func (c *Config) ClientConfig() ctrlcmd.Config {
	return ctrlcmd.Config{
		Mode:           ctrlcmd.Mode(c.EDCB.Mode),
		EventName:      c.EDCB.EventName,
		PipeName:       c.EDCB.PipeName,
		Host:           c.EDCB.Host,
		Port:           c.EDCB.Port,
		ConnectTimeout: c.EDCB.ConnectTimeout,
		Version:        c.EDCB.ProtocolVersion,
		Limits:         ctrlcmd.Limits{MaxPayloadBytes: c.EDCB.MaxPayloadBytes},
		Location:       c.ServerLocation(),
	}
}

// ServerLocation resolves edcb.time_zone, falling back to time.Local.
func (c *Config) ServerLocation() *time.Location {
	if c.EDCB.TimeZone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.EDCB.TimeZone)
	if err != nil {
		return time.Local
	}
	return loc
}

// ReservationConfig converts the monitor settings for the reservation service.
func (c *Config) ReservationConfig() services.ReservationConfig {
	return services.ReservationConfig{
		DefaultStartMargin: c.Monitor.DefaultStartMargin,
		DefaultEndMargin:   c.Monitor.DefaultEndMargin,
		EnumRetry: services.RetryPolicy{
			Attempts: c.Monitor.Retry.EnumAttempts,
			Delay:    c.Monitor.Retry.EnumDelay,
		},
		ChangeRetry: services.RetryPolicy{
			Attempts: c.Monitor.Retry.ChangeAttempts,
			Delay:    c.Monitor.Retry.ChangeDelay,
		},
	}
}

// Save saves the configuration to a YAML file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
