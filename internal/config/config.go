package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"codeberg.org/mutker/hwmond/internal/errors"
)

const (
	DefaultInterval      = 2
	DefaultListenAddress = ":9090"
	DefaultLogLevel      = "info"
	DefaultTelemetryDB   = "hwmond.db"
	DefaultQueueSize     = 64
	DefaultWorkers       = 2
	DefaultBatchSize     = 32
	DefaultFlushSeconds  = 15
)

type Config struct {
	Interval       int      `mapstructure:"interval"`
	BridgeCommand  string   `mapstructure:"bridge_command"`
	BridgeArgs     []string `mapstructure:"bridge_args"`
	ListenAddress  string   `mapstructure:"listen_address"`
	TUI            bool     `mapstructure:"tui"`
	LogLevel       string   `mapstructure:"log_level"`
	LogFile        string   `mapstructure:"log_file"`
	Telemetry      bool     `mapstructure:"telemetry"`
	TelemetryDB    string   `mapstructure:"telemetry_db"`
	BatchSize      int      `mapstructure:"batch_size"`
	FlushSeconds   int      `mapstructure:"flush_seconds"`
	RulesFile      string   `mapstructure:"rules_file"`
	QueueSize      int      `mapstructure:"queue_size"`
	Workers        int      `mapstructure:"workers"`
	TelegramToken  string   `mapstructure:"telegram_token"`
	TelegramChatID string   `mapstructure:"telegram_chat_id"`
}

func Load() (*Config, error) {
	return load(os.Args[1:])
}

func load(args []string) (*Config, error) {
	// Secrets like the Telegram token usually live in a local .env file.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrReadConfig, err)
	}

	fs := pflag.NewFlagSet("hwmond", pflag.ContinueOnError)

	configFile := fs.String("config", "", "Path to config file")
	fs.Int("interval", DefaultInterval, "Seconds between snapshot samples")
	fs.String("bridge-command", "powershell", "Sensor bridge executable")
	fs.StringSlice("bridge-args", []string{"-ExecutionPolicy", "Bypass", "-File", "bridge.ps1"}, "Sensor bridge arguments")
	fs.String("listen", DefaultListenAddress, "HTTP API listen address (empty disables)")
	fs.Bool("tui", false, "Run the terminal tree view in the foreground")
	fs.String("log-level", DefaultLogLevel, "Log level (debug, info, warn, error)")
	fs.String("log-file", "", "Rotated log file path (empty disables)")
	fs.Bool("telemetry", false, "Record readings and alert events to SQLite")
	fs.String("telemetry-db", DefaultTelemetryDB, "Path to the telemetry database")
	fs.String("rules", "", "Alert rules file (YAML), loaded at startup")

	if err := fs.Parse(args); err != nil {
		return nil, errors.Wrap(errors.ErrBindFlags, err)
	}

	v := viper.New()
	v.SetDefault("interval", DefaultInterval)
	v.SetDefault("bridge_command", "powershell")
	v.SetDefault("bridge_args", []string{"-ExecutionPolicy", "Bypass", "-File", "bridge.ps1"})
	v.SetDefault("listen_address", DefaultListenAddress)
	v.SetDefault("tui", false)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("log_file", "")
	v.SetDefault("telemetry", false)
	v.SetDefault("telemetry_db", DefaultTelemetryDB)
	v.SetDefault("batch_size", DefaultBatchSize)
	v.SetDefault("flush_seconds", DefaultFlushSeconds)
	v.SetDefault("rules_file", "")
	v.SetDefault("queue_size", DefaultQueueSize)
	v.SetDefault("workers", DefaultWorkers)
	v.SetDefault("telegram_token", "")
	v.SetDefault("telegram_chat_id", "")

	v.SetEnvPrefix("HWMOND")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// Flags beat environment, environment beats the config file.
	bindings := map[string]string{
		"interval":       "interval",
		"bridge_command": "bridge-command",
		"bridge_args":    "bridge-args",
		"listen_address": "listen",
		"tui":            "tui",
		"log_level":      "log-level",
		"log_file":       "log-file",
		"telemetry":      "telemetry",
		"telemetry_db":   "telemetry-db",
		"rules_file":     "rules",
	}
	for key, name := range bindings {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, errors.Wrap(errors.ErrBindFlags, err)
		}
	}

	path := *configFile
	if path == "" {
		path = os.Getenv("HWMOND_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(errors.ErrReadConfig, err)
		}
	} else {
		v.SetConfigName("hwmond")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.Wrap(errors.ErrReadConfig, err)
			}
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.Interval < 1 {
		return errors.WithData(errors.ErrInvalidInterval, c.Interval)
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return errors.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	if c.BridgeCommand == "" {
		return errors.WithMessage(errors.ErrInvalidConfig, "bridge_command must not be empty")
	}

	if c.Telemetry && c.TelemetryDB == "" {
		return errors.New(errors.ErrInvalidDBPath)
	}

	if c.QueueSize < 1 {
		c.QueueSize = DefaultQueueSize
	}
	if c.Workers < 1 {
		c.Workers = DefaultWorkers
	}
	if c.BatchSize < 1 {
		c.BatchSize = DefaultBatchSize
	}
	if c.FlushSeconds < 1 {
		c.FlushSeconds = DefaultFlushSeconds
	}

	return nil
}
