package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config keeps runtime settings for every taskledger entry point.
type Config struct {
	DatabasePath         string  `yaml:"database"`
	DefaultModule        string  `yaml:"default_module"`
	DefaultModulePattern string  `yaml:"default_module_pattern"`
	Host                 string  `yaml:"host"`
	Port                 int     `yaml:"port"`
	DistDir              string  `yaml:"dist_dir"`
	TelegramToken        string  `yaml:"telegram_token"`
	TelegramChatID       int64   `yaml:"telegram_chat_id"`
	ReportTime           string  `yaml:"report_time"`
	ReportIntervalHours  float64 `yaml:"report_interval_hours"`
	LogLevel             string  `yaml:"log_level"`
	LogFile              string  `yaml:"log_file"`
}

// Default returns a Config populated with built-in defaults.
func Default() Config {
	return Config{
		DatabasePath:  "data/taskledger.db",
		DefaultModule: "Default",
		Host:          "127.0.0.1",
		Port:          4173,
		DistDir:       "dist",
		ReportTime:    "21:00",
		LogLevel:      "info",
	}
}

// Load reads the optional YAML file named by TASKLEDGER_CONFIG, then applies
// environment variables on top and validates the result.
func Load() (Config, error) {
	return LoadPath("")
}

// LoadPath is Load with an explicit config file taking the place of
// TASKLEDGER_CONFIG. An empty path falls back to the environment.
func LoadPath(path string) (Config, error) {
	return load(func(key string) (string, bool) {
		if key == "TASKLEDGER_CONFIG" && path != "" {
			return path, true
		}
		return os.LookupEnv(key)
	})
}

func load(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	if path, ok := lookup("TASKLEDGER_CONFIG"); ok && strings.TrimSpace(path) != "" {
		if err := cfg.mergeFile(strings.TrimSpace(path)); err != nil {
			return cfg, err
		}
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	str("TASKLEDGER_DB", &c.DatabasePath)
	str("TASKLEDGER_DEFAULT_MODULE", &c.DefaultModule)
	str("TASKLEDGER_DEFAULT_MODULE_PATTERN", &c.DefaultModulePattern)
	str("HOST", &c.Host)
	str("DIST_DIR", &c.DistDir)
	str("TELEGRAM_TOKEN", &c.TelegramToken)
	str("REPORT_TIME", &c.ReportTime)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FILE", &c.LogFile)

	if v, ok := lookup("PORT"); ok && strings.TrimSpace(v) != "" {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Port = port
	}
	if v, ok := lookup("TELEGRAM_CHAT_ID"); ok && strings.TrimSpace(v) != "" {
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("TELEGRAM_CHAT_ID: %w", err)
		}
		c.TelegramChatID = id
	}
	if v, ok := lookup("REPORT_INTERVAL_HOURS"); ok {
		c.ReportIntervalHours = parseInterval(strings.TrimSpace(v)).Hours()
	}
	return nil
}

// Validate rejects settings no entry point can run with.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DatabasePath) == "" {
		errs = append(errs, errors.New("database path is required"))
	}
	if strings.TrimSpace(c.DefaultModule) == "" {
		errs = append(errs, errors.New("default module name is required"))
	}
	if c.DefaultModulePattern != "" {
		if _, err := regexp.Compile(c.DefaultModulePattern); err != nil {
			errs = append(errs, fmt.Errorf("default module pattern: %w", err))
		}
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if _, err := time.Parse("15:04", c.ReportTime); err != nil {
		errs = append(errs, fmt.Errorf("report time %q, expected HH:MM", c.ReportTime))
	}
	if c.ReportIntervalHours < 0 {
		errs = append(errs, errors.New("report interval must not be negative"))
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log level: %w", err))
	}
	return errors.Join(errs...)
}

// RequireTelegram reports whether the bot can start.
func (c Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	return nil
}

// Addr is the HTTP listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ReportInterval is the optional periodic summary interval; zero disables it.
func (c Config) ReportInterval() time.Duration {
	return time.Duration(c.ReportIntervalHours * float64(time.Hour))
}

func parseInterval(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	hours, err := time.ParseDuration(raw + "h")
	if err != nil || hours <= 0 {
		return 0
	}
	return hours
}
