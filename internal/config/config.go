package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"TrendSentinel/internal/calculator"
)

// Config holds all application configuration.
type Config struct {
	Instrument struct {
		Symbol   string `yaml:"symbol"`
		Interval string `yaml:"interval"`
		Limit    int    `yaml:"limit"`
	} `yaml:"instrument"`
	Indicator struct {
		SAR      calculator.SARParams `yaml:"sar"`
		MAWindow int                  `yaml:"ma_window"`
	} `yaml:"indicator"`
	Schedule struct {
		EvalCron string `yaml:"eval_cron"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Stream struct {
		Addr string `yaml:"addr"`
	} `yaml:"stream"`
	AMQP struct {
		URI   string `yaml:"uri"`
		Queue string `yaml:"queue"`
	} `yaml:"amqp"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies .env and environment variable overrides.
// A missing file or .env is not an error. Defaults fill only keys that are absent, so an
// explicit zero reaches Validate.
func Load(path, envFile string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"SYMBOL":             &c.Instrument.Symbol,
		"INTERVAL":           &c.Instrument.Interval,
		"CRON_EVAL":          &c.Schedule.EvalCron,
		"TELEGRAM_BOT_TOKEN": &c.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":   &c.Telegram.ChatID,
		"SQLITE_PATH":        &c.Database.SQLitePath,
		"METRICS_ADDR":       &c.Metrics.Addr,
		"STREAM_ADDR":        &c.Stream.Addr,
		"AMQP_URI":           &c.AMQP.URI,
		"AMQP_QUEUE":         &c.AMQP.Queue,
		"LOG_LEVEL":          &c.Log.Level,
		"HTTPS_PROXY":        &c.Proxy,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	floats := map[string]*float64{
		"SAR_INITIAL_ACCELERATION": &c.Indicator.SAR.InitialAcceleration,
		"SAR_MAX_ACCELERATION":     &c.Indicator.SAR.MaxAcceleration,
	}
	for key, dst := range floats {
		if v := os.Getenv(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("parse %s: %w", key, err)
			}
			*dst = f
		}
	}

	ints := map[string]*int{
		"MA_WINDOW": &c.Indicator.MAWindow,
		"BAR_LIMIT": &c.Instrument.Limit,
	}
	for key, dst := range ints {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("parse %s: %w", key, err)
			}
			*dst = n
		}
	}
	return nil
}

func defaults() *Config {
	c := &Config{}
	c.Instrument.Symbol = "BTC-USDT"
	c.Instrument.Interval = "30m"
	c.Instrument.Limit = 500
	c.Indicator.SAR = calculator.DefaultSARParams()
	c.Indicator.MAWindow = calculator.DefaultMAWindow
	c.Schedule.EvalCron = "*/10 * * * * *"
	c.Database.SQLitePath = "data/trend_sentinel.db"
	c.AMQP.Queue = "Trend_Signals"
	c.Log.Level = "info"
	return c
}

// Validate checks that indicator settings are usable and required fields are set.
func (c *Config) Validate() error {
	if err := c.Indicator.SAR.Validate(); err != nil {
		return fmt.Errorf("indicator.sar: %w", err)
	}
	if c.Indicator.MAWindow <= 0 {
		return fmt.Errorf("indicator.ma_window must be positive")
	}
	if c.Instrument.Limit < 2 {
		return fmt.Errorf("instrument.limit must be at least 2")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// TelegramEnabled reports whether notifications should be sent.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
