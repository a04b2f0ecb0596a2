package config

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/ini.v1"
)

// Telegram holds credentials and the channel list from the [Telegram]
// section. The section is required; a run never starts without it.
type Telegram struct {
	APIID       int
	APIHash     string
	Phone       string
	SessionFile string
	Channels    []string
}

// Fetch holds pagination and retry tuning from the optional [Fetch] section.
type Fetch struct {
	PageSize     int
	PageDelay    time.Duration
	RetryBackoff time.Duration
	// MaxRetries caps retries per history request; 0 retries forever,
	// which preserves completeness at the cost of liveness.
	MaxRetries int
}

// Plot holds the [Plotly] chart-style section, consumed only by the
// external plotting path.
type Plot struct {
	Template string
	Autosize bool
	Width    int
	Height   int
}

// Config is the parsed configuration file.
type Config struct {
	Telegram Telegram
	Fetch    Fetch

	file *ini.File
}

// Load reads and validates the configuration file. A missing [Telegram]
// section or empty channel list is fatal before any I/O happens.
func Load(path string) (*Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	sec, err := file.GetSection("Telegram")
	if err != nil {
		return nil, fmt.Errorf("missing 'Telegram' section in the config file")
	}

	apiID, err := sec.Key("api_id").Int()
	if err != nil {
		return nil, fmt.Errorf("invalid api_id in 'Telegram' section: %w", err)
	}

	cfg := &Config{
		Telegram: Telegram{
			APIID:       apiID,
			APIHash:     sec.Key("api_hash").String(),
			Phone:       sec.Key("phone").String(),
			SessionFile: sec.Key("session_file").MustString("chanmine.session"),
			Channels:    splitChannels(sec.Key("channel_usernames").String()),
		},
		Fetch: Fetch{
			PageSize:     100,
			PageDelay:    time.Second,
			RetryBackoff: 5 * time.Second,
		},
		file: file,
	}

	if cfg.Telegram.APIHash == "" {
		return nil, fmt.Errorf("missing api_hash in 'Telegram' section")
	}
	if len(cfg.Telegram.Channels) == 0 {
		return nil, fmt.Errorf("no channel_usernames configured in 'Telegram' section")
	}

	if fs, err := file.GetSection("Fetch"); err == nil {
		cfg.Fetch.PageSize = fs.Key("page_size").MustInt(cfg.Fetch.PageSize)
		cfg.Fetch.PageDelay = secondsKey(fs, "page_delay", cfg.Fetch.PageDelay)
		cfg.Fetch.RetryBackoff = secondsKey(fs, "retry_backoff", cfg.Fetch.RetryBackoff)
		cfg.Fetch.MaxRetries = fs.Key("max_retries").MustInt(0)
	}

	return cfg, nil
}

// Plot returns the [Plotly] section, which is required only by callers that
// actually hand data to the plotting path.
func (c *Config) Plot() (*Plot, error) {
	sec, err := c.file.GetSection("Plotly")
	if err != nil {
		return nil, fmt.Errorf("missing 'Plotly' section in the config file")
	}

	return &Plot{
		Template: sec.Key("template").MustString("plotly_dark"),
		Autosize: sec.Key("autosize").MustBool(false),
		Width:    sec.Key("width").MustInt(1200),
		Height:   sec.Key("height").MustInt(800),
	}, nil
}

func splitChannels(raw string) []string {
	var channels []string
	for _, part := range strings.Split(raw, ",") {
		if name := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(part), "@")); name != "" {
			channels = append(channels, name)
		}
	}
	return channels
}

func secondsKey(sec *ini.Section, name string, fallback time.Duration) time.Duration {
	val := sec.Key(name).MustFloat64(fallback.Seconds())
	if val < 0 {
		return fallback
	}
	return time.Duration(val * float64(time.Second))
}
