package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./discovery.db" description:"Path to the SQLite database file"`

	// Application configuration
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	CatalogFile  string `long:"catalog-file" env:"CATALOG_FILE" description:"Source catalog YAML file (defaults to the embedded catalog)"`
	WorkerCount  int    `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of background workers for scheduled tasks"`
	GenerateAt   string `long:"generate-at" env:"GENERATE_AT" default:"00:00" description:"Local time of day (HH:MM) for the daily generation run"`
	SweepDaily   bool   `long:"sweep-daily" env:"SWEEP_DAILY" description:"Run the duplicate sweep after the daily generation"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key protecting mutating endpoints (optional)"`
	HTTPTimeout  int    `long:"http-timeout" env:"HTTP_TIMEOUT" default:"15" description:"Timeout in seconds for outbound provider requests"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"DailyDiscoveryFeed/1.0" description:"User agent string for outbound HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for day bucketing and the daily trigger"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:       raw.DBPath,
		Port:         raw.Port,
		CatalogFile:  raw.CatalogFile,
		WorkerCount:  raw.WorkerCount,
		GenerateAt:   raw.GenerateAt,
		SweepDaily:   raw.SweepDaily,
		APIAccessKey: raw.APIAccessKey,
		HTTPTimeout:  raw.HTTPTimeout,
		UserAgent:    raw.UserAgent,
		Timezone:     raw.Timezone,
		Debug:        raw.Debug,
		Version:      GetVersion(),
	}

	if _, err := ParseTimeOfDay(cfg.GenerateAt); err != nil {
		return nil, fmt.Errorf("invalid generate-at value %q: %w", cfg.GenerateAt, err)
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

// Get returns the loaded configuration singleton
func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded, call cfg.Load() first")
	}
	return globalCfg
}

// GenerateAtMinutes returns the daily trigger time as minutes since local
// midnight. The value is validated at load time.
func (c *Cfg) GenerateAtMinutes() int {
	minutes, _ := ParseTimeOfDay(c.GenerateAt)
	return minutes
}

// ParseTimeOfDay validates an HH:MM string and returns hour and minute as
// minutes since midnight.
func ParseTimeOfDay(value string) (int, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

func applyTimezone(timezone string) error {
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return err
	}
	time.Local = location
	return nil
}
