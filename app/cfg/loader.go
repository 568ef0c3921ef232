package cfg

import (
	"cmp"
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	DataDir       string `long:"data-dir" env:"DATA_DIR" default:"./data" description:"Directory for link, blacklist, database and agency files"`
	Storage       string `long:"storage" env:"STORAGE" default:"json" choice:"json" choice:"sqlite" description:"Link store backend"`
	LinksFile     string `long:"links-file" env:"LINKS_FILE" default:"links.json" description:"Links file for the json backend"`
	BlacklistFile string `long:"blacklist-file" env:"BLACKLIST_FILE" default:"blacklist.json" description:"Blacklist file for the json backend"`
	DBFile        string `long:"db-file" env:"DB_FILE" default:"links.db" description:"SQLite database for the sqlite backend"`
	AgenciesFile  string `long:"agencies-file" env:"AGENCIES_FILE" default:"makler.yml" description:"Agency registry file"`

	// Crawl configuration
	SiteURL         string `long:"site-url" env:"SITE_URL" default:"https://www.kleinanzeigen.de" description:"Base URL used to resolve listing links"`
	WorkerCount     int    `long:"worker-count" env:"WORKER_COUNT" default:"4" description:"Number of searches crawled in parallel"`
	MaxPages        int    `long:"max-pages" env:"MAX_PAGES" default:"10" description:"Maximum result pages per search"`
	RequestTimeout  int    `long:"request-timeout" env:"REQUEST_TIMEOUT" default:"10" description:"Timeout per page request in seconds"`
	PolitenessDelay int    `long:"politeness-delay" env:"POLITENESS_DELAY" default:"200" description:"Minimum pause between page requests of one search in milliseconds"`

	// Application configuration
	Port              string `long:"port" env:"PORT" default:"9000" description:"HTTP server port"`
	BaseUrl           string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://links.example.com)"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"0" description:"Interval in seconds between scheduled agency crawls, 0 disables them"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"Europe/Berlin" description:"Timezone for timestamps (e.g., UTC, Europe/Berlin)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	return load(os.Args[1:])
}

func load(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if raw.WorkerCount < 1 {
		return nil, fmt.Errorf("worker count must be at least 1, got %d", raw.WorkerCount)
	}
	if raw.MaxPages < 1 {
		return nil, fmt.Errorf("max pages must be at least 1, got %d", raw.MaxPages)
	}
	if raw.RequestTimeout < 1 {
		return nil, fmt.Errorf("request timeout must be at least 1 second, got %d", raw.RequestTimeout)
	}
	if raw.PolitenessDelay < 0 || raw.SchedulerInterval < 0 {
		return nil, fmt.Errorf("politeness delay and scheduler interval must not be negative")
	}

	cfg := &Cfg{
		DataDir:           raw.DataDir,
		Storage:           raw.Storage,
		LinksFile:         raw.LinksFile,
		BlacklistFile:     raw.BlacklistFile,
		DBFile:            raw.DBFile,
		AgenciesFile:      raw.AgenciesFile,
		SiteURL:           raw.SiteURL,
		WorkerCount:       raw.WorkerCount,
		MaxPages:          raw.MaxPages,
		RequestTimeout:    time.Duration(raw.RequestTimeout) * time.Second,
		PolitenessDelay:   time.Duration(raw.PolitenessDelay) * time.Millisecond,
		Port:              raw.Port,
		BaseUrl:           raw.BaseUrl,
		SchedulerInterval: raw.SchedulerInterval,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
