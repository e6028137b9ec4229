package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	DBPath     string `long:"db-path" env:"DB_PATH" default:"./data/reader.db" description:"Path to the SQLite database file"`
	BoardsFile string `long:"boards-file" env:"BOARDS_FILE" default:"./boards.yml" description:"YAML file describing boards and their sources"`

	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for the trigger endpoints (optional)"`

	WorkerCount int    `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of sources ingested in parallel"`
	CronSpec    string `long:"cron" env:"CRON_SPEC" default:"*/30 * * * *" description:"Cron expression for scheduled runs (empty disables)"`
	RunOnStart  bool   `long:"run-on-start" env:"RUN_ON_START" description:"Start an ingestion run right after startup"`
	Once        bool   `long:"once" env:"ONCE" description:"Run a single ingestion and exit"`

	FetchTimeout      int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"5" description:"Per-request timeout in seconds"`
	MaxPageBytes      int64  `long:"max-page-bytes" env:"MAX_PAGE_BYTES" default:"15728640" description:"Largest message stream page that is parsed"`
	ThumbnailMinBytes int64  `long:"thumbnail-min-bytes" env:"THUMBNAIL_MIN_BYTES" default:"10240" description:"Smallest content image accepted as a thumbnail"`
	MessageLimit      int    `long:"message-limit" env:"MESSAGE_LIMIT" default:"100" description:"Most messages taken from one message stream page"`
	UserAgent         string `long:"user-agent" env:"USER_AGENT" description:"User agent for outbound requests (default: a browser identity picked by seed)"`
	UserAgentSeed     int64  `long:"user-agent-seed" env:"USER_AGENT_SEED" default:"1" description:"Seed for picking the browser user agent"`

	RedisAddr     string `long:"redis-addr" env:"REDIS_ADDR" description:"Redis address for the thumbnail probe cache (default: in-memory)"`
	ProbeCacheTTL int    `long:"probe-cache-ttl" env:"PROBE_CACHE_TTL" default:"86400" description:"Probe cache entry lifetime in seconds"`

	DiagnosticsDir string `long:"diagnostics-dir" env:"DIAGNOSTICS_DIR" description:"Write every fetched payload to this directory"`

	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Europe/Moscow)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

// Load reads .env (when present), then flags and environment from the
// process. It returns (nil, nil) when help was requested.
func Load() (*Cfg, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg, err := Parse(os.Args[1:])
	if err != nil || cfg == nil {
		return cfg, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

// Parse builds a validated configuration from args and the environment.
func Parse(args []string) (*Cfg, error) {
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

	if err := raw.validate(); err != nil {
		return nil, err
	}

	return &Cfg{
		DBPath:            raw.DBPath,
		BoardsFile:        raw.BoardsFile,
		Port:              raw.Port,
		APIAccessKey:      raw.APIAccessKey,
		WorkerCount:       raw.WorkerCount,
		CronSpec:          raw.CronSpec,
		RunOnStart:        raw.RunOnStart,
		Once:              raw.Once,
		FetchTimeout:      time.Duration(raw.FetchTimeout) * time.Second,
		MaxPageBytes:      raw.MaxPageBytes,
		ThumbnailMinBytes: raw.ThumbnailMinBytes,
		MessageLimit:      raw.MessageLimit,
		UserAgent:         raw.UserAgent,
		UserAgentSeed:     raw.UserAgentSeed,
		RedisAddr:         raw.RedisAddr,
		ProbeCacheTTL:     time.Duration(raw.ProbeCacheTTL) * time.Second,
		DiagnosticsDir:    raw.DiagnosticsDir,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}, nil
}

func (r *rawCfg) validate() error {
	switch {
	case r.DBPath == "":
		return errors.New("db-path must not be empty")
	case r.BoardsFile == "":
		return errors.New("boards-file must not be empty")
	case r.WorkerCount <= 0:
		return fmt.Errorf("worker-count must be positive, got %d", r.WorkerCount)
	case r.FetchTimeout <= 0:
		return fmt.Errorf("fetch-timeout must be positive, got %d", r.FetchTimeout)
	case r.MaxPageBytes <= 0:
		return fmt.Errorf("max-page-bytes must be positive, got %d", r.MaxPageBytes)
	case r.ThumbnailMinBytes < 0:
		return fmt.Errorf("thumbnail-min-bytes must not be negative, got %d", r.ThumbnailMinBytes)
	case r.MessageLimit <= 0:
		return fmt.Errorf("message-limit must be positive, got %d", r.MessageLimit)
	case r.ProbeCacheTTL <= 0:
		return fmt.Errorf("probe-cache-ttl must be positive, got %d", r.ProbeCacheTTL)
	}
	return nil
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
