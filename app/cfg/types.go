package cfg

import (
	"time"
)

type Cfg struct {
	// Storage and catalog
	DBPath     string
	BoardsFile string

	// HTTP trigger surface
	Port         string
	APIAccessKey string

	// Orchestration
	WorkerCount int
	CronSpec    string
	RunOnStart  bool
	Once        bool

	// Fetching
	FetchTimeout      time.Duration
	MaxPageBytes      int64
	ThumbnailMinBytes int64
	MessageLimit      int
	UserAgent         string
	UserAgentSeed     int64

	// Probe cache
	RedisAddr     string
	ProbeCacheTTL time.Duration

	DiagnosticsDir string

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
