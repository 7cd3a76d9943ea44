package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	BotName    = "Lumen Downloader Bot"
	BotVersion = "1.2.0"

	DefaultSessionTimeout    = 30 * time.Second
	DefaultMaxFileSize       = 50 * 1024 * 1024
	DefaultProfilePostLimit  = 50
	DefaultMaxConcurrentJobs = 4
	DefaultStagingDir        = "downloads"
	DefaultDownloadTimeout   = 15 * time.Minute
)

// QualityOption maps a user-facing quality label to a yt-dlp format selector.
type QualityOption struct {
	Label    string
	Selector string
}

// YouTubeQualities is presented to the user in this order.
var YouTubeQualities = []QualityOption{
	{"144p", "worst[height<=144]"},
	{"240p", "worst[height<=240]"},
	{"360p", "worst[height<=360]"},
	{"480p", "worst[height<=480]"},
	{"720p", "best[height<=720]"},
	{"1080p", "best[height<=1080]"},
	{"Best", "best"},
}

// FallbackQualities is used when probing the available formats fails.
var FallbackQualities = []QualityOption{
	{"Best", "best"},
	{"720p", "best[height<=720]"},
	{"480p", "best[height<=480]"},
}

type Config struct {
	BotToken      string
	SupportChatID int64

	BotOwner string
	HostedAt string

	SessionTimeout    time.Duration
	DownloadTimeout   time.Duration
	MaxFileSize       int64
	ProfilePostLimit  int
	MaxConcurrentJobs int
	StagingDir        string
}

// Load reads configuration from the environment. A .env file is applied
// first when present, real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		BotToken:          os.Getenv("BOT_TOKEN"),
		SupportChatID:     envInt64("SUPPORT_CHAT_ID", 0),
		BotOwner:          envString("BOT_OWNER", "avelira"),
		HostedAt:          envString("HOSTED_AT", "self-hosted"),
		SessionTimeout:    envDuration("SESSION_TIMEOUT", DefaultSessionTimeout),
		DownloadTimeout:   envDuration("DOWNLOAD_TIMEOUT", DefaultDownloadTimeout),
		MaxFileSize:       envInt64("MAX_FILE_SIZE", DefaultMaxFileSize),
		ProfilePostLimit:  envInt("PROFILE_POST_LIMIT", DefaultProfilePostLimit),
		MaxConcurrentJobs: envInt("MAX_CONCURRENT_DOWNLOADS", DefaultMaxConcurrentJobs),
		StagingDir:        envString("STAGING_DIR", DefaultStagingDir),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		// Bare numbers are taken as seconds, matching older deployments.
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return fallback
}
