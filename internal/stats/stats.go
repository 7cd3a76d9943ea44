package stats

import (
	"encoding/json"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/avelira/lumen-tg-bot/pkg/logger"
)

const statsFile = "bot_stats.json"

// BotStats accumulates download counters across the bot's lifetime and is
// periodically flushed to disk.
type BotStats struct {
	mu sync.RWMutex

	StartTime time.Time

	TotalDownloads   int64
	SuccessDownloads int64
	FailedDownloads  int64
	TotalFiles       int64
	TotalBytes       int64

	UniqueUsers   map[int64]bool
	PlatformStats map[string]int64

	LastDownloadTime time.Time
}

func New() *BotStats {
	s := &BotStats{
		StartTime:     time.Now(),
		UniqueUsers:   make(map[int64]bool),
		PlatformStats: make(map[string]int64),
	}

	if err := s.LoadFromFile(); err == nil {
		logger.Info("Stats loaded", "downloads", s.TotalDownloads)
	}
	// StartTime always reflects this process, not the persisted one.
	s.StartTime = time.Now()

	return s
}

func (s *BotStats) RecordDownload(userID int64, platform string, files int, bytes int64, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.TotalDownloads++
	s.TotalFiles += int64(files)
	s.TotalBytes += bytes
	s.LastDownloadTime = time.Now()

	if success {
		s.SuccessDownloads++
	} else {
		s.FailedDownloads++
	}

	s.UniqueUsers[userID] = true
	if platform != "" {
		s.PlatformStats[platform]++
	}
}

// Summary is a consistent copy of the counters for rendering.
type Summary struct {
	Uptime           time.Duration
	TotalDownloads   int64
	SuccessDownloads int64
	FailedDownloads  int64
	TotalFiles       int64
	TotalBytes       int64
	UniqueUsers      int
	PlatformStats    map[string]int64
	GoRoutines       int
}

func (s *BotStats) Snapshot() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	platforms := make(map[string]int64, len(s.PlatformStats))
	for k, v := range s.PlatformStats {
		platforms[k] = v
	}

	return Summary{
		Uptime:           time.Since(s.StartTime),
		TotalDownloads:   s.TotalDownloads,
		SuccessDownloads: s.SuccessDownloads,
		FailedDownloads:  s.FailedDownloads,
		TotalFiles:       s.TotalFiles,
		TotalBytes:       s.TotalBytes,
		UniqueUsers:      len(s.UniqueUsers),
		PlatformStats:    platforms,
		GoRoutines:       runtime.NumGoroutine(),
	}
}

func (s *BotStats) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Since(s.StartTime)
}

func (s *BotStats) SaveToFile() error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	return os.WriteFile(statsFile, data, 0o644)
}

func (s *BotStats) LoadFromFile() error {
	data, err := os.ReadFile(statsFile)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return json.Unmarshal(data, s)
}

// StartAutoSave flushes the counters to disk on a fixed interval until the
// process exits.
func (s *BotStats) StartAutoSave(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			if err := s.SaveToFile(); err != nil {
				logger.Warn("Failed to save stats", "error", err)
			}
		}
	}()
}
