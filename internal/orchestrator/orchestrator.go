package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/avelira/lumen-tg-bot/config"
	"github.com/avelira/lumen-tg-bot/internal/downloader"
	"github.com/avelira/lumen-tg-bot/internal/session"
	"github.com/avelira/lumen-tg-bot/internal/stats"
	"github.com/avelira/lumen-tg-bot/internal/telegram"
	"github.com/avelira/lumen-tg-bot/pkg/logger"
)

// progressInterval coalesces engine progress events into at most one
// message edit per interval, keeping clear of transport rate limits.
const progressInterval = 2 * time.Second

// VideoEngine fetches video/audio media. Implemented by the yt-dlp wrapper,
// faked in tests.
type VideoEngine interface {
	ListQualities(ctx context.Context, url string) ([]config.QualityOption, error)
	Download(ctx context.Context, url, selector string, audioOnly bool, destDir string, onProgress func(downloader.Progress)) ([]string, error)
}

// SocialEngine fetches single posts or whole profiles.
type SocialEngine interface {
	DownloadPost(ctx context.Context, url, destDir string) ([]string, error)
	DownloadProfile(ctx context.Context, url, destDir string, limit int, onProgress func(count int)) ([]string, error)
}

// Orchestrator drives one download job end to end: engine call, progress
// relay, upload, staging cleanup, session removal. Nothing it does
// propagates past it; every entry point guarantees its own session is gone
// when it returns.
type Orchestrator struct {
	cfg       *config.Config
	transport telegram.Transport
	store     *session.Store
	stats     *stats.BotStats
	video     VideoEngine
	social    SocialEngine
	sem       *semaphore.Weighted
}

func New(cfg *config.Config, transport telegram.Transport, store *session.Store, botStats *stats.BotStats, video VideoEngine, social SocialEngine) *Orchestrator {
	jobs := cfg.MaxConcurrentJobs
	if jobs <= 0 {
		jobs = config.DefaultMaxConcurrentJobs
	}
	return &Orchestrator{
		cfg:       cfg,
		transport: transport,
		store:     store,
		stats:     botStats,
		video:     video,
		social:    social,
		sem:       semaphore.NewWeighted(int64(jobs)),
	}
}

// ListQualities asks the engine for the available qualities, falling back
// to the fixed default set when the probe fails. The flow always continues.
func (o *Orchestrator) ListQualities(ctx context.Context, url string) []config.QualityOption {
	qualities, err := o.video.ListQualities(ctx, url)
	if err != nil {
		logger.Warn("Quality probe failed, using fallback set", "url", url, "error", err)
		return config.FallbackQualities
	}
	return qualities
}

// RunVideo downloads the session's URL with the chosen format and quality
// and uploads the result.
func (o *Orchestrator) RunVideo(ctx context.Context, sess *session.Session) {
	o.run(ctx, sess, "YouTube download failed", func(ctx context.Context, dir string, progressMsgID int) ([]string, error) {
		selector := selectorFor(sess.Quality)
		audioOnly := sess.Format == session.FormatAudio

		onProgress := o.throttledProgress(sess.Reply.ChatID, progressMsgID, "YouTube")
		return o.video.Download(ctx, sess.URL, selector, audioOnly, dir, onProgress)
	})
}

// RunPost downloads a single Instagram post.
func (o *Orchestrator) RunPost(ctx context.Context, sess *session.Session) {
	o.run(ctx, sess, "Instagram download failed", func(ctx context.Context, dir string, progressMsgID int) ([]string, error) {
		return o.social.DownloadPost(ctx, sess.URL, dir)
	})
}

// RunProfile downloads an Instagram profile up to the configured post cap.
func (o *Orchestrator) RunProfile(ctx context.Context, sess *session.Session) {
	o.run(ctx, sess, "Instagram profile download failed", func(ctx context.Context, dir string, progressMsgID int) ([]string, error) {
		onProgress := func(count int) {
			text := fmt.Sprintf(
				"📥 *Instagram Profile Download*\n\n"+
					"📊 Downloaded: %d posts\n"+
					"🔄 Still working...",
				count,
			)
			if err := o.transport.EditMessage(sess.Reply.ChatID, progressMsgID, text, nil); err != nil {
				logger.Debug("Progress edit failed", "error", err)
			}
		}
		return o.social.DownloadProfile(ctx, sess.URL, dir, o.cfg.ProfilePostLimit, onProgress)
	})
}

// run is the shared job skeleton. The session is removed from the store no
// matter how the job ends, and the user sees at most one generic error
// notice per failed job.
func (o *Orchestrator) run(ctx context.Context, sess *session.Session, errContext string, download func(ctx context.Context, dir string, progressMsgID int) ([]string, error)) {
	// Remove only this job's own session. If it expired mid-download and
	// the user already started over, the fresh session stays.
	defer o.store.RemoveIf(sess.UserID, func(s *session.Session) bool { return s == sess })

	if err := o.sem.Acquire(ctx, 1); err != nil {
		o.fail(sess, errContext, err)
		return
	}
	defer o.sem.Release(1)

	ctx, cancel := context.WithTimeout(ctx, o.cfg.DownloadTimeout)
	defer cancel()

	dir, err := o.makeStagingDir()
	if err != nil {
		o.fail(sess, errContext, err)
		return
	}
	defer os.RemoveAll(dir)

	progressMsgID, err := o.transport.SendMessage(sess.Reply.ChatID,
		"📥 *Downloading...*\n\n🔄 Initializing download...\n📊 Progress: 0%", nil)
	if err != nil {
		logger.Warn("Failed to send progress message", "user", sess.UserID, "error", err)
	}

	start := time.Now()
	files, err := download(ctx, dir, progressMsgID)
	if err != nil {
		o.stats.RecordDownload(sess.UserID, string(sess.Platform), 0, 0, false)
		o.fail(sess, errContext, err)
		return
	}

	uploaded, bytes := o.uploadFiles(sess.Reply.ChatID, progressMsgID, files)
	o.stats.RecordDownload(sess.UserID, string(sess.Platform), uploaded, bytes, true)

	done := fmt.Sprintf(
		"✅ *Download Complete!*\n\n"+
			"📊 Files uploaded: %d\n"+
			"🎉 All files have been sent successfully!",
		uploaded,
	)
	if err := o.transport.EditMessage(sess.Reply.ChatID, progressMsgID, done, nil); err != nil {
		logger.Debug("Completion edit failed", "error", err)
	}

	logger.InfoWithDuration("Download job finished", start,
		"user", sess.UserID, "platform", sess.Platform, "files", uploaded)
}

// uploadFiles sends each produced file, skipping files over the size
// ceiling with a notice. Every file is deleted after its upload attempt,
// success or skip, to bound disk usage.
func (o *Orchestrator) uploadFiles(chatID int64, progressMsgID int, files []string) (int, int64) {
	uploaded := 0
	var totalBytes int64

	for _, path := range files {
		info, err := os.Stat(path)
		if err != nil {
			logger.Warn("Staged file vanished before upload", "path", path, "error", err)
			continue
		}

		if info.Size() > o.cfg.MaxFileSize {
			notice := fmt.Sprintf(
				"❌ File too large: %s\nSize: %.1fMB (Max: %.0fMB)",
				filepath.Base(path),
				float64(info.Size())/(1024*1024),
				float64(o.cfg.MaxFileSize)/(1024*1024),
			)
			if _, err := o.transport.SendMessage(chatID, notice, nil); err != nil {
				logger.Debug("Size notice failed", "error", err)
			}
			os.Remove(path)
			continue
		}

		text := fmt.Sprintf(
			"📤 *Uploading to Telegram...*\n\n"+
				"📁 File: %s\n"+
				"📊 Size: %.1fMB",
			filepath.Base(path), float64(info.Size())/(1024*1024),
		)
		if err := o.transport.EditMessage(chatID, progressMsgID, text, nil); err != nil {
			logger.Debug("Upload progress edit failed", "error", err)
		}

		if err := o.transport.SendFile(chatID, path, telegram.KindForFile(path)); err != nil {
			logger.Error("Upload failed", "path", path, "error", err)
		} else {
			uploaded++
			totalBytes += info.Size()
		}
		os.Remove(path)
	}

	return uploaded, totalBytes
}

// fail notifies the user once, reports detail to the support chat and
// leaves the session to the deferred removal.
func (o *Orchestrator) fail(sess *session.Session, errContext string, err error) {
	logger.Error("Download job failed", "user", sess.UserID, "context", errContext, "error", err)

	if _, sendErr := o.transport.SendMessage(sess.Reply.ChatID,
		"❌ An error occurred. Our support team has been notified.", nil); sendErr != nil {
		logger.Debug("Failure notice failed", "error", sendErr)
	}

	telegram.ReportError(o.transport, o.cfg.SupportChatID, errContext, sess.Reply.ChatID, err)
}

func (o *Orchestrator) throttledProgress(chatID int64, msgID int, platform string) func(downloader.Progress) {
	var lastUpdate time.Time
	return func(p downloader.Progress) {
		if time.Since(lastUpdate) < progressInterval {
			return
		}
		lastUpdate = time.Now()

		text := fmt.Sprintf(
			"📥 *Downloading from %s*\n\n"+
				"%s\n"+
				"├─ 📦 Size: `%s`\n"+
				"├─ 🚀 Speed: `%s`\n"+
				"└─ ⏱️ ETA: `%s`",
			platform,
			downloader.BuildProgressBar(p.Percentage),
			p.Downloaded, p.Speed, p.ETA,
		)
		if err := o.transport.EditMessage(chatID, msgID, text, nil); err != nil {
			logger.Debug("Progress edit failed", "error", err)
		}
	}
}

// makeStagingDir creates a uniquely named directory under the staging root
// so concurrent jobs never collide and cleanup only ever touches this
// job's own files.
func (o *Orchestrator) makeStagingDir() (string, error) {
	dir := filepath.Join(o.cfg.StagingDir, uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create staging dir: %w", err)
	}
	return dir, nil
}

func selectorFor(quality string) string {
	for _, q := range config.YouTubeQualities {
		if q.Label == quality {
			return q.Selector
		}
	}
	return "best"
}
