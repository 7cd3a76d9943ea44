package handlers

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/avelira/lumen-tg-bot/config"
	"github.com/avelira/lumen-tg-bot/internal/downloader"
	"github.com/avelira/lumen-tg-bot/internal/orchestrator"
	"github.com/avelira/lumen-tg-bot/internal/session"
	"github.com/avelira/lumen-tg-bot/internal/stats"
	"github.com/avelira/lumen-tg-bot/internal/telegram"
	"github.com/avelira/lumen-tg-bot/pkg/logger"
)

// Controller sequences the download conversation: it validates every
// inbound event against the user's session state, advances the session and
// hands terminal actions to the orchestrator.
type Controller struct {
	cfg       *config.Config
	transport telegram.Transport
	store     *session.Store
	timeouts  *session.Supervisor
	orch      *orchestrator.Orchestrator
	stats     *stats.BotStats
}

func NewController(cfg *config.Config, transport telegram.Transport, store *session.Store, timeouts *session.Supervisor, orch *orchestrator.Orchestrator, botStats *stats.BotStats) *Controller {
	return &Controller{
		cfg:       cfg,
		transport: transport,
		store:     store,
		timeouts:  timeouts,
		orch:      orch,
		stats:     botStats,
	}
}

// HandleCommand processes menu-level commands.
func (c *Controller) HandleCommand(ctx context.Context, name string, userID int64, reply session.ReplyContext) {
	switch name {
	case "start":
		c.send(reply.ChatID, welcomeText(), welcomeKeyboard())
	case "download":
		c.send(reply.ChatID, choosePlatformText, platformKeyboard())
	case "help":
		c.send(reply.ChatID, helpText(), nil)
	case "stats":
		c.send(reply.ChatID, c.statsText(), nil)
	default:
		c.send(reply.ChatID, "❌ Unknown command. Type /help to see available commands.", nil)
	}
}

// HandleCallback processes a button click. The opaque payload's prefix
// selects the action.
func (c *Controller) HandleCallback(ctx context.Context, userID int64, callbackID, payload string, reply session.ReplyContext) {
	if err := c.transport.AnswerCallback(callbackID); err != nil {
		logger.Debug("Answer callback failed", "error", err)
	}

	// Updates arrive on separate goroutines; the user's handling lock keeps
	// two events for the same user from mutating the session concurrently.
	defer c.store.Lock(userID)()

	switch {
	case payload == cbAbout:
		c.edit(reply, c.aboutText(), backKeyboard())
	case payload == cbHelp:
		c.edit(reply, helpText(), backKeyboard())
	case payload == cbBackToStart:
		c.edit(reply, welcomeText(), welcomeKeyboard())
	case payload == cbYouTube:
		c.startSession(userID, session.PlatformYouTube, reply)
	case payload == cbInstagram:
		c.startSession(userID, session.PlatformInstagram, reply)
	case strings.HasPrefix(payload, prefixFormat):
		c.handleFormat(ctx, userID, strings.TrimPrefix(payload, prefixFormat), reply)
	case strings.HasPrefix(payload, prefixQuality):
		c.handleQuality(userID, strings.TrimPrefix(payload, prefixQuality), reply)
	case payload == cbConfirmProfile:
		c.handleProfileConfirm(userID, reply)
	case payload == cbCancelProfile:
		c.handleProfileCancel(userID, reply)
	default:
		logger.Warn("Unknown callback payload", "user", userID, "payload", payload)
	}
}

// HandleText processes a free-text message, expected to be a URL for the
// user's active session.
func (c *Controller) HandleText(ctx context.Context, userID int64, text string, reply session.ReplyContext) {
	defer c.store.Lock(userID)()

	sess, ok := c.store.Get(userID)
	if !ok {
		c.send(reply.ChatID, noSessionText, nil)
		return
	}

	if sess.Expired(c.cfg.SessionTimeout) {
		if _, removed := c.store.Remove(userID); removed {
			c.timeouts.Cancel(userID)
			c.send(reply.ChatID, expiredOnInputText, nil)
		}
		return
	}

	if sess.State != session.StateAwaitingLink {
		return
	}

	switch sess.Platform {
	case session.PlatformYouTube:
		c.handleYouTubeLink(sess, text, reply)
	case session.PlatformInstagram:
		c.handleInstagramLink(sess, text, reply)
	}
}

// startSession creates the session, prompts for a link and arms the expiry
// timer. Picking a platform again simply replaces any previous session.
func (c *Controller) startSession(userID int64, platform session.Platform, reply session.ReplyContext) {
	sess := session.New(userID, platform, reply)
	c.store.Put(userID, sess)
	c.timeouts.Schedule(userID, sess.CreatedAt)

	seconds := int(c.cfg.SessionTimeout.Seconds())
	prompt := fmt.Sprintf(youtubePromptText, seconds)
	if platform == session.PlatformInstagram {
		prompt = fmt.Sprintf(instagramPromptText, seconds)
	}
	c.edit(reply, prompt, nil)

	logger.Info("Session started", "user", userID, "platform", platform)
}

func (c *Controller) handleYouTubeLink(sess *session.Session, url string, reply session.ReplyContext) {
	if !isYouTubeURL(url) {
		c.send(reply.ChatID, invalidYouTubeURLText, nil)
		return
	}

	sess.URL = url
	sess.State = session.StateChoosingFormat
	c.send(reply.ChatID, chooseFormatText, formatKeyboard())
}

func (c *Controller) handleInstagramLink(sess *session.Session, url string, reply session.ReplyContext) {
	if !isInstagramURL(url) {
		c.send(reply.ChatID, invalidInstagramURLText, nil)
		return
	}

	sess.URL = url

	if downloader.IsPostURL(url) {
		sess.State = session.StateDownloading
		sess.Reply = reply
		go c.orch.RunPost(context.Background(), sess)
		return
	}

	sess.State = session.StateAwaitingProfileConf
	c.send(reply.ChatID, profileConfirmText, profileConfirmKeyboard())
}

func (c *Controller) handleFormat(ctx context.Context, userID int64, format string, reply session.ReplyContext) {
	sess, ok := c.store.Get(userID)
	if !ok {
		c.send(reply.ChatID, noSessionText, nil)
		return
	}
	if sess.State != session.StateChoosingFormat {
		logger.Warn("Format button out of sequence", "user", userID, "state", sess.State)
		return
	}

	sess.Format = session.Format(format)
	sess.State = session.StateChoosingQuality

	qualities := c.orch.ListQualities(ctx, sess.URL)

	text := fmt.Sprintf("🎯 *Format: %s*\n\n📊 Choose quality:", titleCase(format))
	if err := c.transport.EditMessage(reply.ChatID, reply.MessageID, text, qualityKeyboard(qualities)); err != nil {
		c.abortSession(sess, "Failed to present YouTube qualities", err)
	}
}

func (c *Controller) handleQuality(userID int64, quality string, reply session.ReplyContext) {
	sess, ok := c.store.Get(userID)
	if !ok {
		c.send(reply.ChatID, noSessionText, nil)
		return
	}
	if sess.State != session.StateChoosingQuality {
		logger.Warn("Quality button out of sequence", "user", userID, "state", sess.State)
		return
	}

	sess.Quality = quality
	sess.State = session.StateDownloading
	sess.Reply = reply

	c.edit(reply, startingDownloadText, nil)
	go c.orch.RunVideo(context.Background(), sess)
}

func (c *Controller) handleProfileConfirm(userID int64, reply session.ReplyContext) {
	sess, ok := c.store.Get(userID)
	if !ok {
		c.send(reply.ChatID, noSessionText, nil)
		return
	}
	if sess.State != session.StateAwaitingProfileConf {
		logger.Warn("Profile confirm out of sequence", "user", userID, "state", sess.State)
		return
	}

	sess.State = session.StateDownloading
	sess.Reply = reply

	c.edit(reply, startingProfileText, nil)
	go c.orch.RunProfile(context.Background(), sess)
}

func (c *Controller) handleProfileCancel(userID int64, reply session.ReplyContext) {
	if _, removed := c.store.Remove(userID); !removed {
		c.send(reply.ChatID, noSessionText, nil)
		return
	}
	c.timeouts.Cancel(userID)
	c.edit(reply, cancelledText, nil)
	logger.Info("Profile download cancelled", "user", userID)
}

// abortSession terminates a flow on an unrecoverable error: one generic
// notice to the user, full detail to the support chat, session gone.
func (c *Controller) abortSession(sess *session.Session, errContext string, err error) {
	logger.Error("Session aborted", "user", sess.UserID, "context", errContext, "error", err)

	if _, removed := c.store.Remove(sess.UserID); removed {
		c.timeouts.Cancel(sess.UserID)
	}

	c.send(sess.Reply.ChatID, "❌ An error occurred. Our support team has been notified.", nil)
	telegram.ReportError(c.transport, c.cfg.SupportChatID, errContext, sess.Reply.ChatID, err)
}

func (c *Controller) aboutText() string {
	sys := stats.CollectSystemInfo()
	return fmt.Sprintf(
		"ℹ️ *About %s*\n\n"+
			"🤖 *Bot Name:* %s\n"+
			"👨‍💻 *Owner:* %s\n"+
			"🏠 *Hosted at:* %s\n"+
			"📊 *Version:* %s\n"+
			"⏰ *Uptime:* %s\n"+
			"🖥️ *Host uptime:* %s\n\n"+
			"This bot helps you download media content from various social media platforms with ease and high quality.",
		config.BotName,
		config.BotName,
		c.cfg.BotOwner,
		c.cfg.HostedAt,
		config.BotVersion,
		formatUptime(c.stats.Uptime()),
		formatUptime(sys.HostUptime),
	)
}

func (c *Controller) statsText() string {
	sum := c.stats.Snapshot()
	sys := stats.CollectSystemInfo()

	text := fmt.Sprintf(
		"📊 *%s Stats*\n\n"+
			"⏰ Uptime: %s\n"+
			"📥 Downloads: %d (✅ %d / ❌ %d)\n"+
			"📁 Files sent: %d (%s)\n"+
			"👥 Unique users: %d\n"+
			"🧵 Goroutines: %d\n"+
			"🧠 RAM: %s / %s\n"+
			"⚙️ CPU: %.1f%%",
		config.BotName,
		formatUptime(sum.Uptime),
		sum.TotalDownloads, sum.SuccessDownloads, sum.FailedDownloads,
		sum.TotalFiles, FormatFileSize(sum.TotalBytes),
		sum.UniqueUsers,
		sum.GoRoutines,
		FormatFileSize(int64(sys.RAMUsed)), FormatFileSize(int64(sys.RAMTotal)),
		sys.CPUUsage,
	)

	if len(sum.PlatformStats) > 0 {
		text += "\n\n*Platforms:*"
		for platform, count := range sum.PlatformStats {
			text += fmt.Sprintf("\n• %s: %d", platform, count)
		}
	}

	return text
}

func (c *Controller) send(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	if _, err := c.transport.SendMessage(chatID, text, keyboard); err != nil {
		logger.Debug("Send failed", "chat", chatID, "error", err)
	}
}

func (c *Controller) edit(reply session.ReplyContext, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	if err := c.transport.EditMessage(reply.ChatID, reply.MessageID, text, keyboard); err != nil {
		logger.Debug("Edit failed", "chat", reply.ChatID, "error", err)
	}
}
