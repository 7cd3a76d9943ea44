package app

import (
	"context"
	"fmt"
	"os"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/avelira/lumen-tg-bot/config"
	"github.com/avelira/lumen-tg-bot/internal/bot"
	"github.com/avelira/lumen-tg-bot/internal/downloader"
	"github.com/avelira/lumen-tg-bot/internal/handlers"
	"github.com/avelira/lumen-tg-bot/internal/orchestrator"
	"github.com/avelira/lumen-tg-bot/internal/session"
	"github.com/avelira/lumen-tg-bot/internal/stats"
	"github.com/avelira/lumen-tg-bot/internal/telegram"
	"github.com/avelira/lumen-tg-bot/pkg/logger"
)

type App struct {
	Bot      *bot.Bot
	Cfg      *config.Config
	timeouts *session.Supervisor
	stats    *stats.BotStats
}

func New() (*App, error) {
	cfg := config.Load()
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN is not set")
	}

	if err := os.MkdirAll(cfg.StagingDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create staging dir: %w", err)
	}

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram auth failed: %w", err)
	}

	transport := telegram.NewTransport(api)
	store := session.NewStore()
	botStats := stats.New()
	botStats.StartAutoSave(5 * time.Minute)

	timeouts := session.NewSupervisor(store, cfg.SessionTimeout, func(s *session.Session) {
		if _, err := transport.SendMessage(s.Reply.ChatID, handlers.SessionExpiredText, nil); err != nil {
			logger.Debug("Expiry notice failed", "user", s.UserID, "error", err)
		}
	})

	orch := orchestrator.New(cfg, transport, store, botStats,
		downloader.NewYouTube(), downloader.NewInstagram())

	ctrl := handlers.NewController(cfg, transport, store, timeouts, orch, botStats)

	logger.Info("Application initialized",
		"timeout", cfg.SessionTimeout,
		"max_file_size", cfg.MaxFileSize,
		"profile_limit", cfg.ProfilePostLimit,
	)

	return &App{
		Bot:      bot.New(api, ctrl),
		Cfg:      cfg,
		timeouts: timeouts,
		stats:    botStats,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	defer a.timeouts.Stop()
	defer func() {
		if err := a.stats.SaveToFile(); err != nil {
			logger.Warn("Failed to save stats on shutdown", "error", err)
		}
	}()
	return a.Bot.Run(ctx)
}
