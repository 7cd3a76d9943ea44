package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/avelira/lumen-tg-bot/internal/handlers"
	"github.com/avelira/lumen-tg-bot/internal/middleware"
	"github.com/avelira/lumen-tg-bot/internal/session"
	"github.com/avelira/lumen-tg-bot/pkg/logger"
)

// Bot drives the long-poll update loop and routes each update to the
// conversation controller. Updates are handled concurrently; the session
// store's per-user handling lock serializes events for the same user.
type Bot struct {
	api  *tgbotapi.BotAPI
	ctrl *handlers.Controller
}

func New(api *tgbotapi.BotAPI, ctrl *handlers.Controller) *Bot {
	return &Bot{api: api, ctrl: ctrl}
}

func (b *Bot) Run(ctx context.Context) error {
	logger.Info("Bot online", "username", b.api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.dispatch(ctx, update)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		q := update.CallbackQuery
		if q.Message == nil || q.From == nil {
			return
		}
		reply := session.ReplyContext{
			ChatID:    q.Message.Chat.ID,
			MessageID: q.Message.MessageID,
		}
		handler := func() {
			b.ctrl.HandleCallback(ctx, q.From.ID, q.ID, q.Data, reply)
		}
		go middleware.Chain(handler,
			middleware.Recover,
			func(next func()) func() { return middleware.Logger("OnCallback", next) },
		)()

	case update.Message != nil:
		msg := update.Message
		if msg.From == nil {
			return
		}
		reply := session.ReplyContext{
			ChatID:    msg.Chat.ID,
			MessageID: msg.MessageID,
		}
		var handler func()
		if msg.IsCommand() {
			name := msg.Command()
			handler = func() {
				b.ctrl.HandleCommand(ctx, name, msg.From.ID, reply)
			}
		} else {
			text := msg.Text
			handler = func() {
				b.ctrl.HandleText(ctx, msg.From.ID, text, reply)
			}
		}
		go middleware.Chain(handler,
			middleware.Recover,
			func(next func()) func() { return middleware.Logger("OnMessage", next) },
		)()
	}
}
