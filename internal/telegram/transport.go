package telegram

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/avelira/lumen-tg-bot/pkg/logger"
)

// FileKind selects which Telegram upload method a file goes through.
type FileKind string

const (
	KindVideo    FileKind = "video"
	KindAudio    FileKind = "audio"
	KindDocument FileKind = "document"
)

var fileKinds = map[string]FileKind{
	".mp4": KindVideo,
	".avi": KindVideo,
	".mov": KindVideo,
	".mp3": KindAudio,
	".wav": KindAudio,
	".m4a": KindAudio,
}

// KindForFile picks the upload kind by file extension.
func KindForFile(path string) FileKind {
	if kind, ok := fileKinds[strings.ToLower(filepath.Ext(path))]; ok {
		return kind
	}
	return KindDocument
}

// Transport is the messaging surface the bot core talks to. The concrete
// implementation wraps the Bot API; tests substitute a recorder.
type Transport interface {
	SendMessage(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) (messageID int, err error)
	EditMessage(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) error
	SendFile(chatID int64, path string, kind FileKind) error
	AnswerCallback(callbackID string) error
}

type botTransport struct {
	api *tgbotapi.BotAPI
}

func NewTransport(api *tgbotapi.BotAPI) Transport {
	return &botTransport{api: api}
}

func (t *botTransport) SendMessage(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if keyboard != nil {
		msg.ReplyMarkup = *keyboard
	}

	sent, err := t.api.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("send message failed: %w", err)
	}
	return sent.MessageID, nil
}

func (t *botTransport) EditMessage(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	if keyboard != nil {
		edit.ReplyMarkup = keyboard
	}

	if _, err := t.api.Send(edit); err != nil {
		return fmt.Errorf("edit message failed: %w", err)
	}
	return nil
}

func (t *botTransport) SendFile(chatID int64, path string, kind FileKind) error {
	var c tgbotapi.Chattable
	switch kind {
	case KindVideo:
		c = tgbotapi.NewVideo(chatID, tgbotapi.FilePath(path))
	case KindAudio:
		c = tgbotapi.NewAudio(chatID, tgbotapi.FilePath(path))
	default:
		c = tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
	}

	if _, err := t.api.Send(c); err != nil {
		return fmt.Errorf("send %s failed: %w", kind, err)
	}
	return nil
}

func (t *botTransport) AnswerCallback(callbackID string) error {
	if _, err := t.api.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		return fmt.Errorf("answer callback failed: %w", err)
	}
	return nil
}

// ReportError forwards full error detail to the support chat. Delivery is
// best effort; a failed report is only logged.
func ReportError(t Transport, supportChatID int64, context string, chatID int64, err error) {
	if supportChatID == 0 {
		logger.Warn("No support chat configured, dropping error report", "context", context, "error", err)
		return
	}

	report := fmt.Sprintf(
		"🚨 *Error Report*\n\n"+
			"*Context:* %s\n"+
			"*Chat ID:* %d\n"+
			"*Error:* %s\n"+
			"*Time:* %s",
		context, chatID, err.Error(), time.Now().Format("2006-01-02 15:04:05"),
	)

	if _, sendErr := t.SendMessage(supportChatID, report, nil); sendErr != nil {
		logger.Error("Failed to send error report to support chat", "context", context, "error", sendErr)
	}
}
