package handlers

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/avelira/lumen-tg-bot/config"
)

func welcomeText() string {
	return fmt.Sprintf(
		"🎉 *Welcome to %s!*\n\n"+
			"Your ultimate media downloader bot for YouTube and Instagram content.\n\n"+
			"Choose an option below to get started:",
		config.BotName,
	)
}

func helpText() string {
	return fmt.Sprintf(
		"❓ *Help - %s*\n\n"+
			"*🎯 Available Commands:*\n"+
			"• /start - Start the bot and show main menu\n"+
			"• /download - Start downloading media\n"+
			"• /stats - Show bot statistics\n\n"+
			"*🎥 YouTube Downloads:*\n"+
			"• Send YouTube video URL\n"+
			"• Choose format: Video, Audio, or File\n"+
			"• Select quality from available options\n\n"+
			"*📸 Instagram Downloads:*\n"+
			"• Send Instagram post or profile URL\n"+
			"• For profiles: Confirm to download all posts\n"+
			"• For posts: Direct download\n\n"+
			"*⏱️ Session Timeout:*\n"+
			"• 30 seconds to send links after selection\n"+
			"• Sessions auto-expire for security",
		config.BotName,
	)
}

func welcomeKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📋 About", cbAbout),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❓ Help", cbHelp),
		),
	)
	return &kb
}

func backKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Back", cbBackToStart),
		),
	)
	return &kb
}

func platformKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎥 YouTube", cbYouTube),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📸 Instagram", cbInstagram),
		),
	)
	return &kb
}

func formatKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎥 Video", prefixFormat+"video"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎵 Audio", prefixFormat+"audio"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📁 File", prefixFormat+"file"),
		),
	)
	return &kb
}

func qualityKeyboard(qualities []config.QualityOption) *tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(qualities))
	for _, q := range qualities {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📺 "+q.Label, prefixQuality+q.Label),
		))
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func profileConfirmKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Yes, Download All", cbConfirmProfile),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", cbCancelProfile),
		),
	)
	return &kb
}
