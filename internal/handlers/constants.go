package handlers

// Callback payloads. The structured prefixes carry the chosen value after
// the last underscore.
const (
	cbAbout          = "about"
	cbHelp           = "help"
	cbBackToStart    = "back_to_start"
	cbYouTube        = "download_youtube"
	cbInstagram      = "download_instagram"
	cbConfirmProfile = "ig_confirm_profile"
	cbCancelProfile  = "ig_cancel_profile"

	prefixFormat  = "yt_format_"
	prefixQuality = "yt_quality_"
)

const (
	// SessionExpiredText is also sent by the timeout supervisor when it
	// expires an idle session.
	SessionExpiredText = "⏰ *Session Expired*\n\n" +
		"You took too long to respond. Please try again with /download"

	noSessionText = "❌ No active session. Use /download to start downloading."

	expiredOnInputText = "⏰ Session expired. Please try again with /download"

	choosePlatformText = "🔽 *Choose Platform to Download:*"

	youtubePromptText = "🎥 *YouTube Download*\n\n" +
		"📎 Please send me a YouTube video URL\n" +
		"⏰ You have %d seconds to send the link..."

	instagramPromptText = "📸 *Instagram Download*\n\n" +
		"📎 Please send me an Instagram post or profile URL\n" +
		"⏰ You have %d seconds to send the link..."

	invalidYouTubeURLText = "❌ Invalid YouTube URL. Please send a valid YouTube link."

	invalidInstagramURLText = "❌ Invalid Instagram URL. Please send a valid Instagram link."

	chooseFormatText = "✅ *YouTube URL Received!*\n\n🎯 Choose download format:"

	profileConfirmText = "⚠️ *Profile Link Detected*\n\n" +
		"This appears to be an Instagram profile link.\n" +
		"Do you want to download ALL posts from this account?\n\n" +
		"⚡ This may take a while depending on the number of posts."

	startingDownloadText = "🚀 *Starting Download...*\n\n" +
		"⏳ Please wait while we process your request..."

	startingProfileText = "📥 *Instagram Profile Download*\n\n" +
		"🔄 Starting profile download...\n" +
		"⚠️ This may take several minutes..."

	cancelledText = "❌ *Download Cancelled*\n\n" +
		"Use /download to start a new download."
)
