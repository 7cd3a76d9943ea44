package session

import "time"

// Platform is the source service a session targets.
type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformInstagram Platform = "instagram"
)

// State is the step a session is currently waiting on.
type State string

const (
	StateAwaitingLink        State = "awaiting_link"
	StateChoosingFormat      State = "choosing_format"
	StateChoosingQuality     State = "choosing_quality"
	StateAwaitingProfileConf State = "awaiting_profile_confirmation"
	StateDownloading         State = "downloading"
)

// Format is the requested delivery format for a YouTube download.
type Format string

const (
	FormatVideo Format = "video"
	FormatAudio Format = "audio"
	FormatFile  Format = "file"
)

// ReplyContext addresses the chat and message a session's responses go to.
type ReplyContext struct {
	ChatID    int64
	MessageID int
}

// Session is one user's in-progress download conversation. It lives from
// platform selection until the download finishes, is cancelled, errors out
// or expires.
type Session struct {
	UserID    int64
	Platform  Platform
	State     State
	URL       string
	Format    Format
	Quality   string
	CreatedAt time.Time
	Reply     ReplyContext
}

func New(userID int64, platform Platform, reply ReplyContext) *Session {
	return &Session{
		UserID:    userID,
		Platform:  platform,
		State:     StateAwaitingLink,
		CreatedAt: time.Now(),
		Reply:     reply,
	}
}

// Expired reports whether the session's original window has elapsed.
// The window is measured against CreatedAt and is never refreshed when the
// user advances a step.
func (s *Session) Expired(window time.Duration) bool {
	return time.Since(s.CreatedAt) > window
}
