package handlers

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/avelira/lumen-tg-bot/config"
	"github.com/avelira/lumen-tg-bot/internal/downloader"
	"github.com/avelira/lumen-tg-bot/internal/orchestrator"
	"github.com/avelira/lumen-tg-bot/internal/session"
	"github.com/avelira/lumen-tg-bot/internal/stats"
	"github.com/avelira/lumen-tg-bot/internal/telegram"
)

type record struct {
	ChatID   int64
	Text     string
	Keyboard *tgbotapi.InlineKeyboardMarkup
}

type fakeTransport struct {
	mu        sync.Mutex
	messages  []record
	edits     []record
	files     []string
	answered  []string
	nextMsgID int
}

func (f *fakeTransport) SendMessage(chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, record{chatID, text, kb})
	f.nextMsgID++
	return f.nextMsgID, nil
}

func (f *fakeTransport) EditMessage(chatID int64, _ int, text string, kb *tgbotapi.InlineKeyboardMarkup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, record{chatID, text, kb})
	return nil
}

func (f *fakeTransport) SendFile(_ int64, path string, _ telegram.FileKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files = append(f.files, path)
	return nil
}

func (f *fakeTransport) AnswerCallback(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answered = append(f.answered, id)
	return nil
}

func (f *fakeTransport) lastMessage() record {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.messages) == 0 {
		return record{}
	}
	return f.messages[len(f.messages)-1]
}

func (f *fakeTransport) lastEdit() record {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.edits) == 0 {
		return record{}
	}
	return f.edits[len(f.edits)-1]
}

func (f *fakeTransport) allTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.messages {
		out = append(out, m.Text)
	}
	for _, e := range f.edits {
		out = append(out, e.Text)
	}
	return out
}

func (f *fakeTransport) uploadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.files)
}

type fakeVideoEngine struct {
	qualitiesErr error
	files        map[string]int64
	downloadErr  error
}

func (e *fakeVideoEngine) ListQualities(context.Context, string) ([]config.QualityOption, error) {
	if e.qualitiesErr != nil {
		return nil, e.qualitiesErr
	}
	return config.YouTubeQualities, nil
}

func (e *fakeVideoEngine) Download(_ context.Context, _, _ string, _ bool, destDir string, _ func(downloader.Progress)) ([]string, error) {
	if e.downloadErr != nil {
		return nil, e.downloadErr
	}
	return stageFiles(destDir, e.files)
}

type fakeSocialEngine struct {
	files        map[string]int64
	downloadErr  error
	mu           sync.Mutex
	postCalls    int
	profileCalls int
	profileLimit int
}

func (e *fakeSocialEngine) DownloadPost(_ context.Context, _, destDir string) ([]string, error) {
	e.mu.Lock()
	e.postCalls++
	e.mu.Unlock()
	if e.downloadErr != nil {
		return nil, e.downloadErr
	}
	return stageFiles(destDir, e.files)
}

func (e *fakeSocialEngine) DownloadProfile(_ context.Context, _, destDir string, limit int, _ func(int)) ([]string, error) {
	e.mu.Lock()
	e.profileCalls++
	e.profileLimit = limit
	e.mu.Unlock()
	if e.downloadErr != nil {
		return nil, e.downloadErr
	}
	return stageFiles(destDir, e.files)
}

func (e *fakeSocialEngine) calls() (int, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.postCalls, e.profileCalls
}

func (e *fakeSocialEngine) lastProfileLimit() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.profileLimit
}

func stageFiles(destDir string, files map[string]int64) ([]string, error) {
	var out []string
	for name, size := range files {
		path := filepath.Join(destDir, name)
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		if err := f.Truncate(size); err != nil {
			f.Close()
			return nil, err
		}
		f.Close()
		out = append(out, path)
	}
	return out, nil
}

type testEnv struct {
	ctrl      *Controller
	transport *fakeTransport
	store     *session.Store
	timeouts  *session.Supervisor
	video     *fakeVideoEngine
	social    *fakeSocialEngine
}

func newTestEnv(t *testing.T, window time.Duration) *testEnv {
	t.Helper()

	cfg := &config.Config{
		SupportChatID:     999,
		SessionTimeout:    window,
		DownloadTimeout:   time.Minute,
		MaxFileSize:       config.DefaultMaxFileSize,
		ProfilePostLimit:  50,
		MaxConcurrentJobs: 2,
		StagingDir:        t.TempDir(),
	}

	transport := &fakeTransport{}
	store := session.NewStore()
	timeouts := session.NewSupervisor(store, window, func(s *session.Session) {
		transport.SendMessage(s.Reply.ChatID, SessionExpiredText, nil)
	})
	t.Cleanup(timeouts.Stop)

	video := &fakeVideoEngine{files: map[string]int64{"media.mp4": 2048}}
	social := &fakeSocialEngine{files: map[string]int64{"photo.jpg": 1024}}

	orch := orchestrator.New(cfg, transport, store, stats.New(), video, social)
	ctrl := NewController(cfg, transport, store, timeouts, orch, stats.New())

	return &testEnv{
		ctrl:      ctrl,
		transport: transport,
		store:     store,
		timeouts:  timeouts,
		video:     video,
		social:    social,
	}
}

func reply(chatID int64) session.ReplyContext {
	return session.ReplyContext{ChatID: chatID, MessageID: 10}
}

func waitForRemoval(t *testing.T, store *session.Store, userID int64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !store.Exists(userID) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("session was not removed in time")
}

func TestScenarioA_WelcomeAboutBack(t *testing.T) {
	env := newTestEnv(t, 30*time.Second)
	ctx := context.Background()

	env.ctrl.HandleCommand(ctx, "start", 42, reply(42))

	welcome := env.transport.lastMessage()
	if !strings.Contains(welcome.Text, "Welcome to") {
		t.Fatalf("expected welcome message, got %q", welcome.Text)
	}
	if welcome.Keyboard == nil || len(welcome.Keyboard.InlineKeyboard) != 2 {
		t.Fatal("welcome menu should carry About and Help buttons")
	}

	env.ctrl.HandleCallback(ctx, 42, "cb1", "about", reply(42))

	about := env.transport.lastEdit()
	if !strings.Contains(about.Text, "About") || !strings.Contains(about.Text, "Uptime") {
		t.Errorf("about text missing fields: %q", about.Text)
	}
	if about.Keyboard == nil || about.Keyboard.InlineKeyboard[0][0].CallbackData == nil ||
		*about.Keyboard.InlineKeyboard[0][0].CallbackData != "back_to_start" {
		t.Error("about view should carry a Back button")
	}

	env.ctrl.HandleCallback(ctx, 42, "cb2", "back_to_start", reply(42))

	back := env.transport.lastEdit()
	if !strings.Contains(back.Text, "Welcome to") {
		t.Errorf("back button should restore the welcome menu, got %q", back.Text)
	}
}

func TestScenarioB_YouTubeFullFlow(t *testing.T) {
	env := newTestEnv(t, 30*time.Second)
	ctx := context.Background()

	env.ctrl.HandleCallback(ctx, 42, "cb1", "download_youtube", reply(42))

	sess, ok := env.store.Get(42)
	if !ok || sess.State != session.StateAwaitingLink {
		t.Fatalf("expected AwaitingLink session, got %+v", sess)
	}

	env.ctrl.HandleText(ctx, 42, "https://youtu.be/abc123", reply(42))

	if sess.State != session.StateChoosingFormat {
		t.Fatalf("expected ChoosingFormat, got %s", sess.State)
	}
	if sess.URL != "https://youtu.be/abc123" {
		t.Errorf("url not stored: %q", sess.URL)
	}

	env.ctrl.HandleCallback(ctx, 42, "cb2", "yt_format_audio", reply(42))

	if sess.State != session.StateChoosingQuality {
		t.Fatalf("expected ChoosingQuality, got %s", sess.State)
	}
	if sess.Format != session.FormatAudio {
		t.Errorf("format not stored: %q", sess.Format)
	}
	quality := env.transport.lastEdit()
	if quality.Keyboard == nil || len(quality.Keyboard.InlineKeyboard) != len(config.YouTubeQualities) {
		t.Error("expected the full quality keyboard")
	}

	env.ctrl.HandleCallback(ctx, 42, "cb3", "yt_quality_Best", reply(42))

	waitForRemoval(t, env.store, 42)
	if env.transport.uploadCount() != 1 {
		t.Errorf("expected 1 uploaded file, got %d", env.transport.uploadCount())
	}
}

func TestConcurrentTextEventsProcessedOnce(t *testing.T) {
	env := newTestEnv(t, 30*time.Second)
	ctx := context.Background()

	env.ctrl.HandleCallback(ctx, 42, "cb1", "download_youtube", reply(42))

	// Two copies of the link arriving back to back must not both advance
	// the session: the second sees ChoosingFormat and is dropped.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			env.ctrl.HandleText(ctx, 42, "https://youtu.be/abc123", reply(42))
		}()
	}
	wg.Wait()

	sess, ok := env.store.Get(42)
	if !ok || sess.State != session.StateChoosingFormat {
		t.Fatalf("expected ChoosingFormat after the burst, got %+v", sess)
	}

	formatPrompts := 0
	for _, text := range env.transport.allTexts() {
		if strings.Contains(text, "Choose download format") {
			formatPrompts++
		}
	}
	if formatPrompts != 1 {
		t.Errorf("expected exactly one format prompt, got %d", formatPrompts)
	}
}

func TestScenarioC_ProfileCancel(t *testing.T) {
	env := newTestEnv(t, 30*time.Second)
	ctx := context.Background()

	env.ctrl.HandleCallback(ctx, 42, "cb1", "download_instagram", reply(42))
	env.ctrl.HandleText(ctx, 42, "https://instagram.com/someuser", reply(42))

	sess, ok := env.store.Get(42)
	if !ok || sess.State != session.StateAwaitingProfileConf {
		t.Fatalf("expected profile confirmation state, got %+v", sess)
	}
	confirm := env.transport.lastMessage()
	if !strings.Contains(confirm.Text, "Profile Link Detected") {
		t.Errorf("expected confirmation prompt, got %q", confirm.Text)
	}

	env.ctrl.HandleCallback(ctx, 42, "cb2", "ig_cancel_profile", reply(42))

	if env.store.Exists(42) {
		t.Error("cancel should remove the session")
	}
	if !strings.Contains(env.transport.lastEdit().Text, "Cancelled") {
		t.Error("expected a cancellation notice")
	}

	posts, profiles := env.social.calls()
	if posts != 0 || profiles != 0 {
		t.Errorf("no download should run after cancel, got %d/%d", posts, profiles)
	}
}

func TestScenarioD_TimeoutExpiry(t *testing.T) {
	env := newTestEnv(t, 50*time.Millisecond)
	ctx := context.Background()

	env.ctrl.HandleCallback(ctx, 42, "cb1", "download_youtube", reply(42))

	waitForRemoval(t, env.store, 42)

	var expiryNotice bool
	for _, text := range env.transport.allTexts() {
		if strings.Contains(text, "Session Expired") {
			expiryNotice = true
		}
	}
	if !expiryNotice {
		t.Error("expected an expiry notice from the supervisor")
	}

	env.ctrl.HandleText(ctx, 42, "https://youtu.be/abc123", reply(42))
	if !strings.Contains(env.transport.lastMessage().Text, "No active session") {
		t.Error("text after expiry should yield a no-active-session notice")
	}
}

func TestExpiredSessionRejectedOnInput(t *testing.T) {
	env := newTestEnv(t, 30*time.Second)
	ctx := context.Background()

	sess := session.New(42, session.PlatformYouTube, reply(42))
	sess.CreatedAt = time.Now().Add(-31 * time.Second)
	env.store.Put(42, sess)

	env.ctrl.HandleText(ctx, 42, "https://youtu.be/abc123", reply(42))

	if env.store.Exists(42) {
		t.Error("expired session should be removed on input")
	}
	if !strings.Contains(env.transport.lastMessage().Text, "expired") {
		t.Errorf("expected an expiry notice, got %q", env.transport.lastMessage().Text)
	}
}

func TestInputInsideWindowAccepted(t *testing.T) {
	env := newTestEnv(t, 30*time.Second)
	ctx := context.Background()

	sess := session.New(42, session.PlatformYouTube, reply(42))
	sess.CreatedAt = time.Now().Add(-29 * time.Second)
	env.store.Put(42, sess)

	env.ctrl.HandleText(ctx, 42, "https://youtu.be/abc123", reply(42))

	if sess.State != session.StateChoosingFormat {
		t.Errorf("input just inside the window should be accepted, state %s", sess.State)
	}
}

func TestInvalidURLKeepsSession(t *testing.T) {
	env := newTestEnv(t, 30*time.Second)
	ctx := context.Background()

	env.ctrl.HandleCallback(ctx, 42, "cb1", "download_youtube", reply(42))
	env.ctrl.HandleText(ctx, 42, "https://example.com/not-youtube", reply(42))

	sess, ok := env.store.Get(42)
	if !ok {
		t.Fatal("session should survive an invalid URL")
	}
	if sess.State != session.StateAwaitingLink {
		t.Errorf("state should stay AwaitingLink, got %s", sess.State)
	}
	if !strings.Contains(env.transport.lastMessage().Text, "Invalid YouTube URL") {
		t.Error("expected an invalid-URL notice")
	}
}

func TestNoSessionInputsRejected(t *testing.T) {
	env := newTestEnv(t, 30*time.Second)
	ctx := context.Background()

	env.ctrl.HandleText(ctx, 42, "https://youtu.be/abc123", reply(42))
	if !strings.Contains(env.transport.lastMessage().Text, "No active session") {
		t.Error("text without a session should be rejected")
	}

	env.ctrl.HandleCallback(ctx, 42, "cb1", "yt_format_audio", reply(42))
	if !strings.Contains(env.transport.lastMessage().Text, "No active session") {
		t.Error("format button without a session should be rejected")
	}
}

func TestQualityFallbackPresented(t *testing.T) {
	env := newTestEnv(t, 30*time.Second)
	env.video.qualitiesErr = errors.New("probe failed")
	ctx := context.Background()

	env.ctrl.HandleCallback(ctx, 42, "cb1", "download_youtube", reply(42))
	env.ctrl.HandleText(ctx, 42, "https://youtu.be/abc123", reply(42))
	env.ctrl.HandleCallback(ctx, 42, "cb2", "yt_format_video", reply(42))

	sess, ok := env.store.Get(42)
	if !ok || sess.State != session.StateChoosingQuality {
		t.Fatal("flow should still reach ChoosingQuality on probe failure")
	}

	kb := env.transport.lastEdit().Keyboard
	if kb == nil || len(kb.InlineKeyboard) != 3 {
		t.Fatal("expected the three-entry fallback keyboard")
	}
	want := []string{"yt_quality_Best", "yt_quality_720p", "yt_quality_480p"}
	for i, row := range kb.InlineKeyboard {
		if row[0].CallbackData == nil || *row[0].CallbackData != want[i] {
			t.Errorf("fallback row %d: expected %q", i, want[i])
		}
	}
}

func TestInstagramPostDownloadsDirectly(t *testing.T) {
	env := newTestEnv(t, 30*time.Second)
	ctx := context.Background()

	env.ctrl.HandleCallback(ctx, 42, "cb1", "download_instagram", reply(42))
	env.ctrl.HandleText(ctx, 42, "https://instagram.com/reel/Cxyz123", reply(42))

	waitForRemoval(t, env.store, 42)

	posts, profiles := env.social.calls()
	if posts != 1 || profiles != 0 {
		t.Errorf("expected exactly one post download, got %d/%d", posts, profiles)
	}
}

func TestProfileConfirmDownloads(t *testing.T) {
	env := newTestEnv(t, 30*time.Second)
	ctx := context.Background()

	env.ctrl.HandleCallback(ctx, 42, "cb1", "download_instagram", reply(42))
	env.ctrl.HandleText(ctx, 42, "https://instagram.com/someuser", reply(42))
	env.ctrl.HandleCallback(ctx, 42, "cb2", "ig_confirm_profile", reply(42))

	waitForRemoval(t, env.store, 42)

	posts, profiles := env.social.calls()
	if posts != 0 || profiles != 1 {
		t.Errorf("expected exactly one profile download, got %d/%d", posts, profiles)
	}
	if limit := env.social.lastProfileLimit(); limit != 50 {
		t.Errorf("expected the configured post cap of 50 to reach the engine, got %d", limit)
	}
}

func TestOneSessionPerUser(t *testing.T) {
	env := newTestEnv(t, 30*time.Second)
	ctx := context.Background()

	env.ctrl.HandleCallback(ctx, 42, "cb1", "download_youtube", reply(42))
	env.ctrl.HandleCallback(ctx, 42, "cb2", "download_instagram", reply(42))

	if env.store.Len() != 1 {
		t.Fatalf("expected one session per user, got %d", env.store.Len())
	}
	sess, _ := env.store.Get(42)
	if sess.Platform != session.PlatformInstagram {
		t.Error("second platform choice should replace the first session")
	}
}
