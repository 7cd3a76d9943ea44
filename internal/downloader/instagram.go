package downloader

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/avelira/lumen-tg-bot/pkg/logger"
)

var (
	igShortcodeRegex = regexp.MustCompile(`/(?:p|reel|tv)/([^/?]+)`)

	mediaExtensions = map[string]bool{
		".jpg":  true,
		".jpeg": true,
		".png":  true,
		".mp4":  true,
	}
)

// Instagram downloads single posts through yt-dlp and whole profiles
// through the instaloader CLI.
type Instagram struct {
	ytdlpBinary       string
	instaloaderBinary string
}

func NewInstagram() *Instagram {
	return &Instagram{
		ytdlpBinary:       "yt-dlp",
		instaloaderBinary: "instaloader",
	}
}

// DownloadPost fetches a single post, reel or tv link into destDir.
func (ig *Instagram) DownloadPost(ctx context.Context, url, destDir string) ([]string, error) {
	args := []string{
		"-o", filepath.Join(destDir, "%(id)s.%(ext)s"),
		"--no-playlist",
		"--socket-timeout", "60",
		"--retries", "5",
		url,
	}

	cmd := exec.CommandContext(ctx, ig.ytdlpBinary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("instagram post download failed: %w\nStderr: %s", err, stderr.String())
	}

	files := collectMediaFiles(destDir)
	if len(files) == 0 {
		return nil, fmt.Errorf("no files downloaded")
	}

	logger.Info("Instagram post downloaded", "url", url, "files", len(files))
	return files, nil
}

// DownloadProfile fetches up to limit posts of a profile into destDir.
// onProgress receives the running count of downloaded media files while
// instaloader is working; it may be nil.
func (ig *Instagram) DownloadProfile(ctx context.Context, url, destDir string, limit int, onProgress func(count int)) ([]string, error) {
	username := ExtractProfileName(url)
	if username == "" {
		return nil, fmt.Errorf("could not extract profile name from %q", url)
	}

	args := []string{
		"--count", strconv.Itoa(limit),
		"--dirname-pattern", destDir,
		"--no-metadata-json",
		"--no-captions",
		"--no-video-thumbnails",
		"--no-compress-json",
		"--quiet",
		"--", username,
	}

	cmd := exec.CommandContext(ctx, ig.instaloaderBinary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start instaloader: %w", err)
	}

	done := make(chan struct{})
	go watchDownloadCount(ctx, destDir, onProgress, done)

	err := cmd.Wait()
	close(done)
	if err != nil {
		return nil, fmt.Errorf("instagram profile download failed: %w\nStderr: %s", err, stderr.String())
	}

	files := collectMediaFiles(destDir)
	if len(files) == 0 {
		return nil, fmt.Errorf("no files downloaded")
	}

	logger.Info("Instagram profile downloaded", "profile", username, "files", len(files))
	return files, nil
}

// IsPostURL reports whether the link points at a single post rather than a
// bare profile path.
func IsPostURL(url string) bool {
	return strings.Contains(url, "/p/") || strings.Contains(url, "/reel/") || strings.Contains(url, "/tv/")
}

// ExtractShortcode pulls the post shortcode out of a post/reel/tv link.
func ExtractShortcode(url string) string {
	if m := igShortcodeRegex.FindStringSubmatch(url); len(m) == 2 {
		return m[1]
	}
	return ""
}

// ExtractProfileName pulls the username out of a profile link.
func ExtractProfileName(url string) string {
	trimmed := strings.TrimSuffix(url, "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 {
		return ""
	}
	name := parts[len(parts)-1]
	if i := strings.IndexByte(name, '?'); i >= 0 {
		name = name[:i]
	}
	return name
}

func collectMediaFiles(dir string) []string {
	entries, err := filepath.Glob(filepath.Join(dir, "*"))
	if err != nil {
		return nil
	}

	var files []string
	for _, path := range entries {
		if mediaExtensions[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
	}
	return files
}

func watchDownloadCount(ctx context.Context, dir string, onProgress func(int), done <-chan struct{}) {
	if onProgress == nil {
		return
	}

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	last := 0
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := len(collectMediaFiles(dir)); n != last {
				last = n
				onProgress(n)
			}
		}
	}
}
