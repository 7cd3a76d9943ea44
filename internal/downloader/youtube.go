package downloader

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/avelira/lumen-tg-bot/config"
	"github.com/avelira/lumen-tg-bot/pkg/logger"
)

var ytdlpProgressRegex = regexp.MustCompile(`\[download\]\s+(\d+\.?\d*)%\s+of\s+~?\s*(\S+)\s+at\s+(\S+)\s+ETA\s+(\S+)`)

// YouTube downloads videos and audio through a yt-dlp subprocess.
type YouTube struct {
	binary string
}

func NewYouTube() *YouTube {
	return &YouTube{binary: "yt-dlp"}
}

// ListQualities probes the URL and returns the configured label/selector
// table. The probe exists so a dead or unsupported link fails here instead
// of after the user picked a quality.
func (y *YouTube) ListQualities(ctx context.Context, url string) ([]config.QualityOption, error) {
	cmd := exec.CommandContext(ctx, y.binary, "-J", "--simulate", "--no-playlist", url)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("yt-dlp probe failed: %w\nStderr: %s", err, stderr.String())
	}

	return config.YouTubeQualities, nil
}

// Download fetches the media into destDir and returns the file paths.
// Progress lines from yt-dlp stdout are parsed and funneled through
// onProgress; onProgress may be nil.
func (y *YouTube) Download(ctx context.Context, url, selector string, audioOnly bool, destDir string, onProgress func(Progress)) ([]string, error) {
	args := y.buildArgs(url, selector, audioOnly, destDir)

	cmd := exec.CommandContext(ctx, y.binary, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start yt-dlp: %w", err)
	}

	trackProgress(stdout, onProgress)

	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("yt-dlp failed: %w\nStderr: %s", err, stderr.String())
	}

	files, err := filepath.Glob(filepath.Join(destDir, "*"))
	if err != nil || len(files) == 0 {
		return nil, fmt.Errorf("no files downloaded")
	}

	logger.Info("yt-dlp finished", "url", url, "files", len(files))
	return files, nil
}

func (y *YouTube) buildArgs(url, selector string, audioOnly bool, destDir string) []string {
	args := []string{
		"-o", filepath.Join(destDir, "%(title)s.%(ext)s"),
		"--no-playlist",
		"--socket-timeout", "60",
		"--retries", "5",
		"--fragment-retries", "5",
		"--retry-sleep", "3",
		"--newline", "--progress",
	}

	if audioOnly {
		args = append(args,
			"-f", "bestaudio/best",
			"-x", "--audio-format", "mp3", "--audio-quality", "192K",
		)
	} else {
		if selector == "" {
			selector = "best"
		}
		args = append(args, "-f", selector)
	}

	return append(args, url)
}

func trackProgress(stdout io.Reader, onProgress func(Progress)) {
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		if onProgress == nil {
			continue
		}
		matches := ytdlpProgressRegex.FindStringSubmatch(scanner.Text())
		if len(matches) != 5 {
			continue
		}
		percentage, _ := strconv.ParseFloat(matches[1], 64)
		onProgress(Progress{
			Percentage: percentage,
			Downloaded: matches[2],
			Speed:      matches[3],
			ETA:        matches[4],
		})
	}
}
