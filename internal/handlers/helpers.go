package handlers

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	youtubeURLPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^(?:https?://)?(?:www\.)?youtube\.com/watch\?v=[\w-]+`),
		regexp.MustCompile(`^(?:https?://)?(?:www\.)?youtu\.be/[\w-]+`),
		regexp.MustCompile(`^(?:https?://)?(?:www\.)?youtube\.com/playlist\?list=[\w-]+`),
	}

	instagramURLPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^(?:https?://)?(?:www\.)?instagram\.com/p/[\w-]+`),
		regexp.MustCompile(`^(?:https?://)?(?:www\.)?instagram\.com/reel/[\w-]+`),
		regexp.MustCompile(`^(?:https?://)?(?:www\.)?instagram\.com/tv/[\w-]+`),
		regexp.MustCompile(`^(?:https?://)?(?:www\.)?instagram\.com/[\w.-]+/?$`),
	}
)

func isYouTubeURL(url string) bool {
	for _, p := range youtubeURLPatterns {
		if p.MatchString(url) {
			return true
		}
	}
	return false
}

func isInstagramURL(url string) bool {
	for _, p := range instagramURLPatterns {
		if p.MatchString(url) {
			return true
		}
	}
	return false
}

func FormatFileSize(size int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)
	switch {
	case size >= GB:
		return fmt.Sprintf("%.2f GB", float64(size)/GB)
	case size >= MB:
		return fmt.Sprintf("%.2f MB", float64(size)/MB)
	case size >= KB:
		return fmt.Sprintf("%.2f KB", float64(size)/KB)
	default:
		return fmt.Sprintf("%d B", size)
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func formatUptime(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
