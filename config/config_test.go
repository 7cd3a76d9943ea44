package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.SessionTimeout != DefaultSessionTimeout {
		t.Errorf("expected default session timeout, got %v", cfg.SessionTimeout)
	}
	if cfg.MaxFileSize != DefaultMaxFileSize {
		t.Errorf("expected default max file size, got %d", cfg.MaxFileSize)
	}
	if cfg.ProfilePostLimit != DefaultProfilePostLimit {
		t.Errorf("expected default profile limit, got %d", cfg.ProfilePostLimit)
	}
	if cfg.StagingDir != DefaultStagingDir {
		t.Errorf("expected default staging dir, got %q", cfg.StagingDir)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SESSION_TIMEOUT", "45s")
	t.Setenv("MAX_FILE_SIZE", "1048576")
	t.Setenv("PROFILE_POST_LIMIT", "10")

	cfg := Load()

	if cfg.SessionTimeout != 45*time.Second {
		t.Errorf("expected 45s timeout, got %v", cfg.SessionTimeout)
	}
	if cfg.MaxFileSize != 1048576 {
		t.Errorf("expected 1MB ceiling, got %d", cfg.MaxFileSize)
	}
	if cfg.ProfilePostLimit != 10 {
		t.Errorf("expected limit 10, got %d", cfg.ProfilePostLimit)
	}
}

func TestEnvDurationBareSeconds(t *testing.T) {
	t.Setenv("SESSION_TIMEOUT", "30")

	cfg := Load()
	if cfg.SessionTimeout != 30*time.Second {
		t.Errorf("bare number should parse as seconds, got %v", cfg.SessionTimeout)
	}
}

func TestQualityTables(t *testing.T) {
	if YouTubeQualities[len(YouTubeQualities)-1].Label != "Best" {
		t.Error("quality table should end with Best")
	}

	want := []string{"Best", "720p", "480p"}
	for i, q := range FallbackQualities {
		if q.Label != want[i] {
			t.Errorf("fallback %d: expected %q, got %q", i, want[i], q.Label)
		}
	}
}
