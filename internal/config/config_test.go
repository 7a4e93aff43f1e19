package config

import "testing"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("SESSION_API_URL", "")
	t.Setenv("DATA_DIR", "")
	t.Setenv("HINT_DELAY_SECONDS", "")

	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.SessionAPIURL != "" {
		t.Errorf("SessionAPIURL = %q, want %q", cfg.SessionAPIURL, "")
	}
	if cfg.DataDir != "data" {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, "data")
	}
	if cfg.HintDelaySeconds != 30 {
		t.Errorf("HintDelaySeconds = %d, want %d", cfg.HintDelaySeconds, 30)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("PORT", "3000")
	t.Setenv("SESSION_API_URL", "https://sessions.example.com")
	t.Setenv("HINT_DELAY_SECONDS", "10")

	cfg := Load()

	if cfg.Port != "3000" {
		t.Errorf("Port = %q, want %q", cfg.Port, "3000")
	}
	if cfg.SessionAPIURL != "https://sessions.example.com" {
		t.Errorf("SessionAPIURL = %q", cfg.SessionAPIURL)
	}
	if cfg.HintDelaySeconds != 10 {
		t.Errorf("HintDelaySeconds = %d, want %d", cfg.HintDelaySeconds, 10)
	}
}

func TestLoad_InvalidHintDelay(t *testing.T) {
	t.Setenv("HINT_DELAY_SECONDS", "abc")

	cfg := Load()

	if cfg.HintDelaySeconds != 30 {
		t.Errorf("HintDelaySeconds = %d, want %d (fallback)", cfg.HintDelaySeconds, 30)
	}
}
