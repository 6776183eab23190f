package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("FACE_MATCH_THRESHOLD", "")
	t.Setenv("SESSION_TTL_MINUTES", "")

	cfg := Load()

	if cfg.Verify.Threshold != 0.4 {
		t.Errorf("expected default threshold 0.4, got %v", cfg.Verify.Threshold)
	}
	if cfg.Verify.SessionTTL != 10*time.Minute {
		t.Errorf("expected default session TTL 10m, got %v", cfg.Verify.SessionTTL)
	}
	if cfg.FaceEngine.Dim != 512 {
		t.Errorf("expected default embedding dim 512, got %d", cfg.FaceEngine.Dim)
	}
	if cfg.Web.ReceiptLength != 16 {
		t.Errorf("expected default receipt length 16, got %d", cfg.Web.ReceiptLength)
	}
	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("expected default max open conns 25, got %d", cfg.Database.MaxOpenConns)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("FACE_MATCH_THRESHOLD", "0.35")
	t.Setenv("SESSION_TTL_MINUTES", "5")
	t.Setenv("DATABASE_MAX_OPEN_CONNS", "10")

	cfg := Load()

	if cfg.Verify.Threshold != 0.35 {
		t.Errorf("expected threshold 0.35, got %v", cfg.Verify.Threshold)
	}
	if cfg.Verify.SessionTTL != 5*time.Minute {
		t.Errorf("expected session TTL 5m, got %v", cfg.Verify.SessionTTL)
	}
	if cfg.Database.MaxOpenConns != 10 {
		t.Errorf("expected max open conns 10, got %d", cfg.Database.MaxOpenConns)
	}
}

func TestEnvIntInvalid(t *testing.T) {
	t.Setenv("SESSION_TTL_MINUTES", "not-a-number")
	cfg := Load()
	if cfg.Verify.SessionTTL != 10*time.Minute {
		t.Errorf("invalid env var should fall back to default, got %v", cfg.Verify.SessionTTL)
	}
}

func TestEmbeddedMessages(t *testing.T) {
	cfg := Load()
	if cfg.Messages.Expired == "" {
		t.Error("expected expired message to be set from embedded messages.yaml")
	}
	if cfg.Messages.AlreadyVoted == "" {
		t.Error("expected already_voted message to be set from embedded messages.yaml")
	}
}
