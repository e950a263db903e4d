package config

import (
	"testing"
)

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatal("Expected error without JWT_SECRET")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PORT", "")
	t.Setenv("ATTEND_TIME_ZONE", "")
	t.Setenv("PUBLIC_URL", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "3210" {
		t.Errorf("Expected port 3210, got %s", cfg.Port)
	}
	if cfg.Location.String() != "Asia/Singapore" {
		t.Errorf("Expected Asia/Singapore, got %s", cfg.Location)
	}
	if cfg.PublicURL != "http://localhost:3210" {
		t.Errorf("Unexpected public URL %s", cfg.PublicURL)
	}
	if len(cfg.Kafka.Brokers) != 0 {
		t.Errorf("Expected Kafka disabled, got %v", cfg.Kafka.Brokers)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ATTEND_TIME_ZONE", "Europe/Berlin")
	t.Setenv("PUBLIC_URL", "https://attend.example.com/")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Location.String() != "Europe/Berlin" {
		t.Errorf("Expected Europe/Berlin, got %s", cfg.Location)
	}
	if cfg.PublicURL != "https://attend.example.com" {
		t.Errorf("Trailing slash not trimmed: %s", cfg.PublicURL)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("Unexpected brokers %v", cfg.Kafka.Brokers)
	}
}

func TestLoadRejectsUnknownTimeZone(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ATTEND_TIME_ZONE", "Mars/Olympus")
	if _, err := Load(); err == nil {
		t.Fatal("Expected error for unknown time zone")
	}
}
