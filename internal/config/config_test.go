package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BindAddr != ":8080" {
		t.Fatalf("BindAddr = %q", cfg.BindAddr)
	}
	if cfg.StaffSessionTTL != 3*time.Minute {
		t.Fatalf("StaffSessionTTL = %v", cfg.StaffSessionTTL)
	}
	if cfg.TickInterval != time.Second {
		t.Fatalf("TickInterval = %v", cfg.TickInterval)
	}
	if cfg.InactivityTimeout != 5*time.Minute {
		t.Fatalf("InactivityTimeout = %v", cfg.InactivityTimeout)
	}
	if cfg.ChatModel != "gpt-4o-mini" || cfg.STTModel != "whisper-1" {
		t.Fatalf("model defaults = %q / %q", cfg.ChatModel, cfg.STTModel)
	}
	if cfg.StoreBackend != "auto" {
		t.Fatalf("StoreBackend = %q", cfg.StoreBackend)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("WF_BIND_ADDR", "127.0.0.1:9090")
	t.Setenv("WF_CONSENT_TIMEOUT_MS", "12000")
	t.Setenv("WF_SHUTDOWN_TIMEOUT", "5s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BindAddr != "127.0.0.1:9090" {
		t.Fatalf("BindAddr = %q", cfg.BindAddr)
	}
	if cfg.ConsentTimeout != 12*time.Second {
		t.Fatalf("ConsentTimeout = %v", cfg.ConsentTimeout)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Fatalf("ShutdownTimeout = %v", cfg.ShutdownTimeout)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	for key, value := range map[string]string{
		"WF_TICK_INTERVAL_MS":      "50",
		"WF_CONSENT_TIMEOUT_MS":    "abc",
		"WF_INACTIVITY_TIMEOUT_MS": "-1",
		"WF_SHUTDOWN_TIMEOUT":      "soon",
	} {
		t.Setenv(key, value)
		if _, err := Load(); err == nil {
			t.Fatalf("%s=%s accepted", key, value)
		}
		t.Setenv(key, "")
	}
}
