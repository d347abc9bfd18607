package config

import (
	"testing"
	"time"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg, err := NewConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Store != "memory" {
		t.Fatalf("store=%q want=memory", cfg.Store)
	}
	if cfg.LockTimeout != 3*time.Second {
		t.Fatalf("lock timeout=%v want=3s", cfg.LockTimeout)
	}
	if cfg.AuditSchedule == "" {
		t.Fatal("audit schedule missing")
	}
	if cfg.SMTPEnabled() {
		t.Fatal("SMTP enabled without host and recipient")
	}
}

func TestNewConfigRejectsBadValues(t *testing.T) {
	t.Setenv("LOCK_TIMEOUT", "not-a-duration")
	if _, err := NewConfig(); err == nil {
		t.Fatal("bad LOCK_TIMEOUT accepted")
	}

	t.Setenv("LOCK_TIMEOUT", "3s")
	t.Setenv("STORE", "oracle")
	if _, err := NewConfig(); err == nil {
		t.Fatal("unknown STORE accepted")
	}
}

func TestSMTPEnabled(t *testing.T) {
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("RECEIPT_EMAIL", "ops@example.com")
	cfg, err := NewConfig()
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.SMTPEnabled() {
		t.Fatal("SMTP not enabled with host and recipient set")
	}
}
