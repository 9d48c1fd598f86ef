package market

import (
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("market", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 8802 {
		t.Fatalf("port = %d, want 8802", cfg.Port)
	}
	if cfg.DBPath != "data/market.db" {
		t.Fatalf("db path = %q", cfg.DBPath)
	}
	if cfg.SummaryDir != "data/summaries" {
		t.Fatalf("summary dir = %q", cfg.SummaryDir)
	}
}

func TestParseConfigEnvOverride(t *testing.T) {
	t.Setenv("NIGHTDESK_MARKET_PORT", "9000")
	t.Setenv("NIGHTDESK_NOTIFY_ROOM", "briefings")

	fs := flag.NewFlagSet("market", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 9000 {
		t.Fatalf("port = %d, want 9000", cfg.Port)
	}
	if cfg.NotifyRoom != "briefings" {
		t.Fatalf("notify room = %q", cfg.NotifyRoom)
	}
}

func TestParseConfigFlagBeatsEnv(t *testing.T) {
	t.Setenv("NIGHTDESK_MARKET_PORT", "9000")

	fs := flag.NewFlagSet("market", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-port", "9100", "-db", "/tmp/market.db"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 9100 {
		t.Fatalf("port = %d, want flag value 9100", cfg.Port)
	}
	if cfg.DBPath != "/tmp/market.db" {
		t.Fatalf("db path = %q", cfg.DBPath)
	}
}
