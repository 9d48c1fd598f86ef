package papers

import (
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("papers", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 8803 {
		t.Fatalf("port = %d, want 8803", cfg.Port)
	}
	if cfg.DBPath != "data/papers.db" {
		t.Fatalf("db path = %q", cfg.DBPath)
	}
	if cfg.PDFDir != "data/pdfs" {
		t.Fatalf("pdf dir = %q", cfg.PDFDir)
	}
}

func TestParseConfigFlagBeatsEnv(t *testing.T) {
	t.Setenv("NIGHTDESK_PAPERS_PORT", "9200")

	fs := flag.NewFlagSet("papers", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-port", "9300"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 9300 {
		t.Fatalf("port = %d, want flag value 9300", cfg.Port)
	}
}
