// Package papers parses papers service flags and launches the service.
package papers

import (
	"context"
	"flag"

	entrypoint "github.com/nightdesk/nightdesk/internal/platform/cmd"
	"github.com/nightdesk/nightdesk/internal/services/papers/app"
)

// Config holds papers command configuration.
type Config struct {
	Port      int    `env:"NIGHTDESK_PAPERS_PORT" envDefault:"8803"`
	DBPath    string `env:"NIGHTDESK_PAPERS_DB_PATH" envDefault:"data/papers.db"`
	PDFDir    string `env:"NIGHTDESK_PAPERS_PDF_DIR" envDefault:"data/pdfs"`
	StaticDir string `env:"NIGHTDESK_PAPERS_STATIC_DIR"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The papers HTTP server port")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the papers SQLite database")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the papers HTTP API service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServicePapers, func(ctx context.Context) error {
		server, err := app.NewServer(app.Config{
			Port:      cfg.Port,
			DBPath:    cfg.DBPath,
			PDFDir:    cfg.PDFDir,
			StaticDir: cfg.StaticDir,
		})
		if err != nil {
			return err
		}
		defer server.Close()
		return server.ListenAndServe(ctx)
	})
}
