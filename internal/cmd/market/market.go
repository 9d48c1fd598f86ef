// Package market parses market service flags and launches the service.
package market

import (
	"context"
	"flag"

	entrypoint "github.com/nightdesk/nightdesk/internal/platform/cmd"
	"github.com/nightdesk/nightdesk/internal/services/market/app"
)

// Config holds market command configuration.
type Config struct {
	Port        int    `env:"NIGHTDESK_MARKET_PORT" envDefault:"8802"`
	DBPath      string `env:"NIGHTDESK_MARKET_DB_PATH" envDefault:"data/market.db"`
	ArticlesDir string `env:"NIGHTDESK_MARKET_ARTICLES_DIR" envDefault:"data/articles"`
	SummaryDir  string `env:"NIGHTDESK_MARKET_SUMMARY_DIR" envDefault:"data/summaries"`
	StaticDir   string `env:"NIGHTDESK_MARKET_STATIC_DIR"`
	NotifyRoom  string `env:"NIGHTDESK_NOTIFY_ROOM"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The market HTTP server port")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the market SQLite database")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the market HTTP API service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceMarket, func(ctx context.Context) error {
		server, err := app.NewServer(app.Config{
			Port:        cfg.Port,
			DBPath:      cfg.DBPath,
			ArticlesDir: cfg.ArticlesDir,
			SummaryDir:  cfg.SummaryDir,
			StaticDir:   cfg.StaticDir,
			NotifyRoom:  cfg.NotifyRoom,
		})
		if err != nil {
			return err
		}
		defer server.Close()
		return server.ListenAndServe(ctx)
	})
}
