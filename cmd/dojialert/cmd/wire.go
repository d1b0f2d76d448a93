package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gopalvishwakrma/dojialert/internal/adapter/driven/mail"
	"github.com/gopalvishwakrma/dojialert/internal/adapter/driven/nse"
	sqliteadapter "github.com/gopalvishwakrma/dojialert/internal/adapter/driven/sqlite"
	"github.com/gopalvishwakrma/dojialert/internal/application"
	"github.com/gopalvishwakrma/dojialert/internal/config"
	"github.com/gopalvishwakrma/dojialert/internal/domain/port/driven"
)

// loadConfig reads and validates the environment, logging a redacted summary.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	slog.Debug("config loaded",
		"secrets", cfg.Secrets,
		"recipients", len(cfg.Recipients),
		"nse_base_url", cfg.NSEBaseURL,
		"window_start", cfg.WindowStart.String(),
		"window", cfg.Window,
		"body_ratio", cfg.BodyRatio,
		"max_range_pct", cfg.MaxRangePct,
		"schedule", cfg.Schedule,
	)
	return cfg, nil
}

// loadUniverse returns the symbols from DOJI_SYMBOLS_FILE, or the embedded list.
func loadUniverse(cfg *config.Config) ([]string, error) {
	return config.LoadSymbols(cfg.SymbolsFile)
}

// newMailer returns the SMTP notifier for cfg.
func newMailer(cfg *config.Config) driven.Notifier {
	if !cfg.Secrets.Complete() {
		slog.Warn("mail credentials not set, alerts cannot be delivered",
			"user_env", config.EnvMailUser, "password_env", config.EnvMailPassword)
	}
	return mail.NewNotifier(cfg.SMTPAddr, cfg.Secrets, cfg.Recipients)
}

// newScanService wires the market data client, notifier and optional history.
// store may be nil.
func newScanService(cfg *config.Config, notifier driven.Notifier, store driven.RunStore) (*application.ScanService, error) {
	symbols, err := loadUniverse(cfg)
	if err != nil {
		return nil, err
	}

	market := nse.NewClient(cfg.NSEBaseURL, cfg.RequestTimeout, cfg.Exchange)

	rules := application.ScanRules{
		Exchange:    cfg.Exchange,
		StartHour:   cfg.WindowStart.Hour,
		StartMinute: cfg.WindowStart.Minute,
		Window:      cfg.Window,
		BodyRatio:   cfg.BodyRatio,
		MaxRangePct: cfg.MaxRangePct,
		Note:        cfg.Note,
	}

	return application.NewScanService(market, notifier, store, symbols, rules), nil
}

// openHistory opens the run history database and applies migrations.
func openHistory(ctx context.Context, path string) (*sqliteadapter.DB, *sqliteadapter.RunRepo, error) {
	db, err := sqliteadapter.NewDB(ctx, path)
	if err != nil {
		return nil, nil, err
	}

	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrate %s: %w", path, err)
	}

	slog.Info("run history opened", "path", db.Path())
	return db, sqliteadapter.NewRunRepo(db), nil
}

func closeHistory(db *sqliteadapter.DB) {
	if err := db.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}
