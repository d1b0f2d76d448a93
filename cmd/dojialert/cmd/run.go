package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gopalvishwakrma/dojialert/internal/adapter/driven/mail"
	"github.com/gopalvishwakrma/dojialert/internal/domain/model"
	"github.com/gopalvishwakrma/dojialert/internal/domain/port/driven"
)

var (
	runDryRun bool
	runRecord bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Scan the universe once and mail any matches",
	Long: `run performs a single scan over the symbol universe and sends one alert mail
when at least one symbol matches. It exits non-zero when the alert could not be
delivered. This is the command the scheduled workflow invokes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runOnce(ctx)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "print the alert mail to stdout instead of sending it")
	runCmd.Flags().BoolVar(&runRecord, "record", false, "record the run in the history database (DOJI_DB_PATH)")
}

func runOnce(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var notifier driven.Notifier
	if runDryRun {
		notifier = mail.NewPreviewNotifier(cfg.Secrets.User, cfg.Recipients, os.Stdout)
	} else {
		notifier = newMailer(cfg)
	}

	var store driven.RunStore
	if runRecord {
		db, repo, err := openHistory(ctx, cfg.DBPath)
		if err != nil {
			return err
		}
		defer closeHistory(db)
		store = repo
	}

	svc, err := newScanService(cfg, notifier, store)
	if err != nil {
		return err
	}

	run, err := svc.Run(ctx, triggerFromEvent(os.Getenv("GITHUB_EVENT_NAME")))
	if err != nil {
		return fmt.Errorf("run %s: %w", run.ID, err)
	}

	if len(run.Matches) == 0 {
		slog.Info("no doji matches", "run_id", run.ID, "scanned", run.SymbolsScanned)
	}
	return nil
}

// triggerFromEvent maps the hosted runner's event name to a trigger kind.
// Anything other than a schedule event, including a local invocation, is manual.
func triggerFromEvent(event string) model.TriggerKind {
	if event == "schedule" {
		return model.TriggerSchedule
	}
	return model.TriggerManual
}
