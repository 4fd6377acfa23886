package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/sukratu-design/amex-points-tracker/internal/amqp"
	"github.com/sukratu-design/amex-points-tracker/internal/auth"
	"github.com/sukratu-design/amex-points-tracker/internal/backend"
	"github.com/sukratu-design/amex-points-tracker/internal/cli"
	"github.com/sukratu-design/amex-points-tracker/internal/core"
	"github.com/sukratu-design/amex-points-tracker/internal/remote"
	"github.com/sukratu-design/amex-points-tracker/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("pointstracker")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	command := os.Args[1]
	args := os.Args[2:]

	cfg := cli.LoadAndValidateConfig(logger)
	ctx := context.Background()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer result.Cleanup()
	}

	cache := cli.InitCache(logger, cfg.SQLiteDBPath)
	defer cache.Close()

	session := auth.NewSessionManager(result.Provider)
	adapter := remote.NewAdapter(result.Store, session)

	// Events are optional; without an AMQP URL the tracker runs silent.
	var events services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			defer client.Close()
			events = client
		}
	}

	updates := make(chan struct{}, 1)
	tracker := services.NewTracker(cache, adapter, session, events, services.Callbacks{
		OnSyncStatusChange: func(status services.SyncStatus, message string) {
			if status == services.StatusError {
				logger.Warn("Sync error", "message", message)
			}
		},
		OnDisplayUpdate: func([]core.Transaction) {
			select {
			case updates <- struct{}{}:
			default:
			}
		},
	})
	defer tracker.Close()

	// Sign in when the backend carries an identity provider. Failure is not
	// fatal; every command still works against the local cache.
	if result.Provider != nil {
		if _, err := session.SignIn(ctx); err != nil {
			logger.Warn("Sign-in failed, continuing offline", "error", err)
		}
	}

	tracker.Start(ctx)

	if err := run(ctx, tracker, updates, command, args); err != nil {
		logger.Error("Command failed", "command", command, "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, tracker *services.Tracker, updates <-chan struct{}, command string, args []string) error {
	switch command {
	case "add":
		return runAdd(ctx, tracker, args)
	case "list":
		return runList(tracker)
	case "summary":
		return runSummary(tracker)
	case "remove":
		return runRemove(ctx, tracker, args)
	case "clear":
		tracker.Clear(ctx)
		fmt.Println("All transactions cleared.")
		return nil
	case "import":
		return runImport(ctx, tracker, args)
	case "export":
		return runExport(tracker, args)
	case "watch":
		return runWatch(tracker, updates)
	default:
		usage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

func runAdd(ctx context.Context, tracker *services.Tracker, args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	card := fs.String("card", string(core.CardMRCC), "card type")
	amount := fs.String("amount", "", "amount in rupees, e.g. 999 or 999.50")
	category := fs.String("category", string(core.CategoryOther), "spend category")
	date := fs.String("date", time.Now().Format("2006-01-02"), "transaction date (YYYY-MM-DD)")
	desc := fs.String("desc", "", "description")
	fs.Parse(args)

	if *amount == "" {
		return fmt.Errorf("missing -amount")
	}
	paise, err := core.ParseDecimalToCents(*amount)
	if err != nil {
		return fmt.Errorf("parse amount: %w", err)
	}
	day, err := time.Parse("2006-01-02", *date)
	if err != nil {
		return fmt.Errorf("parse date: %w", err)
	}

	tx, err := tracker.Add(ctx, services.TransactionInput{
		Card:        core.CardType(*card),
		Amount:      core.Money{Cents: paise},
		Category:    core.Category(*category),
		Date:        core.Date{Time: day},
		Description: *desc,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Recorded %s: ₹%.2f on %s, %d points (id %s)\n",
		tx.Card, tx.Amount.Rupees(), tx.Category, tx.Points, tx.ID)
	return nil
}

func runList(tracker *services.Tracker) error {
	transactions := tracker.Transactions()
	if len(transactions) == 0 {
		fmt.Println("No transactions recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tCARD\tCATEGORY\tAMOUNT\tPOINTS\tDESCRIPTION\tID")
	for _, t := range transactions {
		fmt.Fprintf(w, "%s\t%s\t%s\t₹%.2f\t%d\t%s\t%s\n",
			t.Date.Format("2006-01-02"), t.Card, t.Category,
			t.Amount.Rupees(), t.Points, t.Description, t.ID)
	}
	return w.Flush()
}

func runSummary(tracker *services.Tracker) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CARD\tSPEND\tEARNED\tMILESTONE BONUS\tTOTAL")
	for _, s := range tracker.Summaries() {
		fmt.Fprintf(w, "%s\t₹%.2f\t%d\t%d\t%d\n",
			s.Name, s.Spend.Rupees(), s.EarnedPoints, s.MilestoneBonus, s.TotalPoints())
	}
	return w.Flush()
}

func runRemove(ctx context.Context, tracker *services.Tracker, args []string) error {
	fs := flag.NewFlagSet("remove", flag.ExitOnError)
	id := fs.String("id", "", "transaction id")
	fs.Parse(args)
	if *id == "" {
		return fmt.Errorf("missing -id")
	}
	tracker.Remove(ctx, *id)
	fmt.Printf("Removed %s\n", *id)
	return nil
}

func runImport(ctx context.Context, tracker *services.Tracker, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	file := fs.String("file", "", "JSON file to import")
	fs.Parse(args)
	if *file == "" {
		return fmt.Errorf("missing -file")
	}
	data, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("read import file: %w", err)
	}
	count, err := tracker.ImportJSON(ctx, data)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d transactions.\n", count)
	return nil
}

func runExport(tracker *services.Tracker, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	dir := fs.String("dir", ".", "directory to write the export to")
	fs.Parse(args)

	data, filename, err := tracker.ExportJSON()
	if err != nil {
		return err
	}
	path := filepath.Join(*dir, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	fmt.Printf("Exported %d transactions to %s\n", len(tracker.Transactions()), path)
	return nil
}

// runWatch keeps the live subscription open and reprints the summary on
// every remote change until interrupted.
func runWatch(tracker *services.Tracker, updates <-chan struct{}) error {
	ctx, done := cli.GracefulShutdown(slog.Default(), 10*time.Second, tracker.Close)
	fmt.Println("Watching for changes, press Ctrl-C to stop.")
	for {
		select {
		case <-ctx.Done():
			cli.WaitForShutdown(ctx, done)
			return nil
		case <-updates:
			if err := runSummary(tracker); err != nil {
				return err
			}
		}
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: pointstracker <command> [flags]

Commands:
  add      Record a transaction (-card, -amount, -category, -date, -desc)
  list     Print all transactions, newest first
  summary  Print per-card points and milestone bonuses
  remove   Delete a transaction by id (-id)
  clear    Delete all transactions
  import   Merge transactions from a JSON file (-file)
  export   Write all transactions to a JSON file (-dir)
  watch    Follow live remote changes until interrupted
`)
}
