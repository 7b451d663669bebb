// Command cashledger-admin runs maintenance tasks against the configured
// ledger store on behalf of one account.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"cashledger/internal/app"
	"cashledger/internal/cli"
	"cashledger/internal/core"
	applog "cashledger/internal/log"
)

const commandTimeout = 5 * time.Minute

// runFunc executes a command for one account.
type runFunc func(ctx context.Context, a *app.App, sess core.Session) error

// command registers its flags on fs and returns the function to run once
// they are parsed.
type command func(fs *flag.FlagSet) runFunc

var commands = map[string]command{
	"backup":       runBackup,
	"restore":      runRestore,
	"list-backups": runListBackups,
	"audit":        runAudit,
	"remind":       runRemind,
	"summary":      runSummary,
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	name := os.Args[1]
	if name == "help" || name == "-h" || name == "--help" {
		printUsage()
		return
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
		printUsage()
		os.Exit(1)
	}

	fs := flag.NewFlagSet(name, flag.ExitOnError)
	user := fs.String("user", "", "account email")
	run := cmd(fs)
	fs.Parse(os.Args[2:])
	if *user == "" {
		fmt.Fprintln(os.Stderr, "Error: -user is required")
		os.Exit(1)
	}

	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	res := cli.OpenStore(ctx, logger.WithComponent(applog.ComponentBackend).Slog(), cfg)
	a := app.New(ctx, cfg, logger, res.Store)

	err := execute(ctx, a, *user, run)
	if cerr := a.Close(); cerr != nil {
		logger.Warn("Failed to release resources", "error", cerr)
	}
	if cerr := res.Cleanup(); cerr != nil {
		logger.Warn("Failed to close ledger store", "error", cerr)
	}
	if err != nil {
		logger.Error("Command failed", "command", name, "user_id", *user, "error", err)
		os.Exit(1)
	}
}

func execute(ctx context.Context, a *app.App, email string, run runFunc) error {
	acc, err := a.Accounts.Account(ctx, core.Session{UserID: strings.ToLower(strings.TrimSpace(email))})
	if err != nil {
		return fmt.Errorf("account %s: %w", email, err)
	}
	return run(ctx, a, core.Session{UserID: acc.Email})
}

func printUsage() {
	fmt.Println("cashledger admin")
	fmt.Println("\nUsage:")
	fmt.Println("  cashledger-admin <command> -user <email> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  backup        Write a backup file for the account")
	fmt.Println("  restore       Restore the newest backup, or the one named by -file")
	fmt.Println("  list-backups  List the account's backup files, newest first")
	fmt.Println("  audit         Compare stored aggregates with the records")
	fmt.Println("  remind        Send the daily reminder if nothing was logged today")
	fmt.Println("  summary       Print the budget status and category totals of -month")
	fmt.Println("  help          Show this help message")
}

func runBackup(*flag.FlagSet) runFunc {
	return func(ctx context.Context, a *app.App, sess core.Session) error {
		path, err := a.Backups.Backup(ctx, sess)
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	}
}

func runRestore(fs *flag.FlagSet) runFunc {
	file := fs.String("file", "", "backup file name; newest when empty")
	return func(ctx context.Context, a *app.App, sess core.Session) error {
		path, err := a.Backups.Restore(ctx, sess, *file)
		if err != nil {
			return err
		}
		fmt.Printf("Restored %s\n", path)
		return nil
	}
}

func runListBackups(*flag.FlagSet) runFunc {
	return func(ctx context.Context, a *app.App, sess core.Session) error {
		names, err := a.Backups.List(ctx, sess)
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	}
}

func runAudit(*flag.FlagSet) runFunc {
	return func(ctx context.Context, a *app.App, sess core.Session) error {
		report, err := a.Auditor.Check(ctx, sess)
		if err != nil {
			return err
		}
		if err := printJSON(report); err != nil {
			return err
		}
		if !report.Consistent() {
			return fmt.Errorf("aggregates out of sync: %d mismatched, %d negative",
				len(report.Mismatches), len(report.Negative))
		}
		return nil
	}
}

func runRemind(*flag.FlagSet) runFunc {
	return func(ctx context.Context, a *app.App, sess core.Session) error {
		sent, err := a.Reminder.Remind(ctx, sess)
		if err != nil {
			return err
		}
		if sent {
			fmt.Println("Reminder sent.")
		} else {
			fmt.Println("Transactions already logged today, no reminder sent.")
		}
		return nil
	}
}

func runSummary(fs *flag.FlagSet) runFunc {
	monthFlag := fs.String("month", "", "month as yyyy-mm; current month when empty")
	return func(ctx context.Context, a *app.App, sess core.Session) error {
		month := core.MonthOf(time.Now())
		if *monthFlag != "" {
			m, err := core.ParseMonth(*monthFlag)
			if err != nil {
				return err
			}
			month = m
		}

		status, err := a.Evaluator.Evaluate(ctx, sess, month)
		if err != nil {
			return err
		}
		overview, err := a.Query.CategorySummary(ctx, sess, month)
		if err != nil {
			return err
		}
		return printJSON(struct {
			Budget   core.BudgetStatus  `json:"budget"`
			Overview core.MonthOverview `json:"overview"`
		}{status, overview})
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
