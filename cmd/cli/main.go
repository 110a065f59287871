// Command cli is the operator console for the banking service: schema
// migrations, user administration, loan approval, reconciliation and
// outbox redelivery.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/amirasaad/banking/infra"
	"github.com/amirasaad/banking/infra/initializer"
	"github.com/amirasaad/banking/pkg/app"
	"github.com/amirasaad/banking/pkg/config"
	"github.com/fatih/color"
	"golang.org/x/term"
)

const usage = `Usage: cli <command> [arguments]

Commands:
  migrate up                          Apply pending schema migrations
  migrate down <steps>                Revert the last <steps> migrations
  register <username> <email>         Create a customer (prompts for a password)
  promote <username|email|id>         Grant the admin role
  approve-loan <loan-id> [amount]     Approve a requested loan (admin login)
  reconcile <account-number>          Compare a balance with its ledger
  report <account-number> [start end] Print a statement (dates as YYYY-MM-DD)
  dispatch                            Redeliver pending notifications once
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		color.New(color.FgRed, color.Bold).Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return nil
	}
	cfg, err := config.Load(".env")
	if err != nil {
		return fmt.Errorf("failed to load application configuration: %w", err)
	}

	if args[0] == "migrate" {
		return migrate(cfg, args[1:], out)
	}

	deps, cleanup, err := initializer.InitializeDependencies(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer func() { _ = cleanup() }()

	c := &console{
		app:    app.New(deps, cfg),
		out:    out,
		in:     os.Stdin,
		secret: readPassword,
	}
	return c.dispatch(ctx, args)
}

func migrate(cfg *config.App, args []string, out io.Writer) error {
	db, err := infra.NewDBConnection(cfg.DB, cfg.Env)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close() //nolint:errcheck
	}
	if len(args) == 0 || args[0] == "up" {
		if err := infra.RunMigrations(db, cfg.DB.MigrationsPath, nil); err != nil {
			return err
		}
		success(out, "Migrations applied")
		return nil
	}
	if args[0] != "down" || len(args) != 2 {
		return fmt.Errorf("usage: migrate up | migrate down <steps>")
	}
	steps, err := parseSteps(args[1])
	if err != nil {
		return err
	}
	if err := infra.RollbackMigrations(db, cfg.DB.MigrationsPath, steps); err != nil {
		return err
	}
	success(out, "Rolled back %d migration(s)", steps)
	return nil
}

// readPassword reads a secret from the terminal without echoing it.
func readPassword(prompt string, out io.Writer) (string, error) {
	fmt.Fprint(out, prompt)
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("a terminal is required to read the password")
	}
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
