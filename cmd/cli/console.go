package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/amirasaad/banking/pkg/app"
	"github.com/amirasaad/banking/pkg/domain"
	"github.com/amirasaad/banking/pkg/money"
	"github.com/amirasaad/banking/pkg/service/auth"
	"github.com/amirasaad/banking/pkg/service/report"
	"github.com/fatih/color"
	"github.com/google/uuid"
)

var (
	headline = color.New(color.FgCyan, color.Bold)
	good     = color.New(color.FgGreen)
	warn     = color.New(color.FgYellow)
	bad      = color.New(color.FgRed, color.Bold)
)

// console runs one CLI command against a wired application.
type console struct {
	app    *app.App
	out    io.Writer
	in     io.Reader
	secret func(prompt string, out io.Writer) (string, error)
}

func (c *console) dispatch(ctx context.Context, args []string) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "register":
		return c.register(ctx, rest)
	case "promote":
		return c.promote(ctx, rest)
	case "approve-loan":
		return c.approveLoan(ctx, rest)
	case "reconcile":
		return c.reconcile(ctx, rest)
	case "report":
		return c.report(ctx, rest)
	case "dispatch":
		return c.dispatchOutbox(ctx)
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func (c *console) register(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: register <username> <email>")
	}
	password, err := c.secret("Password: ", c.out)
	if err != nil {
		return err
	}
	u, err := c.app.UserService.Register(ctx, args[0], args[1], password)
	if err != nil {
		return err
	}
	success(c.out, "Registered %s (%s)", u.Username, u.ID)
	return nil
}

func (c *console) promote(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: promote <username|email|id>")
	}
	u, err := c.app.UserService.Promote(ctx, args[0])
	if err != nil {
		return err
	}
	success(c.out, "%s is now an administrator", u.Username)
	return nil
}

// login asks for administrator credentials.
func (c *console) login(ctx context.Context) error {
	fmt.Fprint(c.out, "Admin username or email: ")
	identity, err := bufio.NewReader(c.in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	password, err := c.secret("Password: ", c.out)
	if err != nil {
		return err
	}
	basic := auth.NewWithBasic(c.app.Deps.Uow, c.app.Deps.Logger)
	u, err := basic.Login(ctx, strings.TrimSpace(identity), password)
	if err != nil {
		return err
	}
	if !u.IsAdmin() {
		return fmt.Errorf("%w: %s is not an administrator", domain.ErrForbidden, u.Username)
	}
	return nil
}

func (c *console) approveLoan(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("usage: approve-loan <loan-id> [amount]")
	}
	loanID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid loan id: %w", err)
	}
	var amount *money.Money
	if len(args) == 2 {
		m, err := money.Parse(args[1], money.DefaultCurrency)
		if err != nil {
			return err
		}
		amount = &m
	}
	if err := c.login(ctx); err != nil {
		return err
	}
	res, err := c.app.LoanService.ApproveLoan(ctx, loanID, amount)
	if err != nil {
		return err
	}
	if !res.Changed {
		warn.Fprintf(c.out, "Loan %s is already %s\n", loanID, res.Loan.LoanStatus)
		return nil
	}
	success(c.out, "Loan %s approved for %s", loanID, res.Loan.Amount)
	warning(c.out, res.Warning)
	return nil
}

func (c *console) reconcile(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: reconcile <account-number>")
	}
	rec, err := c.app.ReportService.Reconcile(ctx, args[0])
	if err != nil {
		return err
	}
	headline.Fprintf(c.out, "Account %s\n", rec.AccountNumber)
	fmt.Fprintf(c.out, "  balance:    %s\n  ledger sum: %s\n", rec.Balance, rec.LedgerSum)
	if !rec.Consistent {
		bad.Fprintln(c.out, "  OUT OF BALANCE")
		return fmt.Errorf("account %s does not reconcile", rec.AccountNumber)
	}
	good.Fprintln(c.out, "  consistent")
	return nil
}

func (c *console) report(ctx context.Context, args []string) error {
	if len(args) != 1 && len(args) != 3 {
		return errors.New("usage: report <account-number> [start end]")
	}
	var rng *report.DateRange
	if len(args) == 3 {
		var err error
		if rng, err = report.ParseDateRange(args[1], args[2]); err != nil {
			return err
		}
	}
	r, err := c.app.ReportService.GenerateReport(ctx, args[0], rng)
	if err != nil {
		return err
	}
	headline.Fprintf(c.out, "Statement for %s\n", r.AccountNumber)
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tKIND\tAMOUNT\tBALANCE\tSTATUS")
	for _, tx := range r.Transactions {
		status := string(tx.LoanStatus)
		if status == "" {
			status = "posted"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			tx.CreatedAt.Format("2006-01-02 15:04:05"), tx.Kind, tx.Amount, tx.BalanceAfter, status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	label := "Balance"
	if r.Ranged {
		label = "Net for range"
	}
	headline.Fprintf(c.out, "%s: %s\n", label, r.TotalBalance)
	return nil
}

func (c *console) dispatchOutbox(ctx context.Context) error {
	sent, err := c.app.Dispatcher.DispatchPending(ctx, 0)
	success(c.out, "Delivered %d notification(s)", sent)
	return err
}

func success(out io.Writer, format string, args ...any) {
	good.Fprintf(out, format+"\n", args...)
}

func warning(out io.Writer, err error) {
	if err != nil {
		warn.Fprintln(out, "Warning:", err)
	}
}

func parseSteps(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("steps must be a positive integer, got %q", s)
	}
	return n, nil
}
