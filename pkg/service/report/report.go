// Package report builds account statements from the ledger.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/amirasaad/banking/pkg/domain"
	"github.com/amirasaad/banking/pkg/domain/account"
	"github.com/amirasaad/banking/pkg/money"
	"github.com/amirasaad/banking/pkg/repository"
	"github.com/amirasaad/banking/pkg/service/ledger"
	"github.com/google/uuid"
)

// DateLayout is the calendar date format accepted for report ranges.
const DateLayout = "2006-01-02"

// DateRange is an inclusive range of UTC calendar dates.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ParseDateRange parses YYYY-MM-DD bounds. Both must be given, or neither, in
// which case the range is nil.
func ParseDateRange(start, end string) (*DateRange, error) {
	if start == "" && end == "" {
		return nil, nil
	}
	if start == "" || end == "" {
		return nil, fmt.Errorf("%w: start and end dates must be given together", domain.ErrInvalidDateRange)
	}
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return nil, fmt.Errorf("%w: start date %q", domain.ErrInvalidDateRange, start)
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return nil, fmt.Errorf("%w: end date %q", domain.ErrInvalidDateRange, end)
	}
	r := &DateRange{Start: s, End: e}
	return r, r.Validate()
}

// Validate rejects ranges that end before they start.
func (r DateRange) Validate() error {
	if truncateDay(r.Start).After(truncateDay(r.End)) {
		return fmt.Errorf("%w: start is after end", domain.ErrInvalidDateRange)
	}
	return nil
}

// bounds returns the half-open instant range [start 00:00, end+1 00:00).
func (r DateRange) bounds() (time.Time, time.Time) {
	return truncateDay(r.Start), truncateDay(r.End).AddDate(0, 0, 1)
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Report is an account statement. With a range, TotalBalance is the net of
// the posted entries in it and Ranged is true; it is not the live balance.
// Approved loans are dated by their approval, not their request.
type Report struct {
	AccountNumber string                 `json:"account_number"`
	Transactions  []*account.Transaction `json:"transactions"`
	TotalBalance  money.Money            `json:"total_balance"`
	Ranged        bool                   `json:"ranged"`
	Range         *DateRange             `json:"range,omitempty"`
}

// Reconciliation compares the stored balance with the ledger.
type Reconciliation struct {
	AccountNumber string      `json:"account_number"`
	Balance       money.Money `json:"balance"`
	LedgerSum     money.Money `json:"ledger_sum"`
	Consistent    bool        `json:"consistent"`
}

// Service answers report queries.
type Service struct {
	store  *ledger.Store
	logger *slog.Logger
}

// NewService returns a report Service reading through l.
func NewService(l *ledger.Ledger, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: ledger.NewStore(l), logger: logger.With("service", "report")}
}

// GenerateReport returns the account's entries, in ledger order, within rng
// or for all time when rng is nil.
func (s *Service) GenerateReport(ctx context.Context, accountNumber string, rng *DateRange) (*Report, error) {
	if rng != nil {
		if err := rng.Validate(); err != nil {
			return nil, err
		}
	}
	acc, err := s.store.GetAccount(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	return s.generate(ctx, acc, rng)
}

// GenerateReportAs is GenerateReport for userID, who must own the account.
func (s *Service) GenerateReportAs(
	ctx context.Context,
	userID uuid.UUID,
	accountNumber string,
	rng *DateRange,
) (*Report, error) {
	if rng != nil {
		if err := rng.Validate(); err != nil {
			return nil, err
		}
	}
	acc, err := s.store.GetAccount(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	if err := acc.ValidateOwner(userID); err != nil {
		return nil, err
	}
	return s.generate(ctx, acc, rng)
}

func (s *Service) generate(ctx context.Context, acc *account.Account, rng *DateRange) (*Report, error) {
	var filter repository.TransactionFilter
	if rng != nil {
		from, to := rng.bounds()
		filter.From, filter.To = &from, &to
	}
	rows, err := s.store.QueryTransactions(ctx, acc.ID, filter)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]struct{}, len(rows))
	unique := make([]*account.Transaction, 0, len(rows))
	for _, r := range rows {
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		unique = append(unique, r)
	}

	report := &Report{
		AccountNumber: acc.Number,
		Transactions:  unique,
		TotalBalance:  acc.Balance,
		Ranged:        rng != nil,
		Range:         rng,
	}
	if rng != nil {
		total := money.Zero(acc.Currency())
		for _, r := range unique {
			if !r.Posted {
				continue
			}
			if total, err = total.Add(r.Amount); err != nil {
				return nil, err
			}
		}
		report.TotalBalance = total
	}
	s.logger.Debug("report generated", "account", acc.Number, "rows", len(unique), "ranged", report.Ranged)
	return report, nil
}

// Reconcile checks that the stored balance equals the sum of posted entries.
func (s *Service) Reconcile(ctx context.Context, accountNumber string) (*Reconciliation, error) {
	acc, err := s.store.GetAccount(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	sum, err := s.store.SumTransactions(ctx, acc, repository.TransactionFilter{})
	if err != nil {
		return nil, err
	}
	rec := &Reconciliation{
		AccountNumber: acc.Number,
		Balance:       acc.Balance,
		LedgerSum:     sum,
		Consistent:    sum.Equals(acc.Balance),
	}
	if !rec.Consistent {
		s.logger.Error("ledger out of balance", "account", acc.Number,
			"balance", acc.Balance.String(), "ledger_sum", sum.String())
	}
	return rec, nil
}
