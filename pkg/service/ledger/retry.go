package ledger

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/amirasaad/banking/pkg/config"
	"github.com/amirasaad/banking/pkg/domain"
)

// RetryPolicy bounds the retries of a mutation that lost an optimistic
// concurrency race.
type RetryPolicy struct {
	MaxRetries int
	Base       time.Duration
	Max        time.Duration
}

// DefaultRetryPolicy matches the LEDGER_* configuration defaults.
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 5, Base: 5 * time.Millisecond, Max: 250 * time.Millisecond}

// RetryPolicyFrom converts configuration into a policy.
func RetryPolicyFrom(cfg *config.Ledger) RetryPolicy {
	if cfg == nil {
		return DefaultRetryPolicy
	}
	return RetryPolicy{MaxRetries: cfg.MaxRetries, Base: cfg.RetryBase, Max: cfg.RetryMax}
}

// Delay returns the full-jitter delay before retry number attempt (0 based):
// a random duration in [0, min(Max, Base*2^attempt)).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if p.Base <= 0 {
		return 0
	}
	if attempt > 30 {
		attempt = 30
	}
	ceiling := p.Base
	if int64(p.Base) <= math.MaxInt64>>attempt {
		ceiling = p.Base << attempt
	}
	if p.Max > 0 && ceiling > p.Max {
		ceiling = p.Max
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(ceiling)))
	if err != nil {
		return ceiling / 2
	}
	return time.Duration(n.Int64())
}

// Retry runs fn until it succeeds, fails with an error other than
// domain.ErrConcurrentModification, or MaxRetries retries are spent.
func Retry(ctx context.Context, p RetryPolicy, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil || !errors.Is(err, domain.ErrConcurrentModification) {
			return err
		}
		if attempt >= p.MaxRetries {
			return fmt.Errorf("gave up after %d retries: %w", attempt, err)
		}
		timer := time.NewTimer(p.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
