package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	"gorm.io/gorm"

	"quizplatform/backend/models"
	"quizplatform/backend/repository"
)

// RetryPolicy bounds how often a conflicting transaction is replayed.
// MaxAttempts counts the first try, so 3 means at most two retries.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	Multiplier     float64
}

// DefaultRetryPolicy waits 100ms then 200ms between three attempts.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:    3,
	InitialBackoff: 100 * time.Millisecond,
	Multiplier:     2,
}

// Coordinator runs a read-mutate-write sequence in one transaction and
// replays it from the start when the commit loses a race.
type Coordinator struct {
	db     *gorm.DB
	policy RetryPolicy
	logger *log.Logger
}

func NewCoordinator(db *gorm.DB, policy RetryPolicy, logger *log.Logger) *Coordinator {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = DefaultRetryPolicy.MaxAttempts
	}
	if policy.InitialBackoff <= 0 {
		policy.InitialBackoff = DefaultRetryPolicy.InitialBackoff
	}
	if policy.Multiplier < 1 {
		policy.Multiplier = DefaultRetryPolicy.Multiplier
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Coordinator{db: db, policy: policy, logger: logger}
}

func (c *Coordinator) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.policy.InitialBackoff
	b.Multiplier = c.policy.Multiplier
	b.RandomizationFactor = 0
	b.MaxInterval = c.policy.InitialBackoff * time.Duration(1<<uint(c.policy.MaxAttempts))
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.policy.MaxAttempts-1)), ctx)
}

// Run executes fn inside a fresh transaction per attempt. fn must re-read
// everything it mutates through tx. Conflicts are retried until the policy
// is exhausted, which yields models.ErrSubmissionConflict; any other error
// is returned as is after the first attempt.
func (c *Coordinator) Run(ctx context.Context, fn func(tx *gorm.DB) error) error {
	attempt := 0
	op := func() error {
		attempt++
		err := c.db.WithContext(ctx).Transaction(fn)
		if err == nil {
			return nil
		}
		if repository.IsWriteConflict(err) {
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Printf("Write conflict on attempt %d/%d, retrying in %s: %v", attempt, c.policy.MaxAttempts, wait, err)
	}

	err := backoff.RetryNotify(op, c.backOff(ctx), notify)
	if err == nil {
		return nil
	}
	if repository.IsWriteConflict(err) {
		c.logger.Printf("Giving up after %d attempts: %v", attempt, err)
		return fmt.Errorf("%w: %v", models.ErrSubmissionConflict, err)
	}
	return err
}
