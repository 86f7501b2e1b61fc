package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// TxFunc is a unit of work executed inside a single transaction.
type TxFunc func(ctx context.Context, tx *sqlx.Tx) error

// RetryConfig controls how lock contention is retried.
type RetryConfig struct {
	// MaxRetries is the number of extra attempts after the first one.
	MaxRetries int
	// InitialInterval is the wait before the first retry.
	InitialInterval time.Duration
	// MaxInterval caps the backoff.
	MaxInterval time.Duration
	// JitterFactor adds +/- that fraction of randomness to each wait.
	JitterFactor float64
}

// DefaultRetryConfig returns the retry settings used when none are given.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 20 * time.Millisecond,
		MaxInterval:     500 * time.Millisecond,
		JitterFactor:    0.1,
	}
}

// Coordinator runs units of work in READ COMMITTED transactions. A unit
// either commits as a whole or leaves no trace; deadlocks and lock wait
// timeouts reported by MySQL rerun the unit from scratch.
type Coordinator struct {
	db      *sqlx.DB
	log     *zap.Logger
	timeout time.Duration
	retry   RetryConfig
}

// NewCoordinator builds a Coordinator. A zero timeout leaves operations
// bounded only by the caller's context.
func NewCoordinator(db *sqlx.DB, log *zap.Logger, timeout time.Duration, retry RetryConfig) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	if retry.InitialInterval <= 0 {
		retry.InitialInterval = DefaultRetryConfig().InitialInterval
	}
	if retry.MaxInterval <= 0 {
		retry.MaxInterval = DefaultRetryConfig().MaxInterval
	}
	if retry.JitterFactor < 0 {
		retry.JitterFactor = 0
	}
	if retry.JitterFactor > 1 {
		retry.JitterFactor = 1
	}
	return &Coordinator{db: db, log: log, timeout: timeout, retry: retry}
}

// Run executes fn in a transaction named op. fn must not commit or roll
// back the transaction itself.
func (c *Coordinator) Run(ctx context.Context, op string, fn TxFunc) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var err error
	for attempt := 0; ; attempt++ {
		err = c.runOnce(ctx, op, fn)
		if err == nil {
			if attempt > 0 {
				c.log.Info("transaction committed after retry", zap.String("op", op), zap.Int("attempts", attempt+1))
			}
			return nil
		}
		if !IsRetryable(err) || attempt >= c.retry.MaxRetries {
			break
		}

		wait := c.backoff(attempt)
		c.log.Warn("retrying transaction",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: %w", op, ctx.Err())
		case <-timer.C:
		}
	}

	if IsClientError(err) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (c *Coordinator) runOnce(ctx context.Context, op string, fn TxFunc) (err error) {
	tx, err := c.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			c.log.Error("rollback failed", zap.String("op", op), zap.Error(rbErr))
		}
		if p := recover(); p != nil {
			c.log.Error("transaction panicked", zap.String("op", op), zap.Any("panic", p))
			panic(p)
		}
		if IsClientError(err) {
			c.log.Debug("transaction rolled back", zap.String("op", op), zap.Error(err))
		} else {
			c.log.Warn("transaction rolled back", zap.String("op", op), zap.Error(err))
		}
	}()

	if err = fn(ctx, tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	c.log.Debug("transaction committed", zap.String("op", op))
	return nil
}

// backoff returns the wait before retry number attempt+1.
func (c *Coordinator) backoff(attempt int) time.Duration {
	interval := float64(c.retry.InitialInterval) * math.Pow(2, float64(attempt))
	if ceiling := float64(c.retry.MaxInterval); interval > ceiling {
		interval = ceiling
	}
	if c.retry.JitterFactor > 0 {
		delta := interval * c.retry.JitterFactor
		interval = interval - delta + rand.Float64()*2*delta
	}
	return time.Duration(interval)
}
