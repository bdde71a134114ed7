package common

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"syscall"
	"time"
)

// IsTemporary reports whether err says it may go away on its own.
func IsTemporary(err error) bool {
	var temp interface{ Temporary() bool }
	if errors.As(err, &temp) {
		return temp.Temporary()
	}
	return false
}

// IsRetryable reports whether an operation failing with err is worth
// another attempt: dropped connections, refused dials and timeouts.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if IsTemporary(err) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// WithRetry runs operation up to maxRetries times, waiting delay, 2*delay,
// 3*delay... between attempts. It stops early on a non-retryable error or
// when ctx is done.
func WithRetry(ctx context.Context, maxRetries int, delay time.Duration, operation func(context.Context) error) error {
	var err error
	for i := 0; i < maxRetries; i++ {
		if err = operation(ctx); err == nil {
			return nil
		}
		if !IsRetryable(err) || i == maxRetries-1 {
			return err
		}

		timer := time.NewTimer(delay * time.Duration(i+1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}
