/*
 * Copyright (c) 2024-present RPM Software, Ltd.
 */

package coreutils

import (
	"context"
	"time"

	"github.com/untillpro/goutils/logger"
)

const defaultRetryDelay = 500 * time.Millisecond

// Retry executes f until it succeeds. Each failure is logged and retried
// after a fixed delay. Cancelling ctx during the retries returns the
// context's error.
func Retry(ctx context.Context, f func() error) error {
	for ctx.Err() == nil {
		lastErr := f()
		if lastErr == nil {
			return nil
		}
		logger.Error(lastErr)
		select {
		case <-ctx.Done():
		case <-time.After(defaultRetryDelay):
		}
	}
	return ctx.Err()
}
