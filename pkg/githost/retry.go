// Copyright 2025 RepoLens Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package githost

import (
	"context"
	"time"
)

// RetryConfig bounds the fetch-level retry policy.
type RetryConfig struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int

	// InitialBackoff is the sleep before the second attempt. Each
	// subsequent attempt multiplies it by Multiplier.
	InitialBackoff time.Duration

	// Multiplier grows the backoff between attempts.
	Multiplier float64
}

// DefaultRetryConfig returns the policy from the ingestion contract:
// up to 3 attempts, 1s backoff doubling each attempt.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Second,
		Multiplier:     2.0,
	}
}

func (r RetryConfig) withDefaults() RetryConfig {
	if r.MaxAttempts <= 0 {
		r.MaxAttempts = 3
	}
	if r.InitialBackoff <= 0 {
		r.InitialBackoff = time.Second
	}
	if r.Multiplier <= 1.0 {
		r.Multiplier = 2.0
	}
	return r
}

// withRetry runs fn under the client's retry policy. Only errors for
// which Retryable reports true are retried; everything else escalates
// immediately. Sleeps are interruptible by ctx.
func (c *Client) withRetry(ctx context.Context, op string, fn func() error) error {
	cfg := c.retry.withDefaults()
	backoff := cfg.InitialBackoff

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !Retryable(lastErr) || attempt == cfg.MaxAttempts {
			return lastErr
		}

		c.logger.Warn("githost.fetch.retry",
			"op", op,
			"attempt", attempt,
			"backoff_ms", backoff.Milliseconds(),
			"err", lastErr,
		)
		recordFetchRetry()

		if err := c.sleep(ctx, backoff); err != nil {
			return NewTimeout(op, err)
		}
		backoff = time.Duration(float64(backoff) * cfg.Multiplier)
	}
	return lastErr
}

// sleep waits d or until ctx is done. Injected as a field so tests can
// observe requested durations instead of really sleeping.
func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	if c.sleepFn != nil {
		return c.sleepFn(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
