package main

import (
	"testing"
	"time"

	"github.com/starford/hugopub/internal"
)

func TestSessionConfigCarriesPollRetry(t *testing.T) {
	c := internal.NewDefaultConfig().Client
	c.PollRetry.MaxAttempts = 4
	c.PollRetry.Backoff = 250 * time.Millisecond

	got := sessionConfig(c)
	if got.Retry.MaxAttempts != 4 || got.Retry.BackoffBase != 250*time.Millisecond {
		t.Errorf("Retry = %+v", got.Retry)
	}
	if got.Retry.BackoffMultiplier != c.PollRetry.Multiplier || got.Retry.MaxBackoff != c.PollRetry.MaxBackoff {
		t.Errorf("Retry = %+v, want multiplier %v max %v", got.Retry, c.PollRetry.Multiplier, c.PollRetry.MaxBackoff)
	}
	if got.PollInterval != c.PollInterval || got.PageSize != c.PageSize {
		t.Errorf("session config = %+v", got)
	}
}
