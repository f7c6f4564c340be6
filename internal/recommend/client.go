package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 2 * time.Second
	DefaultCallTimeout = 30 * time.Second
)

// ErrUpstreamCallFailed is returned once every attempt has failed.
var ErrUpstreamCallFailed = errors.New("upstream call failed")

// WarnFunc receives each failed attempt (1-based) so it can be shown to the user.
type WarnFunc func(attempt, maxAttempts int, err error)

type ClientConfig struct {
	MaxAttempts int
	RetryDelay  time.Duration
	// CallTimeout bounds a single remote call. Zero disables it.
	CallTimeout time.Duration
}

// Client sends prompts to a Generator, retrying any failure with a fixed delay.
type Client struct {
	gen Generator
	cfg ClientConfig
	log *zap.Logger

	// attempts is called once per remote call; nil-safe hook for metrics.
	attempts func(ok bool)
}

func NewClient(gen Generator, cfg ClientConfig, log *zap.Logger) *Client {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{gen: gen, cfg: cfg, log: log}
}

// OnAttempt registers a hook invoked after every remote call.
func (c *Client) OnAttempt(fn func(ok bool)) {
	c.attempts = fn
}

// Send returns the first successful response text. It gives up with
// ErrUpstreamCallFailed after MaxAttempts failures, or earlier if ctx is done.
func (c *Client) Send(ctx context.Context, prompt string, warn WarnFunc) (string, error) {
	var (
		text    string
		attempt int
		lastErr error
	)

	op := func() error {
		attempt++
		out, err := c.call(ctx, prompt)
		if c.attempts != nil {
			c.attempts(err == nil)
		}
		if err != nil {
			lastErr = err
			c.log.Warn("generation attempt failed",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", c.cfg.MaxAttempts),
				zap.Error(err),
			)
			if warn != nil {
				warn(attempt, c.cfg.MaxAttempts, err)
			}
			return err
		}
		text = out
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.cfg.RetryDelay), uint64(c.cfg.MaxAttempts-1)),
		ctx,
	)
	if err := backoff.Retry(op, policy); err != nil {
		if lastErr == nil {
			lastErr = err
		}
		return "", fmt.Errorf("%w after %d attempt(s): %v", ErrUpstreamCallFailed, attempt, lastErr)
	}
	return text, nil
}

func (c *Client) call(ctx context.Context, prompt string) (string, error) {
	if c.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.CallTimeout)
		defer cancel()
	}
	return c.gen.Generate(ctx, prompt)
}
