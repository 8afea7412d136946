package llamaserver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
)

// ErrProcessExited is returned by WaitReady when the supervised process dies
// before it becomes healthy.
var ErrProcessExited = errors.New("llama-server exited before becoming ready")

// WaitReady polls /health until it succeeds, timeout elapses or exited is closed.
// exited may be nil when the server is not supervised.
func WaitReady(ctx context.Context, c *Client, timeout, interval time.Duration, exited <-chan struct{}) error {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	var last error
	err := retry.Do(ctx, retry.NewConstant(interval), func(ctx context.Context) error {
		select {
		case <-exited:
			return ErrProcessExited
		default:
		}
		if err := c.Health(ctx); err != nil {
			last = err
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil && ctx.Err() != nil && last != nil {
		return fmt.Errorf("llama-server at %s not ready after %s: %w", c.BaseURL(), timeout, last)
	}
	return err
}
