package collaborator

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/logging"
)

// WaitOptions configures WaitFor.
type WaitOptions struct {
	// Timeout bounds the total wait. Zero waits until ctx ends.
	Timeout time.Duration
	// InitialInterval is the first retry delay.
	InitialInterval time.Duration
	// MaxInterval caps the retry delay.
	MaxInterval time.Duration
	Logger      logging.Logger
}

// WaitFor blocks until c.Connect succeeds, retrying with exponential backoff.
// It returns a *core.UnreachableError when the timeout elapses or ctx ends
// first.
func WaitFor(ctx context.Context, c core.Collaborator, optFns ...func(o *WaitOptions)) error {
	opts := WaitOptions{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Logger:          logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	logger := logging.OrNoOp(opts.Logger)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = opts.InitialInterval
	b.MaxInterval = opts.MaxInterval

	attempts := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempts++
		if err := c.Connect(ctx); err != nil {
			if ctx.Err() != nil {
				return struct{}{}, backoff.Permanent(err)
			}
			return struct{}{}, err
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(opts.Timeout),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Warn("collaborator.connect.retry", "collaborator", c.Name(), "error", err.Error(), "next", next)
		}),
	)
	if err != nil {
		logger.Error("collaborator.unreachable", "collaborator", c.Name(), "attempts", attempts, "error", err.Error())
		return &core.UnreachableError{Collaborator: c.Name(), Err: err}
	}
	logger.Debug("collaborator.connected", "collaborator", c.Name(), "attempts", attempts)
	return nil
}
