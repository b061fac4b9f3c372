package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"gitmove.dev/gitmove/internal/config"
	"gitmove.dev/gitmove/internal/errors"
)

// RetryPolicy bounds the retries of a fetch. Only TransientGitError is retried.
type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	// AttemptTimeout bounds each fetch attempt; zero means none.
	AttemptTimeout time.Duration
}

// RetryPolicyFrom builds the policy of the network.* settings
func RetryPolicyFrom(n config.NetworkSettings) RetryPolicy {
	return RetryPolicy{
		MaxRetries:      n.MaxRetries,
		InitialInterval: n.RetryBackoff,
		MaxInterval:     8 * n.RetryBackoff,
		Multiplier:      2,
		AttemptTimeout:  n.FetchTimeout,
	}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialInterval
	eb.MaxInterval = p.MaxInterval
	eb.Multiplier = p.Multiplier
	eb.RandomizationFactor = 0
	// the retry count is the only stop condition
	eb.MaxElapsedTime = 0
	if eb.MaxInterval < eb.InitialInterval {
		eb.MaxInterval = eb.InitialInterval
	}
	if eb.Multiplier < 1 {
		eb.Multiplier = 1
	}
	eb.Reset()

	retries := p.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(retries)), ctx)
}

// fetch fetches remote under the retry policy
func (e *Engine) fetch(ctx context.Context, remote string) error {
	attempt := 0
	op := func() error {
		attempt++
		actx, cancel := ctx, context.CancelFunc(func() {})
		if e.retry.AttemptTimeout > 0 {
			actx, cancel = context.WithTimeout(ctx, e.retry.AttemptTimeout)
		}
		defer cancel()

		err := e.backend.Fetch(actx, remote)
		if err == nil {
			return nil
		}
		if errors.Is(err, errors.ErrTransient) {
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, wait time.Duration) {
		e.logger.Debug("fetch failed, retrying",
			"remote", remote, "attempt", attempt, "wait", wait.String(), "error", err.Error())
	}

	if err := backoff.RetryNotify(op, e.retry.backOff(ctx), notify); err != nil {
		return fmt.Errorf("failed to fetch %s after %d attempt(s): %w", remote, attempt, err)
	}
	e.logger.Debug("fetched remote", "remote", remote, "attempts", attempt)
	return nil
}

// fetchRemotes fetches independent remotes concurrently. Unless fetching is
// required, failures are logged and the sync continues on local refs.
func (e *Engine) fetchRemotes(ctx context.Context, remotes []string) error {
	if !e.settings.Network.FetchEnabled || len(remotes) == 0 {
		return nil
	}

	var g errgroup.Group
	errs := make([]error, len(remotes))
	for i, remote := range remotes {
		g.Go(func() error {
			errs[i] = e.fetch(ctx, remote)
			return nil
		})
	}
	_ = g.Wait()

	for _, err := range errs {
		if err == nil {
			continue
		}
		if e.settings.Network.FetchRequired {
			return err
		}
		e.logger.Warn(fmt.Sprintf("warning: %v; continuing with local refs", err))
	}
	return ctx.Err()
}
