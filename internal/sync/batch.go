package sync

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// SyncAll syncs every branch with target. The target's remote is fetched
// once, the read-only analysis runs concurrently (at most sync.max_parallel
// branches at a time) and the integrations are then applied one branch at a
// time. Per-branch failures are reported in the results; the error is only
// set when the batch itself could not run.
func (e *Engine) SyncAll(ctx context.Context, branches []string, target string) ([]*Result, error) {
	target = e.targetOrDefault(target)
	if err := e.refreshTarget(ctx, target); err != nil {
		return nil, err
	}

	runs := make([]*run, len(branches))
	plans := make([]*plan, len(branches))

	var g errgroup.Group
	g.SetLimit(max(1, e.settings.Sync.MaxParallel))
	for i, branch := range branches {
		runs[i] = newRun(branch, target, e.logger)
		g.Go(func() error {
			r := runs[i]
			e.reporter.Analyzing(i, branch)
			r.to(StateCheckingStatus)
			if err := e.validate(ctx, branch, target); err != nil {
				_, _ = r.fail(err)
				e.reporter.Finished(i, r.result)
				return nil
			}
			p, err := e.analyze(ctx, r, nil)
			if err != nil {
				_, _ = r.fail(err)
			}
			if p == nil {
				e.reporter.Finished(i, r.result)
				return nil
			}
			plans[i] = p
			return nil
		})
	}
	_ = g.Wait()

	results := make([]*Result, len(runs))
	for i, r := range runs {
		results[i] = r.result
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}

	for i, p := range plans {
		if p == nil {
			continue
		}
		e.reporter.Applying(i, runs[i].result.Branch)
		if _, err := e.apply(ctx, runs[i], p); err != nil {
			e.logger.Debug("batch sync failed for branch", "branch", runs[i].result.Branch, "error", err.Error())
		}
		e.reporter.Finished(i, runs[i].result)
	}
	return results, nil
}
