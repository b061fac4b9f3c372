package actions

import (
	"fmt"

	"github.com/dustin/go-humanize/english"

	"gitmove.dev/gitmove/internal/errors"
	"gitmove.dev/gitmove/internal/output"
	"gitmove.dev/gitmove/internal/runtime"
	"gitmove.dev/gitmove/internal/strategy"
	"gitmove.dev/gitmove/internal/sync"
	"gitmove.dev/gitmove/internal/tui"
)

// SyncOptions specifies options for the sync command
type SyncOptions struct {
	// Branches to sync; empty means the checked out branch.
	Branches []string
	Target   string
	// Strategy is merge or rebase; empty lets the advisor decide.
	Strategy string
	// All syncs every local branch except the target.
	All bool
	// Interactive asks for the strategy and a confirmation before applying.
	Interactive bool
	// Progress shows batch progress; nil picks a UI for the terminal.
	Progress output.SyncProgressUI
}

// SyncAction synchronizes one or more branches with their target
func SyncAction(ctx *runtime.Context, opts SyncOptions) error {
	target := targetOrMain(ctx, opts.Target)
	forced, err := parseStrategy(opts.Strategy)
	if err != nil {
		return err
	}

	branches := opts.Branches
	if opts.All {
		if branches, err = batchBranches(ctx, target); err != nil {
			return err
		}
		if len(branches) == 0 {
			ctx.Splog.Info("No branches to sync with %s.", target)
			return nil
		}
	}
	if len(branches) > 1 || opts.All {
		if forced != nil || opts.Interactive {
			return fmt.Errorf("--strategy and --interactive apply to a single branch")
		}
		return syncBatch(ctx, branches, target, opts.Progress)
	}

	branch := ""
	if len(branches) == 1 {
		branch = branches[0]
	}
	if branch, err = branchOrCurrent(ctx, branch); err != nil {
		return err
	}

	if opts.Interactive {
		chosen, ok, err := confirmPlan(ctx, branch, target, forced)
		if err != nil || !ok {
			return err
		}
		forced = &chosen
	}
	return syncOne(ctx, branch, target, forced)
}

// batchBranches lists the local branches other than the target
func batchBranches(ctx *runtime.Context, target string) ([]string, error) {
	all, err := ctx.Backend.LocalBranches(ctx)
	if err != nil {
		return nil, err
	}
	var branches []string
	for _, b := range all {
		if b != target && b != ctx.Settings.General.MainBranch {
			branches = append(branches, b)
		}
	}
	return branches, nil
}

// confirmPlan shows the recommendation, lets the user pick a strategy and
// asks for confirmation. ok is false when the user declined.
func confirmPlan(ctx *runtime.Context, branch, target string, forced *strategy.Strategy) (strategy.Strategy, bool, error) {
	decision, err := ctx.Engine.Recommend(ctx, branch, target)
	if err != nil {
		return "", false, err
	}
	printLines(ctx.Splog, decisionLines(decision))

	chosen := decision.Strategy
	if forced != nil {
		chosen = *forced
	} else if chosen, err = tui.PromptStrategy(branch, decision.Strategy); err != nil {
		return "", false, err
	}

	report, err := ctx.Engine.DetectConflicts(ctx, branch, target, chosen)
	if err != nil {
		return "", false, err
	}
	printLines(ctx.Splog, reportLines(report))

	ok, err := tui.PromptConfirm(fmt.Sprintf("%s %s into %s now?", chosen.Verb(), target, branch), !report.HasConflicts())
	if err != nil {
		return "", false, err
	}
	if !ok {
		ctx.Splog.Info("Sync canceled, nothing was changed.")
	}
	return chosen, ok, nil
}

func syncOne(ctx *runtime.Context, branch, target string, forced *strategy.Strategy) error {
	res, err := ctx.Engine.Sync(ctx, branch, target, forced)
	if res != nil && res.Decision != nil && res.Status != sync.StatusUpToDate {
		printLines(ctx.Splog, decisionLines(*res.Decision))
	}
	if res != nil {
		if res.Conflicts != nil && res.Status == sync.StatusConflictDetected {
			printLines(ctx.Splog, reportLines(res.Conflicts))
		}
		ctx.Splog.Info("%s", resultHeadline(res))
	}
	if err != nil {
		return err
	}
	if res.Status == sync.StatusConflictDetected {
		ctx.Splog.Tip("resolve the conflicts on %s first, or pass --strategy to try the other strategy", branch)
		return errors.NewConflictDetectedError(branch, target, res.Conflicts)
	}
	return nil
}

// progressReporter forwards engine progress to a progress UI
type progressReporter struct {
	ui output.SyncProgressUI
}

func (p progressReporter) Analyzing(idx int, _ string) {
	p.ui.UpdateItem(idx, output.ItemAnalyzing, "", nil)
}

func (p progressReporter) Applying(idx int, _ string) {
	p.ui.UpdateItem(idx, output.ItemApplying, "applying", nil)
}

func (p progressReporter) Finished(idx int, r *sync.Result) {
	switch r.Status {
	case sync.StatusSynchronized:
		p.ui.UpdateItem(idx, output.ItemDone, r.Detail, nil)
	case sync.StatusUpToDate:
		p.ui.UpdateItem(idx, output.ItemSkipped, "up to date", nil)
	case sync.StatusConflictDetected:
		p.ui.UpdateItem(idx, output.ItemSkipped, r.Detail, nil)
	default:
		p.ui.UpdateItem(idx, output.ItemError, r.Detail, r.Err)
	}
}

func syncBatch(ctx *runtime.Context, branches []string, target string, ui output.SyncProgressUI) error {
	if ui == nil {
		ui = output.NewSyncProgressUI(ctx.Splog)
	}
	engine := sync.NewEngine(ctx.Backend, ctx.Settings, ctx.Splog.Logger(), sync.WithReporter(progressReporter{ui: ui}))

	ui.Start(branches)
	results, err := engine.SyncAll(ctx, branches, target)
	ui.Complete()
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.Status == sync.StatusFailed || r.Status == sync.StatusConflictOccurred {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%s of %d failed to sync", english.Plural(failed, "branch", "branches"), len(results))
	}
	return nil
}
