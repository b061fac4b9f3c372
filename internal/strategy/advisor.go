package strategy

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gobwas/glob"

	"gitmove.dev/gitmove/internal/config"
	"gitmove.dev/gitmove/internal/divergence"
)

// Rule identifies which step of the decision procedure fired
type Rule int

const (
	// RuleForceMerge is a branch matching advice.force_merge_patterns
	RuleForceMerge Rule = iota + 1
	// RuleForceRebase is a branch matching advice.force_rebase_patterns
	RuleForceRebase
	// RuleThreshold is ahead <= advice.rebase_threshold
	RuleThreshold
	// RuleManyCommits is the fallback when the threshold is exceeded
	RuleManyCommits
	// RuleForced is a strategy chosen by the caller
	RuleForced
)

func (r Rule) String() string {
	switch r {
	case RuleForceMerge:
		return "force-merge-pattern"
	case RuleForceRebase:
		return "force-rebase-pattern"
	case RuleThreshold:
		return "rebase-threshold"
	case RuleManyCommits:
		return "many-commits"
	case RuleForced:
		return "forced"
	default:
		return "unknown"
	}
}

// Decision is the advisor's verdict with the reasons it considered, in order
type Decision struct {
	Strategy       Strategy
	Rationale      []string
	MatchedPattern string
	Rule           Rule
	// Overridden is set when branch age turned a threshold rebase into a merge.
	Overridden bool
}

// Forced records a caller-chosen strategy as a decision
func Forced(s Strategy) Decision {
	return Decision{
		Strategy:  s,
		Rule:      RuleForced,
		Rationale: []string{fmt.Sprintf("strategy %s requested explicitly", s.Verb())},
	}
}

// Recommend picks a strategy. The first matching rule wins: forced merge
// patterns, forced rebase patterns, the rebase threshold, then merge. With
// consider_branch_age on, an old branch turns a threshold rebase into a merge.
func Recommend(branch, target string, div divergence.Divergence, cfg config.AdvisorSettings, now time.Time) Decision {
	var d Decision

	if p, ok := firstMatch(branch, cfg.ForceMergePatterns); ok {
		d.Rationale = append(d.Rationale, fmt.Sprintf("branch %s matches force-merge pattern %q", branch, p))
		d.Strategy, d.Rule, d.MatchedPattern = Merge, RuleForceMerge, p
		return d
	}
	if len(cfg.ForceMergePatterns) > 0 {
		d.Rationale = append(d.Rationale, fmt.Sprintf("branch %s matches no force-merge pattern", branch))
	}

	if p, ok := firstMatch(branch, cfg.ForceRebasePatterns); ok {
		d.Rationale = append(d.Rationale, fmt.Sprintf("branch %s matches force-rebase pattern %q", branch, p))
		d.Strategy, d.Rule, d.MatchedPattern = Rebase, RuleForceRebase, p
		return d
	}
	if len(cfg.ForceRebasePatterns) > 0 {
		d.Rationale = append(d.Rationale, fmt.Sprintf("branch %s matches no force-rebase pattern", branch))
	}

	if div.Ahead > cfg.RebaseThreshold {
		d.Rationale = append(d.Rationale, fmt.Sprintf(
			"%d local commits exceed the rebase threshold of %d: many local commits, rebase risk outweighs linear history benefit",
			div.Ahead, cfg.RebaseThreshold))
		d.Strategy, d.Rule = Merge, RuleManyCommits
		return d
	}

	d.Rationale = append(d.Rationale, fmt.Sprintf(
		"%d local commits within the rebase threshold of %d: few local commits, safe to replay",
		div.Ahead, cfg.RebaseThreshold))
	d.Strategy, d.Rule = Rebase, RuleThreshold

	if !cfg.ConsiderBranchAge {
		return d
	}
	oldest, ok := div.OldestLocal()
	if !ok {
		return d
	}
	maxAge := time.Duration(cfg.BranchAgeDays) * 24 * time.Hour
	if now.Sub(oldest) > maxAge {
		d.Rationale = append(d.Rationale, fmt.Sprintf(
			"override: oldest local commit is from %s, older than %d days; rewriting long-lived history is riskier, merging instead",
			humanize.RelTime(oldest, now, "ago", "from now"), cfg.BranchAgeDays))
		d.Strategy = Merge
		d.Overridden = true
	}
	return d
}

func firstMatch(branch string, patterns []string) (string, bool) {
	for _, p := range patterns {
		if MatchGlob(p, branch) {
			return p, true
		}
	}
	return "", false
}

// MatchGlob matches name against an fnmatch-style pattern. No separators
// are declared, so * also matches / and "feature/*" covers "feature/a/b".
// A pattern that does not compile only matches itself.
func MatchGlob(pattern, name string) bool {
	g, err := glob.Compile(pattern)
	if err != nil {
		return pattern == name
	}
	return g.Match(name)
}
