// Package strategy decides whether a branch should be merged with or rebased
// onto its target.
package strategy

import (
	"fmt"
	"strings"
)

// Strategy is an integration method
type Strategy string

const (
	// Merge integrates the target with a merge commit or fast-forward
	Merge Strategy = "MERGE"
	// Rebase replays the local commits on top of the target
	Rebase Strategy = "REBASE"
)

func (s Strategy) String() string {
	return string(s)
}

// Verb returns the lowercase git command name
func (s Strategy) Verb() string {
	return strings.ToLower(string(s))
}

// Parse accepts merge or rebase in any case
func Parse(s string) (Strategy, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(Merge):
		return Merge, nil
	case string(Rebase):
		return Rebase, nil
	default:
		return "", fmt.Errorf("unknown strategy %q: expected merge or rebase", s)
	}
}
