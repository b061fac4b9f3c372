package conflict

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize/english"
)

// splitThreshold is the number of conflicting files above which splitting
// the branch is suggested
const splitThreshold = 5

var configExtensions = map[string]bool{
	".yaml": true, ".yml": true, ".json": true, ".toml": true,
	".ini": true, ".cfg": true, ".conf": true, ".env": true,
}

func suggest(r *Report) []string {
	if len(r.Entries) == 0 {
		return nil
	}

	var out []string
	severe := r.Count(High) + r.Count(Critical)
	total := len(r.Entries)

	switch {
	case severe == 0:
		out = append(out, fmt.Sprintf("%s changed on both sides in separate regions; review %s after syncing",
			english.Plural(total, "file", ""), english.PluralWord(total, "it", "them")))
	case severe == total:
		out = append(out, "every conflict is high severity: work through the files one at a time and commit incrementally")
	default:
		out = append(out, fmt.Sprintf("resolve the %s first: %s",
			english.Plural(severe, "high-severity conflict", ""), strings.Join(r.ConflictingPaths(), ", ")))
	}

	var configs int
	for _, e := range r.Entries {
		if configExtensions[strings.ToLower(filepath.Ext(e.Path))] {
			configs++
		}
	}
	if configs > 0 {
		out = append(out, fmt.Sprintf("%s conflict; check the changes for compatibility",
			english.Plural(configs, "configuration file", "")))
	}

	if severe > splitThreshold {
		out = append(out, fmt.Sprintf("%d files conflict: consider splitting %s into smaller branches", severe, r.Branch))
	}

	if severe*2 > total {
		out = append(out, "most conflicts are severe: prefer merge over rebase to keep the history of each change")
	}
	out = append(out, fmt.Sprintf("sync %s with %s regularly to keep future conflicts small", r.Branch, r.Target))
	return out
}
