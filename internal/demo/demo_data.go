// Package demo provides a simulated repository for trying gitmove commands
// without a real git repository. It is enabled with GITMOVE_DEMO.
package demo

// Branch describes a simulated branch relative to main
type Branch struct {
	Name string
	// Base is how many of main's commits the branch was created after.
	Base int
	// Commits are the branch's own commits, each a map of path to content.
	Commits []map[string]string
	// AgeDays is how long ago the branch's first commit was made.
	AgeDays int
}

// mainCommits are the commits of main, oldest first
var mainCommits = []map[string]string{
	{"README.md": "# demo\n", "go.mod": "module demo\n\ngo 1.25\n"},
	{"server/handler.go": "package server\n\nfunc Handle() {}\n"},
	{"server/config.yaml": "port: 8080\nlog: info\n"},
	{"docs/guide.md": "# guide\n\nstep one\n"},
	{"server/handler.go": "package server\n\nfunc Handle() error { return nil }\n"},
}

// demoBranches covers one branch per sync outcome
var demoBranches = []Branch{
	{
		// up to date with main
		Name: "feature/docs-typo",
		Base: len(mainCommits),
	},
	{
		// behind only: fast-forwarded by a rebase
		Name: "feature/metrics",
		Base: 2,
	},
	{
		// a few commits on separate files: rebased
		Name: "feature/auth",
		Base: 3,
		Commits: []map[string]string{
			{"auth/token.go": "package auth\n\nfunc Token() string { return \"\" }\n"},
			{"auth/token_test.go": "package auth\n"},
		},
		AgeDays: 2,
	},
	{
		// many commits: merged
		Name: "feature/search",
		Base: 1,
		Commits: []map[string]string{
			{"search/index.go": "package search\n"},
			{"search/query.go": "package search\n"},
			{"search/rank.go": "package search\n"},
			{"search/cache.go": "package search\n"},
			{"search/api.go": "package search\n"},
			{"search/api_test.go": "package search\n"},
		},
		AgeDays: 5,
	},
	{
		// edits the same lines as main: conflicts predicted
		Name: "feature/config-port",
		Base: 2,
		Commits: []map[string]string{
			{"server/config.yaml": "port: 9090\nlog: info\n"},
			{"server/handler.go": "package server\n\nfunc Handle() bool { return true }\n"},
		},
		AgeDays: 1,
	},
	{
		// old branch: merged despite few commits
		Name: "legacy/importer",
		Base: 1,
		Commits: []map[string]string{
			{"importer/csv.go": "package importer\n"},
		},
		AgeDays: 90,
	},
}
