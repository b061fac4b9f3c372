package config

import (
	"fmt"
	"strconv"
	"time"
)

// Settings is the typed view of all configuration keys
type Settings struct {
	General           GeneralSettings
	Advice            AdvisorSettings
	ConflictDetection ConflictDetectionSettings
	Network           NetworkSettings
	Sync              SyncSettings
}

// GeneralSettings holds general.* keys
type GeneralSettings struct {
	MainBranch string
	Remote     string
}

// AdvisorSettings holds advice.* keys
type AdvisorSettings struct {
	RebaseThreshold     int
	ConsiderBranchAge   bool
	BranchAgeDays       int
	ForceMergePatterns  []string
	ForceRebasePatterns []string
}

// ConflictDetectionSettings holds conflict_detection.* keys
type ConflictDetectionSettings struct {
	PreCheckEnabled bool
	// Timeout bounds the read-only analysis: divergence and simulation.
	Timeout time.Duration
}

// NetworkSettings holds network.* keys
type NetworkSettings struct {
	FetchEnabled   bool
	FetchRequired  bool
	MaxRetries     int
	RetryBackoff   time.Duration
	FetchTimeout   time.Duration
	CommandTimeout time.Duration
	LockTimeout    time.Duration
}

// SyncSettings holds sync.* keys
type SyncSettings struct {
	MaxParallel int
}

// Default returns the built-in settings
func Default() Settings {
	return Settings{
		General: GeneralSettings{
			MainBranch: "main",
			Remote:     "origin",
		},
		Advice: AdvisorSettings{
			RebaseThreshold:   5,
			ConsiderBranchAge: true,
			BranchAgeDays:     30,
		},
		ConflictDetection: ConflictDetectionSettings{
			PreCheckEnabled: true,
			Timeout:         2 * time.Minute,
		},
		Network: NetworkSettings{
			FetchEnabled:   true,
			MaxRetries:     2,
			RetryBackoff:   500 * time.Millisecond,
			FetchTimeout:   60 * time.Second,
			CommandTimeout: 5 * time.Minute,
			LockTimeout:    10 * time.Second,
		},
		Sync: SyncSettings{
			MaxParallel: 4,
		},
	}
}

// Keys lists every supported key in display order
var Keys = []string{
	"general.main_branch",
	"general.remote",
	"advice.rebase_threshold",
	"advice.consider_branch_age",
	"advice.branch_age_days",
	"advice.force_merge_patterns",
	"advice.force_rebase_patterns",
	"conflict_detection.pre_check_enabled",
	"conflict_detection.timeout",
	"network.fetch_enabled",
	"network.fetch_required",
	"network.max_retries",
	"network.retry_backoff",
	"network.fetch_timeout",
	"network.command_timeout",
	"network.lock_timeout",
	"sync.max_parallel",
}

// Load builds Settings from p, falling back to Default for missing keys
func Load(p Provider) (Settings, error) {
	s := Default()
	l := loader{p: p}

	l.str("general.main_branch", &s.General.MainBranch)
	l.str("general.remote", &s.General.Remote)
	l.integer("advice.rebase_threshold", &s.Advice.RebaseThreshold)
	l.boolean("advice.consider_branch_age", &s.Advice.ConsiderBranchAge)
	l.integer("advice.branch_age_days", &s.Advice.BranchAgeDays)
	l.strings("advice.force_merge_patterns", &s.Advice.ForceMergePatterns)
	l.strings("advice.force_rebase_patterns", &s.Advice.ForceRebasePatterns)
	l.boolean("conflict_detection.pre_check_enabled", &s.ConflictDetection.PreCheckEnabled)
	l.duration("conflict_detection.timeout", &s.ConflictDetection.Timeout)
	l.boolean("network.fetch_enabled", &s.Network.FetchEnabled)
	l.boolean("network.fetch_required", &s.Network.FetchRequired)
	l.integer("network.max_retries", &s.Network.MaxRetries)
	l.duration("network.retry_backoff", &s.Network.RetryBackoff)
	l.duration("network.fetch_timeout", &s.Network.FetchTimeout)
	l.duration("network.command_timeout", &s.Network.CommandTimeout)
	l.duration("network.lock_timeout", &s.Network.LockTimeout)
	l.integer("sync.max_parallel", &s.Sync.MaxParallel)

	if l.err != nil {
		return Settings{}, l.err
	}
	if s.Advice.RebaseThreshold < 0 {
		return Settings{}, fmt.Errorf("advice.rebase_threshold must not be negative, got %d", s.Advice.RebaseThreshold)
	}
	if s.Network.MaxRetries < 0 {
		return Settings{}, fmt.Errorf("network.max_retries must not be negative, got %d", s.Network.MaxRetries)
	}
	if s.Sync.MaxParallel < 1 {
		s.Sync.MaxParallel = 1
	}
	return s, nil
}

// Value returns the effective value of key as display text
func (s Settings) Value(key string) (string, bool) {
	switch key {
	case "general.main_branch":
		return s.General.MainBranch, true
	case "general.remote":
		return s.General.Remote, true
	case "advice.rebase_threshold":
		return strconv.Itoa(s.Advice.RebaseThreshold), true
	case "advice.consider_branch_age":
		return strconv.FormatBool(s.Advice.ConsiderBranchAge), true
	case "advice.branch_age_days":
		return strconv.Itoa(s.Advice.BranchAgeDays), true
	case "advice.force_merge_patterns":
		return fmt.Sprint(s.Advice.ForceMergePatterns), true
	case "advice.force_rebase_patterns":
		return fmt.Sprint(s.Advice.ForceRebasePatterns), true
	case "conflict_detection.pre_check_enabled":
		return strconv.FormatBool(s.ConflictDetection.PreCheckEnabled), true
	case "conflict_detection.timeout":
		return s.ConflictDetection.Timeout.String(), true
	case "network.fetch_enabled":
		return strconv.FormatBool(s.Network.FetchEnabled), true
	case "network.fetch_required":
		return strconv.FormatBool(s.Network.FetchRequired), true
	case "network.max_retries":
		return strconv.Itoa(s.Network.MaxRetries), true
	case "network.retry_backoff":
		return s.Network.RetryBackoff.String(), true
	case "network.fetch_timeout":
		return s.Network.FetchTimeout.String(), true
	case "network.command_timeout":
		return s.Network.CommandTimeout.String(), true
	case "network.lock_timeout":
		return s.Network.LockTimeout.String(), true
	case "sync.max_parallel":
		return strconv.Itoa(s.Sync.MaxParallel), true
	default:
		return "", false
	}
}

// loader records the first conversion error and skips the rest
type loader struct {
	p   Provider
	err error
}

func (l *loader) get(key string) (any, bool) {
	if l.err != nil {
		return nil, false
	}
	v, ok := l.p.Get(key)
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func (l *loader) fail(key string, v any, want string) {
	l.err = fmt.Errorf("config key %s: expected %s, got %T (%v)", key, want, v, v)
}

func (l *loader) str(key string, dst *string) {
	v, ok := l.get(key)
	if !ok {
		return
	}
	s, ok := v.(string)
	if !ok {
		l.fail(key, v, "a string")
		return
	}
	*dst = s
}

func (l *loader) integer(key string, dst *int) {
	v, ok := l.get(key)
	if !ok {
		return
	}
	switch n := v.(type) {
	case int:
		*dst = n
	case int64:
		*dst = int(n)
	case float64:
		if n != float64(int(n)) {
			l.fail(key, v, "an integer")
			return
		}
		*dst = int(n)
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			l.fail(key, v, "an integer")
			return
		}
		*dst = i
	default:
		l.fail(key, v, "an integer")
	}
}

func (l *loader) boolean(key string, dst *bool) {
	v, ok := l.get(key)
	if !ok {
		return
	}
	switch b := v.(type) {
	case bool:
		*dst = b
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			l.fail(key, v, "a boolean")
			return
		}
		*dst = parsed
	default:
		l.fail(key, v, "a boolean")
	}
}

// duration accepts Go duration strings ("500ms") or a number of seconds
func (l *loader) duration(key string, dst *time.Duration) {
	v, ok := l.get(key)
	if !ok {
		return
	}
	switch d := v.(type) {
	case time.Duration:
		*dst = d
	case string:
		parsed, err := time.ParseDuration(d)
		if err != nil {
			l.fail(key, v, "a duration")
			return
		}
		*dst = parsed
	case int:
		*dst = time.Duration(d) * time.Second
	case float64:
		*dst = time.Duration(d * float64(time.Second))
	default:
		l.fail(key, v, "a duration")
	}
}

func (l *loader) strings(key string, dst *[]string) {
	v, ok := l.get(key)
	if !ok {
		return
	}
	switch list := v.(type) {
	case []string:
		*dst = append([]string(nil), list...)
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				l.fail(key, v, "a list of strings")
				return
			}
			out = append(out, s)
		}
		*dst = out
	case string:
		*dst = []string{list}
	default:
		l.fail(key, v, "a list of strings")
	}
}
