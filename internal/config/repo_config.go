package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// RepoConfigFileName is the repository configuration file at the work tree root
const RepoConfigFileName = ".gitmove.yaml"

// globalConfigPath is relative to the XDG config directories
const globalConfigPath = "gitmove/config.yaml"

// FileConfig mirrors the YAML layout. Pointer fields distinguish "unset"
// from an explicit zero so a later layer can turn a flag off.
type FileConfig struct {
	General struct {
		MainBranch *string `yaml:"main_branch,omitempty"`
		Remote     *string `yaml:"remote,omitempty"`
	} `yaml:"general,omitempty"`
	Advice struct {
		RebaseThreshold     *int     `yaml:"rebase_threshold,omitempty"`
		ConsiderBranchAge   *bool    `yaml:"consider_branch_age,omitempty"`
		BranchAgeDays       *int     `yaml:"branch_age_days,omitempty"`
		ForceMergePatterns  []string `yaml:"force_merge_patterns,omitempty"`
		ForceRebasePatterns []string `yaml:"force_rebase_patterns,omitempty"`
	} `yaml:"advice,omitempty"`
	ConflictDetection struct {
		PreCheckEnabled *bool   `yaml:"pre_check_enabled,omitempty"`
		Timeout         *string `yaml:"timeout,omitempty"`
	} `yaml:"conflict_detection,omitempty"`
	Network struct {
		FetchEnabled   *bool   `yaml:"fetch_enabled,omitempty"`
		FetchRequired  *bool   `yaml:"fetch_required,omitempty"`
		MaxRetries     *int    `yaml:"max_retries,omitempty"`
		RetryBackoff   *string `yaml:"retry_backoff,omitempty"`
		FetchTimeout   *string `yaml:"fetch_timeout,omitempty"`
		CommandTimeout *string `yaml:"command_timeout,omitempty"`
		LockTimeout    *string `yaml:"lock_timeout,omitempty"`
	} `yaml:"network,omitempty"`
	Sync struct {
		MaxParallel *int `yaml:"max_parallel,omitempty"`
	} `yaml:"sync,omitempty"`
}

// ReadFileConfig parses a YAML config file. A missing file is an empty config.
func ReadFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &FileConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// FileProvider is a Provider over the layered YAML files: the global user
// config first, then the repository config on top.
type FileProvider struct {
	values map[string]any
	// Sources lists the files that existed and were merged, lowest precedence first.
	Sources []string
}

// NewFileProvider loads the global config and the repository config of repoRoot
func NewFileProvider(repoRoot string) (*FileProvider, error) {
	var paths []string
	if global, err := xdg.SearchConfigFile(globalConfigPath); err == nil {
		paths = append(paths, global)
	}
	if repoRoot != "" {
		paths = append(paths, filepath.Join(repoRoot, RepoConfigFileName))
	}
	return LoadFiles(paths...)
}

// LoadFiles merges the given files in order; later files win
func LoadFiles(paths ...string) (*FileProvider, error) {
	merged := &FileConfig{}
	var sources []string
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		layer, err := ReadFileConfig(path)
		if err != nil {
			return nil, err
		}
		if err := mergo.Merge(merged, layer, mergo.WithOverride, mergo.WithoutDereference); err != nil {
			return nil, fmt.Errorf("failed to merge config %s: %w", path, err)
		}
		sources = append(sources, path)
	}

	values, err := toValues(merged)
	if err != nil {
		return nil, err
	}
	return &FileProvider{values: values, Sources: sources}, nil
}

// toValues flattens a FileConfig into dotted keys, dropping unset fields
func toValues(cfg *FileConfig) (map[string]any, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	nested := map[string]any{}
	if err := yaml.Unmarshal(data, &nested); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	values := map[string]any{}
	flatten("", nested, values)
	return values, nil
}

// Get returns the value for a dotted key
func (p *FileProvider) Get(key string) (any, bool) {
	v, ok := p.values[key]
	return v, ok
}
