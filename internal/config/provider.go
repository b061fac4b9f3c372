package config

import (
	"strings"
)

// Provider supplies configuration values by dotted key
type Provider interface {
	Get(key string) (any, bool)
}

// MapProvider is a Provider backed by a map. Keys may be dotted
// ("advice.rebase_threshold") or nested maps ({"advice": {...}}).
type MapProvider map[string]any

// Get returns the value for key
func (m MapProvider) Get(key string) (any, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	return lookupNested(m, strings.Split(key, "."))
}

func lookupNested(m map[string]any, parts []string) (any, bool) {
	v, ok := m[parts[0]]
	if !ok {
		return nil, false
	}
	if len(parts) == 1 {
		return v, true
	}
	switch child := v.(type) {
	case map[string]any:
		return lookupNested(child, parts[1:])
	case MapProvider:
		return lookupNested(child, parts[1:])
	default:
		return nil, false
	}
}

// flatten turns nested maps into dotted keys
func flatten(prefix string, in map[string]any, out map[string]any) {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if child, ok := v.(map[string]any); ok {
			flatten(key, child, out)
			continue
		}
		out[key] = v
	}
}
