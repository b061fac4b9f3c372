// Package config manages gitmove configuration.
//
// It handles:
//   - Built-in defaults for every key
//   - Global user configuration ($XDG_CONFIG_HOME/gitmove/config.yaml)
//   - Repository configuration (.gitmove.yaml at the work tree root)
//
// Values are read through a Provider with dotted keys such as
// "advice.rebase_threshold" and turned into typed Settings by Load.
package config
