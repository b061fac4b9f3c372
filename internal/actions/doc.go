// Package actions provides the behaviour behind each gitmove command.
//
// Each action corresponds to a command (status, advise, check-conflicts,
// sync, config) and turns the sync engine's results into console output.
//
// Key patterns:
//   - Actions accept runtime.Context which provides Engine, Splog and Settings
//   - Actions are stateless; the repository is only changed through the engine
//   - Rendering is plain text, colored with lipgloss when attached to a terminal
package actions
