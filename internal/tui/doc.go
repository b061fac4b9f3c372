// Package tui provides the interactive prompts of gitmove.
//
// It handles:
//   - Yes/no confirmation before a sync is applied (bubbletea)
//   - Choosing a strategy other than the recommended one (survey)
//
// Prompts fail with ErrInteractiveDisabled when GITMOVE_NO_INTERACTIVE is set.
package tui
