// Package runtime provides the execution context for gitmove commands.
//
// It encapsulates shared dependencies needed by actions, such as the sync
// engine, the logger, the effective settings and the repository root path.
package runtime
