// Package logging provides structured logging utilities for inboxtriage.
//
// Every component receives a Logger explicitly; there is no process-wide
// console. The default implementation is SlogAdapter, backed by log/slog.
//
// # Usage Patterns
//
// Build the process logger once in the CLI and pass it down:
//
//	logger, err := logging.New(os.Stderr, logging.Options{Level: "debug"})
//	store := preferences.NewStore(kv, logger)
//
// Attach consistent attributes:
//
//	logger.Info("classification finished",
//	    logging.RunID(runID),
//	    logging.Status(logging.StatusSuccess))
//
// # Privacy
//
// Sender addresses are hashed with Sender/AnonymizeEmail before logging and
// OAuth tokens are only ever logged through SanitizeToken.
package logging
