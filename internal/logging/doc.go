// Package logging provides structured logging for bootstrap runs.
//
// It wraps Go's log/slog to write JSON lines to a log file in the toolchain
// cache directory, next to the checkouts the run operates on. The terminal
// is left to the external tools, which inherit stdout and stderr, and to the
// pipeline's step trace; the log file records every external command with
// its label, working directory and exit status for post-hoc analysis.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger(cacheRoot, "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	stageLog := logger.WithStage("compiler")
//	stageLog.Info("stage started", "dir", compilerDir)
//
// Use [NopLogger] when logging is disabled or in tests.
package logging
