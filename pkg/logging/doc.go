// Package logging provides a process-wide structured logger for the
// concurrency core.
//
// The package wraps [log/slog] and exposes a single global logger instance
// that is initialized once and then retrieved via GetLogger. The lock
// manager and transaction manager obtain a logger through this package
// rather than constructing their own slog.Logger values, so that log level
// and output destination are controlled from a single place.
//
// # Initialisation
//
// Call Init (or InitDefault for sensible defaults) once at program startup,
// before any goroutines that might call GetLogger are spawned:
//
//	if err := logging.Init(logging.Config{Level: logging.LevelDebug}); err != nil {
//	    log.Fatal(err)
//	}
//
// InitDefault writes INFO-level logs to stdout without a log file.
//
// # Retrieving the logger
//
//	logger := logging.GetLogger()
//	logger.Info("lock manager started")
//
// If GetLogger is called before Init, a default stdout logger is created
// lazily (via sync.Once) so that packages that log during init are safe.
//
// # Context helpers
//
// Several helpers return child loggers pre-populated with structured fields,
// reducing repetition in hot paths:
//
//	log := logging.WithTxn(txnID)                 // adds txn_id field
//	log := logging.WithLock(txnID, resourceID)    // adds txn_id + resource fields
//	log := logging.WithComponent("lock-manager")  // adds component field
package logging
