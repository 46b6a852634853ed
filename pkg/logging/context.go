package logging

import (
	"log/slog"
)

// WithTxn creates a logger with transaction context.
// Use this to automatically include the transaction id in all logs.
//
// Example:
//
//	log := logging.WithTxn(txnID)
//	log.Info("transaction began")
func WithTxn(txnID int64) *slog.Logger {
	return GetLogger().With("txn_id", txnID)
}

// WithLock creates a logger with lock context: the requesting transaction
// and the resource being acquired or released.
//
// Example:
//
//	log := logging.WithLock(txnID, resourceID)
//	log.Debug("lock granted", "mode", "EXCLUSIVE")
func WithLock(txnID int64, resourceID string) *slog.Logger {
	return GetLogger().With("txn_id", txnID, "resource", resourceID)
}

// WithComponent creates a logger with component/subsystem context.
//
// Example:
//
//	log := logging.WithComponent("lock-manager")
//	log.Info("component initialized")
func WithComponent(component string) *slog.Logger {
	return GetLogger().With("component", component)
}

// WithError creates a logger with error context.
// Use this when logging errors to include the error in structured format.
//
// Example:
//
//	log := logging.WithError(err)
//	log.Error("acquire failed", "operation", "lock_exclusive_on_record")
func WithError(err error) *slog.Logger {
	return GetLogger().With("error", err.Error())
}
