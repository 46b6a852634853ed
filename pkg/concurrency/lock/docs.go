// Package lock implements multi-granularity two-phase locking over tables
// and records: lock identifiers (identifier.go), lock and group modes
// (mode.go), the per-resource request queue (queue.go), and the global
// lock manager that implements the five acquire operations plus unlock
// (manager.go).
//
// The manager uses no-wait deadlock avoidance: any request that cannot be
// granted immediately aborts the requester rather than queuing it to wait.
// There is exactly one mutex, held for the duration of every acquire or
// release, so grants are synchronous and the queue never holds an
// ungranted request.
package lock
