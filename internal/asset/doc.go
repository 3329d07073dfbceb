// Package asset provides the wait/notify primitive shared by every suspension
// point of the runtime.
//
// A Monitor holds an ordered list of waiters, each with an independent
// deadline. Waiters are released (Activate) when the condition the monitor
// represents is met, or failed (Fail) with a timeout error once their deadline
// passes. Deadlines are never polled by the waiting party: a single Checker,
// driven by a Clock, periodically calls Check on every monitor that still holds
// timed waiters.
//
// Releasing and failing never call into waiters directly. They append to an
// ActivateSet, which the caller runs once every lock it holds is released:
//
//	var set asset.ActivateSet
//	mu.Lock()
//	monitor.ActivateAll(&set, false)
//	mu.Unlock()
//	set.Activate()
//
// Asynchronous managed-object sourcing and cross-thread joins are both built on
// this package; they differ only in what activation means to the waiter.
package asset
