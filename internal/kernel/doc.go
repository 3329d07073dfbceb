// Package kernel is the execution runtime: it runs functions as jobs on
// teams, sources their managed objects, applies governance at flow boundaries
// and escalates failures.
//
// A process is one invocation. It owns one or more threads; a thread owns
// flows, and a flow is an ordered chain of jobs. A job runs while holding its
// thread's lock, so jobs of one thread never overlap while threads run in
// parallel. Every point where a job may suspend (asynchronous sourcing, a join
// on another thread) is an asset.Monitor, and every job that becomes runnable
// is collected in an asset.ActivateSet and handed to its team only after all
// locks are released.
//
// Lock order: thread, then process, then managed-object container, then
// monitor. A thread never takes another thread's lock except when creating a
// spawned thread that no one else can see yet.
//
// A failure is searched upward: the failing function's own escalations, then
// the office escalations, then the completion callback of whoever started the
// thread, and finally the office floor handler, whose own failure is logged.
package kernel
