// Package team provides the execution strategies that run activated jobs.
//
// A Team receives jobs through AssignJob and guarantees each one eventually
// runs. It makes no ordering promise relative to other teams. The built-in
// strategies are Passive (runs on the assigning goroutine), Pool (a fixed set
// of worker goroutines), Dedicated (a pool of one) and Executor (runs only when
// driven by its owner, used for deterministic tests and embedding hosts).
package team
