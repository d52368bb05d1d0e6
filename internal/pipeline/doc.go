// Package pipeline fans tunnel classification out across a bounded pool
// of goroutines and collects the results.
//
// One task is submitted per tunnel record through errgroup with SetLimit,
// so at most Workers classifications run at the same time. Results are
// collected in completion order, not submission order.
//
// Every task runs under its own deadline (probe timeout plus a margin).
// A task that misses its deadline or panics is recorded in the shared
// error budget and its result is dropped. Once the budget is exhausted
// the orchestrator stops dispatching, cancels outstanding tasks through
// the context and returns what it has collected together with
// budget.ErrExhausted.
package pipeline
