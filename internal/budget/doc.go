// Package budget provides the run-scoped error budget shared by the tunnel
// source, the classifier and the orchestrator.
//
// Every recoverable failure (an admin API page that could not be fetched, a
// tunnel that could not be analyzed, a task that timed out) is recorded in the
// same Budget. Once the number of recorded failures reaches the ceiling the
// whole audit is aborted: acquisition stops issuing API calls and the
// orchestrator stops collecting results.
//
// A Budget is safe for concurrent use.
package budget
