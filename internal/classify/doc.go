// Package classify decides whether a tunnel is worth probing and whether
// it violates the acceptable use policy.
//
// A tunnel is relevant when it is an http or https tunnel, a tcp tunnel
// whose local port is a well-known web port, or any tunnel with a bound
// domain. Irrelevant tunnels are skipped without a probe. Relevant tunnels
// are probed and turned into a model.ClassificationResult that combines the
// probe evidence with a heuristic on the bound domain:
//
//	is_violation = probe found a keyword
//	            OR (http/https AND domain is a name rather than an IPv4 literal)
//
// Unexpected failures while classifying one tunnel are recorded in the
// shared error budget and produce no result. They never abort the run.
package classify
