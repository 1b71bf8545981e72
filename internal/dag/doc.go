// Package dag turns a loaded pipeline declaration into a validated
// ExecutionGraph.
//
// The graph is an arena: stages live in a slice in declaration order and all
// edges are indexes into that slice. Build resolves every input binding,
// checks kinds, rejects duplicate and missing bindings, detects cycles and
// computes a deterministic topological order, all before any stage runs.
// Once built, a graph is read-only and may be shared between goroutines
// without locking.
package dag
