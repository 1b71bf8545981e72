// Package binding resolves where each stage input port gets its value.
//
// A port is bound to exactly one Source: the output port of another step, a
// pipeline-level input, a literal, or the explicit Unresolved marker that asks
// the stage to compute its own default. The Binder rejects a second binding
// to the same port as soon as it is declared, and Finalize rejects unresolved
// required ports before anything runs.
package binding
