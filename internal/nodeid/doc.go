/*
Package nodeid provides a structured, type-safe representation for step
identifiers within a pipeline, based on the canonical format `type.name`.

The stage type names the manifest a step calls; the name is unique among the
steps of that type. In expressions, a step is referenced with the `step.`
prefix, e.g. `step.aggregate.main.output.matrix_h5`.

This package enforces the identifier schema and centralizes all formatting
and parsing logic.
*/
package nodeid
