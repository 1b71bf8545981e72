// Package kind holds the data kinds that may flow across stage ports.
//
// A kind is a name ("csv", "h5", "records") paired with the cty.Type that
// carries its values at run time. Two ports are compatible when their kinds
// have the same name; there is no implicit coercion between kinds, even when
// they share a carrier type. All kind checking happens while the execution
// graph is built, never while stages run.
package kind
