// Package registry provides the central "glue" for the module system.
//
// The Registry stores mappings between the handler names used in stage
// manifests (e.g., "OnRunAggregate") and the compiled Go handlers that
// implement them. It also holds the parsed, format-agnostic stage
// definitions from the manifests themselves.
//
// During application startup, the registry is populated and then validated
// to ensure that the Go code and the manifests agree on every port, so that
// a mismatch is caught before any pipeline is built.
package registry
