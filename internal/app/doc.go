// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the primary execution lifecycle: load
// manifests and the pipeline, build the execution graph, run it, map and
// materialize outputs, and optionally publish them. It is decoupled from any
// specific entrypoint like a CLI or server.
package app
