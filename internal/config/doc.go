// Package config defines the format-agnostic configuration model for the
// application, along with the Loader interface for reading configuration
// from various sources.
//
// The `config.Model` is the single source of truth for the `dag` package.
// Concrete loaders, such as for HCL and YAML, are provided in separate
// packages and can be combined with MultiLoader.
package config
