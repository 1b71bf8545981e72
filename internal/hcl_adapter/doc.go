// Package hcl_adapter reads stage manifests and pipeline declarations written
// in HCL and translates them into the format-agnostic config.Model.
//
// Step arguments and output values are classified while loading: each must be
// a `step.<type>.<name>.output.<port>` reference, a `var.<name>` reference,
// a constant, or `null`. Nothing is evaluated lazily at run time.
package hcl_adapter
