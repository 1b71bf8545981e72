// Package ctyconv converts between cty values and the Go types stage
// handlers work with.
//
// Handler input structs tag their fields with `stage:"<port>"`; output
// structs tag theirs with `cty:"<port>"`. A field of type value.Value
// receives the tagged port as-is, including the Unresolved marker, and a
// field of type cty.Value receives the raw value. Every other field is
// decoded recursively, guided by the port's declared type.
package ctyconv
