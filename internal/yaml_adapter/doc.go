// Package yaml_adapter reads stage manifests and pipeline declarations
// written in YAML and translates them into the format-agnostic config.Model.
//
// References are written as strings in the same syntax the HCL form uses,
// e.g. `from: step.aggregate.main.output.summary`. Literal values are carried
// through JSON into cty, so any YAML scalar, list or mapping is accepted.
package yaml_adapter
