// Package outputs maps the results of a run to the pipeline's declared
// external outputs and materializes file-like outputs under fixed names.
package outputs
