// Package cli turns the stagegrid command line into an app.Config and maps
// run errors onto process exit codes.
package cli
