package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/stagegrid/internal/app"
	"github.com/specialistvlad/stagegrid/internal/objectstore"
)

// Exit codes returned by the stagegrid binary.
const (
	ExitOK      = 0
	ExitFailure = 1 // a stage failed or outputs could not be delivered
	ExitUsage   = 2 // bad flags, configuration or pipeline
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// ExitCode maps an error returned by Parse or by the app to a process exit
// code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	var startupErr *app.StartupError
	if errors.As(err, &startupErr) {
		return ExitUsage
	}
	return ExitFailure
}

// varFlags collects repeated -var name=value flags.
type varFlags map[string]string

func (v varFlags) String() string {
	pairs := make([]string, 0, len(v))
	for name, val := range v {
		pairs = append(pairs, name+"="+val)
	}
	return strings.Join(pairs, ",")
}

func (v varFlags) Set(raw string) error {
	name, val, err := app.ParseVarFlag(raw)
	if err != nil {
		return err
	}
	v[name] = val
	return nil
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("stagegrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
stagegrid - A declarative DAG runner for typed, stage-based pipelines.

Usage:
  stagegrid [options] [GRID_PATH]

Arguments:
  GRID_PATH
    Path to a pipeline file or a directory of .hcl / .yaml files.

Options:
`)
		flagSet.PrintDefaults()
	}

	vars := varFlags{}
	gridFlag := flagSet.String("grid", "", "Path to the grid file or directory.")
	gFlag := flagSet.String("g", "", "Path to the grid file or directory (shorthand).")
	modulesPathFlag := flagSet.String("modules-path", "modules", "Path to the directory containing stage manifests.")
	flagSet.Var(vars, "var", "Set a pipeline input, as name=value. May be repeated.")
	varFileFlag := flagSet.String("var-file", "", "Path to an .hcl or .yaml file with pipeline input values.")
	outDirFlag := flagSet.String("out-dir", "", "Directory to materialize pipeline outputs into.")
	planFlag := flagSet.Bool("plan", false, "Validate the pipeline and print the execution plan without running it.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	workersFlag := flagSet.Int("workers", 0, "Maximum number of stages running at once. 0 means one per CPU.")
	eventsURLFlag := flagSet.String("events-url", "", "socket.io server to stream run events to.")
	publishEndpointFlag := flagSet.String("publish-endpoint", "", "S3-compatible endpoint (host:port) to upload outputs to.")
	publishBucketFlag := flagSet.String("publish-bucket", "", "Bucket to upload outputs to.")
	publishPrefixFlag := flagSet.String("publish-prefix", "", "Key prefix for uploaded outputs.")
	publishSSLFlag := flagSet.Bool("publish-ssl", true, "Use TLS when talking to the publish endpoint.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: ExitUsage, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *gridFlag != "" {
		path = *gridFlag
	} else if *gFlag != "" {
		path = *gFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Grid path determined.", "path", path)

	if path == "" {
		slog.Debug("No grid path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: ExitUsage, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: ExitUsage, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		GridPath:        path,
		ModulesPath:     *modulesPathFlag,
		Vars:            vars,
		VarFile:         *varFileFlag,
		OutDir:          *outDirFlag,
		Plan:            *planFlag,
		HealthcheckPort: *healthPortFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		WorkerCount:     *workersFlag,
		EventsURL:       *eventsURLFlag,
		Publish: objectstore.Config{
			Endpoint: *publishEndpointFlag,
			Bucket:   *publishBucketFlag,
			Prefix:   *publishPrefixFlag,
			UseSSL:   *publishSSLFlag,
		},
	})
	if err != nil {
		return nil, false, &ExitError{Code: ExitUsage, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "grid", config.GridPath)
	return config, false, nil
}
