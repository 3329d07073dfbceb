package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/specialistvlad/officegrid/internal/app"
	"github.com/specialistvlad/officegrid/internal/config"
)

// Version is set at build time with -ldflags "-X .../internal/cli.Version=...".
var Version = "dev"

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Execute runs the command line. Command output goes to outW and logs to errW.
func Execute(ctx context.Context, args []string, outW, errW io.Writer) error {
	root := NewRootCommand(outW, errW)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	// Anything cobra rejects before running a command is a usage error.
	return &ExitError{Code: 2, Message: err.Error()}
}

// NewRootCommand builds the command tree.
func NewRootCommand(outW, errW io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "officegrid",
		Short: "Run offices of functions, teams and managed objects described by HCL floor files",
		Long: `officegrid loads HCL floor files declaring teams, managed objects, governance,
functions and escalations, builds an office from them and runs the floor's
invocations.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(outW)
	root.SetErr(errW)
	root.AddCommand(newRunCommand(outW, errW), newVersionCommand(outW))
	return root
}

func newVersionCommand(outW io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(outW, "officegrid %s\n", Version)
		},
	}
}

func newRunCommand(outW, errW io.Writer) *cobra.Command {
	v := viper.New()
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "run FLOOR_PATH...",
		Short: "Run the invocations of a floor",
		Long: `Run loads every .hcl file under the given paths, starts the office and runs
the floor's invocations, printing a summary. A floor without invocations is
served until interrupted.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.Debug("CLI run command started.", "paths", args)
			settings, err := config.Load(v, cfgFile)
			if err != nil {
				return &ExitError{Code: 2, Message: err.Error()}
			}

			a, err := app.NewApp(errW, settings, args)
			if err != nil {
				return &ExitError{Code: 1, Message: err.Error()}
			}
			summary, err := a.Run(cmd.Context())
			if summary != nil {
				printSummary(outW, summary)
			}
			if err != nil {
				return &ExitError{Code: 1, Message: err.Error()}
			}
			if n := summary.Failed(); n > 0 {
				return &ExitError{Code: 1, Message: fmt.Sprintf("%d of %d invocations failed", n, len(summary.Results))}
			}
			return nil
		},
	}

	d := config.Default()
	flags := cmd.Flags()
	flags.StringVar(&cfgFile, "config", "", "config file (yaml, toml or json)")
	flags.String("log-level", d.LogLevel, "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	flags.String("log-format", d.LogFormat, "Log output format. Options: 'text' or 'json'.")
	flags.Int("team-size", d.TeamSize, "Size of pool teams declared without one.")
	flags.Duration("check-interval", d.CheckInterval, "Asset check interval when the floor sets none.")
	flags.Duration("invoke-timeout", d.InvokeTimeout, "Timeout of each invocation.")
	flags.Int("healthcheck-port", d.HealthcheckPort, "Port for the /health and /metrics server. 0 is disabled.")
	flags.String("otlp-endpoint", d.OTLPEndpoint, "OTLP/HTTP collector host:port. Empty disables tracing.")
	for _, name := range []string{"log-level", "log-format", "team-size", "check-interval", "invoke-timeout", "healthcheck-port", "otlp-endpoint"} {
		_ = v.BindPFlag(flagKey(name), flags.Lookup(name))
	}
	return cmd
}

// flagKey maps a flag name to its settings key.
func flagKey(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

func printSummary(w io.Writer, summary *app.Summary) {
	if len(summary.Results) == 0 {
		return
	}
	table := tablewriter.NewWriter(w)
	table.Header("Function", "Delay", "Duration", "Outcome")
	for _, r := range summary.Results {
		outcome := "ok"
		if r.Err != nil {
			outcome = r.Err.Error()
		}
		table.Append(r.Function, r.Delay.String(), r.Duration.Round(time.Millisecond).String(), outcome)
	}
	table.Render()
	fmt.Fprintf(w, "office %s: %d invocations, %d failed\n", summary.Office, len(summary.Results), summary.Failed())
}
