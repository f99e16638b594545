// Package main implements the CLI driver for the dynarray scenario runner.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/715d/dynarray/internal/scenario"
	"github.com/715d/dynarray/pkg/dynarray"
)

// Config holds all command-line configuration options.
type Config struct {
	Verbose  bool // enables debug logging and per-step details
	JSON     bool // enables JSON output format
	Parallel int  // maximum number of scenarios run at once
}

const (
	exitScenarioFailed = 1
	exitError          = 2
)

var (
	// Set via ldflags during build.
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

var cfg Config

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if err.Error() != "" {
			fmt.Fprintln(os.Stderr, err.Error())
		}
		var cErr codedError
		if errors.As(err, &cErr) {
			os.Exit(cErr.code)
		}
		os.Exit(exitError)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dynarray",
		Short: "Exercise a resizable string array",
		Long: `dynarray drives a resizable, owning array of strings.

It can:
- Run YAML scenarios that script append/insert/read/remove/print steps
  and check the final array state
- Run the built-in smoke demo`,
		PersistentPreRunE: setup,
		SilenceUsage:      true,
		SilenceErrors:     true,
		Version:           version,
	}
	rootCmd.SetVersionTemplate(fmt.Sprintf("dynarray version %s\n  commit: %s\n  built:  %s\n", version, gitCommit, buildTime))

	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&cfg.JSON, "json", false, "Output in JSON format")

	runCmd := &cobra.Command{
		Use:   "run <scenario.yaml|dir>...",
		Short: "Run scenario files",
		Example: `  dynarray run ./testdata              # Run every scenario under testdata
  dynarray run smoke.yaml -v           # Verbose output with details
  dynarray run --json ./testdata       # JSON report`,
		Args: cobra.MinimumNArgs(1),
		RunE: runScenarios,
	}
	runCmd.Flags().IntVar(&cfg.Parallel, "parallel", 0, "Maximum scenarios run concurrently (0 = number of CPUs)")

	demoCmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the built-in smoke demo",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := runDemo(cmd.OutOrStdout()); err != nil {
				return errWithCode(fmt.Errorf("demo: %w", err), exitError)
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, demoCmd)
	return rootCmd
}

func runScenarios(cmd *cobra.Command, args []string) error {
	slog.Info("loading scenarios", "paths", args)
	scenarios, err := scenario.Discover(args)
	if err != nil {
		return errWithCode(fmt.Errorf("load: %w", err), exitError)
	}
	slog.Info("loaded scenarios", "num", len(scenarios))

	report, err := scenario.RunAll(cmd.Context(), scenarios, scenario.BatchOptions{
		RunOptions: scenario.RunOptions{Logger: slog.Default()},
		Parallel:   cfg.Parallel,
	})
	if err != nil {
		return errWithCode(err, exitError)
	}

	if err := writeReport(cmd.OutOrStdout(), report, &cfg); err != nil {
		return errWithCode(fmt.Errorf("format results: %w", err), exitError)
	}

	if report.Stats.Failed > 0 {
		return errWithCode(nil, exitScenarioFailed)
	}
	return nil
}

// runDemo appends three strings to an array of capacity one, removes the
// middle one and prints the array after each phase.
func runDemo(w io.Writer) error {
	tracker := &dynarray.Tracker{}
	arr, err := dynarray.NewWithOptions(1, dynarray.Options{Tracker: tracker})
	if err != nil {
		return err
	}

	for _, s := range []string{"STRING3", "STRING4", "STRING5"} {
		arr.Append(s)
	}
	fmt.Fprintln(w, arr)

	if err := arr.Remove("STRING4"); err != nil {
		arr.Destroy()
		return err
	}
	fmt.Fprintln(w, arr)

	arr.Destroy()
	elements, buffers := tracker.Live()
	slog.Debug("demo array destroyed", "live_elements", elements, "live_buffers", buffers)
	if elements != 0 || buffers != 0 {
		return fmt.Errorf("leaked %d elements and %d buffers", elements, buffers)
	}
	return nil
}

func writeReport(w io.Writer, report *scenario.Report, cfg *Config) error {
	var output string
	var err error

	if cfg.JSON {
		output, err = formatJSONOutput(report)
	} else {
		output = formatTextOutput(report, cfg)
	}
	if err != nil {
		return err
	}

	_, err = io.WriteString(w, output)
	return err
}

func formatJSONOutput(report *scenario.Report) (string, error) {
	data, err := json.MarshalIndent(jOutput{
		Results:   report.Results,
		Stats:     report.Stats,
		Version:   version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling json output: %w", err)
	}
	return string(data) + "\n", nil
}

func formatTextOutput(report *scenario.Report, cfg *Config) string {
	var output strings.Builder

	if cfg.Verbose {
		slog.Info("",
			"scenarios", report.Stats.Scenarios,
			"failed", report.Stats.Failed,
			"steps", report.Stats.Steps,
			"duration", report.Stats.Duration.String())
	}

	for _, res := range report.Results {
		status := "PASS"
		if !res.Success {
			status = "FAIL"
		}
		// Format: STATUS name (message)
		fmt.Fprintf(&output, "%s %s (%s)\n", status, res.Name, res.Message)

		if cfg.Verbose {
			for _, dump := range res.Dumps {
				fmt.Fprintf(&output, "  %s\n", dump)
			}
		}
		if !res.Success {
			for _, d := range res.Details {
				fmt.Fprintf(&output, "  %s\n", d)
			}
		}
	}

	fmt.Fprintf(&output, "%d scenarios, %d failed\n", report.Stats.Scenarios, report.Stats.Failed)
	return output.String()
}

type jOutput struct {
	Results   []*scenario.Result `json:"results"`
	Stats     scenario.Stats     `json:"stats"`
	Version   string             `json:"version"`
	Timestamp string             `json:"timestamp"`
}

func setup(_ *cobra.Command, _ []string) error {
	// Disable logger unless verbose flag is set.
	slog.SetDefault(slog.New(slog.DiscardHandler))
	if cfg.Verbose {
		opts := &slog.HandlerOptions{Level: slog.LevelDebug}
		var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
		if cfg.JSON {
			handler = slog.NewJSONHandler(os.Stderr, opts)
		}
		slog.SetDefault(slog.New(handler))
	}
	return nil
}

func errWithCode(err error, code int) error {
	return codedError{err: err, code: code}
}

type codedError struct {
	err  error
	code int
}

func (e codedError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return ""
}

func (e codedError) Unwrap() error {
	return e.err
}
