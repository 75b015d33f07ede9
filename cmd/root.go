package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/taskrunner-go/taskrunner/internal/style"
)

const version = "2.0.0"

var (
	jsonOutput bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "taskrunner",
	Short:         "Simple, sequential task runner",
	Long:          "taskrunner — run, validate, and explain YAML task files with variables, helpers, and post-run hooks.",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output raw JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
}

// newLogger builds the run's console log stream. Quiet keeps errors
// only; verbose opens the debug stream.
func newLogger(quiet bool) zerolog.Logger {
	w := zerolog.ConsoleWriter{
		Out:           os.Stdout,
		FormatLevel:   style.FormatLevel,
		FormatMessage: style.FormatMessage,
		FormatTimestamp: func(any) string {
			return ""
		},
	}
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	if quiet {
		level = zerolog.ErrorLevel
	}
	return zerolog.New(w).Level(level)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, style.ErrorText.Render(err.Error()))
		os.Exit(1)
	}
}
