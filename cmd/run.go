package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/taskrunner-go/taskrunner/internal/engine"
	trerrors "github.com/taskrunner-go/taskrunner/internal/errors"
	"github.com/taskrunner-go/taskrunner/internal/style"
	"github.com/taskrunner-go/taskrunner/internal/taskfile"
	"github.com/taskrunner-go/taskrunner/internal/vars"
)

var (
	runQuiet  bool
	runDryRun bool
	runVars   []string
)

var runCmd = &cobra.Command{
	Use:   "run <taskfile.yaml>",
	Short: "Execute a task file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := taskfile.LoadFile(args[0])
		if err != nil {
			return err
		}
		if err := taskfile.Validate(doc); err != nil {
			return err
		}

		store := vars.New()
		store.Seed(doc.Variables)
		store.Seed(parseVars(runVars))

		log := newLogger(runQuiet)
		rc := engine.NewRunContext(store, runQuiet, runDryRun, log)
		store.Set("run_id", rc.RunID)

		path, _ := filepath.Abs(args[0])
		log.Info().Msg(style.Banner.Render(fmt.Sprintf("[taskrunner %s]", version)))
		log.Info().Msg(fmt.Sprintf("Task File: %s", style.Emphasis.Render(path)))
		if runDryRun {
			log.Info().Msg(fmt.Sprintf("Dry Run: %s", style.Emphasis.Render("true")))
		}
		if doc.Information != "" {
			log.Info().Msg(fmt.Sprintf("Information: %s", doc.Information))
		}
		log.Info().Msg(fmt.Sprintf("Variables: %s Helpers: %s Tasks: %s",
			style.Emphasis.Render(fmt.Sprint(len(doc.Variables))),
			style.Emphasis.Render(fmt.Sprint(len(doc.Helpers))),
			style.Emphasis.Render(fmt.Sprint(len(doc.Tasks)))))
		log.Info().Msg("---")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		en := engine.New(doc)
		result, runErr := en.Run(ctx, rc)

		if jsonOutput {
			if err := json.NewEncoder(os.Stdout).Encode(result); err != nil {
				return err
			}
		}

		if runErr != nil {
			rerr, isRun := runErr.(*trerrors.RunError)
			if ctx.Err() != nil || (isRun && rerr.Type == trerrors.Aborted) {
				fmt.Fprintln(os.Stderr, style.ErrorText.Render("Aborted by user."))
				os.Exit(130)
			}
			return runErr
		}
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "Do not output anything except errors")
	runCmd.Flags().BoolVarP(&runDryRun, "dry-run", "d", false, "Only show the intended commands, without running anything")
	runCmd.Flags().StringArrayVar(&runVars, "var", nil, "Variable overrides (name=value)")
	rootCmd.AddCommand(runCmd)
}
