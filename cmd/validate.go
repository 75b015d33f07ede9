package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/taskrunner-go/taskrunner/internal/taskfile"
)

var validateCmd = &cobra.Command{
	Use:   "validate <taskfile.yaml>",
	Short: "Validate a task file and exit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := taskfile.LoadFile(args[0])
		if err == nil {
			err = taskfile.Validate(doc)
		}
		if jsonOutput {
			out := map[string]any{"valid": err == nil}
			if err != nil {
				out["error"] = err.Error()
			}
			if encErr := json.NewEncoder(os.Stdout).Encode(out); encErr != nil {
				return encErr
			}
			if err != nil {
				os.Exit(1)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Println("Task file is valid.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
