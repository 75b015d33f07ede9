package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/taskrunner-go/taskrunner/internal/style"
	"github.com/taskrunner-go/taskrunner/internal/taskfile"
)

var explainCmd = &cobra.Command{
	Use:   "explain <taskfile.yaml>",
	Short: "Show the task list and descriptions without executing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := taskfile.LoadFile(args[0])
		if err != nil {
			return err
		}
		if err := taskfile.Validate(doc); err != nil {
			return err
		}

		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(doc)
		}

		if doc.Information != "" {
			fmt.Println(style.Muted.Render(strings.TrimSpace(doc.Information)))
			fmt.Println()
		}
		if len(doc.Helpers) > 0 {
			fmt.Println(style.Emphasis.Render("Helpers"))
			for _, name := range sortedHelperNames(doc.Helpers) {
				h := doc.Helpers[name]
				fmt.Printf("%s %s\n", style.Emphasis.Render("-"), style.Announce.Render(name))
				if h.Description != "" {
					fmt.Printf("  %s\n", h.Description)
				}
				for _, line := range runLines(h) {
					fmt.Printf("  %s\n", style.Muted.Render(line))
				}
			}
			fmt.Println()
		}

		fmt.Println(style.Emphasis.Render("Tasks"))
		for i, t := range doc.Tasks {
			fmt.Printf("%s %s\n", style.Emphasis.Render(fmt.Sprintf("%d.", i+1)), style.Announce.Render(t.Name))
			if t.Description != "" {
				fmt.Printf("   %s\n", t.Description)
			}
			if t.Prerequisites != "" {
				fmt.Printf("   prerequisites: %s\n", t.Prerequisites)
			}
			for _, line := range runLines(t) {
				fmt.Printf("   %s\n", style.Muted.Render(line))
			}
		}
		return nil
	},
}

// sortedHelperNames orders the helper mapping for stable output.
func sortedHelperNames(helpers map[string]*taskfile.Spec) []string {
	names := make([]string, 0, len(helpers))
	for name := range helpers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func runLines(t *taskfile.Spec) []string {
	if len(t.Run.Argv) > 0 {
		return []string{strings.Join(t.Run.Argv, " ")}
	}
	if t.Run.Line == "" {
		return nil
	}
	if t.Each.Ref != "" {
		return []string{fmt.Sprintf("%s (for each of %s)", t.Run.Line, t.Each.Ref)}
	}
	if len(t.Each.Items) > 0 {
		return []string{fmt.Sprintf("%s (for each of %d items)", t.Run.Line, len(t.Each.Items))}
	}
	return []string{t.Run.Line}
}

func init() {
	rootCmd.AddCommand(explainCmd)
}
