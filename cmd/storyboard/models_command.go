package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/crapthings/storyboard/internal/catalog"
	"github.com/crapthings/storyboard/internal/registry"
	"github.com/crapthings/storyboard/internal/tasks"
)

func newModelsCommand() *cobra.Command {
	var taskFlag string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the model catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			task := tasks.Task(taskFlag)
			if task != "" && !task.Valid() {
				return fmt.Errorf("unknown task %q", taskFlag)
			}
			reg := registry.Default()
			list := reg.List(task)

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(list)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderModels(reg, list))
			return nil
		},
	}

	cmd.Flags().StringVar(&taskFlag, "task", "", "Only list models serving this task")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print descriptors as JSON")
	return cmd
}

func renderModels(reg *registry.Registry, list []catalog.Descriptor) string {
	rows := make([][]string, 0, len(list))
	for _, d := range list {
		def := ""
		if reg.IsDefault(d.Key) {
			def = "*"
		}
		rows = append(rows, []string{taskTitle(d.Task), d.Key, d.ModelID, strings.Join(requiredFields(d), ", "), def})
	}
	return renderTable([]string{"Task", "Key", "Model", "Required", "Default"}, rows)
}

// taskTitle turns "image_to_video" into "Image To Video".
func taskTitle(t tasks.Task) string {
	return cases.Title(language.Und).String(strings.ReplaceAll(string(t), "_", " "))
}

func requiredFields(d catalog.Descriptor) []string {
	var out []string
	for name, f := range d.InputSchema {
		if f.Required {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
