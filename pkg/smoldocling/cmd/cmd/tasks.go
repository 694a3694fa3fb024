// Copyright 2025 Antfly, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package cmd

import (
	"fmt"

	json "github.com/antflydb/antfly-go/libaf/json"
	"github.com/antflydb/smoldocling/pkg/smoldocling/lib/cli"
	"github.com/antflydb/smoldocling/pkg/smoldocling/lib/reading"
	"github.com/spf13/cobra"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List the prompts smoldocling understands",
	Long: `List the SmolDocling prompts with their short names and output grammar.

Examples:
  # Show a table of tasks
  smoldocling tasks

  # Machine readable output
  smoldocling tasks --json`,
	RunE: runTasks,
}

func init() {
	rootCmd.AddCommand(tasksCmd)

	tasksCmd.Flags().Bool("json", false, "Print tasks as JSON")
}

type taskJSON struct {
	Name   string `json:"name"`
	Label  string `json:"label"`
	Prompt string `json:"prompt"`
	OTSL   bool   `json:"otsl"`
}

func runTasks(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	if !asJSON {
		return cli.ListTasks(cmd.OutOrStdout())
	}

	tasks := reading.Tasks()
	out := make([]taskJSON, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskJSON{Name: t.Name(), Label: t.Label(), Prompt: t.String(), OTSL: t.IsOTSL()})
	}
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("encoding tasks: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
