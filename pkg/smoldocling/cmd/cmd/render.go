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
	"time"

	"github.com/antflydb/smoldocling/pkg/smoldocling/lib/cli"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var renderCmd = &cobra.Command{
	Use:   "render [page files...]",
	Short: "Render model output files",
	Long: `Render raw SmolDocling output into Markdown, JSON, HTML or xlsx.

Each file holds the output for one page. With no files (or "-") the page is
read from standard input. Pages are joined with a horizontal rule; the xlsx
format exports the table on the first page.

Examples:
  # Render a full page conversion to Markdown
  smoldocling render page.txt

  # Render two table pages to HTML
  smoldocling render --task table --format html p1.txt p2.txt

  # Export a table to Excel
  smoldocling render --task table -f xlsx -o table.xlsx page.txt

  # Pipe model output through
  cat page.txt | smoldocling render --format json`,
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringP("task", "t", "", "task short name or prompt (page, chart, formula, table, code, headers, footer, figures, lists)")
	renderCmd.Flags().StringP("format", "f", "markdown", "output format (markdown, json, raw, html, xlsx)")
	renderCmd.Flags().StringP("output", "o", "", "write to file instead of stdout")
}

func runRender(cmd *cobra.Command, args []string) error {
	task, _ := cmd.Flags().GetString("task")
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")

	logger := newLogger()
	defer func() {
		_ = logger.Sync()
	}()

	start := time.Now()
	err := cli.Render(cmd.Context(), args, cli.RenderOptions{
		Task:   task,
		Format: format,
		Output: output,
		Stdin:  cmd.InOrStdin(),
		Stdout: cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}

	logger.Debug("Rendered pages",
		zap.Int("files", len(args)),
		zap.String("format", format),
		zap.Duration("took", time.Since(start)))
	return nil
}
