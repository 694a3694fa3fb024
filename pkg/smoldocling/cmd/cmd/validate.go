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
	"github.com/antflydb/smoldocling/pkg/smoldocling/lib/cli"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [json files...]",
	Short: "Validate DocTags JSON against the document schema",
	Long: `Check that JSON produced by "render --format json" (or by the API) matches
the DocTags document schema. Reads standard input when no files are given.

Examples:
  smoldocling render -f json page.txt | smoldocling validate
  smoldocling validate doc1.json doc2.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.Validate(args, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
