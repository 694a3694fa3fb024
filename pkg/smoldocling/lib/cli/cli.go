// Copyright 2025 Antfly, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cli provides the functions behind the smoldocling subcommands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/antflydb/smoldocling/pkg/smoldocling/lib/doctags"
	"github.com/antflydb/smoldocling/pkg/smoldocling/lib/otsl"
	"github.com/antflydb/smoldocling/pkg/smoldocling/lib/reading"
)

// StdinPath selects standard input as a page source
const StdinPath = "-"

// RenderOptions contains options for rendering model output files
type RenderOptions struct {
	Task   string // Task short name or prompt; empty means full page
	Format string // Output format; empty means markdown
	Output string // Output file; empty writes to Stdout

	Stdin  io.Reader
	Stdout io.Writer
}

// Render reads one page per path (standard input when paths is empty or a
// path is "-") and writes the rendered document. The xlsx format exports the
// table on the first page.
func Render(ctx context.Context, paths []string, opts RenderOptions) (err error) {
	task, err := reading.TaskFromString(opts.Task)
	if err != nil {
		return err
	}
	format, err := reading.ParseFormat(opts.Format)
	if err != nil {
		return err
	}

	if len(paths) == 0 {
		paths = []string{StdinPath}
	}
	pages := make([]reading.Page, 0, len(paths))
	for _, path := range paths {
		raw, err := readInput(path, opts.Stdin)
		if err != nil {
			return err
		}
		pages = append(pages, reading.Page{Raw: raw, Task: task})
	}

	w := opts.Stdout
	if opts.Output != "" {
		f, err := os.Create(opts.Output)
		if err != nil {
			return fmt.Errorf("creating output: %w", err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("closing output: %w", cerr)
			}
		}()
		w = f
	}
	if w == nil {
		w = os.Stdout
	}

	if format.IsBinary() {
		if err := otsl.WriteXLSX(w, pages[0].Raw); err != nil {
			return fmt.Errorf("exporting %s: %w", paths[0], err)
		}
		return nil
	}

	out, err := reading.RenderDocument(ctx, pages, format)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, out); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

func readInput(path string, stdin io.Reader) (string, error) {
	if path == StdinPath {
		if stdin == nil {
			stdin = os.Stdin
		}
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading page: %w", err)
	}
	return string(data), nil
}

// ListTasks prints the known prompts as a table
func ListTasks(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tLABEL\tOUTPUT\tPROMPT")
	for _, t := range reading.Tasks() {
		output := "doctags"
		switch {
		case t.IsOTSL():
			output = "otsl"
		case t == reading.TaskFormula:
			output = "latex"
		case t == reading.TaskCode:
			output = "code"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.Name(), t.Label(), output, t.String())
	}
	return tw.Flush()
}

// ErrInvalidDocument is returned when at least one file fails validation
var ErrInvalidDocument = errors.New("invalid document")

// Validate checks DocTags JSON files against the document schema, printing
// one line per file.
func Validate(paths []string, stdin io.Reader, w io.Writer) error {
	if len(paths) == 0 {
		paths = []string{StdinPath}
	}

	failed := 0
	for _, path := range paths {
		data, err := readInput(path, stdin)
		if err == nil {
			err = doctags.Validate([]byte(data))
		}
		if err != nil {
			failed++
			_, _ = fmt.Fprintf(w, "FAIL %s: %v\n", path, err)
			continue
		}
		_, _ = fmt.Fprintf(w, "ok   %s\n", path)
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d files", ErrInvalidDocument, failed, len(paths))
	}
	return nil
}
