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

// Package reading renders SmolDocling output according to the prompt that
// produced it: OTSL tables for the table and chart prompts, LaTeX for
// formulas, code listings for code, and DocTags for everything else.
package reading

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/antflydb/smoldocling/pkg/smoldocling/lib/doctags"
	"github.com/antflydb/smoldocling/pkg/smoldocling/lib/otsl"
	"golang.org/x/sync/errgroup"
)

// PageSeparator joins rendered pages in a multi-page document
const PageSeparator = "\n\n---\n\n"

// Page is the raw model output for one page and the prompt that produced it.
type Page struct {
	Raw  string
	Task Task
}

// RenderPage renders one page in the given format.
//
// Markdown output depends on the task: formulas yield their LaTeX, code its
// text, OTSL tasks a Markdown table and all other tasks DocTags Markdown.
// JSON output is always the DocTags section tree.
func RenderPage(page Page, format Format) (string, error) {
	switch format {
	case FormatRaw:
		return page.Raw, nil
	case FormatMarkdown:
		return renderMarkdown(page), nil
	case FormatJSON:
		return doctags.ToJSON(page.Raw), nil
	case FormatHTML:
		return Preview(page)
	case FormatXLSX:
		return "", ErrBinaryFormat
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}

func renderMarkdown(page Page) string {
	switch {
	case page.Task == TaskFormula:
		return ExtractFormula(page.Raw)
	case page.Task == TaskCode:
		return ExtractCode(page.Raw).Code
	case page.Task.IsOTSL():
		return otsl.ToMarkdown(page.Raw)
	default:
		return doctags.ToMarkdown(page.Raw)
	}
}

// RenderDocument renders pages concurrently and joins them in page order
// with PageSeparator.
func RenderDocument(ctx context.Context, pages []Page, format Format) (string, error) {
	if format.IsBinary() {
		return "", ErrBinaryFormat
	}

	rendered := make([]string, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, page := range pages {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := RenderPage(page, format)
			if err != nil {
				return fmt.Errorf("page %d: %w", i+1, err)
			}
			rendered[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	return strings.Join(rendered, PageSeparator), nil
}

// IsPlaceholder reports whether rendered output is one of the fixed
// messages produced when nothing could be parsed.
func IsPlaceholder(out string) bool {
	out = strings.TrimSuffix(strings.TrimPrefix(out, "<p>"), "</p>")
	switch out {
	case otsl.MsgNoData, otsl.MsgNotFound, otsl.MsgNoTokens, FormulaNotFound:
		return true
	}
	return false
}
