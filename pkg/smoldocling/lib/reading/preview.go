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

package reading

import (
	"bytes"
	"fmt"

	"github.com/antflydb/smoldocling/pkg/smoldocling/lib/doctags"
	"github.com/antflydb/smoldocling/pkg/smoldocling/lib/otsl"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/util"
)

// Raw HTML in model output is not passed through.
var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Preview renders a page as an HTML fragment for display.
//
// OTSL tasks use the span-aware table renderer, formulas are wrapped for a
// LaTeX renderer, code becomes a highlighted fenced block and everything else
// is DocTags Markdown converted to HTML.
func Preview(page Page) (string, error) {
	switch {
	case page.Task == TaskFormula:
		formula := util.EscapeHTML([]byte(ExtractFormula(page.Raw)))
		return `<div class="latex-body">` + string(formula) + `</div>`, nil

	case page.Task.IsOTSL():
		return `<div class="markdown-body">` + otsl.ToHTML(page.Raw) + `</div>`, nil

	case page.Task == TaskCode:
		body, err := markdownToHTML(ExtractCode(page.Raw).Fence())
		if err != nil {
			return "", err
		}
		return `<div class="code-body markdown-body">` + body + `</div>`, nil

	default:
		body, err := markdownToHTML(doctags.ToMarkdown(page.Raw))
		if err != nil {
			return "", err
		}
		return `<div class="markdown-body">` + body + `</div>`, nil
	}
}

func markdownToHTML(src string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("markdown to html: %w", err)
	}
	return buf.String(), nil
}
