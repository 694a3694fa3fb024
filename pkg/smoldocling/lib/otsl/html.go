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

package otsl

import (
	"strconv"
	"strings"

	"github.com/antflydb/smoldocling/pkg/smoldocling/lib/tags"
)

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// ToHTML renders the OTSL block in raw model output as an HTML table with
// rowspan/colspan attributes. When no table can be parsed it returns the
// matching placeholder message wrapped in a paragraph.
func ToHTML(raw string) string {
	tokens, err := Parse(raw)
	if err != nil {
		return "<p>" + Placeholder(err) + "</p>"
	}
	return RenderHTML(Resolve(BuildGrid(tokens)))
}

// RenderHTML serializes a resolved grid. Skipped cells emit nothing and
// empty rows are omitted.
func RenderHTML(cells [][]ResolvedCell) string {
	var sb strings.Builder
	sb.WriteString(`<table class="rendered-table">`)

	for _, row := range cells {
		if len(row) == 0 {
			continue
		}
		sb.WriteString("<tr>")
		for c, cell := range row {
			if cell.Skip {
				continue
			}

			el := "td"
			if isHeaderCell(cell, c) {
				el = "th"
			}

			sb.WriteString("<")
			sb.WriteString(el)
			if cell.RowSpan > 1 {
				sb.WriteString(` rowspan="`)
				sb.WriteString(strconv.Itoa(cell.RowSpan))
				sb.WriteString(`"`)
			}
			if cell.ColSpan > 1 {
				sb.WriteString(` colspan="`)
				sb.WriteString(strconv.Itoa(cell.ColSpan))
				sb.WriteString(`"`)
			}
			sb.WriteString(">")

			if cell.Text == "" {
				sb.WriteString("&nbsp;")
			} else {
				sb.WriteString(htmlEscaper.Replace(cell.Text))
			}

			sb.WriteString("</")
			sb.WriteString(el)
			sb.WriteString(">")
		}
		sb.WriteString("</tr>")
	}

	sb.WriteString("</table>")
	return sb.String()
}

// isHeaderCell treats header-role tags as headers, and also plain cells in
// the first column, which is where chart conversions put their labels.
func isHeaderCell(cell ResolvedCell, col int) bool {
	if tags.IsHeader(cell.Tag) {
		return true
	}
	return col == 0 && (cell.Tag == tags.FCel || cell.Tag == tags.Unknown)
}
