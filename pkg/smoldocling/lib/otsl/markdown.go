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
	"strings"

	"github.com/antflydb/smoldocling/pkg/smoldocling/lib/tags"
)

// ToMarkdown renders the OTSL block in raw model output as a pipe table.
//
// Markdown tables cannot merge cells, so continuation markers are dropped
// rather than resolved. The first row becomes the header. Data rows left
// empty after dropping markers are not emitted.
func ToMarkdown(raw string) string {
	tokens, err := Parse(raw)
	if err != nil {
		return Placeholder(err)
	}
	return RenderMarkdown(tokens)
}

// RenderMarkdown builds the pipe table from tokens.
func RenderMarkdown(tokens []tags.Token) string {
	rows := [][]string{{}}
	current := 0
	for _, tok := range tokens {
		switch {
		case tok.Tag == tags.NL:
			current++
			rows = append(rows, []string{})
		case tags.IsMarker(tok.Tag):
			// dropped
		default:
			rows[current] = append(rows[current], tok.Text)
		}
	}

	var sb strings.Builder
	writeRow := func(cells []string) {
		sb.WriteString("| ")
		sb.WriteString(strings.Join(cells, " | "))
		sb.WriteString(" |\n")
	}

	writeRow(rows[0])
	sep := make([]string, len(rows[0]))
	for i := range sep {
		sep[i] = "---"
	}
	writeRow(sep)

	for _, row := range rows[1:] {
		if len(row) > 0 {
			writeRow(row)
		}
	}

	return sb.String()
}
