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
	"bytes"
	"strings"
	"testing"

	"github.com/antflydb/smoldocling/pkg/smoldocling/lib/tags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/net/html"
)

// htmlCell is a cell read back from rendered HTML
type htmlCell struct {
	Element string
	Text    string
	RowSpan string
	ColSpan string
}

// parseTable reads the rows of the first table in s
func parseTable(t *testing.T, s string) [][]htmlCell {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(s))
	require.NoError(t, err)

	var rows [][]htmlCell
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			var row []htmlCell
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type != html.ElementNode || (c.Data != "td" && c.Data != "th") {
					continue
				}
				cell := htmlCell{Element: c.Data}
				for _, a := range c.Attr {
					switch a.Key {
					case "rowspan":
						cell.RowSpan = a.Val
					case "colspan":
						cell.ColSpan = a.Val
					}
				}
				if c.FirstChild != nil {
					cell.Text = c.FirstChild.Data
				}
				row = append(row, cell)
			}
			rows = append(rows, row)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return rows
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		err      error
		expected string
	}{
		{"empty", "", ErrNoData, MsgNoData},
		{"no block", "<fcel>A<fcel>B", ErrNotFound, MsgNotFound},
		{"unclosed block", "<otsl><fcel>A", ErrNotFound, MsgNotFound},
		{"mismatched close", "<otsl><fcel>A</chart>", ErrNotFound, MsgNotFound},
		{"empty block", "<otsl> <loc_1><loc_2> </otsl>", ErrNoTokens, MsgNoTokens},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			require.ErrorIs(t, err, tt.err)
			assert.Equal(t, tt.expected, Placeholder(err))
			assert.Equal(t, "<p>"+tt.expected+"</p>", ToHTML(tt.input))
			assert.Equal(t, tt.expected, ToMarkdown(tt.input))
		})
	}
}

func TestParse_FindsChartAndSkipsUnclosed(t *testing.T) {
	tokens, err := Parse("<otsl><fcel>broken <chart><loc_1><fcel>X<fcel>1</chart>")
	require.NoError(t, err)
	assert.Equal(t, []tags.Token{{Tag: tags.FCel, Text: "X"}, {Tag: tags.FCel, Text: "1"}}, tokens)
}

func TestToHTML_SimpleGrid(t *testing.T) {
	out := ToHTML("<otsl><fcel>A<fcel>B<nl><fcel>C<fcel>D</otsl>")
	assert.Equal(t,
		`<table class="rendered-table"><tr><th>A</th><td>B</td></tr><tr><th>C</th><td>D</td></tr></table>`,
		out)
	assert.NotContains(t, out, "rowspan")
	assert.NotContains(t, out, "colspan")
}

func TestToMarkdown_SimpleGrid(t *testing.T) {
	out := ToMarkdown("<otsl><fcel>A<fcel>B<nl><fcel>C<fcel>D</otsl>")
	assert.Equal(t, "| A | B |\n| --- | --- |\n| C | D |\n", out)
}

func TestToHTML_ColSpan(t *testing.T) {
	rows := parseTable(t, ToHTML("<otsl><fcel>A<lcel><nl><fcel>B<fcel>C</otsl>"))
	require.Len(t, rows, 2)

	require.Len(t, rows[0], 1)
	assert.Equal(t, "A", rows[0][0].Text)
	assert.Equal(t, "2", rows[0][0].ColSpan)
	assert.Empty(t, rows[0][0].RowSpan)

	require.Len(t, rows[1], 2)
	assert.Equal(t, "B", rows[1][0].Text)
	assert.Equal(t, "C", rows[1][1].Text)
	assert.Equal(t, "td", rows[1][1].Element)
}

func TestToHTML_RowSpanAndCross(t *testing.T) {
	input := "<otsl><ched>Region<ched>Q1<lcel><nl>" +
		"<ucel><ched>Jan<ched>Feb<nl>" +
		"<fcel>North<fcel>1<fcel>2</otsl>"
	out := ToHTML(input)
	assert.Equal(t,
		`<table class="rendered-table">`+
			`<tr><th rowspan="2">Region</th><th colspan="2">Q1</th></tr>`+
			`<tr><th>Jan</th><th>Feb</th></tr>`+
			`<tr><th>North</th><td>1</td><td>2</td></tr>`+
			`</table>`,
		out)
}

func TestToHTML_RectangularCrossBlock(t *testing.T) {
	out := ToHTML("<otsl><fcel>Big<lcel><fcel>R<nl><ucel><xcel><fcel>S</otsl>")
	assert.Equal(t,
		`<table class="rendered-table">`+
			`<tr><th rowspan="2" colspan="2">Big</th><td>R</td></tr>`+
			`<tr><td>S</td></tr>`+
			`</table>`,
		out)
}

func TestToHTML_OrphanMarkers(t *testing.T) {
	// The <ucel> in row 1 sits below a column row 0 does not have, and the
	// leading <lcel> has nothing to its left.
	rows := parseTable(t, ToHTML("<otsl><fcel>A<fcel>B<nl><fcel>C<fcel>D<ucel><nl><lcel><fcel>E</otsl>"))
	require.Len(t, rows, 3)

	require.Len(t, rows[1], 3)
	assert.Equal(t, "td", rows[1][2].Element)
	assert.Equal(t, "\u00a0", rows[1][2].Text)

	require.Len(t, rows[2], 2)
	assert.Equal(t, "td", rows[2][0].Element)
	assert.Equal(t, "\u00a0", rows[2][0].Text)
	assert.Equal(t, "E", rows[2][1].Text)
}

func TestToHTML_OrphanMarkersDropText(t *testing.T) {
	out := ToHTML("<otsl><fcel>A<nl><fcel>B<ucel>junk</otsl>")
	assert.Equal(t,
		`<table class="rendered-table"><tr><th>A</th></tr><tr><th>B</th><td>&nbsp;</td></tr></table>`,
		out)

	out = ToHTML("<otsl><lcel>X<fcel>B</otsl>")
	assert.Equal(t, `<table class="rendered-table"><tr><td>&nbsp;</td><td>B</td></tr></table>`, out)

	cells := Resolve(BuildGrid(tags.Tokenize("<fcel>A<nl><fcel>B<ucel>junk")))
	require.Len(t, cells[1], 2)
	assert.True(t, cells[1][1].Orphan)
	assert.Empty(t, cells[1][1].Text)
}

func TestToHTML_EscapesAndEmptyCells(t *testing.T) {
	out := ToHTML(`<otsl><fcel><ecel><fcel>a & b "c" 'd'<nl><fcel>x</otsl>`)
	assert.Contains(t, out, "<th>&nbsp;</th>")
	assert.Contains(t, out, "<td>&nbsp;</td>")
	assert.Contains(t, out, "a &amp; b &quot;c&quot; &#039;d&#039;")
}

func TestToHTML_JaggedRowStopsRowSpan(t *testing.T) {
	grid := BuildGrid(tags.Tokenize("<fcel>A<fcel>B<nl><fcel>C<nl><ucel><ucel>"))
	cells := Resolve(grid)

	assert.Equal(t, 1, cells[0][1].RowSpan, "row 1 is too short to continue column 1")
	assert.Equal(t, 2, cells[1][0].RowSpan)
	assert.True(t, cells[2][0].Skip)
	assert.True(t, cells[2][1].Orphan)
}

func TestToMarkdown_DropsMarkers(t *testing.T) {
	out := ToMarkdown("<otsl><ched>H1<lcel><ched>H2<nl><fcel>a<fcel>b<fcel>c<nl><ucel><xcel><nl><fcel>z</otsl>")
	assert.Equal(t, "| H1 | H2 |\n| --- | --- |\n| a | b | c |\n| z |\n", out)
}

func TestToMarkdown_KeepsRawText(t *testing.T) {
	out := ToMarkdown("<otsl><fcel>a & b<fcel><tag></otsl>")
	assert.True(t, strings.HasPrefix(out, "| a & b | "))
}

func TestBuildGrid(t *testing.T) {
	grid := BuildGrid(tags.Tokenize("<fcel>A<lcel><nl><ucel><xcel><fcel>B"))
	require.Len(t, grid, 2)
	assert.Len(t, grid[0], 2)
	assert.Len(t, grid[1], 3)
	assert.True(t, grid[0][1].IsColSpan)
	assert.True(t, grid[1][0].IsRowSpan)
	assert.True(t, grid[1][1].IsCrossSpan)
	assert.False(t, grid[1][2].IsMarker())

	assert.Equal(t, Grid{{}}, BuildGrid(nil))
}

func TestResolve_SpanAccounting(t *testing.T) {
	inputs := []string{
		"<fcel>A<fcel>B<nl><fcel>C<fcel>D",
		"<fcel>A<lcel><lcel><nl><fcel>B<fcel>C<fcel>D",
		"<ched>A<lcel><ched>B<nl><ucel><xcel><fcel>C<nl><fcel>D<fcel>E<fcel>F",
		"<fcel>A<fcel>B<fcel>C<nl><ucel><fcel>D<ucel><nl><ucel><lcel><ucel>",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			grid := BuildGrid(tags.Tokenize(input))
			cells := Resolve(grid)

			total := 0
			for _, row := range grid {
				total += len(row)
			}

			covered := 0
			skipped := 0
			for _, row := range cells {
				for _, cell := range row {
					if cell.Skip {
						skipped++
						continue
					}
					covered += cell.RowSpan * cell.ColSpan
				}
			}
			// Every skipped position lies inside exactly one emitted
			// cell's rectangle, and every rectangle covers only itself
			// plus skipped positions.
			assert.Equal(t, total, covered)
			assert.Equal(t, total-skipped, countEmitted(cells))
		})
	}
}

func countEmitted(cells [][]ResolvedCell) int {
	n := 0
	for _, row := range cells {
		for _, cell := range row {
			if !cell.Skip {
				n++
			}
		}
	}
	return n
}

func TestPlainCellsAgreeAcrossRenderers(t *testing.T) {
	input := "<otsl><fcel>Name<fcel>Qty<nl><fcel>Apples & pears<fcel>3<nl><fcel>Figs<fcel>10</otsl>"

	rows := parseTable(t, ToHTML(input))
	var htmlTexts []string
	for _, row := range rows {
		for _, cell := range row {
			htmlTexts = append(htmlTexts, cell.Text)
		}
	}

	var mdTexts []string
	for i, line := range strings.Split(strings.TrimSuffix(ToMarkdown(input), "\n"), "\n") {
		if i == 1 {
			continue // separator
		}
		line = strings.TrimSuffix(strings.TrimPrefix(line, "| "), " |")
		mdTexts = append(mdTexts, strings.Split(line, " | ")...)
	}

	assert.Equal(t, mdTexts, htmlTexts)
}

func TestRenderersAreIdempotent(t *testing.T) {
	input := "<otsl><ched>A<lcel><nl><fcel>1<fcel>2</otsl>"
	assert.Equal(t, ToHTML(input), ToHTML(input))
	assert.Equal(t, ToMarkdown(input), ToMarkdown(input))
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, "<otsl><ched>Region<ched>Q1<lcel><nl><ucel><fcel>Jan<fcel>Feb</otsl>"))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	v, err := f.GetCellValue(XLSXSheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Region", v)

	v, err = f.GetCellValue(XLSXSheet, "C2")
	require.NoError(t, err)
	assert.Equal(t, "Feb", v)

	merged, err := f.GetMergeCells(XLSXSheet)
	require.NoError(t, err)
	var ranges []string
	for _, m := range merged {
		ranges = append(ranges, m.GetStartAxis()+":"+m.GetEndAxis())
	}
	assert.ElementsMatch(t, []string{"A1:A2", "B1:C1"}, ranges)
}

func TestWriteXLSX_NoTable(t *testing.T) {
	var buf bytes.Buffer
	err := WriteXLSX(&buf, "no table here")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, buf.Len())
}
