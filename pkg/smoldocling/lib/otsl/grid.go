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

import "github.com/antflydb/smoldocling/pkg/smoldocling/lib/tags"

// GridCell is one token placed at a row/column position
type GridCell struct {
	Text        string
	Tag         string
	IsColSpan   bool
	IsRowSpan   bool
	IsCrossSpan bool
}

// IsMarker reports whether the cell continues another cell's span
func (c GridCell) IsMarker() bool {
	return c.IsColSpan || c.IsRowSpan || c.IsCrossSpan
}

// Grid is a table as rows of cells. Rows may have different lengths when the
// model omits trailing markers.
type Grid [][]GridCell

// ResolvedCell is a grid position after span resolution.
type ResolvedCell struct {
	Text    string
	Tag     string
	RowSpan int
	ColSpan int
	// Skip is set for continuation markers folded into another cell's span.
	// Skipped cells produce no output element.
	Skip bool
	// Orphan is set for continuation markers that no content cell claims.
	// They are rendered as ordinary cells.
	Orphan bool
}

// BuildGrid arranges tokens into rows, starting a new row at every <nl>.
func BuildGrid(tokens []tags.Token) Grid {
	grid := Grid{{}}
	row := 0

	for _, tok := range tokens {
		if tok.Tag == tags.NL {
			row++
			grid = append(grid, []GridCell{})
			continue
		}
		grid[row] = append(grid[row], GridCell{
			Text:        tok.Text,
			Tag:         tok.Tag,
			IsColSpan:   tok.Tag == tags.LCel,
			IsRowSpan:   tok.Tag == tags.UCel,
			IsCrossSpan: tok.Tag == tags.XCel,
		})
	}

	return grid
}

// Resolve computes row and column spans for every content cell.
//
// Column spans count the run of <lcel>/<xcel> cells to the right in the same
// row; row spans count the run of <ucel>/<xcel> cells below in the same
// column, ending early at a row too short to reach that column. The two
// scans are independent. Every marker inside the resulting rectangle is
// consumed by its anchor, so a block of <xcel> closes a rectangular merge.
// Markers left unclaimed are orphans and are kept as their own cells.
func Resolve(grid Grid) [][]ResolvedCell {
	out := make([][]ResolvedCell, len(grid))
	for r, row := range grid {
		out[r] = make([]ResolvedCell, len(row))
		for c, cell := range row {
			out[r][c] = ResolvedCell{
				Text:    cell.Text,
				Tag:     cell.Tag,
				RowSpan: 1,
				ColSpan: 1,
				Skip:    cell.IsMarker(),
			}
		}
	}

	// Column spans
	for r, row := range grid {
		for c := range row {
			if out[r][c].Skip {
				continue
			}
			span := 1
			for next := c + 1; next < len(row); next++ {
				if !row[next].IsColSpan && !row[next].IsCrossSpan {
					break
				}
				span++
			}
			out[r][c].ColSpan = span
		}
	}

	// Row spans
	for r, row := range grid {
		for c := range row {
			if out[r][c].Skip {
				continue
			}
			span := 1
			for next := r + 1; next < len(grid); next++ {
				if c >= len(grid[next]) {
					break
				}
				if !grid[next][c].IsRowSpan && !grid[next][c].IsCrossSpan {
					break
				}
				span++
			}
			out[r][c].RowSpan = span
		}
	}

	claimed := make([][]bool, len(grid))
	for r, row := range grid {
		claimed[r] = make([]bool, len(row))
	}
	for r, row := range out {
		for c, cell := range row {
			if cell.Skip {
				continue
			}
			for rr := r; rr < r+cell.RowSpan && rr < len(out); rr++ {
				for cc := c; cc < c+cell.ColSpan && cc < len(out[rr]); cc++ {
					if out[rr][cc].Skip {
						claimed[rr][cc] = true
					}
				}
			}
		}
	}

	for r, row := range out {
		for c := range row {
			if row[c].Skip && !claimed[r][c] {
				row[c].Skip = false
				row[c].Orphan = true
				row[c].Text = ""
			}
		}
	}

	return out
}
