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
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// XLSXSheet is the sheet name used for exported tables
const XLSXSheet = "Table"

// WriteXLSX writes the OTSL table in raw model output to w as an XLSX
// workbook. Merged regions keep their spans; header cells are bold.
// Unparseable input returns one of the package's parse errors.
func WriteXLSX(w io.Writer, raw string) error {
	tokens, err := Parse(raw)
	if err != nil {
		return err
	}
	f, err := BuildWorkbook(Resolve(BuildGrid(tokens)))
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

// BuildWorkbook lays out a resolved grid on a single sheet. Grid positions
// map one-to-one onto sheet cells, so continuation markers become the
// covered part of a merged range.
func BuildWorkbook(cells [][]ResolvedCell) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", XLSXSheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("header style: %w", err)
	}

	for r, row := range cells {
		for c, cell := range row {
			if cell.Skip {
				continue
			}
			topLeft, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				_ = f.Close()
				return nil, err
			}
			if err := f.SetCellValue(XLSXSheet, topLeft, cell.Text); err != nil {
				_ = f.Close()
				return nil, fmt.Errorf("set %s: %w", topLeft, err)
			}

			bottomRight := topLeft
			if cell.RowSpan > 1 || cell.ColSpan > 1 {
				bottomRight, err = excelize.CoordinatesToCellName(c+cell.ColSpan, r+cell.RowSpan)
				if err != nil {
					_ = f.Close()
					return nil, err
				}
				if err := f.MergeCell(XLSXSheet, topLeft, bottomRight); err != nil {
					_ = f.Close()
					return nil, fmt.Errorf("merge %s:%s: %w", topLeft, bottomRight, err)
				}
			}

			if isHeaderCell(cell, c) {
				if err := f.SetCellStyle(XLSXSheet, topLeft, bottomRight, headerStyle); err != nil {
					_ = f.Close()
					return nil, fmt.Errorf("style %s: %w", topLeft, err)
				}
			}
		}
	}

	return f, nil
}
