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

// Package doctags converts DocTags page output into Markdown and into an
// ordered JSON section tree.
//
// A DocTags page is wrapped in <doctag> and holds typed regions
// (section_header_level_N, text, unordered_list/list_item,
// table/table_row/table_cell), each opened by a <loc_N> location tag.
// Output without the <doctag> wrapper is handled as the legacy raw format,
// where free text is interleaved with numeric N>N>N>N>N> position tuples.
package doctags

// Kind identifies a section variant in serialized output
type Kind string

const (
	KindHeader Kind = "header"
	KindText   Kind = "text"
	KindList   Kind = "unordered_list"
	KindTable  Kind = "table"
)

// Section is one element of a page in document order. It is implemented by
// Header, Text, List and Table only.
type Section interface {
	Kind() Kind
	section()
}

// Header is a section heading of level 1 to 3. Location is nil only for
// sections rebuilt from legacy output; an empty <loc_> tag gives "".
type Header struct {
	Level    int
	Content  string
	Location *string
}

// Text is a paragraph
type Text struct {
	Content  string
	Location *string
}

// List is an unordered list
type List struct {
	Items []Item
}

// Item is a list entry
type Item struct {
	Content  string  `json:"content"`
	Location *string `json:"location,omitempty"`
}

// Table is a DocTags table. Content keeps the table body with location tags
// removed; Rows holds the parsed cells.
type Table struct {
	Content  string
	Location *string
	Rows     []Row
}

// Row is a table row
type Row struct {
	Cells []Cell `json:"cells"`
}

// Cell is a table cell
type Cell struct {
	Content  string  `json:"content"`
	Location *string `json:"location,omitempty"`
}

func loc(s string) *string { return &s }

func (Header) Kind() Kind { return KindHeader }
func (Text) Kind() Kind   { return KindText }
func (List) Kind() Kind   { return KindList }
func (Table) Kind() Kind  { return KindTable }

func (Header) section() {}
func (Text) section()   {}
func (List) section()   {}
func (Table) section()  {}

// Document is the parsed page
type Document struct {
	Sections []Section
}

// Contents returns the content of every section in order. Lists contribute
// one entry per item and tables one entry per cell.
func (d Document) Contents() []string {
	var out []string
	for _, s := range d.Sections {
		switch s := s.(type) {
		case Header:
			out = append(out, s.Content)
		case Text:
			out = append(out, s.Content)
		case List:
			for _, item := range s.Items {
				out = append(out, item.Content)
			}
		case Table:
			for _, row := range s.Rows {
				for _, cell := range row.Cells {
					out = append(out, cell.Content)
				}
			}
		}
	}
	return out
}
