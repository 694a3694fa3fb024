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

package doctags

import (
	"regexp"
	"sort"
	"strings"

	"github.com/antflydb/smoldocling/pkg/smoldocling/lib/tags"
)

// DocTagOpen marks output in DocTags format
const DocTagOpen = "<doctag>"

// Element patterns. Group 1 is the location payload, group 2 the content.
// Element patterns do not cross newlines; list bodies may.
var (
	headerPatterns = [...]*regexp.Regexp{
		regexp.MustCompile(`<section_header_level_1>.*?<loc_(.*?)>(.*?)</section_header_level_1>`),
		regexp.MustCompile(`<section_header_level_2>.*?<loc_(.*?)>(.*?)</section_header_level_2>`),
		regexp.MustCompile(`<section_header_level_3>.*?<loc_(.*?)>(.*?)</section_header_level_3>`),
	}
	textPattern      = regexp.MustCompile(`<text>.*?<loc_(.*?)>(.*?)</text>`)
	listPattern      = regexp.MustCompile(`<unordered_list>((?s:.*?))</unordered_list>`)
	listItemPattern  = regexp.MustCompile(`<list_item>.*?<loc_(.*?)>(.*?)</list_item>`)
	tablePattern     = regexp.MustCompile(`<table>.*?<loc_(.*?)>(.*?)</table>`)
	tableRowPattern  = regexp.MustCompile(`<table_row>.*?<loc_(.*?)>(.*?)</table_row>`)
	tableCellPattern = regexp.MustCompile(`<table_cell>.*?<loc_(.*?)>(.*?)</table_cell>`)
)

// positioned pairs a section with the byte offset of its match
type positioned struct {
	pos     int
	section Section
}

// Parse cleans raw model output and extracts its sections, using the
// DocTags extractor when the <doctag> wrapper is present and the legacy
// reconstruction otherwise.
func Parse(raw string) Document {
	return parseCleaned(tags.CleanOutput(raw))
}

func parseCleaned(cleaned string) Document {
	if strings.Contains(cleaned, DocTagOpen) {
		return Document{Sections: Extract(cleaned)}
	}
	return Document{Sections: ExtractLegacy(cleaned)}
}

// Extract runs one pattern per element kind over s and returns every match
// in source order. Lists and tables are matched as a whole and their items,
// rows and cells are matched inside the enclosing match.
func Extract(s string) []Section {
	var found []positioned

	for i, re := range headerPatterns {
		for _, m := range re.FindAllStringSubmatchIndex(s, -1) {
			found = append(found, positioned{m[0], Header{
				Level:    i + 1,
				Content:  tags.StripNumericLocations(s[m[4]:m[5]]),
				Location: loc(s[m[2]:m[3]]),
			}})
		}
	}

	for _, m := range textPattern.FindAllStringSubmatchIndex(s, -1) {
		found = append(found, positioned{m[0], Text{
			Content:  tags.StripNumericLocations(s[m[4]:m[5]]),
			Location: loc(s[m[2]:m[3]]),
		}})
	}

	for _, m := range listPattern.FindAllStringSubmatchIndex(s, -1) {
		list := List{Items: []Item{}}
		for _, im := range listItemPattern.FindAllStringSubmatch(s[m[2]:m[3]], -1) {
			list.Items = append(list.Items, Item{
				Content:  tags.StripNumericLocations(im[2]),
				Location: loc(im[1]),
			})
		}
		found = append(found, positioned{m[0], list})
	}

	for _, m := range tablePattern.FindAllStringSubmatchIndex(s, -1) {
		table := Table{
			Content:  tags.StripNumericLocations(s[m[4]:m[5]]),
			Location: loc(s[m[2]:m[3]]),
			Rows:     []Row{},
		}
		for _, rm := range tableRowPattern.FindAllString(s[m[0]:m[1]], -1) {
			row := Row{Cells: []Cell{}}
			for _, cm := range tableCellPattern.FindAllStringSubmatch(rm, -1) {
				row.Cells = append(row.Cells, Cell{
					Content:  tags.StripNumericLocations(cm[2]),
					Location: loc(cm[1]),
				})
			}
			table.Rows = append(table.Rows, row)
		}
		found = append(found, positioned{m[0], table})
	}

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].pos < found[j].pos
	})

	sections := make([]Section, len(found))
	for i, f := range found {
		sections[i] = f.section
	}
	return sections
}
