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
	"strings"

	"github.com/antflydb/smoldocling/pkg/smoldocling/lib/tags"
)

// rewrite is one step of the Markdown substitution cascade
type rewrite struct {
	pattern *regexp.Regexp
	repl    string
}

// markdownRewrites run in order; later steps see the output of earlier ones.
var markdownRewrites = []rewrite{
	{regexp.MustCompile(`<section_header_level_1>.*?<loc_.*?>(.*?)</section_header_level_1>`), "\n## ${1}\n"},
	{regexp.MustCompile(`<section_header_level_2>.*?<loc_.*?>(.*?)</section_header_level_2>`), "\n### ${1}\n"},
	{regexp.MustCompile(`<section_header_level_3>.*?<loc_.*?>(.*?)</section_header_level_3>`), "\n#### ${1}\n"},

	{regexp.MustCompile(`<text>.*?<loc_.*?>(.*?)</text>`), "${1}\n"},

	{regexp.MustCompile(`<unordered_list>\s*`), "\n"},
	{regexp.MustCompile(`\s*</unordered_list>`), "\n"},
	{regexp.MustCompile(`<list_item>.*?<loc_.*?>(.*?)</list_item>`), "- ${1}\n"},

	{regexp.MustCompile(`<table>.*?<loc_.*?>(.*?)</table>`), "\n${1}\n"},
	{regexp.MustCompile(`<table_row>.*?<loc_.*?>(.*?)</table_row>`), "| ${1} |\n"},
	{regexp.MustCompile(`<table_cell>.*?<loc_.*?>(.*?)</table_cell>`), " ${1} |"},

	{regexp.MustCompile(`<[^>]+>`), ""},
	{regexp.MustCompile(`\n{3,}`), "\n\n"},
}

var (
	emailPattern      = regexp.MustCompile(`([a-zA-Z0-9._%+-]+)\s*@\s*([a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`)
	multiSpacePattern = regexp.MustCompile(`\s{2,}`)
)

// ToMarkdown converts raw model output into Markdown.
//
// DocTags output is rewritten element by element (headers become ##/###/####
// lines, list items "- " bullets, table rows pipe-delimited lines), remaining
// tags are dropped and runs of three or more newlines are collapsed to one
// blank line. Legacy output has its position tuples removed and whitespace
// runs turned into paragraph breaks.
func ToMarkdown(raw string) string {
	cleaned := tags.CleanOutput(raw)

	if !strings.Contains(cleaned, DocTagOpen) {
		return legacyToMarkdown(cleaned)
	}

	md := cleaned
	for _, rw := range markdownRewrites {
		md = rw.pattern.ReplaceAllString(md, rw.repl)
	}
	return strings.TrimSpace(md)
}

func legacyToMarkdown(cleaned string) string {
	md := legacyTuplePattern.ReplaceAllString(cleaned, "")
	// Rejoin addresses whose local part and domain were separated when the
	// tuples between them were removed.
	md = emailPattern.ReplaceAllString(md, "${1}@${2}")
	return multiSpacePattern.ReplaceAllString(md, "\n\n")
}
