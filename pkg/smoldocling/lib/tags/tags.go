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

// Package tags provides the shared tokenizer and cleanup helpers for the
// tag-delimited markup (OTSL and DocTags) emitted by SmolDocling-style
// vision2seq models.
package tags

import (
	"regexp"
	"strings"
)

// OTSL cell and structure tokens
const (
	// FCel is a plain content cell
	FCel = "<fcel>"
	// ECel is an empty content cell
	ECel = "<ecel>"
	// CHed is a column header cell
	CHed = "<ched>"
	// RHed is a row header cell
	RHed = "<rhed>"
	// SRow is a section row header cell
	SRow = "<srow>"
	// LCel continues the cell to its left
	LCel = "<lcel>"
	// UCel continues the cell above it
	UCel = "<ucel>"
	// XCel continues the cell above and to the left
	XCel = "<xcel>"
	// NL ends the current row
	NL = "<nl>"
	// Unknown is emitted by chart conversions for cells the model could not classify
	Unknown = "<unknown>"
)

// Meta tokens the model (or the chat template) wraps around its output.
const (
	EndOfUtterance = "<end_of_utterance>"
	Pad            = "<pad>"
	AssistantRole  = "Assistant:"
	UserRole       = "User:"
	// DoclingPrompt is the instruction sent for full page conversion; some
	// runtimes echo it back at the start of the output.
	DoclingPrompt = "Convert this page to docling."
)

var (
	// Tags are anything between angle brackets
	tagPattern = regexp.MustCompile(`<[^>]+>`)
	// Location tags such as <loc_123>; non-greedy so adjacent tags are kept apart
	locPattern = regexp.MustCompile(`<loc_.*?>`)
	// Numeric location tags only, as used inside DocTags element content
	numericLocPattern = regexp.MustCompile(`<loc_\d+>`)
	metaPattern       = regexp.MustCompile(`<end_of_utterance>|Assistant:|<pad>|User:|Convert this page to docling\.`)
)

// Token is one tag together with the text that immediately follows it.
type Token struct {
	Tag  string
	Text string
}

// Tokenize splits an OTSL body into (tag, text) pairs.
//
// The input is split on tags, keeping both the tags and the text runs between
// them; whitespace-only runs are dropped. A tag consumes the next run as its
// text when that run is not itself a tag. A text run with no tag in front of it
// is treated as a plain cell.
//
// Example:
//
//	Tokenize("<fcel>A<lcel><nl>B")
//	// [{<fcel> A} {<lcel> } {<nl> } {<fcel> B}]
func Tokenize(s string) []Token {
	parts := splitKeepTags(s)
	tokens := make([]Token, 0, len(parts))

	for i := 0; i < len(parts); i++ {
		part := parts[i]
		if !strings.HasPrefix(part, "<") {
			tokens = append(tokens, Token{Tag: FCel, Text: strings.TrimSpace(part)})
			continue
		}

		text := ""
		if i+1 < len(parts) && !strings.HasPrefix(parts[i+1], "<") {
			text = strings.TrimSpace(parts[i+1])
		}
		tokens = append(tokens, Token{Tag: part, Text: text})
		if text != "" {
			i++
		}
	}

	return tokens
}

// splitKeepTags returns the tags and the text between them in source order,
// skipping parts that are empty or whitespace-only.
func splitKeepTags(s string) []string {
	var parts []string
	add := func(p string) {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}

	pos := 0
	for _, loc := range tagPattern.FindAllStringIndex(s, -1) {
		add(s[pos:loc[0]])
		add(s[loc[0]:loc[1]])
		pos = loc[1]
	}
	add(s[pos:])

	return parts
}

// CleanOutput removes chat-template and padding tokens from raw model output
// and trims the result.
func CleanOutput(raw string) string {
	return strings.TrimSpace(metaPattern.ReplaceAllString(raw, ""))
}

// StripLocations removes every <loc_...> tag.
func StripLocations(s string) string {
	return locPattern.ReplaceAllString(s, "")
}

// StripNumericLocations removes <loc_N> tags with purely numeric payloads.
func StripNumericLocations(s string) string {
	return numericLocPattern.ReplaceAllString(s, "")
}

// StripTags removes every tag, leaving only text.
func StripTags(s string) string {
	return tagPattern.ReplaceAllString(s, "")
}

// IsMarker reports whether tag is a merge continuation token.
func IsMarker(tag string) bool {
	return tag == LCel || tag == UCel || tag == XCel
}

// IsHeader reports whether tag marks a header-role cell.
func IsHeader(tag string) bool {
	return tag == CHed || tag == RHed || tag == SRow
}
