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

// Package otsl reconstructs tables from OTSL (Optimised Table Structure
// Language) output and renders them as HTML, Markdown or XLSX.
//
// OTSL describes a table as a flat token stream: content cells (<fcel>,
// <ched>, <rhed>, <srow>), merge continuations (<lcel> left, <ucel> up,
// <xcel> both) and row breaks (<nl>). Chart conversions use the same
// notation wrapped in <chart> instead of <otsl>.
package otsl

import (
	"errors"
	"regexp"
	"strings"

	"github.com/antflydb/smoldocling/pkg/smoldocling/lib/tags"
)

// Placeholder messages returned instead of a table. The HTML renderer wraps
// them in a paragraph; the Markdown renderer returns them as-is.
const (
	MsgNoData   = "No table data available."
	MsgNotFound = "Could not find OTSL tags in the output."
	MsgNoTokens = "Could not parse any tokens from OTSL."
)

var (
	// ErrNoData is returned for empty input
	ErrNoData = errors.New("otsl: no table data")
	// ErrNotFound is returned when no <otsl> or <chart> block is present
	ErrNotFound = errors.New("otsl: no otsl or chart block")
	// ErrNoTokens is returned when the block holds no tokens
	ErrNoTokens = errors.New("otsl: no tokens in block")
)

var blockOpenPattern = regexp.MustCompile(`<(otsl|chart)>`)

// Placeholder returns the user-facing message for a parse error.
func Placeholder(err error) string {
	switch {
	case errors.Is(err, ErrNoData):
		return MsgNoData
	case errors.Is(err, ErrNotFound):
		return MsgNotFound
	case errors.Is(err, ErrNoTokens):
		return MsgNoTokens
	default:
		return MsgNoData
	}
}

// Parse finds the first <otsl>…</otsl> or <chart>…</chart> block in raw
// model output, strips its location tags and tokenizes it.
func Parse(raw string) ([]tags.Token, error) {
	if raw == "" {
		return nil, ErrNoData
	}

	body, ok := findBlock(raw)
	if !ok {
		return nil, ErrNotFound
	}

	tokens := tags.Tokenize(strings.TrimSpace(tags.StripLocations(body)))
	if len(tokens) == 0 {
		return nil, ErrNoTokens
	}
	return tokens, nil
}

// findBlock returns the body of the leftmost block whose opening tag has a
// matching closing tag after it.
func findBlock(raw string) (string, bool) {
	for _, m := range blockOpenPattern.FindAllStringSubmatchIndex(raw, -1) {
		name := raw[m[2]:m[3]]
		bodyStart := m[1]
		if end := strings.Index(raw[bodyStart:], "</"+name+">"); end >= 0 {
			return raw[bodyStart : bodyStart+end], true
		}
	}
	return "", false
}
