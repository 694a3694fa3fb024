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

package reading

import (
	"regexp"
	"strings"

	"github.com/antflydb/smoldocling/pkg/smoldocling/lib/tags"
)

// FormulaNotFound is returned by ExtractFormula when no formula block is present
const FormulaNotFound = "Could not parse formula from model output."

// DefaultCodeLanguage is used when code output carries no language tag
const DefaultCodeLanguage = "text"

var (
	formulaPattern = regexp.MustCompile(`(?s)<formula>(.*?)</formula>`)
	// Code output announces its language as <_Python_>, <_C++_>, <_C#_>
	codeLangPattern   = regexp.MustCompile(`<_([A-Za-z0-9#+]+)_>`)
	closingTagPattern = regexp.MustCompile(`</.*?>`)
)

// ExtractFormula returns the LaTeX inside the first <formula> block with
// location tags removed.
//
// Example:
//
//	ExtractFormula("<formula><loc_1><loc_2>E=mc^2</formula>")
//	// "E=mc^2"
func ExtractFormula(raw string) string {
	if raw == "" {
		return ""
	}
	m := formulaPattern.FindStringSubmatch(raw)
	if m == nil || m[1] == "" {
		return FormulaNotFound
	}
	return strings.TrimSpace(tags.StripLocations(m[1]))
}

// Code is a transcribed code listing
type Code struct {
	Code     string
	Language string
}

// ExtractCode returns the code that follows the language tag, with closing
// tags and the end-of-utterance token removed. Output without a language
// tag is returned whole as DefaultCodeLanguage.
func ExtractCode(raw string) Code {
	if raw == "" {
		return Code{Language: DefaultCodeLanguage}
	}

	code, language := raw, DefaultCodeLanguage
	if m := codeLangPattern.FindStringSubmatchIndex(raw); m != nil {
		language = strings.ToLower(raw[m[2]:m[3]])
		code = strings.TrimSpace(raw[m[1]:])
	}

	code = strings.ReplaceAll(code, "</code>", "")
	code = strings.ReplaceAll(code, tags.EndOfUtterance, "")
	code = closingTagPattern.ReplaceAllString(code, "")

	return Code{Code: strings.TrimSpace(code), Language: language}
}

// Fence returns the code as a fenced Markdown block
func (c Code) Fence() string {
	return "```" + c.Language + "\n" + c.Code + "\n```"
}
