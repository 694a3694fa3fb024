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
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownFormat is returned when an output format is not recognised
var ErrUnknownFormat = errors.New("unknown format")

// ErrBinaryFormat is returned when a binary format is requested as text
var ErrBinaryFormat = errors.New("format is binary")

// Format is an output rendering of model output
type Format string

const (
	// FormatMarkdown is the per-task Markdown rendering
	FormatMarkdown Format = "markdown"
	// FormatJSON is the DocTags section tree
	FormatJSON Format = "json"
	// FormatRaw is the model output unchanged
	FormatRaw Format = "raw"
	// FormatHTML is the display preview
	FormatHTML Format = "html"
	// FormatXLSX is an OTSL table exported as a workbook
	FormatXLSX Format = "xlsx"
)

// Formats returns every supported format.
func Formats() []Format {
	return []Format{FormatMarkdown, FormatJSON, FormatRaw, FormatHTML, FormatXLSX}
}

// ParseFormat parses a format name case-insensitively. The empty string
// selects Markdown.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", "md":
		return FormatMarkdown, nil
	case FormatMarkdown, FormatJSON, FormatRaw, FormatHTML, FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, s)
	}
}

// ContentType returns the MIME type of rendered output
func (f Format) ContentType() string {
	switch f {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatJSON:
		return "application/json"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Extension returns the file extension for saved output, without the dot
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return "md"
	case FormatJSON:
		return "json"
	case FormatHTML:
		return "html"
	case FormatXLSX:
		return "xlsx"
	default:
		return "txt"
	}
}

// IsBinary reports whether the format cannot be returned as a string.
func (f Format) IsBinary() bool {
	return f == FormatXLSX
}
