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
	"fmt"

	"github.com/antflydb/smoldocling/pkg/smoldocling/lib/tags"
	"github.com/bytedance/sonic"
)

// ParseErrorMessage is reported when a page cannot be structured
const ParseErrorMessage = "Failed to parse DocTags"

// jsonAPI keeps field order and leaves <, > and & unescaped so tag text
// survives verbatim in rawContent.
var jsonAPI = sonic.ConfigDefault

// marshalDocument is replaced in tests to exercise the failure paths
var marshalDocument = MarshalDocument

type wireDocument struct {
	Sections []wireSection `json:"sections"`
}

type wireSection struct {
	Type     Kind    `json:"type"`
	Level    int     `json:"level,omitempty"`
	Content  string  `json:"content"`
	Location *string `json:"location,omitempty"`
	Items    *[]Item `json:"items,omitempty"`
	Rows     *[]Row  `json:"rows,omitempty"`
}

type wireError struct {
	Error      string `json:"error"`
	RawContent string `json:"rawContent"`
}

// ToJSON converts raw model output into an indented JSON document of the
// form {"sections": [...]}. If structuring fails for any reason, including
// a panic, it returns {"error": ..., "rawContent": ...} instead, so the
// result is always valid JSON.
func ToJSON(raw string) (out string) {
	cleaned := tags.CleanOutput(raw)
	defer func() {
		if r := recover(); r != nil {
			out = errorJSON(cleaned)
		}
	}()

	data, err := marshalDocument(parseCleaned(cleaned))
	if err != nil {
		return errorJSON(cleaned)
	}
	return string(data)
}

// MarshalDocument encodes doc with two-space indentation.
func MarshalDocument(doc Document) ([]byte, error) {
	wire := wireDocument{Sections: make([]wireSection, 0, len(doc.Sections))}
	for _, s := range doc.Sections {
		ws, err := toWire(s)
		if err != nil {
			return nil, err
		}
		wire.Sections = append(wire.Sections, ws)
	}
	return jsonAPI.MarshalIndent(wire, "", "  ")
}

func toWire(s Section) (wireSection, error) {
	switch s := s.(type) {
	case Header:
		return wireSection{Type: KindHeader, Level: s.Level, Content: s.Content, Location: s.Location}, nil
	case Text:
		return wireSection{Type: KindText, Content: s.Content, Location: s.Location}, nil
	case List:
		items := s.Items
		if items == nil {
			items = []Item{}
		}
		return wireSection{Type: KindList, Items: &items}, nil
	case Table:
		rows := s.Rows
		if rows == nil {
			rows = []Row{}
		}
		return wireSection{Type: KindTable, Content: s.Content, Location: s.Location, Rows: &rows}, nil
	default:
		return wireSection{}, fmt.Errorf("unknown section type %T", s)
	}
}

func errorJSON(cleaned string) string {
	data, err := jsonAPI.MarshalIndent(wireError{Error: ParseErrorMessage, RawContent: cleaned}, "", "  ")
	if err != nil {
		return `{"error": "` + ParseErrorMessage + `", "rawContent": ""}`
	}
	return string(data)
}
