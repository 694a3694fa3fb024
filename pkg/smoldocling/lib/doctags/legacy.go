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
	"strconv"
	"strings"

	"github.com/antflydb/smoldocling/pkg/smoldocling/lib/tags"
)

// Legacy output marks positions with five numbers, each followed by '>'
var (
	legacyTuplePattern = regexp.MustCompile(`(\d+)>(\d+)>(\d+)>(\d+)>(\d+)>`)
	digitsPattern      = regexp.MustCompile(`^\d+$`)
)

// legacyTupleGroups is the number of captured numbers per tuple
const legacyTupleGroups = 5

// ExtractLegacy rebuilds text sections from output that lacks the <doctag>
// wrapper.
//
// The string is split on position tuples, keeping the five captured numbers
// as parts of their own. Each remaining text fragment at split index i is
// attributed to tuple (i-1)/5 and ordered by that tuple's second number.
// This is a positional heuristic, not a grammar: fragments whose index has
// no tuple fall back to their own index as position. The fragment before the
// first tuple is never emitted.
func ExtractLegacy(s string) []Section {
	matches := legacyTuplePattern.FindAllStringSubmatchIndex(s, -1)

	positions := make([]int, len(matches))
	for i, m := range matches {
		n, err := strconv.Atoi(s[m[4]:m[5]])
		if err != nil {
			n = -1
		}
		positions[i] = n
	}

	parts := splitKeepGroups(s, matches)

	type fragment struct {
		content string
		pos     int
	}
	var fragments []fragment
	for i := 1; i < len(parts); i++ {
		part := parts[i]
		if strings.TrimSpace(part) == "" || digitsPattern.MatchString(part) {
			continue
		}
		pos := i
		if idx := (i - 1) / legacyTupleGroups; idx < len(positions) && positions[idx] >= 0 {
			pos = positions[idx]
		}
		fragments = append(fragments, fragment{
			content: tags.StripNumericLocations(strings.TrimSpace(part)),
			pos:     pos,
		})
	}

	sort.SliceStable(fragments, func(i, j int) bool {
		return fragments[i].pos < fragments[j].pos
	})

	sections := make([]Section, len(fragments))
	for i, f := range fragments {
		sections[i] = Text{Content: f.content}
	}
	return sections
}

// splitKeepGroups splits s at every match and keeps the captured groups
// between the surrounding text runs: text, g1..g5, text, g1..g5, ..., text.
func splitKeepGroups(s string, matches [][]int) []string {
	parts := make([]string, 0, len(matches)*(legacyTupleGroups+1)+1)
	pos := 0
	for _, m := range matches {
		parts = append(parts, s[pos:m[0]])
		for g := 1; g <= legacyTupleGroups; g++ {
			parts = append(parts, s[m[2*g]:m[2*g+1]])
		}
		pos = m[1]
	}
	return append(parts, s[pos:])
}
