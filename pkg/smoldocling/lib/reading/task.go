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

// ErrUnknownTask is returned when a task name or prompt is not recognised
var ErrUnknownTask = errors.New("unknown task")

// SmolDocling task prompts.
// The model is instruction-tuned on these exact sentences; the output
// grammar (DocTags, OTSL, LaTeX or code) depends on which one was sent.

// Task represents a SmolDocling prompt
type Task string

const (
	// TaskFullPage converts a whole page to DocTags
	TaskFullPage Task = "Convert this page to docling."
	// TaskChart converts a chart to an OTSL table
	TaskChart Task = "Convert chart to OTSL."
	// TaskFormula converts a formula to LaTeX
	TaskFormula Task = "Convert formula to LaTeX."
	// TaskTable converts a table to OTSL
	TaskTable Task = "Convert table to OTSL."
	// TaskCode transcribes a code listing
	TaskCode Task = "Convert code to text."
	// TaskHeaders finds section headers
	TaskHeaders Task = "Find all section headers on the page."
	// TaskFooter finds footer elements
	TaskFooter Task = "Detect footer elements on the page."
	// TaskFigures finds figures and their captions
	TaskFigures Task = "Identify figures and their captions."
	// TaskLists finds list elements
	TaskLists Task = "Extract and organize list elements."
)

type taskInfo struct {
	name  string
	label string
}

// allTasks is in display order
var allTasks = []Task{
	TaskFullPage,
	TaskChart,
	TaskFormula,
	TaskTable,
	TaskCode,
	TaskHeaders,
	TaskFooter,
	TaskFigures,
	TaskLists,
}

var taskInfos = map[Task]taskInfo{
	TaskFullPage: {"page", "Full Page Conversion"},
	TaskChart:    {"chart", "Extract Chart"},
	TaskFormula:  {"formula", "Extract Formula"},
	TaskTable:    {"table", "Extract Table"},
	TaskCode:     {"code", "Extract Code"},
	TaskHeaders:  {"headers", "Extract Headers"},
	TaskFooter:   {"footer", "Extract Footer"},
	TaskFigures:  {"figures", "Extract Figures & Captions"},
	TaskLists:    {"lists", "Extract Lists"},
}

// Tasks returns every known task in display order.
func Tasks() []Task {
	out := make([]Task, len(allTasks))
	copy(out, allTasks)
	return out
}

// String returns the prompt sent to the model
func (t Task) String() string {
	return string(t)
}

// Name returns the short name used on the command line and in the API
func (t Task) Name() string {
	return taskInfos[t].name
}

// Label returns the human readable task name
func (t Task) Label() string {
	return taskInfos[t].label
}

// IsOTSL reports whether the task produces an OTSL table.
func (t Task) IsOTSL() bool {
	return strings.Contains(string(t), "to OTSL")
}

// TaskFromString accepts either a short name ("table") or the full prompt.
// The empty string selects full page conversion.
func TaskFromString(s string) (Task, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return TaskFullPage, nil
	}
	for _, t := range allTasks {
		if s == string(t) || strings.EqualFold(s, taskInfos[t].name) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownTask, s)
}
