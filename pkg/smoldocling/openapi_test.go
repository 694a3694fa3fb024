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

package smoldocling

import (
	"context"
	"testing"

	"github.com/antflydb/smoldocling/pkg/smoldocling/lib/reading"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOpenAPI(t *testing.T) {
	doc, err := LoadOpenAPI(context.Background())
	require.NoError(t, err)

	for _, path := range []string{"/render", "/tasks", "/version", "/openapi.json"} {
		assert.NotNil(t, doc.Paths.Find(path), path)
	}

	format := doc.Components.Schemas["Format"]
	require.NotNil(t, format)
	var formats []string
	for _, v := range format.Value.Enum {
		formats = append(formats, v.(string))
	}
	var want []string
	for _, f := range reading.Formats() {
		want = append(want, string(f))
	}
	assert.Equal(t, want, formats)
}
