// Copyright 2025 Antfly, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with the given stdin and returns stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRenderCommand(t *testing.T) {
	out, err := execute(t, "<otsl><fcel>A<fcel>B<nl><fcel>C<fcel>D<nl></otsl>",
		"render", "--task", "table", "--format", "markdown")
	require.NoError(t, err)
	assert.Equal(t, "| A | B |\n| --- | --- |\n| C | D |\n", out)
}

func TestRenderCommand_UnknownFormat(t *testing.T) {
	_, err := execute(t, "x", "render", "--task", "page", "--format", "pdf")
	assert.Error(t, err)
}

func TestTasksCommand_JSON(t *testing.T) {
	out, err := execute(t, "", "tasks", "--json")
	require.NoError(t, err)

	var tasks []taskJSON
	require.NoError(t, json.Unmarshal([]byte(out), &tasks))
	require.Len(t, tasks, 9)
	assert.Equal(t, "page", tasks[0].Name)
	assert.True(t, tasks[3].OTSL)
}

func TestValidateCommand(t *testing.T) {
	out, err := execute(t, `{"sections":[{"type":"header","level":1,"content":"Title"}]}`, "validate")
	require.NoError(t, err)
	assert.Equal(t, "ok   -\n", out)

	_, err = execute(t, `{"sections":[{"type":"header","content":"Title"}]}`, "validate")
	assert.Error(t, err)
}

func TestServerConfig_FromEnv(t *testing.T) {
	t.Setenv("SMOLDOCLING_MAX_PAGES", "12")
	t.Setenv("SMOLDOCLING_REQUEST_TIMEOUT", "3s")
	t.Setenv("SMOLDOCLING_DEFAULT_FORMAT", "html")
	require.NoError(t, initConfig())

	cfg := serverConfig()
	assert.Equal(t, 12, cfg.MaxPages)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "html", cfg.DefaultFormat)
	assert.Equal(t, viper.GetDuration("cache_ttl"), cfg.CacheTTL)
}
