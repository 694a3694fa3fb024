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
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/antflydb/antfly-go/libaf/logging"
	"github.com/antflydb/smoldocling/pkg/smoldocling"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Build metadata, set from main
var (
	Version   = "dev"
	GitCommit = "none"
	BuildTime = "unknown"
)

const envPrefix = "SMOLDOCLING"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "smoldocling",
	Short: "Render SmolDocling model output",
	Long: `smoldocling converts the raw output of the SmolDocling vision-language model
(DocTags, OTSL tables, LaTeX formulas and tagged code) into Markdown, JSON,
HTML or Excel workbooks.

Configuration is read from flags, SMOLDOCLING_* environment variables and an
optional smoldocling.yaml in the working directory or ~/.smoldocling.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

func init() {
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.style", "terminal")
	viper.SetDefault("api_url", smoldocling.DefaultApiUrl)
	viper.SetDefault("cache_ttl", smoldocling.RenderCacheTTL)
	viper.SetDefault("max_pages", smoldocling.DefaultMaxPages)
	viper.SetDefault("default_task", "")
	viper.SetDefault("default_format", "")
	viper.SetDefault("max_concurrent_requests", 0)
	viper.SetDefault("max_queue_size", 0)
	viper.SetDefault("request_timeout", 0)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./smoldocling.yaml or ~/.smoldocling/smoldocling.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-style", "terminal", "log style (terminal, json)")
	mustBindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	mustBindPFlag("log.style", rootCmd.PersistentFlags().Lookup("log-style"))
}

func initConfig() error {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("smoldocling")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home + "/.smoldocling")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	return nil
}

func newLogger() *zap.Logger {
	return logging.NewLogger(&logging.Config{
		Level: logging.Level(viper.GetString("log.level")),
		Style: logging.Style(viper.GetString("log.style")),
	})
}

func mustBindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("binding flag %q: %v", key, err))
	}
}

// Execute runs the root command
func Execute() {
	rootCmd.Version = Version
	smoldocling.Version = Version
	smoldocling.GitCommit = GitCommit
	smoldocling.BuildTime = BuildTime

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
