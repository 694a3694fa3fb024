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
	"context"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/antflydb/antfly-go/libaf/healthserver"
	"github.com/antflydb/smoldocling/pkg/smoldocling"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the smoldocling server",
	Long:  `Start the smoldocling API server for rendering model output over HTTP.`,
	RunE:  runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	// Run command flags
	runCmd.Flags().Int("health-port", 4200, "health/metrics server port")
	runCmd.Flags().String("api-url", smoldocling.DefaultApiUrl, "address the API listens on")
	runCmd.Flags().Int("max-pages", smoldocling.DefaultMaxPages, "maximum pages per render request")
	runCmd.Flags().Duration("cache-ttl", smoldocling.RenderCacheTTL, "how long rendered output stays cached")
	runCmd.Flags().String("default-task", "", "task used when a request names none (default full page)")
	runCmd.Flags().String("default-format", "", "format used when a request names none (default markdown)")
	runCmd.Flags().Int("max-concurrent-requests", 0, "render requests served at once (default GOMAXPROCS)")
	runCmd.Flags().Int("max-queue-size", 0, "requests allowed to wait for a slot (0 = unlimited)")
	runCmd.Flags().Duration("request-timeout", 0, "how long a request may wait for a slot (0 = no limit)")

	mustBindPFlag("health_port", runCmd.Flags().Lookup("health-port"))
	mustBindPFlag("api_url", runCmd.Flags().Lookup("api-url"))
	mustBindPFlag("max_pages", runCmd.Flags().Lookup("max-pages"))
	mustBindPFlag("cache_ttl", runCmd.Flags().Lookup("cache-ttl"))
	mustBindPFlag("default_task", runCmd.Flags().Lookup("default-task"))
	mustBindPFlag("default_format", runCmd.Flags().Lookup("default-format"))
	mustBindPFlag("max_concurrent_requests", runCmd.Flags().Lookup("max-concurrent-requests"))
	mustBindPFlag("max_queue_size", runCmd.Flags().Lookup("max-queue-size"))
	mustBindPFlag("request_timeout", runCmd.Flags().Lookup("request-timeout"))
}

// serverConfig builds the service config from viper/env
func serverConfig() smoldocling.Config {
	return smoldocling.Config{
		ApiUrl:                viper.GetString("api_url"),
		CacheTTL:              viper.GetDuration("cache_ttl"),
		MaxPages:              viper.GetInt("max_pages"),
		DefaultTask:           viper.GetString("default_task"),
		DefaultFormat:         viper.GetString("default_format"),
		MaxConcurrentRequests: viper.GetInt("max_concurrent_requests"),
		MaxQueueSize:          viper.GetInt("max_queue_size"),
		RequestTimeout:        viper.GetDuration("request_timeout"),
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := newLogger()
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("Running as smoldocling")

	// Track readiness state
	ready := &atomic.Bool{}
	readyC := make(chan struct{})

	// Start health server with readiness checker
	healthserver.Start(logger, viper.GetInt("health_port"), ready.Load)

	go func() {
		<-readyC
		ready.Store(true)
		logger.Info("SmolDocling is ready")
	}()

	smoldocling.RunAsServer(ctx, logger, serverConfig(), readyC)
	return nil
}
