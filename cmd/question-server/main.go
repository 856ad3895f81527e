// Copyright 2024 Redpanda Data, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redpanda-data/slack-flow-bridge/internal/config"
	"github.com/redpanda-data/slack-flow-bridge/internal/httpserver"
	"github.com/redpanda-data/slack-flow-bridge/internal/impl/aws"
	"github.com/redpanda-data/slack-flow-bridge/internal/log"
	"github.com/redpanda-data/slack-flow-bridge/internal/metrics"
	"github.com/redpanda-data/slack-flow-bridge/internal/question"
)

func main() {
	conf, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := log.New(os.Stderr, conf.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logger initialisation error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prom := metrics.NewPrometheus()
	srv := httpserver.New(conf.HTTP.Address,
		question.NewReceiver(conf, logger, aws.WithMetrics(prom)),
		logger,
		httpserver.WithMetrics(prom.HandlerFunc()),
	)
	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Errorf("Server error: %v", err)
		os.Exit(1)
	}
	logger.Infoln("Server shut down")
}
