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

package lambda

import (
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/redpanda-data/slack-flow-bridge/internal/config"
	"github.com/redpanda-data/slack-flow-bridge/internal/log"
	"github.com/redpanda-data/slack-flow-bridge/internal/question"
	"github.com/redpanda-data/slack-flow-bridge/internal/serverless"
)

// Run executes the Slack command handler as an AWS Lambda function.
// Configuration is read from the environment once, before the first event is
// handled.
func Run() {
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

	handler := serverless.NewHandler(question.NewReceiver(conf, logger), logger)

	logger.Infof("Listening for %v commands", conf.Slack.Command)
	lambda.StartWithOptions(handler.Handle, lambda.WithEnableSIGTERM(func() {
		logger.Infoln("Received SIGTERM, shutting down")
	}))
}
