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

package question

import (
	"github.com/redpanda-data/slack-flow-bridge/internal/config"
	"github.com/redpanda-data/slack-flow-bridge/internal/impl/aws"
	"github.com/redpanda-data/slack-flow-bridge/internal/impl/slack"
	"github.com/redpanda-data/slack-flow-bridge/internal/log"
)

// NewReceiver builds a Slack receiver with the question command registered
// under the configured command name.
func NewReceiver(conf config.Config, logger log.Modular, flowOpts ...aws.FlowClientOpt) *slack.Receiver {
	creds := conf.Flow.Credentials
	flows := aws.NewFlowClient(aws.SessionConfig{
		Endpoint: conf.Flow.Endpoint,
		Credentials: aws.SessionCredentials{
			Profile:        creds.Profile,
			ID:             creds.ID,
			Secret:         creds.Secret,
			Token:          creds.Token,
			Role:           creds.Role,
			RoleExternalID: creds.RoleExternalID,
		},
	}, logger.With("component", "flow_client"), flowOpts...)

	rcv := slack.NewReceiver(slack.ReceiverConfig{
		SigningSecret: conf.Slack.SigningSecret,
		BotToken:      conf.Slack.BotToken,
		ResponseType:  conf.Slack.ResponseType,
	}, logger.With("component", "slack_receiver"))

	h := NewHandler(Config{
		FlowIdentifier:      conf.Flow.Identifier,
		FlowAliasIdentifier: conf.Flow.AliasIdentifier,
		Region:              conf.Flow.Region,
	}, flows, logger.With("component", "question"))

	rcv.Command(conf.Slack.Command, h.Handle)
	return rcv
}
