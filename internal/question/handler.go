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

// Package question implements the /question slash command, which answers the
// command text by running it through a Bedrock flow.
package question

import (
	"context"
	"fmt"

	"github.com/redpanda-data/slack-flow-bridge/internal/impl/aws"
	"github.com/redpanda-data/slack-flow-bridge/internal/impl/slack"
	"github.com/redpanda-data/slack-flow-bridge/internal/log"
)

// FlowInvoker runs a flow to completion.
type FlowInvoker interface {
	Invoke(ctx context.Context, params aws.FlowInvocationParameters) (*aws.FlowResult, error)
}

// Config selects the flow alias that answers questions.
type Config struct {
	FlowIdentifier      string
	FlowAliasIdentifier string
	Region              string
}

// Handler answers slash commands with the document produced by a flow.
type Handler struct {
	conf  Config
	flows FlowInvoker
	log   log.Modular
}

// NewHandler creates a Handler.
func NewHandler(conf Config, flows FlowInvoker, logger log.Modular) *Handler {
	return &Handler{
		conf:  conf,
		flows: flows,
		log:   logger,
	}
}

// Handle acknowledges the command, invokes the flow with the command text as
// its prompt and responds with the resulting document. Any error from the flow
// is returned as is, in which case no response is sent.
func (h *Handler) Handle(ctx context.Context, req *slack.CommandRequest) error {
	if err := req.Ack(ctx); err != nil {
		return fmt.Errorf("failed to acknowledge command: %w", err)
	}

	params := aws.FlowInvocationParameters{
		FlowIdentifier:      h.conf.FlowIdentifier,
		FlowAliasIdentifier: h.conf.FlowAliasIdentifier,
		Prompt:              req.Text,
		Region:              h.conf.Region,
	}.WithDefaults()

	h.log.Debugf("Invoking flow %v (alias %v) for command %v", params.FlowIdentifier, params.FlowAliasIdentifier, req.Command)

	res, err := h.flows.Invoke(ctx, params)
	if err != nil {
		return err
	}

	doc, err := res.Document()
	if err != nil {
		return err
	}
	if reason := res.CompletionReason(); reason != "" {
		h.log.Debugf("Flow completed with reason %v", reason)
	}
	return req.Respond(ctx, doc)
}
