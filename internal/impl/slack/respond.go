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

package slack

import (
	"context"
	"net/http"
	"time"

	"github.com/slack-go/slack"
	"go.opentelemetry.io/otel/trace"
)

// ReceiverConfig contains the credentials and endpoints used by a Receiver.
type ReceiverConfig struct {
	// SigningSecret verifies that requests originate from Slack.
	SigningSecret string

	// BotToken authenticates messages posted through the Web API.
	BotToken string

	// ResponseType is either "ephemeral" or "in_channel".
	ResponseType string

	// APIURL overrides the Slack Web API base URL, it must end with a slash.
	APIURL string

	HTTPClient     *http.Client
	TracerProvider trace.TracerProvider
}

func (c ReceiverConfig) client() *slack.Client {
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 5 * time.Second,
		}
	}
	opts := []slack.Option{slack.OptionHTTPClient(httpClient)}
	if c.APIURL != "" {
		opts = append(opts, slack.OptionAPIURL(c.APIURL))
	}
	return slack.New(c.BotToken, opts...)
}

func (c ReceiverConfig) ephemeral() bool {
	return c.ResponseType == "" || c.ResponseType == slack.ResponseTypeEphemeral
}

// respondFunc replies through the response URL of a command when it has one,
// and otherwise posts to the originating channel with the bot token.
func (r *Receiver) respondFunc(cmd slack.SlashCommand) RespondFunc {
	return func(ctx context.Context, text string) error {
		opts := []slack.MsgOption{slack.MsgOptionText(text, false)}

		if cmd.ResponseURL != "" {
			responseType := slack.ResponseTypeInChannel
			if r.conf.ephemeral() {
				responseType = slack.ResponseTypeEphemeral
			}
			opts = append(opts, slack.MsgOptionResponseURL(cmd.ResponseURL, responseType))
			_, _, err := r.api.PostMessageContext(ctx, cmd.ChannelID, opts...)
			return err
		}

		if r.conf.ephemeral() {
			_, err := r.api.PostEphemeralContext(ctx, cmd.ChannelID, cmd.UserID, opts...)
			return err
		}
		_, _, err := r.api.PostMessageContext(ctx, cmd.ChannelID, opts...)
		return err
	}
}
