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
	"sync"
	"sync/atomic"

	"github.com/slack-go/slack"
)

// AckFunc sends the content free acknowledgement of a command.
type AckFunc func(ctx context.Context) error

// RespondFunc sends a follow-up message for a command.
type RespondFunc func(ctx context.Context, text string) error

// CommandRequest is a single slash command invocation along with the means to
// acknowledge it and respond to it.
type CommandRequest struct {
	slack.SlashCommand

	ack     AckFunc
	ackOnce sync.Once
	ackErr  error
	acked   atomic.Bool

	respond RespondFunc
}

// NewCommandRequest wraps a parsed slash command.
func NewCommandRequest(cmd slack.SlashCommand, ack AckFunc, respond RespondFunc) *CommandRequest {
	return &CommandRequest{
		SlashCommand: cmd,
		ack:          ack,
		respond:      respond,
	}
}

// Ack acknowledges the command. Only the first call reaches Slack, subsequent
// calls return the result of the first.
func (c *CommandRequest) Ack(ctx context.Context) error {
	c.ackOnce.Do(func() {
		if c.ack != nil {
			c.ackErr = c.ack(ctx)
		}
		if c.ackErr == nil {
			c.acked.Store(true)
		}
	})
	return c.ackErr
}

// Acked returns true once the command has been successfully acknowledged.
func (c *CommandRequest) Acked() bool {
	return c.acked.Load()
}

// Respond sends text back to the channel the command was issued from.
func (c *CommandRequest) Respond(ctx context.Context, text string) error {
	return c.respond(ctx, text)
}

// CommandHandler processes a slash command. Handlers are expected to Ack the
// request promptly, before doing any slow work.
type CommandHandler func(ctx context.Context, req *CommandRequest) error
