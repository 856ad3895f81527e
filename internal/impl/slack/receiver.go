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
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/slack-go/slack"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/redpanda-data/slack-flow-bridge/internal/log"
	"github.com/redpanda-data/slack-flow-bridge/internal/tracing"
)

var (
	// ErrInvalidSignature is returned when a request fails signing secret
	// verification.
	ErrInvalidSignature = errors.New("invalid slack request signature")

	// ErrUnknownCommand is returned for slash commands without a handler.
	ErrUnknownCommand = errors.New("no handler registered for slash command")
)

// Outcome describes the HTTP response owed to Slack for a dispatched request.
// When Acked is true the acknowledgement has already been delivered through
// the AckFunc and Status is always 200.
type Outcome struct {
	Status int
	Acked  bool
}

// Receiver verifies inbound Slack slash command requests and dispatches them
// to registered handlers.
type Receiver struct {
	conf   ReceiverConfig
	log    log.Modular
	api    *slack.Client
	tracer trace.TracerProvider

	handlersMut sync.RWMutex
	handlers    map[string]CommandHandler
}

// NewReceiver creates a receiver with no registered commands.
func NewReceiver(conf ReceiverConfig, logger log.Modular) *Receiver {
	return &Receiver{
		conf:     conf,
		log:      logger,
		api:      conf.client(),
		tracer:   conf.TracerProvider,
		handlers: map[string]CommandHandler{},
	}
}

// Command registers fn as the handler of the slash command name, e.g.
// "/question".
func (r *Receiver) Command(name string, fn CommandHandler) {
	r.handlersMut.Lock()
	r.handlers[name] = fn
	r.handlersMut.Unlock()
}

func (r *Receiver) handler(name string) (CommandHandler, bool) {
	r.handlersMut.RLock()
	defer r.handlersMut.RUnlock()
	fn, exists := r.handlers[name]
	return fn, exists
}

// Dispatch verifies a raw request and runs the handler of the command it
// carries. The ack function delivers the acknowledgement to Slack and is
// called at most once, at the moment the handler acknowledges.
//
// An error returned by a handler after it acknowledged is logged and returned
// alongside an acknowledged outcome. Slack has already been told the command
// was received, so the failure only surfaces as a missing follow-up message.
func (r *Receiver) Dispatch(ctx context.Context, header http.Header, body []byte, ack AckFunc) (out Outcome, err error) {
	ctx, span := tracing.StartSpan(ctx, r.tracer, "slack_command")
	defer func() {
		span.SetAttributes(attribute.Int("http.status_code", out.Status))
		tracing.EndSpan(span, err)
	}()

	if err = r.verify(header, body); err != nil {
		r.log.Warnf("Rejecting slack request: %v", err)
		return Outcome{Status: http.StatusUnauthorized}, err
	}

	form, err := url.ParseQuery(string(body))
	if err != nil {
		return Outcome{Status: http.StatusBadRequest}, fmt.Errorf("failed to parse slash command: %w", err)
	}
	if form.Get("ssl_check") == "1" {
		return Outcome{Status: http.StatusOK}, nil
	}

	cmd, err := parseSlashCommand(ctx, body)
	if err != nil {
		return Outcome{Status: http.StatusBadRequest}, fmt.Errorf("failed to parse slash command: %w", err)
	}
	span.SetAttributes(
		attribute.String("slack.command", cmd.Command),
		attribute.String("slack.team_id", cmd.TeamID),
		attribute.String("slack.channel_id", cmd.ChannelID),
	)

	fn, exists := r.handler(cmd.Command)
	if !exists {
		r.log.Warnf("Received unregistered slash command: %v", cmd.Command)
		return Outcome{Status: http.StatusNotFound}, fmt.Errorf("%w: %v", ErrUnknownCommand, cmd.Command)
	}

	cLog := r.log.With("command", cmd.Command, "channel_id", cmd.ChannelID, "team_id", cmd.TeamID)
	req := NewCommandRequest(cmd, ack, r.respondFunc(cmd))
	if err = fn(ctx, req); err != nil {
		if req.Acked() {
			cLog.Errorf("Command failed after acknowledgement, no response will be sent: %v", err)
			return Outcome{Status: http.StatusOK, Acked: true}, err
		}
		cLog.Errorf("Command failed before acknowledgement: %v", err)
		return Outcome{Status: http.StatusInternalServerError}, err
	}
	if !req.Acked() {
		cLog.Warnln("Command handler returned without acknowledging")
	}
	return Outcome{Status: http.StatusOK, Acked: req.Acked()}, nil
}

func (r *Receiver) verify(header http.Header, body []byte) error {
	sv, err := slack.NewSecretsVerifier(header, r.conf.SigningSecret)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if _, err := sv.Write(body); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if err := sv.Ensure(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return nil
}

func parseSlashCommand(ctx context.Context, body []byte) (slack.SlashCommand, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/", bytes.NewReader(body))
	if err != nil {
		return slack.SlashCommand{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return slack.SlashCommandParse(req)
}
