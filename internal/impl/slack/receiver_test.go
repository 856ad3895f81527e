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
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redpanda-data/slack-flow-bridge/internal/impl/slack/slacktest"
	"github.com/redpanda-data/slack-flow-bridge/internal/log"
)

const testSecret = "8f742231b10e8888abcd99yyyzzz85a5"

func testReceiver(t *testing.T, responseType string) (*Receiver, *slacktest.Server) {
	t.Helper()

	srv := slacktest.NewServer(t)
	r := NewReceiver(ReceiverConfig{
		SigningSecret: testSecret,
		BotToken:      "xoxb-test",
		ResponseType:  responseType,
		APIURL:        srv.APIURL(),
	}, log.Noop())
	return r, srv
}

func TestDispatchCommand(t *testing.T) {
	r, srv := testReceiver(t, "ephemeral")

	var events []string
	r.Command("/question", func(ctx context.Context, req *CommandRequest) error {
		events = append(events, "handler:"+req.Text)
		require.NoError(t, req.Ack(ctx))
		assert.Equal(t, "C0123", req.ChannelID)
		assert.Equal(t, "T0123", req.TeamID)
		return nil
	})

	body := slacktest.CommandBody("/question", "what is redpanda?", "C0123", srv.ResponseURL())
	out, err := r.Dispatch(context.Background(), slacktest.SignedHeader(testSecret, time.Now(), body), body, func(context.Context) error {
		events = append(events, "ack")
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, Outcome{Status: http.StatusOK, Acked: true}, out)
	assert.Equal(t, []string{"handler:what is redpanda?", "ack"}, events)
}

func TestDispatchBadSignature(t *testing.T) {
	r, srv := testReceiver(t, "ephemeral")

	called := false
	r.Command("/question", func(context.Context, *CommandRequest) error {
		called = true
		return nil
	})

	body := slacktest.CommandBody("/question", "hi", "C0123", srv.ResponseURL())

	for name, header := range map[string]http.Header{
		"wrong secret": slacktest.SignedHeader("not the secret", time.Now(), body),
		"stale":        slacktest.SignedHeader(testSecret, time.Now().Add(-10*time.Minute), body),
		"missing":      {},
	} {
		out, err := r.Dispatch(context.Background(), header, body, nil)
		assert.ErrorIs(t, err, ErrInvalidSignature, name)
		assert.Equal(t, http.StatusUnauthorized, out.Status, name)
		assert.False(t, out.Acked, name)
	}
	assert.False(t, called)
}

func TestDispatchTamperedBody(t *testing.T) {
	r, srv := testReceiver(t, "ephemeral")

	body := slacktest.CommandBody("/question", "hi", "C0123", srv.ResponseURL())
	header := slacktest.SignedHeader(testSecret, time.Now(), body)

	tampered := slacktest.CommandBody("/question", "something else", "C0123", srv.ResponseURL())
	out, err := r.Dispatch(context.Background(), header, tampered, nil)
	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.Equal(t, http.StatusUnauthorized, out.Status)
}

func TestDispatchSSLCheck(t *testing.T) {
	r, _ := testReceiver(t, "ephemeral")

	body := []byte("ssl_check=1&token=abc")
	out, err := r.Dispatch(context.Background(), slacktest.SignedHeader(testSecret, time.Now(), body), body, nil)
	require.NoError(t, err)
	assert.Equal(t, Outcome{Status: http.StatusOK}, out)
}

func TestDispatchMalformedBody(t *testing.T) {
	r, _ := testReceiver(t, "ephemeral")

	body := []byte("command=%zz")
	out, err := r.Dispatch(context.Background(), slacktest.SignedHeader(testSecret, time.Now(), body), body, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, out.Status)
}

func TestDispatchUnknownCommand(t *testing.T) {
	r, srv := testReceiver(t, "ephemeral")
	r.Command("/question", func(context.Context, *CommandRequest) error {
		t.Error("unexpected handler call")
		return nil
	})

	body := slacktest.CommandBody("/weather", "hi", "C0123", srv.ResponseURL())
	out, err := r.Dispatch(context.Background(), slacktest.SignedHeader(testSecret, time.Now(), body), body, nil)
	assert.ErrorIs(t, err, ErrUnknownCommand)
	assert.Equal(t, http.StatusNotFound, out.Status)
}

func TestDispatchHandlerErrors(t *testing.T) {
	r, srv := testReceiver(t, "ephemeral")

	errFlow := errors.New("flow failed")
	r.Command("/after", func(ctx context.Context, req *CommandRequest) error {
		require.NoError(t, req.Ack(ctx))
		return errFlow
	})
	r.Command("/before", func(context.Context, *CommandRequest) error {
		return errFlow
	})

	body := slacktest.CommandBody("/after", "hi", "C0123", srv.ResponseURL())
	out, err := r.Dispatch(context.Background(), slacktest.SignedHeader(testSecret, time.Now(), body), body, nil)
	assert.ErrorIs(t, err, errFlow)
	assert.Equal(t, Outcome{Status: http.StatusOK, Acked: true}, out)

	body = slacktest.CommandBody("/before", "hi", "C0123", srv.ResponseURL())
	out, err = r.Dispatch(context.Background(), slacktest.SignedHeader(testSecret, time.Now(), body), body, nil)
	assert.ErrorIs(t, err, errFlow)
	assert.Equal(t, Outcome{Status: http.StatusInternalServerError}, out)

	assert.Empty(t, srv.Messages())
}

func TestDispatchAckFailure(t *testing.T) {
	r, srv := testReceiver(t, "ephemeral")

	errAck := errors.New("client went away")
	r.Command("/question", func(ctx context.Context, req *CommandRequest) error {
		return req.Ack(ctx)
	})

	body := slacktest.CommandBody("/question", "hi", "C0123", srv.ResponseURL())
	out, err := r.Dispatch(context.Background(), slacktest.SignedHeader(testSecret, time.Now(), body), body, func(context.Context) error {
		return errAck
	})
	assert.ErrorIs(t, err, errAck)
	assert.Equal(t, Outcome{Status: http.StatusInternalServerError}, out)
}

func TestCommandRequestAckOnce(t *testing.T) {
	calls := 0
	req := NewCommandRequest(slack.SlashCommand{Command: "/question"}, func(context.Context) error {
		calls++
		return nil
	}, nil)

	assert.False(t, req.Acked())
	require.NoError(t, req.Ack(context.Background()))
	require.NoError(t, req.Ack(context.Background()))
	assert.True(t, req.Acked())
	assert.Equal(t, 1, calls)
}
