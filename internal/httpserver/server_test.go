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

package httpserver

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redpanda-data/slack-flow-bridge/internal/config"
	"github.com/redpanda-data/slack-flow-bridge/internal/impl/aws"
	"github.com/redpanda-data/slack-flow-bridge/internal/impl/slack/slacktest"
	"github.com/redpanda-data/slack-flow-bridge/internal/log"
	"github.com/redpanda-data/slack-flow-bridge/internal/metrics"
	"github.com/redpanda-data/slack-flow-bridge/internal/question"
)

const testSecret = "4f1c2b9d7a"

type blockingStream struct {
	events chan types.FlowResponseStream
}

func (s *blockingStream) Events() <-chan types.FlowResponseStream { return s.events }
func (s *blockingStream) Close() error                            { return nil }
func (s *blockingStream) Err() error                              { return nil }

func testServer(t *testing.T, opener aws.StreamOpener) *httptest.Server {
	t.Helper()

	conf := config.New()
	conf.Slack.SigningSecret = testSecret
	conf.Slack.BotToken = "xoxb-test"
	conf.Slack.ResponseType = "in_channel"
	conf.Flow.Identifier = "FLOW123"
	conf.Flow.AliasIdentifier = "ALIAS456"

	rcv := question.NewReceiver(conf, log.Noop(), aws.WithStreamOpener(opener))
	srv := httptest.NewServer(New("127.0.0.1:0", rcv, log.Noop()).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url string, header http.Header, body []byte) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header = header

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestAckBeforeFlowCompletes(t *testing.T) {
	slackSrv := slacktest.NewServer(t)

	events := make(chan types.FlowResponseStream, 1)
	opened := make(chan struct{})
	srv := testServer(t, func(context.Context, string, *bedrockagentruntime.InvokeFlowInput) (bedrockagentruntime.FlowResponseStreamReader, error) {
		close(opened)
		return &blockingStream{events: events}, nil
	})

	body := slacktest.CommandBody("/question", "take your time", "C0123", slackSrv.ResponseURL())
	resp := post(t, srv.URL+SlackPath, slacktest.SignedHeader(testSecret, time.Now(), body), body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Empty(t, respBody)

	select {
	case <-opened:
	case <-time.After(5 * time.Second):
		t.Fatal("flow was not invoked")
	}
	assert.Empty(t, slackSrv.Messages())

	events <- &types.FlowResponseStreamMemberFlowOutputEvent{Value: types.FlowOutputEvent{
		Content: &types.FlowOutputContentMemberDocument{Value: document.NewLazyDocument("Worth the wait")},
	}}
	close(events)

	assert.Eventually(t, func() bool {
		return len(slackSrv.Messages()) == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, []slacktest.Message{{
		Endpoint:     "response_url",
		Text:         "Worth the wait",
		ResponseType: "in_channel",
	}}, slackSrv.Messages())
}

func TestRejectsBadSignature(t *testing.T) {
	slackSrv := slacktest.NewServer(t)
	srv := testServer(t, func(context.Context, string, *bedrockagentruntime.InvokeFlowInput) (bedrockagentruntime.FlowResponseStreamReader, error) {
		t.Error("flow should not be invoked")
		return nil, nil
	})

	body := slacktest.CommandBody("/question", "hi", "C0123", slackSrv.ResponseURL())
	resp := post(t, srv.URL+SlackPath, slacktest.SignedHeader("nope", time.Now(), body), body)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUnknownCommand(t *testing.T) {
	slackSrv := slacktest.NewServer(t)
	srv := testServer(t, nil)

	body := slacktest.CommandBody("/weather", "hi", "C0123", slackSrv.ResponseURL())
	resp := post(t, srv.URL+SlackPath, slacktest.SignedHeader(testSecret, time.Now(), body), body)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRoutes(t *testing.T) {
	srv := testServer(t, nil)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Get(srv.URL + SlackPath)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp2.StatusCode)
}

func TestListenAndServeShutdown(t *testing.T) {
	s := New("127.0.0.1:0", nil, log.Noop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.ListenAndServe(ctx)
	}()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestMetricsRoute(t *testing.T) {
	slackSrv := slacktest.NewServer(t)

	conf := config.New()
	conf.Slack.SigningSecret = testSecret
	conf.Slack.BotToken = "xoxb-test"
	conf.Flow.Identifier = "FLOW123"
	conf.Flow.AliasIdentifier = "ALIAS456"

	prom := metrics.NewPrometheus()
	rcv := question.NewReceiver(conf, log.Noop(), aws.WithMetrics(prom), aws.WithStreamOpener(
		func(context.Context, string, *bedrockagentruntime.InvokeFlowInput) (bedrockagentruntime.FlowResponseStreamReader, error) {
			events := make(chan types.FlowResponseStream, 1)
			events <- &types.FlowResponseStreamMemberFlowOutputEvent{Value: types.FlowOutputEvent{
				Content: &types.FlowOutputContentMemberDocument{Value: document.NewLazyDocument("counted")},
			}}
			close(events)
			return &blockingStream{events: events}, nil
		},
	))
	srv := httptest.NewServer(New("127.0.0.1:0", rcv, log.Noop(), WithMetrics(prom.HandlerFunc())).Handler())
	t.Cleanup(srv.Close)

	body := slacktest.CommandBody("/question", "count me", "C0123", slackSrv.ResponseURL())
	resp := post(t, srv.URL+SlackPath, slacktest.SignedHeader(testSecret, time.Now(), body), body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Eventually(t, func() bool {
		return len(slackSrv.Messages()) == 1
	}, 5*time.Second, 10*time.Millisecond)

	mResp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer mResp.Body.Close()
	assert.Equal(t, http.StatusOK, mResp.StatusCode)

	mBody, err := io.ReadAll(mResp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(mBody), `slack_flow_bridge_flow_invocations_total{outcome="success"} 1`)
}

func TestMetricsRouteAbsentByDefault(t *testing.T) {
	srv := testServer(t, nil)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
