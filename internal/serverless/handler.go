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

package serverless

import (
	"context"
	"encoding/base64"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/redpanda-data/slack-flow-bridge/internal/impl/slack"
	"github.com/redpanda-data/slack-flow-bridge/internal/log"
)

// Handler adapts API Gateway and Lambda function URL events to a Slack
// receiver. Both event formats share the headers, body and isBase64Encoded
// fields, which is all that is needed.
type Handler struct {
	rcv *slack.Receiver
	log log.Modular
}

// NewHandler creates a serverless handler around rcv. A single Handler serves
// every invocation of the function.
func NewHandler(rcv *slack.Receiver, logger log.Modular) *Handler {
	return &Handler{
		rcv: rcv,
		log: logger,
	}
}

// Handle processes a single Slack request. The Lambda runtime only returns the
// HTTP response once Handle returns, so the acknowledgement of a command is
// recorded and becomes the response after the command handler completes.
//
// Failures are reported as HTTP statuses rather than invocation errors, which
// API Gateway would otherwise turn into a 502.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	body := []byte(req.Body)
	if req.IsBase64Encoded {
		var err error
		if body, err = base64.StdEncoding.DecodeString(req.Body); err != nil {
			h.log.Warnf("Failed to decode request body: %v", err)
			return response(http.StatusBadRequest), nil
		}
	}

	out, err := h.rcv.Dispatch(ctx, requestHeader(req), body, func(context.Context) error {
		return nil
	})
	if err != nil {
		h.log.Debugf("Dispatch finished with status %v: %v", out.Status, err)
	}
	return response(out.Status), nil
}

func requestHeader(req events.APIGatewayProxyRequest) http.Header {
	header := http.Header{}
	for k, vs := range req.MultiValueHeaders {
		for _, v := range vs {
			header.Add(k, v)
		}
	}
	for k, v := range req.Headers {
		if header.Get(k) == "" {
			header.Set(k, v)
		}
	}
	return header
}

func response(status int) events.APIGatewayProxyResponse {
	resp := events.APIGatewayProxyResponse{StatusCode: status}
	if status != http.StatusOK {
		resp.Body = http.StatusText(status)
	}
	return resp
}
