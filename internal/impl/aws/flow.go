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

package aws

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
	"github.com/aws/smithy-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/redpanda-data/slack-flow-bridge/internal/log"
	"github.com/redpanda-data/slack-flow-bridge/internal/tracing"
)

// The flow service expects prompts on the output named "document" of the
// node named "FlowInputNode".
const (
	FlowInputNodeName       = "FlowInputNode"
	FlowInputNodeOutputName = "document"
)

// Defaults applied to FlowInvocationParameters.
const (
	DefaultPrompt = "Hi, how are you?"
	DefaultRegion = "eu-central-1"
)

// FlowInvocationParameters identifies a flow alias and the prompt to run
// through it.
type FlowInvocationParameters struct {
	FlowIdentifier      string
	FlowAliasIdentifier string
	Prompt              string
	Region              string
}

// WithDefaults returns a copy of p with an empty prompt or region replaced by
// its default.
func (p FlowInvocationParameters) WithDefaults() FlowInvocationParameters {
	if p.Prompt == "" {
		p.Prompt = DefaultPrompt
	}
	if p.Region == "" {
		p.Region = DefaultRegion
	}
	return p
}

// Input builds the InvokeFlow request for p.
func (p FlowInvocationParameters) Input() *bedrockagentruntime.InvokeFlowInput {
	return &bedrockagentruntime.InvokeFlowInput{
		FlowIdentifier:      aws.String(p.FlowIdentifier),
		FlowAliasIdentifier: aws.String(p.FlowAliasIdentifier),
		Inputs: []types.FlowInput{
			{
				Content: &types.FlowInputContentMemberDocument{
					Value: document.NewLazyDocument(p.Prompt),
				},
				NodeName:       aws.String(FlowInputNodeName),
				NodeOutputName: aws.String(FlowInputNodeOutputName),
			},
		},
	}
}

// StreamOpener starts an InvokeFlow call in the given region and returns its
// response stream.
type StreamOpener func(ctx context.Context, region string, in *bedrockagentruntime.InvokeFlowInput) (bedrockagentruntime.FlowResponseStreamReader, error)

// FlowClientOpt customises a FlowClient.
type FlowClientOpt func(*FlowClient)

// WithStreamOpener replaces the function used to open flow streams, which by
// default calls Bedrock Agent Runtime.
func WithStreamOpener(o StreamOpener) FlowClientOpt {
	return func(c *FlowClient) {
		c.open = o
	}
}

// WithTracerProvider sets the provider used for invocation spans.
func WithTracerProvider(prov trace.TracerProvider) FlowClientOpt {
	return func(c *FlowClient) {
		c.tracer = prov
	}
}

// FlowMetrics records the outcome and duration of flow invocations.
type FlowMetrics interface {
	FlowInvoked(outcome string, took time.Duration)
}

// Outcomes reported to FlowMetrics.
const (
	FlowOutcomeSuccess = "success"
	FlowOutcomeError   = "error"
)

// WithMetrics sets the sink for invocation metrics.
func WithMetrics(m FlowMetrics) FlowClientOpt {
	return func(c *FlowClient) {
		c.metrics = m
	}
}

// FlowClient invokes Bedrock flows and folds their streamed events into a
// single FlowResult.
type FlowClient struct {
	session SessionConfig
	log     log.Modular
	tracer  trace.TracerProvider
	metrics FlowMetrics
	open    StreamOpener

	clientsMut sync.Mutex
	clients    map[string]*bedrockagentruntime.Client
}

// NewFlowClient creates a FlowClient. Bedrock clients are created lazily, one
// per region, from conf.
func NewFlowClient(conf SessionConfig, logger log.Modular, opts ...FlowClientOpt) *FlowClient {
	c := &FlowClient{
		session: conf,
		log:     logger,
		clients: map[string]*bedrockagentruntime.Client{},
	}
	c.open = c.openStream
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *FlowClient) client(ctx context.Context, region string) (*bedrockagentruntime.Client, error) {
	c.clientsMut.Lock()
	defer c.clientsMut.Unlock()

	if cl, exists := c.clients[region]; exists {
		return cl, nil
	}

	sessConf := c.session
	sessConf.Region = region
	awsConf, err := GetSession(ctx, sessConf)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	cl := bedrockagentruntime.NewFromConfig(awsConf)
	c.clients[region] = cl
	return cl, nil
}

func (c *FlowClient) openStream(ctx context.Context, region string, in *bedrockagentruntime.InvokeFlowInput) (bedrockagentruntime.FlowResponseStreamReader, error) {
	cl, err := c.client(ctx, region)
	if err != nil {
		return nil, err
	}
	out, err := cl.InvokeFlow(ctx, in)
	if err != nil {
		return nil, err
	}
	stream := out.GetStream()
	if stream == nil {
		return nil, errors.New("flow invocation returned no response stream")
	}
	return stream, nil
}

// Invoke runs a flow and consumes its response stream to exhaustion. Output
// and completion events are merged into the returned result in the order they
// arrive, all other events are ignored. Errors opening the stream, or reported
// by the stream after its last event, are returned unmodified and no result
// is produced.
func (c *FlowClient) Invoke(ctx context.Context, params FlowInvocationParameters) (res *FlowResult, err error) {
	params = params.WithDefaults()

	ctx, span := tracing.StartSpan(ctx, c.tracer, "invoke_flow",
		attribute.String("flow.id", params.FlowIdentifier),
		attribute.String("flow.alias_id", params.FlowAliasIdentifier),
		attribute.String("flow.region", params.Region),
	)
	start := time.Now()
	defer func() {
		tracing.EndSpan(span, err)
		if c.metrics != nil {
			outcome := FlowOutcomeSuccess
			if err != nil {
				outcome = FlowOutcomeError
			}
			c.metrics.FlowInvoked(outcome, time.Since(start))
		}
	}()

	stream, err := c.open(ctx, params.Region, params.Input())
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			c.log.Debugf("Flow invocation rejected with code %v: %v", apiErr.ErrorCode(), apiErr.ErrorMessage())
		}
		return nil, err
	}
	defer stream.Close()

	res = NewFlowResult()
	for e := range stream.Events() {
		fe, derr := DecodeFlowEvent(e)
		if derr != nil {
			c.log.Warnf("Merging flow %v event without its content: %v", fe.Kind, derr)
		}
		if !res.Merge(fe) {
			c.log.Debugf("Ignoring flow event of type %T", e)
			continue
		}
		c.log.Debugf("Flow %v event: %v", fe.Kind, fe.Fields)
	}
	if err = stream.Err(); err != nil {
		return nil, err
	}
	return res, nil
}
