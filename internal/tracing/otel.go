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

package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	name = "slack-flow-bridge"
)

// Provider returns prov, or the global tracer provider when prov is nil.
func Provider(prov trace.TracerProvider) trace.TracerProvider {
	if prov == nil {
		return otel.GetTracerProvider()
	}
	return prov
}

// StartSpan creates a child span of whatever span ctx carries.
func StartSpan(ctx context.Context, prov trace.TracerProvider, operationName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Provider(prov).Tracer(name).Start(ctx, operationName, trace.WithAttributes(attrs...))
}

// EndSpan finishes a span, marking it as failed when err is non-nil.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
