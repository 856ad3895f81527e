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
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"

	"github.com/Jeffail/gabs/v2"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
)

// Field names carried by flow events, matching the names used on the wire.
const (
	FieldContent          = "content"
	FieldDocument         = "document"
	FieldNodeName         = "nodeName"
	FieldNodeType         = "nodeType"
	FieldCompletionReason = "completionReason"
)

// ErrNoDocument is returned when a flow result carries no content.document.
var ErrNoDocument = errors.New("flow result does not contain a document")

// FlowEventKind discriminates the events of an InvokeFlow response stream.
type FlowEventKind int

// The kinds of flow event that are distinguished. Anything that is neither an
// output nor a completion event is FlowEventOther.
const (
	FlowEventOther FlowEventKind = iota
	FlowEventOutput
	FlowEventCompletion
)

func (k FlowEventKind) String() string {
	switch k {
	case FlowEventOutput:
		return "output"
	case FlowEventCompletion:
		return "completion"
	}
	return "other"
}

// FlowEvent is a single element of a flow response stream, reduced to the
// fields it carries.
type FlowEvent struct {
	Kind   FlowEventKind
	Fields map[string]any
}

// DecodeFlowEvent converts a stream element into a FlowEvent. Union members
// other than output and completion events become FlowEventOther.
//
// When the document of an output event cannot be decoded the event is still
// returned, without its content field, along with the decode error.
func DecodeFlowEvent(e types.FlowResponseStream) (FlowEvent, error) {
	switch v := e.(type) {
	case *types.FlowResponseStreamMemberFlowOutputEvent:
		fields := map[string]any{}
		if v.Value.NodeName != nil {
			fields[FieldNodeName] = *v.Value.NodeName
		}
		if v.Value.NodeType != "" {
			fields[FieldNodeType] = string(v.Value.NodeType)
		}
		out := FlowEvent{Kind: FlowEventOutput, Fields: fields}
		if doc, ok := v.Value.Content.(*types.FlowOutputContentMemberDocument); ok && doc.Value != nil {
			content, err := decodeDocument(doc.Value)
			if err != nil {
				return out, fmt.Errorf("failed to decode flow output document: %w", err)
			}
			fields[FieldContent] = map[string]any{FieldDocument: content}
		}
		return out, nil
	case *types.FlowResponseStreamMemberFlowCompletionEvent:
		fields := map[string]any{}
		if v.Value.CompletionReason != "" {
			fields[FieldCompletionReason] = string(v.Value.CompletionReason)
		}
		return FlowEvent{Kind: FlowEventCompletion, Fields: fields}, nil
	}
	return FlowEvent{Kind: FlowEventOther}, nil
}

// decodeDocument goes through the JSON form of a document, which both lazy
// and wire documents produce. Numbers are kept as json.Number so that they
// serialise back unchanged.
func decodeDocument(doc document.Interface) (any, error) {
	b, err := doc.MarshalSmithyDocument()
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// FlowResult accumulates the fields of every output and completion event of a
// single flow invocation. Fields are merged shallowly in arrival order, so a
// later event overwrites a field of the same name set by an earlier one.
type FlowResult struct {
	fields map[string]any
}

// NewFlowResult returns an empty result.
func NewFlowResult() *FlowResult {
	return &FlowResult{fields: map[string]any{}}
}

// Merge folds the fields of e into the result and reports whether e was an
// event kind that contributes to results.
func (r *FlowResult) Merge(e FlowEvent) bool {
	if e.Kind != FlowEventOutput && e.Kind != FlowEventCompletion {
		return false
	}
	maps.Copy(r.fields, e.Fields)
	return true
}

// Fields returns a shallow copy of the accumulated fields.
func (r *FlowResult) Fields() map[string]any {
	return maps.Clone(r.fields)
}

// Document returns content.document as text. String documents are returned
// verbatim, any other value is returned as JSON.
func (r *FlowResult) Document() (string, error) {
	c := gabs.Wrap(r.fields).Path(FieldContent + "." + FieldDocument)
	switch d := c.Data().(type) {
	case nil:
		return "", ErrNoDocument
	case string:
		return d, nil
	case json.Number:
		return d.String(), nil
	}
	return c.String(), nil
}

// CompletionReason returns the reason given by the completion event, or an
// empty string when the stream carried none.
func (r *FlowResult) CompletionReason() string {
	s, _ := r.fields[FieldCompletionReason].(string)
	return s
}
