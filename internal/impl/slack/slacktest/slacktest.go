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

// Package slacktest provides helpers for building signed Slack requests and a
// fake Slack API in tests.
package slacktest

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// SignedHeader returns the headers Slack would send with body, signed with
// secret at time ts.
func SignedHeader(secret string, ts time.Time, body []byte) http.Header {
	stamp := strconv.FormatInt(ts.Unix(), 10)

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte("v0:" + stamp + ":" + string(body)))

	h := http.Header{}
	h.Set("Content-Type", "application/x-www-form-urlencoded")
	h.Set("X-Slack-Request-Timestamp", stamp)
	h.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
	return h
}

// CommandBody encodes a slash command form body.
func CommandBody(command, text, channelID, responseURL string) []byte {
	return []byte(url.Values{
		"command":      {command},
		"text":         {text},
		"channel_id":   {channelID},
		"user_id":      {"U0123"},
		"user_name":    {"ash"},
		"team_id":      {"T0123"},
		"team_domain":  {"redpanda"},
		"response_url": {responseURL},
		"trigger_id":   {"1234.5678"},
	}.Encode())
}

// Message is a message received by the fake Slack API.
type Message struct {
	Endpoint     string
	Channel      string
	User         string
	Text         string
	ResponseType string
	Token        string
}

// Server is a fake Slack Web API that also serves command response URLs at
// /response.
type Server struct {
	*httptest.Server

	mut      sync.Mutex
	messages []Message
}

// NewServer starts a fake Slack API. It is closed when the test ends.
func NewServer(t interface{ Cleanup(func()) }) *Server {
	s := &Server{}
	mux := http.NewServeMux()
	mux.HandleFunc("/response", s.handleResponseURL)
	mux.HandleFunc("/api/chat.postMessage", s.handleAPI("chat.postMessage", func(channel string) string {
		return fmt.Sprintf(`{"ok":true,"channel":%q,"ts":"1700000000.000100"}`, channel)
	}))
	mux.HandleFunc("/api/chat.postEphemeral", s.handleAPI("chat.postEphemeral", func(string) string {
		return `{"ok":true,"message_ts":"1700000000.000100"}`
	}))
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// APIURL returns the base URL of the fake Web API.
func (s *Server) APIURL() string {
	return s.URL + "/api/"
}

// ResponseURL returns a command response URL served by s.
func (s *Server) ResponseURL() string {
	return s.URL + "/response"
}

// Messages returns every message received so far.
func (s *Server) Messages() []Message {
	s.mut.Lock()
	defer s.mut.Unlock()
	return append([]Message(nil), s.messages...)
}

func (s *Server) record(m Message) {
	s.mut.Lock()
	s.messages = append(s.messages, m)
	s.mut.Unlock()
}

func (s *Server) handleResponseURL(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text         string `json:"text"`
		ResponseType string `json:"response_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.record(Message{
		Endpoint:     "response_url",
		Text:         body.Text,
		ResponseType: body.ResponseType,
	})
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"ok":true}`))
}

func (s *Server) handleAPI(endpoint string, response func(channel string) string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		token := r.FormValue("token")
		if auth := r.Header.Get("Authorization"); auth != "" {
			token = strings.TrimPrefix(auth, "Bearer ")
		}
		s.record(Message{
			Endpoint: endpoint,
			Channel:  r.FormValue("channel"),
			User:     r.FormValue("user"),
			Text:     r.FormValue("text"),
			Token:    token,
		})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(response(r.FormValue("channel"))))
	}
}
