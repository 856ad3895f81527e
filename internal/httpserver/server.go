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
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/redpanda-data/slack-flow-bridge/internal/impl/slack"
	"github.com/redpanda-data/slack-flow-bridge/internal/log"
)

const (
	// SlackPath is the route Slack should be configured to POST commands to.
	SlackPath = "/slack/events"

	maxBodyBytes    = 1 << 20
	shutdownTimeout = 30 * time.Second
)

// SlackHandler serves Slack requests through rcv. The acknowledgement of a
// command is written and flushed as a complete, empty response as soon as the
// command handler acks, the handler then carries on with the rest of the
// command detached from the lifetime of the HTTP request.
func SlackHandler(rcv *slack.Receiver, logger log.Modular) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}

		out, err := rcv.Dispatch(context.WithoutCancel(r.Context()), r.Header, body, func(context.Context) error {
			w.Header().Set("Content-Length", "0")
			w.WriteHeader(http.StatusOK)
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
			return nil
		})
		if err != nil {
			logger.Debugf("Dispatch finished with status %v: %v", out.Status, err)
		}
		if out.Acked {
			return
		}
		if out.Status == http.StatusOK {
			w.Header().Set("Content-Length", "0")
			w.WriteHeader(http.StatusOK)
			return
		}
		http.Error(w, http.StatusText(out.Status), out.Status)
	})
}

type recoveryLogger struct {
	log log.Modular
}

func (r recoveryLogger) Println(v ...any) {
	r.log.Errorln(fmt.Sprint(v...))
}

// Server hosts the Slack receiver over plain HTTP.
type Server struct {
	log    log.Modular
	server *http.Server
}

// Option customises a Server.
type Option func(*mux.Router)

// WithMetrics serves h at GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(r *mux.Router) {
		r.Handle("/metrics", h).Methods(http.MethodGet)
	}
}

// New creates a server listening on address.
func New(address string, rcv *slack.Receiver, logger log.Modular, opts ...Option) *Server {
	router := mux.NewRouter()
	for _, o := range opts {
		o(router)
	}
	router.Handle(SlackPath, SlackHandler(rcv, logger)).Methods(http.MethodPost)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len("ok")))
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	return &Server{
		log: logger,
		server: &http.Server{
			Addr:              address,
			Handler:           handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{log: logger}))(router),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Handler returns the root handler of the server.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// ListenAndServe blocks serving requests until ctx is cancelled, at which
// point the server is gracefully shut down.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		s.log.Infof("Receiving Slack requests at: http://%v%v", s.server.Addr, SlackPath)
		if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	shutCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	return s.server.Shutdown(shutCtx)
}
