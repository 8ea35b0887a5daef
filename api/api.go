// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package api serves the crowdfunding ledger over JSON/HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/blinklabs-io/crowdfund/approval"
	"github.com/blinklabs-io/crowdfund/ledger"
	"github.com/blinklabs-io/crowdfund/names"
	"github.com/blinklabs-io/crowdfund/referral"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const DefaultListenAddress = ":8080"

type ServerConfig struct {
	ListenAddress string
	// AuthSecret is the HMAC key used to verify bearer tokens
	AuthSecret []byte
}

// Services are the components exposed by the API
type Services struct {
	Ledger    *ledger.Ledger
	Approvals *approval.Engine
	Referrals *referral.Ledger
	Names     *names.Registry
}

type Server struct {
	config     ServerConfig
	logger     *slog.Logger
	services   Services
	handler    http.Handler
	httpServer *http.Server
	addr       net.Addr
	mu         sync.Mutex
}

func New(
	cfg ServerConfig,
	services Services,
	logger *slog.Logger,
) (*Server, error) {
	if len(cfg.AuthSecret) == 0 {
		return nil, errors.New("api server requires an auth secret")
	}
	if services.Ledger == nil ||
		services.Approvals == nil ||
		services.Referrals == nil ||
		services.Names == nil {
		return nil, errors.New("api server requires all services")
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}
	s := &Server{
		config:   cfg,
		logger:   logger.With("component", "api"),
		services: services,
	}
	s.handler = s.router()
	return s, nil
}

// Handler returns the HTTP handler for the API
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(
		s.requestId,
		middleware.RealIP,
		s.requestLogger,
		middleware.Recoverer,
		s.authenticate,
	)
	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/campaigns", func(r chi.Router) {
			r.Get("/", s.handleListCampaigns)
			r.With(requirePrincipal).Post("/", s.handleCreateCampaign)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetCampaign)
				r.Get("/contributions", s.handleListContributions)
				r.With(requirePrincipal).Post("/contributions", s.handleContribute)
				r.Get("/contributions/top", s.handleTopContributors)
				r.Get("/milestones", s.handleMilestones)
				r.Get("/milestones/{index}/approvals", s.handleListApprovals)
				r.With(requirePrincipal).
					Post("/milestones/{index}/approvals", s.handleApprove)
				r.Get("/withdrawals", s.handleListWithdrawals)
				r.With(requirePrincipal).Post("/withdrawals", s.handleWithdraw)
			})
		})
		r.Route("/referrals", func(r chi.Router) {
			r.With(requirePrincipal).Post("/", s.handleRecordReferral)
			r.With(requirePrincipal).Post("/claim", s.handleClaimRewards)
			r.Get("/{principal}", s.handleGetReferrals)
		})
		r.Route("/names", func(r chi.Router) {
			r.With(requirePrincipal).Put("/", s.handleRegisterName)
			r.Get("/{principal}", s.handleGetName)
		})
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// Start binds the listen address and serves in the background until Stop is
// called or ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.httpServer != nil {
		s.mu.Unlock()
		return errors.New("server already started")
	}
	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen for API server: %w", err)
	}
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 60 * time.Second,
	}
	s.httpServer = server
	s.addr = ln.Addr()
	s.mu.Unlock()

	go func() {
		if err := server.Serve(ln); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(
				"API server error",
				"error", err,
			)
		}
	}()
	s.logger.Info("API listener started on " + ln.Addr().String())

	go func() {
		<-ctx.Done()
		//nolint:contextcheck
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			30*time.Second,
		)
		defer cancel()
		//nolint:contextcheck
		if err := s.Stop(shutdownCtx); err != nil {
			s.logger.Error(
				"failed to shutdown API server on context cancellation",
				"error", err,
			)
		}
	}()
	return nil
}

// Addr returns the bound listen address of a started server
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.httpServer = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	s.logger.Debug("shutting down API server")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown API server: %w", err)
	}
	return nil
}
