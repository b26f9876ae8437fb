// Package api exposes the score pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"proofscore/internal/chain"
	"proofscore/internal/domain"
	"proofscore/internal/krnl"
	"proofscore/internal/score"
	"proofscore/internal/storage"
)

// DefaultChainID is assumed when a request does not name a chain.
const DefaultChainID int64 = 1

// Resolver is the slice of the score pipeline the HTTP layer needs.
type Resolver interface {
	Resolve(ctx context.Context, walletAddress string, chainID int64, forceRefresh bool) (*domain.ReputationScore, error)
	ResolveBatch(ctx context.Context, items []score.ResolveItem) ([]score.ResolveResult, error)
	Invalidate(ctx context.Context, walletAddress string, chainID int64) error
	Ingest(ctx context.Context, chainID int64, s *domain.ReputationScore) (*domain.ReputationScore, error)
	History(ctx context.Context, walletAddress string, chainID int64) ([]*domain.CreditCheckRecord, error)
}

// ServerOptions configures a Server. Resolver and Client are required.
type ServerOptions struct {
	Resolver     Resolver
	Client       krnl.Client
	Validator    chain.Validator
	ChainMetrics chain.MetricsSource

	// WebhookSecret signs incoming computation webhooks. An empty secret
	// disables the webhook endpoint.
	WebhookSecret string

	Logger *log.Logger
}

// Server holds the HTTP handlers for the score API.
type Server struct {
	resolver      Resolver
	client        krnl.Client
	validator     chain.Validator
	chainMetrics  chain.MetricsSource
	webhookSecret []byte
	logger        *log.Logger
}

// NewServer creates an API server from opts.
func NewServer(opts ServerOptions) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	validator := opts.Validator
	if validator == nil {
		validator = chain.NewEVMValidator()
	}
	var secret []byte
	if opts.WebhookSecret != "" {
		secret = []byte(opts.WebhookSecret)
	}
	return &Server{
		resolver:      opts.Resolver,
		client:        opts.Client,
		validator:     validator,
		chainMetrics:  opts.ChainMetrics,
		webhookSecret: secret,
		logger:        logger,
	}
}

type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func (s *Server) writeData(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Success: true, Data: data}); err != nil {
		s.logger.Printf("[api] response encode failed: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Success: false, Error: message}); err != nil {
		s.logger.Printf("[api] response encode failed: %v", err)
	}
}

// writeResolverError maps pipeline errors to response codes. Invalid
// input is the caller's fault; upstream failures report bad gateway.
func (s *Server) writeResolverError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, score.ErrInvalidAddress),
		errors.Is(err, score.ErrInvalidChainID),
		errors.Is(err, score.ErrInvalidScore):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, score.ErrProofVerificationFailed),
		errors.Is(err, score.ErrExternalComputationFailed):
		s.writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Printf("[api] internal error: %v", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}
