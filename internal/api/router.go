package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Router builds the HTTP route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	r.HandleFunc("/api/scores/batch", s.handleResolveBatch).Methods(http.MethodPost)
	r.HandleFunc("/api/scores/{address}", s.handleResolve).Methods(http.MethodGet)
	r.HandleFunc("/api/scores/{address}/history", s.handleHistory).Methods(http.MethodGet)
	r.HandleFunc("/api/scores/{address}/cache", s.handleInvalidate).Methods(http.MethodDelete)

	r.HandleFunc("/api/wallets/{address}/validate", s.handleValidate).Methods(http.MethodGet)
	r.HandleFunc("/api/wallets/{address}/metrics", s.handleWalletMetrics).Methods(http.MethodGet)

	r.HandleFunc("/api/krnl/health", s.handleKRNLHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/krnl/verify", s.handleVerifyProof).Methods(http.MethodPost)
	r.HandleFunc("/api/krnl/computation/{id}", s.handleComputationStatus).Methods(http.MethodGet)
	if s.webhookSecret != nil {
		r.HandleFunc("/api/krnl/webhook", s.handleWebhook).Methods(http.MethodPost)
	}

	return r
}
