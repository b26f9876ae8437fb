package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"proofscore/internal/domain"
	"proofscore/internal/score"
)

// chainIDParam reads the chainId query parameter, defaulting to
// DefaultChainID when absent.
func chainIDParam(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("chainId")
	if raw == "" {
		return DefaultChainID, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeData(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	chainID, err := chainIDParam(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid chainId")
		return
	}
	forceRefresh := r.URL.Query().Get("forceRefresh") == "true"

	result, err := s.resolver.Resolve(r.Context(), address, chainID, forceRefresh)
	if err != nil {
		s.writeResolverError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, result)
}

type batchRequest struct {
	Wallets []score.ResolveItem `json:"wallets"`
}

type batchItemResponse struct {
	WalletAddress string                  `json:"walletAddress"`
	ChainID       int64                   `json:"chainId"`
	Score         *domain.ReputationScore `json:"score,omitempty"`
	Error         string                  `json:"error,omitempty"`
}

func (s *Server) handleResolveBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	for i := range req.Wallets {
		if req.Wallets[i].ChainID == 0 {
			req.Wallets[i].ChainID = DefaultChainID
		}
	}

	results, err := s.resolver.ResolveBatch(r.Context(), req.Wallets)
	if err != nil {
		s.writeResolverError(w, err)
		return
	}

	out := make([]batchItemResponse, len(results))
	for i, res := range results {
		out[i] = batchItemResponse{
			WalletAddress: res.WalletAddress,
			ChainID:       res.ChainID,
			Score:         res.Score,
		}
		if res.Err != nil {
			out[i].Error = res.Err.Error()
		}
	}
	s.writeData(w, http.StatusOK, out)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	chainID, err := chainIDParam(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid chainId")
		return
	}

	records, err := s.resolver.History(r.Context(), address, chainID)
	if err != nil {
		s.writeResolverError(w, err)
		return
	}
	if records == nil {
		records = []*domain.CreditCheckRecord{}
	}
	s.writeData(w, http.StatusOK, records)
}

func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	chainID, err := chainIDParam(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid chainId")
		return
	}

	if err := s.resolver.Invalidate(r.Context(), address, chainID); err != nil {
		s.writeResolverError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, map[string]string{"invalidated": domain.NormalizeAddress(address)})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	s.writeData(w, http.StatusOK, map[string]interface{}{
		"address": address,
		"valid":   s.validator.IsValidAddress(address),
	})
}

func (s *Server) handleWalletMetrics(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	chainID, err := chainIDParam(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid chainId")
		return
	}
	if !s.validator.IsValidAddress(address) {
		s.writeError(w, http.StatusBadRequest, "invalid wallet address")
		return
	}

	metrics, err := s.chainMetrics.GetMetrics(r.Context(), domain.NormalizeAddress(address), chainID)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.writeData(w, http.StatusOK, metrics)
}

func (s *Server) handleKRNLHealth(w http.ResponseWriter, r *http.Request) {
	healthy := s.client.HealthCheck(r.Context())
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	s.writeData(w, status, map[string]bool{"healthy": healthy})
}

type verifyRequest struct {
	ProofHash string `json:"proofHash"`
	Signature string `json:"signature"`
}

func (s *Server) handleVerifyProof(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProofHash == "" || req.Signature == "" {
		s.writeError(w, http.StatusBadRequest, "proofHash and signature are required")
		return
	}

	verified, err := s.client.VerifyProof(r.Context(), req.ProofHash, req.Signature)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.writeData(w, http.StatusOK, map[string]bool{"verified": verified})
}

func (s *Server) handleComputationStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	status, err := s.client.ComputationStatus(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.writeData(w, http.StatusOK, status)
}
