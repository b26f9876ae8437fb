package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"proofscore/internal/domain"
)

// signatureHeader carries the hex HMAC-SHA256 of the raw request body.
const signatureHeader = "X-KRNL-Signature"

// maxWebhookBody bounds webhook payloads at 1 MiB.
const maxWebhookBody = 1 << 20

type webhookPayload struct {
	ChainID int64                   `json:"chainId"`
	Score   *domain.ReputationScore `json:"score"`
}

// handleWebhook ingests scores pushed by the computation service when
// an asynchronous computation completes. The body must be signed with
// the shared webhook secret; unsigned or mis-signed requests are
// rejected before any parsing.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "unreadable request body")
		return
	}

	if !s.verifySignature(body, r.Header.Get(signatureHeader)) {
		s.writeError(w, http.StatusUnauthorized, "invalid webhook signature")
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.ChainID == 0 {
		payload.ChainID = DefaultChainID
	}

	ingested, err := s.resolver.Ingest(r.Context(), payload.ChainID, payload.Score)
	if err != nil {
		s.writeResolverError(w, err)
		return
	}
	s.logger.Printf("[api] webhook ingested score for %s chain=%d", ingested.WalletAddress, payload.ChainID)
	s.writeData(w, http.StatusOK, ingested)
}

func (s *Server) verifySignature(body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, s.webhookSecret)
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), provided)
}
