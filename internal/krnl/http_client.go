package krnl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"proofscore/internal/domain"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 2
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// HTTPClient implements Client over the KRNL REST API.
type HTTPClient struct {
	baseURL     string
	apiKey      string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithAPIKey sets the bearer credential attached to every request.
func WithAPIKey(key string) ClientOption {
	return func(c *HTTPClient) {
		c.apiKey = key
	}
}

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a new KRNL API client.
func NewHTTPClient(baseURL string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:     baseURL,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ Client = (*HTTPClient)(nil)

// computeRequest is the computation request body.
type computeRequest struct {
	WalletAddress   string            `json:"walletAddress"`
	ChainID         int64             `json:"chainId"`
	ComputationType string            `json:"computationType"`
	Parameters      computeParameters `json:"parameters"`
}

// computeParameters selects sub-computations to include.
type computeParameters struct {
	IncludeStaking    bool `json:"includeStaking"`
	IncludeGovernance bool `json:"includeGovernance"`
	IncludeRepayment  bool `json:"includeRepayment"`
}

// computeResponse is the computation response body.
type computeResponse struct {
	Score *domain.ReputationScore `json:"score"`
	Proof *domain.Proof           `json:"proof"`
}

// verifyRequest is the proof verification request body.
type verifyRequest struct {
	ProofHash string `json:"proofHash"`
	Signature string `json:"signature"`
}

// verifyResponse is the proof verification response body.
type verifyResponse struct {
	Verified bool `json:"verified"`
}

// do performs one HTTP round trip with retries and exponential backoff.
// Non-2xx responses and transport failures are retried; the last error
// is returned once retries are exhausted.
func (c *HTTPClient) do(ctx context.Context, method, path string, reqBody, result interface{}) error {
	var body []byte
	if reqBody != nil {
		var err error
		body, err = json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		if result != nil {
			if err := json.Unmarshal(respBody, result); err != nil {
				return fmt.Errorf("unmarshal response: %w", err)
			}
		}

		return nil
	}

	return lastErr
}

// ComputeScore requests a reputation computation for a wallet and chain.
func (c *HTTPClient) ComputeScore(ctx context.Context, walletAddress string, chainID int64) (*domain.ReputationScore, *domain.Proof, error) {
	req := computeRequest{
		WalletAddress:   walletAddress,
		ChainID:         chainID,
		ComputationType: "reputation_score",
		Parameters: computeParameters{
			IncludeStaking:    true,
			IncludeGovernance: true,
			IncludeRepayment:  true,
		},
	}

	var resp computeResponse
	if err := c.do(ctx, http.MethodPost, "/compute/reputation", req, &resp); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrComputationRequestFailed, err)
	}
	if resp.Score == nil {
		return nil, nil, fmt.Errorf("%w: response missing score", ErrComputationRequestFailed)
	}

	return resp.Score, resp.Proof, nil
}

// VerifyProof checks proof authenticity. Fail-closed: any transport
// failure reports unverified rather than an error.
func (c *HTTPClient) VerifyProof(ctx context.Context, proofHash, signature string) (bool, error) {
	var resp verifyResponse
	err := c.do(ctx, http.MethodPost, "/verify", verifyRequest{ProofHash: proofHash, Signature: signature}, &resp)
	if err != nil {
		return false, nil
	}
	return resp.Verified, nil
}

// ComputationStatus polls the status of an asynchronous computation.
func (c *HTTPClient) ComputationStatus(ctx context.Context, computationID string) (*ComputationStatus, error) {
	var status ComputationStatus
	if err := c.do(ctx, http.MethodGet, "/compute/status/"+computationID, nil, &status); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStatusCheckFailed, err)
	}
	return &status, nil
}

// HealthCheck probes service liveness.
func (c *HTTPClient) HealthCheck(ctx context.Context) bool {
	return c.do(ctx, http.MethodGet, "/health", nil, nil) == nil
}
