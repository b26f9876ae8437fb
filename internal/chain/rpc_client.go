package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"proofscore/internal/domain"
)

// DefaultRPCTimeout bounds a single JSON-RPC round trip.
const DefaultRPCTimeout = 10 * time.Second

// RPCMetricsSource implements MetricsSource over Ethereum JSON-RPC,
// one endpoint per supported chain id.
type RPCMetricsSource struct {
	endpoints map[int64]string
	client    *http.Client
	requestID atomic.Uint64
}

// NewRPCMetricsSource creates a metrics source for the given
// chainID -> endpoint map.
func NewRPCMetricsSource(endpoints map[int64]string, opts ...RPCOption) *RPCMetricsSource {
	s := &RPCMetricsSource{
		endpoints: endpoints,
		client:    &http.Client{Timeout: DefaultRPCTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RPCOption configures RPCMetricsSource.
type RPCOption func(*RPCMetricsSource)

// WithRPCHTTPClient sets a custom http.Client.
func WithRPCHTTPClient(client *http.Client) RPCOption {
	return func(s *RPCMetricsSource) {
		s.client = client
	}
}

// Compile-time interface check.
var _ MetricsSource = (*RPCMetricsSource)(nil)

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError represents a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// call performs a single JSON-RPC call against the chain endpoint.
func (s *RPCMetricsSource) call(ctx context.Context, endpoint, method string, params []interface{}, result interface{}) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      s.requestID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("unmarshal result: %w", err)
		}
	}
	return nil
}

// GetMetrics retrieves the transaction count (nonce) and balance for a
// wallet. A full deployment would read richer history from an indexer;
// the nonce is what feeds the fallback score.
func (s *RPCMetricsSource) GetMetrics(ctx context.Context, address string, chainID int64) (*domain.WalletMetrics, error) {
	endpoint, ok := s.endpoints[chainID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedChain, chainID)
	}

	addr := domain.NormalizeAddress(address)

	var nonceHex string
	if err := s.call(ctx, endpoint, "eth_getTransactionCount", []interface{}{addr, "latest"}, &nonceHex); err != nil {
		return nil, fmt.Errorf("get transaction count: %w", err)
	}
	txCount, err := parseHexQuantity(nonceHex)
	if err != nil {
		return nil, fmt.Errorf("parse transaction count: %w", err)
	}

	var balanceHex string
	if err := s.call(ctx, endpoint, "eth_getBalance", []interface{}{addr, "latest"}, &balanceHex); err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	balanceWei, err := parseHexBig(balanceHex)
	if err != nil {
		return nil, fmt.Errorf("parse balance: %w", err)
	}

	return &domain.WalletMetrics{
		Address:                 addr,
		ChainID:                 chainID,
		TotalTransactions:       int(txCount),
		AverageTransactionValue: formatEther(balanceWei),
		LastActivity:            time.Now().UTC(),
	}, nil
}

// parseHexQuantity parses a 0x-prefixed hex quantity into an int64.
func parseHexQuantity(s string) (int64, error) {
	v, err := parseHexBig(s)
	if err != nil {
		return 0, err
	}
	if !v.IsInt64() {
		return 0, fmt.Errorf("quantity overflows int64: %s", s)
	}
	return v.Int64(), nil
}

// parseHexBig parses a 0x-prefixed hex quantity into a big.Int.
func parseHexBig(s string) (*big.Int, error) {
	trimmed := strings.TrimPrefix(s, "0x")
	if trimmed == "" {
		return nil, fmt.Errorf("empty hex quantity")
	}
	v, ok := new(big.Int).SetString(trimmed, 16)
	if !ok {
		return nil, fmt.Errorf("invalid hex quantity: %s", s)
	}
	return v, nil
}

// formatEther renders a wei amount as a decimal ETH string.
func formatEther(wei *big.Int) string {
	eth := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(1e18))
	return eth.Text('f', 6)
}
