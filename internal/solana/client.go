package solana

// Package solana contains the JSON-RPC client used as the balance source.
// This file is the transport layer - it sends getBalance requests and maps
// failures into the FetchError taxonomy, no business logic.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"solwatch/internal/infra/log"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// MainnetRPC is the default public Solana RPC endpoint.
const MainnetRPC = "https://api.mainnet-beta.solana.com"

// DefaultFetchTimeout bounds a single getBalance call.
const DefaultFetchTimeout = 12 * time.Second

// Client is a stateless getBalance client, safe for concurrent use.
type Client struct {
	endpoint        string
	httpClient      *http.Client
	rateLimiter     *rate.Limiter
	circuitBreaker  *gobreaker.CircuitBreaker
	maxResponseSize int64
}

// NewClient builds a client for the given RPC endpoint. timeout <= 0 falls
// back to DefaultFetchTimeout, maxResponseSize <= 0 to 1MB.
func NewClient(endpoint string, timeout time.Duration, maxResponseSize int64) *Client {
	if endpoint == "" {
		endpoint = MainnetRPC
	}
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	if maxResponseSize <= 0 {
		maxResponseSize = 1024 * 1024
	}

	// Public RPC nodes rate limit aggressively; stay under 10 rps.
	rateLimiter := rate.NewLimiter(rate.Limit(10), 20)

	circuitBreaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "SolanaRPC",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})

	return &Client{
		endpoint:        endpoint,
		rateLimiter:     rateLimiter,
		circuitBreaker:  circuitBreaker,
		maxResponseSize: maxResponseSize,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DisableKeepAlives: false,
				MaxIdleConns:      10,
				IdleConnTimeout:   90 * time.Second,
			},
		},
	}
}

// rpcRequest is the JSON-RPC 2.0 envelope for getBalance.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result *struct {
		Value uint64 `json:"value"`
	} `json:"result"`
	Error *rpcError `json:"error"`
}

// GetBalance returns the current balance of the address in lamports.
// A zero balance is a valid, non-error outcome. On failure the returned
// error is always a *FetchError.
func (c *Client) GetBalance(ctx context.Context, address string) (uint64, error) {
	requestID := log.GenerateRequestID()
	startTime := time.Now()

	if ctx.Err() != nil {
		return 0, c.fetchErr(address, ctx.Err())
	}

	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return 0, c.fetchErr(address, err)
		}
	}

	var balance uint64
	var err error
	if c.circuitBreaker != nil {
		var result interface{}
		result, err = c.circuitBreaker.Execute(func() (interface{}, error) {
			return c.getBalance(ctx, requestID, address)
		})
		if err == nil {
			balance = result.(uint64)
		}
	} else {
		balance, err = c.getBalance(ctx, requestID, address)
	}
	if err != nil {
		return 0, c.fetchErr(address, err)
	}

	duration := time.Since(startTime).Milliseconds()
	log.LogResponse(requestID, 200, duration, zap.String("address", address), zap.Uint64("lamports", balance))
	return balance, nil
}

func (c *Client) getBalance(ctx context.Context, requestID, address string) (uint64, error) {
	payload := rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "getBalance",
		Params:  []interface{}{address},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	log.LogRequest(requestID, http.MethodPost, "getBalance", zap.String("address", address))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to perform request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseSize))
	if err != nil {
		return 0, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return 0, &httpStatusError{status: resp.StatusCode, body: respBody}
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return 0, &decodeError{err: err}
	}
	if rpcResp.Error != nil {
		return 0, &remoteError{code: rpcResp.Error.Code, message: rpcResp.Error.Message}
	}
	if rpcResp.Result == nil {
		return 0, &decodeError{err: errors.New("response has neither result nor error")}
	}

	return rpcResp.Result.Value, nil
}

// fetchErr maps a raw failure onto the FetchError taxonomy.
func (c *Client) fetchErr(address string, err error) *FetchError {
	kind := FetchUnreachable

	var netErr net.Error
	var statusErr *httpStatusError
	var decErr *decodeError
	var remErr *remoteError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = FetchTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = FetchTimeout
	case errors.As(err, &remErr):
		kind = FetchRemoteRejected
	case errors.As(err, &statusErr), errors.As(err, &decErr):
		kind = FetchProtocolError
	}

	return &FetchError{Kind: kind, Address: address, Err: err}
}

type httpStatusError struct {
	status int
	body   []byte
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("rpc endpoint returned status %d", e.status)
}

type decodeError struct {
	err error
}

func (e *decodeError) Error() string {
	return fmt.Sprintf("failed to decode rpc response: %v", e.err)
}

func (e *decodeError) Unwrap() error { return e.err }

type remoteError struct {
	code    int
	message string
}

func (e *remoteError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.code, e.message)
}
