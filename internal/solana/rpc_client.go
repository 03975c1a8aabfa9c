package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// Default configuration values.
const (
	DefaultTimeout    = 10 * time.Second
	DefaultRetries    = 0
	DefaultRetryDelay = 200 * time.Millisecond
	DefaultMaxDelay   = 2 * time.Second
	DefaultCommitment = "confirmed"
)

// errRateLimited marks a 429 response; it is retried like transport errors.
var errRateLimited = errors.New("rate limited (429)")

// HTTPClient implements RPCClient over HTTP JSON-RPC 2.0. Transport errors,
// non-200 statuses and undecodable bodies are retried with exponential
// backoff; JSON-RPC errors are returned immediately.
type HTTPClient struct {
	endpoint   string
	client     *http.Client
	retries    uint64
	retryDelay time.Duration
	maxDelay   time.Duration
	commitment string
	logger     *logrus.Entry
	requestID  atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithRetries sets how many times a failed request is retried.
func WithRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		if n >= 0 {
			c.retries = uint64(n)
		}
	}
}

// WithBackoff sets the initial and maximum delay between retries.
func WithBackoff(initial, max time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = initial
		c.maxDelay = max
	}
}

// WithCommitment sets the commitment level sent with every request.
func WithCommitment(commitment string) ClientOption {
	return func(c *HTTPClient) {
		c.commitment = commitment
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// WithRPCLogger sets the logger used for retry notices.
func WithRPCLogger(logger *logrus.Entry) ClientOption {
	return func(c *HTTPClient) {
		c.logger = logger
	}
}

// NewHTTPClient creates a Solana RPC HTTP client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:   endpoint,
		client:     &http.Client{Timeout: DefaultTimeout},
		retries:    DefaultRetries,
		retryDelay: DefaultRetryDelay,
		maxDelay:   DefaultMaxDelay,
		commitment: DefaultCommitment,
		logger:     logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithField("component", "rpc")
	return c
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is a JSON-RPC error object returned by the node.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

func (c *HTTPClient) policy(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.retryDelay
	exp.MaxInterval = c.maxDelay
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, c.retries), ctx)
}

// call performs one JSON-RPC call and decodes the result into result.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	var raw json.RawMessage
	op := func() error {
		res, err := c.post(ctx, body)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		raw = res
		return nil
	}
	notify := func(err error, d time.Duration) {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"method": method,
			"retry":  d,
		}).Debug("rpc call failed, retrying")
	}
	if err := backoff.RetryNotify(op, c.policy(ctx), notify); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}

	if result != nil && raw != nil {
		if err := json.Unmarshal(raw, result); err != nil {
			return fmt.Errorf("%s: unmarshal result: %w", method, err)
		}
	}
	return nil
}

// post sends one request. JSON-RPC errors are permanent.
func (c *HTTPClient) post(ctx context.Context, body []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(respBody))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, backoff.Permanent(rpcResp.Error)
	}
	return rpcResp.Result, nil
}

// GetAccountInfo retrieves base64 account data. Returns nil if the account
// does not exist.
func (c *HTTPClient) GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error) {
	params := []interface{}{
		pubkey,
		map[string]interface{}{
			"encoding":   "base64",
			"commitment": c.commitment,
		},
	}

	var result struct {
		Value *struct {
			Lamports   uint64   `json:"lamports"`
			Owner      string   `json:"owner"`
			Data       []string `json:"data"` // [payload, encoding]
			Executable bool     `json:"executable"`
			RentEpoch  uint64   `json:"rentEpoch"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getAccountInfo", params, &result); err != nil {
		return nil, err
	}
	if result.Value == nil {
		return nil, nil
	}

	info := &AccountInfo{
		Lamports:   result.Value.Lamports,
		Owner:      result.Value.Owner,
		Executable: result.Value.Executable,
		RentEpoch:  result.Value.RentEpoch,
	}
	if len(result.Value.Data) > 0 {
		info.Data = result.Value.Data[0]
	}
	return info, nil
}

// GetBalance returns the lamport balance of pubkey.
func (c *HTTPClient) GetBalance(ctx context.Context, pubkey string) (uint64, error) {
	params := []interface{}{
		pubkey,
		map[string]interface{}{"commitment": c.commitment},
	}

	var result struct {
		Value uint64 `json:"value"`
	}
	if err := c.call(ctx, "getBalance", params, &result); err != nil {
		return 0, err
	}
	return result.Value, nil
}

// GetLatestBlockhash retrieves the most recent blockhash.
func (c *HTTPClient) GetLatestBlockhash(ctx context.Context) (string, error) {
	params := []interface{}{
		map[string]interface{}{"commitment": c.commitment},
	}

	var result struct {
		Value struct {
			Blockhash            string `json:"blockhash"`
			LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getLatestBlockhash", params, &result); err != nil {
		return "", err
	}
	if result.Value.Blockhash == "" {
		return "", errors.New("getLatestBlockhash: empty blockhash")
	}
	return result.Value.Blockhash, nil
}

// SimulateTransaction simulates a signed transaction without submitting it.
func (c *HTTPClient) SimulateTransaction(ctx context.Context, txBase64 string) (*SimulationResult, error) {
	params := []interface{}{
		txBase64,
		map[string]interface{}{
			"encoding":   "base64",
			"commitment": c.commitment,
		},
	}

	var result struct {
		Value struct {
			Err           interface{} `json:"err"`
			Logs          []string    `json:"logs"`
			UnitsConsumed uint64      `json:"unitsConsumed"`
		} `json:"value"`
	}
	if err := c.call(ctx, "simulateTransaction", params, &result); err != nil {
		return nil, err
	}

	return &SimulationResult{
		Err:           result.Value.Err,
		Logs:          result.Value.Logs,
		UnitsConsumed: result.Value.UnitsConsumed,
	}, nil
}
