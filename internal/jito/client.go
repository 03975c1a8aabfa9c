package jito

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"dealer-scan/internal/observability"
)

// Block engine endpoints relative to the configured base URL.
const (
	bundlesPath          = "/bundles"
	tipAccountsPath      = "/getTipAccounts"
	bundleStatusesPath   = "/getBundleStatuses"
	inflightStatusesPath = "/getInflightBundleStatuses"
)

// DefaultTimeout bounds a single block engine call.
const DefaultTimeout = 10 * time.Second

// Client is a JSON-RPC client for the Jito block engine.
type Client struct {
	baseURL   string
	client    *http.Client
	logger    *logrus.Entry
	requestID atomic.Uint64

	mu          sync.Mutex
	tipAccounts []string
	pick        func(n int) int
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logrus.Entry) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithPicker overrides the random tip account selection.
func WithPicker(pick func(n int) int) ClientOption {
	return func(c *Client) {
		c.pick = pick
	}
}

// NewClient creates a block engine client. baseURL is the API root,
// e.g. https://mainnet.block-engine.jito.wtf/api/v1.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: DefaultTimeout},
		logger:  logrus.NewEntry(logrus.StandardLogger()),
		pick:    rand.Intn,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithField("component", "jito")
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

// call performs a single JSON-RPC call. JSON-RPC errors are returned as *RPCError.
func (c *Client) call(ctx context.Context, path, method string, params []interface{}, result interface{}) error {
	start := time.Now()
	defer observability.ObserveRelayCall(method, start)

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
		}
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		if len(rpcResp.Result) == 0 || string(rpcResp.Result) == "null" {
			return fmt.Errorf("%w: %s: empty result", ErrMalformedResponse, method)
		}
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrMalformedResponse, method, err)
		}
	}
	return nil
}

// SendBundle submits base58 encoded signed transactions as one bundle and
// returns the bundle id assigned by the relay.
func (c *Client) SendBundle(ctx context.Context, txs []string) (string, error) {
	var bundleID string
	err := c.call(ctx, bundlesPath, "sendBundle", []interface{}{txs}, &bundleID)
	if err != nil {
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) {
			return "", fmt.Errorf("%w: %v", ErrRelayRejected, err)
		}
		if isMalformed(err) {
			return "", fmt.Errorf("%w: missing bundle id: %v", ErrRelayRejected, err)
		}
		return "", err
	}
	if bundleID == "" {
		return "", fmt.Errorf("%w: empty bundle id", ErrRelayRejected)
	}

	c.logger.WithField("bundle_id", bundleID).Debug("bundle submitted")
	return bundleID, nil
}

// TipAccounts returns the relay tip accounts. The list is fetched once and cached.
func (c *Client) TipAccounts(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	cached := c.tipAccounts
	c.mu.Unlock()
	if len(cached) > 0 {
		return cached, nil
	}

	var accounts []string
	if err := c.call(ctx, tipAccountsPath, "getTipAccounts", nil, &accounts); err != nil {
		return nil, fmt.Errorf("get tip accounts: %w", err)
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("get tip accounts: %w: empty list", ErrMalformedResponse)
	}

	c.mu.Lock()
	c.tipAccounts = accounts
	c.mu.Unlock()
	return accounts, nil
}

// RandomTipAccount returns one tip account chosen uniformly at random.
func (c *Client) RandomTipAccount(ctx context.Context) (string, error) {
	accounts, err := c.TipAccounts(ctx)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	i := c.pick(len(accounts))
	c.mu.Unlock()
	return accounts[i], nil
}

type statusesResult struct {
	Value []json.RawMessage `json:"value"`
}

// GetInflightBundleStatuses returns the in-flight status of the first requested bundle.
func (c *Client) GetInflightBundleStatuses(ctx context.Context, bundleIDs []string) (*BundleStatus, error) {
	var res statusesResult
	if err := c.call(ctx, inflightStatusesPath, "getInflightBundleStatuses", []interface{}{bundleIDs}, &res); err != nil {
		return nil, err
	}
	if len(res.Value) == 0 {
		return nil, fmt.Errorf("%w: no bundle status", ErrMalformedResponse)
	}
	return parseInflightStatus(res.Value[0])
}

// GetBundleStatuses returns the confirmation status of the first requested bundle.
func (c *Client) GetBundleStatuses(ctx context.Context, bundleIDs []string) (*BundleStatus, error) {
	var res statusesResult
	if err := c.call(ctx, bundleStatusesPath, "getBundleStatuses", []interface{}{bundleIDs}, &res); err != nil {
		return nil, err
	}
	if len(res.Value) == 0 {
		return nil, fmt.Errorf("%w: no bundle status", ErrMalformedResponse)
	}
	return parseFinalStatus(res.Value[0])
}
