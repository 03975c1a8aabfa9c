package solana

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// StreamConfig configures StreamClient behavior.
type StreamConfig struct {
	// HandshakeTimeout bounds the websocket dial.
	HandshakeTimeout time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is the read deadline, extended on every frame and pong.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// Commitment is the commitment level requested for subscriptions.
	Commitment string
}

// DefaultStreamConfig returns default streaming configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		ReadTimeout:      90 * time.Second,
		WriteTimeout:     10 * time.Second,
		Commitment:       "confirmed",
	}
}

// StreamClient opens one websocket connection per subscription and forwards
// decoded notifications to the caller. It never reconnects; callers decide
// whether to restart.
type StreamClient struct {
	endpoint string
	config   StreamConfig
	logger   *logrus.Entry
}

// NewStreamClient creates a streaming client for a Solana websocket endpoint.
func NewStreamClient(endpoint string, config *StreamConfig, logger *logrus.Entry) *StreamClient {
	cfg := DefaultStreamConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &StreamClient{
		endpoint: endpoint,
		config:   cfg,
		logger:   logger.WithField("component", "stream"),
	}
}

// SubscribeLogs subscribes to logs mentioning address and forwards every
// successful transaction's logs to out. It blocks until the connection closes
// or ctx is cancelled.
func (c *StreamClient) SubscribeLogs(ctx context.Context, address string, out chan<- LogNotification) error {
	if err := ValidateAddress(address); err != nil {
		return err
	}

	req := wsRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "logsSubscribe",
		Params: []interface{}{
			map[string]interface{}{"mentions": []string{address}},
			map[string]string{"commitment": c.config.Commitment},
		},
	}

	logger := c.logger.WithFields(logrus.Fields{"method": "logsSubscribe", "address": address})

	return c.stream(ctx, req, logger, func(message []byte) error {
		notif, ok := parseLogsNotification(message)
		if !ok {
			logger.WithField("frame", truncate(message)).Trace("dropping non-notification frame")
			return nil
		}
		if notif.Err != nil {
			logger.WithField("signature", notif.Signature).Trace("dropping failed transaction logs")
			return nil
		}

		select {
		case out <- notif.LogNotification:
			logger.WithField("signature", notif.Signature).Debug("forwarded log notification")
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

// SubscribeProgram subscribes to account changes of accounts owned by the
// program at address and forwards them to out.
func (c *StreamClient) SubscribeProgram(ctx context.Context, address string, out chan<- AccountNotification) error {
	if err := ValidateAddress(address); err != nil {
		return err
	}

	req := wsRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "programSubscribe",
		Params: []interface{}{
			address,
			map[string]string{
				"commitment": c.config.Commitment,
				"encoding":   "jsonParsed",
			},
		},
	}

	logger := c.logger.WithFields(logrus.Fields{"method": "programSubscribe", "address": address})

	return c.stream(ctx, req, logger, func(message []byte) error {
		notif, ok := parseProgramNotification(message)
		if !ok {
			logger.WithField("frame", truncate(message)).Trace("dropping non-notification frame")
			return nil
		}

		select {
		case out <- notif:
			logger.WithField("pubkey", notif.Pubkey).Debug("forwarded account notification")
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

// stream dials, sends the subscription request and hands every text frame to
// handle until the connection ends.
func (c *StreamClient) stream(ctx context.Context, req wsRequest, logger *logrus.Entry, handle func([]byte) error) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: c.config.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	var closeOnce sync.Once
	closeConn := func() {
		closeOnce.Do(func() {
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(c.config.WriteTimeout))
			conn.Close()
		})
	}
	defer closeConn()

	conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := conn.WriteJSON(req); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}
	logger.Info("subscribed")

	conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	})

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.pingLoop(ctx, conn, done, closeConn)
	}()
	defer func() {
		close(done)
		wg.Wait()
	}()

	for {
		msgType, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.WithError(err).Info("connection closed")
			return fmt.Errorf("%w: %v", ErrTransportClosed, err)
		}
		if msgType != websocket.TextMessage {
			continue
		}
		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		if errResp, ok := parseErrorResponse(message); ok {
			logger.WithFields(logrus.Fields{
				"code":    errResp.Code,
				"message": errResp.Message,
			}).Warn("subscription error response")
			continue
		}

		if err := handle(message); err != nil {
			return err
		}
	}
}

// pingLoop sends periodic ping frames and tears the connection down when ctx ends.
func (c *StreamClient) pingLoop(ctx context.Context, conn *websocket.Conn, done <-chan struct{}, closeConn func()) {
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			closeConn()
			return
		case <-ticker.C:
			deadline := time.Now().Add(c.config.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				// Reader observes the broken connection.
				c.logger.WithError(err).Debug("ping failed")
			}
		}
	}
}

func truncate(b []byte) string {
	const limit = 256
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}

// WebSocket message types

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsErrorResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      uint64      `json:"id"`
	Error   *wsRPCError `json:"error"`
}

type wsRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type wsContext struct {
	Slot int64 `json:"slot"`
}

type wsLogsNotification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  *struct {
		Subscription int64 `json:"subscription"`
		Result       struct {
			Context *wsContext   `json:"context"`
			Value   *wsLogsValue `json:"value"`
		} `json:"result"`
	} `json:"params"`
}

type wsLogsValue struct {
	Signature string          `json:"signature"`
	Logs      []string        `json:"logs"`
	Err       json.RawMessage `json:"err"`
}

type wsProgramNotification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  *struct {
		Subscription int64 `json:"subscription"`
		Result       struct {
			Context *wsContext      `json:"context"`
			Value   *wsProgramValue `json:"value"`
		} `json:"result"`
	} `json:"params"`
}

type wsProgramValue struct {
	Pubkey  string `json:"pubkey"`
	Account *struct {
		Lamports   uint64          `json:"lamports"`
		Owner      string          `json:"owner"`
		Data       json.RawMessage `json:"data"`
		Executable bool            `json:"executable"`
		RentEpoch  uint64          `json:"rentEpoch"`
	} `json:"account"`
}

type logsNotification struct {
	LogNotification
	Err json.RawMessage
}

func parseErrorResponse(message []byte) (*wsRPCError, bool) {
	var resp wsErrorResponse
	if err := json.Unmarshal(message, &resp); err != nil || resp.Error == nil {
		return nil, false
	}
	return resp.Error, true
}

func parseLogsNotification(message []byte) (logsNotification, bool) {
	var notif wsLogsNotification
	if err := json.Unmarshal(message, &notif); err != nil {
		return logsNotification{}, false
	}
	if notif.Method != "logsNotification" || notif.Params == nil || notif.Params.Result.Value == nil {
		return logsNotification{}, false
	}

	value := notif.Params.Result.Value
	out := logsNotification{
		LogNotification: LogNotification{
			Signature: value.Signature,
			Logs:      value.Logs,
		},
	}
	if notif.Params.Result.Context != nil {
		out.Slot = notif.Params.Result.Context.Slot
	}
	if len(value.Err) > 0 && string(value.Err) != "null" {
		out.Err = value.Err
	}
	return out, true
}

func parseProgramNotification(message []byte) (AccountNotification, bool) {
	var notif wsProgramNotification
	if err := json.Unmarshal(message, &notif); err != nil {
		return AccountNotification{}, false
	}
	if notif.Method != "programNotification" || notif.Params == nil {
		return AccountNotification{}, false
	}
	value := notif.Params.Result.Value
	if value == nil || value.Account == nil || value.Pubkey == "" {
		return AccountNotification{}, false
	}

	out := AccountNotification{
		Pubkey:     value.Pubkey,
		Lamports:   value.Account.Lamports,
		Owner:      value.Account.Owner,
		Executable: value.Account.Executable,
		RentEpoch:  value.Account.RentEpoch,
	}
	if notif.Params.Result.Context != nil {
		out.Slot = notif.Params.Result.Context.Slot
	}

	data, err := decodeAccountData(value.Account.Data)
	if err != nil {
		return AccountNotification{}, false
	}
	if data != nil {
		out.Data = data
	} else {
		out.ParsedData = value.Account.Data
	}
	return out, true
}

var errUnsupportedEncoding = errors.New("unsupported account data encoding")

// decodeAccountData returns bytes for ["<payload>", "base64"] data and nil for
// any parsed representation.
func decodeAccountData(raw json.RawMessage) ([]byte, error) {
	var pair []string
	if err := json.Unmarshal(raw, &pair); err != nil {
		return nil, nil
	}
	if len(pair) != 2 {
		return nil, fmt.Errorf("%w: %d elements", errUnsupportedEncoding, len(pair))
	}
	if pair[1] != "base64" {
		return nil, fmt.Errorf("%w: %s", errUnsupportedEncoding, pair[1])
	}
	return base64.StdEncoding.DecodeString(pair[0])
}
