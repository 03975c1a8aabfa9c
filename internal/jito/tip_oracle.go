package jito

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"dealer-scan/internal/observability"
	"dealer-scan/internal/solana"
)

// TipPercentiles is one landed-tips snapshot from the tip stream, in SOL.
type TipPercentiles struct {
	Time   string  `json:"time"`
	P25    float64 `json:"landed_tips_25th_percentile"`
	P50    float64 `json:"landed_tips_50th_percentile"`
	P75    float64 `json:"landed_tips_75th_percentile"`
	P95    float64 `json:"landed_tips_95th_percentile"`
	P99    float64 `json:"landed_tips_99th_percentile"`
	EMAP50 float64 `json:"ema_landed_tips_50th_percentile"`
}

// Percentile returns the tip at percentile p.
func (t TipPercentiles) Percentile(p int) (float64, error) {
	switch p {
	case 25:
		return t.P25, nil
	case 50:
		return t.P50, nil
	case 75:
		return t.P75, nil
	case 95:
		return t.P95, nil
	case 99:
		return t.P99, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrInvalidPercentile, p)
	}
}

// ValidPercentile reports whether p is a supported percentile.
func ValidPercentile(p int) bool {
	_, err := TipPercentiles{}.Percentile(p)
	return err == nil
}

// TipOracle keeps the latest tip percentile snapshot from the tip stream.
// The snapshot is replaced wholesale on every update.
type TipOracle struct {
	feedURL string
	logger  *logrus.Entry

	mu     sync.RWMutex
	latest *TipPercentiles

	handshakeTimeout time.Duration
}

// NewTipOracle creates a tip oracle for the given websocket feed.
func NewTipOracle(feedURL string, logger *logrus.Entry) *TipOracle {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &TipOracle{
		feedURL:          feedURL,
		logger:           logger.WithField("component", "tip_oracle"),
		handshakeTimeout: 10 * time.Second,
	}
}

// Run connects to the tip stream and updates the snapshot until the
// connection ends or ctx is cancelled. It does not reconnect.
func (o *TipOracle) Run(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: o.handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, o.feedURL, nil)
	if err != nil {
		return fmt.Errorf("tip stream dial: %w", err)
	}
	defer conn.Close()
	o.logger.Info("connected to tip stream")

	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()

	for {
		msgType, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			o.logger.WithError(err).Info("tip stream closed")
			return fmt.Errorf("%w: %v", solana.ErrTransportClosed, err)
		}
		if msgType != websocket.TextMessage {
			continue
		}
		o.handle(message)
	}
}

func (o *TipOracle) handle(message []byte) {
	var data []TipPercentiles
	if err := json.Unmarshal(message, &data); err != nil {
		o.logger.WithError(err).Error("failed to decode tip percentiles")
		return
	}
	if len(data) == 0 {
		o.logger.Warn("received empty tip percentiles")
		return
	}
	o.Set(data[0])
	o.logger.WithFields(logrus.Fields{
		"time": data[0].Time,
		"p50":  data[0].P50,
	}).Debug("tip percentiles updated")
}

// Set replaces the current snapshot.
func (o *TipOracle) Set(t TipPercentiles) {
	o.mu.Lock()
	o.latest = &t
	o.mu.Unlock()
	observability.RecordTipUpdate()
}

// Snapshot returns the current snapshot and whether one exists.
func (o *TipOracle) Snapshot() (TipPercentiles, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.latest == nil {
		return TipPercentiles{}, false
	}
	return *o.latest, true
}

// Tip returns the landed tip at percentile in SOL.
func (o *TipOracle) Tip(percentile int) (float64, error) {
	if !ValidPercentile(percentile) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidPercentile, percentile)
	}
	snap, ok := o.Snapshot()
	if !ok {
		return 0, ErrNoData
	}
	return snap.Percentile(percentile)
}
