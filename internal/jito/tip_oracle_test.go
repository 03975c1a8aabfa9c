package jito

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealer-scan/internal/solana"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.DebugLevel)
	return logrus.NewEntry(l)
}

const tipFrame = `[{"time":"2024-12-19T13:49:12Z","landed_tips_25th_percentile":0.000010000000000000001,"landed_tips_50th_percentile":0.00003,"landed_tips_75th_percentile":0.0001,"landed_tips_95th_percentile":0.0015,"landed_tips_99th_percentile":0.0107,"ema_landed_tips_50th_percentile":0.000031}]`

func TestTipOracle_Tip(t *testing.T) {
	o := NewTipOracle("ws://unused", testLogger())

	_, err := o.Tip(50)
	assert.ErrorIs(t, err, ErrNoData)

	o.Set(TipPercentiles{P25: 1, P50: 2, P75: 3, P95: 4, P99: 5, EMAP50: 6})

	for p, want := range map[int]float64{25: 1, 50: 2, 75: 3, 95: 4, 99: 5} {
		got, err := o.Tip(p)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	for _, p := range []int{0, 10, 51, 90, 100} {
		_, err := o.Tip(p)
		assert.ErrorIs(t, err, ErrInvalidPercentile, "percentile %d", p)
	}
}

func TestTipOracle_InvalidPercentileBeforeData(t *testing.T) {
	o := NewTipOracle("ws://unused", testLogger())
	_, err := o.Tip(42)
	assert.ErrorIs(t, err, ErrInvalidPercentile)
}

func TestTipOracle_Run(t *testing.T) {
	frames := []string{
		`garbage`,
		`[]`,
		tipFrame,
		`{"not":"an array"}`,
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer c.Close()
		for _, f := range frames {
			if err := c.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		c.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}))
	defer server.Close()

	o := NewTipOracle("ws"+strings.TrimPrefix(server.URL, "http"), testLogger())
	err := o.Run(context.Background())
	assert.ErrorIs(t, err, solana.ErrTransportClosed)

	snap, ok := o.Snapshot()
	require.True(t, ok)
	assert.Equal(t, "2024-12-19T13:49:12Z", snap.Time)
	assert.Equal(t, 0.00003, snap.P50)
	assert.Equal(t, 0.0107, snap.P99)
	assert.Equal(t, 0.000031, snap.EMAP50)
}

func TestTipOracle_RunCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	o := NewTipOracle("ws"+strings.TrimPrefix(server.URL, "http"), testLogger())
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- o.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
