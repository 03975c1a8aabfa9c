package main

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealer-scan/internal/config"
	"dealer-scan/internal/storage/memory"
)

func TestOpenStoresDefaultsToMemory(t *testing.T) {
	st, err := openStores(context.Background(), &config.Config{}, logrus.NewEntry(logrus.New()))
	require.NoError(t, err)
	defer st.close()

	assert.IsType(t, &memory.AlarmStore{}, st.alarms)
	assert.IsType(t, &memory.TradeAttemptStore{}, st.attempts)
	assert.Nil(t, st.events)
}

func TestServeMetrics(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serveMetrics(ctx, addr, logrus.NewEntry(logrus.New())) }()

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get("http://" + addr + "/health")
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("metrics server did not stop")
	}
}
