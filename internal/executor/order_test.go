package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealer-scan/internal/domain"
)

func TestBuyOrder(t *testing.T) {
	req, err := BuyOrder(testCurve, testMint, 100_000_000, 30)
	require.NoError(t, err)

	assert.Equal(t, testMint, req.Mint)
	assert.Equal(t, domain.SideBuy, req.Side)
	assert.Equal(t, testCurve.BuyQuote(100_000_000), req.TokenAmount)
	assert.Equal(t, uint64(130_000_000), req.SolAmountBound)
	assert.False(t, req.CreateATA)
}

func TestBuyOrder_Rejects(t *testing.T) {
	complete := testCurve
	complete.Complete = true
	_, err := BuyOrder(complete, testMint, 100_000_000, 30)
	assert.Error(t, err)

	_, err = BuyOrder(domain.BondingCurveAccount{}, testMint, 100_000_000, 30)
	assert.ErrorIs(t, err, ErrNoLiquidity)
}

func TestSellOrder(t *testing.T) {
	req := SellOrder(testCurve, testMint, 1_000_000_000, 30)

	assert.Equal(t, domain.SideSell, req.Side)
	assert.Equal(t, uint64(1_000_000_000), req.TokenAmount)
	assert.Equal(t, withSlippage(testCurve.SellQuote(1_000_000_000), -30), req.SolAmountBound)
	assert.LessOrEqual(t, req.SolAmountBound, testCurve.SellQuote(1_000_000_000))
}

func TestWithSlippage(t *testing.T) {
	tests := []struct {
		lamports uint64
		pct      float64
		want     uint64
	}{
		{100_000_000, 30, 130_000_000},
		{100_000_000, 0, 100_000_000},
		{100_000_000, -30, 70_000_000},
		{100_000_000, -100, 0},
		{100_000_000, -150, 0},
		{3, 50, 4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, withSlippage(tt.lamports, tt.pct), "withSlippage(%d, %v)", tt.lamports, tt.pct)
	}
}
