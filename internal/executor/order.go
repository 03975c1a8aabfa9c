package executor

import (
	"fmt"

	"github.com/shopspring/decimal"

	"dealer-scan/internal/domain"
)

// BuyOrder quotes a buy of solIn lamports against curve. The SOL bound is
// solIn raised by slippagePct.
func BuyOrder(curve domain.BondingCurveAccount, mint string, solIn uint64, slippagePct float64) (SwapRequest, error) {
	if curve.Complete {
		return SwapRequest{}, fmt.Errorf("bonding curve of %s is complete", mint)
	}
	tokens := curve.BuyQuote(solIn)
	if tokens == 0 {
		return SwapRequest{}, fmt.Errorf("buy %s: %w", mint, ErrNoLiquidity)
	}
	return SwapRequest{
		Mint:           mint,
		Side:           domain.SideBuy,
		TokenAmount:    tokens,
		SolAmountBound: withSlippage(solIn, slippagePct),
	}, nil
}

// SellOrder quotes a sell of tokens against curve. The SOL bound is the
// quoted output lowered by slippagePct.
func SellOrder(curve domain.BondingCurveAccount, mint string, tokens uint64, slippagePct float64) SwapRequest {
	return SwapRequest{
		Mint:           mint,
		Side:           domain.SideSell,
		TokenAmount:    tokens,
		SolAmountBound: withSlippage(curve.SellQuote(tokens), -slippagePct),
	}
}

// withSlippage scales lamports by (1 + pct/100), truncating and flooring at zero.
func withSlippage(lamports uint64, pct float64) uint64 {
	factor := decimal.NewFromInt(1).Add(decimal.NewFromFloat(pct).Shift(-2))
	v := decimal.NewFromUint64(lamports).Mul(factor).Truncate(0)
	if v.Sign() <= 0 {
		return 0
	}
	return v.BigInt().Uint64()
}
