package jito

import (
	"math"

	"github.com/shopspring/decimal"

	"dealer-scan/internal/domain"
)

// MaxTipSOL caps the percentile-derived part of a tip.
const MaxTipSOL = 0.2

// TipSource provides the current landed tip at a percentile, in SOL.
type TipSource interface {
	Tip(percentile int) (float64, error)
}

// ComputeTip returns min(tip, MaxTipSOL) + extraSOL for the given percentile.
func ComputeTip(src TipSource, percentile int, extraSOL float64) (float64, error) {
	tip, err := src.Tip(percentile)
	if err != nil {
		return 0, err
	}
	return math.Min(tip, MaxTipSOL) + extraSOL, nil
}

// ToLamports converts SOL to lamports with 9 decimals, rounding half away
// from zero. Negative amounts convert to zero.
func ToLamports(sol float64) uint64 {
	if sol <= 0 || math.IsNaN(sol) {
		return 0
	}
	return uint64(decimal.NewFromFloat(sol).Shift(domain.NativeDecimals).Round(0).IntPart())
}

// ToSOL converts lamports to SOL.
func ToSOL(lamports uint64) float64 {
	f, _ := decimal.NewFromInt(int64(lamports)).Shift(-domain.NativeDecimals).Float64()
	return f
}
