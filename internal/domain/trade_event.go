package domain

import "math/big"

// Lamport and token-unit scales used by the bonding-curve program.
const (
	LamportsPerSOL  = 1_000_000_000
	TokenUnitScale  = 1_000_000
	NativeDecimals  = 9
	TradeEventBytes = 129
)

// TradeEvent is a decoded pump.fun trade log record. Immutable once decoded.
type TradeEvent struct {
	Mint                 string // token mint address (base58)
	SolAmount            uint64 // lamports paid or received
	TokenAmount          uint64 // token base units
	IsBuy                bool
	User                 string // trader address (base58)
	Timestamp            int64  // unix seconds
	VirtualSolReserves   uint64
	VirtualTokenReserves uint64
	RealSolReserves      uint64
	RealTokenReserves    uint64
}

// SOL returns the traded SOL amount.
func (e TradeEvent) SOL() float64 {
	return float64(e.SolAmount) / LamportsPerSOL
}

// Price returns the spot price in SOL per token implied by the virtual reserves.
func (e TradeEvent) Price() float64 {
	return curvePrice(e.VirtualSolReserves, e.VirtualTokenReserves)
}

// BondingCurveAccount is the on-chain bonding curve state of a token.
// It is a read-only projection and is re-fetched per query.
type BondingCurveAccount struct {
	Discriminator        uint64
	VirtualTokenReserves uint64
	VirtualSolReserves   uint64
	RealTokenReserves    uint64
	RealSolReserves      uint64
	TokenTotalSupply     uint64
	Complete             bool
}

// Price returns the spot price in SOL per token.
func (a BondingCurveAccount) Price() float64 {
	return curvePrice(a.VirtualSolReserves, a.VirtualTokenReserves)
}

// BuyQuote returns the tokens received for solIn lamports under the
// constant-product curve, ignoring fees.
func (a BondingCurveAccount) BuyQuote(solIn uint64) uint64 {
	if solIn == 0 || a.VirtualSolReserves == 0 || a.VirtualTokenReserves == 0 {
		return 0
	}
	out := swapOut(a.VirtualSolReserves, a.VirtualTokenReserves, solIn)
	if out > a.RealTokenReserves {
		out = a.RealTokenReserves
	}
	return out
}

// SellQuote returns the lamports received for tokensIn under the
// constant-product curve, ignoring fees.
func (a BondingCurveAccount) SellQuote(tokensIn uint64) uint64 {
	if tokensIn == 0 || a.VirtualSolReserves == 0 || a.VirtualTokenReserves == 0 {
		return 0
	}
	return swapOut(a.VirtualTokenReserves, a.VirtualSolReserves, tokensIn)
}

// swapOut computes y - k/(x+dx) with k = x*y, rounding the remaining
// reserve up so the quote never overstates the output.
func swapOut(x, y, dx uint64) uint64 {
	k := new(big.Int).Mul(new(big.Int).SetUint64(x), new(big.Int).SetUint64(y))
	nx := new(big.Int).Add(new(big.Int).SetUint64(x), new(big.Int).SetUint64(dx))
	q, r := new(big.Int).QuoRem(k, nx, new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	ny := new(big.Int).SetUint64(y)
	if q.Cmp(ny) >= 0 {
		return 0
	}
	return ny.Sub(ny, q).Uint64()
}

func curvePrice(virtualSol, virtualTokens uint64) float64 {
	if virtualTokens == 0 {
		return 0
	}
	sol := float64(virtualSol) / LamportsPerSOL
	tokens := float64(virtualTokens) / TokenUnitScale
	return sol / tokens
}
