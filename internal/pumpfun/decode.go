package pumpfun

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strings"

	bin "github.com/gagliardetto/binary"

	"dealer-scan/internal/domain"
	"dealer-scan/internal/solana"
)

// Trade event record offsets.
const (
	offMint        = 8
	offSolAmount   = 40
	offTokenAmount = 48
	offIsBuy       = 56
	offUser        = 57
	offTimestamp   = 89
	offVirtualSol  = 97
	offVirtualTok  = 105
	offRealSol     = 113
	offRealTok     = 121
)

// DecodeTradeEvent decodes a "Program data: " log line into a TradeEvent.
// The payload must hold a non-zero whole number of 129-byte records; only the
// first record is decoded.
func DecodeTradeEvent(line string) (domain.TradeEvent, error) {
	payload, ok := strings.CutPrefix(line, programDataPrefix)
	if !ok {
		return domain.TradeEvent{}, fmt.Errorf("%w: missing %q prefix", ErrMalformedInput, programDataPrefix)
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return domain.TradeEvent{}, fmt.Errorf("%w: base64: %v", ErrMalformedInput, err)
	}
	if len(data) == 0 || len(data)%domain.TradeEventBytes != 0 {
		return domain.TradeEvent{}, fmt.Errorf("%w: program data length %d", ErrMalformedInput, len(data))
	}

	rec := data[:domain.TradeEventBytes]
	le := binary.LittleEndian

	return domain.TradeEvent{
		Mint:                 solana.EncodeAddress(rec[offMint:offSolAmount]),
		SolAmount:            le.Uint64(rec[offSolAmount:]),
		TokenAmount:          le.Uint64(rec[offTokenAmount:]),
		IsBuy:                rec[offIsBuy] != 0,
		User:                 solana.EncodeAddress(rec[offUser:offTimestamp]),
		Timestamp:            int64(le.Uint64(rec[offTimestamp:])),
		VirtualSolReserves:   le.Uint64(rec[offVirtualSol:]),
		VirtualTokenReserves: le.Uint64(rec[offVirtualTok:]),
		RealSolReserves:      le.Uint64(rec[offRealSol:]),
		RealTokenReserves:    le.Uint64(rec[offRealTok:]),
	}, nil
}

// FindTradeEventLine returns the first log line carrying a trade event.
func FindTradeEventLine(logs []string) (string, bool) {
	for _, l := range logs {
		if strings.HasPrefix(l, TradeEventLogPrefix) {
			return l, true
		}
	}
	return "", false
}

// HasBuyInstruction reports whether logs contain the buy instruction line.
func HasBuyInstruction(logs []string) bool {
	for _, l := range logs {
		if l == BuyInstructionLog {
			return true
		}
	}
	return false
}

// DecodeBondingCurve decodes bonding curve account data. Trailing bytes are ignored.
func DecodeBondingCurve(data []byte) (domain.BondingCurveAccount, error) {
	if len(data) < BondingCurveAccountSize {
		return domain.BondingCurveAccount{}, fmt.Errorf("%w: bonding curve data length %d, need %d",
			ErrMalformedInput, len(data), BondingCurveAccountSize)
	}

	dec := bin.NewBorshDecoder(data)
	var acc domain.BondingCurveAccount
	fields := []*uint64{
		&acc.Discriminator,
		&acc.VirtualTokenReserves,
		&acc.VirtualSolReserves,
		&acc.RealTokenReserves,
		&acc.RealSolReserves,
		&acc.TokenTotalSupply,
	}
	for _, f := range fields {
		v, err := dec.ReadUint64(binary.LittleEndian)
		if err != nil {
			return domain.BondingCurveAccount{}, fmt.Errorf("%w: %v", ErrMalformedInput, err)
		}
		*f = v
	}
	complete, err := dec.ReadBool()
	if err != nil {
		return domain.BondingCurveAccount{}, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	acc.Complete = complete

	return acc, nil
}
