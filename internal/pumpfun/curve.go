package pumpfun

import (
	"context"
	"encoding/base64"
	"fmt"

	solanago "github.com/gagliardetto/solana-go"

	"dealer-scan/internal/domain"
	"dealer-scan/internal/solana"
)

// GetBondingCurveAccount fetches and decodes the bonding curve state of mint.
func GetBondingCurveAccount(ctx context.Context, rpc solana.RPCClient, mint string) (solanago.PublicKey, domain.BondingCurveAccount, error) {
	mintKey, err := solanago.PublicKeyFromBase58(mint)
	if err != nil {
		return solanago.PublicKey{}, domain.BondingCurveAccount{}, fmt.Errorf("%w: %v", solana.ErrInvalidAddress, err)
	}

	curve, err := BondingCurveAddress(mintKey)
	if err != nil {
		return solanago.PublicKey{}, domain.BondingCurveAccount{}, err
	}

	info, err := rpc.GetAccountInfo(ctx, curve.String())
	if err != nil {
		return curve, domain.BondingCurveAccount{}, fmt.Errorf("get bonding curve %s: %w", curve, err)
	}
	if info == nil {
		return curve, domain.BondingCurveAccount{}, fmt.Errorf("%w: %s", ErrAccountNotFound, curve)
	}

	data, err := base64.StdEncoding.DecodeString(info.Data)
	if err != nil {
		return curve, domain.BondingCurveAccount{}, fmt.Errorf("%w: account data: %v", ErrMalformedInput, err)
	}

	acc, err := DecodeBondingCurve(data)
	if err != nil {
		return curve, domain.BondingCurveAccount{}, err
	}
	return curve, acc, nil
}
