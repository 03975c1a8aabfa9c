package pumpfun

import (
	"bytes"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	solanago "github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"

	"dealer-scan/internal/solana"
)

var (
	programKey        = solanago.MustPublicKeyFromBase58(ProgramID)
	globalKey         = solanago.MustPublicKeyFromBase58(GlobalAccount)
	feeRecipientKey   = solanago.MustPublicKeyFromBase58(FeeRecipient)
	eventAuthorityKey = solanago.MustPublicKeyFromBase58(EventAuthority)
	systemProgramKey  = solanago.MustPublicKeyFromBase58(solana.SystemProgramID)
	tokenProgramKey   = solanago.MustPublicKeyFromBase58(solana.TokenProgramID)
	ataProgramKey     = solanago.MustPublicKeyFromBase58(solana.AssociatedTokenProgram)
	rentSysvarKey     = solanago.MustPublicKeyFromBase58(solana.RentSysvarID)
)

// SwapParams describes a single buy or sell against a bonding curve.
type SwapParams struct {
	IsBuy bool
	Owner solanago.PublicKey
	Mint  solanago.PublicKey
	// TokenAmount is the exact token amount to buy or sell, in base units.
	TokenAmount uint64
	// SolAmountBound is the max lamports to spend on buy or min lamports to receive on sell.
	SolAmountBound uint64
	// CreateATA prepends creation of the owner's associated token account on buys.
	CreateATA bool
}

// SwapAccounts are the derived accounts a swap touches.
type SwapAccounts struct {
	BondingCurve           solanago.PublicKey
	AssociatedBondingCurve solanago.PublicKey
	OwnerTokenAccount      solanago.PublicKey
}

// DeriveSwapAccounts derives the bonding curve, its token vault and the owner's token account.
func DeriveSwapAccounts(owner, mint solanago.PublicKey) (SwapAccounts, error) {
	curve, err := BondingCurveAddress(mint)
	if err != nil {
		return SwapAccounts{}, err
	}
	vault, err := associatedTokenAddress(curve, mint)
	if err != nil {
		return SwapAccounts{}, fmt.Errorf("associated bonding curve: %w", err)
	}
	ata, err := associatedTokenAddress(owner, mint)
	if err != nil {
		return SwapAccounts{}, fmt.Errorf("owner token account: %w", err)
	}
	return SwapAccounts{
		BondingCurve:           curve,
		AssociatedBondingCurve: vault,
		OwnerTokenAccount:      ata,
	}, nil
}

// BondingCurveAddress derives the bonding curve PDA of mint.
func BondingCurveAddress(mint solanago.PublicKey) (solanago.PublicKey, error) {
	key, _, err := solana.FindProgramAddress([][]byte{[]byte(bondingCurveSeed), mint.Bytes()}, programKey.Bytes())
	if err != nil {
		return solanago.PublicKey{}, fmt.Errorf("bonding curve address: %w", err)
	}
	return solanago.PublicKeyFromBytes(key), nil
}

func associatedTokenAddress(owner, mint solanago.PublicKey) (solanago.PublicKey, error) {
	key, err := solana.FindAssociatedTokenAddress(owner.Bytes(), mint.Bytes())
	if err != nil {
		return solanago.PublicKey{}, err
	}
	return solanago.PublicKeyFromBytes(key), nil
}

// BuildSwapInstructions returns the instructions for a swap: an optional
// associated token account creation followed by the program buy or sell.
// A zero token amount yields no swap instruction.
func BuildSwapInstructions(p SwapParams) ([]solanago.Instruction, error) {
	if p.Owner.IsZero() || p.Mint.IsZero() {
		return nil, fmt.Errorf("swap params: owner and mint are required")
	}

	accts, err := DeriveSwapAccounts(p.Owner, p.Mint)
	if err != nil {
		return nil, err
	}

	var out []solanago.Instruction
	if p.IsBuy && p.CreateATA {
		out = append(out, associatedtokenaccount.NewCreateInstruction(p.Owner, p.Owner, p.Mint).Build())
	}

	if p.TokenAmount > 0 {
		data, err := encodeSwapData(p.IsBuy, p.TokenAmount, p.SolAmountBound)
		if err != nil {
			return nil, err
		}
		out = append(out, solanago.NewInstruction(programKey, swapAccountMetas(p, accts), data))
	}

	if len(out) == 0 {
		return nil, ErrNoOp
	}
	return out, nil
}

func swapAccountMetas(p SwapParams, accts SwapAccounts) solanago.AccountMetaSlice {
	metas := solanago.AccountMetaSlice{
		solanago.NewAccountMeta(globalKey, false, false),
		solanago.NewAccountMeta(feeRecipientKey, true, false),
		solanago.NewAccountMeta(p.Mint, false, false),
		solanago.NewAccountMeta(accts.BondingCurve, true, false),
		solanago.NewAccountMeta(accts.AssociatedBondingCurve, true, false),
		solanago.NewAccountMeta(accts.OwnerTokenAccount, true, false),
		solanago.NewAccountMeta(p.Owner, true, true),
		solanago.NewAccountMeta(systemProgramKey, false, false),
	}
	if p.IsBuy {
		metas = append(metas,
			solanago.NewAccountMeta(tokenProgramKey, false, false),
			solanago.NewAccountMeta(rentSysvarKey, false, false),
		)
	} else {
		metas = append(metas,
			solanago.NewAccountMeta(ataProgramKey, false, false),
			solanago.NewAccountMeta(tokenProgramKey, false, false),
		)
	}
	return append(metas,
		solanago.NewAccountMeta(eventAuthorityKey, false, false),
		solanago.NewAccountMeta(programKey, false, false),
	)
}

// encodeSwapData writes discriminator, token amount and SOL bound as little-endian u64s.
func encodeSwapData(isBuy bool, tokenAmount, solBound uint64) ([]byte, error) {
	method := SellDiscriminator
	if isBuy {
		method = BuyDiscriminator
	}

	buf := new(bytes.Buffer)
	enc := bin.NewBinEncoder(buf)
	for _, v := range []uint64{method, tokenAmount, solBound} {
		if err := enc.WriteUint64(v, binary.LittleEndian); err != nil {
			return nil, fmt.Errorf("encode swap data: %w", err)
		}
	}
	return buf.Bytes(), nil
}
