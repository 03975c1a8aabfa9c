package solana

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// PublicKeyLength is the size of an ed25519 public key.
const PublicKeyLength = 32

const (
	maxSeeds      = 16
	maxSeedLength = 32
	pdaMarker     = "ProgramDerivedAddress"
)

// Well-known program IDs.
const (
	SystemProgramID        = "11111111111111111111111111111111"
	TokenProgramID         = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	AssociatedTokenProgram = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"
	RentSysvarID           = "SysvarRent111111111111111111111111111111111"
)

var errNoViableBump = errors.New("unable to find a viable program address bump seed")

// DecodeAddress decodes a base58 public key.
func DecodeAddress(address string) ([]byte, error) {
	b, err := base58.Decode(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, address, err)
	}
	if len(b) != PublicKeyLength {
		return nil, fmt.Errorf("%w: %q decodes to %d bytes", ErrInvalidAddress, address, len(b))
	}
	return b, nil
}

// ValidateAddress checks that address is a well-formed base58 public key.
func ValidateAddress(address string) error {
	_, err := DecodeAddress(address)
	return err
}

// EncodeAddress encodes a 32-byte key as base58.
func EncodeAddress(key []byte) string {
	return base58.Encode(key)
}

// FindProgramAddress derives a Program Derived Address and its bump seed.
// The PDA is sha256(seeds || bump || programID || "ProgramDerivedAddress")
// for the highest bump whose hash is not a valid ed25519 point.
func FindProgramAddress(seeds [][]byte, programID []byte) ([]byte, uint8, error) {
	if len(seeds) > maxSeeds-1 {
		return nil, 0, fmt.Errorf("too many seeds: %d", len(seeds))
	}
	for _, s := range seeds {
		if len(s) > maxSeedLength {
			return nil, 0, fmt.Errorf("seed longer than %d bytes", maxSeedLength)
		}
	}
	if len(programID) != PublicKeyLength {
		return nil, 0, fmt.Errorf("%w: program id has %d bytes", ErrInvalidAddress, len(programID))
	}

	for bump := byte(255); bump > 0; bump-- {
		h := sha256.New()
		for _, seed := range seeds {
			h.Write(seed)
		}
		h.Write([]byte{bump})
		h.Write(programID)
		h.Write([]byte(pdaMarker))
		sum := h.Sum(nil)

		if !isOnCurve(sum) {
			return sum, bump, nil
		}
	}
	return nil, 0, errNoViableBump
}

// FindAssociatedTokenAddress derives the associated token account of owner for mint.
func FindAssociatedTokenAddress(owner, mint []byte) ([]byte, error) {
	if len(owner) != PublicKeyLength || len(mint) != PublicKeyLength {
		return nil, fmt.Errorf("%w: owner and mint must be %d bytes", ErrInvalidAddress, PublicKeyLength)
	}
	tokenProgram, _ := DecodeAddress(TokenProgramID)
	ataProgram, _ := DecodeAddress(AssociatedTokenProgram)

	key, _, err := FindProgramAddress([][]byte{owner, tokenProgram, mint}, ataProgram)
	if err != nil {
		return nil, fmt.Errorf("derive associated token address: %w", err)
	}
	return key, nil
}

func isOnCurve(point []byte) bool {
	if len(point) != PublicKeyLength {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
