// Package pumpfun decodes pump.fun bonding-curve program data and builds swap instructions.
package pumpfun

// Program accounts.
const (
	ProgramID      = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"
	GlobalAccount  = "4wTV1YmiEkRvAtNtsSGPtUrqRYQMe5SKy2uB4Jjaxnjf"
	FeeRecipient   = "CebN5WGQ4jvEPvsVU4EoHEpgzq1VV7AbicfhtW4xC9iM"
	EventAuthority = "Ce6TQqeHC9p8KetsN6JsjHK7UTZk7nasjjnr7XxXp9F1"
)

// Instruction discriminators.
const (
	BuyDiscriminator  uint64 = 16927863322537952870
	SellDiscriminator uint64 = 12502976635542562355
)

// Log markers.
const (
	// BuyInstructionLog marks a log set containing a buy instruction.
	BuyInstructionLog = "Program log: Instruction: Buy"
	// TradeEventLogPrefix marks the line carrying the encoded trade event.
	TradeEventLogPrefix = "Program data: vdt"
	programDataPrefix   = "Program data: "
)

const bondingCurveSeed = "bonding-curve"

// BondingCurveAccountSize is the minimum length of bonding curve account data.
const BondingCurveAccountSize = 8*6 + 1
