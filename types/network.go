package types

import (
	"fmt"
	"strings"
)

// ChainKind selects which adapter/session pair is active for a purchase flow.
type ChainKind string

const (
	ChainEVM    ChainKind = "evm"
	ChainSolana ChainKind = "solana"
	ChainSui    ChainKind = "sui"
)

// SupportedChains lists every chain with an adapter variant.
var SupportedChains = []ChainKind{ChainEVM, ChainSolana, ChainSui}

// Exponent returns the number of decimals of the chain's native unit
// (wei, lamports, MIST).
func (c ChainKind) Exponent() int32 {
	switch c {
	case ChainEVM:
		return 18
	case ChainSolana, ChainSui:
		return 9
	default:
		return 0
	}
}

// Symbol returns the native asset symbol.
func (c ChainKind) Symbol() string {
	switch c {
	case ChainEVM:
		return "ETH"
	case ChainSolana:
		return "SOL"
	case ChainSui:
		return "SUI"
	default:
		return ""
	}
}

// NativeUnit returns the name of the smallest indivisible unit.
func (c ChainKind) NativeUnit() string {
	switch c {
	case ChainEVM:
		return "wei"
	case ChainSolana:
		return "lamports"
	case ChainSui:
		return "MIST"
	default:
		return ""
	}
}

func (c ChainKind) IsValid() bool {
	return c == ChainEVM || c == ChainSolana || c == ChainSui
}

func (c ChainKind) String() string {
	return string(c)
}

// ParseChainKind accepts the canonical names plus the common asset aliases.
func ParseChainKind(s string) (ChainKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "evm", "eth", "ethereum":
		return ChainEVM, nil
	case "solana", "sol":
		return ChainSolana, nil
	case "sui":
		return ChainSui, nil
	}
	return "", &PaymentError{
		Kind:    KindInvalidRequest,
		Message: fmt.Sprintf("unsupported chain: %q", s),
	}
}
