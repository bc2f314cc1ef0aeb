package utils

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vitwit/walletpay/types"
)

// maxNativeBits is the widest integer any supported chain can carry (EVM uint256).
const maxNativeBits = 256

// ValidateAmount checks that amount is a non-negative finite decimal.
func ValidateAmount(amount string) (*decimal.Decimal, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, types.NewPaymentError(types.KindInvalidAmount, "amount cannot be empty", nil)
	}

	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, types.NewPaymentError(types.KindInvalidAmount, fmt.Sprintf("invalid amount format %q", amount), err)
	}

	if dec.IsNegative() {
		return nil, types.NewPaymentError(types.KindInvalidAmount, fmt.Sprintf("amount cannot be negative: %s", amount), nil)
	}

	return &dec, nil
}

// ToNativeAmount scales a decimal price string by 10^exponent and truncates
// toward zero. Inputs with at most exponent fractional digits convert exactly.
func ToNativeAmount(price string, exponent int32) (*big.Int, error) {
	dec, err := ValidateAmount(price)
	if err != nil {
		return nil, err
	}

	// Reject absurd scientific notation before materialising the integer.
	if int64(dec.Exponent())+int64(exponent) > 2*maxNativeBits {
		return nil, types.NewPaymentError(types.KindInvalidAmount, fmt.Sprintf("amount %s is out of range", price), nil)
	}

	native := dec.Shift(exponent).Truncate(0).BigInt()
	if native.Sign() < 0 || native.BitLen() > maxNativeBits {
		return nil, types.NewPaymentError(types.KindInvalidAmount, fmt.Sprintf("amount %s is not representable", price), nil)
	}

	return native, nil
}

// FromNativeAmount formats a smallest-unit amount as a decimal string.
func FromNativeAmount(amount *big.Int, exponent int32) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -exponent).String()
}

// NativeUint64 narrows amount for chains whose transfer amount is a u64
// (lamports, MIST).
func NativeUint64(amount *big.Int) (uint64, error) {
	if amount == nil || amount.Sign() < 0 || !amount.IsUint64() {
		return 0, types.NewPaymentError(types.KindInvalidAmount, fmt.Sprintf("amount %v does not fit in u64", amount), nil)
	}
	return amount.Uint64(), nil
}

// FormatBalance renders a native balance with its symbol, e.g. "1.5 SUI".
func FormatBalance(chain types.ChainKind, amount *big.Int) string {
	return FromNativeAmount(amount, chain.Exponent()) + " " + chain.Symbol()
}

var (
	hexPattern    = regexp.MustCompile("^[0-9a-fA-F]+$")
	base58Pattern = regexp.MustCompile("^[1-9A-HJ-NP-Za-km-z]+$")
)

// ValidateTransactionID performs a shape check on a chain identifier.
func ValidateTransactionID(chain types.ChainKind, id string) error {
	if id == "" {
		return fmt.Errorf("transaction identifier cannot be empty")
	}

	switch chain {
	case types.ChainEVM:
		if !strings.HasPrefix(id, "0x") || len(id) != 66 || !hexPattern.MatchString(id[2:]) {
			return fmt.Errorf("EVM transaction hash must be 0x followed by 64 hex characters")
		}
	case types.ChainSolana:
		if len(id) < 80 || len(id) > 90 || !base58Pattern.MatchString(id) {
			return fmt.Errorf("Solana transaction signature must be 80-90 base58 characters")
		}
	case types.ChainSui:
		if len(id) < 32 || len(id) > 44 || !base58Pattern.MatchString(id) {
			return fmt.Errorf("Sui transaction digest must be 32-44 base58 characters")
		}
	default:
		return fmt.Errorf("unsupported chain %q", chain)
	}

	return nil
}

// ExplorerLink fills an explorer URL template with id.
func ExplorerLink(template, id string) string {
	if template == "" || id == "" {
		return ""
	}
	if strings.Contains(template, "%s") {
		return fmt.Sprintf(template, id)
	}
	return strings.TrimRight(template, "/") + "/" + id
}
