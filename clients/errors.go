package clients

import (
	"errors"
	"strings"

	"github.com/vitwit/walletpay/types"
)

// CodeUserRejected is the EIP-1193 provider error code for a declined request.
// Solana and Sui wallet adapters reuse it.
const CodeUserRejected = 4001

// rejectionPhrases are matched case-insensitively against provider messages.
var rejectionPhrases = []string{
	"user rejected",
	"rejected by user",
	"rejected the request",
	"request rejected",
	"user declined",
	"declined",
	"denied",
	"user cancelled",
	"user canceled",
}

// coder is implemented by JSON-RPC errors such as go-ethereum's rpc.Error.
type coder interface {
	ErrorCode() int
}

// IsUserRejection reports whether err means the user declined in the wallet.
func IsUserRejection(err error) bool {
	if err == nil {
		return false
	}

	var pe *types.PaymentError
	if errors.As(err, &pe) && pe.Kind == types.KindUserRejected {
		return true
	}

	var c coder
	if errors.As(err, &c) && c.ErrorCode() == CodeUserRejected {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, phrase := range rejectionPhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

func classifyConnectError(err error) error {
	if IsUserRejection(err) {
		return types.NewPaymentError(types.KindUserRejected, "connection rejected", err)
	}
	var pe *types.PaymentError
	if errors.As(err, &pe) {
		return err
	}
	return types.NewPaymentError(types.KindProviderUnavailable, "wallet connect failed", err)
}

func classifySubmitError(err error) error {
	if IsUserRejection(err) {
		return types.NewPaymentError(types.KindUserRejected, "signing rejected", err)
	}
	var pe *types.PaymentError
	if errors.As(err, &pe) {
		return err
	}
	return types.NewPaymentError(types.KindSubmissionFailed, "broadcast failed", err)
}

func networkError(msg string, err error) error {
	return types.NewPaymentError(types.KindNetworkError, msg, err)
}

func onChainFailure(msg string) error {
	return types.NewPaymentError(types.KindOnChainFailure, msg, nil)
}

func invalidRecipient(chain types.ChainKind, addr string, err error) error {
	return types.NewPaymentError(types.KindInvalidRequest, "invalid "+string(chain)+" recipient address "+addr, err)
}
