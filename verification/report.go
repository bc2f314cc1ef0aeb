package verification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vitwit/walletpay/types"
)

const (
	walletRejectionPrefix = "rejected by wallet: "
	chainRejectionPrefix  = "rejected by chain: "
	cancelledDetail       = "cancelled"
)

// Family groups outcomes by what the user should do next.
type Family int

const (
	// FamilyNone is used for succeeded outcomes.
	FamilyNone Family = iota
	// FamilyAction means the user needs to connect or approve something.
	FamilyAction
	// FamilyRejected means the network or chain refused the payment.
	FamilyRejected
	// FamilyUnknown means the outcome could not be determined locally.
	FamilyUnknown
)

// Reporter maps adapter results and errors onto PaymentOutcome values.
// It holds no state.
type Reporter struct{}

func NewReporter() *Reporter {
	return &Reporter{}
}

// Succeeded reports a confirmed transaction.
func (r *Reporter) Succeeded(chain types.ChainKind, id string) *types.PaymentOutcome {
	return &types.PaymentOutcome{
		Status:     types.StatusSucceeded,
		Chain:      chain,
		Identifier: id,
	}
}

// FromError reports a failed attempt. id is the transaction identifier when
// the failure happened after submission, empty otherwise.
func (r *Reporter) FromError(chain types.ChainKind, id string, err error) *types.PaymentOutcome {
	kind, detail := classify(err)
	return &types.PaymentOutcome{
		Status:     types.StatusFailed,
		Chain:      chain,
		Identifier: id,
		Kind:       kind,
		Detail:     detail,
	}
}

func classify(err error) (types.ErrorKind, string) {
	if err == nil {
		return types.KindSubmissionFailed, "unknown error"
	}

	var pe *types.PaymentError
	if errors.As(err, &pe) {
		switch pe.Kind {
		case types.KindUserRejected:
			return pe.Kind, withPrefix(walletRejectionPrefix, pe.Detail())
		case types.KindOnChainFailure:
			return pe.Kind, withPrefix(chainRejectionPrefix, pe.Detail())
		case types.KindCancelled:
			return pe.Kind, cancelledDetail
		default:
			return pe.Kind, pe.Detail()
		}
	}

	switch {
	case errors.Is(err, context.Canceled):
		return types.KindCancelled, cancelledDetail
	case errors.Is(err, context.DeadlineExceeded):
		return types.KindConfirmationTimeout, "confirmation timed out"
	}

	return types.KindSubmissionFailed, err.Error()
}

func withPrefix(prefix, detail string) string {
	if strings.HasPrefix(detail, prefix) {
		return detail
	}
	return prefix + detail
}

// FamilyOf returns the message family for kind.
func FamilyOf(kind types.ErrorKind) Family {
	switch kind {
	case "":
		return FamilyNone
	case types.KindProviderUnavailable, types.KindUserRejected, types.KindNotConnected, types.KindBusy:
		return FamilyAction
	case types.KindConfirmationTimeout, types.KindCancelled:
		return FamilyUnknown
	default:
		return FamilyRejected
	}
}

// Message renders outcome for display. Timeouts and cancellations never
// claim the transaction failed.
func (r *Reporter) Message(outcome *types.PaymentOutcome) string {
	if outcome == nil {
		return ""
	}
	if outcome.Succeeded() {
		return fmt.Sprintf("Payment confirmed. Transaction: %s", outcome.Identifier)
	}

	switch FamilyOf(outcome.Kind) {
	case FamilyAction:
		return actionMessage(outcome)
	case FamilyUnknown:
		return unknownMessage(outcome)
	default:
		return rejectedMessage(outcome)
	}
}

// actionMessage tells the user what to connect or approve.
func actionMessage(outcome *types.PaymentOutcome) string {
	switch outcome.Kind {
	case types.KindProviderUnavailable:
		return fmt.Sprintf("No %s wallet was found. Install or enable one to continue.", outcome.Chain.Symbol())
	case types.KindNotConnected:
		return "Connect your wallet before purchasing."
	case types.KindUserRejected:
		return "The request was declined in your wallet. Approve it to continue."
	default:
		return "Another wallet operation is in progress. Wait for it to finish."
	}
}

// rejectedMessage reports a request, network or chain refusal.
func rejectedMessage(outcome *types.PaymentOutcome) string {
	switch outcome.Kind {
	case types.KindInvalidAmount, types.KindInvalidRequest:
		return fmt.Sprintf("The payment request is invalid: %s", outcome.Detail)
	case types.KindNetworkError:
		return fmt.Sprintf("The network could not be reached: %s", outcome.Detail)
	case types.KindOnChainFailure:
		return fmt.Sprintf("The transaction %s was rejected by the chain: %s", outcome.Identifier, strings.TrimPrefix(outcome.Detail, chainRejectionPrefix))
	default:
		return fmt.Sprintf("The transaction could not be submitted: %s", outcome.Detail)
	}
}

// unknownMessage never claims the transaction failed.
func unknownMessage(outcome *types.PaymentOutcome) string {
	if outcome.Kind == types.KindCancelled {
		if outcome.Identifier == "" {
			return "The payment was cancelled before anything was sent."
		}
		return fmt.Sprintf("Stopped waiting for transaction %s. Cancelling is local only and the transaction may still complete.", outcome.Identifier)
	}
	return fmt.Sprintf("We could not confirm transaction %s in time. It may still complete; check it before paying again.", outcome.Identifier)
}
