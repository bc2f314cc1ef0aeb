package utils

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/vitwit/walletpay/types"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	_ = validate.RegisterValidation("amount", validateAmountTag)
}

func validateAmountTag(fl validator.FieldLevel) bool {
	_, err := ValidateAmount(fl.Field().String())
	return err == nil
}

// ParsePaymentRequest parses and validates a PaymentRequest from JSON.
func ParsePaymentRequest(data []byte) (*types.PaymentRequest, error) {
	var req types.PaymentRequest

	if err := json.Unmarshal(data, &req); err != nil {
		return nil, types.NewPaymentError(types.KindInvalidRequest, "failed to parse payment request", err)
	}

	if err := validate.Struct(&req); err != nil {
		if failedTag(err, "amount") {
			return nil, types.NewPaymentError(types.KindInvalidAmount, fmt.Sprintf("invalid price %q", req.PriceDecimal), err)
		}
		return nil, types.NewPaymentError(types.KindInvalidRequest, "validation failed", err)
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	return &req, nil
}

// failedTag reports whether err holds a field error raised by tag.
func failedTag(err error, tag string) bool {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return false
	}
	for _, fe := range fieldErrs {
		if fe.Tag() == tag {
			return true
		}
	}
	return false
}

// ParseConfig parses Config from JSON and fills unset durations with defaults.
func ParseConfig(data []byte) (*types.Config, error) {
	var config types.Config

	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := ValidateConfig(&config); err != nil {
		return nil, err
	}

	return config.WithDefaults(), nil
}

// ValidateConfig checks struct tags plus the chain keys of the Chains map.
func ValidateConfig(config *types.Config) error {
	if config == nil {
		return fmt.Errorf("config is required")
	}

	if err := validate.Struct(config); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	for chain := range config.Chains {
		if !chain.IsValid() {
			return fmt.Errorf("config validation failed: unsupported chain %q", chain)
		}
	}

	return nil
}

// SerializeOutcome converts a PaymentOutcome to JSON.
func SerializeOutcome(outcome *types.PaymentOutcome) ([]byte, error) {
	return json.Marshal(outcome)
}
