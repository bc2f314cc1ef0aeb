package utils

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitwit/walletpay/types"
)

func TestParsePaymentRequest(t *testing.T) {
	req, err := ParsePaymentRequest([]byte(`{"chain":"sui","price":"1.5","recipient":"0x2"}`))
	require.NoError(t, err)
	assert.Equal(t, types.ChainSui, req.Chain)
	assert.Equal(t, "1.5", req.PriceDecimal)
	assert.Equal(t, "0x2", req.RecipientAddress)
}

func TestParsePaymentRequestInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"chain":`},
		{"unknown chain", `{"chain":"bitcoin","price":"1","recipient":"x"}`},
		{"missing recipient", `{"chain":"evm","price":"1"}`},
		{"missing price", `{"chain":"evm","recipient":"0x2"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePaymentRequest([]byte(tt.body))
			require.Error(t, err)
			assert.Equal(t, types.KindInvalidRequest, types.KindOf(err))
		})
	}
}

func TestParsePaymentRequestInvalidAmount(t *testing.T) {
	for name, body := range map[string]string{
		"negative":     `{"chain":"sui","price":"-1","recipient":"0x2"}`,
		"not a number": `{"chain":"solana","price":"abc","recipient":"x"}`,
		"hex":          `{"chain":"evm","price":"0x10","recipient":"0x2"}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePaymentRequest([]byte(body))
			require.Error(t, err)
			assert.Equal(t, types.KindInvalidAmount, types.KindOf(err))
			assert.ErrorIs(t, err, types.ErrInvalidAmount)
		})
	}
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`{
		"logLevel": "debug",
		"chains": {
			"solana": {"rpcUrl": "https://api.devnet.solana.com", "explorerUrl": "https://explorer.solana.com/tx/%s"},
			"evm": {"rpcUrl": "http://127.0.0.1:8545", "chainId": 1337, "gasLimit": 30000}
		}
	}`))
	require.NoError(t, err)

	assert.Equal(t, types.DefaultConfirmTimeout, cfg.ConfirmTimeout)
	assert.Equal(t, types.DefaultPollInterval, cfg.PollInterval)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, int64(1337), cfg.Chains[types.ChainEVM].ChainID)
	assert.Equal(t, uint64(30000), cfg.Chains[types.ChainEVM].GasLimit)
	assert.Equal(t, "https://explorer.solana.com/tx/%s", cfg.Chains[types.ChainSolana].ExplorerURL)
}

func TestParseConfigInvalid(t *testing.T) {
	for name, body := range map[string]string{
		"malformed":       `{`,
		"bad rpc url":     `{"chains":{"evm":{"rpcUrl":"not a url"}}}`,
		"unknown chain":   `{"chains":{"bitcoin":{"rpcUrl":"http://localhost"}}}`,
		"bad log level":   `{"logLevel":"chatty"}`,
		"negative period": `{"pollInterval":-1}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseConfig([]byte(body))
			assert.Error(t, err)
		})
	}
}

func TestSerializeOutcome(t *testing.T) {
	raw, err := SerializeOutcome(&types.PaymentOutcome{
		Status:     types.StatusFailed,
		Chain:      types.ChainEVM,
		Identifier: "0xabc",
		Detail:     "rejected by chain: execution reverted",
		Kind:       types.KindOnChainFailure,
		AttemptID:  "a1",
	})
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, "failed", fields["status"])
	assert.Equal(t, "ON_CHAIN_FAILURE", fields["kind"])
	assert.Equal(t, "0xabc", fields["identifier"])
	assert.Equal(t, "a1", fields["attemptId"])
}

func TestValidateConfigNil(t *testing.T) {
	assert.Error(t, ValidateConfig(nil))
	assert.NoError(t, ValidateConfig(&types.Config{ConfirmTimeout: time.Second}))
}
