package utils

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/vitwit/walletpay/types"
)

// EnvPrefix prefixes every variable read by LoadConfigFromEnv.
const EnvPrefix = "WALLETPAY_"

// LoadConfigFromEnv builds a Config from the process environment after
// loading the given .env files (".env" when none are named). Missing files
// are ignored; variables already set in the environment win.
//
// Recognised variables:
//
//	WALLETPAY_CONFIRM_TIMEOUT   duration, e.g. "90s"
//	WALLETPAY_POLL_INTERVAL     duration
//	WALLETPAY_LOG_LEVEL         debug|info|warn|error
//	WALLETPAY_ENABLE_METRICS    bool
//	WALLETPAY_<CHAIN>_RPC_URL   CHAIN is EVM, SOLANA or SUI
//	WALLETPAY_<CHAIN>_CHAIN_ID
//	WALLETPAY_<CHAIN>_GAS_LIMIT
//	WALLETPAY_<CHAIN>_EXPLORER_URL
func LoadConfigFromEnv(files ...string) (*types.Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	config := types.DefaultConfig()

	var err error
	if config.ConfirmTimeout, err = envDuration("CONFIRM_TIMEOUT", types.DefaultConfirmTimeout); err != nil {
		return nil, err
	}
	if config.PollInterval, err = envDuration("POLL_INTERVAL", types.DefaultPollInterval); err != nil {
		return nil, err
	}
	config.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", config.LogLevel))
	if v := getEnv("ENABLE_METRICS", ""); v != "" {
		if config.EnableMetrics, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("invalid %sENABLE_METRICS: %w", EnvPrefix, err)
		}
	}

	for _, chain := range types.SupportedChains {
		key := strings.ToUpper(string(chain)) + "_"
		rpcURL := getEnv(key+"RPC_URL", "")
		if rpcURL == "" {
			continue
		}

		cc := types.ChainConfig{
			RPCURL:      rpcURL,
			ExplorerURL: getEnv(key+"EXPLORER_URL", ""),
		}
		if v := getEnv(key+"CHAIN_ID", ""); v != "" {
			if cc.ChainID, err = strconv.ParseInt(v, 10, 64); err != nil {
				return nil, fmt.Errorf("invalid %s%sCHAIN_ID: %w", EnvPrefix, key, err)
			}
		}
		if v := getEnv(key+"GAS_LIMIT", ""); v != "" {
			if cc.GasLimit, err = strconv.ParseUint(v, 10, 64); err != nil {
				return nil, fmt.Errorf("invalid %s%sGAS_LIMIT: %w", EnvPrefix, key, err)
			}
		}
		config.Chains[chain] = cc
	}

	if err := ValidateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s%s: %w", EnvPrefix, key, err)
	}
	return d, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		return v
	}
	return fallback
}
