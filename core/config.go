package core

import (
	"fmt"
	"strings"
)

const (
	DefaultMinUnwrapAmount = 10
	DefaultReleaseJobID    = "ledger.bridge.release"
)

type TokenConfig struct {
	Name     string `koanf:"name" mapstructure:"name"`
	Symbol   string `koanf:"symbol" mapstructure:"symbol"`
	Decimals uint8  `koanf:"decimals" mapstructure:"decimals"`
}

type BridgeConfig struct {
	ExternalChain string `koanf:"external_chain" mapstructure:"external_chain"`
	// MinUnwrapAmount is a base-10 amount in the token's smallest unit.
	MinUnwrapAmount string `koanf:"min_unwrap_amount" mapstructure:"min_unwrap_amount"`
	ReleaseJobID    string `koanf:"release_job_id" mapstructure:"release_job_id"`
}

type Config struct {
	ServiceName string       `koanf:"service_name" mapstructure:"service_name"`
	LedgerID    string       `koanf:"ledger_id" mapstructure:"ledger_id"`
	Owner       string       `koanf:"owner" mapstructure:"owner"`
	Token       TokenConfig  `koanf:"token" mapstructure:"token"`
	Bridge      BridgeConfig `koanf:"bridge" mapstructure:"bridge"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "bridge-ledger",
		LedgerID:    "wldoge",
		Token: TokenConfig{
			Name:     "Wrapped LiteDoge",
			Symbol:   "WLDOGE",
			Decimals: 18,
		},
		Bridge: BridgeConfig{
			ExternalChain:   "litedoge",
			MinUnwrapAmount: fmt.Sprint(DefaultMinUnwrapAmount),
			ReleaseJobID:    DefaultReleaseJobID,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if strings.TrimSpace(c.LedgerID) == "" {
		return fmt.Errorf("core: ledger_id is required")
	}
	if owner := strings.TrimSpace(c.Owner); owner != "" {
		addr, err := ParseAddress(owner)
		if err != nil {
			return fmt.Errorf("core: owner is invalid: %w", err)
		}
		if addr == ZeroAddress {
			return fmt.Errorf("core: owner must not be the zero address")
		}
	}
	if strings.TrimSpace(c.Token.Symbol) == "" {
		return fmt.Errorf("core: token.symbol is required")
	}
	if min := strings.TrimSpace(c.Bridge.MinUnwrapAmount); min != "" {
		if _, err := ParseAmount(min); err != nil {
			return fmt.Errorf("core: bridge.min_unwrap_amount is invalid: %w", err)
		}
	}
	return nil
}

// OwnerAddress returns the configured genesis owner, or ZeroAddress when
// none is set.
func (c Config) OwnerAddress() Address {
	addr, err := ParseAddress(c.Owner)
	if err != nil {
		return ZeroAddress
	}
	return addr
}

func (c Config) MinUnwrapAmount() Amount {
	min, err := ParseAmount(c.Bridge.MinUnwrapAmount)
	if err != nil {
		return NewAmount(DefaultMinUnwrapAmount)
	}
	return min
}

func (c Config) ReleaseJobID() string {
	if id := strings.TrimSpace(c.Bridge.ReleaseJobID); id != "" {
		return id
	}
	return DefaultReleaseJobID
}
