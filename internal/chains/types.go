package chains

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

// NetworkConfig describes a network and its RPC endpoints.
type NetworkConfig struct {
	ID             uint64         `json:"id" yaml:"id" mapstructure:"id"`
	Name           string         `json:"name" yaml:"name" mapstructure:"name"`
	Network        string         `json:"network" yaml:"network" mapstructure:"network"`
	NativeCurrency NativeCurrency `json:"nativeCurrency" yaml:"nativeCurrency" mapstructure:"nativeCurrency"`
	RPCs           []RPC          `json:"rpcs" yaml:"rpcs" mapstructure:"rpcs"`
	Explorer       string         `json:"explorer,omitempty" yaml:"explorer" mapstructure:"explorer"`
}

type NativeCurrency struct {
	Name     string `json:"name" yaml:"name" mapstructure:"name"`
	Symbol   string `json:"symbol" yaml:"symbol" mapstructure:"symbol"`
	Decimals uint8  `json:"decimals" yaml:"decimals" mapstructure:"decimals"`
}

type RPC struct {
	Name string `json:"name" yaml:"name" mapstructure:"name"`
	URL  string `json:"url" yaml:"url" mapstructure:"url"`
}

// ResolvedChain is a validated network with the RPC endpoint picked for reads.
type ResolvedChain struct {
	ID             uint64         `json:"id"`
	Name           string         `json:"name"`
	Network        string         `json:"network"`
	NativeCurrency NativeCurrency `json:"nativeCurrency"`
	Explorer       string         `json:"explorer,omitempty"`

	RPCName string `json:"rpcName"`
	URL     string `json:"url"`
}

// Backend is the read surface the dashboard needs from a chain.
// *ethclient.Client satisfies it.
type Backend interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// DialFunc opens a Backend for an RPC url.
type DialFunc func(ctx context.Context, rawURL string) (Backend, error)

func normalizeNetworkKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func normalizeRPCs(in []RPC) []RPC {
	out := make([]RPC, 0, len(in))
	for _, r := range in {
		r.Name = strings.TrimSpace(r.Name)
		r.URL = strings.TrimSpace(r.URL)
		if r.URL == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
