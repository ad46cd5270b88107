package chains

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

// ErrConfiguration marks an invalid network configuration. It is fatal at startup.
var ErrConfiguration = errors.New("invalid network configuration")

// ResolvedChains is the ordered, validated chain set. The first entry is the active chain.
type ResolvedChains struct {
	chains []ResolvedChain
	byID   map[uint64]int
}

func (r *ResolvedChains) Len() int { return len(r.chains) }

func (r *ResolvedChains) All() []ResolvedChain {
	out := make([]ResolvedChain, len(r.chains))
	copy(out, r.chains)
	return out
}

func (r *ResolvedChains) ByID(id uint64) (ResolvedChain, bool) {
	i, ok := r.byID[id]
	if !ok {
		return ResolvedChain{}, false
	}
	return r.chains[i], true
}

func (r *ResolvedChains) Default() ResolvedChain {
	return r.chains[0]
}

func (r *ResolvedChains) IDs() []uint64 {
	return lo.Map(r.chains, func(c ResolvedChain, _ int) uint64 { return c.ID })
}

type options struct {
	preferredRPC string
	dial         DialFunc
}

type Option func(*options)

// WithPreferredRPC picks the RPC entry with this name when a network has one.
func WithPreferredRPC(name string) Option {
	return func(o *options) { o.preferredRPC = strings.TrimSpace(name) }
}

// WithDialer replaces the ethclient dialer used by the provider.
func WithDialer(dial DialFunc) Option {
	return func(o *options) { o.dial = dial }
}

// ConfigureNetwork validates the network definitions and returns the resolved
// chain set together with a read provider for it.
func ConfigureNetwork(defs []NetworkConfig, opts ...Option) (*ResolvedChains, *Provider, error) {
	o := options{dial: dialEthClient}
	for _, opt := range opts {
		opt(&o)
	}

	if len(defs) == 0 {
		return nil, nil, errors.Wrap(ErrConfiguration, "no networks configured")
	}

	resolved := &ResolvedChains{
		chains: make([]ResolvedChain, 0, len(defs)),
		byID:   make(map[uint64]int, len(defs)),
	}

	for i, def := range defs {
		chain, err := resolveNetwork(def, o.preferredRPC)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "network #%d", i)
		}
		if prev, dup := resolved.byID[chain.ID]; dup {
			return nil, nil, errors.Wrapf(ErrConfiguration,
				"chain id %d configured twice (%q and %q)", chain.ID, resolved.chains[prev].Network, chain.Network)
		}
		resolved.byID[chain.ID] = len(resolved.chains)
		resolved.chains = append(resolved.chains, chain)
	}

	return resolved, newProvider(resolved, o.dial), nil
}

func resolveNetwork(def NetworkConfig, preferredRPC string) (ResolvedChain, error) {
	name := strings.TrimSpace(def.Name)
	key := normalizeNetworkKey(def.Network)
	if key == "" {
		key = normalizeNetworkKey(name)
	}
	if name == "" {
		name = key
	}
	if key == "" {
		return ResolvedChain{}, errors.Wrap(ErrConfiguration, "network name is empty")
	}
	if def.ID == 0 {
		return ResolvedChain{}, errors.Wrapf(ErrConfiguration, "network %q: chain id is 0", key)
	}

	currency := def.NativeCurrency
	currency.Name = strings.TrimSpace(currency.Name)
	currency.Symbol = strings.TrimSpace(currency.Symbol)
	if currency.Symbol == "" {
		return ResolvedChain{}, errors.Wrapf(ErrConfiguration, "network %q: native currency symbol is empty", key)
	}

	rpcs := normalizeRPCs(def.RPCs)
	if len(rpcs) == 0 {
		return ResolvedChain{}, errors.Wrapf(ErrConfiguration, "network %q has no RPCs configured", key)
	}

	// pick RPC by preferred name; otherwise first
	selected := rpcs[0]
	if preferredRPC != "" {
		if rpc, ok := lo.Find(rpcs, func(r RPC) bool { return strings.EqualFold(r.Name, preferredRPC) }); ok {
			selected = rpc
		}
	}

	return ResolvedChain{
		ID:             def.ID,
		Name:           name,
		Network:        key,
		NativeCurrency: currency,
		Explorer:       strings.TrimSpace(def.Explorer),
		RPCName:        selected.Name,
		URL:            selected.URL,
	}, nil
}
