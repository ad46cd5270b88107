package chains

import (
	"context"
	"math/big"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/quantumauth-io/quantum-go-utils/log"
)

// Provider hands out read backends for the resolved chains.
// Backends are dialed on first use and cached per chain id.
type Provider struct {
	chains *ResolvedChains
	dial   DialFunc

	mu       sync.Mutex
	backends map[uint64]Backend
	closed   bool
}

func newProvider(chains *ResolvedChains, dial DialFunc) *Provider {
	return &Provider{
		chains:   chains,
		dial:     dial,
		backends: make(map[uint64]Backend),
	}
}

func dialEthClient(ctx context.Context, rawURL string) (Backend, error) {
	client, err := ethclient.DialContext(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (p *Provider) Chains() *ResolvedChains { return p.chains }

// Backend returns (and caches) the backend for chainID.
func (p *Provider) Backend(ctx context.Context, chainID uint64) (Backend, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, errors.New("provider is closed")
	}
	if existing := p.backends[chainID]; existing != nil {
		p.mu.Unlock()
		return existing, nil
	}
	p.mu.Unlock()

	chain, ok := p.chains.ByID(chainID)
	if !ok {
		return nil, errors.Newf("unknown chain id %d", chainID)
	}

	// Dial outside the lock (avoid blocking concurrent readers)
	dialed, err := p.dial(ctx, chain.URL)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to connect to blockchain %q at %s", chain.Network, chain.URL)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if existing := p.backends[chainID]; existing != nil || p.closed {
		// We raced; close what we just dialed
		safeClose(dialed)
		if p.closed {
			return nil, errors.New("provider is closed")
		}
		return existing, nil
	}
	p.backends[chainID] = dialed

	log.Info("chain backend ready", "network", chain.Network, "chain_id", chain.ID, "rpc", chain.RPCName)
	return dialed, nil
}

// DefaultBackend returns the backend for the active chain.
func (p *Provider) DefaultBackend(ctx context.Context) (Backend, error) {
	return p.Backend(ctx, p.chains.Default().ID)
}

// Close closes all cached backends (call on shutdown).
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id, b := range p.backends {
		safeClose(b)
		delete(p.backends, id)
	}
	p.closed = true
	return nil
}

func safeClose(b Backend) {
	if b == nil {
		return
	}
	if closer, ok := b.(interface{ Close() }); ok {
		closer.Close()
	}
}

// Lazy returns a Backend for chainID that dials on first use, so a dial
// failure surfaces as an error of the read that needed it.
func (p *Provider) Lazy(chainID uint64) Backend {
	return lazyBackend{provider: p, chainID: chainID}
}

type lazyBackend struct {
	provider *Provider
	chainID  uint64
}

func (l lazyBackend) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	b, err := l.provider.Backend(ctx, l.chainID)
	if err != nil {
		return nil, err
	}
	return b.BalanceAt(ctx, account, blockNumber)
}

func (l lazyBackend) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	b, err := l.provider.Backend(ctx, l.chainID)
	if err != nil {
		return nil, err
	}
	return b.CallContract(ctx, call, blockNumber)
}
