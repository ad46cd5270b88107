package app

import (
	"context"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/quantumauth-io/refi-pool-dashboard/internal/chains"
	"github.com/quantumauth-io/refi-pool-dashboard/internal/config"
	"github.com/quantumauth-io/refi-pool-dashboard/internal/constants"
	"github.com/quantumauth-io/refi-pool-dashboard/internal/contracts/donationpool"
	"github.com/quantumauth-io/refi-pool-dashboard/internal/dashboard"
	"github.com/quantumauth-io/refi-pool-dashboard/internal/pool"
	"github.com/quantumauth-io/refi-pool-dashboard/internal/query"
	"github.com/quantumauth-io/refi-pool-dashboard/internal/wallet"
)

type buildOptions struct {
	dial       chains.DialFunc
	store      wallet.SessionStore
	connectors []wallet.Connector
}

type Option func(*buildOptions)

// WithDialer replaces the ethclient dialer.
func WithDialer(dial chains.DialFunc) Option {
	return func(o *buildOptions) { o.dial = dial }
}

// WithSessionStore overrides the store selected by session.backend.
func WithSessionStore(store wallet.SessionStore) Option {
	return func(o *buildOptions) { o.store = store }
}

func WithConnectors(connectors ...wallet.Connector) Option {
	return func(o *buildOptions) { o.connectors = connectors }
}

// App is a fully bootstrapped dashboard process.
type App struct {
	Config  *config.Config
	Tree    *Tree
	Display *dashboard.Display
	Store   wallet.SessionStore
}

// Build runs the whole bootstrap from configuration and mounts the display.
// Configuration problems are marked chains.ErrConfiguration.
func Build(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	w, err := OpenWallet(ctx, cfg, opts...)
	if err != nil {
		return nil, err
	}
	resolved, provider, client, store := w.Chains, w.Provider, w.Client, w.Store

	contractABI, err := loadABI(cfg.Pool)
	if err != nil {
		_ = w.Close()
		return nil, errors.Mark(err, chains.ErrConfiguration)
	}

	cache := query.NewCache(cfg.Query.CacheTTL)
	var display *dashboard.Display

	tree, err := MountProviders(ctx, client, resolved, provider, cfg.App.Name, func(p *Providers) (Component, error) {
		reader := pool.NewReader(p.Provider.Lazy(p.Active.ID), p.Active.NativeCurrency)
		d, err := dashboard.New(dashboard.Deps{
			Wallet:          p.Client,
			Reader:          reader,
			Contract:        cfg.ContractAddress(),
			ABI:             contractABI,
			Method:          cfg.Pool.FunctionName,
			Title:           p.AppName,
			Network:         p.Active.Name,
			ChainID:         p.Active.ID,
			NativeSymbol:    p.Active.NativeCurrency.Symbol,
			TokenSymbol:     cfg.Pool.TokenSymbol,
			Cache:           cache,
			RefetchInterval: cfg.Query.RefetchInterval,
		})
		if err != nil {
			return nil, err
		}
		display = d
		return d, nil
	})
	if err != nil {
		_ = w.Close()
		return nil, err
	}

	return &App{Config: cfg, Tree: tree, Display: display, Store: store}, nil
}

func loadABI(p config.PoolSettings) (abi.ABI, error) {
	var (
		contractABI abi.ABI
		err         error
	)
	if p.ABIPath != "" {
		contractABI, err = donationpool.LoadFile(p.ABIPath)
	} else {
		contractABI, err = donationpool.ABI()
	}
	if err != nil {
		return abi.ABI{}, err
	}
	if err := donationpool.RequireView(contractABI, p.FunctionName); err != nil {
		return abi.ABI{}, err
	}
	return contractABI, nil
}

// Wallet is the bootstrap without the display: chains, the session store
// and a client that has not been started. The CLI uses it to change the
// stored session without reading any balances.
type Wallet struct {
	Chains   *chains.ResolvedChains
	Provider *chains.Provider
	Client   *wallet.Client
	Store    wallet.SessionStore
}

func OpenWallet(ctx context.Context, cfg *config.Config, opts ...Option) (*Wallet, error) {
	o := buildOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Mark(err, chains.ErrConfiguration)
	}
	return openWallet(ctx, cfg, o)
}

func openWallet(ctx context.Context, cfg *config.Config, o buildOptions) (*Wallet, error) {
	chainOpts := []chains.Option{chains.WithPreferredRPC(cfg.App.PreferredRPC)}
	if o.dial != nil {
		chainOpts = append(chainOpts, chains.WithDialer(o.dial))
	}
	resolved, provider, err := chains.ConfigureNetwork(cfg.Networks, chainOpts...)
	if err != nil {
		return nil, err
	}

	store := o.store
	if store == nil {
		store, err = NewSessionStore(ctx, cfg.Session)
		if err != nil {
			_ = provider.Close()
			return nil, errors.Mark(err, chains.ErrConfiguration)
		}
	}

	connectors := o.connectors
	if len(connectors) == 0 {
		connectors = wallet.DefaultConnectors(cfg.App.WatchAddress)
	}

	client, err := wallet.NewClient(wallet.Options{
		AutoConnect: cfg.App.AutoConnect,
		Connectors:  connectors,
		Provider:    provider,
		Chains:      resolved,
		Store:       store,
	})
	if err != nil {
		_ = provider.Close()
		closeStore(store)
		return nil, errors.Mark(err, chains.ErrConfiguration)
	}

	return &Wallet{Chains: resolved, Provider: provider, Client: client, Store: store}, nil
}

// Close stops the client and releases the provider and the session store.
func (w *Wallet) Close() error {
	w.Client.Close()
	err := w.Provider.Close()
	if closer, ok := w.Store.(io.Closer); ok {
		err = errors.CombineErrors(err, closer.Close())
	}
	return err
}

func closeStore(store wallet.SessionStore) {
	if closer, ok := store.(io.Closer); ok {
		_ = closer.Close()
	}
}

// NewSessionStore returns the store selected by session.backend.
func NewSessionStore(ctx context.Context, s config.SessionSettings) (wallet.SessionStore, error) {
	switch s.Backend {
	case config.SessionBackendMemory:
		return wallet.NewMemoryStore(), nil
	case config.SessionBackendRedis:
		return wallet.NewRedisStore(ctx, wallet.RedisOptions{
			Addr:     s.RedisAddr,
			Password: s.RedisPassword,
			DB:       s.RedisDB,
			Key:      s.RedisKey,
			TTL:      s.TTL,
		})
	case config.SessionBackendFile, "":
		path := s.Path
		if path == "" {
			var err error
			if path, err = wallet.DefaultSessionPath(); err != nil {
				return nil, err
			}
		}
		return wallet.NewFileStore(path), nil
	default:
		return nil, errors.Newf("unknown session backend %q", s.Backend)
	}
}

// Close unmounts everything and releases the session store.
func (a *App) Close() error {
	err := a.Tree.Close()
	if closer, ok := a.Store.(io.Closer); ok {
		err = errors.CombineErrors(err, closer.Close())
	}
	return err
}

// ActiveChain is the network the dashboard reads from.
func (a *App) ActiveChain() chains.ResolvedChain {
	return a.Tree.Providers.Active
}

func (a *App) Client() *wallet.Client {
	return a.Tree.Providers.Client
}

// Title falls back to the product name when the config leaves it empty.
func (a *App) Title() string {
	if a.Config.App.Name == "" {
		return constants.DashboardTitle
	}
	return a.Config.App.Name
}
