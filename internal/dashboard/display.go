// Package dashboard is the balance display: it reads the connected wallet,
// owns the two pool queries and renders them.
package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/quantumauth-io/refi-pool-dashboard/internal/pool"
	"github.com/quantumauth-io/refi-pool-dashboard/internal/query"
	"github.com/quantumauth-io/refi-pool-dashboard/internal/wallet"
)

// WalletSource is the part of the wallet client the display reads.
type WalletSource interface {
	Address() (string, bool)
	Subscribe(ch chan<- wallet.State) event.Subscription
}

// BalanceReader is implemented by *pool.Reader.
type BalanceReader interface {
	FetchNativeBalance(ctx context.Context, address common.Address) (pool.NativeBalance, error)
	FetchContractBalances(ctx context.Context, contract common.Address, contractABI abi.ABI, method string) (pool.Balances, error)
}

type Deps struct {
	Wallet   WalletSource
	Reader   BalanceReader
	Contract common.Address
	ABI      abi.ABI
	Method   string

	Title        string
	Network      string
	ChainID      uint64
	NativeSymbol string
	TokenSymbol  string

	// Cache is optional and shared across mounts.
	Cache *query.Cache
	// RefetchInterval > 0 refetches both queries periodically.
	RefetchInterval time.Duration
}

// View is everything Render needs. It is a value; mutating it has no effect
// on the display.
type View struct {
	Title           string
	Network         string
	ChainID         uint64
	ContractAddress string
	NativeSymbol    string
	TokenSymbol     string

	Address   string
	Connected bool

	Native query.Result[pool.NativeBalance]
	Pool   query.Result[pool.Balances]
}

type Display struct {
	deps Deps

	mu        sync.Mutex
	mounted   bool
	cancel    context.CancelFunc
	native    *query.Query[pool.NativeBalance]
	balances  *query.Query[pool.Balances]
	walletSub event.Subscription
	wg        sync.WaitGroup

	feed event.FeedOf[View]
}

func New(deps Deps) (*Display, error) {
	if deps.Wallet == nil {
		return nil, errors.New("dashboard: wallet source is required")
	}
	if deps.Reader == nil {
		return nil, errors.New("dashboard: balance reader is required")
	}
	if deps.Method == "" {
		return nil, errors.New("dashboard: contract function name is required")
	}
	if _, ok := deps.ABI.Methods[deps.Method]; !ok {
		return nil, errors.Newf("dashboard: abi has no method %q", deps.Method)
	}
	return &Display{deps: deps}, nil
}

// Mount starts both fetches and follows wallet changes. It returns at once;
// results arrive through Subscribe.
func (d *Display) Mount(ctx context.Context) {
	d.mu.Lock()
	if d.mounted {
		d.mu.Unlock()
		return
	}
	d.mounted = true

	ctx, d.cancel = context.WithCancel(ctx)

	contract := d.deps.Contract
	d.native = query.New[pool.NativeBalance]("native:"+contract.Hex(),
		func(ctx context.Context) (pool.NativeBalance, error) {
			return d.deps.Reader.FetchNativeBalance(ctx, contract)
		}, d.deps.Cache, func(res query.Result[pool.NativeBalance]) {
			if res.Status == query.StatusError {
				log.Warn("native balance fetch failed", "address", contract.Hex(), "error", res.Err)
			}
			d.publish()
		})

	d.balances = query.New[pool.Balances]("contract:"+contract.Hex()+":"+d.deps.Method,
		func(ctx context.Context) (pool.Balances, error) {
			return d.deps.Reader.FetchContractBalances(ctx, contract, d.deps.ABI, d.deps.Method)
		}, d.deps.Cache, func(res query.Result[pool.Balances]) {
			if res.Status == query.StatusError {
				log.Warn("pool balances fetch failed", "contract", contract.Hex(), "error", res.Err)
			}
			d.publish()
		})

	states := make(chan wallet.State, 8)
	d.walletSub = d.deps.Wallet.Subscribe(states)

	d.wg.Add(1)
	go d.loop(ctx, states, d.walletSub)

	native, balances := d.native, d.balances
	d.mu.Unlock()

	// a cached value settles synchronously and publishes, which reads d.mu
	native.Start(ctx)
	balances.Start(ctx)
}

func (d *Display) loop(ctx context.Context, states <-chan wallet.State, sub event.Subscription) {
	defer d.wg.Done()

	var tick <-chan time.Time
	if d.deps.RefetchInterval > 0 {
		ticker := time.NewTicker(d.deps.RefetchInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Err():
			return
		case <-states:
			d.publish()
		case <-tick:
			d.Refetch()
		}
	}
}

// Unmount cancels in-flight fetches and stops following the wallet. Results
// that arrive afterwards are dropped.
func (d *Display) Unmount() {
	d.mu.Lock()
	if !d.mounted {
		d.mu.Unlock()
		return
	}
	d.mounted = false
	cancel, native, balances, sub := d.cancel, d.native, d.balances, d.walletSub
	d.mu.Unlock()

	cancel()
	native.Close()
	balances.Close()
	sub.Unsubscribe()
	d.wg.Wait()
}

// ConnectedAddress is the wallet account as reported, or false when no
// wallet is connected.
func (d *Display) ConnectedAddress() (string, bool) {
	return d.deps.Wallet.Address()
}

func (d *Display) View() View {
	address, connected := d.ConnectedAddress()
	v := View{
		Title:           d.deps.Title,
		Network:         d.deps.Network,
		ChainID:         d.deps.ChainID,
		ContractAddress: d.deps.Contract.Hex(),
		NativeSymbol:    d.deps.NativeSymbol,
		TokenSymbol:     d.deps.TokenSymbol,
		Address:         address,
		Connected:       connected,
	}

	d.mu.Lock()
	native, balances := d.native, d.balances
	d.mu.Unlock()
	if native != nil {
		v.Native = native.Result()
	}
	if balances != nil {
		v.Pool = balances.Result()
	}
	return v
}

// Subscribe delivers a fresh View after every wallet change and every
// settled fetch. A subscriber that falls behind is never waited on; it
// receives the latest View once it reads again.
func (d *Display) Subscribe(ch chan<- View) event.Subscription {
	relay := make(chan View, 1)
	sub := d.feed.Subscribe(relay)
	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer sub.Unsubscribe()
		var (
			next View
			has  bool
		)
		for {
			var out chan<- View
			if has {
				out = ch
			}
			select {
			case v := <-relay:
				next, has = v, true
			case out <- next:
				has = false
			case err := <-sub.Err():
				return err
			case <-quit:
				return nil
			}
		}
	})
}

func (d *Display) publish() {
	d.feed.Send(d.View())
}

// Wait blocks until both fetches have settled.
func (d *Display) Wait(ctx context.Context) (View, error) {
	d.mu.Lock()
	native, balances := d.native, d.balances
	d.mu.Unlock()
	if native == nil || balances == nil {
		return View{}, errors.New("dashboard: not mounted")
	}

	if _, err := native.Wait(ctx); err != nil {
		return d.View(), err
	}
	if _, err := balances.Wait(ctx); err != nil {
		return d.View(), err
	}
	return d.View(), nil
}

// Refetch drops cached results and fetches both values again.
func (d *Display) Refetch() {
	d.mu.Lock()
	native, balances, mounted := d.native, d.balances, d.mounted
	d.mu.Unlock()
	if !mounted {
		return
	}
	log.Debug("refetching", "queries", []string{native.Key(), balances.Key()})
	native.Refetch()
	balances.Refetch()
	d.publish()
}
