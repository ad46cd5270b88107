package app

import (
	"context"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantumauth-io/refi-pool-dashboard/internal/chains"
	"github.com/quantumauth-io/refi-pool-dashboard/internal/config"
	"github.com/quantumauth-io/refi-pool-dashboard/internal/contracts/donationpool"
	"github.com/quantumauth-io/refi-pool-dashboard/internal/dashboard"
	"github.com/quantumauth-io/refi-pool-dashboard/internal/wallet"
)

const userAddr = "0xAbCdEf0123456789abcdef0123456789ABCDEF01"

type chainBackend struct {
	t *testing.T
}

func (b chainBackend) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	v, _ := new(big.Int).SetString("1500000000000000000", 10)
	return v, nil
}

func (b chainBackend) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	parsed, err := donationpool.ABI()
	require.NoError(b.t, err)
	eth, _ := new(big.Int).SetString("1000000000000000000", 10)
	return parsed.Methods[donationpool.PoolBalancesMethod].Outputs.Pack(eth, big.NewInt(5000000))
}

func testConfig() *config.Config {
	cfg := &config.Config{
		App: config.AppSettings{Name: "ReFi Donation Pool", AutoConnect: true},
		Networks: []chains.NetworkConfig{{
			ID:             1,
			Name:           "Ethereum",
			Network:        "homestead",
			NativeCurrency: chains.NativeCurrency{Name: "Ether", Symbol: "ETH", Decimals: 18},
			RPCs:           []chains.RPC{{Name: "llamarpc", URL: "https://eth.llamarpc.com"}},
		}},
		Session: config.SessionSettings{Backend: config.SessionBackendMemory},
	}
	cfg.ApplyDefaults()
	return cfg
}

func dialer(t *testing.T) chains.DialFunc {
	return func(context.Context, string) (chains.Backend, error) {
		return chainBackend{t: t}, nil
	}
}

func TestBuildRendersBalances(t *testing.T) {
	a, err := Build(context.Background(), testConfig(), WithDialer(dialer(t)))
	require.NoError(t, err)
	defer func() { require.NoError(t, a.Close()) }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	v, err := a.Display.Wait(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Connected Wallet: ",
		"Pool ETH Balance: 1.5",
		"Pool USDC Balance: 5000000",
	}, dashboard.Lines(v))
	assert.Equal(t, uint64(1), a.ActiveChain().ID)
	assert.Equal(t, "ReFi Donation Pool", a.Title())
}

func TestBuildRestoresStoredSession(t *testing.T) {
	store := wallet.NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), wallet.Session{
		ConnectorID: wallet.InjectedConnectorID,
		Address:     userAddr,
		ChainID:     1,
	}))

	a, err := Build(context.Background(), testConfig(), WithDialer(dialer(t)), WithSessionStore(store))
	require.NoError(t, err)
	defer a.Close()

	addr, ok := a.Display.ConnectedAddress()
	require.True(t, ok)
	assert.Equal(t, userAddr, addr)
	assert.Equal(t, wallet.StatusConnected, a.Client().State().Status)
}

func TestOpenWalletDoesNotReadChain(t *testing.T) {
	var dials atomic.Int32
	countingDialer := func(context.Context, string) (chains.Backend, error) {
		dials.Add(1)
		return chainBackend{t: t}, nil
	}
	store := wallet.NewMemoryStore()

	w, err := OpenWallet(context.Background(), testConfig(), WithDialer(countingDialer), WithSessionStore(store))
	require.NoError(t, err)
	defer func() { require.NoError(t, w.Close()) }()

	assert.Equal(t, wallet.StatusDisconnected, w.Client.State().Status)

	_, err = w.Client.Connect(context.Background(), wallet.InjectedConnectorID, userAddr)
	require.NoError(t, err)
	sess, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, userAddr, sess.Address)

	require.NoError(t, w.Client.Disconnect(context.Background()))
	_, err = store.Load(context.Background())
	assert.ErrorIs(t, err, wallet.ErrNoSession)

	assert.Zero(t, dials.Load())
}

func TestOpenWalletRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Networks = nil
	_, err := OpenWallet(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, chains.ErrConfiguration))
}

func TestBuildConfigurationErrors(t *testing.T) {
	cases := map[string]func(c *config.Config){
		"no networks":  func(c *config.Config) { c.Networks = nil },
		"no rpc":       func(c *config.Config) { c.Networks[0].RPCs = nil },
		"not a view":   func(c *config.Config) { c.Pool.FunctionName = "donateETH" },
		"missing abi":  func(c *config.Config) { c.Pool.ABIPath = "/nonexistent/DonationPool.json" },
		"bad contract": func(c *config.Config) { c.Pool.ContractAddress = "pool.eth" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig()
			mutate(cfg)
			_, err := Build(context.Background(), cfg, WithDialer(dialer(t)))
			require.Error(t, err)
			assert.True(t, errors.Is(err, chains.ErrConfiguration), "%v", err)
		})
	}
}

type recorder struct {
	mounted   bool
	unmounted bool
}

func (r *recorder) Mount(context.Context) { r.mounted = true }
func (r *recorder) Unmount()              { r.unmounted = true }

func TestMountProviders(t *testing.T) {
	resolved, provider, err := chains.ConfigureNetwork(testConfig().Networks, chains.WithDialer(dialer(t)))
	require.NoError(t, err)

	client, err := wallet.NewClient(wallet.Options{
		Connectors: wallet.DefaultConnectors(""),
		Provider:   provider,
	})
	require.NoError(t, err)

	rec := &recorder{}
	var seen *Providers
	tree, err := MountProviders(context.Background(), client, resolved, provider, "refi", func(p *Providers) (Component, error) {
		seen = p
		return rec, nil
	})
	require.NoError(t, err)

	assert.True(t, rec.mounted)
	require.NotNil(t, seen)
	assert.Same(t, client, seen.Client)
	assert.Equal(t, "refi", seen.AppName)
	assert.Equal(t, uint64(1), seen.Active.ID)

	require.NoError(t, tree.Close())
	assert.True(t, rec.unmounted)

	_, err = provider.DefaultBackend(context.Background())
	assert.Error(t, err, "provider closed with the tree")
}

func TestMountProvidersRejects(t *testing.T) {
	resolved, provider, err := chains.ConfigureNetwork(testConfig().Networks)
	require.NoError(t, err)
	client, err := wallet.NewClient(wallet.Options{Connectors: wallet.DefaultConnectors(""), Chains: resolved})
	require.NoError(t, err)

	ok := func(*Providers) (Component, error) { return &recorder{}, nil }

	_, err = MountProviders(context.Background(), nil, resolved, provider, "refi", ok)
	assert.Error(t, err)

	_, err = MountProviders(context.Background(), client, nil, provider, "refi", ok)
	assert.True(t, errors.Is(err, chains.ErrConfiguration))

	_, err = MountProviders(context.Background(), client, resolved, provider, "refi", func(*Providers) (Component, error) {
		return nil, errors.New("no abi")
	})
	assert.Error(t, err)
}

func TestNewSessionStore(t *testing.T) {
	ctx := context.Background()
	s, err := NewSessionStore(ctx, config.SessionSettings{Backend: config.SessionBackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &wallet.MemoryStore{}, s)

	s, err = NewSessionStore(ctx, config.SessionSettings{Backend: config.SessionBackendFile, Path: t.TempDir() + "/s.json"})
	require.NoError(t, err)
	assert.IsType(t, &wallet.FileStore{}, s)

	// Nothing listens on port 1, so the connect ping fails.
	_, err = NewSessionStore(ctx, config.SessionSettings{Backend: config.SessionBackendRedis, RedisAddr: "127.0.0.1:1"})
	assert.Error(t, err)

	_, err = NewSessionStore(ctx, config.SessionSettings{Backend: config.SessionBackendRedis, RedisAddr: "no-port"})
	assert.Error(t, err)

	_, err = NewSessionStore(ctx, config.SessionSettings{Backend: "etcd"})
	assert.Error(t, err)
}
