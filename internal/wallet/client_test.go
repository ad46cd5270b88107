package wallet

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantumauth-io/refi-pool-dashboard/internal/chains"
	"github.com/quantumauth-io/refi-pool-dashboard/internal/securefile"
)

// Deliberately not EIP-55 checksummed: the client must not rewrite it.
const userAddr = "0xAbCdEf0123456789abcdef0123456789ABCDEF01"

func testChains(t *testing.T) *chains.ResolvedChains {
	t.Helper()
	resolved, _, err := chains.ConfigureNetwork([]chains.NetworkConfig{{
		ID:             1,
		Name:           "Ethereum",
		Network:        "homestead",
		NativeCurrency: chains.NativeCurrency{Name: "Ether", Symbol: "ETH", Decimals: 18},
		RPCs:           []chains.RPC{{Name: "public", URL: "https://eth.llamarpc.com"}},
	}})
	require.NoError(t, err)
	return resolved
}

func newTestClient(t *testing.T, autoConnect bool, store SessionStore, connectors ...Connector) *Client {
	t.Helper()
	if len(connectors) == 0 {
		connectors = DefaultConnectors("")
	}
	c, err := NewClient(Options{
		AutoConnect: autoConnect,
		Connectors:  connectors,
		Chains:      testChains(t),
		Store:       store,
	})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

type failingConnector struct{ err error }

func (f failingConnector) ID() string   { return "broken" }
func (f failingConnector) Name() string { return "Broken" }
func (f failingConnector) Connect(context.Context, string) (string, error) {
	return "", f.err
}
func (f failingConnector) IsAuthorized(context.Context, string) (bool, error) {
	return false, f.err
}
func (f failingConnector) Disconnect(context.Context) error { return nil }

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(Options{Chains: testChains(t)})
	assert.Error(t, err, "no connectors")

	_, err = NewClient(Options{Connectors: DefaultConnectors("")})
	assert.Error(t, err, "no chains")

	_, err = NewClient(Options{
		Connectors: []Connector{NewInjectedConnector(), NewInjectedConnector()},
		Chains:     testChains(t),
	})
	assert.Error(t, err, "duplicate ids")
}

func TestClientStartsDisconnected(t *testing.T) {
	c := newTestClient(t, true, nil)
	c.Start(context.Background())

	st := c.State()
	assert.Equal(t, StatusDisconnected, st.Status)
	assert.Nil(t, st.Account)

	_, ok := c.Address()
	assert.False(t, ok)
}

func TestConnectKeepsAddressVerbatim(t *testing.T) {
	store := NewMemoryStore()
	c := newTestClient(t, false, store)

	st, err := c.Connect(context.Background(), InjectedConnectorID, userAddr)
	require.NoError(t, err)
	assert.True(t, st.Connected())
	assert.Equal(t, userAddr, st.Account.Address)
	assert.Equal(t, uint64(1), st.Account.ChainID)

	addr, ok := c.Address()
	require.True(t, ok)
	assert.Equal(t, userAddr, addr)

	sess, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, userAddr, sess.Address)
	assert.Equal(t, InjectedConnectorID, sess.ConnectorID)
	assert.NotEqual(t, [16]byte{}, [16]byte(sess.ID))
}

func TestFailedConnectRestoresPreviousState(t *testing.T) {
	boom := errors.New("user rejected the request")
	c := newTestClient(t, false, nil, NewInjectedConnector(), failingConnector{err: boom})

	_, err := c.Connect(context.Background(), InjectedConnectorID, userAddr)
	require.NoError(t, err)
	before := c.State()

	st, err := c.Connect(context.Background(), "broken", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConnection))
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, before, st)
	assert.Equal(t, before, c.State())

	_, err = c.Connect(context.Background(), InjectedConnectorID, "not-an-address")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConnection))
	assert.True(t, errors.Is(err, ErrInvalidAddress))
	assert.Equal(t, before, c.State())

	_, err = c.Connect(context.Background(), "ledger", "")
	assert.True(t, errors.Is(err, ErrConnection))
}

func TestDisconnectClearsSession(t *testing.T) {
	store := NewMemoryStore()
	c := newTestClient(t, false, store)

	_, err := c.Connect(context.Background(), InjectedConnectorID, userAddr)
	require.NoError(t, err)
	require.NoError(t, c.Disconnect(context.Background()))

	assert.Equal(t, StatusDisconnected, c.State().Status)
	_, err = store.Load(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)
}

// gatedConnector blocks Connect until release is closed.
type gatedConnector struct {
	entered      chan struct{}
	release      chan struct{}
	disconnected atomic.Int32
}

func newGatedConnector() *gatedConnector {
	return &gatedConnector{entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedConnector) ID() string   { return "slow" }
func (g *gatedConnector) Name() string { return "Slow" }
func (g *gatedConnector) Connect(ctx context.Context, hint string) (string, error) {
	close(g.entered)
	select {
	case <-g.release:
		return hint, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
func (g *gatedConnector) IsAuthorized(context.Context, string) (bool, error) { return true, nil }
func (g *gatedConnector) Disconnect(context.Context) error {
	g.disconnected.Add(1)
	return nil
}

func TestDisconnectDuringConnectWins(t *testing.T) {
	store := NewMemoryStore()
	slow := newGatedConnector()
	c := newTestClient(t, false, store, slow, NewInjectedConnector())

	type outcome struct {
		st  State
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		st, err := c.Connect(context.Background(), "slow", userAddr)
		done <- outcome{st, err}
	}()

	<-slow.entered
	require.Equal(t, StatusConnecting, c.State().Status)
	require.NoError(t, c.Disconnect(context.Background()))
	close(slow.release)

	var res outcome
	select {
	case res = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("connect did not return")
	}

	require.Error(t, res.err)
	assert.True(t, errors.Is(res.err, ErrConnection))
	assert.Equal(t, StatusDisconnected, res.st.Status)
	assert.Equal(t, StatusDisconnected, c.State().Status)
	assert.Equal(t, int32(1), slow.disconnected.Load())

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)

	st, err := c.Connect(context.Background(), InjectedConnectorID, userAddr)
	require.NoError(t, err)
	assert.True(t, st.Connected())
}

func TestAutoConnectRestoresAuthorizedSession(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), newSession(WatchConnectorID, userAddr, 1)))

	c := newTestClient(t, true, store, NewWatchConnector(userAddr))
	c.Start(context.Background())

	addr, ok := c.Address()
	require.True(t, ok)
	assert.Equal(t, userAddr, addr)
	assert.Equal(t, WatchConnectorID, c.State().Account.ConnectorID)
}

func TestAutoConnectFallsBackToDisconnected(t *testing.T) {
	other := "0x1111111111111111111111111111111111111111"

	cases := map[string]struct {
		session    *Session
		connectors []Connector
	}{
		"not authorized": {
			session:    &Session{ConnectorID: WatchConnectorID, Address: userAddr},
			connectors: []Connector{NewWatchConnector(other)},
		},
		"connector error": {
			session:    &Session{ConnectorID: "broken", Address: userAddr},
			connectors: []Connector{failingConnector{err: errors.New("locked")}},
		},
		"unknown connector": {
			session:    &Session{ConnectorID: "ledger", Address: userAddr},
			connectors: DefaultConnectors(""),
		},
		"no session": {
			connectors: DefaultConnectors(""),
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			store := NewMemoryStore()
			if tc.session != nil {
				require.NoError(t, store.Save(context.Background(), *tc.session))
			}
			c := newTestClient(t, true, store, tc.connectors...)
			c.Start(context.Background())
			assert.Equal(t, StatusDisconnected, c.State().Status)
		})
	}
}

func TestAutoConnectDisabledIgnoresSession(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), newSession(InjectedConnectorID, userAddr, 1)))

	c := newTestClient(t, false, store)
	c.Start(context.Background())
	assert.Equal(t, StatusDisconnected, c.State().Status)
}

func TestSubscribeSeesConnectAndDisconnect(t *testing.T) {
	c := newTestClient(t, false, nil)

	ch := make(chan State, 8)
	sub := c.Subscribe(ch)
	defer sub.Unsubscribe()

	_, err := c.Connect(context.Background(), InjectedConnectorID, userAddr)
	require.NoError(t, err)
	require.NoError(t, c.Disconnect(context.Background()))

	var seen []Status
	timeout := time.After(2 * time.Second)
	for len(seen) < 3 {
		select {
		case st := <-ch:
			seen = append(seen, st.Status)
		case <-timeout:
			t.Fatalf("got %v", seen)
		}
	}
	assert.Equal(t, []Status{StatusConnecting, StatusConnected, StatusDisconnected}, seen)
}

func TestStateIsASnapshot(t *testing.T) {
	c := newTestClient(t, false, nil)
	_, err := c.Connect(context.Background(), InjectedConnectorID, userAddr)
	require.NoError(t, err)

	st := c.State()
	st.Account.Address = "0x0"
	addr, _ := c.Address()
	assert.Equal(t, userAddr, addr)
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "wallet_session.json")
	store := NewFileStore(path)
	ctx := context.Background()

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSession)

	sess := newSession(InjectedConnectorID, userAddr, 1)
	require.NoError(t, store.Save(ctx, sess))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, userAddr, got.Address)
	assert.True(t, sess.ConnectedAt.Equal(got.ConnectedAt))

	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx), "clearing twice is fine")
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestDefaultSessionPathUsesConfigDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("SNAP_REAL_HOME", "")
	t.Setenv(securefile.EnvVar, "")

	path, err := DefaultSessionPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "refi-pool", "wallet_session.json"), path)
}

func TestWatchConnector(t *testing.T) {
	ctx := context.Background()

	fixed := NewWatchConnector(userAddr)
	addr, err := fixed.Connect(ctx, "0x1111111111111111111111111111111111111111")
	require.NoError(t, err)
	assert.Equal(t, userAddr, addr, "configured address wins over the hint")

	open := NewWatchConnector("")
	_, err = open.Connect(ctx, "")
	assert.Error(t, err)
	addr, err = open.Connect(ctx, userAddr)
	require.NoError(t, err)
	assert.Equal(t, userAddr, addr)
}
