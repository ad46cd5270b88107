package wallet

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memRedis answers GET/SET/DEL in process so no server is needed.
type memRedis struct {
	mu   sync.Mutex
	data map[string][]byte
	ttl  map[string]string
}

func newMemRedis() *memRedis {
	return &memRedis{data: map[string][]byte{}, ttl: map[string]string{}}
}

func (m *memRedis) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return nil, &net.OpError{Op: "dial", Net: network, Err: net.UnknownNetworkError("in-memory")}
	}
}

func (m *memRedis) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func (m *memRedis) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		m.mu.Lock()
		defer m.mu.Unlock()

		args := cmd.Args()
		key, _ := args[1].(string)
		switch c := cmd.(type) {
		case *redis.StringCmd:
			v, ok := m.data[key]
			if !ok {
				c.SetErr(redis.Nil)
				return redis.Nil
			}
			c.SetVal(string(v))
		case *redis.StatusCmd:
			m.data[key] = args[2].([]byte)
			if len(args) == 5 {
				m.ttl[key] = args[3].(string)
			}
			c.SetVal("OK")
		case *redis.IntCmd:
			_, ok := m.data[key]
			delete(m.data, key)
			c.SetVal(int64(boolInt(ok)))
		}
		return nil
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func newTestRedisStore(t *testing.T, key string, ttl time.Duration) (*RedisStore, *memRedis) {
	t.Helper()
	mem := newMemRedis()
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	rdb.AddHook(mem)
	s := newRedisStore(rdb, key, ttl)
	t.Cleanup(func() { _ = s.Close() })
	return s, mem
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, mem := newTestRedisStore(t, "", time.Hour)

	_, err := s.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSession)

	sess := newSession(InjectedConnectorID, userAddr, 1)
	require.NoError(t, s.Save(ctx, sess))
	assert.Contains(t, mem.data, "refi-pool:wallet_session")
	assert.NotEmpty(t, mem.ttl["refi-pool:wallet_session"])

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, userAddr, got.Address)
	assert.Equal(t, InjectedConnectorID, got.ConnectorID)
	assert.Equal(t, uint64(1), got.ChainID)

	require.NoError(t, s.Clear(ctx))
	_, err = s.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSession)

	// Clearing an absent key is not an error.
	require.NoError(t, s.Clear(ctx))
}

func TestRedisStoreCustomKeyWithoutTTL(t *testing.T) {
	ctx := context.Background()
	s, mem := newTestRedisStore(t, "dash:session", 0)

	require.NoError(t, s.Save(ctx, newSession(WatchConnectorID, userAddr, 1)))
	assert.Contains(t, mem.data, "dash:session")
	assert.NotContains(t, mem.ttl, "dash:session")
}

func TestRedisStoreCorruptValue(t *testing.T) {
	s, mem := newTestRedisStore(t, "", 0)
	mem.data["refi-pool:wallet_session"] = []byte("{not json")

	_, err := s.Load(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSession)
}

func TestRedisStoreBacksAutoConnect(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestRedisStore(t, "", 0)

	first := newTestClient(t, true, s)
	_, err := first.Connect(ctx, InjectedConnectorID, userAddr)
	require.NoError(t, err)

	second := newTestClient(t, true, s)
	second.Start(ctx)
	addr, ok := second.Address()
	require.True(t, ok)
	assert.Equal(t, userAddr, addr)
	assert.Equal(t, InjectedConnectorID, second.State().Account.ConnectorID)
}

func TestNewRedisStoreUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := NewRedisStore(ctx, RedisOptions{Addr: "127.0.0.1:1"})
	assert.Error(t, err)

	_, err = NewRedisStore(ctx, RedisOptions{Addr: "localhost"})
	assert.Error(t, err, "missing port")
}
