package wallet

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	qredis "github.com/quantumauth-io/quantum-go-utils/redis"
	"github.com/redis/go-redis/v9"

	"github.com/quantumauth-io/refi-pool-dashboard/internal/constants"
	"github.com/quantumauth-io/refi-pool-dashboard/internal/securefile"
)

// ErrNoSession is returned by Load when nothing is stored.
var ErrNoSession = errors.New("wallet: no stored session")

// Session is what auto-connect restores on the next start.
type Session struct {
	Version     int       `json:"version"`
	ID          uuid.UUID `json:"id"`
	ConnectorID string    `json:"connector_id"`
	Address     string    `json:"address"`
	ChainID     uint64    `json:"chain_id"`
	ConnectedAt time.Time `json:"connected_at"`
}

func newSession(connectorID, address string, chainID uint64) Session {
	return Session{
		Version:     constants.SchemaV1,
		ID:          uuid.New(),
		ConnectorID: connectorID,
		Address:     address,
		ChainID:     chainID,
		ConnectedAt: time.Now().UTC(),
	}
}

type SessionStore interface {
	Load(ctx context.Context) (Session, error)
	Save(ctx context.Context, s Session) error
	Clear(ctx context.Context) error
}

// FileStore keeps the session as a 0600 JSON file in the user config dir.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultSessionPath returns the first existing session file among the
// config dir candidates, or the canonical path when none exists yet.
func DefaultSessionPath() (string, error) {
	paths, err := securefile.ConfigPathCandidates(constants.AppName, constants.SessionFile)
	if err != nil {
		return "", err
	}
	for _, p := range paths {
		if securefile.Exists(p) {
			return p, nil
		}
	}
	return paths[0], nil
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(context.Context) (Session, error) {
	sess, err := securefile.ReadJSON[Session](s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Session{}, ErrNoSession
		}
		return Session{}, errors.Wrapf(err, "read session %s", s.path)
	}
	return sess, nil
}

func (s *FileStore) Save(_ context.Context, sess Session) error {
	return securefile.WriteJSON(s.path, sess, constants.FilePerm, constants.DirectoryPerm)
}

func (s *FileStore) Clear(context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrapf(err, "remove session %s", s.path)
	}
	return nil
}

// RedisStore shares the session between processes through one redis key.
type RedisStore struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

type RedisOptions struct {
	// Addr is host:port.
	Addr     string
	Password string
	DB       int
	Key      string
	TTL      time.Duration
}

// NewRedisStore dials and pings redis; an unreachable server is an error.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	host, port, err := net.SplitHostPort(opts.Addr)
	if err != nil {
		return nil, errors.Wrapf(err, "redis addr %q", opts.Addr)
	}
	rdb, err := qredis.NewClient(ctx, qredis.Config{
		Host:     host,
		Port:     port,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "connect redis %s", opts.Addr)
	}
	return newRedisStore(rdb, opts.Key, opts.TTL), nil
}

func newRedisStore(rdb *redis.Client, key string, ttl time.Duration) *RedisStore {
	if key == "" {
		key = constants.AppName + ":wallet_session"
	}
	return &RedisStore{rdb: rdb, key: key, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context) (Session, error) {
	raw, err := s.rdb.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, ErrNoSession
		}
		return Session{}, errors.Wrap(err, "redis get session")
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return Session{}, errors.Wrap(err, "decode session")
	}
	return sess, nil
}

func (s *RedisStore) Save(ctx context.Context, sess Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return errors.Wrap(err, "encode session")
	}
	return errors.Wrap(s.rdb.Set(ctx, s.key, raw, s.ttl).Err(), "redis set session")
}

func (s *RedisStore) Clear(ctx context.Context) error {
	return errors.Wrap(s.rdb.Del(ctx, s.key).Err(), "redis del session")
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// MemoryStore keeps the session for the life of the process.
type MemoryStore struct {
	mu   sync.Mutex
	sess *Session
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Load(context.Context) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil {
		return Session{}, ErrNoSession
	}
	return *s.sess, nil
}

func (s *MemoryStore) Save(_ context.Context, sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess = &sess
	return nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess = nil
	return nil
}
