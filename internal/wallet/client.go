// Package wallet holds the process-wide wallet client: which account is
// connected, through which connector, and how to restore it on restart.
package wallet

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/event"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/samber/lo"

	"github.com/quantumauth-io/refi-pool-dashboard/internal/chains"
)

// ErrConnection marks a failed connect attempt. The client state is left
// as it was before the attempt.
var ErrConnection = errors.New("wallet: connection failed")

type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusReconnecting Status = "reconnecting"
	StatusConnected    Status = "connected"
)

type Account struct {
	Address     string `json:"address"`
	ConnectorID string `json:"connectorId"`
	ChainID     uint64 `json:"chainId"`
}

// State is a snapshot of the connection. Account is nil unless connected.
type State struct {
	Status  Status   `json:"status"`
	Account *Account `json:"account,omitempty"`
}

func (s State) Connected() bool {
	return s.Status == StatusConnected && s.Account != nil
}

type Options struct {
	AutoConnect bool
	Connectors  []Connector
	// Provider supplies Chains when Chains is nil.
	Provider *chains.Provider
	Chains      *chains.ResolvedChains
	// Store is optional; without it nothing survives a restart.
	Store SessionStore
}

type Client struct {
	autoConnect bool
	connectors  []Connector
	chainID     uint64
	store       SessionStore

	mu     sync.Mutex
	state  State
	active Connector
	closed bool
	// attempt changes on every Connect and Disconnect so an in-flight
	// connect can tell it was superseded.
	attempt uint64

	feed event.FeedOf[State]
}

func NewClient(opts Options) (*Client, error) {
	if len(opts.Connectors) == 0 {
		return nil, errors.New("wallet: at least one connector is required")
	}
	ids := lo.Map(opts.Connectors, func(c Connector, _ int) string { return c.ID() })
	if dup := lo.FindDuplicates(ids); len(dup) > 0 {
		return nil, errors.Newf("wallet: duplicate connector ids %v", dup)
	}

	resolved := opts.Chains
	if resolved == nil && opts.Provider != nil {
		resolved = opts.Provider.Chains()
	}
	if resolved == nil || resolved.Len() == 0 {
		return nil, errors.New("wallet: no configured chains")
	}

	return &Client{
		autoConnect: opts.AutoConnect,
		connectors:  opts.Connectors,
		chainID:     resolved.Default().ID,
		store:       opts.Store,
		state:       State{Status: StatusDisconnected},
	}, nil
}

func (c *Client) Connectors() []Connector { return c.connectors }

func (c *Client) connector(id string) (Connector, bool) {
	return lo.Find(c.connectors, func(conn Connector) bool { return conn.ID() == id })
}

// Start restores the stored session when auto-connect is enabled. Restore
// failures are logged and leave the client disconnected.
func (c *Client) Start(ctx context.Context) {
	if !c.autoConnect || c.store == nil {
		return
	}

	sess, err := c.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoSession) {
			log.Warn("wallet session unreadable", "error", err)
		}
		return
	}

	conn, ok := c.connector(sess.ConnectorID)
	if !ok {
		log.Warn("wallet session references unknown connector", "connector", sess.ConnectorID)
		return
	}

	if !c.transition(State{Status: StatusDisconnected}, State{Status: StatusReconnecting}) {
		return
	}

	authorized, err := conn.IsAuthorized(ctx, sess.Address)
	if err != nil || !authorized {
		if err != nil {
			log.Warn("wallet auto-connect failed", "connector", conn.ID(), "error", err)
		} else {
			log.Info("wallet auto-connect not authorized", "connector", conn.ID())
		}
		c.transition(State{Status: StatusReconnecting}, State{Status: StatusDisconnected})
		return
	}

	next := State{
		Status:  StatusConnected,
		Account: &Account{Address: sess.Address, ConnectorID: conn.ID(), ChainID: c.chainID},
	}
	c.mu.Lock()
	if c.closed || c.state.Status != StatusReconnecting {
		c.mu.Unlock()
		return
	}
	c.state = next
	c.active = conn
	c.mu.Unlock()

	log.Info("wallet restored", "connector", conn.ID(), "address", sess.Address)
	c.feed.Send(next)
}

// transition swaps the status only when the client is still in from.
func (c *Client) transition(from, to State) bool {
	c.mu.Lock()
	if c.closed || c.state.Status != from.Status {
		c.mu.Unlock()
		return false
	}
	c.state = to
	c.mu.Unlock()
	c.feed.Send(to)
	return true
}

// Connect connects through connectorID. On failure the previous state is
// restored and the error is marked ErrConnection.
func (c *Client) Connect(ctx context.Context, connectorID, hint string) (State, error) {
	conn, ok := c.connector(connectorID)
	if !ok {
		return c.State(), errors.Mark(errors.Newf("unknown connector %q", connectorID), ErrConnection)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return State{}, errors.Mark(errors.New("client closed"), ErrConnection)
	}
	if c.state.Status == StatusConnecting || c.state.Status == StatusReconnecting {
		st := c.state
		c.mu.Unlock()
		return st, errors.Mark(errors.New("connection already in progress"), ErrConnection)
	}
	prev := c.state
	prevActive := c.active
	c.attempt++
	attempt := c.attempt
	c.state = State{Status: StatusConnecting}
	c.mu.Unlock()
	c.feed.Send(State{Status: StatusConnecting})

	address, err := conn.Connect(ctx, hint)
	if err != nil {
		c.restore(attempt, prev, prevActive)
		return prev, errors.Mark(errors.Wrapf(err, "connect %s", conn.ID()), ErrConnection)
	}

	next := State{
		Status:  StatusConnected,
		Account: &Account{Address: address, ConnectorID: conn.ID(), ChainID: c.chainID},
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return State{}, errors.Mark(errors.New("client closed"), ErrConnection)
	}
	if c.attempt != attempt || c.state.Status != StatusConnecting {
		st := c.state
		c.mu.Unlock()
		if err := conn.Disconnect(ctx); err != nil {
			log.Warn("cancelled connector disconnect failed", "connector", conn.ID(), "error", err)
		}
		log.Info("wallet connect cancelled", "connector", conn.ID())
		return st, errors.Mark(errors.New("connection cancelled"), ErrConnection)
	}
	c.state = next
	c.active = conn
	c.mu.Unlock()

	if prevActive != nil && prevActive.ID() != conn.ID() {
		if err := prevActive.Disconnect(ctx); err != nil {
			log.Warn("previous connector disconnect failed", "connector", prevActive.ID(), "error", err)
		}
	}

	if c.store != nil {
		if err := c.store.Save(ctx, newSession(conn.ID(), address, c.chainID)); err != nil {
			log.Warn("wallet session not saved", "error", err)
		}
	}

	log.Info("wallet connected", "connector", conn.ID(), "address", address)
	c.feed.Send(next)
	return next, nil
}

func (c *Client) restore(attempt uint64, prev State, prevActive Connector) {
	c.mu.Lock()
	if c.closed || c.attempt != attempt {
		c.mu.Unlock()
		return
	}
	c.state = prev
	c.active = prevActive
	c.mu.Unlock()
	c.feed.Send(prev)
}

func (c *Client) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	active := c.active
	wasConnected := c.state.Status != StatusDisconnected
	c.attempt++
	c.state = State{Status: StatusDisconnected}
	c.active = nil
	c.mu.Unlock()

	var errs error
	if active != nil {
		errs = errors.CombineErrors(errs, active.Disconnect(ctx))
	}
	if c.store != nil {
		errs = errors.CombineErrors(errs, c.store.Clear(ctx))
	}

	if wasConnected {
		log.Info("wallet disconnected")
		c.feed.Send(State{Status: StatusDisconnected})
	}
	return errs
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.state
	if st.Account != nil {
		acc := *st.Account
		st.Account = &acc
	}
	return st
}

// Address returns the connected account exactly as the connector reported it.
func (c *Client) Address() (string, bool) {
	st := c.State()
	if !st.Connected() {
		return "", false
	}
	return st.Account.Address, true
}

// Subscribe delivers every state change to ch. Sends block until ch is
// drained, so subscribers should buffer or read promptly.
func (c *Client) Subscribe(ch chan<- State) event.Subscription {
	return c.feed.Subscribe(ch)
}

// Close stops the client. The stored session is kept for the next start.
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}
