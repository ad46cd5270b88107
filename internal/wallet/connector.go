package wallet

import (
	"context"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
)

const (
	InjectedConnectorID = "injected"
	WatchConnectorID    = "watch"
)

// Connector is a wallet capability the client can connect through.
type Connector interface {
	ID() string
	Name() string
	// Connect returns the account the wallet exposes. hint is the address a
	// browser wallet reported, if any.
	Connect(ctx context.Context, hint string) (string, error)
	// IsAuthorized reports whether address can be restored without user
	// interaction.
	IsAuthorized(ctx context.Context, address string) (bool, error)
	Disconnect(ctx context.Context) error
}

var ErrInvalidAddress = errors.New("wallet: invalid address")

func validAddress(address string) error {
	if !common.IsHexAddress(address) {
		return errors.Wrapf(ErrInvalidAddress, "%q", address)
	}
	return nil
}

// InjectedConnector stands in for a browser-injected wallet. The page asks
// the wallet for its account and hands it to the client verbatim.
type InjectedConnector struct {
	mu         sync.Mutex
	authorized map[string]struct{}
}

func NewInjectedConnector() *InjectedConnector {
	return &InjectedConnector{authorized: make(map[string]struct{})}
}

func (c *InjectedConnector) ID() string   { return InjectedConnectorID }
func (c *InjectedConnector) Name() string { return "Browser Wallet" }

func (c *InjectedConnector) Connect(_ context.Context, hint string) (string, error) {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return "", errors.New("wallet: injected wallet returned no account")
	}
	if err := validAddress(hint); err != nil {
		return "", err
	}

	c.mu.Lock()
	c.authorized[strings.ToLower(hint)] = struct{}{}
	c.mu.Unlock()
	return hint, nil
}

// IsAuthorized trusts any well-formed stored address: the browser wallet
// granted it in an earlier run and revocation is reported by the page.
func (c *InjectedConnector) IsAuthorized(_ context.Context, address string) (bool, error) {
	if err := validAddress(address); err != nil {
		return false, nil
	}
	c.mu.Lock()
	c.authorized[strings.ToLower(address)] = struct{}{}
	c.mu.Unlock()
	return true, nil
}

func (c *InjectedConnector) Disconnect(context.Context) error {
	c.mu.Lock()
	clear(c.authorized)
	c.mu.Unlock()
	return nil
}

// WatchConnector connects a fixed, read-only address from configuration.
type WatchConnector struct {
	address string
}

func NewWatchConnector(address string) *WatchConnector {
	return &WatchConnector{address: strings.TrimSpace(address)}
}

func (c *WatchConnector) ID() string   { return WatchConnectorID }
func (c *WatchConnector) Name() string { return "Watch Address" }

func (c *WatchConnector) Connect(_ context.Context, hint string) (string, error) {
	address := c.address
	if address == "" {
		address = strings.TrimSpace(hint)
	}
	if address == "" {
		return "", errors.New("wallet: no watch address configured")
	}
	if err := validAddress(address); err != nil {
		return "", err
	}
	return address, nil
}

func (c *WatchConnector) IsAuthorized(_ context.Context, address string) (bool, error) {
	if c.address == "" {
		return validAddress(address) == nil, nil
	}
	return strings.EqualFold(c.address, address), nil
}

func (c *WatchConnector) Disconnect(context.Context) error { return nil }

// DefaultConnectors is the connector list offered when none is configured.
func DefaultConnectors(watchAddress string) []Connector {
	return []Connector{
		NewInjectedConnector(),
		NewWatchConnector(watchAddress),
	}
}
