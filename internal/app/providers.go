// Package app wires the bootstrap: network configuration, the wallet client
// and the mounted dashboard.
package app

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/quantumauth-io/refi-pool-dashboard/internal/chains"
	"github.com/quantumauth-io/refi-pool-dashboard/internal/wallet"
)

// Component is a mountable subtree.
type Component interface {
	Mount(ctx context.Context)
	Unmount()
}

// Providers is the process-wide handle every component reads from.
type Providers struct {
	AppName  string
	Client   *wallet.Client
	Chains   *chains.ResolvedChains
	Provider *chains.Provider
	Active   chains.ResolvedChain
}

// Root builds the component tree once providers exist.
type Root func(p *Providers) (Component, error)

type Tree struct {
	Providers *Providers
	Root      Component

	cancel context.CancelFunc
}

// MountProviders starts the wallet client (auto-connect), then builds and
// mounts root under the resulting providers.
func MountProviders(
	ctx context.Context,
	client *wallet.Client,
	resolved *chains.ResolvedChains,
	provider *chains.Provider,
	appName string,
	root Root,
) (*Tree, error) {
	if client == nil {
		return nil, errors.New("app: wallet client is required")
	}
	if resolved == nil || resolved.Len() == 0 {
		return nil, errors.Wrap(chains.ErrConfiguration, "app: no resolved chains")
	}
	if root == nil {
		return nil, errors.New("app: root component is required")
	}

	ctx, cancel := context.WithCancel(ctx)

	client.Start(ctx)

	providers := &Providers{
		AppName:  appName,
		Client:   client,
		Chains:   resolved,
		Provider: provider,
		Active:   resolved.Default(),
	}

	component, err := root(providers)
	if err != nil {
		cancel()
		return nil, errors.Wrap(err, "app: build root")
	}
	component.Mount(ctx)

	log.Info("providers mounted",
		"app", appName,
		"chain", providers.Active.Name,
		"chainId", providers.Active.ID,
		"rpc", providers.Active.RPCName,
		"wallet", client.State().Status,
	)

	return &Tree{Providers: providers, Root: component, cancel: cancel}, nil
}

// Close unmounts the root, then closes the wallet client and the provider.
func (t *Tree) Close() error {
	t.Root.Unmount()
	t.cancel()
	t.Providers.Client.Close()
	if t.Providers.Provider != nil {
		return t.Providers.Provider.Close()
	}
	return nil
}
