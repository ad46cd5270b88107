package pool

import (
	"context"
	"math/big"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/quantumauth-io/refi-pool-dashboard/internal/chains"
)

// ErrFetch marks a failed chain read (RPC, transport or decode failure).
var ErrFetch = errors.New("pool: fetch failed")

// NativeBalance is the native-currency balance of an address.
type NativeBalance struct {
	Formatted string   `json:"formatted"`
	Raw       *big.Int `json:"raw"`
	Symbol    string   `json:"symbol"`
	Decimals  uint8    `json:"decimals"`
}

// Balances is the decoded poolBalances() tuple.
type Balances struct {
	ETH   *big.Int `json:"eth"`
	Token *big.Int `json:"token"`
}

type Reader struct {
	backend  chains.Backend
	currency chains.NativeCurrency
}

func NewReader(backend chains.Backend, currency chains.NativeCurrency) *Reader {
	return &Reader{
		backend:  backend,
		currency: currency,
	}
}

// FetchNativeBalance returns the latest native balance of address.
func (r *Reader) FetchNativeBalance(ctx context.Context, address common.Address) (NativeBalance, error) {
	if r.backend == nil {
		return NativeBalance{}, errors.Mark(errors.New("pool: eth client not initialized"), ErrFetch)
	}

	wei, err := r.backend.BalanceAt(ctx, address, nil)
	if err != nil {
		return NativeBalance{}, errors.Mark(errors.Wrapf(err, "native balance of %s", address.Hex()), ErrFetch)
	}

	return NativeBalance{
		Formatted: FormatUnits(wei, r.currency.Decimals),
		Raw:       wei,
		Symbol:    r.currency.Symbol,
		Decimals:  r.currency.Decimals,
	}, nil
}

// ReadContract simulates a call to a read-only contract function and
// returns its decoded outputs.
func (r *Reader) ReadContract(ctx context.Context, contract common.Address, contractABI abi.ABI, method string, args ...any) ([]any, error) {
	if r.backend == nil {
		return nil, errors.Mark(errors.New("pool: eth client not initialized"), ErrFetch)
	}

	input, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "pack %s", method)
	}

	output, err := r.backend.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: input}, nil)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "call %s on %s", method, contract.Hex()), ErrFetch)
	}
	if len(output) == 0 {
		return nil, errors.Mark(errors.Newf("call %s on %s: empty result (no contract code?)", method, contract.Hex()), ErrFetch)
	}

	out, err := contractABI.Unpack(method, output)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "unpack %s", method), ErrFetch)
	}
	return out, nil
}

// FetchContractBalances reads a (uint256, uint256) pool balance tuple.
func (r *Reader) FetchContractBalances(ctx context.Context, contract common.Address, contractABI abi.ABI, method string) (Balances, error) {
	out, err := r.ReadContract(ctx, contract, contractABI, method)
	if err != nil {
		return Balances{}, err
	}
	if len(out) != 2 {
		return Balances{}, errors.Mark(errors.Newf("%s: expected 2 outputs, got %d", method, len(out)), ErrFetch)
	}

	eth, ok := out[0].(*big.Int)
	if !ok {
		return Balances{}, errors.Mark(errors.Newf("%s: output 0 is %T, want uint256", method, out[0]), ErrFetch)
	}
	token, ok := out[1].(*big.Int)
	if !ok {
		return Balances{}, errors.Mark(errors.Newf("%s: output 1 is %T, want uint256", method, out[1]), ErrFetch)
	}

	return Balances{ETH: eth, Token: token}, nil
}
