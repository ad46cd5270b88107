// Package donationpool carries the DonationPool contract interface descriptor.
package donationpool

import (
	_ "embed"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/tidwall/gjson"
)

// PoolBalancesMethod returns (ethBalance uint256, usdcBalance uint256).
const PoolBalancesMethod = "poolBalances"

//go:embed DonationPool.json
var artifactJSON []byte

// ABI returns the embedded DonationPool interface.
func ABI() (abi.ABI, error) {
	return Parse(artifactJSON)
}

// LoadFile reads an ABI from disk. Both a hardhat/foundry artifact
// (object with an "abi" field) and a bare ABI array are accepted.
func LoadFile(path string) (abi.ABI, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return abi.ABI{}, errors.Wrapf(err, "read abi file %s", path)
	}
	return Parse(raw)
}

func Parse(raw []byte) (abi.ABI, error) {
	if !gjson.ValidBytes(raw) {
		return abi.ABI{}, errors.New("abi: invalid json")
	}

	doc := gjson.ParseBytes(raw)
	var entries string
	switch {
	case doc.IsArray():
		entries = doc.Raw
	case doc.Get("abi").IsArray():
		entries = doc.Get("abi").Raw
	default:
		return abi.ABI{}, errors.New("abi: expected an ABI array or an artifact with an \"abi\" field")
	}

	parsed, err := abi.JSON(strings.NewReader(entries))
	if err != nil {
		return abi.ABI{}, errors.Wrap(err, "abi: parse")
	}
	return parsed, nil
}

// RequireView checks that method exists and is callable without a transaction.
func RequireView(contractABI abi.ABI, method string) error {
	m, ok := contractABI.Methods[method]
	if !ok {
		return errors.Newf("abi: method %q not found", method)
	}
	if !m.IsConstant() {
		return errors.Newf("abi: method %q is not a view function", method)
	}
	return nil
}
