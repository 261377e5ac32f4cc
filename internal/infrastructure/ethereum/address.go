package ethereum

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// AddressLength is the length of a 0x-prefixed hex address
const AddressLength = 42

// IsValidAddress reports whether s has the shape of an address: a 0x prefix
// and exactly 42 characters. Hex digits are not checked; malformed contracts
// surface as call errors instead.
func IsValidAddress(s string) bool {
	return strings.HasPrefix(s, "0x") && len(s) == AddressLength
}

// IsHexAddress is the strict check used where input comes from users
func IsHexAddress(s string) bool {
	return IsValidAddress(s) && common.IsHexAddress(s)
}

// NormalizeAddress returns the canonical lowercase form of an address
func NormalizeAddress(s string) string {
	return strings.ToLower(s)
}
