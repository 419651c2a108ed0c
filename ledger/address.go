package ledger

import (
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"
)

// AddressLength is the size of a ledger account address in bytes.
const AddressLength = 20

// Address is a 20-byte ledger account identifier.
type Address [AddressLength]byte

// ParseAddress parses a hexadecimal address string, with or without a
// leading "0x" prefix.
func ParseAddress(s string) (Address, error) {
	var addr Address
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if len(s) != AddressLength*2 {
		return addr, errors.Errorf("invalid address length: %d hex characters, want %d", len(s), AddressLength*2)
	}
	data, err := hex.DecodeString(s)
	if err != nil {
		return addr, errors.Wrap(err, "invalid address encoding")
	}
	copy(addr[:], data)
	return addr, nil
}

// Hex returns the 0x-prefixed lowercase hexadecimal form of the address.
func (a Address) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

// String implements fmt.Stringer.
func (a Address) String() string {
	return a.Hex()
}

// Short returns the first 4 bytes of the address for logging.
func (a Address) Short() string {
	return hex.EncodeToString(a[:4])
}

// IsZero reports whether the address is the zero value.
func (a Address) IsZero() bool {
	return a == Address{}
}
