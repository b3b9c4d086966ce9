package types

import "encoding/hex"

// Address is a 32-byte ledger address. Program records live at addresses
// derived from seeds; wallet addresses are hashed public keys.
type Address [32]byte

// ZeroAddress is the unowned/system address.
var ZeroAddress Address

// Bytes returns the address as a byte slice.
func (a Address) Bytes() []byte {
	return a[:]
}

// Hex returns the lowercase hex encoding of the address.
func (a Address) Hex() string {
	return hex.EncodeToString(a[:])
}

// IsZero reports whether the address is the zero value.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// AddressFromBytes copies b into an Address. Short input is zero-padded on
// the right; long input is truncated.
func AddressFromBytes(b []byte) Address {
	var a Address
	copy(a[:], b)
	return a
}

// Account is the persisted envelope for a single ledger slot: its native
// balance, the program that owns (may mutate) it, and its raw record bytes.
// Record bytes carry no self-describing structure; the owning program's codec
// interprets them in place.
type Account struct {
	Balance uint64
	Owner   Address
	Data    []byte
}

// Clone returns a deep copy of the account so callers can stage mutations
// without touching the stored instance.
func (a *Account) Clone() *Account {
	if a == nil {
		return &Account{}
	}
	clone := &Account{Balance: a.Balance, Owner: a.Owner}
	if a.Data != nil {
		clone.Data = append([]byte(nil), a.Data...)
	}
	return clone
}

// IsEmpty reports whether the slot is unallocated: no balance, no owner and
// no record bytes.
func (a *Account) IsEmpty() bool {
	if a == nil {
		return true
	}
	return a.Balance == 0 && a.Owner.IsZero() && len(a.Data) == 0
}

// AccountRef is one positional entry of an invocation's account list: the
// slot address, whether the submitter's authorization for it was verified,
// and the staged mutable account the handler operates on.
type AccountRef struct {
	Address Address
	Signer  bool
	Account *Account
}
