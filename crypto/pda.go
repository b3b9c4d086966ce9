package crypto

import (
	"errors"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// derivedMarker domain-separates program-derived addresses from every other
// keccak256 usage on the ledger, so a derived address can never collide with
// a hashed public key or a state key.
var derivedMarker = []byte("marketchain/derived-address")

// MaxBump is the first bump candidate tried by DeriveAddress.
const MaxBump byte = 255

// ErrNoBump is returned when no bump byte yields a usable derived address
// for the given seed tuple.
var ErrNoBump = errors.New("crypto: no valid bump for seeds")

// ProgramAddress computes the derived address for a program, bump and seed
// tuple. It is a pure function: the same inputs always produce the same
// address, and any change to the program, the bump, a seed's bytes or the
// seed order produces an unrelated address.
func ProgramAddress(program [32]byte, bump byte, seeds ...[]byte) [32]byte {
	material := make([]byte, 0, 64)
	material = append(material, program[:]...)
	for _, seed := range seeds {
		material = append(material, seed...)
	}
	material = append(material, bump)
	material = append(material, derivedMarker...)
	var addr [32]byte
	copy(addr[:], ethcrypto.Keccak256(material))
	return addr
}

// DeriveAddress searches bump bytes from MaxBump downward and returns the
// first usable derived address together with the bump that produced it. The
// bump is the proof the program later presents to authorize state changes on
// behalf of the address; the runtime re-verifies it with ProgramAddress.
//
// A candidate is rejected when its leading byte is zero, which keeps the
// derived space disjoint from legacy zero-prefixed key material. Rejection
// is a 1/256 event per bump, so in practice the search terminates on the
// first or second candidate.
func DeriveAddress(program [32]byte, seeds ...[]byte) ([32]byte, byte, error) {
	for bump := int(MaxBump); bump >= 0; bump-- {
		addr := ProgramAddress(program, byte(bump), seeds...)
		if addr[0] == 0 {
			continue
		}
		return addr, byte(bump), nil
	}
	return [32]byte{}, 0, ErrNoBump
}

// VerifyProgramAddress reports whether addr is the derived address for the
// given program, bump and seeds.
func VerifyProgramAddress(addr [32]byte, program [32]byte, bump byte, seeds ...[]byte) bool {
	return ProgramAddress(program, bump, seeds...) == addr
}
