package crypto

import (
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/ethereum/go-ethereum/crypto"
)

// AddressHRP is the human-readable bech32 prefix for wallet addresses.
const AddressHRP = "mkt"

// --- Key Management ---

type PrivateKey struct {
	*ecdsa.PrivateKey
}

type PublicKey struct {
	*ecdsa.PublicKey
}

func GeneratePrivateKey() (*PrivateKey, error) {
	key, err := ecdsa.GenerateKey(crypto.S256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}

// Bytes returns the byte representation of the private key.
func (k *PrivateKey) Bytes() []byte {
	return crypto.FromECDSA(k.PrivateKey)
}

func (k *PrivateKey) PubKey() *PublicKey {
	return &PublicKey{&k.PrivateKey.PublicKey}
}

// Address hashes the uncompressed public key into a 32-byte wallet address.
func (k *PublicKey) Address() [32]byte {
	var addr [32]byte
	copy(addr[:], crypto.Keccak256(crypto.FromECDSAPub(k.PublicKey)))
	return addr
}

func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	key, err := crypto.ToECDSA(b)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}

// FormatAddress renders a 32-byte address in the mkt1... bech32 form used by
// the RPC surface and tooling.
func FormatAddress(addr [32]byte) string {
	conv, err := bech32.ConvertBits(addr[:], 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(AddressHRP, conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

// ParseAddress decodes a bech32 mkt1... address back into its 32 raw bytes.
func ParseAddress(s string) ([32]byte, error) {
	var addr [32]byte
	hrp, decoded, err := bech32.Decode(s)
	if err != nil {
		return addr, fmt.Errorf("invalid bech32 string: %w", err)
	}
	if hrp != AddressHRP {
		return addr, fmt.Errorf("unexpected address prefix %q", hrp)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return addr, fmt.Errorf("error converting bits: %w", err)
	}
	if len(conv) != 32 {
		return addr, fmt.Errorf("address must be 32 bytes, got %d", len(conv))
	}
	copy(addr[:], conv)
	return addr, nil
}
