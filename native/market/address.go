package market

import (
	"marketchain/core/types"
	"marketchain/crypto"
)

// Derivation namespaces. A record's address is a pure function of its
// namespace tag and identity seeds; handlers recompute the expected address
// from seeds they trust and reject a call whose supplied address does not
// match. That recomputation is the program's only authentication mechanism.
var (
	nsListing  = []byte("LISTING")
	nsOrder    = []byte("ORDER")
	nsHolder   = []byte("HOLDER")
	nsTempFee  = []byte("TEMP")
	nsRegistry = []byte("REGISTRY")
)

func listingSeeds(seed []byte, payer types.Address) [][]byte {
	return [][]byte{nsListing, seed, payer.Bytes()}
}

func orderSeeds(seed []byte, buyer types.Address) [][]byte {
	return [][]byte{nsOrder, seed, buyer.Bytes()}
}

func holderSeeds(itemID []byte) [][]byte {
	return [][]byte{nsHolder, itemID}
}

func tempFeeSeeds(buyer, seller types.Address, itemID []byte) [][]byte {
	return [][]byte{nsTempFee, buyer.Bytes(), seller.Bytes(), itemID}
}

func registrySeeds(itemID []byte, buyer, seller types.Address) [][]byte {
	return [][]byte{nsRegistry, itemID, buyer.Bytes(), seller.Bytes()}
}

func derive(program types.Address, seeds ...[]byte) (types.Address, byte, error) {
	addr, bump, err := crypto.DeriveAddress([32]byte(program), seeds...)
	if err != nil {
		return types.ZeroAddress, 0, err
	}
	return types.Address(addr), bump, nil
}

// ListingAddress derives the listing record address for a caller seed and
// its paying owner.
func ListingAddress(program types.Address, seed []byte, payer types.Address) (types.Address, byte, error) {
	return derive(program, listingSeeds(seed, payer)...)
}

// OrderAddress derives the escrow order record address for a caller seed and
// the buyer.
func OrderAddress(program types.Address, seed []byte, buyer types.Address) (types.Address, byte, error) {
	return derive(program, orderSeeds(seed, buyer)...)
}

// HolderAddress derives the per-item pooled holder address.
func HolderAddress(program types.Address, itemID []byte) (types.Address, byte, error) {
	return derive(program, holderSeeds(itemID)...)
}

// TempFeeAddress derives the per-trade fee pool address.
func TempFeeAddress(program types.Address, buyer, seller types.Address, itemID []byte) (types.Address, byte, error) {
	return derive(program, tempFeeSeeds(buyer, seller, itemID)...)
}

// RegistryAddress derives the write-once registry record address for one
// (item, buyer, seller) trade.
func RegistryAddress(program types.Address, itemID []byte, buyer, seller types.Address) (types.Address, byte, error) {
	return derive(program, registrySeeds(itemID, buyer, seller)...)
}
