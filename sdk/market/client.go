// Package market assembles instruction bytes for the marketplace program.
// Every builder produces the exact fixed-width payload the program's
// dispatcher expects; oversized text fields are rejected rather than
// truncated.
package market

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"

	"marketchain/core/types"
	native "marketchain/native/market"
)

func padText(dst []byte, s string) error {
	if len(s) > len(dst) {
		return fmt.Errorf("market sdk: text of %d bytes exceeds field width %d", len(s), len(dst))
	}
	copy(dst, s)
	return nil
}

// BuildInit assembles an INIT instruction creating a listing.
func BuildInit(id uuid.UUID, itemID [32]byte, title, description string, price uint64, seed [32]byte) ([]byte, error) {
	data := make([]byte, 1+native.InitDataSize)
	data[0] = native.OpInit
	payload := native.InitData(data[1:])
	copy(payload.UUID(), id[:])
	copy(payload.ItemID(), itemID[:])
	if err := padText(payload.Title(), title); err != nil {
		return nil, err
	}
	if err := padText(payload.Description(), description); err != nil {
		return nil, err
	}
	binary.LittleEndian.PutUint64(payload[native.UUIDSize+native.ItemIDSize+native.TitleSize+native.DescriptionSize:], price)
	copy(payload.Seed(), seed[:])
	return data, nil
}

// BuildUpdate assembles an UPDATE instruction overwriting a listing's
// mutable fields.
func BuildUpdate(title, description string, price uint64, seed [32]byte) ([]byte, error) {
	data := make([]byte, 1+native.UpdateDataSize)
	data[0] = native.OpUpdate
	payload := native.UpdateData(data[1:])
	if err := padText(payload.Title(), title); err != nil {
		return nil, err
	}
	if err := padText(payload.Description(), description); err != nil {
		return nil, err
	}
	binary.LittleEndian.PutUint64(payload[native.TitleSize+native.DescriptionSize:], price)
	copy(payload.Seed(), seed[:])
	return data, nil
}

// BuildDelete assembles a DELETE instruction tearing down a listing.
func BuildDelete(seed [32]byte) []byte {
	data := make([]byte, 1+native.DeleteDataSize)
	data[0] = native.OpDelete
	copy(native.DeleteData(data[1:]).Seed(), seed[:])
	return data
}

// BuildBuy assembles a BUY instruction opening an escrow order.
func BuildBuy(itemID [32]byte, buyer types.Address, seed [32]byte) []byte {
	data := make([]byte, 1+native.BuyDataSize)
	data[0] = native.OpBuy
	payload := native.BuyData(data[1:])
	copy(payload.ItemID(), itemID[:])
	copy(payload.Buyer(), buyer.Bytes())
	copy(payload.Seed(), seed[:])
	return data
}

// BuildSell assembles a SELL instruction settling an open order.
func BuildSell(listingSeed, orderSeed [32]byte) []byte {
	data := make([]byte, 1+native.SellDataSize)
	data[0] = native.OpSell
	payload := native.SellData(data[1:])
	copy(payload.SeedPost(), listingSeed[:])
	copy(payload.SeedBuy(), orderSeed[:])
	return data
}

// BuildCancel assembles a CANCEL instruction unwinding an open order.
func BuildCancel(itemID [32]byte, seed [32]byte) []byte {
	data := make([]byte, 1+native.CancelDataSize)
	data[0] = native.OpCancel
	payload := native.CancelData(data[1:])
	copy(payload.ItemID(), itemID[:])
	copy(payload.Seed(), seed[:])
	return data
}

// BuildMoneyHolder assembles the HOLD_ACCOUNT instruction materializing the
// per-item pooled holder.
func BuildMoneyHolder(itemID [32]byte) []byte {
	data := make([]byte, 2+native.MoneyHolderDataSize)
	data[0] = native.OpHoldAccount
	data[1] = native.HoldMoneyHolder
	copy(native.MoneyHolderData(data[2:]).Tag(), itemID[:])
	return data
}

// BuildTempMoneyHolder assembles the HOLD_ACCOUNT instruction materializing
// the per-trade fee pool.
func BuildTempMoneyHolder(itemID [32]byte, buyer, seller types.Address) []byte {
	data := make([]byte, 2+native.TempMoneyHolderDataSize)
	data[0] = native.OpHoldAccount
	data[1] = native.HoldTempMoneyHolder
	payload := native.TempMoneyHolderData(data[2:])
	copy(payload.Tag(), itemID[:])
	copy(payload.Buyer(), buyer.Bytes())
	copy(payload.Seller(), seller.Bytes())
	return data
}

// BuildInfoAccount assembles the HOLD_ACCOUNT instruction pre-allocating a
// registry-sized slot.
func BuildInfoAccount(itemID [32]byte) []byte {
	data := make([]byte, 2+native.InfoDataSize)
	data[0] = native.OpHoldAccount
	data[1] = native.HoldBuyInfoHolder
	copy(native.InfoData(data[2:]).Tag(), itemID[:])
	return data
}
