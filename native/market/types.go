package market

import (
	"encoding/binary"
	"fmt"
)

// Field widths shared by instruction payloads and persisted records. Every
// field is a fixed-width byte array or a little-endian 64-bit integer; no
// field is optional or self-delimited.
const (
	UUIDSize        = 16
	ItemIDSize      = 32
	TitleSize       = 128
	DescriptionSize = 1024
	PriceSize       = 8
	SeedSize        = 32
	AddressSize     = 32
	TagSize         = 32
	TimestampSize   = 8
)

// Record sizes. A record's bytes are interpreted in place; any length other
// than the exact record size is a decode failure.
const (
	ListingSize  = ItemIDSize + TitleSize + DescriptionSize + PriceSize + AddressSize
	OrderSize    = ItemIDSize + AddressSize + AddressSize + PriceSize
	RegistrySize = ItemIDSize + AddressSize + AddressSize + PriceSize + TitleSize + DescriptionSize + TimestampSize
)

// Instruction payload sizes, excluding the opcode byte (and, for holder
// payloads, the sub-discriminator byte).
const (
	InitDataSize            = UUIDSize + ItemIDSize + TitleSize + DescriptionSize + PriceSize + SeedSize
	UpdateDataSize          = TitleSize + DescriptionSize + PriceSize + SeedSize
	DeleteDataSize          = SeedSize
	BuyDataSize             = ItemIDSize + AddressSize + SeedSize
	SellDataSize            = SeedSize + SeedSize
	CancelDataSize          = ItemIDSize + SeedSize
	MoneyHolderDataSize     = TagSize
	TempMoneyHolderDataSize = TagSize + AddressSize + AddressSize
	InfoDataSize            = TagSize
)

func zeroFill(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// --- Listing record ---

const (
	listingItemOff  = 0
	listingTitleOff = listingItemOff + ItemIDSize
	listingDescOff  = listingTitleOff + TitleSize
	listingPriceOff = listingDescOff + DescriptionSize
	listingPayerOff = listingPriceOff + PriceSize
)

// Listing is a byte-exact view over a listing record. Accessors return
// subslices of the backing bytes, so a write through the view is immediately
// the record's persisted state.
type Listing []byte

// ListingRecord views b as a listing record.
func ListingRecord(b []byte) (Listing, error) {
	if len(b) != ListingSize {
		return nil, fmt.Errorf("%w: listing record is %d bytes, want %d", ErrInvalidAccountData, len(b), ListingSize)
	}
	return Listing(b), nil
}

func (l Listing) ItemID() []byte      { return l[listingItemOff : listingItemOff+ItemIDSize] }
func (l Listing) Title() []byte       { return l[listingTitleOff : listingTitleOff+TitleSize] }
func (l Listing) Description() []byte { return l[listingDescOff : listingDescOff+DescriptionSize] }
func (l Listing) Payer() []byte       { return l[listingPayerOff : listingPayerOff+AddressSize] }

func (l Listing) Price() uint64 {
	return binary.LittleEndian.Uint64(l[listingPriceOff : listingPriceOff+PriceSize])
}

func (l Listing) SetItemID(v []byte)      { copy(l.ItemID(), v) }
func (l Listing) SetTitle(v []byte)       { copy(l.Title(), v) }
func (l Listing) SetDescription(v []byte) { copy(l.Description(), v) }
func (l Listing) SetPayer(v []byte)       { copy(l.Payer(), v) }

func (l Listing) SetPrice(v uint64) {
	binary.LittleEndian.PutUint64(l[listingPriceOff:listingPriceOff+PriceSize], v)
}

// --- Escrow order record ---

const (
	orderItemOff   = 0
	orderBuyerOff  = orderItemOff + ItemIDSize
	orderSellerOff = orderBuyerOff + AddressSize
	orderPriceOff  = orderSellerOff + AddressSize
)

// Order is a byte-exact view over an escrow order record.
type Order []byte

// OrderRecord views b as an escrow order record.
func OrderRecord(b []byte) (Order, error) {
	if len(b) != OrderSize {
		return nil, fmt.Errorf("%w: order record is %d bytes, want %d", ErrInvalidAccountData, len(b), OrderSize)
	}
	return Order(b), nil
}

func (o Order) ItemID() []byte { return o[orderItemOff : orderItemOff+ItemIDSize] }
func (o Order) Buyer() []byte  { return o[orderBuyerOff : orderBuyerOff+AddressSize] }
func (o Order) Seller() []byte { return o[orderSellerOff : orderSellerOff+AddressSize] }

func (o Order) Price() uint64 {
	return binary.LittleEndian.Uint64(o[orderPriceOff : orderPriceOff+PriceSize])
}

func (o Order) SetItemID(v []byte) { copy(o.ItemID(), v) }
func (o Order) SetBuyer(v []byte)  { copy(o.Buyer(), v) }
func (o Order) SetSeller(v []byte) { copy(o.Seller(), v) }

func (o Order) SetPrice(v uint64) {
	binary.LittleEndian.PutUint64(o[orderPriceOff:orderPriceOff+PriceSize], v)
}

// --- Registry record ---

const (
	registryItemOff      = 0
	registryBuyerOff     = registryItemOff + ItemIDSize
	registrySellerOff    = registryBuyerOff + AddressSize
	registryPriceOff     = registrySellerOff + AddressSize
	registryTitleOff     = registryPriceOff + PriceSize
	registryDescOff      = registryTitleOff + TitleSize
	registryTimestampOff = registryDescOff + DescriptionSize
)

// Registry is a byte-exact view over the permanent record of a completed
// trade. It is written exactly once, at settlement, and never mutated.
type Registry []byte

// RegistryRecord views b as a registry record.
func RegistryRecord(b []byte) (Registry, error) {
	if len(b) != RegistrySize {
		return nil, fmt.Errorf("%w: registry record is %d bytes, want %d", ErrInvalidAccountData, len(b), RegistrySize)
	}
	return Registry(b), nil
}

func (r Registry) ItemID() []byte      { return r[registryItemOff : registryItemOff+ItemIDSize] }
func (r Registry) Buyer() []byte       { return r[registryBuyerOff : registryBuyerOff+AddressSize] }
func (r Registry) Seller() []byte      { return r[registrySellerOff : registrySellerOff+AddressSize] }
func (r Registry) Title() []byte       { return r[registryTitleOff : registryTitleOff+TitleSize] }
func (r Registry) Description() []byte { return r[registryDescOff : registryDescOff+DescriptionSize] }

func (r Registry) Price() uint64 {
	return binary.LittleEndian.Uint64(r[registryPriceOff : registryPriceOff+PriceSize])
}

func (r Registry) Timestamp() uint64 {
	return binary.LittleEndian.Uint64(r[registryTimestampOff : registryTimestampOff+TimestampSize])
}

func (r Registry) SetItemID(v []byte)      { copy(r.ItemID(), v) }
func (r Registry) SetBuyer(v []byte)       { copy(r.Buyer(), v) }
func (r Registry) SetSeller(v []byte)      { copy(r.Seller(), v) }
func (r Registry) SetTitle(v []byte)       { copy(r.Title(), v) }
func (r Registry) SetDescription(v []byte) { copy(r.Description(), v) }

func (r Registry) SetPrice(v uint64) {
	binary.LittleEndian.PutUint64(r[registryPriceOff:registryPriceOff+PriceSize], v)
}

func (r Registry) SetTimestamp(v uint64) {
	binary.LittleEndian.PutUint64(r[registryTimestampOff:registryTimestampOff+TimestampSize], v)
}

// --- Instruction payloads ---

const (
	initUUIDOff  = 0
	initItemOff  = initUUIDOff + UUIDSize
	initTitleOff = initItemOff + ItemIDSize
	initDescOff  = initTitleOff + TitleSize
	initPriceOff = initDescOff + DescriptionSize
	initSeedOff  = initPriceOff + PriceSize
)

// InitData is the payload of an INIT instruction. The dispatcher guarantees
// the exact length before a view is handed to a handler.
type InitData []byte

func (d InitData) UUID() []byte        { return d[initUUIDOff : initUUIDOff+UUIDSize] }
func (d InitData) ItemID() []byte      { return d[initItemOff : initItemOff+ItemIDSize] }
func (d InitData) Title() []byte       { return d[initTitleOff : initTitleOff+TitleSize] }
func (d InitData) Description() []byte { return d[initDescOff : initDescOff+DescriptionSize] }
func (d InitData) Seed() []byte        { return d[initSeedOff : initSeedOff+SeedSize] }

func (d InitData) Price() uint64 {
	return binary.LittleEndian.Uint64(d[initPriceOff : initPriceOff+PriceSize])
}

const (
	updateTitleOff = 0
	updateDescOff  = updateTitleOff + TitleSize
	updatePriceOff = updateDescOff + DescriptionSize
	updateSeedOff  = updatePriceOff + PriceSize
)

// UpdateData is the payload of an UPDATE instruction.
type UpdateData []byte

func (d UpdateData) Title() []byte       { return d[updateTitleOff : updateTitleOff+TitleSize] }
func (d UpdateData) Description() []byte { return d[updateDescOff : updateDescOff+DescriptionSize] }
func (d UpdateData) Seed() []byte        { return d[updateSeedOff : updateSeedOff+SeedSize] }

func (d UpdateData) Price() uint64 {
	return binary.LittleEndian.Uint64(d[updatePriceOff : updatePriceOff+PriceSize])
}

// DeleteData is the payload of a DELETE instruction.
type DeleteData []byte

func (d DeleteData) Seed() []byte { return d[0:SeedSize] }

const (
	buyItemOff  = 0
	buyBuyerOff = buyItemOff + ItemIDSize
	buySeedOff  = buyBuyerOff + AddressSize
)

// BuyData is the payload of a BUY instruction.
type BuyData []byte

func (d BuyData) ItemID() []byte { return d[buyItemOff : buyItemOff+ItemIDSize] }
func (d BuyData) Buyer() []byte  { return d[buyBuyerOff : buyBuyerOff+AddressSize] }
func (d BuyData) Seed() []byte   { return d[buySeedOff : buySeedOff+SeedSize] }

// SellData is the payload of a SELL instruction: the listing's caller seed
// followed by the order's caller seed.
type SellData []byte

func (d SellData) SeedPost() []byte { return d[0:SeedSize] }
func (d SellData) SeedBuy() []byte  { return d[SeedSize : SeedSize+SeedSize] }

// CancelData is the payload of a CANCEL instruction.
type CancelData []byte

func (d CancelData) ItemID() []byte { return d[0:ItemIDSize] }
func (d CancelData) Seed() []byte   { return d[ItemIDSize : ItemIDSize+SeedSize] }

// MoneyHolderData is the payload of a HOLD_ACCOUNT/MONEY_HOLDER instruction.
// The tag is the item id the holder pools funds for.
type MoneyHolderData []byte

func (d MoneyHolderData) Tag() []byte { return d[0:TagSize] }

const (
	tempTagOff    = 0
	tempBuyerOff  = tempTagOff + TagSize
	tempSellerOff = tempBuyerOff + AddressSize
)

// TempMoneyHolderData is the payload of a HOLD_ACCOUNT/TEMP_MONEY_HOLDER
// instruction.
type TempMoneyHolderData []byte

func (d TempMoneyHolderData) Tag() []byte    { return d[tempTagOff : tempTagOff+TagSize] }
func (d TempMoneyHolderData) Buyer() []byte  { return d[tempBuyerOff : tempBuyerOff+AddressSize] }
func (d TempMoneyHolderData) Seller() []byte { return d[tempSellerOff : tempSellerOff+AddressSize] }

// InfoData is the payload of a HOLD_ACCOUNT/BUY_INFO_HOLDER instruction.
type InfoData []byte

func (d InfoData) Tag() []byte { return d[0:TagSize] }
