package market

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"marketchain/core/events"
	"marketchain/core/types"
	"marketchain/crypto"
)

var (
	errMockBadProof     = errors.New("mock: derivation proof mismatch")
	errMockInUse        = errors.New("mock: account already in use")
	errMockNoAuthority  = errors.New("mock: funding account not authorized")
	errMockInsufficient = errors.New("mock: insufficient balance")
	errMockNotSigner    = errors.New("mock: transfer source must sign")
)

// mockRuntime implements Runtime with the same semantics the ledger provides:
// proof-checked allocation into empty slots and signer-gated transfers, all
// applied directly to the staged accounts.
type mockRuntime struct {
	program types.Address
	now     int64
}

func newMockRuntime(program types.Address) *mockRuntime {
	return &mockRuntime{program: program, now: 1_700_000_000}
}

func (m *mockRuntime) MinimumBalance(space uint64) uint64 { return 1_000 + 10*space }

func (m *mockRuntime) Now() int64 { return m.now }

func (m *mockRuntime) CreateAccount(payer, target *types.AccountRef, space uint64, lamports uint64, seeds [][]byte, bump byte) error {
	if !crypto.VerifyProgramAddress([32]byte(target.Address), [32]byte(m.program), bump, seeds...) {
		return errMockBadProof
	}
	if !target.Account.IsEmpty() {
		return errMockInUse
	}
	if !payer.Signer && payer.Account.Owner != m.program {
		return errMockNoAuthority
	}
	if payer.Account.Balance < lamports {
		return errMockInsufficient
	}
	payer.Account.Balance -= lamports
	target.Account.Balance = lamports
	target.Account.Owner = m.program
	target.Account.Data = make([]byte, space)
	return nil
}

func (m *mockRuntime) Transfer(from, to *types.AccountRef, amount uint64) error {
	if !from.Signer {
		return errMockNotSigner
	}
	if from.Account.Balance < amount {
		return errMockInsufficient
	}
	from.Account.Balance -= amount
	to.Account.Balance += amount
	return nil
}

type captureEmitter struct {
	events []events.Event
}

func (c *captureEmitter) Emit(evt events.Event) { c.events = append(c.events, evt) }

func (c *captureEmitter) lastType() string {
	if len(c.events) == 0 {
		return ""
	}
	return c.events[len(c.events)-1].EventType()
}

func newTestAddress(fill byte) types.Address {
	var addr types.Address
	copy(addr[:], bytes.Repeat([]byte{fill}, 32))
	return addr
}

func fillSeed(fill byte) [32]byte {
	var seed [32]byte
	copy(seed[:], bytes.Repeat([]byte{fill}, 32))
	return seed
}

func signerRef(addr types.Address, acc *types.Account) *types.AccountRef {
	return &types.AccountRef{Address: addr, Signer: true, Account: acc}
}

func plainRef(addr types.Address, acc *types.Account) *types.AccountRef {
	return &types.AccountRef{Address: addr, Signer: false, Account: acc}
}

func testInitData(itemID [32]byte, title, description string, price uint64, seed [32]byte) InitData {
	d := make(InitData, InitDataSize)
	copy(d.ItemID(), itemID[:])
	copy(d.Title(), title)
	copy(d.Description(), description)
	binary.LittleEndian.PutUint64(d[initPriceOff:initPriceOff+PriceSize], price)
	copy(d.Seed(), seed[:])
	return d
}

func testUpdateData(title, description string, price uint64, seed [32]byte) UpdateData {
	d := make(UpdateData, UpdateDataSize)
	copy(d.Title(), title)
	copy(d.Description(), description)
	binary.LittleEndian.PutUint64(d[updatePriceOff:updatePriceOff+PriceSize], price)
	copy(d.Seed(), seed[:])
	return d
}

func testBuyData(itemID [32]byte, buyer types.Address, seed [32]byte) BuyData {
	d := make(BuyData, BuyDataSize)
	copy(d.ItemID(), itemID[:])
	copy(d.Buyer(), buyer.Bytes())
	copy(d.Seed(), seed[:])
	return d
}

func testSellData(listingSeed, orderSeed [32]byte) SellData {
	d := make(SellData, SellDataSize)
	copy(d.SeedPost(), listingSeed[:])
	copy(d.SeedBuy(), orderSeed[:])
	return d
}

func testCancelData(itemID [32]byte, seed [32]byte) CancelData {
	d := make(CancelData, CancelDataSize)
	copy(d.ItemID(), itemID[:])
	copy(d.Seed(), seed[:])
	return d
}

const (
	testPrice         uint64 = 5_000
	testStartBalance  uint64 = 10_000_000
	testTitle                = "vintage synthesizer"
	testDescription          = "mono synth, serviced, original case"
)

// fixture wires a full trade topology against the mock runtime: seller and
// buyer wallets, the derived listing, order, holder, fee pool and registry
// slots, and both engines sharing one runtime.
type fixture struct {
	t        *testing.T
	rt       *mockRuntime
	listings *Engine
	trades   *TradeEngine
	program  types.Address

	sellerAddr types.Address
	buyerAddr  types.Address
	seller     *types.Account
	buyer      *types.Account

	itemID      [32]byte
	listingSeed [32]byte
	orderSeed   [32]byte

	listing   *types.AccountRef
	order     *types.AccountRef
	holder    *types.AccountRef
	feePool   *types.AccountRef
	registry  *types.AccountRef
	authority *types.AccountRef
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:           t,
		program:     newTestAddress(0x01),
		sellerAddr:  newTestAddress(0xA1),
		buyerAddr:   newTestAddress(0xB2),
		seller:      &types.Account{Balance: testStartBalance},
		buyer:       &types.Account{Balance: testStartBalance},
		itemID:      fillSeed(0x11),
		listingSeed: fillSeed(0x22),
		orderSeed:   fillSeed(0x33),
	}
	f.rt = newMockRuntime(f.program)
	f.listings = NewEngine(f.program)
	f.listings.SetRuntime(f.rt)
	f.trades = NewTradeEngine(f.program)
	f.trades.SetRuntime(f.rt)

	listingAddr, _, err := ListingAddress(f.program, f.listingSeed[:], f.sellerAddr)
	if err != nil {
		t.Fatalf("derive listing address: %v", err)
	}
	orderAddr, _, err := OrderAddress(f.program, f.orderSeed[:], f.buyerAddr)
	if err != nil {
		t.Fatalf("derive order address: %v", err)
	}
	holderAddr, _, err := HolderAddress(f.program, f.itemID[:])
	if err != nil {
		t.Fatalf("derive holder address: %v", err)
	}
	feeAddr, _, err := TempFeeAddress(f.program, f.buyerAddr, f.sellerAddr, f.itemID[:])
	if err != nil {
		t.Fatalf("derive fee pool address: %v", err)
	}
	regAddr, _, err := RegistryAddress(f.program, f.itemID[:], f.buyerAddr, f.sellerAddr)
	if err != nil {
		t.Fatalf("derive registry address: %v", err)
	}

	f.listing = plainRef(listingAddr, &types.Account{})
	f.order = plainRef(orderAddr, &types.Account{})
	f.holder = plainRef(holderAddr, &types.Account{})
	f.feePool = plainRef(feeAddr, &types.Account{})
	f.registry = plainRef(regAddr, &types.Account{})
	f.authority = plainRef(newTestAddress(0xEE), &types.Account{})
	return f
}

func (f *fixture) initListing() {
	f.t.Helper()
	accounts := []*types.AccountRef{
		signerRef(f.sellerAddr, f.seller),
		signerRef(f.listing.Address, f.listing.Account),
		f.authority,
	}
	data := testInitData(f.itemID, testTitle, testDescription, testPrice, f.listingSeed)
	if err := f.listings.Init(accounts, data); err != nil {
		f.t.Fatalf("init listing: %v", err)
	}
}

func (f *fixture) createHolder() {
	f.t.Helper()
	data := make(MoneyHolderData, MoneyHolderDataSize)
	copy(data.Tag(), f.itemID[:])
	accounts := []*types.AccountRef{signerRef(f.sellerAddr, f.seller), f.holder, f.authority}
	if err := f.trades.CreateMoneyHolder(accounts, data); err != nil {
		f.t.Fatalf("create holder: %v", err)
	}
}

func (f *fixture) createFeePool() {
	f.t.Helper()
	data := make(TempMoneyHolderData, TempMoneyHolderDataSize)
	copy(data.Tag(), f.itemID[:])
	copy(data.Buyer(), f.buyerAddr.Bytes())
	copy(data.Seller(), f.sellerAddr.Bytes())
	accounts := []*types.AccountRef{signerRef(f.buyerAddr, f.buyer), f.feePool, f.authority}
	if err := f.trades.CreateTempMoneyHolder(accounts, data); err != nil {
		f.t.Fatalf("create fee pool: %v", err)
	}
}

func (f *fixture) buy() {
	f.t.Helper()
	accounts := []*types.AccountRef{
		signerRef(f.buyerAddr, f.buyer),
		f.listing, f.order, f.holder, f.authority,
	}
	if err := f.trades.Buy(accounts, testBuyData(f.itemID, f.buyerAddr, f.orderSeed)); err != nil {
		f.t.Fatalf("buy: %v", err)
	}
}

func (f *fixture) sellAccounts() []*types.AccountRef {
	return []*types.AccountRef{
		signerRef(f.sellerAddr, f.seller),
		signerRef(f.buyerAddr, f.buyer),
		f.order, f.listing, f.holder, f.authority, f.registry, f.feePool,
	}
}

// totalBalance sums every balance in the fixture. No handler mints or burns,
// so this is invariant across any sequence of operations.
func (f *fixture) totalBalance() uint64 {
	return f.seller.Balance + f.buyer.Balance +
		f.listing.Account.Balance + f.order.Account.Balance +
		f.holder.Account.Balance + f.feePool.Account.Balance +
		f.registry.Account.Balance
}
