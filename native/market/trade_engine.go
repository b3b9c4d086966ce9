package market

import (
	"bytes"
	"fmt"

	"marketchain/core/events"
	"marketchain/core/types"
)

// TradeEngine implements the escrow trade state machine. Per trade the
// machine is NONE → OPEN (Buy) → SETTLED (Sell) | CANCELLED (Cancel); both
// end states are terminal, enforced structurally because Sell and Cancel
// tombstone the order record.
type TradeEngine struct {
	program types.Address
	runtime Runtime
	emitter events.Emitter
}

// NewTradeEngine creates a trade engine for the given program id with a
// no-op emitter.
func NewTradeEngine(program types.Address) *TradeEngine {
	return &TradeEngine{program: program, emitter: events.NoopEmitter{}}
}

// SetRuntime configures the ledger capabilities used by the engine.
func (t *TradeEngine) SetRuntime(rt Runtime) { t.runtime = rt }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (t *TradeEngine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		t.emitter = events.NoopEmitter{}
		return
	}
	t.emitter = emitter
}

func (t *TradeEngine) emit(evt *types.Event) {
	if t == nil || t.emitter == nil || evt == nil {
		return
	}
	t.emitter.Emit(marketEvent{evt: evt})
}

// Buy opens an escrow order: it allocates the order record at the derived
// address, copies the listing's price and seller into it, and escrows
// exactly the listing price from the buyer into the per-item holder. The
// order address must be a fresh allocation target; a replayed Buy fails
// before any funds move.
//
// Accounts: [buyer, listing, order, holder, storage authority].
func (t *TradeEngine) Buy(accounts []*types.AccountRef, data BuyData) error {
	if t == nil || t.runtime == nil {
		return errNilRuntime
	}
	if len(accounts) < 5 {
		return fmt.Errorf("%w: buy expects buyer, listing, order, holder and storage authority accounts", ErrInvalidArgument)
	}
	buyer, listing, order, holder := accounts[0], accounts[1], accounts[2], accounts[3]
	if !buyer.Signer {
		return fmt.Errorf("%w: buyer must sign", ErrInvalidArgument)
	}
	if listing.Account.Owner != t.program {
		return fmt.Errorf("%w: listing not owned by this program", ErrMissingSignature)
	}
	if !order.Account.IsEmpty() {
		return fmt.Errorf("%w: order address already in use", ErrInvalidArgument)
	}
	seeds := orderSeeds(data.Seed(), buyer.Address)
	derived, bump, err := derive(t.program, seeds...)
	if err != nil {
		return err
	}
	if derived != order.Address {
		return fmt.Errorf("%w: order address does not match derivation", ErrInvalidArgument)
	}
	holderAddr, _, err := derive(t.program, holderSeeds(data.ItemID())...)
	if err != nil {
		return err
	}
	if holderAddr != holder.Address {
		return fmt.Errorf("%w: holder address does not match derivation", ErrInvalidArgument)
	}
	if holder.Account.Owner != t.program {
		return fmt.Errorf("%w: holder not owned by this program", ErrMissingSignature)
	}
	lst, err := ListingRecord(listing.Account.Data)
	if err != nil {
		return err
	}
	deposit := t.runtime.MinimumBalance(OrderSize)
	if err := t.runtime.CreateAccount(buyer, order, OrderSize, deposit, seeds, bump); err != nil {
		return fmt.Errorf("allocate order: %w", err)
	}
	ord, err := OrderRecord(order.Account.Data)
	if err != nil {
		return err
	}
	ord.SetItemID(data.ItemID())
	ord.SetBuyer(data.Buyer())
	ord.SetSeller(lst.Payer())
	ord.SetPrice(lst.Price())
	if err := t.runtime.Transfer(buyer, holder, lst.Price()); err != nil {
		return fmt.Errorf("escrow price: %w", err)
	}
	t.emit(NewOrderOpenedEvent(order.Address, ord))
	return nil
}

// Cancel unwinds an open order: the holder's entire balance and the order's
// entire balance return to the buyer, and the order record is tombstoned.
// There is no partial cancel.
//
// Accounts: [buyer, order, holder].
func (t *TradeEngine) Cancel(accounts []*types.AccountRef, data CancelData) error {
	if t == nil || t.runtime == nil {
		return errNilRuntime
	}
	if len(accounts) < 3 {
		return fmt.Errorf("%w: cancel expects buyer, order and holder accounts", ErrInvalidArgument)
	}
	buyer, order, holder := accounts[0], accounts[1], accounts[2]
	if !buyer.Signer {
		return fmt.Errorf("%w: buyer must sign", ErrInvalidArgument)
	}
	ord, err := OrderRecord(order.Account.Data)
	if err != nil {
		return err
	}
	if !bytes.Equal(ord.Buyer(), buyer.Address.Bytes()) {
		return fmt.Errorf("%w: order buyer mismatch", ErrInvalidArgument)
	}
	holderAddr, _, err := derive(t.program, holderSeeds(ord.ItemID())...)
	if err != nil {
		return err
	}
	if holderAddr != holder.Address {
		return fmt.Errorf("%w: holder address does not match derivation", ErrInvalidArgument)
	}
	if holder.Account.Owner != t.program {
		return fmt.Errorf("%w: holder not owned by this program", ErrMissingSignature)
	}
	if err := creditBalance(buyer.Account, holder.Account.Balance); err != nil {
		return err
	}
	holder.Account.Balance = 0
	if err := creditBalance(buyer.Account, order.Account.Balance); err != nil {
		return err
	}
	order.Account.Balance = 0
	zeroFill(order.Account.Data)
	t.emit(NewOrderCancelledEvent(order.Address, buyer.Address))
	return nil
}

// Sell settles an open order. Both parties contribute half the registry's
// storage deposit (rounded up one unit to absorb integer division loss) into
// the per-trade fee pool, the registry record is created funded entirely
// from that pool, and only then do the escrowed funds move: the holder's
// balance to the seller, the order's balance to the buyer. A failure to fund
// the registry therefore aborts before any escrow funds are released.
//
// Either the seller or the buyer may trigger settlement once every derived
// address matches; the fee transfers still require each paying account to
// have signed.
//
// Accounts: [seller, buyer, order, listing, holder, storage authority,
// registry, fee pool].
func (t *TradeEngine) Sell(accounts []*types.AccountRef, data SellData) error {
	if t == nil || t.runtime == nil {
		return errNilRuntime
	}
	if len(accounts) < 8 {
		return fmt.Errorf("%w: sell expects seller, buyer, order, listing, holder, storage authority, registry and fee pool accounts", ErrInvalidArgument)
	}
	seller, buyer, order, listing, holder := accounts[0], accounts[1], accounts[2], accounts[3], accounts[4]
	registry, feePool := accounts[6], accounts[7]
	if !seller.Signer && !buyer.Signer {
		return fmt.Errorf("%w: either seller or buyer must sign", ErrInvalidArgument)
	}
	listingAddr, _, err := derive(t.program, listingSeeds(data.SeedPost(), seller.Address)...)
	if err != nil {
		return err
	}
	if listingAddr != listing.Address {
		return fmt.Errorf("%w: listing address does not match derivation", ErrInvalidArgument)
	}
	if listing.Account.Owner != t.program {
		return fmt.Errorf("%w: listing not owned by this program", ErrMissingSignature)
	}
	orderAddr, _, err := derive(t.program, orderSeeds(data.SeedBuy(), buyer.Address)...)
	if err != nil {
		return err
	}
	if orderAddr != order.Address {
		return fmt.Errorf("%w: order address does not match derivation", ErrInvalidArgument)
	}
	if order.Account.Owner != t.program {
		return fmt.Errorf("%w: order not owned by this program", ErrMissingSignature)
	}
	ord, err := OrderRecord(order.Account.Data)
	if err != nil {
		return err
	}
	holderAddr, _, err := derive(t.program, holderSeeds(ord.ItemID())...)
	if err != nil {
		return err
	}
	if holderAddr != holder.Address {
		return fmt.Errorf("%w: holder address does not match derivation", ErrInvalidArgument)
	}
	if holder.Account.Owner != t.program {
		return fmt.Errorf("%w: holder not owned by this program", ErrMissingSignature)
	}
	feeAddr, _, err := derive(t.program, tempFeeSeeds(buyer.Address, seller.Address, ord.ItemID())...)
	if err != nil {
		return err
	}
	if feeAddr != feePool.Address {
		return fmt.Errorf("%w: fee pool address does not match derivation", ErrInvalidArgument)
	}
	regSeeds := registrySeeds(ord.ItemID(), buyer.Address, seller.Address)
	regAddr, regBump, err := derive(t.program, regSeeds...)
	if err != nil {
		return err
	}
	if regAddr != registry.Address {
		return fmt.Errorf("%w: registry address does not match derivation", ErrInvalidArgument)
	}

	deposit := t.runtime.MinimumBalance(RegistrySize)
	split := deposit/2 + 1
	if err := t.runtime.Transfer(seller, feePool, split); err != nil {
		return fmt.Errorf("collect seller fee: %w", err)
	}
	if err := t.runtime.Transfer(buyer, feePool, split); err != nil {
		return fmt.Errorf("collect buyer fee: %w", err)
	}
	if err := t.runtime.CreateAccount(feePool, registry, RegistrySize, feePool.Account.Balance, regSeeds, regBump); err != nil {
		return fmt.Errorf("allocate registry: %w", err)
	}

	lst, err := ListingRecord(listing.Account.Data)
	if err != nil {
		return err
	}
	reg, err := RegistryRecord(registry.Account.Data)
	if err != nil {
		return err
	}
	reg.SetItemID(ord.ItemID())
	reg.SetBuyer(ord.Buyer())
	reg.SetSeller(lst.Payer())
	reg.SetPrice(lst.Price())
	reg.SetTitle(lst.Title())
	reg.SetDescription(lst.Description())
	reg.SetTimestamp(uint64(t.runtime.Now()))

	if err := creditBalance(seller.Account, holder.Account.Balance); err != nil {
		return err
	}
	holder.Account.Balance = 0
	if err := creditBalance(buyer.Account, order.Account.Balance); err != nil {
		return err
	}
	order.Account.Balance = 0
	zeroFill(order.Account.Data)
	t.emit(NewTradeSettledEvent(registry.Address, reg))
	return nil
}
