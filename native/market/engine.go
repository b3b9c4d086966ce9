package market

import (
	"errors"
	"fmt"

	"marketchain/core/events"
	"marketchain/core/types"
)

var errNilRuntime = errors.New("market: runtime not configured")

// Runtime captures the ledger capabilities the program invokes but does not
// implement: slot allocation, the native transfer primitive, the
// storage-deposit schedule and the clock. The surrounding ledger guarantees
// that either every sub-operation of one invocation commits or none do.
type Runtime interface {
	// CreateAccount allocates a fresh slot at target with space data bytes,
	// funded with lamports drawn from payer and authorized by the program's
	// derivation proof for the target address.
	CreateAccount(payer, target *types.AccountRef, space uint64, lamports uint64, seeds [][]byte, bump byte) error
	// Transfer moves native units from a signing account.
	Transfer(from, to *types.AccountRef, amount uint64) error
	// MinimumBalance returns the storage deposit for a slot of the given size.
	MinimumBalance(space uint64) uint64
	// Now returns the settlement clock in unix seconds.
	Now() int64
}

// Engine implements the listing lifecycle: create, update in place, delete
// with full deposit reclaim.
type Engine struct {
	program types.Address
	runtime Runtime
	emitter events.Emitter
}

// NewEngine creates a listing engine for the given program id with a no-op
// emitter. Callers can override the emitter via SetEmitter.
func NewEngine(program types.Address) *Engine {
	return &Engine{program: program, emitter: events.NoopEmitter{}}
}

// SetRuntime configures the ledger capabilities used by the engine.
func (e *Engine) SetRuntime(rt Runtime) { e.runtime = rt }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(marketEvent{evt: evt})
}

func creditBalance(acc *types.Account, amount uint64) error {
	if acc.Balance > ^uint64(0)-amount {
		return fmt.Errorf("%w: balance overflow", ErrInvalidArgument)
	}
	acc.Balance += amount
	return nil
}

// Init allocates a listing record at the derived address and writes the
// caller's item fields into it. The payer funds the storage deposit; both
// the payer and the listing slot must carry verified authorization, and the
// supplied listing address must re-derive from the caller seed and the payer
// identity.
//
// Accounts: [payer, listing, storage authority].
func (e *Engine) Init(accounts []*types.AccountRef, data InitData) error {
	if e == nil || e.runtime == nil {
		return errNilRuntime
	}
	if len(accounts) < 3 {
		return fmt.Errorf("%w: init expects payer, listing and storage authority accounts", ErrInvalidArgument)
	}
	payer, listing := accounts[0], accounts[1]
	if !payer.Signer {
		return fmt.Errorf("%w: payer must sign", ErrInvalidArgument)
	}
	if !listing.Signer {
		return fmt.Errorf("%w: listing account authorization missing", ErrMissingSignature)
	}
	seeds := listingSeeds(data.Seed(), payer.Address)
	derived, bump, err := derive(e.program, seeds...)
	if err != nil {
		return err
	}
	if derived != listing.Address {
		return fmt.Errorf("%w: listing address does not match derivation", ErrInvalidArgument)
	}
	deposit := e.runtime.MinimumBalance(ListingSize)
	if err := e.runtime.CreateAccount(payer, listing, ListingSize, deposit, seeds, bump); err != nil {
		return fmt.Errorf("allocate listing: %w", err)
	}
	rec, err := ListingRecord(listing.Account.Data)
	if err != nil {
		return err
	}
	rec.SetItemID(data.ItemID())
	rec.SetTitle(data.Title())
	rec.SetDescription(data.Description())
	rec.SetPrice(data.Price())
	rec.SetPayer(payer.Address.Bytes())
	e.emit(NewListingCreatedEvent(listing.Address, data.UUID(), rec))
	return nil
}

// Update overwrites the mutable listing fields in place. Ownership beyond
// address derivation is not re-verified: the derivation encodes the payer as
// a seed, so a mismatched payer yields a mismatched address.
//
// Accounts: [payer, listing].
func (e *Engine) Update(accounts []*types.AccountRef, data UpdateData) error {
	if e == nil || e.runtime == nil {
		return errNilRuntime
	}
	if len(accounts) < 2 {
		return fmt.Errorf("%w: update expects payer and listing accounts", ErrInvalidArgument)
	}
	payer, listing := accounts[0], accounts[1]
	if !payer.Signer {
		return fmt.Errorf("%w: payer must sign", ErrInvalidArgument)
	}
	if listing.Account.Owner != e.program {
		return fmt.Errorf("%w: listing not owned by this program", ErrMissingSignature)
	}
	derived, _, err := derive(e.program, listingSeeds(data.Seed(), payer.Address)...)
	if err != nil {
		return err
	}
	if derived != listing.Address {
		return fmt.Errorf("%w: listing address does not match derivation", ErrInvalidArgument)
	}
	rec, err := ListingRecord(listing.Account.Data)
	if err != nil {
		return err
	}
	rec.SetTitle(data.Title())
	rec.SetDescription(data.Description())
	rec.SetPrice(data.Price())
	e.emit(NewListingUpdatedEvent(listing.Address, rec))
	return nil
}

// Delete returns the listing's entire balance to the payer, zeroes the
// balance and tombstones the record bytes. The storage slot itself is
// reclaimed by the surrounding runtime once the balance is zero.
//
// Accounts: [payer, listing].
func (e *Engine) Delete(accounts []*types.AccountRef, data DeleteData) error {
	if e == nil || e.runtime == nil {
		return errNilRuntime
	}
	if len(accounts) < 2 {
		return fmt.Errorf("%w: delete expects payer and listing accounts", ErrInvalidArgument)
	}
	payer, listing := accounts[0], accounts[1]
	if !payer.Signer {
		return fmt.Errorf("%w: payer must sign", ErrInvalidArgument)
	}
	if listing.Account.Owner != e.program {
		return fmt.Errorf("%w: listing not owned by this program", ErrMissingSignature)
	}
	derived, _, err := derive(e.program, listingSeeds(data.Seed(), payer.Address)...)
	if err != nil {
		return err
	}
	if derived != listing.Address {
		return fmt.Errorf("%w: listing address does not match derivation", ErrInvalidArgument)
	}
	if err := creditBalance(payer.Account, listing.Account.Balance); err != nil {
		return err
	}
	listing.Account.Balance = 0
	zeroFill(listing.Account.Data)
	e.emit(NewListingDeletedEvent(listing.Address, payer.Address))
	return nil
}
