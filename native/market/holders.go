package market

import (
	"fmt"

	"marketchain/core/types"
)

// The holder handlers materialize the pooled escrow slots before the trade
// engine references them. They re-derive the expected address, verify
// equality and request the allocation; they perform no trade-state
// validation of their own.

// CreateMoneyHolder allocates the zero-data pooled holder for one item,
// funded by the caller for the bare storage deposit.
//
// Accounts: [payer, holder, storage authority].
func (t *TradeEngine) CreateMoneyHolder(accounts []*types.AccountRef, data MoneyHolderData) error {
	if t == nil || t.runtime == nil {
		return errNilRuntime
	}
	if len(accounts) < 3 {
		return fmt.Errorf("%w: money holder expects payer, holder and storage authority accounts", ErrInvalidArgument)
	}
	payer, holder := accounts[0], accounts[1]
	if !payer.Signer {
		return fmt.Errorf("%w: payer must sign", ErrInvalidArgument)
	}
	seeds := holderSeeds(data.Tag())
	derived, bump, err := derive(t.program, seeds...)
	if err != nil {
		return err
	}
	if derived != holder.Address {
		return fmt.Errorf("%w: holder address does not match derivation", ErrInvalidArgument)
	}
	deposit := t.runtime.MinimumBalance(0)
	if err := t.runtime.CreateAccount(payer, holder, 0, deposit, seeds, bump); err != nil {
		return fmt.Errorf("allocate holder: %w", err)
	}
	t.emit(NewHolderCreatedEvent(EventTypeHolderCreated, holder.Address, payer.Address))
	return nil
}

// CreateTempMoneyHolder allocates the zero-data per-trade fee pool, funded
// by the caller for the bare storage deposit.
//
// Accounts: [payer, fee pool, storage authority].
func (t *TradeEngine) CreateTempMoneyHolder(accounts []*types.AccountRef, data TempMoneyHolderData) error {
	if t == nil || t.runtime == nil {
		return errNilRuntime
	}
	if len(accounts) < 3 {
		return fmt.Errorf("%w: fee pool expects payer, fee pool and storage authority accounts", ErrInvalidArgument)
	}
	payer, feePool := accounts[0], accounts[1]
	if !payer.Signer {
		return fmt.Errorf("%w: payer must sign", ErrInvalidArgument)
	}
	buyer := types.AddressFromBytes(data.Buyer())
	seller := types.AddressFromBytes(data.Seller())
	seeds := tempFeeSeeds(buyer, seller, data.Tag())
	derived, bump, err := derive(t.program, seeds...)
	if err != nil {
		return err
	}
	if derived != feePool.Address {
		return fmt.Errorf("%w: fee pool address does not match derivation", ErrInvalidArgument)
	}
	deposit := t.runtime.MinimumBalance(0)
	if err := t.runtime.CreateAccount(payer, feePool, 0, deposit, seeds, bump); err != nil {
		return fmt.Errorf("allocate fee pool: %w", err)
	}
	t.emit(NewHolderCreatedEvent(EventTypeFeePoolCreated, feePool.Address, payer.Address))
	return nil
}

// CreateInfoAccount allocates a registry-sized slot at the registry
// derivation for one (item, buyer, seller) triple, funded by the buyer.
//
// Accounts: [seller, buyer, registry, storage authority].
func (t *TradeEngine) CreateInfoAccount(accounts []*types.AccountRef, data InfoData) error {
	if t == nil || t.runtime == nil {
		return errNilRuntime
	}
	if len(accounts) < 4 {
		return fmt.Errorf("%w: info account expects seller, buyer, registry and storage authority accounts", ErrInvalidArgument)
	}
	seller, buyer, target := accounts[0], accounts[1], accounts[2]
	if !seller.Signer && !buyer.Signer {
		return fmt.Errorf("%w: either seller or buyer must sign", ErrInvalidArgument)
	}
	seeds := registrySeeds(data.Tag(), buyer.Address, seller.Address)
	derived, bump, err := derive(t.program, seeds...)
	if err != nil {
		return err
	}
	if derived != target.Address {
		return fmt.Errorf("%w: registry address does not match derivation", ErrInvalidArgument)
	}
	deposit := t.runtime.MinimumBalance(RegistrySize)
	if err := t.runtime.CreateAccount(buyer, target, RegistrySize, deposit, seeds, bump); err != nil {
		return fmt.Errorf("allocate info account: %w", err)
	}
	t.emit(NewHolderCreatedEvent(EventTypeInfoCreated, target.Address, buyer.Address))
	return nil
}
