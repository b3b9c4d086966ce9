package market

import (
	"errors"
	"testing"

	"marketchain/core/types"
)

func newTestProcessor(f *fixture) *Processor {
	p := NewProcessor(f.program)
	p.SetRuntime(f.rt)
	return p
}

func TestExecuteRejectsEmptyInstruction(t *testing.T) {
	f := newFixture(t)
	p := newTestProcessor(f)
	err := p.Execute(nil, nil)
	if !errors.Is(err, ErrInvalidInstructionData) {
		t.Fatalf("err = %v, want ErrInvalidInstructionData", err)
	}
}

func TestExecuteRejectsUnknownOpcode(t *testing.T) {
	f := newFixture(t)
	p := newTestProcessor(f)
	err := p.Execute(nil, []byte{0x09})
	if !errors.Is(err, ErrInvalidInstructionData) {
		t.Fatalf("err = %v, want ErrInvalidInstructionData", err)
	}
}

func TestExecuteRejectsPayloadLengthMismatch(t *testing.T) {
	sizes := map[byte]int{
		OpInit:   InitDataSize,
		OpUpdate: UpdateDataSize,
		OpDelete: DeleteDataSize,
		OpBuy:    BuyDataSize,
		OpSell:   SellDataSize,
		OpCancel: CancelDataSize,
	}
	f := newFixture(t)
	p := newTestProcessor(f)
	for opcode, want := range sizes {
		short := append([]byte{opcode}, make([]byte, want-1)...)
		if err := p.Execute(nil, short); !errors.Is(err, ErrInvalidInstructionData) {
			t.Fatalf("opcode %d short payload: err = %v, want ErrInvalidInstructionData", opcode, err)
		}
		long := append([]byte{opcode}, make([]byte, want+1)...)
		if err := p.Execute(nil, long); !errors.Is(err, ErrInvalidInstructionData) {
			t.Fatalf("opcode %d long payload: err = %v, want ErrInvalidInstructionData", opcode, err)
		}
	}
}

func TestHoldAccountMissingDiscriminator(t *testing.T) {
	f := newFixture(t)
	p := newTestProcessor(f)
	err := p.Execute(nil, []byte{OpHoldAccount})
	if !errors.Is(err, ErrInvalidInstructionData) {
		t.Fatalf("err = %v, want ErrInvalidInstructionData", err)
	}
}

func TestHoldAccountUnknownDiscriminator(t *testing.T) {
	f := newFixture(t)
	p := newTestProcessor(f)
	data := append([]byte{OpHoldAccount, 0x07}, make([]byte, TagSize)...)
	err := p.Execute(nil, data)
	if !errors.Is(err, ErrInvalidInstructionData) {
		t.Fatalf("err = %v, want ErrInvalidInstructionData", err)
	}
}

func TestHoldAccountRejectsShortPayload(t *testing.T) {
	f := newFixture(t)
	p := newTestProcessor(f)
	data := append([]byte{OpHoldAccount, HoldMoneyHolder}, make([]byte, MoneyHolderDataSize-1)...)
	err := p.Execute(nil, data)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestHoldAccountToleratesTrailingBytes(t *testing.T) {
	f := newFixture(t)
	p := newTestProcessor(f)

	data := make([]byte, 2+MoneyHolderDataSize+8)
	data[0] = OpHoldAccount
	data[1] = HoldMoneyHolder
	copy(data[2:], f.itemID[:])
	accounts := []*types.AccountRef{signerRef(f.sellerAddr, f.seller), f.holder, f.authority}
	if err := p.Execute(accounts, data); err != nil {
		t.Fatalf("trailing bytes must be tolerated: %v", err)
	}
	if f.holder.Account.Owner != f.program {
		t.Fatalf("holder not allocated")
	}
}

func TestExecuteDispatchesInit(t *testing.T) {
	f := newFixture(t)
	p := newTestProcessor(f)

	payload := testInitData(f.itemID, testTitle, testDescription, testPrice, f.listingSeed)
	data := append([]byte{OpInit}, payload...)
	accounts := []*types.AccountRef{
		signerRef(f.sellerAddr, f.seller),
		signerRef(f.listing.Address, f.listing.Account),
		f.authority,
	}
	if err := p.Execute(accounts, data); err != nil {
		t.Fatalf("dispatch init: %v", err)
	}
	if _, err := ListingRecord(f.listing.Account.Data); err != nil {
		t.Fatalf("listing not created: %v", err)
	}
}
