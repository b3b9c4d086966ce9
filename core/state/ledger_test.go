package state

import (
	"bytes"
	"errors"
	"testing"

	"marketchain/core/types"
	"marketchain/crypto"
	"marketchain/storage"
)

type programFunc func(accounts []*types.AccountRef, data []byte) error

func (f programFunc) Execute(accounts []*types.AccountRef, data []byte) error {
	return f(accounts, data)
}

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	program := types.AddressFromBytes(bytes.Repeat([]byte{0x01}, 32))
	return NewLedger(storage.NewMemDB(), program)
}

func testAddr(fill byte) types.Address {
	return types.AddressFromBytes(bytes.Repeat([]byte{fill}, 32))
}

func TestGetAccountMissingIsEmpty(t *testing.T) {
	l := newTestLedger(t)
	acc, err := l.GetAccount(testAddr(0xAA))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !acc.IsEmpty() {
		t.Fatal("unallocated address must load as an empty account")
	}
}

func TestPutAccountRoundTrip(t *testing.T) {
	l := newTestLedger(t)
	addr := testAddr(0xAA)
	stored := &types.Account{Balance: 42, Owner: l.Program(), Data: []byte{1, 2, 3}}
	if err := l.PutAccount(addr, stored); err != nil {
		t.Fatalf("put: %v", err)
	}
	loaded, err := l.GetAccount(addr)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.Balance != 42 || loaded.Owner != l.Program() || !bytes.Equal(loaded.Data, []byte{1, 2, 3}) {
		t.Fatalf("loaded account mismatch: %+v", loaded)
	}
}

func TestPutAccountZeroBalanceReleasesSlot(t *testing.T) {
	l := newTestLedger(t)
	addr := testAddr(0xAA)
	if err := l.PutAccount(addr, &types.Account{Balance: 42}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := l.PutAccount(addr, &types.Account{Balance: 0, Data: []byte{1}}); err != nil {
		t.Fatalf("put zero: %v", err)
	}
	loaded, err := l.GetAccount(addr)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !loaded.IsEmpty() {
		t.Fatal("zero-balance account must release its slot")
	}
}

func TestMinimumBalanceSchedule(t *testing.T) {
	l := newTestLedger(t)
	if got := l.MinimumBalance(0); got != rentBase {
		t.Fatalf("MinimumBalance(0) = %d, want %d", got, rentBase)
	}
	if got := l.MinimumBalance(10); got != rentBase+10*rentPerByte {
		t.Fatalf("MinimumBalance(10) = %d, want %d", got, rentBase+10*rentPerByte)
	}
}

func deriveTarget(t *testing.T, l *Ledger, seeds ...[]byte) (*types.AccountRef, [][]byte, byte) {
	t.Helper()
	addr, bump, err := crypto.DeriveAddress([32]byte(l.Program()), seeds...)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	return &types.AccountRef{Address: types.Address(addr), Account: &types.Account{}}, seeds, bump
}

func TestCreateAccountAllocatesSlot(t *testing.T) {
	l := newTestLedger(t)
	payer := &types.AccountRef{Address: testAddr(0xAA), Signer: true, Account: &types.Account{Balance: 1_000_000}}
	target, seeds, bump := deriveTarget(t, l, []byte("slot"))

	if err := l.CreateAccount(payer, target, 8, 500_000, seeds, bump); err != nil {
		t.Fatalf("create: %v", err)
	}
	if payer.Account.Balance != 500_000 {
		t.Fatalf("payer balance = %d, want 500000", payer.Account.Balance)
	}
	if target.Account.Balance != 500_000 || target.Account.Owner != l.Program() || len(target.Account.Data) != 8 {
		t.Fatalf("target not allocated: %+v", target.Account)
	}
}

func TestCreateAccountRejectsBadProof(t *testing.T) {
	l := newTestLedger(t)
	payer := &types.AccountRef{Address: testAddr(0xAA), Signer: true, Account: &types.Account{Balance: 1_000_000}}
	target, seeds, bump := deriveTarget(t, l, []byte("slot"))

	err := l.CreateAccount(payer, target, 8, 100, append(seeds, []byte("extra")), bump)
	if !errors.Is(err, errBadProof) {
		t.Fatalf("err = %v, want errBadProof", err)
	}
}

func TestCreateAccountIsWriteOnce(t *testing.T) {
	l := newTestLedger(t)
	payer := &types.AccountRef{Address: testAddr(0xAA), Signer: true, Account: &types.Account{Balance: 1_000_000}}
	target, seeds, bump := deriveTarget(t, l, []byte("slot"))

	if err := l.CreateAccount(payer, target, 8, 100, seeds, bump); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := l.CreateAccount(payer, target, 8, 100, seeds, bump)
	if !errors.Is(err, errAccountInUse) {
		t.Fatalf("err = %v, want errAccountInUse", err)
	}
}

func TestCreateAccountRequiresFundingAuthority(t *testing.T) {
	l := newTestLedger(t)
	target, seeds, bump := deriveTarget(t, l, []byte("slot"))

	payer := &types.AccountRef{Address: testAddr(0xAA), Account: &types.Account{Balance: 1_000_000}}
	if err := l.CreateAccount(payer, target, 8, 100, seeds, bump); !errors.Is(err, errNoAuthority) {
		t.Fatalf("err = %v, want errNoAuthority", err)
	}

	// A program-owned funding account spends under the program's authority
	// without a signature.
	payer.Account.Owner = l.Program()
	if err := l.CreateAccount(payer, target, 8, 100, seeds, bump); err != nil {
		t.Fatalf("program-owned payer rejected: %v", err)
	}
}

func TestCreateAccountRejectsInsufficientFunds(t *testing.T) {
	l := newTestLedger(t)
	payer := &types.AccountRef{Address: testAddr(0xAA), Signer: true, Account: &types.Account{Balance: 10}}
	target, seeds, bump := deriveTarget(t, l, []byte("slot"))

	err := l.CreateAccount(payer, target, 8, 100, seeds, bump)
	if !errors.Is(err, errInsufficient) {
		t.Fatalf("err = %v, want errInsufficient", err)
	}
}

func TestTransferRequiresSigner(t *testing.T) {
	l := newTestLedger(t)
	from := &types.AccountRef{Address: testAddr(0xAA), Account: &types.Account{Balance: 100}}
	to := &types.AccountRef{Address: testAddr(0xBB), Account: &types.Account{}}
	if err := l.Transfer(from, to, 10); !errors.Is(err, errSourceNotSigner) {
		t.Fatalf("err = %v, want errSourceNotSigner", err)
	}
}

func TestTransferCheckedArithmetic(t *testing.T) {
	l := newTestLedger(t)
	from := &types.AccountRef{Address: testAddr(0xAA), Signer: true, Account: &types.Account{Balance: 100}}
	to := &types.AccountRef{Address: testAddr(0xBB), Account: &types.Account{Balance: ^uint64(0) - 5}}

	if err := l.Transfer(from, to, 200); !errors.Is(err, errInsufficient) {
		t.Fatalf("overdraw err = %v, want errInsufficient", err)
	}
	if err := l.Transfer(from, to, 10); !errors.Is(err, errBalanceLimit) {
		t.Fatalf("overflow err = %v, want errBalanceLimit", err)
	}
	if from.Account.Balance != 100 {
		t.Fatal("failed transfer moved funds")
	}
}

func TestExecuteCommitsOnSuccess(t *testing.T) {
	l := newTestLedger(t)
	addr := testAddr(0xAA)
	if err := l.PutAccount(addr, &types.Account{Balance: 5}); err != nil {
		t.Fatalf("seed account: %v", err)
	}

	tx := &types.Transaction{
		Program:  l.Program(),
		Accounts: []types.AccountMeta{{Address: addr, Signer: true}},
	}
	prog := programFunc(func(accounts []*types.AccountRef, data []byte) error {
		accounts[0].Account.Balance = 9
		return nil
	})
	if err := l.Execute(tx, prog); err != nil {
		t.Fatalf("execute: %v", err)
	}
	loaded, err := l.GetAccount(addr)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.Balance != 9 {
		t.Fatalf("balance = %d, want committed 9", loaded.Balance)
	}
}

func TestExecuteDiscardsOnFailure(t *testing.T) {
	l := newTestLedger(t)
	addr := testAddr(0xAA)
	if err := l.PutAccount(addr, &types.Account{Balance: 5}); err != nil {
		t.Fatalf("seed account: %v", err)
	}

	boom := errors.New("boom")
	tx := &types.Transaction{
		Program:  l.Program(),
		Accounts: []types.AccountMeta{{Address: addr, Signer: true}},
	}
	prog := programFunc(func(accounts []*types.AccountRef, data []byte) error {
		accounts[0].Account.Balance = 9
		return boom
	})
	if err := l.Execute(tx, prog); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	loaded, err := l.GetAccount(addr)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.Balance != 5 {
		t.Fatalf("balance = %d, failed execution must not commit", loaded.Balance)
	}
}

func TestExecuteAliasesDuplicateAddresses(t *testing.T) {
	l := newTestLedger(t)
	addr := testAddr(0xAA)
	tx := &types.Transaction{
		Program: l.Program(),
		Accounts: []types.AccountMeta{
			{Address: addr, Signer: true},
			{Address: addr},
		},
	}
	prog := programFunc(func(accounts []*types.AccountRef, data []byte) error {
		if accounts[0].Account != accounts[1].Account {
			return errors.New("duplicate address must alias one staged account")
		}
		return nil
	})
	if err := l.Execute(tx, prog); err != nil {
		t.Fatalf("execute: %v", err)
	}
}

func TestExecuteReclaimsDrainedSlots(t *testing.T) {
	l := newTestLedger(t)
	addr := testAddr(0xAA)
	if err := l.PutAccount(addr, &types.Account{Balance: 5, Owner: l.Program(), Data: []byte{1}}); err != nil {
		t.Fatalf("seed account: %v", err)
	}

	tx := &types.Transaction{
		Program:  l.Program(),
		Accounts: []types.AccountMeta{{Address: addr, Signer: true}},
	}
	prog := programFunc(func(accounts []*types.AccountRef, data []byte) error {
		accounts[0].Account.Balance = 0
		return nil
	})
	if err := l.Execute(tx, prog); err != nil {
		t.Fatalf("execute: %v", err)
	}
	loaded, err := l.GetAccount(addr)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !loaded.IsEmpty() {
		t.Fatal("drained slot must be reclaimed on commit")
	}
}

func TestExecuteRejectsForeignProgram(t *testing.T) {
	l := newTestLedger(t)
	tx := &types.Transaction{Program: testAddr(0x99)}
	prog := programFunc(func([]*types.AccountRef, []byte) error { return nil })
	if err := l.Execute(tx, prog); err == nil {
		t.Fatal("foreign program id must be rejected")
	}
}
