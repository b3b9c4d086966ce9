package state

import (
	"errors"
	"fmt"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"marketchain/core/types"
	"marketchain/crypto"
	"marketchain/storage"
)

// Storage deposit schedule. An allocated slot must hold at least
// rentBase + rentPerByte * len(data) native units to stay resident; the
// deposit returns to whoever drains the slot to zero.
const (
	rentBase    uint64 = 890_880
	rentPerByte uint64 = 6_960
)

var (
	errAccountInUse    = errors.New("state: account already in use")
	errBadProof        = errors.New("state: derivation proof does not match target")
	errNoAuthority     = errors.New("state: funding account not authorized")
	errInsufficient    = errors.New("state: insufficient balance")
	errBalanceLimit    = errors.New("state: balance overflow")
	errSourceNotSigner = errors.New("state: transfer source must be a signer")
)

var accountPrefix = []byte("account:")

func accountKey(addr types.Address) []byte {
	buf := make([]byte, len(accountPrefix)+len(addr))
	copy(buf, accountPrefix)
	copy(buf[len(accountPrefix):], addr[:])
	return ethcrypto.Keccak256(buf)
}

// storedAccount is the RLP envelope persisted per allocated slot.
type storedAccount struct {
	Balance uint64
	Owner   [32]byte
	Data    []byte
}

// Program is the ledger-side view of an on-chain program: one instruction
// processed against a positional account list, all or nothing.
type Program interface {
	Execute(accounts []*types.AccountRef, data []byte) error
}

// Ledger is the surrounding runtime the program boundary assumes: a flat
// account store keyed by address, the storage-deposit schedule, the clock,
// and the system capabilities (allocation, native transfer) the program
// invokes but does not implement.
type Ledger struct {
	db      storage.Database
	program types.Address
	nowFn   func() int64
}

// NewLedger creates a ledger over the given store for a single program id.
func NewLedger(db storage.Database, program types.Address) *Ledger {
	return &Ledger{
		db:      db,
		program: program,
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// Program returns the program id this ledger executes.
func (l *Ledger) Program() types.Address { return l.program }

// SetNowFunc overrides the time source. Primarily intended for tests to
// provide deterministic timestamps.
func (l *Ledger) SetNowFunc(now func() int64) {
	if now == nil {
		l.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	l.nowFn = now
}

// Now returns the current wall-clock time in unix seconds.
func (l *Ledger) Now() int64 {
	if l == nil || l.nowFn == nil {
		return time.Now().Unix()
	}
	return l.nowFn()
}

// MinimumBalance returns the storage deposit required to keep a slot of the
// given data size resident.
func (l *Ledger) MinimumBalance(space uint64) uint64 {
	return rentBase + rentPerByte*space
}

// GetAccount loads the account stored at addr. Unallocated addresses load as
// empty accounts rather than errors.
func (l *Ledger) GetAccount(addr types.Address) (*types.Account, error) {
	raw, err := l.db.Get(accountKey(addr))
	if errors.Is(err, storage.ErrNotFound) {
		return &types.Account{}, nil
	}
	if err != nil {
		return nil, err
	}
	var stored storedAccount
	if err := rlp.DecodeBytes(raw, &stored); err != nil {
		return nil, fmt.Errorf("state: decode account %s: %w", addr.Hex(), err)
	}
	return &types.Account{
		Balance: stored.Balance,
		Owner:   types.Address(stored.Owner),
		Data:    stored.Data,
	}, nil
}

// PutAccount persists the account at addr. A zero-balance account releases
// its slot entirely: the key is deleted and the storage deposit is assumed
// to have been drained by the caller.
func (l *Ledger) PutAccount(addr types.Address, acc *types.Account) error {
	if acc == nil || acc.Balance == 0 {
		return l.db.Delete(accountKey(addr))
	}
	raw, err := rlp.EncodeToBytes(&storedAccount{
		Balance: acc.Balance,
		Owner:   [32]byte(acc.Owner),
		Data:    acc.Data,
	})
	if err != nil {
		return fmt.Errorf("state: encode account %s: %w", addr.Hex(), err)
	}
	return l.db.Put(accountKey(addr), raw)
}

// CreateAccount allocates a fresh slot at target, funded with lamports
// drawn from payer. The caller must present the derivation proof (seeds and
// bump) for the target address; the ledger recomputes the derivation and
// rejects a mismatch, which is what makes the registry write-once: a second
// allocation at an occupied address fails here before any funds move.
//
// The funding account spends either by signature or because it is owned by
// the executing program (the program's derivation authority covers slots it
// owns).
func (l *Ledger) CreateAccount(payer, target *types.AccountRef, space uint64, lamports uint64, seeds [][]byte, bump byte) error {
	if payer == nil || payer.Account == nil || target == nil || target.Account == nil {
		return fmt.Errorf("state: nil account ref")
	}
	if !crypto.VerifyProgramAddress([32]byte(target.Address), [32]byte(l.program), bump, seeds...) {
		return errBadProof
	}
	if !target.Account.IsEmpty() {
		return fmt.Errorf("%w: %s", errAccountInUse, target.Address.Hex())
	}
	if !payer.Signer && payer.Account.Owner != l.program {
		return errNoAuthority
	}
	if payer.Account.Balance < lamports {
		return errInsufficient
	}
	payer.Account.Balance -= lamports
	target.Account.Balance = lamports
	target.Account.Owner = l.program
	target.Account.Data = make([]byte, space)
	return nil
}

// Transfer moves native units between accounts. The source must have signed
// the invocation; balances move with checked arithmetic so a crafted amount
// can neither overdraw the source nor overflow the destination.
func (l *Ledger) Transfer(from, to *types.AccountRef, amount uint64) error {
	if from == nil || from.Account == nil || to == nil || to.Account == nil {
		return fmt.Errorf("state: nil account ref")
	}
	if !from.Signer {
		return errSourceNotSigner
	}
	if from.Account.Balance < amount {
		return errInsufficient
	}
	if to.Account.Balance > ^uint64(0)-amount {
		return errBalanceLimit
	}
	from.Account.Balance -= amount
	to.Account.Balance += amount
	return nil
}

// Execute runs one transaction against the program: every listed account is
// staged as a mutable copy, the instruction is processed to completion, and
// the staged accounts are committed back only if the handler succeeded. Any
// handler error discards all staged mutations, so no partial state change
// ever reaches durable storage.
//
// The same address appearing twice in the account list aliases one staged
// account, matching the runtime's view of a slot.
func (l *Ledger) Execute(tx *types.Transaction, prog Program) error {
	if tx == nil {
		return fmt.Errorf("state: nil transaction")
	}
	if tx.Program != l.program {
		return fmt.Errorf("state: unknown program %s", tx.Program.Hex())
	}
	staged := make(map[types.Address]*types.Account, len(tx.Accounts))
	refs := make([]*types.AccountRef, len(tx.Accounts))
	for i, meta := range tx.Accounts {
		acc, ok := staged[meta.Address]
		if !ok {
			loaded, err := l.GetAccount(meta.Address)
			if err != nil {
				return err
			}
			acc = loaded
			staged[meta.Address] = acc
		}
		refs[i] = &types.AccountRef{Address: meta.Address, Signer: meta.Signer, Account: acc}
	}
	if err := prog.Execute(refs, tx.Data); err != nil {
		return err
	}
	for addr, acc := range staged {
		if err := l.PutAccount(addr, acc); err != nil {
			return err
		}
	}
	return nil
}
