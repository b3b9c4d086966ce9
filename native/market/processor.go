package market

import (
	"fmt"

	"marketchain/core/events"
	"marketchain/core/types"
)

// Opcodes. Byte 0 of every instruction selects the handler.
const (
	OpInit        byte = 0
	OpUpdate      byte = 1
	OpDelete      byte = 2
	OpBuy         byte = 3
	OpSell        byte = 4
	OpCancel      byte = 5
	OpHoldAccount byte = 6
)

// HOLD_ACCOUNT sub-discriminators (byte 1 of a HOLD_ACCOUNT instruction).
const (
	HoldMoneyHolder     byte = 0
	HoldTempMoneyHolder byte = 1
	HoldBuyInfoHolder   byte = 2
)

// Processor decodes one instruction and routes it to a handler. Dispatch
// never partially executes: an unknown opcode or a payload length mismatch
// aborts before any handler runs.
type Processor struct {
	program  types.Address
	listings *Engine
	trades   *TradeEngine
}

// NewProcessor creates the instruction processor for the given program id.
func NewProcessor(program types.Address) *Processor {
	return &Processor{
		program:  program,
		listings: NewEngine(program),
		trades:   NewTradeEngine(program),
	}
}

// Program returns the program id this processor dispatches for.
func (p *Processor) Program() types.Address { return p.program }

// SetRuntime wires the ledger capabilities into both engines.
func (p *Processor) SetRuntime(rt Runtime) {
	p.listings.SetRuntime(rt)
	p.trades.SetRuntime(rt)
}

// SetEmitter wires the event emitter into both engines.
func (p *Processor) SetEmitter(emitter events.Emitter) {
	p.listings.SetEmitter(emitter)
	p.trades.SetEmitter(emitter)
}

// Execute dispatches one instruction against the invocation's positional
// account list.
func (p *Processor) Execute(accounts []*types.AccountRef, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty instruction", ErrInvalidInstructionData)
	}
	payload := data[1:]
	switch data[0] {
	case OpInit:
		if len(payload) != InitDataSize {
			return fmt.Errorf("%w: init payload is %d bytes, want %d", ErrInvalidInstructionData, len(payload), InitDataSize)
		}
		return p.listings.Init(accounts, InitData(payload))
	case OpUpdate:
		if len(payload) != UpdateDataSize {
			return fmt.Errorf("%w: update payload is %d bytes, want %d", ErrInvalidInstructionData, len(payload), UpdateDataSize)
		}
		return p.listings.Update(accounts, UpdateData(payload))
	case OpDelete:
		if len(payload) != DeleteDataSize {
			return fmt.Errorf("%w: delete payload is %d bytes, want %d", ErrInvalidInstructionData, len(payload), DeleteDataSize)
		}
		return p.listings.Delete(accounts, DeleteData(payload))
	case OpBuy:
		if len(payload) != BuyDataSize {
			return fmt.Errorf("%w: buy payload is %d bytes, want %d", ErrInvalidInstructionData, len(payload), BuyDataSize)
		}
		return p.trades.Buy(accounts, BuyData(payload))
	case OpSell:
		if len(payload) != SellDataSize {
			return fmt.Errorf("%w: sell payload is %d bytes, want %d", ErrInvalidInstructionData, len(payload), SellDataSize)
		}
		return p.trades.Sell(accounts, SellData(payload))
	case OpCancel:
		if len(payload) != CancelDataSize {
			return fmt.Errorf("%w: cancel payload is %d bytes, want %d", ErrInvalidInstructionData, len(payload), CancelDataSize)
		}
		return p.trades.Cancel(accounts, CancelData(payload))
	case OpHoldAccount:
		if len(payload) < 1 {
			return fmt.Errorf("%w: missing holder discriminator", ErrInvalidInstructionData)
		}
		rest := payload[1:]
		switch payload[0] {
		case HoldMoneyHolder:
			if len(rest) < MoneyHolderDataSize {
				return fmt.Errorf("%w: money holder payload is %d bytes, want at least %d", ErrInvalidArgument, len(rest), MoneyHolderDataSize)
			}
			return p.trades.CreateMoneyHolder(accounts, MoneyHolderData(rest[:MoneyHolderDataSize]))
		case HoldTempMoneyHolder:
			if len(rest) < TempMoneyHolderDataSize {
				return fmt.Errorf("%w: fee pool payload is %d bytes, want at least %d", ErrInvalidArgument, len(rest), TempMoneyHolderDataSize)
			}
			return p.trades.CreateTempMoneyHolder(accounts, TempMoneyHolderData(rest[:TempMoneyHolderDataSize]))
		case HoldBuyInfoHolder:
			if len(rest) < InfoDataSize {
				return fmt.Errorf("%w: info payload is %d bytes, want at least %d", ErrInvalidArgument, len(rest), InfoDataSize)
			}
			return p.trades.CreateInfoAccount(accounts, InfoData(rest[:InfoDataSize]))
		default:
			return fmt.Errorf("%w: unknown holder discriminator %d", ErrInvalidInstructionData, payload[0])
		}
	default:
		return fmt.Errorf("%w: unknown opcode %d", ErrInvalidInstructionData, data[0])
	}
}
