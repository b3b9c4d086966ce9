package market

import (
	"encoding/hex"
	"strconv"

	"github.com/google/uuid"

	"marketchain/core/types"
)

const (
	EventTypeListingCreated = "market.listing.created"
	EventTypeListingUpdated = "market.listing.updated"
	EventTypeListingDeleted = "market.listing.deleted"
	EventTypeOrderOpened    = "market.order.opened"
	EventTypeOrderCancelled = "market.order.cancelled"
	EventTypeTradeSettled   = "market.trade.settled"
	EventTypeHolderCreated  = "market.holder.created"
	EventTypeFeePoolCreated = "market.feepool.created"
	EventTypeInfoCreated    = "market.info.created"
)

type marketEvent struct {
	evt *types.Event
}

func (e marketEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e marketEvent) Event() *types.Event { return e.evt }

// NewListingCreatedEvent returns the canonical event payload for a newly
// created listing. The client-supplied uuid travels in the event only; it is
// never part of the persisted record.
func NewListingCreatedEvent(addr types.Address, id []byte, rec Listing) *types.Event {
	attrs := map[string]string{
		"address": addr.Hex(),
		"itemId":  hex.EncodeToString(rec.ItemID()),
		"price":   strconv.FormatUint(rec.Price(), 10),
		"payer":   hex.EncodeToString(rec.Payer()),
	}
	if u, err := uuid.FromBytes(id); err == nil {
		attrs["uuid"] = u.String()
	}
	return &types.Event{Type: EventTypeListingCreated, Attributes: attrs}
}

// NewListingUpdatedEvent returns the canonical event payload for an in-place
// listing update.
func NewListingUpdatedEvent(addr types.Address, rec Listing) *types.Event {
	return &types.Event{Type: EventTypeListingUpdated, Attributes: map[string]string{
		"address": addr.Hex(),
		"itemId":  hex.EncodeToString(rec.ItemID()),
		"price":   strconv.FormatUint(rec.Price(), 10),
	}}
}

// NewListingDeletedEvent returns the canonical event payload for a deleted
// listing.
func NewListingDeletedEvent(addr, payer types.Address) *types.Event {
	return &types.Event{Type: EventTypeListingDeleted, Attributes: map[string]string{
		"address": addr.Hex(),
		"payer":   payer.Hex(),
	}}
}

// NewOrderOpenedEvent returns the canonical event payload for a newly opened
// escrow order.
func NewOrderOpenedEvent(addr types.Address, ord Order) *types.Event {
	return &types.Event{Type: EventTypeOrderOpened, Attributes: map[string]string{
		"address": addr.Hex(),
		"itemId":  hex.EncodeToString(ord.ItemID()),
		"buyer":   hex.EncodeToString(ord.Buyer()),
		"seller":  hex.EncodeToString(ord.Seller()),
		"price":   strconv.FormatUint(ord.Price(), 10),
	}}
}

// NewOrderCancelledEvent returns the canonical event payload for a cancelled
// order.
func NewOrderCancelledEvent(addr, buyer types.Address) *types.Event {
	return &types.Event{Type: EventTypeOrderCancelled, Attributes: map[string]string{
		"address": addr.Hex(),
		"buyer":   buyer.Hex(),
	}}
}

// NewTradeSettledEvent returns the canonical event payload for a settled
// trade, keyed by its registry record.
func NewTradeSettledEvent(addr types.Address, reg Registry) *types.Event {
	return &types.Event{Type: EventTypeTradeSettled, Attributes: map[string]string{
		"address":   addr.Hex(),
		"itemId":    hex.EncodeToString(reg.ItemID()),
		"buyer":     hex.EncodeToString(reg.Buyer()),
		"seller":    hex.EncodeToString(reg.Seller()),
		"price":     strconv.FormatUint(reg.Price(), 10),
		"timestamp": strconv.FormatUint(reg.Timestamp(), 10),
	}}
}

// NewHolderCreatedEvent returns the canonical event payload for a
// bootstrapped pool slot.
func NewHolderCreatedEvent(eventType string, addr, payer types.Address) *types.Event {
	return &types.Event{Type: eventType, Attributes: map[string]string{
		"address": addr.Hex(),
		"payer":   payer.Hex(),
	}}
}
