package rpc

import (
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"marketchain/core/types"
	"marketchain/crypto"
	"marketchain/native/market"
)

var errRecordNotFound = errors.New("rpc: record not found")

// cleanText renders a fixed-width field as a string, dropping zero padding.
func cleanText(b []byte) string {
	return strings.TrimRight(string(b), "\x00")
}

func (s *Server) loadRecord(w http.ResponseWriter, r *http.Request) (types.Address, *types.Account, bool) {
	addr, err := ParseAnyAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return types.ZeroAddress, nil, false
	}
	acc, err := s.ledger.GetAccount(addr)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return types.ZeroAddress, nil, false
	}
	if acc.IsEmpty() {
		writeError(w, http.StatusNotFound, errRecordNotFound)
		return types.ZeroAddress, nil, false
	}
	return addr, acc, true
}

type listingResponse struct {
	Address     string `json:"address"`
	ItemID      string `json:"itemId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       uint64 `json:"price"`
	Payer       string `json:"payer"`
	Balance     uint64 `json:"balance"`
}

func (s *Server) handleListing(w http.ResponseWriter, r *http.Request) {
	addr, acc, ok := s.loadRecord(w, r)
	if !ok {
		return
	}
	rec, err := market.ListingRecord(acc.Data)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, listingResponse{
		Address:     crypto.FormatAddress([32]byte(addr)),
		ItemID:      hex.EncodeToString(rec.ItemID()),
		Title:       cleanText(rec.Title()),
		Description: cleanText(rec.Description()),
		Price:       rec.Price(),
		Payer:       crypto.FormatAddress([32]byte(types.AddressFromBytes(rec.Payer()))),
		Balance:     acc.Balance,
	})
}

type orderResponse struct {
	Address string `json:"address"`
	ItemID  string `json:"itemId"`
	Buyer   string `json:"buyer"`
	Seller  string `json:"seller"`
	Price   uint64 `json:"price"`
	Balance uint64 `json:"balance"`
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	addr, acc, ok := s.loadRecord(w, r)
	if !ok {
		return
	}
	rec, err := market.OrderRecord(acc.Data)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{
		Address: crypto.FormatAddress([32]byte(addr)),
		ItemID:  hex.EncodeToString(rec.ItemID()),
		Buyer:   crypto.FormatAddress([32]byte(types.AddressFromBytes(rec.Buyer()))),
		Seller:  crypto.FormatAddress([32]byte(types.AddressFromBytes(rec.Seller()))),
		Price:   rec.Price(),
		Balance: acc.Balance,
	})
}

type registryResponse struct {
	Address     string `json:"address"`
	ItemID      string `json:"itemId"`
	Buyer       string `json:"buyer"`
	Seller      string `json:"seller"`
	Price       uint64 `json:"price"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Timestamp   uint64 `json:"timestamp"`
}

func (s *Server) handleRegistry(w http.ResponseWriter, r *http.Request) {
	addr, acc, ok := s.loadRecord(w, r)
	if !ok {
		return
	}
	rec, err := market.RegistryRecord(acc.Data)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, registryResponse{
		Address:     crypto.FormatAddress([32]byte(addr)),
		ItemID:      hex.EncodeToString(rec.ItemID()),
		Buyer:       crypto.FormatAddress([32]byte(types.AddressFromBytes(rec.Buyer()))),
		Seller:      crypto.FormatAddress([32]byte(types.AddressFromBytes(rec.Seller()))),
		Price:       rec.Price(),
		Title:       cleanText(rec.Title()),
		Description: cleanText(rec.Description()),
		Timestamp:   rec.Timestamp(),
	})
}

type accountResponse struct {
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
	Owner   string `json:"owner,omitempty"`
	Size    int    `json:"size"`
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	addr, acc, ok := s.loadRecord(w, r)
	if !ok {
		return
	}
	resp := accountResponse{
		Address: crypto.FormatAddress([32]byte(addr)),
		Balance: acc.Balance,
		Size:    len(acc.Data),
	}
	if !acc.Owner.IsZero() {
		resp.Owner = crypto.FormatAddress([32]byte(acc.Owner))
	}
	writeJSON(w, http.StatusOK, resp)
}
