package rpc

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"marketchain/core/state"
	"marketchain/core/types"
	"marketchain/crypto"
	"marketchain/native/market"
	"marketchain/observability"
)

// Server exposes the ledger over HTTP: instruction submission plus read
// access to the program's records by derived address.
type Server struct {
	ledger    *state.Ledger
	processor *market.Processor
	log       *slog.Logger
}

// NewServer wires a server around a ledger and its instruction processor.
func NewServer(ledger *state.Ledger, processor *market.Processor, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{ledger: ledger, processor: processor, log: logger}
}

// Router builds the HTTP handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/v1/transactions", s.handleSubmit)
	r.Get("/v1/listings/{address}", s.handleListing)
	r.Get("/v1/orders/{address}", s.handleOrder)
	r.Get("/v1/registry/{address}", s.handleRegistry)
	r.Get("/v1/accounts/{address}", s.handleAccount)
	return r
}

type submitAccount struct {
	Address string `json:"address"`
	Signer  bool   `json:"signer"`
}

type submitRequest struct {
	Accounts []submitAccount `json:"accounts"`
	Data     string          `json:"data"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// ParseAnyAddress accepts either the bech32 mkt1... form or 64 hex characters.
func ParseAnyAddress(s string) (types.Address, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, crypto.AddressHRP+"1") {
		raw, err := crypto.ParseAddress(s)
		if err != nil {
			return types.ZeroAddress, err
		}
		return types.Address(raw), nil
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return types.ZeroAddress, errors.New("rpc: address must be bech32 or hex")
	}
	if len(raw) != 32 {
		return types.ZeroAddress, errors.New("rpc: address must decode to 32 bytes")
	}
	return types.AddressFromBytes(raw), nil
}

func opcodeLabel(data []byte) string {
	if len(data) == 0 {
		return "empty"
	}
	switch data[0] {
	case market.OpInit:
		return "init"
	case market.OpUpdate:
		return "update"
	case market.OpDelete:
		return "delete"
	case market.OpBuy:
		return "buy"
	case market.OpSell:
		return "sell"
	case market.OpCancel:
		return "cancel"
	case market.OpHoldAccount:
		return "hold_account"
	default:
		return "unknown"
	}
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, market.ErrInvalidInstructionData),
		errors.Is(err, market.ErrInvalidArgument),
		errors.Is(err, market.ErrInvalidAccountData):
		return http.StatusBadRequest
	case errors.Is(err, market.ErrMissingSignature):
		return http.StatusForbidden
	default:
		return http.StatusUnprocessableEntity
	}
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("rpc: malformed request body"))
		return
	}
	data, err := hex.DecodeString(strings.TrimPrefix(req.Data, "0x"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("rpc: instruction data must be hex"))
		return
	}
	tx := &types.Transaction{Program: s.ledger.Program(), Data: data}
	for _, acc := range req.Accounts {
		addr, err := ParseAnyAddress(acc.Address)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		tx.Accounts = append(tx.Accounts, types.AccountMeta{Address: addr, Signer: acc.Signer})
	}

	opcode := opcodeLabel(data)
	start := time.Now()
	execErr := s.ledger.Execute(tx, s.processor)
	observability.Instructions().Observe(opcode, time.Since(start), execErr)
	if execErr != nil {
		s.log.Warn("instruction rejected", "opcode", opcode, "error", execErr)
		writeError(w, statusForError(execErr), execErr)
		return
	}
	s.log.Info("instruction applied", "opcode", opcode, "accounts", len(tx.Accounts))
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
