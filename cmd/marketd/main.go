package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"marketchain/config"
	"marketchain/core/events"
	"marketchain/core/state"
	"marketchain/core/types"
	"marketchain/native/market"
	"marketchain/observability/logging"
	"marketchain/rpc"
	"marketchain/storage"
)

// logEmitter forwards program events to the structured log.
type logEmitter struct {
	log *slog.Logger
}

func (e logEmitter) Emit(evt events.Event) {
	e.log.Info("program event", "type", evt.EventType())
}

// programID derives the marketplace program id from the network name so
// every node of a network executes against the same id.
func programID(network string) types.Address {
	return types.AddressFromBytes(ethcrypto.Keccak256([]byte("marketchain/program/" + network)))
}

func applyGenesis(ledger *state.Ledger, accounts []config.GenesisAccount, logger *slog.Logger) error {
	for _, entry := range accounts {
		addr, err := rpc.ParseAnyAddress(entry.Address)
		if err != nil {
			return fmt.Errorf("genesis account %q: %w", entry.Address, err)
		}
		acc, err := ledger.GetAccount(addr)
		if err != nil {
			return err
		}
		if !acc.IsEmpty() {
			continue
		}
		acc.Balance = entry.Balance
		if err := ledger.PutAccount(addr, acc); err != nil {
			return err
		}
		logger.Info("seeded genesis account", "address", entry.Address, "balance", entry.Balance)
	}
	return nil
}

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("MARKET_ENV"))

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup("marketd", env, cfg.LogFile)

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.DataDir, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	program := programID(cfg.NetworkName)
	ledger := state.NewLedger(db, program)
	if err := applyGenesis(ledger, cfg.Genesis, logger); err != nil {
		logger.Error("failed to seed genesis accounts", "error", err)
		os.Exit(1)
	}

	processor := market.NewProcessor(program)
	processor.SetRuntime(ledger)
	processor.SetEmitter(logEmitter{log: logger})

	server := rpc.NewServer(ledger, processor, logger)
	logger.Info("marketd started",
		"network", cfg.NetworkName,
		"program", program.Hex(),
		"rpc", cfg.RPCAddress,
	)
	if err := http.ListenAndServe(cfg.RPCAddress, server.Router()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("rpc server stopped", "error", err)
		os.Exit(1)
	}
}
