package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	flag "github.com/spf13/pflag"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
	"go.vocdoni.io/dvote/log"

	"github.com/zkpoll/zkvote/api"
	"github.com/zkpoll/zkvote/auth"
	"github.com/zkpoll/zkvote/config"
	"github.com/zkpoll/zkvote/ledger"
	"github.com/zkpoll/zkvote/service"
	"github.com/zkpoll/zkvote/signer"
	"github.com/zkpoll/zkvote/storage"
	"github.com/zkpoll/zkvote/voting"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		panic(err)
	}

	flag.StringVar(&cfg.Host, "host", cfg.Host, "API host to bind")
	flag.IntVar(&cfg.Port, "port", cfg.Port, "API port to bind")
	flag.StringVar(&cfg.DataDir, "datadir", cfg.DataDir, "data directory for the session store")
	flag.StringVar(&cfg.LogLevel, "loglevel", cfg.LogLevel, "log level (debug, info, warn, error)")
	flag.StringVar(&cfg.Ledger.RPCURL, "rpc", cfg.Ledger.RPCURL, "fullnode JSON-RPC endpoint")
	flag.StringVar(&cfg.Auth.ProverURL, "prover", cfg.Auth.ProverURL, "zk proving service endpoint")
	flag.StringVar(&cfg.Auth.SaltServiceURL, "salt", cfg.Auth.SaltServiceURL,
		"salt service endpoint (empty selects the demo resolver)")
	flag.StringVar(&cfg.Voting.PackageID, "package", cfg.Voting.PackageID, "voting package object id")
	flag.StringVar(&cfg.Voting.VotingRegistryID, "registry", cfg.Voting.VotingRegistryID, "voting registry object id")
	flag.Parse()
	log.Init(cfg.LogLevel, "stdout", nil)

	kv, err := metadb.New(db.TypePebble, filepath.Join(cfg.DataDir, "sessions"))
	if err != nil {
		log.Fatal(err)
	}
	store := storage.New(kv)

	ledgerClient := ledger.New(cfg.Ledger.RPCURL)
	log.Infow("ledger client ready", "rpc", cfg.Ledger.RPCURL)

	votingCfg, err := cfg.VotingConfig()
	if err != nil {
		log.Fatal(err)
	}
	program, err := voting.New(votingCfg, ledgerClient)
	if err != nil {
		log.Fatal(err)
	}

	providers, err := cfg.AuthProviders()
	if err != nil {
		log.Fatal(err)
	}
	if len(providers) == 0 {
		log.Fatal("no identity providers configured")
	}
	flow, err := auth.NewFlow(auth.FlowConfig{
		Epochs:      ledgerClient,
		Store:       store,
		Providers:   providers,
		Salts:       cfg.SaltResolver(),
		Prover:      auth.NewHTTPProver(cfg.Auth.ProverURL),
		RedirectURI: cfg.Auth.RedirectURI,
		EpochOffset: cfg.Auth.EpochOffset,
	})
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()

	apiService := service.NewAPI(&api.APIConfig{
		Host:    cfg.Host,
		Port:    cfg.Port,
		Flow:    flow,
		Signer:  signer.New(ledgerClient),
		Voting:  program,
		Ledger:  ledgerClient,
		Storage: store,
	})
	if err := apiService.Start(ctx); err != nil {
		log.Fatal(err)
	}

	balanceMonitor := service.NewBalanceMonitor(ledgerClient, store, cfg.Ledger.BalancePollInterval)
	if err := balanceMonitor.Start(ctx); err != nil {
		log.Fatal(err)
	}

	log.Infow("gateway running", "host", cfg.Host, "port", cfg.Port,
		"providers", len(providers))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutting down")
	balanceMonitor.Stop()
	apiService.Stop()
}
