// Command liquidctld runs the liquid-staking control-plane daemon: Core's
// tick-driven FSM, the validator set, the withdrawal manager, the native
// bond provider, the reward splitter/pump, and the two outward-facing
// surfaces (the gRPC callback listener the relayer sidecar calls into, and
// the HTTP query/admin API) — all sharing one process and one signal-driven
// graceful shutdown, the same shape as the teacher's cmd/gateway daemon.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"log"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.etcd.io/bbolt"

	"liquidctl/config"
	"liquidctl/core/events"
	"liquidctl/crypto"
	"liquidctl/domain/bondprovider"
	"liquidctl/domain/corefsm"
	"liquidctl/domain/ledger"
	"liquidctl/domain/ownership"
	"liquidctl/domain/pause"
	"liquidctl/domain/puppeteer"
	"liquidctl/domain/splitter"
	"liquidctl/domain/validatorset"
	"liquidctl/domain/withdrawal"
	"liquidctl/gateway/auth"
	"liquidctl/gateway/grpc"
	"liquidctl/gateway/httpapi"
	"liquidctl/observability"
	"liquidctl/observability/logging"
	telemetry "liquidctl/observability/otel"
	"liquidctl/storage"
)

func main() {
	var cfgPath, bootstrapPath string
	flag.StringVar(&cfgPath, "config", "liquidctld.toml", "path to daemon configuration")
	flag.StringVar(&bootstrapPath, "bootstrap", "", "path to an optional YAML validator/receiver seed file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("LIQUIDCTL_ENV"))
	slogger := logging.Setup("liquidctld", env)
	logger := log.New(os.Stdout, "liquidctld ", log.LstdFlags|log.Lmsgprefix)

	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: "liquidctld",
		Environment: env,
		Endpoint:    strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		Insecure:    true,
		Metrics:     true,
		Traces:      true,
	})
	if err != nil {
		slogger.Error("failed to initialise telemetry", "error", err)
		os.Exit(1)
	}
	defer func() {
		if shutdownTelemetry != nil {
			_ = shutdownTelemetry(context.Background())
		}
	}()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Fatalf("create data dir: %v", err)
	}

	ownerKeyBytes, err := hex.DecodeString(strings.TrimSpace(cfg.OwnerKey))
	if err != nil {
		logger.Fatalf("decode owner key: %v", err)
	}
	ownerKey, err := crypto.PrivateKeyFromBytes(ownerKeyBytes)
	if err != nil {
		logger.Fatalf("parse owner key: %v", err)
	}
	ownerAddr := ownerKey.PubKey().Address()

	ledgerDB, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "ledger"))
	if err != nil {
		logger.Fatalf("open ledger db: %v", err)
	}
	defer ledgerDB.Close()
	store := storage.New(ledgerDB)

	snapshotDB, err := bbolt.Open(filepath.Join(cfg.DataDir, "puppeteer.bbolt"), 0o600, nil)
	if err != nil {
		logger.Fatalf("open snapshot db: %v", err)
	}
	defer snapshotDB.Close()
	snapshots, err := puppeteer.NewSnapshotStore(snapshotDB)
	if err != nil {
		logger.Fatalf("init snapshot store: %v", err)
	}

	bootstrap, err := config.LoadBootstrap(bootstrapPath)
	if err != nil {
		logger.Fatalf("load bootstrap file: %v", err)
	}

	owned := ownership.New(ownerAddr)
	gate := pause.New()
	validators := validatorset.New(owned)
	if len(bootstrap.Validators) > 0 {
		updates := make([]validatorset.Update, 0, len(bootstrap.Validators))
		for _, v := range bootstrap.Validators {
			update := validatorset.Update{Operator: v.Operator, Weight: v.Weight}
			if v.OnTop != "" {
				onTop, ok := new(big.Int).SetString(v.OnTop, 10)
				if !ok {
					logger.Fatalf("parse bootstrap on-top for %s: invalid integer %q", v.Operator, v.OnTop)
				}
				update.OnTop = onTop
			}
			updates = append(updates, update)
		}
		if err := validators.UpdateValidators(ownerAddr, updates); err != nil {
			logger.Fatalf("seed validator set: %v", err)
		}
	}

	relayerClient, err := grpc.Dial(grpc.ClientConfig{
		Addr:         cfg.RelayerAddress,
		SharedSecret: cfg.RelayerSecret,
	})
	if err != nil {
		logger.Fatalf("dial relayer: %v", err)
	}
	defer relayerClient.Close()

	emitter := events.NoopEmitter{}

	pup := puppeteer.New(puppeteer.Config{
		Logger:         slogger,
		Transport:      relayerClient,
		Snapshots:      snapshots,
		Emitter:        emitter,
		AllowedSenders: []crypto.Address{ownerAddr},
		ICAIdentifier:  cfg.Global.ICAIdentifier,
		TxTimeout:      time.Duration(cfg.Global.TxTimeoutSecs) * time.Second,
	})

	// A fresh daemon's ICA starts unregistered; submit() refuses every
	// Delegate/Undelegate/Transfer/ClaimRewards dispatch until this
	// resolves. RegisterICA is idempotent once ICARegistered, so a restart
	// against an already-registered ICA is a harmless no-op here.
	if err := pup.RegisterICA(context.Background(), ownerAddr); err != nil {
		slogger.Warn("initial ICA registration failed, retry via the admin ICA endpoint", "error", err)
	}

	minIBCTransfer, ok := new(big.Int).SetString(cfg.Global.Timers.MinIBCTransfer, 10)
	if !ok {
		logger.Fatalf("parse timers.min_ibc_transfer: invalid integer %q", cfg.Global.Timers.MinIBCTransfer)
	}
	var bondLimit *big.Int
	if raw := strings.TrimSpace(cfg.Global.Timers.BondLimit); raw != "" {
		bondLimit, ok = new(big.Int).SetString(raw, 10)
		if !ok {
			logger.Fatalf("parse timers.bond_limit: invalid integer %q", raw)
		}
	}
	nativeProvider := bondprovider.NewNativeBondProvider(bondprovider.NativeConfig{
		BaseDenom:           cfg.Global.BaseDenom,
		MinIBCTransfer:      minIBCTransfer,
		TransferChannel:     cfg.Global.TransferChannel,
		ICAAddress:          cfg.Global.ICAAddress,
		TransferTimeoutSecs: uint64(cfg.Global.TxTimeoutSecs),
		BondLimit:           bondLimit,
	}, ownerAddr, pup)

	receiptToken := ledger.NewReceiptToken(store)
	payoutAccount := ledger.NewPayoutAccount(store)
	voucherLedger := ledger.NewVoucherLedger(store)
	unbondObserver := ledger.PassthroughUnbondObserver{}

	withdrawalMgr := withdrawal.NewManager(owned, voucherLedger, payoutAccount)

	splitterReceivers := cfg.Global.Splitter.Receivers
	if len(bootstrap.SplitterReceivers) > 0 {
		splitterReceivers = bootstrap.SplitterReceivers
	}
	receivers := make([]splitter.Receiver, 0, len(splitterReceivers))
	for _, r := range splitterReceivers {
		addr, err := crypto.DecodeAddress(r.Address)
		if err != nil {
			logger.Fatalf("parse splitter receiver %q: %v", r.Address, err)
		}
		receivers = append(receivers, splitter.Receiver{Address: addr, Weight: r.Weight})
	}
	rewardSplitter := splitter.NewSplitter(owned, receivers, payoutAccount)

	minPumpAmount, ok := new(big.Int).SetString(cfg.Global.Splitter.MinPumpAmount, 10)
	if !ok {
		logger.Fatalf("parse splitter.min_pump_amount: invalid integer %q", cfg.Global.Splitter.MinPumpAmount)
	}
	rewardsPump := splitter.NewRewardsPump(splitter.PumpConfig{
		BaseDenom:       cfg.Global.BaseDenom,
		TransferChannel: cfg.Global.TransferChannel,
		Receiver:        cfg.Global.Splitter.PumpReceiver,
		MinPumpAmount:   minPumpAmount,
		TimeoutSecs:     cfg.Global.Splitter.PumpTimeoutSecs,
	}, ownerAddr, nil, grpc.NewPumpTransport(relayerClient))

	core := corefsm.New(
		toCoreConfig(cfg.Global),
		owned,
		gate,
		ownerAddr,
		validators,
		pup,
		nativeProvider,
		nil,
		withdrawalMgr,
		receiptToken,
		unbondObserver,
		emitter,
		slogger,
	)

	grpcServer := grpc.NewServer(grpc.Config{
		ListenAddr:   cfg.GRPCListenAddress,
		SharedSecret: cfg.RelayerSecret,
	}, pup)

	authenticator := auth.New(auth.Config{
		Enabled:    cfg.AuthEnabled,
		HMACSecret: cfg.AuthHMACSecret,
		Issuer:     cfg.AuthIssuer,
	}, slogger)

	httpHandler := httpapi.New(httpapi.Config{
		Core:          core,
		Withdrawal:    withdrawalMgr,
		Validators:    validators,
		Pump:          rewardsPump,
		Splitter:      rewardSplitter,
		Owned:         owned,
		Puppeteer:     pup,
		Authenticator: authenticator,
		CORSOrigins:   []string{"*"},
		Logger:        slogger,
	})
	httpServer := &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      httpHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Printf("grpc callback listener on %s", cfg.GRPCListenAddress)
		if err := grpcServer.Serve(); err != nil {
			logger.Fatalf("grpc serve: %v", err)
		}
	}()

	go func() {
		logger.Printf("http api listening on %s", cfg.ListenAddress)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http serve: %v", err)
		}
	}()

	go runTickLoop(ctx, core, rewardsPump, time.Duration(cfg.Global.Timers.IdleMinIntervalSecs)*time.Second, slogger)

	<-ctx.Done()
	logger.Printf("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("http graceful shutdown failed: %v", err)
	}
	grpcServer.Stop()
}

// runTickLoop drives Core.Tick on a fixed interval and separately polls
// RewardsPump's own idle-processing cycle, since the pump's IBC hop is not
// one of Core's own FsmState transitions (see DESIGN.md's domain/ledger and
// gateway/grpc entries for why it cannot share Core's puppeteer reply
// registration).
func runTickLoop(ctx context.Context, core *corefsm.Core, pump *splitter.RewardsPump, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if err := core.Tick(ctx, now.Unix()); err != nil {
				logger.Warn("core tick failed", "error", err)
			} else {
				observability.Core().RecordTick(core.State().String())
			}
			if pump.CanProcessOnIdle() {
				if err := pump.ProcessOnIdle(ctx); err != nil {
					logger.Warn("rewards pump dispatch failed", "error", err)
				} else {
					// PumpTransport.IBCTransfer returns only after the
					// relayer sidecar has synchronously accepted dispatch
					// (see gateway/grpc.PumpTransport), so a nil error here
					// is already confirmation — there is no separate ack
					// callback to wait for the way Puppeteer's ICA hops have.
					pump.ConfirmPump()
				}
			}
		}
	}
}

func toCoreConfig(g config.Global) corefsm.Config {
	minNonNative, ok := new(big.Int).SetString(g.Timers.MinNonNativeRewards, 10)
	if !ok {
		minNonNative = big.NewInt(0)
	}
	return corefsm.Config{
		BaseDenom: g.BaseDenom,
		// ICADelegator and WithdrawalAddr are owner-mutable via
		// UpdateConfig: the ICA's bech32 delegator address is only known
		// once puppeteer.HandleICAOpenAck fires after registration, and the
		// controller-side withdrawal receive address is an operator choice
		// independent of any protocol parameter here.
		ICADelegator:          "",
		WithdrawalAddr:        "",
		TransferChannel:       g.TransferChannel,
		TransferTimeout:       time.Duration(g.TxTimeoutSecs) * time.Second,
		IdleMinInterval:       time.Duration(g.Timers.IdleMinIntervalSecs) * time.Second,
		UnbondBatchSwitchTime: time.Duration(g.Timers.UnbondBatchSwitchTimeSecs) * time.Second,
		UnbondingPeriod:       time.Duration(g.Timers.UnbondingPeriodSecs) * time.Second,
		UnbondingSafePeriod:   time.Duration(g.Timers.UnbondingSafePeriodSecs) * time.Second,
		RewardsClaimEpoch:     time.Duration(g.Timers.RewardsClaimEpochSecs) * time.Second,
		MinNonNativeRewards:   minNonNative,
		ICQUpdateDelayBlocks:  g.Timers.ICQUpdateDelayBlocks,
	}
}
