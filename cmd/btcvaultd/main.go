// Command btcvaultd runs a devnet vault system with its maintainer bot.
package main

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bitfsorg/btcvault-go/config"
	"github.com/bitfsorg/btcvault-go/events"
	"github.com/bitfsorg/btcvault-go/feemath"
	"github.com/bitfsorg/btcvault-go/protocol"
	"github.com/bitfsorg/btcvault-go/scheduler"
	"github.com/bitfsorg/btcvault-go/store"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] btcvaultd starting...")

	// Load config
	cfgPath := config.ConfigPath(config.DefaultDataDir())
	if v := os.Getenv("BTCVAULT_CONFIG"); v != "" {
		cfgPath = v
	}
	cfg, err := config.LoadConfig(cfgPath)
	if errors.Is(err, config.ErrConfigNotFound) {
		log.Printf("[WARN] no config at %s, writing defaults", cfgPath)
		if err := config.SaveConfig(cfgPath, cfg); err != nil {
			log.Fatalf("[FATAL] save default config: %v", err)
		}
	} else if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := config.ApplyEnv(&cfg); err != nil {
		log.Fatalf("[FATAL] %v", err)
	}
	if err := config.ValidateConfig(cfg); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}
	if cfg.Network != "devnet" {
		log.Fatalf("[FATAL] network %q has no bridge or custodian adapter; set network: devnet", cfg.Network)
	}
	debug := strings.EqualFold(cfg.LogLevel, "debug")

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			log.Fatalf("[FATAL] open log file: %v", err)
		}
		defer f.Close()
		log.SetOutput(io.MultiWriter(os.Stderr, f))
	}

	// Persistent stores
	lock, err := store.LockDataDir(cfg.DataDir)
	if err != nil {
		log.Fatalf("[FATAL] %v", err)
	}
	defer lock.Release()

	bolt, err := store.OpenBoltStore(cfg.ResolvePath(cfg.Database.BoltPath))
	if err != nil {
		log.Fatalf("[FATAL] open state store: %v", err)
	}
	defer bolt.Close()

	var sink events.Sink = events.NoopSink{}
	var lastSeq uint64
	if rec, err := events.NewSQLiteRecorder(cfg.ResolvePath(cfg.Database.SQLitePath)); err != nil {
		log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
	} else {
		defer rec.Close()
		if lastSeq, err = rec.LastSeq(); err != nil {
			log.Fatalf("[FATAL] read event sequence: %v", err)
		}
		sink = rec
	}

	// System
	settings, err := settingsFromConfig(cfg)
	if err != nil {
		log.Fatalf("[FATAL] %v", err)
	}
	settings.Sink = sink
	settings.EventSeq = lastSeq
	settings.Records = bolt.Deposits()
	settings.Allocation = bolt.Allocation()
	if cfg.Database.ArchiveDir != "" {
		archive, err := store.NewTxArchive(cfg.ResolvePath(cfg.Database.ArchiveDir))
		if err != nil {
			log.Fatalf("[FATAL] open funding tx archive: %v", err)
		}
		settings.Archive = archive
	}

	sys, err := protocol.NewDevnet(settings, cfg.BridgeParams(), cfg.Devnet.CustodianYieldBps)
	if err != nil {
		log.Fatalf("[FATAL] %s", buildError(cfg, err))
	}
	accounts := sys.Accounts()
	log.Printf("[INFO] vault %s, intake %s, allocator %s",
		accounts.Vault.Hex(), accounts.Intake.Hex(), accounts.Allocator.Hex())
	log.Printf("[INFO] minimum deposit %s tBTC, entry fee %d bps, exit fee %d bps",
		feemath.FormatAmount(settings.Vault.MinimumDepositAmount, feemath.TokenDecimals),
		settings.Vault.EntryFeeBasisPoints, settings.Vault.ExitFeeBasisPoints)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Maintainer bot
	if len(settings.Maintainers) == 0 {
		log.Println("[WARN] no maintainers configured, scheduler disabled")
	} else {
		sched := scheduler.NewScheduler(ctx, sys, settings.Maintainers[0])
		sched.Debug = debug
		if err := sched.RegisterAll(cfg.Schedule.AllocateCron, cfg.Schedule.SettleCron); err != nil {
			log.Fatalf("[FATAL] register cron tasks: %v", err)
		}
		if cfg.Devnet.RelayCron != "" {
			if err := sched.RegisterRelay(cfg.Devnet.RelayCron, sys); err != nil {
				log.Fatalf("[FATAL] register relay task: %v", err)
			}
		}
		sched.Start()
		defer sched.Stop()

		if os.Getenv("BTCVAULT_RUN_ON_START") == "true" {
			log.Println("[INFO] BTCVAULT_RUN_ON_START enabled, allocating now")
			go sched.RunAllocateNow()
		}
	}

	log.Println("[INFO] btcvaultd is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	log.Printf("[INFO] btcvaultd stopped at event seq %d", sys.EventSeq())
}
