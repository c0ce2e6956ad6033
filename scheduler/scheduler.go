// Package scheduler runs the maintainer bot: cron jobs that allocate idle
// vault assets, settle the rewards cycle and, on devnet, relay bridged
// deposits into the vault.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/robfig/cron/v3"

	"github.com/bitfsorg/btcvault-go/feemath"
	"github.com/bitfsorg/btcvault-go/intake"
	"github.com/bitfsorg/btcvault-go/sharevault"
)

// System is the part of the protocol the maintainer bot drives.
type System interface {
	Allocate(ctx context.Context, caller common.Address) (sdkmath.Uint, error)
	Settle(caller common.Address) error
	TotalAssets() sdkmath.Uint
}

// Relayer finalizes bridged deposits. The devnet system implements it.
type Relayer interface {
	PendingBridging() []intake.FundingKey
	FinalizeBridging(key intake.FundingKey) (sdkmath.Uint, error)
	AwaitingStake() []intake.FundingKey
	FinalizeStake(ctx context.Context, caller common.Address, key intake.FundingKey) (sdkmath.Uint, error)
	QueueStake(ctx context.Context, caller common.Address, key intake.FundingKey) error
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron       *cron.Cron
	System     System
	Maintainer common.Address
	Relay      Relayer
	Ctx        context.Context
	Debug      bool
}

// NewScheduler creates a scheduler acting as maintainer. Jobs that are still
// running when their next tick arrives are skipped, and a panicking job is
// logged instead of killing the process.
func NewScheduler(ctx context.Context, sys System, maintainer common.Address) *Scheduler {
	logger := cron.PrintfLogger(log.Default())
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		System:     sys,
		Maintainer: maintainer,
		Ctx:        ctx,
	}
}

// RegisterAll registers the allocate and settle jobs.
func (s *Scheduler) RegisterAll(allocateCron, settleCron string) error {
	if _, err := s.Cron.AddFunc(allocateCron, s.allocateTask); err != nil {
		return fmt.Errorf("register allocate task: %w", err)
	}
	if _, err := s.Cron.AddFunc(settleCron, s.settleTask); err != nil {
		return fmt.Errorf("register settle task: %w", err)
	}
	return nil
}

// RegisterRelay registers the deposit relay job.
func (s *Scheduler) RegisterRelay(spec string, r Relayer) error {
	s.Relay = r
	if _, err := s.Cron.AddFunc(spec, s.relayTask); err != nil {
		return fmt.Errorf("register relay task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// RunAllocateNow executes the allocate task immediately.
func (s *Scheduler) RunAllocateNow() {
	s.allocateTask()
}

// RunSettleNow executes the settle task immediately.
func (s *Scheduler) RunSettleNow() {
	s.settleTask()
}

// RunRelayNow executes the relay task immediately.
func (s *Scheduler) RunRelayNow() {
	s.relayTask()
}

func (s *Scheduler) allocateTask() {
	s.debugf("running allocate task")
	moved, err := s.System.Allocate(s.Ctx, s.Maintainer)
	if err != nil {
		log.Printf("[ERROR] allocate: %v", err)
		return
	}
	if moved.IsZero() {
		s.debugf("allocate: vault has no idle assets")
		return
	}
	log.Printf("[INFO] allocated %s tBTC, total assets %s",
		feemath.FormatAmount(moved, feemath.TokenDecimals),
		feemath.FormatAmount(s.System.TotalAssets(), feemath.TokenDecimals))
}

func (s *Scheduler) settleTask() {
	s.debugf("running settle task")
	err := s.System.Settle(s.Maintainer)
	switch {
	case err == nil:
		log.Printf("[INFO] rewards cycle settled, total assets %s",
			feemath.FormatAmount(s.System.TotalAssets(), feemath.TokenDecimals))
	case errors.Is(err, sharevault.ErrSmoothingDisabled), errors.Is(err, sharevault.ErrCycleNotEnded):
		s.debugf("settle skipped: %v", err)
	default:
		log.Printf("[ERROR] settle: %v", err)
	}
}

// relayTask has the bridge mint for every pending reveal, then stakes every
// minted deposit still waiting. A deposit the vault refuses is queued so its
// beneficiary can recall it.
func (s *Scheduler) relayTask() {
	if s.Relay == nil {
		return
	}
	for _, key := range s.Relay.PendingBridging() {
		minted, err := s.Relay.FinalizeBridging(key)
		if err != nil {
			log.Printf("[ERROR] relay %s: bridge finalize: %v", key, err)
			continue
		}
		log.Printf("[INFO] bridge minted %s tBTC for %s",
			feemath.FormatAmount(minted, feemath.TokenDecimals), key)
	}

	for _, key := range s.Relay.AwaitingStake() {
		shares, err := s.Relay.FinalizeStake(s.Ctx, s.Maintainer, key)
		if err == nil {
			log.Printf("[INFO] relayed deposit %s: %s shares",
				key, feemath.FormatAmount(shares, feemath.TokenDecimals))
			continue
		}
		log.Printf("[WARN] relay %s: stake: %v", key, err)
		if qerr := s.Relay.QueueStake(s.Ctx, s.Maintainer, key); qerr != nil {
			log.Printf("[ERROR] relay %s: queue: %v", key, qerr)
			continue
		}
		log.Printf("[INFO] relay %s: deposit queued for recall", key)
	}
}

func (s *Scheduler) debugf(format string, args ...any) {
	if s.Debug {
		log.Printf("[DEBUG] "+format, args...)
	}
}
