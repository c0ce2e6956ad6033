package scheduler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/btcvault-go/intake"
	"github.com/bitfsorg/btcvault-go/sharevault"
)

var maintainer = common.HexToAddress("0xa3")

type fakeSystem struct {
	moved     sdkmath.Uint
	allocErr  error
	settleErr error
	callers   []common.Address
}

func (f *fakeSystem) Allocate(_ context.Context, caller common.Address) (sdkmath.Uint, error) {
	f.callers = append(f.callers, caller)
	if f.allocErr != nil {
		return sdkmath.ZeroUint(), f.allocErr
	}
	return f.moved, nil
}

func (f *fakeSystem) Settle(caller common.Address) error {
	f.callers = append(f.callers, caller)
	return f.settleErr
}

func (f *fakeSystem) TotalAssets() sdkmath.Uint {
	return sdkmath.NewUint(2_500_000_000_000_000_000)
}

// fakeRelay mints on FinalizeBridging and keeps minted keys awaiting a
// stake or queue.
type fakeRelay struct {
	pending  []intake.FundingKey
	awaiting []intake.FundingKey
	staked   []intake.FundingKey
	queued   []intake.FundingKey
	stakeErr error
	queueErr error
}

func (r *fakeRelay) PendingBridging() []intake.FundingKey { return r.pending }

func (r *fakeRelay) FinalizeBridging(key intake.FundingKey) (sdkmath.Uint, error) {
	r.awaiting = append(r.awaiting, key)
	return sdkmath.NewUint(1_000_000_000_000_000), nil
}

func (r *fakeRelay) AwaitingStake() []intake.FundingKey { return r.awaiting }

func (r *fakeRelay) FinalizeStake(_ context.Context, _ common.Address, key intake.FundingKey) (sdkmath.Uint, error) {
	if r.stakeErr != nil {
		return sdkmath.ZeroUint(), r.stakeErr
	}
	r.staked = append(r.staked, key)
	return sdkmath.NewUint(999_000_000_000_000), nil
}

func (r *fakeRelay) QueueStake(_ context.Context, _ common.Address, key intake.FundingKey) error {
	if r.queueErr != nil {
		return r.queueErr
	}
	r.queued = append(r.queued, key)
	return nil
}

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	flags := log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetFlags(flags)
	})
	return &buf
}

// ---------------------------------------------------------------------------
// Registration
// ---------------------------------------------------------------------------

func TestRegisterAll(t *testing.T) {
	s := NewScheduler(context.Background(), &fakeSystem{}, maintainer)

	require.NoError(t, s.RegisterAll("0 0 * * * *", "@daily"))
	assert.Len(t, s.Cron.Entries(), 2)

	require.NoError(t, s.RegisterRelay("*/30 * * * * *", &fakeRelay{}))
	assert.Len(t, s.Cron.Entries(), 3)
}

func TestRegisterAll_InvalidSpec(t *testing.T) {
	tests := []struct {
		name     string
		allocate string
		settle   string
		wantMsg  string
	}{
		{"bad allocate", "every hour", "@daily", "register allocate task"},
		{"bad settle", "0 0 * * * *", "0 0 * *", "register settle task"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := NewScheduler(context.Background(), &fakeSystem{}, maintainer)
			err := s.RegisterAll(tc.allocate, tc.settle)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantMsg)
		})
	}
}

func TestStartStop(t *testing.T) {
	buf := captureLog(t)
	s := NewScheduler(context.Background(), &fakeSystem{}, maintainer)
	require.NoError(t, s.RegisterAll("0 0 * * * *", "@daily"))

	s.Start()
	s.Stop()

	assert.Contains(t, buf.String(), "[INFO] scheduler started")
	assert.Contains(t, buf.String(), "[INFO] scheduler stopped")
}

// ---------------------------------------------------------------------------
// Allocate task
// ---------------------------------------------------------------------------

func TestAllocateTask(t *testing.T) {
	tests := []struct {
		name    string
		sys     *fakeSystem
		debug   bool
		wantLog string
	}{
		{
			name:    "moves idle assets",
			sys:     &fakeSystem{moved: sdkmath.NewUint(1_500_000_000_000_000_000)},
			wantLog: "[INFO] allocated 1.5 tBTC, total assets 2.5",
		},
		{
			name:    "nothing idle",
			sys:     &fakeSystem{moved: sdkmath.ZeroUint()},
			debug:   true,
			wantLog: "[DEBUG] allocate: vault has no idle assets",
		},
		{
			name:    "failure is logged",
			sys:     &fakeSystem{allocErr: errors.New("custodian paused")},
			wantLog: "[ERROR] allocate: custodian paused",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			buf := captureLog(t)
			s := NewScheduler(context.Background(), tc.sys, maintainer)
			s.Debug = tc.debug

			s.RunAllocateNow()

			assert.Contains(t, buf.String(), tc.wantLog)
			assert.Equal(t, []common.Address{maintainer}, tc.sys.callers)
		})
	}
}

func TestAllocateTask_DebugSilencedByDefault(t *testing.T) {
	buf := captureLog(t)
	s := NewScheduler(context.Background(), &fakeSystem{moved: sdkmath.ZeroUint()}, maintainer)

	s.RunAllocateNow()

	assert.Empty(t, buf.String())
}

// ---------------------------------------------------------------------------
// Settle task
// ---------------------------------------------------------------------------

func TestSettleTask(t *testing.T) {
	tests := []struct {
		name      string
		settleErr error
		wantLog   string
	}{
		{"settled", nil, "[INFO] rewards cycle settled, total assets 2.5"},
		{"smoothing disabled", sharevault.ErrSmoothingDisabled, "[DEBUG] settle skipped"},
		{"cycle running", fmt.Errorf("%w: ends soon", sharevault.ErrCycleNotEnded), "[DEBUG] settle skipped"},
		{"other failure", errors.New("boom"), "[ERROR] settle: boom"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			buf := captureLog(t)
			s := NewScheduler(context.Background(), &fakeSystem{settleErr: tc.settleErr}, maintainer)
			s.Debug = true

			s.RunSettleNow()

			assert.Contains(t, buf.String(), tc.wantLog)
		})
	}
}

// ---------------------------------------------------------------------------
// Relay task
// ---------------------------------------------------------------------------

func TestRelayTask(t *testing.T) {
	buf := captureLog(t)
	k1 := intake.NewFundingKey(common.HexToHash("0x01"), 0)
	k2 := intake.NewFundingKey(common.HexToHash("0x02"), 1)
	relay := &fakeRelay{pending: []intake.FundingKey{k1, k2}}

	s := NewScheduler(context.Background(), &fakeSystem{}, maintainer)
	require.NoError(t, s.RegisterRelay("@every 1m", relay))
	s.RunRelayNow()

	assert.Equal(t, []intake.FundingKey{k1, k2}, relay.staked)
	assert.Empty(t, relay.queued)
	assert.Contains(t, buf.String(), "bridge minted 0.001 tBTC")
	assert.Contains(t, buf.String(), "0.000999 shares")
}

func TestRelayTask_RetriesMintedDeposits(t *testing.T) {
	captureLog(t)
	k := intake.NewFundingKey(common.HexToHash("0x03"), 0)
	// Minted on an earlier run but never staked.
	relay := &fakeRelay{awaiting: []intake.FundingKey{k}}

	s := NewScheduler(context.Background(), &fakeSystem{}, maintainer)
	s.Relay = relay
	s.RunRelayNow()

	assert.Equal(t, []intake.FundingKey{k}, relay.staked)
}

func TestRelayTask_StakeFailureQueues(t *testing.T) {
	tests := []struct {
		name       string
		queueErr   error
		wantQueued int
		wantLog    string
	}{
		{"queued for recall", nil, 1, "deposit queued for recall"},
		{"queue fails too", errors.New("record locked"), 0, "[ERROR] relay"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			buf := captureLog(t)
			relay := &fakeRelay{
				pending:  []intake.FundingKey{intake.NewFundingKey(common.HexToHash("0x01"), 0)},
				stakeErr: errors.New("below minimum deposit"),
				queueErr: tc.queueErr,
			}

			s := NewScheduler(context.Background(), &fakeSystem{}, maintainer)
			s.Relay = relay
			s.RunRelayNow()

			assert.Empty(t, relay.staked)
			assert.Len(t, relay.queued, tc.wantQueued)
			assert.Contains(t, buf.String(), "[WARN] relay")
			assert.Contains(t, buf.String(), "below minimum deposit")
			assert.Contains(t, buf.String(), tc.wantLog)
		})
	}
}

func TestRelayTask_NoRelayer(t *testing.T) {
	buf := captureLog(t)
	s := NewScheduler(context.Background(), &fakeSystem{}, maintainer)

	s.RunRelayNow()

	assert.Empty(t, buf.String())
}
