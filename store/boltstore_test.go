package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/bitfsorg/btcvault-go/allocator"
	"github.com/bitfsorg/btcvault-go/intake"
	"github.com/bitfsorg/btcvault-go/txn"
)

func openTestStore(t *testing.T) *BoltStore {
	t.Helper()
	s, err := OpenBoltStore(filepath.Join(t.TempDir(), "nested", "btcvault.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testRecord(idx uint32, state intake.State) *intake.DepositRecord {
	return &intake.DepositRecord{
		Key:            intake.NewFundingKey(common.HexToHash("0xabc1"), idx),
		State:          state,
		Depositor:      common.HexToAddress("0x01"),
		Beneficiary:    common.HexToAddress("0x02"),
		Referral:       7,
		BridgedAmount:  sdkmath.NewUint(1000),
		DepositorFee:   sdkmath.NewUint(1),
		AmountToCredit: sdkmath.NewUint(999),
		QueuedAmount:   sdkmath.ZeroUint(),
		RequestedAt:    time.Unix(1_700_000_000, 0).UTC(),
	}
}

// ---------------------------------------------------------------------------
// DepositStore
// ---------------------------------------------------------------------------

func TestDepositStore_PutGet(t *testing.T) {
	deposits := openTestStore(t).Deposits()
	rec := testRecord(0, intake.StateInitialized)

	require.NoError(t, deposits.Put(rec))

	got, err := deposits.Get(rec.Key)
	require.NoError(t, err)
	assert.Equal(t, rec.Key, got.Key)
	assert.Equal(t, intake.StateInitialized, got.State)
	assert.Equal(t, rec.Beneficiary, got.Beneficiary)
	assert.Equal(t, uint16(7), got.Referral)
	assert.Equal(t, "999", got.AmountToCredit.String())
	assert.True(t, rec.RequestedAt.Equal(got.RequestedAt))
}

func TestDepositStore_GetMissing(t *testing.T) {
	deposits := openTestStore(t).Deposits()

	_, err := deposits.Get(intake.NewFundingKey(common.HexToHash("0xdead"), 1))
	require.ErrorIs(t, err, intake.ErrRecordNotFound)
	assert.True(t, IsNotFound(err))
}

func TestDepositStore_PutNil(t *testing.T) {
	deposits := openTestStore(t).Deposits()
	require.ErrorIs(t, deposits.Put(nil), ErrNilRecord)
}

func TestDepositStore_ListAndCount(t *testing.T) {
	deposits := openTestStore(t).Deposits()
	for i := uint32(0); i < 3; i++ {
		require.NoError(t, deposits.Put(testRecord(i, intake.StateQueued)))
	}

	recs, err := deposits.List()
	require.NoError(t, err)
	require.Len(t, recs, 3)
	for i := 1; i < len(recs); i++ {
		assert.Less(t, recs[i-1].Key.Hex(), recs[i].Key.Hex())
	}

	count, err := deposits.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestDepositStore_SnapshotRestore(t *testing.T) {
	deposits := openTestStore(t).Deposits()
	existing := testRecord(0, intake.StateInitialized)
	require.NoError(t, deposits.Put(existing))

	restore := deposits.Checkpoint()

	updated := testRecord(0, intake.StateFinalized)
	require.NoError(t, deposits.Put(updated))
	fresh := testRecord(1, intake.StateInitialized)
	require.NoError(t, deposits.Put(fresh))
	// A second write to the same key keeps the first prior value.
	require.NoError(t, deposits.Put(testRecord(0, intake.StateQueued)))

	require.NoError(t, restore())

	got, err := deposits.Get(existing.Key)
	require.NoError(t, err)
	assert.Equal(t, intake.StateInitialized, got.State)

	_, err = deposits.Get(fresh.Key)
	assert.ErrorIs(t, err, intake.ErrRecordNotFound)
}

func TestDepositStore_RestoreFailureReachesJournal(t *testing.T) {
	bolt := openTestStore(t)
	deposits := bolt.Deposits()
	j := txn.New(nil, nil)
	j.RegisterCheckpointer(deposits, bolt.Allocation())

	opErr := errors.New("custodian down")
	err := j.Atomic(func() error {
		require.NoError(t, deposits.Put(testRecord(0, intake.StateInitialized)))
		require.NoError(t, bolt.Close())
		return opErr
	})
	assert.ErrorIs(t, err, opErr)
	assert.ErrorIs(t, err, txn.ErrRollbackFailed)
	assert.ErrorIs(t, err, bbolt.ErrDatabaseNotOpen)
}

func TestDepositStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "btcvault.db")
	rec := testRecord(4, intake.StateFinalized)

	s, err := OpenBoltStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Deposits().Put(rec))
	require.NoError(t, s.Close())

	s, err = OpenBoltStore(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Deposits().Get(rec.Key)
	require.NoError(t, err)
	assert.Equal(t, intake.StateFinalized, got.State)
}

// ---------------------------------------------------------------------------
// AllocationStore
// ---------------------------------------------------------------------------

func TestAllocationStore_LoadEmpty(t *testing.T) {
	state, err := openTestStore(t).Allocation().Load()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), state.DepositID)
	assert.Equal(t, "0", state.TrackedBalance.String())
}

func TestAllocationStore_SaveLoad(t *testing.T) {
	alloc := openTestStore(t).Allocation()
	require.NoError(t, alloc.Save(allocator.State{DepositID: 3, TrackedBalance: sdkmath.NewUint(42)}))

	state, err := alloc.Load()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), state.DepositID)
	assert.Equal(t, "42", state.TrackedBalance.String())
}

func TestAllocationStore_SnapshotRestore(t *testing.T) {
	tests := []struct {
		name   string
		prior  *allocator.State
		wantID uint64
	}{
		{"restores saved value", &allocator.State{DepositID: 1, TrackedBalance: sdkmath.NewUint(5)}, 1},
		{"removes value saved after snapshot", nil, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			alloc := openTestStore(t).Allocation()
			if tc.prior != nil {
				require.NoError(t, alloc.Save(*tc.prior))
			}

			restore := alloc.Checkpoint()
			require.NoError(t, alloc.Save(allocator.State{DepositID: 9, TrackedBalance: sdkmath.NewUint(90)}))
			require.NoError(t, restore())

			state, err := alloc.Load()
			require.NoError(t, err)
			assert.Equal(t, tc.wantID, state.DepositID)
		})
	}
}

// ---------------------------------------------------------------------------
// Wiring with the allocator
// ---------------------------------------------------------------------------

func TestAllocationStore_ServesAllocator(t *testing.T) {
	var store allocator.StateStore = openTestStore(t).Allocation()
	require.NoError(t, store.Save(allocator.State{DepositID: 2, TrackedBalance: sdkmath.NewUint(10)}))

	state, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "10", state.TrackedBalance.String())
}
