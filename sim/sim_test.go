package sim

import (
	"context"
	"errors"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/btcvault-go/intake"
	"github.com/bitfsorg/btcvault-go/token"
)

var (
	intakeAddr = common.HexToAddress("0x1000")
	custAddr   = common.HexToAddress("0x2000")
	clientAddr = common.HexToAddress("0x3000")
	assetID    = common.HexToAddress("0x4000")

	testParams = intake.BridgeParams{
		TreasuryFeeDivisor:          2000,
		TxMaxFee:                    1000,
		OptimisticMintingFeeDivisor: 1000,
	}
)

func rawTx(sats ...uint64) []byte {
	tx := transaction.NewTransaction()
	for _, sat := range sats {
		s := script.Script([]byte{script.OpTRUE})
		tx.AddOutput(&transaction.TransactionOutput{LockingScript: &s, Satoshis: sat})
	}
	return tx.Bytes()
}

func revealKey(t *testing.T, raw []byte, idx uint32) intake.FundingKey {
	t.Helper()
	out, err := intake.ParseFundingTx(raw, idx)
	require.NoError(t, err)
	return out.Key()
}

// ---------------------------------------------------------------------------
// Bridge
// ---------------------------------------------------------------------------

func TestBridge_RevealAndFinalize(t *testing.T) {
	ctx := context.Background()
	asset := token.NewLedger("tBTC")
	b := NewBridge(asset, intakeAddr, testParams)

	raw := rawTx(1_000_000)
	extra := intake.EncodeExtraData(common.HexToAddress("0xbeef"), 3)
	require.NoError(t, b.RevealFunding(ctx, raw, intake.RevealInfo{}, extra))
	key := revealKey(t, raw, 0)

	done, err := b.IsFinalized(ctx, key)
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, []intake.FundingKey{key}, b.Pending())

	got, err := b.ExtraDataFor(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, extra, got)

	minted, err := b.Finalize(key)
	require.NoError(t, err)
	assert.Equal(t, "9975005000000000", minted.String())
	assert.Equal(t, "9975005000000000", asset.BalanceOf(intakeAddr).String())

	done, err = b.IsFinalized(ctx, key)
	require.NoError(t, err)
	assert.True(t, done)
	amount, err := b.BridgedAmountFor(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, minted.String(), amount.String())
	assert.Empty(t, b.Pending())

	_, err = b.Finalize(key)
	assert.ErrorIs(t, err, ErrAlreadyFinalized)
}

func TestBridge_Rejections(t *testing.T) {
	ctx := context.Background()
	b := NewBridge(token.NewLedger("tBTC"), intakeAddr, testParams)
	raw := rawTx(5000, 7000)

	tests := []struct {
		name    string
		run     func() error
		wantErr error
	}{
		{"bad output index", func() error {
			return b.RevealFunding(ctx, raw, intake.RevealInfo{FundingOutputIndex: 2}, [intake.ExtraDataSize]byte{})
		}, intake.ErrFundingOutputNotFound},
		{"garbage transaction", func() error {
			return b.RevealFunding(ctx, []byte{0x01}, intake.RevealInfo{}, [intake.ExtraDataSize]byte{})
		}, intake.ErrInvalidFundingTx},
		{"unknown key", func() error {
			_, err := b.BridgedAmountFor(ctx, intake.NewFundingKey(common.Hash{}, 0))
			return err
		}, ErrUnknownDeposit},
		{"finalize unknown key", func() error {
			return b.FinalizeAmount(intake.NewFundingKey(common.Hash{}, 0), sdkmath.OneUint())
		}, ErrUnknownDeposit},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, tc.run(), tc.wantErr)
		})
	}

	require.NoError(t, b.RevealFunding(ctx, raw, intake.RevealInfo{FundingOutputIndex: 1}, [intake.ExtraDataSize]byte{}))
	err := b.RevealFunding(ctx, raw, intake.RevealInfo{FundingOutputIndex: 1}, [intake.ExtraDataSize]byte{})
	assert.ErrorIs(t, err, ErrAlreadyRevealed)
	assert.Len(t, b.Reveals(), 1)
	assert.Equal(t, uint64(7000), b.Reveals()[0].AmountSat)
}

func TestBridge_SnapshotRestore(t *testing.T) {
	ctx := context.Background()
	b := NewBridge(token.NewLedger("tBTC"), intakeAddr, testParams)

	restore := b.Snapshot()
	require.NoError(t, b.RevealFunding(ctx, rawTx(1000), intake.RevealInfo{}, [intake.ExtraDataSize]byte{}))
	restore()

	assert.Empty(t, b.Reveals())
	// The same funding output can be revealed again after the rollback.
	require.NoError(t, b.RevealFunding(ctx, rawTx(1000), intake.RevealInfo{}, [intake.ExtraDataSize]byte{}))
}

// ---------------------------------------------------------------------------
// Custodian
// ---------------------------------------------------------------------------

func newCustodian(t *testing.T, funds uint64) (*Custodian, *token.Ledger) {
	t.Helper()
	asset := token.NewLedger("tBTC")
	require.NoError(t, asset.Mint(clientAddr, sdkmath.NewUint(funds)))
	require.NoError(t, asset.Approve(clientAddr, custAddr, sdkmath.NewUint(funds)))
	return NewCustodian(custAddr, clientAddr, assetID, asset), asset
}

func TestCustodian_Lifecycle(t *testing.T) {
	ctx := context.Background()
	c, asset := newCustodian(t, 1000)

	id, err := c.Deposit(ctx, assetID, sdkmath.NewUint(600))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
	assert.Equal(t, "400", asset.BalanceOf(clientAddr).String())
	assert.Equal(t, "600", c.Total().String())

	require.NoError(t, c.WithdrawPartial(ctx, assetID, id, sdkmath.NewUint(100)))
	bal, ok := c.Balance(id)
	require.True(t, ok)
	assert.Equal(t, "500", bal.String())

	id2, err := c.Deposit(ctx, assetID, sdkmath.NewUint(300))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), id2)
	require.Len(t, c.Positions(), 2)

	require.NoError(t, c.WithdrawFull(ctx, assetID, id))
	_, ok = c.Balance(id)
	assert.False(t, ok)
	assert.Equal(t, "700", asset.BalanceOf(clientAddr).String())
	assert.Equal(t, CallCounts{Deposits: 2, PartialWithdrawals: 1, FullWithdrawals: 1}, c.Calls())
}

func TestCustodian_Yield(t *testing.T) {
	ctx := context.Background()
	c, asset := newCustodian(t, 1000)
	c.SetYieldBps(100)

	id, err := c.Deposit(ctx, assetID, sdkmath.NewUint(1000))
	require.NoError(t, err)
	require.NoError(t, c.Accrue(id, sdkmath.NewUint(50)))
	require.NoError(t, c.WithdrawFull(ctx, assetID, id))

	// 1050 plus 1% minted at withdrawal, floored.
	assert.Equal(t, "1060", asset.BalanceOf(clientAddr).String())
	assert.Equal(t, "0", asset.BalanceOf(custAddr).String())
}

func TestCustodian_Rejections(t *testing.T) {
	ctx := context.Background()
	c, _ := newCustodian(t, 100)
	id, err := c.Deposit(ctx, assetID, sdkmath.NewUint(100))
	require.NoError(t, err)

	tests := []struct {
		name    string
		run     func() error
		wantErr error
	}{
		{"wrong asset", func() error {
			_, err := c.Deposit(ctx, common.HexToAddress("0x9999"), sdkmath.OneUint())
			return err
		}, ErrUnsupportedAsset},
		{"unknown position", func() error {
			return c.WithdrawFull(ctx, assetID, 42)
		}, ErrUnknownPosition},
		{"partial too large", func() error {
			return c.WithdrawPartial(ctx, assetID, id, sdkmath.NewUint(101))
		}, ErrPositionTooSmall},
		{"no allowance left", func() error {
			_, err := c.Deposit(ctx, assetID, sdkmath.OneUint())
			return err
		}, token.ErrInsufficientAllowance},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, tc.run(), tc.wantErr)
		})
	}
}

func TestCustodian_FailNextAndSnapshot(t *testing.T) {
	ctx := context.Background()
	c, _ := newCustodian(t, 100)
	boom := errors.New("custodian offline")

	restore := c.Snapshot()
	c.FailNext(boom)
	_, err := c.Deposit(ctx, assetID, sdkmath.NewUint(10))
	require.ErrorIs(t, err, boom)
	restore()

	id, err := c.Deposit(ctx, assetID, sdkmath.NewUint(10))
	require.NoError(t, err)

	restore = c.Snapshot()
	require.NoError(t, c.WithdrawFull(ctx, assetID, id))
	restore()

	bal, ok := c.Balance(id)
	require.True(t, ok)
	assert.Equal(t, "10", bal.String())
	assert.Equal(t, 0, c.Calls().FullWithdrawals)
}
