package intake

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- FundingKey ---

func TestNewFundingKey(t *testing.T) {
	hash := common.HexToHash("0x" + "11223344556677889900aabbccddeeff11223344556677889900aabbccddeeff")

	a := NewFundingKey(hash, 0)
	assert.Equal(t, a, NewFundingKey(hash, 0))
	assert.NotEqual(t, a, NewFundingKey(hash, 1))
	assert.NotEqual(t, a, NewFundingKey(common.Hash{}, 0))
	assert.Len(t, a.Hex(), 66)

	data, err := json.Marshal(a)
	require.NoError(t, err)
	var back FundingKey
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, a, back)
}

// --- Funding transaction ---

func TestParseFundingTx(t *testing.T) {
	raw := rawFundingTx(1000, 2500)

	out, err := ParseFundingTx(raw, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(2500), out.AmountSat)
	assert.Equal(t, uint32(1), out.OutputIndex)
	assert.NotEqual(t, common.Hash{}, out.TxHash)
	assert.Equal(t, NewFundingKey(out.TxHash, 1), out.Key())

	first, err := ParseFundingTx(raw, 0)
	require.NoError(t, err)
	assert.Equal(t, out.TxHash, first.TxHash)
	assert.NotEqual(t, out.Key(), first.Key())

	_, err = ParseFundingTx(raw, 2)
	assert.ErrorIs(t, err, ErrFundingOutputNotFound)

	_, err = ParseFundingTx(nil, 0)
	assert.ErrorIs(t, err, ErrInvalidFundingTx)

	_, err = ParseFundingTx([]byte{0x01, 0x02, 0x03}, 0)
	assert.ErrorIs(t, err, ErrInvalidFundingTx)
}

// --- Extra data ---

func TestExtraData(t *testing.T) {
	who := common.HexToAddress("0xeb098d6cDE6A202981316b24B19e64D82721e89E")
	buf := EncodeExtraData(who, 0xbeef)

	assert.Equal(t, who.Bytes(), buf[:20])
	assert.Equal(t, []byte{0xbe, 0xef}, buf[20:22])
	assert.Equal(t, make([]byte, 10), buf[22:])

	d := DecodeExtraData(buf)
	assert.Equal(t, who, d.Beneficiary)
	assert.Equal(t, uint16(0xbeef), d.Referral)
}

func TestDecodeExtraData_IgnoresPadding(t *testing.T) {
	who := common.HexToAddress("0x00000000000000000000000000000000000000b2")
	buf := EncodeExtraData(who, 7)
	for i := 22; i < ExtraDataSize; i++ {
		buf[i] = byte(0xa0 + i)
	}
	d := DecodeExtraData(buf)
	assert.Equal(t, who, d.Beneficiary)
	assert.Equal(t, uint16(7), d.Referral)
	assert.Equal(t, DecodeExtraData(EncodeExtraData(who, 7)), d)
}

// --- State ---

func TestState_Transitions(t *testing.T) {
	all := []State{StateUnknown, StateInitialized, StateFinalized, StateQueued, StateFinalizedFromQueue, StateRecalledFromQueue}
	allowed := map[[2]State]bool{
		{StateUnknown, StateInitialized}:       true,
		{StateInitialized, StateFinalized}:     true,
		{StateInitialized, StateQueued}:        true,
		{StateQueued, StateFinalizedFromQueue}: true,
		{StateQueued, StateRecalledFromQueue}:  true,
	}
	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[[2]State{from, to}], from.CanTransition(to), "%s -> %s", from, to)
		}
	}
	for _, s := range all {
		if s.Terminal() {
			for _, to := range all {
				assert.False(t, s.CanTransition(to))
			}
		}
	}
	assert.False(t, StateUnknown.CanTransition(StateUnknown))
}

func TestState_Text(t *testing.T) {
	for s := StateUnknown; s <= StateRecalledFromQueue; s++ {
		parsed, err := ParseState(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}
	_, err := ParseState("Pending")
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, "State(99)", State(99).String())

	var rec DepositRecord
	require.NoError(t, json.Unmarshal([]byte(`{"state":"Queued","queued_amount":"5"}`), &rec))
	assert.Equal(t, StateQueued, rec.State)
	assert.Equal(t, "5", rec.QueuedAmount.String())
}

// --- Estimation ---

func TestEstimateBridgedAmount(t *testing.T) {
	p := BridgeParams{TreasuryFeeDivisor: 2000, TxMaxFee: 1000, OptimisticMintingFeeDivisor: 1000}

	treasuryFee := TreasuryFeeSat(1_000_000, p)
	assert.Equal(t, uint64(500), treasuryFee)

	got, err := EstimateBridgedAmount(1_000_000, treasuryFee, p)
	require.NoError(t, err)
	// (1_000_000 - 500) * 1e10 = 9_995_000_000_000_000
	assert.Equal(t, "5000000000000", got.TreasuryFee.String())
	assert.Equal(t, "9995000000000", got.OptimisticMintingFee.String())
	assert.Equal(t, "10000000000000", got.TxMaxFee.String())
	assert.Equal(t, "9975005000000000", got.BridgedAmount.String())

	noOM := p
	noOM.OptimisticMintingFeeDivisor = 0
	got, err = EstimateBridgedAmount(1_000_000, 0, noOM)
	require.NoError(t, err)
	assert.True(t, got.OptimisticMintingFee.IsZero())
	assert.Equal(t, "9990000000000000", got.BridgedAmount.String())

	_, err = EstimateBridgedAmount(900, 0, p)
	assert.ErrorIs(t, err, ErrFeesExceedDeposit)
	_, err = EstimateBridgedAmount(100, 101, p)
	assert.ErrorIs(t, err, ErrFeesExceedDeposit)

	assert.Equal(t, uint64(0), TreasuryFeeSat(1_000_000, BridgeParams{}))
}

func TestDepositorFee(t *testing.T) {
	assert.True(t, DepositorFee(n(1000), 0).IsZero())
	assert.Equal(t, "10", DepositorFee(n(1000), 100).String())
	assert.Equal(t, "0", DepositorFee(n(99), 100).String())
}
