package intake

import (
	"context"

	sdkmath "cosmossdk.io/math"
)

// MockBridge is a test double for Bridge.
// All function fields must be set before the corresponding method is called.
type MockBridge struct {
	RevealFundingFn    func(ctx context.Context, fundingTx []byte, reveal RevealInfo, extraData [ExtraDataSize]byte) error
	IsFinalizedFn      func(ctx context.Context, key FundingKey) (bool, error)
	BridgedAmountForFn func(ctx context.Context, key FundingKey) (sdkmath.Uint, error)
	ExtraDataForFn     func(ctx context.Context, key FundingKey) ([ExtraDataSize]byte, error)
}

var _ Bridge = (*MockBridge)(nil)

func (m *MockBridge) RevealFunding(ctx context.Context, fundingTx []byte, reveal RevealInfo, extraData [ExtraDataSize]byte) error {
	return m.RevealFundingFn(ctx, fundingTx, reveal, extraData)
}
func (m *MockBridge) IsFinalized(ctx context.Context, key FundingKey) (bool, error) {
	return m.IsFinalizedFn(ctx, key)
}
func (m *MockBridge) BridgedAmountFor(ctx context.Context, key FundingKey) (sdkmath.Uint, error) {
	return m.BridgedAmountForFn(ctx, key)
}
func (m *MockBridge) ExtraDataFor(ctx context.Context, key FundingKey) ([ExtraDataSize]byte, error) {
	return m.ExtraDataForFn(ctx, key)
}
