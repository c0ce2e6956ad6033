package allocator

import (
	"context"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
)

// Custodian is the external yield venue. Deposit pulls amount of asset from
// the caller through an allowance and opens a position; withdrawals send the
// asset back to the caller.
type Custodian interface {
	Address() common.Address
	Deposit(ctx context.Context, asset common.Address, amount sdkmath.Uint) (uint64, error)
	WithdrawPartial(ctx context.Context, asset common.Address, depositID uint64, amount sdkmath.Uint) error
	WithdrawFull(ctx context.Context, asset common.Address, depositID uint64) error
}

// MockCustodian is a test double for Custodian.
// All function fields must be set before the corresponding method is called.
type MockCustodian struct {
	Addr              common.Address
	DepositFn         func(ctx context.Context, asset common.Address, amount sdkmath.Uint) (uint64, error)
	WithdrawPartialFn func(ctx context.Context, asset common.Address, depositID uint64, amount sdkmath.Uint) error
	WithdrawFullFn    func(ctx context.Context, asset common.Address, depositID uint64) error
}

var _ Custodian = (*MockCustodian)(nil)

func (m *MockCustodian) Address() common.Address { return m.Addr }
func (m *MockCustodian) Deposit(ctx context.Context, asset common.Address, amount sdkmath.Uint) (uint64, error) {
	return m.DepositFn(ctx, asset, amount)
}
func (m *MockCustodian) WithdrawPartial(ctx context.Context, asset common.Address, depositID uint64, amount sdkmath.Uint) error {
	return m.WithdrawPartialFn(ctx, asset, depositID, amount)
}
func (m *MockCustodian) WithdrawFull(ctx context.Context, asset common.Address, depositID uint64) error {
	return m.WithdrawFullFn(ctx, asset, depositID)
}
