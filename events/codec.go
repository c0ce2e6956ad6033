package events

import (
	"encoding/json"
	"fmt"
)

var registry = map[Kind]func() Event{
	KindDepositInitialized:             func() Event { return &DepositInitialized{} },
	KindBridgingCompleted:              func() Event { return &BridgingCompleted{} },
	KindDepositFinalized:               func() Event { return &DepositFinalized{} },
	KindStakeRequestQueued:             func() Event { return &StakeRequestQueued{} },
	KindStakeRequestFinalizedFromQueue: func() Event { return &StakeRequestFinalizedFromQueue{} },
	KindStakeRequestRecalled:           func() Event { return &StakeRequestRecalled{} },
	KindDepositorFeeDivisorUpdated:     func() Event { return &DepositorFeeDivisorUpdated{} },
	KindVaultDeposit:                   func() Event { return &VaultDeposit{} },
	KindVaultWithdraw:                  func() Event { return &VaultWithdraw{} },
	KindDispatcherUpdated:              func() Event { return &DispatcherUpdated{} },
	KindDepositParametersUpdated:       func() Event { return &DepositParametersUpdated{} },
	KindFeeBasisPointsUpdated:          func() Event { return &FeeBasisPointsUpdated{} },
	KindTreasuryUpdated:                func() Event { return &TreasuryUpdated{} },
	KindRewardsSettled:                 func() Event { return &RewardsSettled{} },
	KindDepositAllocated:               func() Event { return &DepositAllocated{} },
	KindDepositWithdrawn:               func() Event { return &DepositWithdrawn{} },
	KindDepositReleased:                func() Event { return &DepositReleased{} },
	KindMaintainerAdded:                func() Event { return &MaintainerAdded{} },
	KindMaintainerRemoved:              func() Event { return &MaintainerRemoved{} },
}

// EncodePayload serializes an event body as JSON.
func EncodePayload(e Event) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("events: encode %s: %w", e.Kind(), err)
	}
	return data, nil
}

// DecodePayload rebuilds a typed event from its kind and JSON body. The
// returned value is a pointer to the concrete event struct.
func DecodePayload(kind Kind, payload []byte) (Event, error) {
	factory, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	e := factory()
	if err := json.Unmarshal(payload, e); err != nil {
		return nil, fmt.Errorf("events: decode %s: %w", kind, err)
	}
	return e, nil
}
