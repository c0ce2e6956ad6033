package intake

import (
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
)

// State is the lifecycle stage of a deposit.
type State uint8

const (
	StateUnknown State = iota
	StateInitialized
	StateFinalized
	StateQueued
	StateFinalizedFromQueue
	StateRecalledFromQueue
)

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "Unknown"
	case StateInitialized:
		return "Initialized"
	case StateFinalized:
		return "Finalized"
	case StateQueued:
		return "Queued"
	case StateFinalizedFromQueue:
		return "FinalizedFromQueue"
	case StateRecalledFromQueue:
		return "RecalledFromQueue"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// ParseState is the inverse of String.
func ParseState(name string) (State, error) {
	for s := StateUnknown; s <= StateRecalledFromQueue; s++ {
		if s.String() == name {
			return s, nil
		}
	}
	return StateUnknown, fmt.Errorf("%w: %q", ErrInvalidState, name)
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	parsed, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Terminal reports whether no further transition leaves s.
func (s State) Terminal() bool {
	switch s {
	case StateFinalized, StateFinalizedFromQueue, StateRecalledFromQueue:
		return true
	case StateUnknown, StateInitialized, StateQueued:
		return false
	default:
		return true
	}
}

// CanTransition reports whether the lifecycle allows moving from s to next.
func (s State) CanTransition(next State) bool {
	switch s {
	case StateUnknown:
		return next == StateInitialized
	case StateInitialized:
		return next == StateFinalized || next == StateQueued
	case StateQueued:
		return next == StateFinalizedFromQueue || next == StateRecalledFromQueue
	case StateFinalized, StateFinalizedFromQueue, StateRecalledFromQueue:
		return false
	default:
		return false
	}
}

// DepositRecord is the audit record of one funding key. Records are never deleted.
type DepositRecord struct {
	Key         FundingKey     `json:"key"`
	State       State          `json:"state"`
	Depositor   common.Address `json:"depositor"`
	Beneficiary common.Address `json:"beneficiary"`
	Referral    uint16         `json:"referral"`

	// Set once the bridge mint has been observed and the depositor fee taken.
	BridgingCompleted bool         `json:"bridging_completed"`
	BridgedAmount     sdkmath.Uint `json:"bridged_amount"`
	DepositorFee      sdkmath.Uint `json:"depositor_fee"`
	AmountToCredit    sdkmath.Uint `json:"amount_to_credit"`

	// Non-zero only while the deposit is parked in the queue.
	QueuedAmount sdkmath.Uint `json:"queued_amount"`

	RequestedAt time.Time `json:"requested_at"`
	FinalizedAt time.Time `json:"finalized_at,omitempty"`
}

func newRecord(key FundingKey, depositor common.Address, at time.Time) *DepositRecord {
	return &DepositRecord{
		Key:            key,
		State:          StateUnknown,
		Depositor:      depositor,
		BridgedAmount:  sdkmath.ZeroUint(),
		DepositorFee:   sdkmath.ZeroUint(),
		AmountToCredit: sdkmath.ZeroUint(),
		QueuedAmount:   sdkmath.ZeroUint(),
		RequestedAt:    at,
	}
}

// Clone returns a deep copy.
func (r *DepositRecord) Clone() *DepositRecord {
	c := *r
	return &c
}

func (r *DepositRecord) transition(next State) error {
	if !r.State.CanTransition(next) {
		return fmt.Errorf("intake: illegal transition %s -> %s for %s", r.State, next, r.Key.Hex())
	}
	r.State = next
	return nil
}
