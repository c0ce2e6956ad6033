package intake

import (
	"fmt"

	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/ethereum/go-ethereum/common"
)

// FundingOutput is the revealed output of a funding transaction.
type FundingOutput struct {
	TxHash        common.Hash
	OutputIndex   uint32
	AmountSat     uint64
	LockingScript []byte
}

// Key returns the funding key of the output.
func (o *FundingOutput) Key() FundingKey {
	return NewFundingKey(o.TxHash, o.OutputIndex)
}

// ParseFundingTx decodes a raw Bitcoin transaction and extracts the output
// at outputIndex.
func ParseFundingTx(rawTx []byte, outputIndex uint32) (*FundingOutput, error) {
	if len(rawTx) == 0 {
		return nil, fmt.Errorf("%w: empty raw transaction", ErrInvalidFundingTx)
	}
	tx, err := transaction.NewTransactionFromBytes(rawTx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFundingTx, err)
	}
	if int(outputIndex) >= len(tx.Outputs) {
		return nil, fmt.Errorf("%w: index %d, tx has %d outputs", ErrFundingOutputNotFound, outputIndex, len(tx.Outputs))
	}

	out := tx.Outputs[outputIndex]
	var script []byte
	if out.LockingScript != nil {
		script = append(script, *out.LockingScript...)
	}
	return &FundingOutput{
		TxHash:        common.Hash(*tx.TxID()),
		OutputIndex:   outputIndex,
		AmountSat:     out.Satoshis,
		LockingScript: script,
	}, nil
}
