package intake

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// FundingKey identifies one bridging-backed deposit. It is the Keccak-256
// hash of the funding transaction hash followed by the big-endian output index.
type FundingKey common.Hash

// NewFundingKey derives the key of output outputIndex of the funding
// transaction with hash txHash.
func NewFundingKey(txHash common.Hash, outputIndex uint32) FundingKey {
	var idx [4]byte
	binary.BigEndian.PutUint32(idx[:], outputIndex)

	h := sha3.NewLegacyKeccak256()
	h.Write(txHash[:])
	h.Write(idx[:])

	var key FundingKey
	h.Sum(key[:0])
	return key
}

// Hash returns the key as a common.Hash.
func (k FundingKey) Hash() common.Hash { return common.Hash(k) }

// Hex returns the 0x-prefixed hex form.
func (k FundingKey) Hex() string { return common.Hash(k).Hex() }

func (k FundingKey) String() string { return k.Hex() }

// MarshalText implements encoding.TextMarshaler.
func (k FundingKey) MarshalText() ([]byte, error) {
	return common.Hash(k).MarshalText()
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *FundingKey) UnmarshalText(input []byte) error {
	return (*common.Hash)(k).UnmarshalText(input)
}
