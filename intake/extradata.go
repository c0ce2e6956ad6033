package intake

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
)

// ExtraDataSize is the width of the auxiliary word revealed to the bridge.
const ExtraDataSize = 32

const (
	beneficiaryOffset = 0
	referralOffset    = beneficiaryOffset + common.AddressLength // 20
	extraDataUsed     = referralOffset + 2                       // 22, rest is zero padding
)

// ExtraData is the decoded auxiliary word: beneficiary(20) | referral(2) | padding(10).
type ExtraData struct {
	Beneficiary common.Address
	Referral    uint16
}

// EncodeExtraData packs beneficiary and referral into the auxiliary word.
func EncodeExtraData(beneficiary common.Address, referral uint16) [ExtraDataSize]byte {
	var buf [ExtraDataSize]byte
	copy(buf[beneficiaryOffset:referralOffset], beneficiary[:])
	binary.BigEndian.PutUint16(buf[referralOffset:extraDataUsed], referral)
	return buf
}

// DecodeExtraData unpacks the auxiliary word. It reads only the beneficiary
// and referral fields; the trailing padding bytes are ignored, so a word with
// non-zero padding decodes the same as its zero-padded form.
func DecodeExtraData(buf [ExtraDataSize]byte) ExtraData {
	var d ExtraData
	copy(d.Beneficiary[:], buf[beneficiaryOffset:referralOffset])
	d.Referral = binary.BigEndian.Uint16(buf[referralOffset:extraDataUsed])
	return d
}
