package protocol

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// Accounts are the addresses of the system's own components.
type Accounts struct {
	Intake    common.Address
	Vault     common.Address
	Allocator common.Address
	Custodian common.Address
	// Asset identifies the bridged token to the custodian.
	Asset common.Address
}

// AccountAddress derives a stable address for a named system account: the
// last 20 bytes of Keccak-256("btcvault:" + name).
func AccountAddress(name string) common.Address {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte("btcvault:" + name))
	return common.BytesToAddress(h.Sum(nil)[12:])
}

// DefaultAccounts returns the derived system accounts.
func DefaultAccounts() Accounts {
	return Accounts{
		Intake:    AccountAddress("intake"),
		Vault:     AccountAddress("vault"),
		Allocator: AccountAddress("allocator"),
		Custodian: AccountAddress("custodian"),
		Asset:     AccountAddress("asset"),
	}
}

func (a Accounts) validate() error {
	seen := make(map[common.Address]string, 5)
	for name, addr := range map[string]common.Address{
		"intake":    a.Intake,
		"vault":     a.Vault,
		"allocator": a.Allocator,
		"custodian": a.Custodian,
		"asset":     a.Asset,
	} {
		if addr == (common.Address{}) {
			return fmt.Errorf("%w: %s account", ErrZeroAddress, name)
		}
		if other, ok := seen[addr]; ok {
			return fmt.Errorf("%w: %s and %s", ErrDuplicateAccount, name, other)
		}
		seen[addr] = name
	}
	return nil
}
