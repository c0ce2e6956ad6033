package main

import (
	"errors"
	"fmt"

	"github.com/bitfsorg/btcvault-go/config"
	"github.com/bitfsorg/btcvault-go/protocol"
)

// settingsFromConfig maps the validated config onto protocol settings.
func settingsFromConfig(cfg config.Config) (protocol.Settings, error) {
	accounts := protocol.DefaultAccounts()

	governance, err := cfg.Governance()
	if err != nil {
		return protocol.Settings{}, err
	}
	maintainers, err := cfg.Maintainers()
	if err != nil {
		return protocol.Settings{}, err
	}
	in, err := cfg.IntakeSettings(accounts.Intake)
	if err != nil {
		return protocol.Settings{}, err
	}
	params, err := cfg.VaultParameters()
	if err != nil {
		return protocol.Settings{}, err
	}

	return protocol.Settings{
		Accounts:            accounts,
		Governance:          governance,
		Treasury:            in.Treasury,
		TbtcVault:           in.TbtcVault,
		Maintainers:         maintainers,
		DepositorFeeDivisor: in.DepositorFeeDivisor,
		Vault:               params,
		RewardsCycleLength:  cfg.Vault.RewardsCycleLength,
	}, nil
}

// buildError explains a failed system build. Devnet balances live in memory,
// so stores left by an earlier run must be deleted before the next start.
func buildError(cfg config.Config, err error) string {
	if errors.Is(err, protocol.ErrStaleDevnetState) {
		return fmt.Sprintf("build system: %v; devnet balances are not persisted, delete %s and %s to start a fresh devnet",
			err, cfg.ResolvePath(cfg.Database.BoltPath), cfg.ResolvePath(cfg.Database.SQLitePath))
	}
	return fmt.Sprintf("build system: %v", err)
}
