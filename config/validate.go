// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/bitfsorg/btcvault-go/feemath"
)

// validLogLevels lists the accepted log level strings.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validNetworks lists the accepted network names.
var validNetworks = map[string]bool{
	"mainnet": true,
	"testnet": true,
	"regtest": true,
	"devnet":  true,
}

// cronParser accepts the 6-field format the scheduler runs with.
var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateConfig checks that all configuration values are within acceptable
// ranges and returns the first error encountered, or nil if valid.
func ValidateConfig(cfg Config) error {
	if cfg.DataDir == "" {
		return ErrEmptyDataDir
	}

	if !validNetworks[cfg.Network] {
		return ErrInvalidNetwork
	}

	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return ErrInvalidLogLevel
	}

	if err := validateVault(cfg); err != nil {
		return err
	}

	if _, err := parseAddress("intake.tbtc_vault", cfg.Intake.TbtcVault); err != nil {
		return err
	}
	if _, err := cfg.Governance(); err != nil {
		return err
	}
	if _, err := cfg.Treasury(); err != nil {
		return err
	}
	if _, err := cfg.Maintainers(); err != nil {
		return err
	}

	for name, spec := range map[string]string{
		"schedule.allocate_cron": cfg.Schedule.AllocateCron,
		"schedule.settle_cron":   cfg.Schedule.SettleCron,
		"devnet.relay_cron":      cfg.Devnet.RelayCron,
	} {
		if spec == "" && name == "devnet.relay_cron" {
			continue
		}
		if _, err := cronParser.Parse(spec); err != nil {
			return fmt.Errorf("%w: %s %q: %w", ErrInvalidCron, name, spec, err)
		}
	}

	if cfg.Database.BoltPath == "" || cfg.Database.SQLitePath == "" {
		return ErrEmptyDatabasePath
	}

	return nil
}

func validateVault(cfg Config) error {
	if cfg.Vault.EntryFeeBps > feemath.BasisPointScale || cfg.Vault.ExitFeeBps > feemath.BasisPointScale {
		return fmt.Errorf("%w: entry %d, exit %d", ErrInvalidFeeBasisPoints, cfg.Vault.EntryFeeBps, cfg.Vault.ExitFeeBps)
	}
	if cfg.Vault.RewardsCycleLength < 0 {
		return ErrNegativeCycleLength
	}
	params, err := cfg.VaultParameters()
	if err != nil {
		return err
	}
	if params.MinimumDepositAmount.GT(params.MaximumTotalAssets) {
		return fmt.Errorf("%w: %s > %s", ErrInvalidDepositBounds, cfg.Vault.MinimumDepositAmount, cfg.Vault.MaximumTotalAssets)
	}
	return nil
}
