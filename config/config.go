// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package config loads and validates the daemon configuration. Values come
// from a YAML file and may be overridden by BTCVAULT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"github.com/bitfsorg/btcvault-go/feemath"
	"github.com/bitfsorg/btcvault-go/intake"
	"github.com/bitfsorg/btcvault-go/sharevault"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BTCVAULT_"

// Unlimited disables the total-assets ceiling when used as maximum_total_assets.
const Unlimited = "max"

// Config holds the daemon configuration.
type Config struct {
	DataDir  string `yaml:"data_dir" env:"DATA_DIR"`
	Network  string `yaml:"network" env:"NETWORK"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFile  string `yaml:"log_file" env:"LOG_FILE"`

	Vault    VaultConfig    `yaml:"vault" envPrefix:"VAULT_"`
	Intake   IntakeConfig   `yaml:"intake" envPrefix:"INTAKE_"`
	Roles    RolesConfig    `yaml:"roles" envPrefix:"ROLES_"`
	Schedule ScheduleConfig `yaml:"schedule" envPrefix:"SCHEDULE_"`
	Database DatabaseConfig `yaml:"database" envPrefix:"DATABASE_"`
	Devnet   DevnetConfig   `yaml:"devnet" envPrefix:"DEVNET_"`
}

// VaultConfig holds the share vault parameters. Amounts are whole-token
// decimal strings.
type VaultConfig struct {
	MinimumDepositAmount string        `yaml:"minimum_deposit_amount" env:"MINIMUM_DEPOSIT_AMOUNT"`
	MaximumTotalAssets   string        `yaml:"maximum_total_assets" env:"MAXIMUM_TOTAL_ASSETS"`
	EntryFeeBps          uint64        `yaml:"entry_fee_bps" env:"ENTRY_FEE_BPS"`
	ExitFeeBps           uint64        `yaml:"exit_fee_bps" env:"EXIT_FEE_BPS"`
	RewardsCycleLength   time.Duration `yaml:"rewards_cycle_length" env:"REWARDS_CYCLE_LENGTH"`
}

// IntakeConfig holds the deposit intake parameters.
type IntakeConfig struct {
	DepositorFeeDivisor uint64 `yaml:"depositor_fee_divisor" env:"DEPOSITOR_FEE_DIVISOR"`
	TbtcVault           string `yaml:"tbtc_vault" env:"TBTC_VAULT"`
}

// RolesConfig names the privileged accounts as hex addresses.
type RolesConfig struct {
	Governance  string   `yaml:"governance" env:"GOVERNANCE"`
	Treasury    string   `yaml:"treasury" env:"TREASURY"`
	Maintainers []string `yaml:"maintainers" env:"MAINTAINERS" envSeparator:","`
}

// ScheduleConfig holds the maintainer bot cron expressions (with seconds).
type ScheduleConfig struct {
	AllocateCron string `yaml:"allocate_cron" env:"ALLOCATE_CRON"`
	SettleCron   string `yaml:"settle_cron" env:"SETTLE_CRON"`
}

// DatabaseConfig locates the bbolt state file, the SQLite event log and
// the funding transaction archive. Relative paths are resolved against
// DataDir. An empty ArchiveDir disables archiving.
type DatabaseConfig struct {
	BoltPath   string `yaml:"bolt_path" env:"BOLT_PATH"`
	SQLitePath string `yaml:"sqlite_path" env:"SQLITE_PATH"`
	ArchiveDir string `yaml:"archive_dir" env:"ARCHIVE_DIR"`
}

// DevnetConfig parameterizes the simulated bridge and custodian.
type DevnetConfig struct {
	TreasuryFeeDivisor          uint64 `yaml:"treasury_fee_divisor" env:"TREASURY_FEE_DIVISOR"`
	TxMaxFee                    uint64 `yaml:"tx_max_fee" env:"TX_MAX_FEE"`
	OptimisticMintingFeeDivisor uint64 `yaml:"optimistic_minting_fee_divisor" env:"OPTIMISTIC_MINTING_FEE_DIVISOR"`
	CustodianYieldBps           uint64 `yaml:"custodian_yield_bps" env:"CUSTODIAN_YIELD_BPS"`
	// RelayCron drives the simulated deposit relayer; empty disables it.
	RelayCron string `yaml:"relay_cron" env:"RELAY_CRON"`
}

// DefaultConfig returns a Config with sensible defaults for a devnet node.
func DefaultConfig() Config {
	return Config{
		DataDir:  DefaultDataDir(),
		Network:  "devnet",
		LogLevel: "info",
		Vault: VaultConfig{
			MinimumDepositAmount: "0.001",
			MaximumTotalAssets:   "3000",
			EntryFeeBps:          0,
			ExitFeeBps:           25,
		},
		Intake: IntakeConfig{
			DepositorFeeDivisor: 1000,
			TbtcVault:           "0x9C070027cdC9dc8F82416B2e5314E11DFb4FE3CD",
		},
		Roles: RolesConfig{
			Governance:  "0x00000000000000000000000000000000000000a1",
			Treasury:    "0x00000000000000000000000000000000000000a2",
			Maintainers: []string{"0x00000000000000000000000000000000000000a3"},
		},
		Schedule: ScheduleConfig{
			AllocateCron: "0 0 * * * *",
			SettleCron:   "0 0 0 * * *",
		},
		Database: DatabaseConfig{
			BoltPath:   "btcvault.db",
			SQLitePath: "events.db",
			ArchiveDir: "fundingtx",
		},
		Devnet: DevnetConfig{
			TreasuryFeeDivisor:          2000,
			TxMaxFee:                    1000,
			OptimisticMintingFeeDivisor: 1000,
			RelayCron:                   "*/30 * * * * *",
		},
	}
}

// DefaultDataDir returns the default data directory (~/.btcvault).
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".btcvault"
	}
	return filepath.Join(home, ".btcvault")
}

// ConfigPath returns the config file path inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config.yaml")
}

// LoadConfig reads a YAML config file on top of the defaults. Keys missing
// from the file keep their default values; unknown keys are ignored.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %w", ErrInvalidYAML, err)
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with any BTCVAULT_* environment variables that are set.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("config: parse env: %w", err)
	}
	return nil
}

// SaveConfig writes cfg as YAML, creating parent directories as needed.
func SaveConfig(path string, cfg Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	body, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	var b strings.Builder
	b.WriteString("# btcvault configuration\n")
	b.Write(body)

	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// ResolvePath returns p unchanged when absolute, otherwise joined to DataDir.
func (c Config) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.DataDir, p)
}

// VaultParameters converts the vault section into share vault parameters.
func (c Config) VaultParameters() (sharevault.Parameters, error) {
	minimum, err := feemath.ParseAmount(c.Vault.MinimumDepositAmount, feemath.TokenDecimals)
	if err != nil {
		return sharevault.Parameters{}, fmt.Errorf("%w: minimum_deposit_amount: %w", ErrInvalidAmount, err)
	}
	maximum, err := parseCeiling(c.Vault.MaximumTotalAssets)
	if err != nil {
		return sharevault.Parameters{}, err
	}
	return sharevault.Parameters{
		MinimumDepositAmount: minimum,
		MaximumTotalAssets:   maximum,
		EntryFeeBasisPoints:  c.Vault.EntryFeeBps,
		ExitFeeBasisPoints:   c.Vault.ExitFeeBps,
	}, nil
}

// IntakeSettings builds the intake settings for the intake account addr.
func (c Config) IntakeSettings(addr common.Address) (intake.Settings, error) {
	tbtcVault, err := parseAddress("intake.tbtc_vault", c.Intake.TbtcVault)
	if err != nil {
		return intake.Settings{}, err
	}
	treasury, err := parseAddress("roles.treasury", c.Roles.Treasury)
	if err != nil {
		return intake.Settings{}, err
	}
	return intake.Settings{
		Address:             addr,
		TbtcVault:           tbtcVault,
		Treasury:            treasury,
		DepositorFeeDivisor: c.Intake.DepositorFeeDivisor,
	}, nil
}

// BridgeParams returns the simulated bridge fee parameters.
func (c Config) BridgeParams() intake.BridgeParams {
	return intake.BridgeParams{
		TreasuryFeeDivisor:          c.Devnet.TreasuryFeeDivisor,
		TxMaxFee:                    c.Devnet.TxMaxFee,
		OptimisticMintingFeeDivisor: c.Devnet.OptimisticMintingFeeDivisor,
	}
}

// Governance returns the governance address.
func (c Config) Governance() (common.Address, error) {
	return parseAddress("roles.governance", c.Roles.Governance)
}

// Treasury returns the treasury address.
func (c Config) Treasury() (common.Address, error) {
	return parseAddress("roles.treasury", c.Roles.Treasury)
}

// Maintainers returns the maintainer addresses.
func (c Config) Maintainers() ([]common.Address, error) {
	out := make([]common.Address, 0, len(c.Roles.Maintainers))
	for i, s := range c.Roles.Maintainers {
		addr, err := parseAddress(fmt.Sprintf("roles.maintainers[%d]", i), s)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

func parseCeiling(s string) (sdkmath.Uint, error) {
	if strings.EqualFold(strings.TrimSpace(s), Unlimited) {
		return feemath.MaxUint256, nil
	}
	v, err := feemath.ParseAmount(s, feemath.TokenDecimals)
	if err != nil {
		return sdkmath.ZeroUint(), fmt.Errorf("%w: maximum_total_assets: %w", ErrInvalidAmount, err)
	}
	return v, nil
}

func parseAddress(field, s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %s %q", ErrInvalidAddress, field, s)
	}
	addr := common.HexToAddress(s)
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: %s is the zero address", ErrInvalidAddress, field)
	}
	return addr, nil
}
