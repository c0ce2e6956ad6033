// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bitfsorg/btcvault-go/feemath"
)

// ---------------------------------------------------------------------------
// DefaultConfig tests
// ---------------------------------------------------------------------------

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"Network", cfg.Network, "devnet"},
		{"LogLevel", cfg.LogLevel, "info"},
		{"LogFile", cfg.LogFile, ""},
		{"ExitFeeBps", cfg.Vault.ExitFeeBps, uint64(25)},
		{"DepositorFeeDivisor", cfg.Intake.DepositorFeeDivisor, uint64(1000)},
		{"AllocateCron", cfg.Schedule.AllocateCron, "0 0 * * * *"},
		{"BoltPath", cfg.Database.BoltPath, "btcvault.db"},
		{"ArchiveDir", cfg.Database.ArchiveDir, "fundingtx"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Errorf("got %v, want %v", tc.got, tc.want)
			}
		})
	}

	if cfg.DataDir == "" {
		t.Error("DataDir should not be empty")
	}
}

func TestDefaultDataDir_EndsWith_DotBtcvault(t *testing.T) {
	dir := DefaultDataDir()
	if !strings.HasSuffix(dir, ".btcvault") {
		t.Errorf("DefaultDataDir() = %q, want suffix %q", dir, ".btcvault")
	}
}

func TestConfigPath(t *testing.T) {
	got := ConfigPath("/home/user/.btcvault")
	want := filepath.Join("/home/user/.btcvault", "config.yaml")
	if got != want {
		t.Errorf("ConfigPath = %q, want %q", got, want)
	}
}

// ---------------------------------------------------------------------------
// SaveConfig / LoadConfig round-trip tests
// ---------------------------------------------------------------------------

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	original := DefaultConfig()
	original.DataDir = "/tmp/test-btcvault"
	original.Network = "testnet"
	original.LogLevel = "debug"
	original.LogFile = "/tmp/btcvault.log"
	original.Vault.RewardsCycleLength = 7 * 24 * time.Hour
	original.Roles.Maintainers = []string{"0x00000000000000000000000000000000000000b1", "0x00000000000000000000000000000000000000b2"}

	if err := SaveConfig(path, original); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"DataDir", loaded.DataDir, original.DataDir},
		{"Network", loaded.Network, original.Network},
		{"LogLevel", loaded.LogLevel, original.LogLevel},
		{"LogFile", loaded.LogFile, original.LogFile},
		{"RewardsCycleLength", loaded.Vault.RewardsCycleLength, original.Vault.RewardsCycleLength},
		{"MaintainerCount", len(loaded.Roles.Maintainers), 2},
		{"TbtcVault", loaded.Intake.TbtcVault, original.Intake.TbtcVault},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Errorf("got %v, want %v", tc.got, tc.want)
			}
		})
	}
}

func TestSaveConfigCreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subdir", "config.yaml")

	if err := SaveConfig(path, DefaultConfig()); err != nil {
		t.Fatalf("SaveConfig should create parent dirs: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Config file not created: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestSaveConfig_OutputContainsHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := SaveConfig(path, DefaultConfig()); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	content := string(data)
	if !strings.HasPrefix(content, "# btcvault configuration") {
		t.Error("saved config should start with '# btcvault configuration'")
	}
	for _, key := range []string{"data_dir:", "vault:", "minimum_deposit_amount:", "allocate_cron:"} {
		if !strings.Contains(content, key) {
			t.Errorf("saved config should contain key %q", key)
		}
	}
}

// ---------------------------------------------------------------------------
// LoadConfig error and partial-file tests
// ---------------------------------------------------------------------------

func TestLoadConfigNotFound(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path/config.yaml")
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("LoadConfig nonexistent: got %v, want ErrConfigNotFound", err)
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("vault: [unterminated\n"), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := LoadConfig(path)
	if !errors.Is(err, ErrInvalidYAML) {
		t.Errorf("LoadConfig bad yaml: got %v, want ErrInvalidYAML", err)
	}
}

func TestLoadConfigPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `# partial file
network: testnet
vault:
  entry_fee_bps: 10
  rewards_cycle_length: 24h
futurekey: futurevalue
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Network != "testnet" {
		t.Errorf("Network = %q, want %q", cfg.Network, "testnet")
	}
	if cfg.Vault.EntryFeeBps != 10 {
		t.Errorf("EntryFeeBps = %d, want 10", cfg.Vault.EntryFeeBps)
	}
	if cfg.Vault.RewardsCycleLength != 24*time.Hour {
		t.Errorf("RewardsCycleLength = %v, want 24h", cfg.Vault.RewardsCycleLength)
	}
	// Unset fields retain defaults.
	if cfg.Vault.ExitFeeBps != 25 {
		t.Errorf("ExitFeeBps = %d, want default 25", cfg.Vault.ExitFeeBps)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want default %q", cfg.LogLevel, "info")
	}
}

// ---------------------------------------------------------------------------
// ApplyEnv tests
// ---------------------------------------------------------------------------

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("BTCVAULT_NETWORK", "regtest")
	t.Setenv("BTCVAULT_LOG_LEVEL", "warn")
	t.Setenv("BTCVAULT_VAULT_EXIT_FEE_BPS", "50")
	t.Setenv("BTCVAULT_VAULT_REWARDS_CYCLE_LENGTH", "1h")
	t.Setenv("BTCVAULT_ROLES_MAINTAINERS", "0x00000000000000000000000000000000000000c1,0x00000000000000000000000000000000000000c2")
	t.Setenv("BTCVAULT_DATABASE_SQLITE_PATH", "/var/lib/btcvault/events.db")

	cfg := DefaultConfig()
	if err := ApplyEnv(&cfg); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}

	if cfg.Network != "regtest" {
		t.Errorf("Network = %q, want regtest", cfg.Network)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
	}
	if cfg.Vault.ExitFeeBps != 50 {
		t.Errorf("ExitFeeBps = %d, want 50", cfg.Vault.ExitFeeBps)
	}
	if cfg.Vault.RewardsCycleLength != time.Hour {
		t.Errorf("RewardsCycleLength = %v, want 1h", cfg.Vault.RewardsCycleLength)
	}
	if len(cfg.Roles.Maintainers) != 2 {
		t.Errorf("Maintainers = %v, want 2 entries", cfg.Roles.Maintainers)
	}
	if cfg.Database.SQLitePath != "/var/lib/btcvault/events.db" {
		t.Errorf("SQLitePath = %q", cfg.Database.SQLitePath)
	}
	// Variables that are not set leave the value alone.
	if cfg.Intake.DepositorFeeDivisor != 1000 {
		t.Errorf("DepositorFeeDivisor = %d, want default 1000", cfg.Intake.DepositorFeeDivisor)
	}
}

func TestApplyEnvBadValue(t *testing.T) {
	t.Setenv("BTCVAULT_VAULT_ENTRY_FEE_BPS", "lots")

	cfg := DefaultConfig()
	if err := ApplyEnv(&cfg); err == nil {
		t.Error("ApplyEnv with non-numeric fee should fail")
	}
}

// ---------------------------------------------------------------------------
// Conversion helper tests
// ---------------------------------------------------------------------------

func TestVaultParameters(t *testing.T) {
	cfg := DefaultConfig()
	params, err := cfg.VaultParameters()
	if err != nil {
		t.Fatalf("VaultParameters: %v", err)
	}
	if got := params.MinimumDepositAmount.String(); got != "1000000000000000" {
		t.Errorf("MinimumDepositAmount = %s", got)
	}
	if got := params.MaximumTotalAssets.String(); got != "3000000000000000000000" {
		t.Errorf("MaximumTotalAssets = %s", got)
	}

	cfg.Vault.MaximumTotalAssets = "MAX"
	params, err = cfg.VaultParameters()
	if err != nil {
		t.Fatalf("VaultParameters: %v", err)
	}
	if !feemath.IsMax(params.MaximumTotalAssets) {
		t.Errorf("MaximumTotalAssets = %s, want unlimited", params.MaximumTotalAssets)
	}
}

func TestIntakeSettings(t *testing.T) {
	cfg := DefaultConfig()
	addr := common.HexToAddress("0x1234")

	s, err := cfg.IntakeSettings(addr)
	if err != nil {
		t.Fatalf("IntakeSettings: %v", err)
	}
	if s.Address != addr {
		t.Errorf("Address = %s", s.Address.Hex())
	}
	if s.TbtcVault != common.HexToAddress(cfg.Intake.TbtcVault) {
		t.Errorf("TbtcVault = %s", s.TbtcVault.Hex())
	}
	if s.DepositorFeeDivisor != 1000 {
		t.Errorf("DepositorFeeDivisor = %d", s.DepositorFeeDivisor)
	}
}

func TestResolvePath(t *testing.T) {
	cfg := Config{DataDir: "/data"}

	tests := []struct {
		in, want string
	}{
		{"btcvault.db", filepath.Join("/data", "btcvault.db")},
		{"/abs/events.db", "/abs/events.db"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := cfg.ResolvePath(tc.in); got != tc.want {
			t.Errorf("ResolvePath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

// ---------------------------------------------------------------------------
// ValidateConfig tests
// ---------------------------------------------------------------------------

func TestValidateConfigDefaults(t *testing.T) {
	if err := ValidateConfig(DefaultConfig()); err != nil {
		t.Errorf("ValidateConfig(DefaultConfig()) = %v, want nil", err)
	}
}

func TestValidateConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{
			name:    "empty_datadir",
			modify:  func(c *Config) { c.DataDir = "" },
			wantErr: ErrEmptyDataDir,
		},
		{
			name:    "bad_network",
			modify:  func(c *Config) { c.Network = "simnet" },
			wantErr: ErrInvalidNetwork,
		},
		{
			name:    "bad_loglevel",
			modify:  func(c *Config) { c.LogLevel = "verbose" },
			wantErr: ErrInvalidLogLevel,
		},
		{
			name:    "entry_fee_too_high",
			modify:  func(c *Config) { c.Vault.EntryFeeBps = 10001 },
			wantErr: ErrInvalidFeeBasisPoints,
		},
		{
			name:    "negative_cycle",
			modify:  func(c *Config) { c.Vault.RewardsCycleLength = -time.Second },
			wantErr: ErrNegativeCycleLength,
		},
		{
			name:    "bad_minimum",
			modify:  func(c *Config) { c.Vault.MinimumDepositAmount = "a lot" },
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "minimum_above_ceiling",
			modify:  func(c *Config) { c.Vault.MinimumDepositAmount = "5000" },
			wantErr: ErrInvalidDepositBounds,
		},
		{
			name:    "zero_tbtc_vault",
			modify:  func(c *Config) { c.Intake.TbtcVault = "0x0000000000000000000000000000000000000000" },
			wantErr: ErrInvalidAddress,
		},
		{
			name:    "bad_governance",
			modify:  func(c *Config) { c.Roles.Governance = "governance" },
			wantErr: ErrInvalidAddress,
		},
		{
			name:    "bad_maintainer",
			modify:  func(c *Config) { c.Roles.Maintainers = []string{"0x12"} },
			wantErr: ErrInvalidAddress,
		},
		{
			name:    "five_field_cron",
			modify:  func(c *Config) { c.Schedule.SettleCron = "0 0 * * *" },
			wantErr: ErrInvalidCron,
		},
		{
			name:    "bad_relay_cron",
			modify:  func(c *Config) { c.Devnet.RelayCron = "often" },
			wantErr: ErrInvalidCron,
		},
		{
			name:    "empty_bolt_path",
			modify:  func(c *Config) { c.Database.BoltPath = "" },
			wantErr: ErrEmptyDatabasePath,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.modify(&cfg)
			err := ValidateConfig(cfg)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("ValidateConfig: got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestValidateConfigValidNetworks(t *testing.T) {
	for _, network := range []string{"mainnet", "testnet", "regtest", "devnet"} {
		cfg := DefaultConfig()
		cfg.Network = network
		if err := ValidateConfig(cfg); err != nil {
			t.Errorf("ValidateConfig with network %q: %v", network, err)
		}
	}
}

func TestValidateConfig_LogLevelCaseInsensitive(t *testing.T) {
	for _, level := range []string{"INFO", "Debug", "WARN", "Error"} {
		t.Run(level, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.LogLevel = level
			if err := ValidateConfig(cfg); err != nil {
				t.Errorf("ValidateConfig with loglevel %q: %v", level, err)
			}
		})
	}
}

func TestValidateConfig_RelayDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Devnet.RelayCron = ""
	if err := ValidateConfig(cfg); err != nil {
		t.Errorf("ValidateConfig with relay disabled: %v", err)
	}
}

func TestValidateConfig_CronDescriptor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Schedule.SettleCron = "@daily"
	if err := ValidateConfig(cfg); err != nil {
		t.Errorf("ValidateConfig with @daily: %v", err)
	}
}
