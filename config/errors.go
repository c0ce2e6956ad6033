// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import "errors"

var (
	// ErrInvalidNetwork indicates the network name is not recognized.
	ErrInvalidNetwork = errors.New("config: invalid network (must be \"mainnet\", \"testnet\", \"regtest\", or \"devnet\")")

	// ErrInvalidLogLevel indicates the log level is not recognized.
	ErrInvalidLogLevel = errors.New("config: invalid log level (must be \"debug\", \"info\", \"warn\", or \"error\")")

	// ErrEmptyDataDir indicates the data directory path is empty.
	ErrEmptyDataDir = errors.New("config: data directory must not be empty")

	// ErrConfigNotFound indicates the configuration file does not exist.
	ErrConfigNotFound = errors.New("config: configuration file not found")

	// ErrInvalidYAML indicates the configuration file is not valid YAML.
	ErrInvalidYAML = errors.New("config: invalid YAML")

	// ErrInvalidAmount indicates a token amount cannot be parsed.
	ErrInvalidAmount = errors.New("config: invalid amount")

	// ErrInvalidFeeBasisPoints indicates a fee above 10000 basis points.
	ErrInvalidFeeBasisPoints = errors.New("config: fee basis points must not exceed 10000")

	// ErrInvalidDepositBounds indicates the minimum deposit exceeds the ceiling.
	ErrInvalidDepositBounds = errors.New("config: minimum deposit exceeds maximum total assets")

	// ErrNegativeCycleLength indicates a negative rewards cycle length.
	ErrNegativeCycleLength = errors.New("config: rewards cycle length must not be negative")

	// ErrInvalidAddress indicates a malformed or zero hex address.
	ErrInvalidAddress = errors.New("config: invalid address")

	// ErrInvalidCron indicates a malformed cron expression.
	ErrInvalidCron = errors.New("config: invalid cron expression")

	// ErrEmptyDatabasePath indicates a database path is empty.
	ErrEmptyDatabasePath = errors.New("config: database path must not be empty")
)
