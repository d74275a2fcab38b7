// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"strings"
)

// validate checks invariants shared by the server and the device agent.
func (cfg *StructuredConfig) validate() error {
	if cfg.Storage.DB.MaxOpenConns < 0 {
		return ErrInvalidStorageConfigs
	}
	if cfg.Server.MaxBodyBytes < 0 {
		return ErrInvalidServerConfigs
	}
	if cfg.Adapter.FetchMaxBytes < 0 {
		return ErrInvalidAdapterConfigs
	}
	for _, h := range cfg.Adapter.StaticHolds {
		if tenant, subject, ok := strings.Cut(h, ":"); !ok || tenant == "" || subject == "" {
			return ErrInvalidAdapterConfigs
		}
	}
	if cfg.Workers.IngestConcurrency < 0 {
		return ErrInvalidWorkerConfigs
	}

	return nil
}

// ValidateServer checks the settings only the ledger server needs.
func (cfg *StructuredConfig) ValidateServer() error {
	if cfg.App.TokenSignKey == "" || cfg.App.TokenIssuer == "" {
		return ErrInvalidAppConfigs
	}
	if cfg.Server.HTTPAddress == "" {
		return ErrInvalidServerConfigs
	}

	return nil
}

func (cfg *ClientConfig) validate() error {
	if cfg.Storage.DB.DSN == "" || strings.Contains(cfg.Storage.DB.DSN, "memory") {
		return ErrInvalidStorageConfigs
	}

	if cfg.Adapter.HTTPAddress == "" || cfg.Adapter.RequestTimeout == 0 {
		return ErrInvalidAdapterConfigs
	}

	if cfg.Adapter.DeviceID == "" {
		return ErrInvalidAdapterConfigs
	}

	if cfg.Workers.SyncInterval == 0 {
		return ErrInvalidWorkerConfigs
	}

	return nil
}
