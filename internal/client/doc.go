// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package client implements the device agent's command runtime.
//
// Commands capture evidence into the local outbox, flush it to the ledger,
// and verify exported artifacts offline. The daemon command runs the outbox
// sync worker until the process is interrupted.
package client
