// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package handler

import "errors"

// errNoHandlersAreCreated means the server config enables no transport: the
// ledger would start without any way to reach it.
var errNoHandlersAreCreated = errors.New("no handlers are created")
