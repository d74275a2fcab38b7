// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package server

import "errors"

// errNoServersAreCreated is returned when neither the HTTP API nor the gRPC
// health endpoint has an address configured.
var errNoServersAreCreated = errors.New("no servers are created")
