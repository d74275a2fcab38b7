// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package validators checks offline items and evidence requests before the
// services act on them. Validation never touches storage; a rejected input
// leaves no custody event behind.
package validators

import "context"

// Validator checks a value. When fields are given only those fields are
// checked, so callers can validate the part of a request an operation uses.
type Validator interface {
	Validate(ctx context.Context, value any, fields ...string) error
}
