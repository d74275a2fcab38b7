// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// Caller is the authenticated identity on whose behalf an engine operation
// runs. Every operation receives it explicitly; nothing is read from ambient
// session state.
type Caller struct {
	TenantID string `json:"tenant_id"`
	Subject  string `json:"subject"`
	// DeviceID is set for device agents submitting offline batches.
	DeviceID string `json:"device_id,omitempty"`
	// Service marks a separately authorized background-job identity.
	Service bool `json:"service,omitempty"`
}

// Actor renders the caller for custody event payloads.
func (c Caller) Actor() string {
	if c.Service {
		return "service:" + c.Subject
	}
	return c.Subject
}

// CallerClaims is the JWT claim set that carries a [Caller].
type CallerClaims struct {
	jwt.RegisteredClaims

	TenantID string `json:"tenant_id"`
	DeviceID string `json:"device_id,omitempty"`
	Service  bool   `json:"svc,omitempty"`
}

// Caller converts validated claims into a caller identity.
func (c *CallerClaims) Caller() Caller {
	return Caller{
		TenantID: c.TenantID,
		Subject:  c.Subject,
		DeviceID: c.DeviceID,
		Service:  c.Service,
	}
}

// Token wraps a signed caller token.
type Token struct {
	*jwt.Token `json:"-"`

	SignedString string `json:"-"`
	Caller       Caller `json:"-"`
}

// String returns the compact JWS serialization of the token.
func (t *Token) String() string {
	return t.SignedString
}
