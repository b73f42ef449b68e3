// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

package health

import "time"

// Metrics exposes the current health state of the messaging gateway for
// the status endpoint. All fields are point-in-time snapshots safe to
// serialize to JSON.
type Metrics struct {
	CallCount     int64      `json:"call_count"`
	FailureCount  int64      `json:"failure_count"`
	LastFailureAt *time.Time `json:"last_failure_at,omitempty"`
	LastReason    string     `json:"last_reason,omitempty"`
	CooldownUntil *time.Time `json:"cooldown_until,omitempty"`
	Available     bool       `json:"available"`
}
