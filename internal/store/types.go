// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

package store

import "time"

// AuditEntry records one privileged mutation or fan-out.
type AuditEntry struct {
	ID        string
	Timestamp time.Time
	Action    string
	ActorID   int64
	ChatID    int64
	TargetID  int64
	Result    string
	Details   map[string]any
}

// AuditFilter specifies criteria for querying audit entries. Zero values
// match everything.
type AuditFilter struct {
	Action   string
	ActorID  int64
	TargetID int64
	From     time.Time
	To       time.Time
	Limit    int
	Offset   int
}
