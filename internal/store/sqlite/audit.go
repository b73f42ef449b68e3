// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"sync"

	"github.com/gridkeeper/gridkeeper/internal/store"
	gkerr "github.com/gridkeeper/gridkeeper/pkg/errors"
)

type auditStore struct {
	db *sql.DB
	mu *sync.Mutex
}

func (s *auditStore) Append(ctx context.Context, entry *store.AuditEntry) error {
	if entry == nil || entry.ID == "" {
		return gkerr.New(gkerr.CodeStoreInvalidInput, "audit entry requires an id")
	}

	details := "{}"
	if entry.Details != nil {
		b, err := json.Marshal(entry.Details)
		if err != nil {
			return gkerr.Errorf(gkerr.CodeStoreInvalidInput, "marshalling audit details: %w", err)
		}
		details = string(b)
	}

	const q = `INSERT INTO audit_log (id, timestamp, action, actor_id, chat_id, target_id, result, details)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, q,
		entry.ID, formatTime(entry.Timestamp), entry.Action, entry.ActorID,
		entry.ChatID, entry.TargetID, entry.Result, details,
	)
	if err != nil {
		return gkerr.Errorf(gkerr.CodeStoreDatabaseFailure, "appending audit entry %s: %w", entry.ID, err)
	}
	return nil
}

func (s *auditStore) Query(ctx context.Context, filter store.AuditFilter) ([]*store.AuditEntry, error) {
	var qb strings.Builder
	qb.WriteString(`SELECT id, timestamp, action, actor_id, chat_id, target_id, result, details FROM audit_log`)

	var conditions []string
	var args []any

	if filter.Action != "" {
		conditions = append(conditions, "action = ?")
		args = append(args, filter.Action)
	}
	if filter.ActorID != 0 {
		conditions = append(conditions, "actor_id = ?")
		args = append(args, filter.ActorID)
	}
	if filter.TargetID != 0 {
		conditions = append(conditions, "target_id = ?")
		args = append(args, filter.TargetID)
	}
	if !filter.From.IsZero() {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, formatTime(filter.From))
	}
	if !filter.To.IsZero() {
		conditions = append(conditions, "timestamp < ?")
		args = append(args, formatTime(filter.To))
	}

	if len(conditions) > 0 {
		qb.WriteString(" WHERE ")
		qb.WriteString(strings.Join(conditions, " AND "))
	}

	qb.WriteString(" ORDER BY timestamp ASC, rowid ASC")

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	qb.WriteString(" LIMIT ? OFFSET ?")
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, gkerr.Errorf(gkerr.CodeStoreDatabaseFailure, "querying audit log: %w", err)
	}
	defer rows.Close() //nolint:errcheck // error on read-path close is not actionable

	var entries []*store.AuditEntry
	for rows.Next() {
		var e store.AuditEntry
		var ts, detailsJSON string
		if err := rows.Scan(
			&e.ID, &ts, &e.Action, &e.ActorID, &e.ChatID,
			&e.TargetID, &e.Result, &detailsJSON,
		); err != nil {
			return nil, gkerr.Errorf(gkerr.CodeStoreDatabaseFailure, "scanning audit row: %w", err)
		}
		e.Timestamp, err = ParseTime(ts)
		if err != nil {
			return nil, gkerr.Errorf(gkerr.CodeStoreDatabaseFailure, "parsing audit entry %s timestamp: %w", e.ID, err)
		}
		if detailsJSON != "" && detailsJSON != "{}" {
			if err := json.Unmarshal([]byte(detailsJSON), &e.Details); err != nil {
				return nil, gkerr.Errorf(gkerr.CodeStoreDatabaseFailure, "unmarshalling audit details: %w", err)
			}
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, gkerr.Errorf(gkerr.CodeStoreDatabaseFailure, "iterating audit entries: %w", err)
	}
	return entries, nil
}
