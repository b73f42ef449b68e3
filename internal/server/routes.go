// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gridkeeper/gridkeeper/internal/store"
)

// RegisterServices sets the route dependencies and registers the API.
func (s *Server) RegisterServices(svc *Services) {
	s.services = svc
	s.registerRoutes()
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "bot-status",
		Method:      http.MethodGet,
		Path:        "/api/v1/status",
		Summary:     "Bot status",
		Tags:        []string{"system"},
	}, s.handleStatus)

	if s.services.audit != nil {
		huma.Register(s.api, huma.Operation{
			OperationID: "list-audit",
			Method:      http.MethodGet,
			Path:        "/api/v1/audit",
			Summary:     "List moderation audit entries",
			Tags:        []string{"audit"},
		}, s.handleListAudit)
	}
}

type statusOutput struct {
	Body Status
}

func (s *Server) handleStatus(ctx context.Context, _ *struct{}) (*statusOutput, error) {
	st, err := s.services.status.Status(ctx)
	if err != nil {
		slog.Error("reading status failed", "error", err)
		return nil, huma.Error500InternalServerError("failed to read status")
	}
	return &statusOutput{Body: st}, nil
}

// AuditEntry is the wire form of one audit record.
type AuditEntry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Action    string         `json:"action"`
	ActorID   int64          `json:"actor_id"`
	ChatID    int64          `json:"chat_id,omitempty"`
	TargetID  int64          `json:"target_id,omitempty"`
	Result    string         `json:"result"`
	Details   map[string]any `json:"details,omitempty"`
}

type listAuditInput struct {
	Action   string `query:"action" doc:"Filter by action, e.g. ban, kick_all or chat.add"`
	TargetID int64  `query:"target" doc:"Filter by target user id"`
	Limit    int    `query:"limit" default:"50" minimum:"1" maximum:"1000"`
	Offset   int    `query:"offset" minimum:"0"`
}

type listAuditOutput struct {
	Body struct {
		Entries []AuditEntry `json:"entries"`
	}
}

func (s *Server) handleListAudit(ctx context.Context, input *listAuditInput) (*listAuditOutput, error) {
	entries, err := s.services.audit.Query(ctx, store.AuditFilter{
		Action:   input.Action,
		TargetID: input.TargetID,
		Limit:    input.Limit,
		Offset:   input.Offset,
	})
	if err != nil {
		slog.Error("querying audit log failed", "error", err)
		return nil, huma.Error500InternalServerError("failed to query audit log")
	}

	out := &listAuditOutput{}
	out.Body.Entries = make([]AuditEntry, 0, len(entries))
	for _, e := range entries {
		out.Body.Entries = append(out.Body.Entries, AuditEntry{
			ID:        e.ID,
			Timestamp: e.Timestamp,
			Action:    e.Action,
			ActorID:   e.ActorID,
			ChatID:    e.ChatID,
			TargetID:  e.TargetID,
			Result:    e.Result,
			Details:   e.Details,
		})
	}
	return out, nil
}
