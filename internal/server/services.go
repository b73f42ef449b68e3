// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

package server

import (
	"context"

	"github.com/gridkeeper/gridkeeper/internal/store"
	gkerr "github.com/gridkeeper/gridkeeper/pkg/errors"
	"github.com/gridkeeper/gridkeeper/pkg/health"
)

// Status is the runtime snapshot served by /api/v1/status.
type Status struct {
	Status  string         `json:"status" example:"ok" doc:"ok, or degraded when the gateway is cooling down"`
	Chats   int            `json:"chats" doc:"Number of grid chats"`
	Bans    int            `json:"bans" doc:"Number of globally banned users"`
	Gateway health.Metrics `json:"gateway"`
	Events  EventStats     `json:"events"`
}

// EventStats counts events the pipeline has seen.
type EventStats struct {
	Received int64 `json:"received"`
	Failed   int64 `json:"failed"`
}

// StatusSource produces the status snapshot.
type StatusSource interface {
	Status(ctx context.Context) (Status, error)
}

// AuditSource exposes the moderation audit trail.
type AuditSource interface {
	Query(ctx context.Context, filter store.AuditFilter) ([]*store.AuditEntry, error)
}

// Services holds dependencies injected into route handlers.
type Services struct {
	status StatusSource
	audit  AuditSource // optional
}

// NewServices validates and bundles route dependencies.
func NewServices(status StatusSource, audit AuditSource) (*Services, error) {
	if status == nil {
		return nil, gkerr.New(gkerr.CodeServerConfigInvalid, "status source is required")
	}
	return &Services{status: status, audit: audit}, nil
}

// MetricsReporter supplies gateway health.
type MetricsReporter interface {
	Metrics() health.Metrics
}

// EventCounter supplies pipeline counters.
type EventCounter interface {
	EventStats() EventStats
}

type storeStatus struct {
	store   store.ModerationStore
	gateway MetricsReporter
	events  EventCounter
}

// NewStatusSource builds a StatusSource reading counters from the store,
// gateway health and, when non-nil, the event pipeline.
func NewStatusSource(st store.ModerationStore, gw MetricsReporter, events EventCounter) StatusSource {
	return &storeStatus{store: st, gateway: gw, events: events}
}

func (s *storeStatus) Status(ctx context.Context) (Status, error) {
	chats, err := s.store.Chats().Count(ctx)
	if err != nil {
		return Status{}, err
	}
	bans, err := s.store.Bans().Count(ctx)
	if err != nil {
		return Status{}, err
	}

	out := Status{Status: "ok", Chats: chats, Bans: bans}
	if s.gateway != nil {
		out.Gateway = s.gateway.Metrics()
		if !out.Gateway.Available {
			out.Status = "degraded"
		}
	}
	if s.events != nil {
		out.Events = s.events.EventStats()
	}
	return out, nil
}
