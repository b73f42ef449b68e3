// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

package gateway

import (
	"context"
	"sync"
	"time"

	gkerr "github.com/gridkeeper/gridkeeper/pkg/errors"
	"github.com/gridkeeper/gridkeeper/pkg/health"
)

// HealthTracker records gateway call outcomes. The gateway counts as
// available until a call fails, then unavailable for a cooldown period.
type HealthTracker struct {
	mu           sync.RWMutex
	healthy      bool
	failedAt     time.Time
	lastReason   string
	cooldown     time.Duration
	callCount    int64
	failureCount int64
	nowFunc      func() time.Time // for testing
}

// DefaultHealthCooldown is how long a failed gateway is reported unavailable.
const DefaultHealthCooldown = 30 * time.Second

// NewHealthTracker creates a HealthTracker that starts healthy.
// Returns an error if cooldown is zero or negative.
func NewHealthTracker(cooldown time.Duration) (*HealthTracker, error) {
	if cooldown <= 0 {
		return nil, gkerr.Errorf(gkerr.CodeConfigValidateInvalidValue,
			"health tracker cooldown must be positive, got %s", cooldown)
	}
	return &HealthTracker{
		healthy:  true,
		cooldown: cooldown,
		nowFunc:  time.Now,
	}, nil
}

// isHealthyLocked reports whether the gateway is healthy or the cooldown
// has elapsed. The caller MUST hold at least h.mu.RLock.
func (h *HealthTracker) isHealthyLocked() bool {
	if h.healthy {
		return true
	}
	return h.nowFunc().Sub(h.failedAt) >= h.cooldown
}

// IsHealthy returns true if the gateway is healthy or the cooldown has elapsed.
func (h *HealthTracker) IsHealthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.isHealthyLocked()
}

// RecordSuccess marks the gateway as healthy.
func (h *HealthTracker) RecordSuccess() {
	h.mu.Lock()
	h.healthy = true
	h.callCount++
	h.mu.Unlock()
}

// RecordFailure marks the gateway as unhealthy and remembers why.
func (h *HealthTracker) RecordFailure(reason string) {
	h.mu.Lock()
	h.healthy = false
	h.failedAt = h.nowFunc()
	h.lastReason = reason
	h.callCount++
	h.failureCount++
	h.mu.Unlock()
}

// SetNowFunc overrides the time source (for testing).
func (h *HealthTracker) SetNowFunc(fn func() time.Time) {
	h.mu.Lock()
	h.nowFunc = fn
	h.mu.Unlock()
}

// Metrics returns a point-in-time snapshot of the tracker's state.
func (h *HealthTracker) Metrics() health.Metrics {
	h.mu.RLock()
	defer h.mu.RUnlock()

	m := health.Metrics{
		CallCount:    h.callCount,
		FailureCount: h.failureCount,
		LastReason:   h.lastReason,
	}

	if h.failureCount > 0 {
		t := h.failedAt
		m.LastFailureAt = &t
	}

	m.Available = h.isHealthyLocked()
	if !h.healthy {
		cooldownEnd := h.failedAt.Add(h.cooldown)
		m.CooldownUntil = &cooldownEnd
	}
	return m
}

type healthGateway struct {
	next    Gateway
	tracker *HealthTracker
}

var _ Gateway = (*healthGateway)(nil)

// WithHealth records the outcome of every call on next in tracker.
func WithHealth(next Gateway, tracker *HealthTracker) Gateway {
	return &healthGateway{next: next, tracker: tracker}
}

func (g *healthGateway) SendMessage(ctx context.Context, peerID int64, text string) error {
	return g.record(g.next.SendMessage(ctx, peerID, text))
}

func (g *healthGateway) DeleteMessages(ctx context.Context, peerID int64, ids []int64) error {
	return g.record(g.next.DeleteMessages(ctx, peerID, ids))
}

func (g *healthGateway) RemoveMember(ctx context.Context, chatID, userID int64) error {
	return g.record(g.next.RemoveMember(ctx, chatID, userID))
}

func (g *healthGateway) GetConversationMembers(ctx context.Context, peerID int64) ([]Member, error) {
	members, err := g.next.GetConversationMembers(ctx, peerID)
	return members, g.record(err)
}

func (g *healthGateway) record(err error) error {
	if err != nil {
		g.tracker.RecordFailure(Reason(err))
		return err
	}
	g.tracker.RecordSuccess()
	return nil
}
