// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

// Package bot runs the event pipeline: a transport feeding a single FIFO
// lane that hands each event to the dispatcher.
package bot

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gridkeeper/gridkeeper/pkg/types"
)

// Source produces platform events until ctx is cancelled.
type Source interface {
	Listen(ctx context.Context, out chan<- types.Event) error
}

// Handler processes one event.
type Handler interface {
	Handle(ctx context.Context, ev types.Event) error
}

// Stats counts events seen by a Runner.
type Stats struct {
	Received int64 `json:"received"`
	Failed   int64 `json:"failed"`
}

// Runner drains a Source through a Lane into a Handler.
type Runner struct {
	source  Source
	handler Handler
	lane    *Lane
	logger  *slog.Logger

	received atomic.Int64
	failed   atomic.Int64
}

// NewRunner creates a Runner. The lane is owned by the caller.
func NewRunner(source Source, handler Handler, lane *Lane, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{source: source, handler: handler, lane: lane, logger: logger}
}

// Run blocks until ctx is cancelled or the source stops. Handler errors
// are logged and counted; they never stop the loop.
func (r *Runner) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan types.Event)
	listenErr := make(chan error, 1)
	go func() {
		err := r.source.Listen(ctx, events)
		close(events)
		listenErr <- err
	}()

	for ev := range events {
		r.received.Add(1)
		err := r.lane.Submit(ctx, func(ctx context.Context) error {
			return r.handler.Handle(ctx, ev)
		})
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		r.failed.Add(1)
		r.logger.Error("handling event failed",
			"peer_id", ev.PeerID,
			"from_id", ev.FromID,
			"error", err)
	}

	cancel()
	// Listen may be blocked sending; drain so it can observe cancellation.
	for range events {
	}
	return <-listenErr
}

// Stats returns a snapshot of the event counters.
func (r *Runner) Stats() Stats {
	return Stats{Received: r.received.Load(), Failed: r.failed.Load()}
}
