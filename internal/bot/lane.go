// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

package bot

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"

	gkerr "github.com/gridkeeper/gridkeeper/pkg/errors"
)

const defaultQueueSize = 256

type workItem struct {
	fn     func(context.Context) error
	ctx    context.Context
	result chan<- error
}

// Lane serialises event handling. Work submitted via Submit runs one item
// at a time in FIFO order on a background goroutine.
type Lane struct {
	name    string
	logger  *slog.Logger
	queue   chan workItem
	done    chan struct{}
	closing chan struct{}

	once sync.Once
}

// NewLane creates a Lane and starts its worker. Call Close when done.
func NewLane(name string, logger *slog.Logger) *Lane {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Lane{
		name:    name,
		logger:  logger,
		queue:   make(chan workItem, defaultQueueSize),
		done:    make(chan struct{}),
		closing: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Lane) run() {
	defer close(l.done)
	for {
		select {
		case w := <-l.queue:
			l.execute(w)
		case <-l.closing:
			for {
				select {
				case w := <-l.queue:
					l.execute(w)
				default:
					return
				}
			}
		}
	}
}

func (l *Lane) execute(w workItem) {
	if err := w.ctx.Err(); err != nil {
		w.result <- err
		return
	}

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				l.logger.Error("lane worker panic recovered",
					"lane", l.name,
					"panic", r,
					"stack", string(debug.Stack()))
				err = gkerr.Errorf(gkerr.CodeBotWorkerFailure, "worker panic: %v", r)
			}
		}()
		err = w.fn(w.ctx)
	}()

	w.result <- err
}

// Submit enqueues fn and blocks until it has run. If ctx is cancelled
// before fn starts, ctx.Err() is returned and fn is skipped.
func (l *Lane) Submit(ctx context.Context, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case <-l.closing:
		return gkerr.New(gkerr.CodeBotLaneClosed, "lane is closed")
	default:
	}

	result := make(chan error, 1)
	w := workItem{fn: fn, ctx: ctx, result: result}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.closing:
		return gkerr.New(gkerr.CodeBotLaneClosed, "lane is closed")
	case l.queue <- w:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.closing:
		return gkerr.New(gkerr.CodeBotLaneClosed, "lane closed while waiting for result")
	case err := <-result:
		return err
	}
}

// Close stops accepting work and waits for queued items to drain.
// Close is idempotent.
func (l *Lane) Close() {
	l.once.Do(func() {
		close(l.closing)
		<-l.done
	})
}
