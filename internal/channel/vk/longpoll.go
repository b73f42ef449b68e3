// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

package vk

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"

	gkerr "github.com/gridkeeper/gridkeeper/pkg/errors"
	"github.com/gridkeeper/gridkeeper/pkg/types"
)

// DefaultWait is the long-poll wait in seconds. VK caps it at 90.
const DefaultWait = 25

// LongPoll streams events from the Bots Long Poll API.
type LongPoll struct {
	client  *Client
	groupID int64
	wait    int
	http    *http.Client
	logger  *slog.Logger
	backoff func() backoff.BackOff
}

// LongPollOption configures a LongPoll.
type LongPollOption func(*LongPoll)

// WithWait sets the server-side wait in seconds.
func WithWait(seconds int) LongPollOption {
	return func(lp *LongPoll) {
		if seconds > 0 && seconds <= 90 {
			lp.wait = seconds
		}
	}
}

// WithBackOff replaces the reconnect policy.
func WithBackOff(fn func() backoff.BackOff) LongPollOption {
	return func(lp *LongPoll) { lp.backoff = fn }
}

// NewLongPoll creates a long-poll listener for groupID.
func NewLongPoll(client *Client, groupID int64, opts ...LongPollOption) *LongPoll {
	lp := &LongPoll{
		client:  client,
		groupID: groupID,
		wait:    DefaultWait,
		logger:  client.logger,
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			b.MaxInterval = time.Minute
			return b
		},
	}
	for _, opt := range opts {
		opt(lp)
	}
	lp.http = &http.Client{Timeout: time.Duration(lp.wait+15) * time.Second}
	return lp
}

// flexString decodes JSON strings and numbers alike; VK sends ts as both.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type pollServer struct {
	Key    string     `json:"key"`
	Server string     `json:"server"`
	TS     flexString `json:"ts"`
}

type pollResponse struct {
	TS      flexString `json:"ts"`
	Failed  int        `json:"failed"`
	Updates []update   `json:"updates"`
}

type update struct {
	Type   string          `json:"type"`
	Object json.RawMessage `json:"object"`
}

// Listen polls until ctx is cancelled, sending each message event to out.
// Transport failures are retried with exponential backoff; Listen returns
// nil once ctx is done.
func (lp *LongPoll) Listen(ctx context.Context, out chan<- types.Event) error {
	bo := lp.backoff()
	var srv *pollServer

	for ctx.Err() == nil {
		if srv == nil {
			fresh, err := lp.server(ctx)
			if err != nil {
				lp.logger.Warn("fetching long poll server failed", "error", err)
				if !sleep(ctx, bo.NextBackOff()) {
					break
				}
				continue
			}
			srv = fresh
		}

		resp, err := lp.poll(ctx, srv)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			lp.logger.Warn("long poll request failed", "error", err)
			srv = nil
			if !sleep(ctx, bo.NextBackOff()) {
				break
			}
			continue
		}
		bo.Reset()

		switch resp.Failed {
		case 0:
		case 1:
			// History is partly lost; continue from the new ts.
			srv.TS = resp.TS
			continue
		case 2:
			// Key expired; keep the position.
			ts := srv.TS
			fresh, err := lp.server(ctx)
			if err != nil {
				srv = nil
				continue
			}
			fresh.TS = ts
			srv = fresh
			continue
		default:
			srv = nil
			continue
		}

		srv.TS = resp.TS
		for _, u := range resp.Updates {
			ev, ok := decodeUpdate(u)
			if !ok {
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return nil
			}
		}
	}
	return nil
}

func (lp *LongPoll) server(ctx context.Context) (*pollServer, error) {
	params := url.Values{}
	params.Set("group_id", strconv.FormatInt(lp.groupID, 10))

	var srv pollServer
	if err := lp.client.Call(ctx, "groups.getLongPollServer", params, &srv); err != nil {
		return nil, err
	}
	if srv.Server == "" || srv.Key == "" {
		return nil, gkerr.New(gkerr.CodeChannelLongPollFailure, "long poll server response is incomplete")
	}
	return &srv, nil
}

func (lp *LongPoll) poll(ctx context.Context, srv *pollServer) (*pollResponse, error) {
	q := url.Values{}
	q.Set("act", "a_check")
	q.Set("key", srv.Key)
	q.Set("ts", string(srv.TS))
	q.Set("wait", strconv.Itoa(lp.wait))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.Server+"?"+q.Encode(), nil)
	if err != nil {
		return nil, gkerr.Errorf(gkerr.CodeChannelLongPollFailure, "building long poll request: %w", err)
	}

	resp, err := lp.http.Do(req)
	if err != nil {
		return nil, gkerr.Errorf(gkerr.CodeChannelLongPollFailure, "long poll request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, gkerr.Errorf(gkerr.CodeChannelLongPollFailure, "long poll returned HTTP %d", resp.StatusCode)
	}

	var pr pollResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&pr); err != nil {
		return nil, gkerr.Errorf(gkerr.CodeChannelLongPollFailure, "decoding long poll response: %w", err)
	}
	return &pr, nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
