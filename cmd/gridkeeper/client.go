// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

package main

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	gkerr "github.com/gridkeeper/gridkeeper/pkg/errors"
)

// defaultHTTPClient is used by commands that talk to a running bot.
// Overridden in tests.
var defaultHTTPClient = &http.Client{
	Timeout: 5 * time.Second,
}

// botClient provides HTTP access to a running bot's listener.
type botClient struct {
	baseURL string
	http    *http.Client
}

func newBotClient(addr string) *botClient {
	return &botClient{
		baseURL: "http://" + addr,
		http:    defaultHTTPClient,
	}
}

// getJSON performs a GET request and decodes the JSON response into dest.
// A refused connection yields cli.bot.not_running.
func (c *botClient) getJSON(path string, dest any) error {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		if isDialError(err) {
			return gkerr.New(gkerr.CodeCLIGatewayNotRunning, "bot is not running (connection refused)")
		}
		return gkerr.Errorf(gkerr.CodeCLIRequestFailure, "request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return gkerr.Errorf(gkerr.CodeCLIRequestFailure, "bot returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return gkerr.Errorf(gkerr.CodeCLIResponseInvalid, "invalid response: %w", err)
	}
	return nil
}

func isDialError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	return false
}
