// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

// Package vk binds the bot to the VK API: the method client that
// implements gateway.Gateway and the Bots Long Poll transport.
package vk

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gridkeeper/gridkeeper/internal/gateway"
	gkerr "github.com/gridkeeper/gridkeeper/pkg/errors"
)

const (
	DefaultAPIURL     = "https://api.vk.com/method"
	DefaultAPIVersion = "5.199"

	defaultHTTPTimeout = 30 * time.Second
	maxResponseBytes   = 4 << 20
)

// VK API error codes the client classifies.
const (
	errAuthFailed      = 5
	errAccessDenied    = 15
	errNoAccessToChat  = 917
	errNotChatAdmin    = 925
	errUserNotInChat   = 935
	errCannotKickAdmin = 945
)

// Config configures a Client.
type Config struct {
	Token      string
	APIURL     string
	APIVersion string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client calls VK API methods on behalf of a community token.
type Client struct {
	token    string
	apiURL   string
	version  string
	http     *http.Client
	logger   *slog.Logger
	randomID func() int64
}

var _ gateway.Gateway = (*Client)(nil)

// NewClient creates a Client. The token is required.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, gkerr.New(gkerr.CodeChannelTokenInvalid, "vk token is required")
	}

	c := &Client{
		token:    cfg.Token,
		apiURL:   strings.TrimRight(cfg.APIURL, "/"),
		version:  cfg.APIVersion,
		http:     cfg.HTTPClient,
		logger:   cfg.Logger,
		randomID: func() int64 { return rand.Int64N(1 << 31) },
	}
	if c.apiURL == "" {
		c.apiURL = DefaultAPIURL
	}
	if c.version == "" {
		c.version = DefaultAPIVersion
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

// apiError is the error object VK returns in place of a response.
type apiError struct {
	Code int    `json:"error_code"`
	Msg  string `json:"error_msg"`
}

type envelope struct {
	Response json.RawMessage `json:"response"`
	Error    *apiError       `json:"error"`
}

// Call invokes method with params and decodes the response field into out.
// out may be nil.
func (c *Client) Call(ctx context.Context, method string, params url.Values, out any) error {
	form := url.Values{}
	for k, v := range params {
		form[k] = v
	}
	form.Set("access_token", c.token)
	form.Set("v", c.version)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/"+method, strings.NewReader(form.Encode()))
	if err != nil {
		return gkerr.Errorf(gkerr.CodeGatewayRequestFailure, "building %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return gkerr.Errorf(gkerr.CodeGatewayRequestFailure, "calling %s: %w", method, ctx.Err())
		}
		return gkerr.Errorf(gkerr.CodeGatewayRequestFailure, "calling %s: %w", method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return gkerr.Errorf(gkerr.CodeGatewayRequestFailure, "reading %s response: %w", method, err)
	}
	if resp.StatusCode >= 400 {
		return gkerr.New(gkerr.CodeGatewayUpstreamFailure, method+" returned HTTP "+strconv.Itoa(resp.StatusCode),
			gkerr.FieldMethod(method), gkerr.Field("status", resp.StatusCode))
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return gkerr.Errorf(gkerr.CodeGatewayResponseInvalid, "decoding %s response: %w", method, err)
	}
	if env.Error != nil {
		return classify(method, env.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Response, out); err != nil {
		return gkerr.Errorf(gkerr.CodeGatewayResponseInvalid, "decoding %s payload: %w", method, err)
	}
	return nil
}

func classify(method string, e *apiError) error {
	code := gkerr.CodeGatewayUpstreamFailure
	switch e.Code {
	case errAuthFailed:
		code = gkerr.CodeChannelTokenInvalid
	case errAccessDenied, errNoAccessToChat, errNotChatAdmin, errCannotKickAdmin:
		code = gkerr.CodeGatewayPermissionDenied
	case errUserNotInChat:
		code = gkerr.CodeGatewayMemberNotFound
	}
	return gkerr.New(code, method+": "+e.Msg,
		gkerr.FieldMethod(method),
		gkerr.Field("vk_error_code", e.Code),
		gkerr.Field(gateway.ReasonField, e.Msg),
	)
}

// SendMessage posts text to a peer.
func (c *Client) SendMessage(ctx context.Context, peerID int64, text string) error {
	params := url.Values{}
	params.Set("peer_id", strconv.FormatInt(peerID, 10))
	params.Set("message", text)
	params.Set("random_id", strconv.FormatInt(c.randomID(), 10))
	return c.Call(ctx, "messages.send", params, nil)
}

// DeleteMessages deletes messages for everyone. When the batch call fails
// each message is retried on its own.
func (c *Client) DeleteMessages(ctx context.Context, peerID int64, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	err := c.deleteBatch(ctx, peerID, ids)
	if err == nil || len(ids) == 1 {
		return err
	}

	c.logger.Debug("batch delete failed, retrying one by one",
		"peer_id", peerID, "count", len(ids), "reason", gateway.Reason(err))

	var lastErr error
	for _, id := range ids {
		if err := c.deleteBatch(ctx, peerID, []int64{id}); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func (c *Client) deleteBatch(ctx context.Context, peerID int64, ids []int64) error {
	params := url.Values{}
	params.Set("peer_id", strconv.FormatInt(peerID, 10))
	params.Set("cmids", joinIDs(ids))
	params.Set("delete_for_all", "1")
	return c.Call(ctx, "messages.delete", params, nil)
}

// RemoveMember removes a user from a chat by chat id.
func (c *Client) RemoveMember(ctx context.Context, chatID, userID int64) error {
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(chatID, 10))
	params.Set("member_id", strconv.FormatInt(userID, 10))
	return c.Call(ctx, "messages.removeChatUser", params, nil)
}

type conversationMembers struct {
	Count int `json:"count"`
	Items []struct {
		MemberID int64 `json:"member_id"`
		IsAdmin  bool  `json:"is_admin"`
		IsOwner  bool  `json:"is_owner"`
	} `json:"items"`
}

// GetConversationMembers lists the members of a conversation. The bot must
// be an admin of the conversation for VK to answer.
func (c *Client) GetConversationMembers(ctx context.Context, peerID int64) ([]gateway.Member, error) {
	params := url.Values{}
	params.Set("peer_id", strconv.FormatInt(peerID, 10))

	var resp conversationMembers
	if err := c.Call(ctx, "messages.getConversationMembers", params, &resp); err != nil {
		return nil, err
	}

	members := make([]gateway.Member, 0, len(resp.Items))
	for _, it := range resp.Items {
		members = append(members, gateway.Member{MemberID: it.MemberID, IsAdmin: it.IsAdmin, IsOwner: it.IsOwner})
	}
	return members, nil
}

type group struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Group returns the community the token belongs to.
func (c *Client) Group(ctx context.Context) (int64, string, error) {
	var raw json.RawMessage
	if err := c.Call(ctx, "groups.getById", nil, &raw); err != nil {
		return 0, "", err
	}

	// 5.199 wraps the list in {"groups": [...]}; older versions return it bare.
	var groups []group
	if bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		var wrapped struct {
			Groups []group `json:"groups"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return 0, "", gkerr.Errorf(gkerr.CodeGatewayResponseInvalid, "decoding groups.getById: %w", err)
		}
		groups = wrapped.Groups
	} else if err := json.Unmarshal(raw, &groups); err != nil {
		return 0, "", gkerr.Errorf(gkerr.CodeGatewayResponseInvalid, "decoding groups.getById: %w", err)
	}

	if len(groups) == 0 || groups[0].ID <= 0 {
		return 0, "", gkerr.New(gkerr.CodeGatewayResponseInvalid, "groups.getById returned no community")
	}
	return groups[0].ID, groups[0].Name, nil
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
