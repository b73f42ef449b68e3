// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

package vk

import (
	"context"
	"net/http"

	gkerr "github.com/gridkeeper/gridkeeper/pkg/errors"
)

// ValidateToken calls groups.getById to verify a community token and
// returns the community id.
func ValidateToken(ctx context.Context, client *http.Client, token string) (int64, error) {
	return ValidateTokenWithURL(ctx, client, token, DefaultAPIURL)
}

// ValidateTokenWithURL is ValidateToken against a custom API base URL.
func ValidateTokenWithURL(ctx context.Context, client *http.Client, token, apiURL string) (int64, error) {
	c, err := NewClient(Config{Token: token, APIURL: apiURL, HTTPClient: client})
	if err != nil {
		return 0, err
	}

	groupID, _, err := c.Group(ctx)
	if err == nil {
		return groupID, nil
	}
	if gkerr.HasCode(err, gkerr.CodeChannelTokenInvalid) || gkerr.HasCode(err, gkerr.CodeGatewayPermissionDenied) {
		return 0, gkerr.Errorf(gkerr.CodeChannelTokenInvalid, "invalid VK community token: %v", err)
	}
	return 0, gkerr.Errorf(gkerr.CodeChannelTokenCheckFailed, "validating VK token: %v", err)
}
