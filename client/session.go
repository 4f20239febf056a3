/*
Copyright 2026 Gravitational, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package client

import (
	"context"

	"github.com/gravitational/trace"

	"github.com/gravitational/workspace-client/client/auth"
	"github.com/gravitational/workspace-client/lib/logger"
)

// refreshPath is where the refresh cookie is exchanged for a credential.
const refreshPath = "/auth/refresh"

// Login starts a session. Bad credentials fail with KindUnauthenticatedRoute.
func (c *Client) Login(ctx context.Context, req LoginRequest) (auth.Credential, error) {
	var result AuthResult
	_, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		Post("/auth/login")
	if err != nil {
		return auth.Credential{}, trace.Wrap(err)
	}
	return c.startSession(ctx, result)
}

// Register creates an account and starts its session.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (auth.Credential, error) {
	var result AuthResult
	_, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		Post("/users")
	if err != nil {
		return auth.Credential{}, trace.Wrap(err)
	}
	return c.startSession(ctx, result)
}

// Logout ends the session. The local session is torn down even when the
// server could not be reached.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.client.R().
		SetContext(ctx).
		Post("/auth/logout")
	c.teardown.LoggedOut(ctx)
	if err != nil {
		logger.Get(ctx).WithError(err).Debug("Logout call failed, local session cleared anyway")
	}
	return trace.Wrap(err)
}

// Renew exchanges the refresh cookie for a new access credential. It is the
// renewal call behind the coordinator and is not meant to be called directly
// while requests are in flight.
func (c *Client) Renew(ctx context.Context) (auth.Credential, error) {
	var result AuthResult
	_, err := c.client.R().
		SetContext(ctx).
		SetResult(&result).
		Post(refreshPath)
	if err != nil {
		return auth.Credential{}, trace.Wrap(err)
	}
	if result.AccessToken == "" {
		return auth.Credential{}, trace.NotFound("refresh response carries no access token")
	}
	return auth.NewCredential(result.AccessToken, result.UserID, c.store.Clock().Now()), nil
}

func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	_, err := c.client.R().
		SetContext(ctx).
		SetBody(PasswordResetRequest{Email: email}).
		Post("/auth/password-reset/request")
	return trace.Wrap(err)
}

func (c *Client) ResetPassword(ctx context.Context, token, password string) error {
	_, err := c.client.R().
		SetContext(ctx).
		SetBody(PasswordReset{Token: token, Password: password}).
		Post("/auth/password-reset")
	return trace.Wrap(err)
}

// ValidateEmail reports whether the email is free to register.
func (c *Client) ValidateEmail(ctx context.Context, email string) (bool, error) {
	return c.available(ctx, "/validate/email", "email", email)
}

// ValidateUsername reports whether the username is free to register.
func (c *Client) ValidateUsername(ctx context.Context, username string) (bool, error) {
	return c.available(ctx, "/validate/username", "username", username)
}

func (c *Client) available(ctx context.Context, path, param, value string) (bool, error) {
	var result AvailabilityResult
	_, err := c.client.R().
		SetContext(ctx).
		SetQueryParam(param, value).
		SetResult(&result).
		Get(path)
	if err != nil {
		return false, trace.Wrap(err)
	}
	return result.Available, nil
}
