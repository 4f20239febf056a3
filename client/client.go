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
	"net/http"
	"net/url"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/gravitational/trace"
	jsoniter "github.com/json-iterator/go"
	"github.com/sethvargo/go-limiter"
	"github.com/sethvargo/go-limiter/memorystore"

	"github.com/gravitational/workspace-client/client/auth"
	"github.com/gravitational/workspace-client/client/cache"
	"github.com/gravitational/workspace-client/client/routes"
	"github.com/gravitational/workspace-client/lib/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client is a workspace API client. It keeps one session: a short-lived
// access credential plus the refresh cookie in its jar.
type Client struct {
	client      *resty.Client
	baseURL     *url.URL
	refreshURL  *url.URL
	jar         *sessionJar
	classifier  *routes.Classifier
	store       *auth.Store
	teardown    *auth.Teardown
	coordinator *auth.Coordinator
	cache       cache.Cache
	limiter     limiter.Store
}

// New builds a client without a session.
func New(conf Config) (*Client, error) {
	if err := conf.CheckAndSetDefaults(); err != nil {
		return nil, trace.Wrap(err)
	}
	classifier, err := routes.New(conf.routesConfig())
	if err != nil {
		return nil, trace.Wrap(err)
	}

	c := &Client{
		baseURL:    conf.baseURL,
		refreshURL: conf.baseURL.JoinPath(refreshPath),
		jar:        newSessionJar(conf.Jar, conf.Clock),
		classifier: classifier,
		store:      auth.NewStore(conf.Clock),
		cache:      conf.Cache,
	}
	c.teardown = auth.NewTeardown(c.store)
	c.teardown.Subscribe(c.dropCache)
	c.coordinator, err = auth.NewCoordinator(auth.CoordinatorConfig{
		Renewer:  auth.RenewerFunc(c.Renew),
		Store:    c.store,
		Teardown: c.teardown,
	})
	if err != nil {
		return nil, trace.Wrap(err)
	}

	if conf.RateLimit.Requests > 0 {
		c.limiter, err = memorystore.New(&memorystore.Config{
			Tokens:   conf.RateLimit.Requests,
			Interval: conf.RateLimit.Interval,
		})
		if err != nil {
			return nil, trace.Wrap(err)
		}
	}

	transport, err := NewTransport(TransportConfig{
		Base:            conf.Transport,
		Classifier:      classifier,
		Store:           c.store,
		Renewal:         c.coordinator,
		Teardown:        c.teardown,
		Evictor:         c.cache,
		ExpiredStatuses: conf.ExpiredStatuses,
		Limiter:         c.limiter,
	})
	if err != nil {
		return nil, trace.Wrap(err)
	}

	expired := transport.expired
	client := resty.NewWithClient(&http.Client{
		Timeout:   conf.Timeout,
		Transport: transport,
		Jar:       c.jar,
	})
	client.SetBaseURL(conf.baseURL.String())
	client.SetHeader("Accept", "application/json")
	client.SetHeader("Content-Type", "application/json")
	client.JSONMarshal = json.Marshal
	client.JSONUnmarshal = json.Unmarshal
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		if req.Header.Get(RequestIDHeader) == "" {
			req.SetHeader(RequestIDHeader, uuid.NewString())
		}
		return nil
	})
	client.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		if resp.IsError() {
			return newAPIError(classifier, expired, resp)
		}
		return nil
	})
	c.client = client

	return c, nil
}

// Close releases the throttling state.
func (c *Client) Close(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return trace.Wrap(c.limiter.Close(ctx))
}

// Credential returns the current access credential.
func (c *Client) Credential() (auth.Credential, bool) {
	return c.store.Get()
}

// RestoreSession installs a previously saved credential and refresh cookies.
// Refresh cookies alone restore a session: the first protected call renews
// the credential, and a failed renewal ends the session.
func (c *Client) RestoreSession(ctx context.Context, cred auth.Credential, cookies []*http.Cookie) error {
	if len(cookies) > 0 {
		c.jar.SetCookies(c.baseURL, cookies)
	}
	if cred.IsZero() && len(cookies) == 0 {
		return nil
	}
	c.store.Set(cred)
	if cred.UserID == "" {
		return nil
	}
	return trace.Wrap(c.cache.Open(ctx, cred.UserID))
}

// Cookies returns the session cookies with their paths, including those
// scoped to the refresh endpoint alone.
func (c *Client) Cookies() []*http.Cookie {
	return c.jar.sessionCookies(c.baseURL, c.refreshURL)
}

// OnSessionEnded registers a listener called once when the session expires
// or is logged out.
func (c *Client) OnSessionEnded(listener auth.Listener) {
	c.teardown.Subscribe(listener)
}

// Classifier returns the route table used by the client.
func (c *Client) Classifier() *routes.Classifier {
	return c.classifier
}

func (c *Client) dropCache(ctx context.Context, event auth.SessionEvent) {
	if err := c.cache.Drop(ctx); err != nil {
		logger.Get(ctx).WithError(err).Warn("Failed to drop session cache")
	}
}

// startSession stores a credential issued by login or registration.
func (c *Client) startSession(ctx context.Context, result AuthResult) (auth.Credential, error) {
	if result.AccessToken == "" {
		return auth.Credential{}, trace.BadParameter("authentication response carries no access token")
	}
	cred := c.store.SetToken(result.AccessToken, result.UserID)
	if err := c.cache.Open(ctx, cred.UserID); err != nil {
		logger.Get(ctx).WithError(err).Warn("Failed to open session cache")
	}
	return cred, nil
}
