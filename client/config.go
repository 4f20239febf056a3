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
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/gravitational/trace"
	"github.com/jonboulle/clockwork"

	"github.com/gravitational/workspace-client/client/cache"
	"github.com/gravitational/workspace-client/client/routes"
	"github.com/gravitational/workspace-client/lib"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	defaultMaxConns    = 100

	// RequestIDHeader carries the id generated for every outbound request.
	RequestIDHeader = "X-Request-ID"
)

// RateLimitConfig throttles outbound requests per route class. Zero Requests
// disables throttling.
type RateLimitConfig struct {
	Requests uint64        `toml:"requests"`
	Interval time.Duration `toml:"interval"`
}

// Config configures a Client.
type Config struct {
	// BaseURL is the API root, e.g. https://workspace.example.com/api/v1.
	// Its path is the base path stripped before route classification.
	BaseURL string
	// Timeout bounds every HTTP exchange, renewal calls included.
	Timeout  time.Duration
	MaxConns int
	// ExpiredStatuses are the statuses signalling an expired credential on a
	// protected route.
	ExpiredStatuses []int
	Routes          []routes.Route
	Resources       []routes.ResourcePattern
	RateLimit       RateLimitConfig
	Clock           clockwork.Clock
	// Cache receives per-user namespaces and resource evictions. Defaults to
	// an in-memory cache.
	Cache cache.Cache
	// Jar holds the refresh cookie between calls. Defaults to an empty jar.
	Jar http.CookieJar
	// Transport is the base round tripper under the authentication layer.
	Transport http.RoundTripper

	baseURL *url.URL
}

// CheckAndSetDefaults validates the config and fills in the defaults.
func (c *Config) CheckAndSetDefaults() error {
	if c.BaseURL == "" {
		return trace.BadParameter("missing parameter BaseURL")
	}
	baseURL, err := lib.AddrToURL(c.BaseURL)
	if err != nil {
		return trace.Wrap(err)
	}
	c.baseURL = baseURL
	if c.Timeout == 0 {
		c.Timeout = defaultHTTPTimeout
	}
	if c.Timeout < 0 {
		return trace.BadParameter("timeout must be positive, got %v", c.Timeout)
	}
	if c.MaxConns == 0 {
		c.MaxConns = defaultMaxConns
	}
	if len(c.ExpiredStatuses) == 0 {
		c.ExpiredStatuses = []int{http.StatusUnauthorized}
	}
	for _, status := range c.ExpiredStatuses {
		if status < 400 || status > 599 {
			return trace.BadParameter("expired status %d is not an error status", status)
		}
		if status == http.StatusForbidden {
			return trace.BadParameter("status 403 is reserved for revoked resource access")
		}
	}
	if c.RateLimit.Requests > 0 && c.RateLimit.Interval <= 0 {
		return trace.BadParameter("rate limit interval must be positive")
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.Cache == nil {
		c.Cache = cache.NewMemory()
	}
	if c.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return trace.Wrap(err)
		}
		c.Jar = jar
	}
	if c.Transport == nil {
		c.Transport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxConnsPerHost:     c.MaxConns,
			MaxIdleConnsPerHost: c.MaxConns,
		}
	}
	return nil
}

func (c *Config) routesConfig() routes.Config {
	return routes.Config{
		BasePath:  c.baseURL.Path,
		Routes:    c.Routes,
		Resources: c.Resources,
	}
}
