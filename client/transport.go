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
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gravitational/trace"
	"github.com/sethvargo/go-limiter"

	"github.com/gravitational/workspace-client/client/auth"
	"github.com/gravitational/workspace-client/client/cache"
	"github.com/gravitational/workspace-client/client/routes"
	"github.com/gravitational/workspace-client/lib/logger"
)

// Renewal is the part of auth.Coordinator the transport depends on.
type Renewal interface {
	EnsureFreshCredential(ctx context.Context) (auth.Credential, error)
}

// TransportConfig configures a Transport.
type TransportConfig struct {
	Base       http.RoundTripper
	Classifier *routes.Classifier
	Store      *auth.Store
	Renewal    Renewal
	Teardown   *auth.Teardown
	Evictor    cache.Evictor
	// ExpiredStatuses defaults to 401 only.
	ExpiredStatuses []int
	// Limiter optionally throttles requests, keyed by route class. Its
	// buckets refill on wall-clock time.
	Limiter limiter.Store
}

// CheckAndSetDefaults validates the config.
func (c *TransportConfig) CheckAndSetDefaults() error {
	if c.Classifier == nil {
		return trace.BadParameter("missing parameter Classifier")
	}
	if c.Store == nil {
		return trace.BadParameter("missing parameter Store")
	}
	if c.Renewal == nil {
		return trace.BadParameter("missing parameter Renewal")
	}
	if c.Teardown == nil {
		return trace.BadParameter("missing parameter Teardown")
	}
	if c.Base == nil {
		c.Base = http.DefaultTransport
	}
	if len(c.ExpiredStatuses) == 0 {
		c.ExpiredStatuses = []int{http.StatusUnauthorized}
	}
	return nil
}

// Transport is an http.RoundTripper attaching the current credential to
// protected requests and renewing it when the server reports it expired.
type Transport struct {
	base       http.RoundTripper
	classifier *routes.Classifier
	store      *auth.Store
	renewal    Renewal
	teardown   *auth.Teardown
	evictor    cache.Evictor
	expired    map[int]bool
	limiter    limiter.Store
}

// NewTransport builds the authentication layer over cfg.Base.
func NewTransport(cfg TransportConfig) (*Transport, error) {
	if err := cfg.CheckAndSetDefaults(); err != nil {
		return nil, trace.Wrap(err)
	}
	expired := make(map[int]bool, len(cfg.ExpiredStatuses))
	for _, status := range cfg.ExpiredStatuses {
		expired[status] = true
	}
	return &Transport{
		base:       cfg.Base,
		classifier: cfg.Classifier,
		store:      cfg.Store,
		renewal:    cfg.Renewal,
		teardown:   cfg.Teardown,
		evictor:    cfg.Evictor,
		expired:    expired,
		limiter:    cfg.Limiter,
	}, nil
}

// attempt is one logical request; it is resent at most once.
type attempt struct {
	req     *http.Request
	body    []byte
	retried bool
}

func newAttempt(req *http.Request) (*attempt, error) {
	a := &attempt{req: req}
	if req.Body == nil || req.Body == http.NoBody {
		return a, nil
	}
	body, err := io.ReadAll(req.Body)
	closeErr := req.Body.Close()
	if err != nil {
		return nil, trace.Wrap(err)
	}
	a.body = body
	return a, trace.Wrap(closeErr)
}

// build clones the request with a fresh body and the given credential.
func (a *attempt) build(cred auth.Credential, ok bool) *http.Request {
	req := a.req.Clone(a.req.Context())
	if a.body != nil {
		body := a.body
		req.Body = io.NopCloser(bytes.NewReader(body))
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
		req.ContentLength = int64(len(body))
	}
	if ok && cred.Token != "" {
		req.Header.Set("Authorization", "Bearer "+cred.Token)
	}
	return req
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	class := t.classifier.Classify(req.Method, req.URL.Path)
	log := logger.Get(ctx).WithFields(logger.Fields{
		"request_id":  req.Header.Get(RequestIDHeader),
		"route_class": class,
		"method":      req.Method,
		"path":        req.URL.Path,
	})

	if err := t.throttle(ctx, class); err != nil {
		if req.Body != nil {
			req.Body.Close()
		}
		return nil, trace.Wrap(err)
	}

	if class != routes.Protected {
		log.Debug("Sending request without credential")
		return t.base.RoundTrip(req)
	}

	a, err := newAttempt(req)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	cred, ok := t.store.Get()
	for {
		log.WithField("retried", a.retried).Debug("Sending protected request")
		resp, err := t.base.RoundTrip(a.build(cred, ok))
		if err != nil {
			return nil, err
		}

		if !t.expired[resp.StatusCode] {
			if resp.StatusCode == http.StatusForbidden {
				t.evict(ctx, log, req.URL.Path)
			}
			return resp, nil
		}

		if a.retried {
			log.WithField("status", resp.StatusCode).Warn("Request rejected with a renewed credential, ending session")
			t.teardown.SessionExpired(ctx)
			return resp, nil
		}

		original, err := bufferResponse(resp)
		if err != nil {
			return nil, trace.Wrap(err)
		}
		log.WithField("status", resp.StatusCode).Debug("Credential expired, waiting for renewal")
		cred, err = t.renewal.EnsureFreshCredential(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.WithError(err).Debug("Renewal failed, surfacing the original response")
			return original, nil
		}
		ok, a.retried = true, true
	}
}

func (t *Transport) evict(ctx context.Context, log logger.Entry, path string) {
	resource, ok := t.classifier.Resource(path)
	if !ok || t.evictor == nil {
		return
	}
	log = log.WithFields(logger.Fields{"resource_type": resource.Type, "resource_id": resource.ID})
	if err := t.evictor.Evict(ctx, resource.Type, resource.ID); err != nil {
		log.WithError(err).Warn("Failed to evict revoked resource from cache")
		return
	}
	log.Debug("Evicted revoked resource from cache")
}

// throttle blocks until the limiter grants a token for the class.
func (t *Transport) throttle(ctx context.Context, class routes.Class) error {
	if t.limiter == nil {
		return nil
	}
	for {
		_, _, reset, ok, err := t.limiter.Take(ctx, class.String())
		if err != nil {
			return trace.Wrap(err)
		}
		if ok {
			return nil
		}
		// reset is wall-clock time, whatever clock the client runs on.
		wait := time.Until(time.Unix(0, int64(reset)))
		if wait <= 0 {
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// bufferResponse reads the body into memory so the response can be returned
// after another exchange.
func bufferResponse(resp *http.Response) (*http.Response, error) {
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, trace.Wrap(err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	return resp, nil
}
