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

package auth

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/gravitational/trace"

	"github.com/gravitational/workspace-client/lib/logger"
)

// Renewer exchanges the out-of-band refresh secret for a new credential.
type Renewer interface {
	Renew(ctx context.Context) (Credential, error)
}

// RenewerFunc adapts a function to Renewer.
type RenewerFunc func(ctx context.Context) (Credential, error)

// Renew implements Renewer.
func (f RenewerFunc) Renew(ctx context.Context) (Credential, error) {
	return f(ctx)
}

// RenewalState is the state of the renewal coordinator.
type RenewalState int

const (
	// Idle means no renewal is running.
	Idle RenewalState = iota
	// InFlight means a renewal call is pending and callers are queued.
	InFlight
)

func (s RenewalState) String() string {
	switch s {
	case Idle:
		return "idle"
	case InFlight:
		return "in-flight"
	default:
		return "unknown"
	}
}

type renewalResult struct {
	cred Credential
	err  error
}

// CoordinatorConfig configures a Coordinator.
type CoordinatorConfig struct {
	Renewer  Renewer
	Store    *Store
	Teardown *Teardown
}

// CheckAndSetDefaults validates the config.
func (c *CoordinatorConfig) CheckAndSetDefaults() error {
	if c.Renewer == nil {
		return trace.BadParameter("missing parameter Renewer")
	}
	if c.Store == nil {
		return trace.BadParameter("missing parameter Store")
	}
	if c.Teardown == nil {
		c.Teardown = NewTeardown(c.Store)
	}
	return nil
}

// Coordinator runs at most one credential renewal at a time. Callers arriving
// while a renewal is pending are queued and all receive its outcome.
type Coordinator struct {
	renewer  Renewer
	store    *Store
	teardown *Teardown

	mu      sync.Mutex // protects the below fields
	state   RenewalState
	episode string
	waiters []chan renewalResult
}

// NewCoordinator builds an idle coordinator.
func NewCoordinator(cfg CoordinatorConfig) (*Coordinator, error) {
	if err := cfg.CheckAndSetDefaults(); err != nil {
		return nil, trace.Wrap(err)
	}
	return &Coordinator{
		renewer:  cfg.Renewer,
		store:    cfg.Store,
		teardown: cfg.Teardown,
	}, nil
}

// EnsureFreshCredential blocks until the in-flight renewal settles, starting
// one if none is running. Every caller of one episode gets the same result.
func (c *Coordinator) EnsureFreshCredential(ctx context.Context) (Credential, error) {
	resultC := make(chan renewalResult, 1)

	c.mu.Lock()
	c.waiters = append(c.waiters, resultC)
	leader := c.state == Idle
	if leader {
		c.state = InFlight
		c.episode = uuid.NewString()
	}
	episode := c.episode
	c.mu.Unlock()

	ctx, log := logger.WithField(ctx, "episode", episode)
	if leader {
		log.Debug("Starting credential renewal")
		// The renewal outlives the caller that started it: the other waiters
		// still need its outcome.
		go c.renew(context.WithoutCancel(ctx))
	} else {
		log.Debug("Waiting for the in-flight credential renewal")
	}

	select {
	case result := <-resultC:
		return result.cred, trace.Wrap(result.err)
	case <-ctx.Done():
		return Credential{}, trace.Wrap(ctx.Err())
	}
}

// State returns the current renewal state.
func (c *Coordinator) State() RenewalState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Waiting returns the number of callers queued on the in-flight renewal.
func (c *Coordinator) Waiting() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

func (c *Coordinator) renew(ctx context.Context) {
	log := logger.Get(ctx)

	cred, err := c.renewer.Renew(ctx)
	if err == nil && cred.IsZero() {
		err = trace.NotFound("renewal response carries no access token")
	}
	if err != nil {
		log.WithError(err).Warn("Credential renewal failed, ending the session")
		c.teardown.SessionExpired(ctx)
		cred, err = Credential{}, trace.Wrap(err, "credential renewal failed")
	} else {
		c.store.Set(cred)
		log.WithField("expires_at", cred.ExpiresAt).Debug("Credential renewed")
	}

	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.state = Idle
	c.episode = ""
	c.mu.Unlock()

	result := renewalResult{cred: cred, err: err}
	for _, resultC := range waiters {
		resultC <- result
	}
}
