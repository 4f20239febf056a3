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
	"time"
)

// Reason tells listeners why a session ended.
type Reason string

const (
	// ReasonExpired means the credential could not be renewed.
	ReasonExpired Reason = "expired"
	// ReasonLoggedOut means the user logged out.
	ReasonLoggedOut Reason = "logged_out"
)

// SessionEvent is delivered to listeners when a session ends.
type SessionEvent struct {
	Reason Reason
	UserID string
	Time   time.Time
}

// Listener is notified when a session ends.
type Listener func(context.Context, SessionEvent)

// Teardown ends sessions: it clears the store and notifies listeners once per
// session, however many requests observed the failure. A store that never
// held a session has nothing to end.
type Teardown struct {
	store *Store

	mu             sync.Mutex // protects the below fields
	listeners      []Listener
	lastGeneration uint64
}

// NewTeardown returns a Teardown clearing the given store.
func NewTeardown(store *Store) *Teardown {
	return &Teardown{store: store}
}

// Subscribe registers a listener. Listeners run in subscription order.
func (t *Teardown) Subscribe(listener Listener) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, listener)
}

// SessionExpired ends the session after a terminal renewal failure.
// It reports whether listeners were notified.
func (t *Teardown) SessionExpired(ctx context.Context) bool {
	return t.end(ctx, ReasonExpired)
}

// LoggedOut ends the session after an explicit logout.
func (t *Teardown) LoggedOut(ctx context.Context) bool {
	return t.end(ctx, ReasonLoggedOut)
}

func (t *Teardown) end(ctx context.Context, reason Reason) bool {
	t.mu.Lock()
	cred, generation := t.store.Clear()
	if generation == t.lastGeneration {
		// No session was started since the last teardown, or ever.
		t.mu.Unlock()
		return false
	}
	t.lastGeneration = generation
	listeners := append([]Listener(nil), t.listeners...)
	t.mu.Unlock()

	event := SessionEvent{
		Reason: reason,
		UserID: cred.UserID,
		Time:   t.store.Clock().Now(),
	}
	for _, listener := range listeners {
		listener(ctx, event)
	}
	return true
}
