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
	"sync"

	"github.com/jonboulle/clockwork"
)

// Store holds the current credential of a client.
type Store struct {
	clock clockwork.Clock

	lock       sync.RWMutex // protects the below fields
	cred       Credential
	generation uint64
}

// NewStore returns an empty credential store.
func NewStore(clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{clock: clock}
}

// Get returns the current credential, if any.
func (s *Store) Get() (Credential, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.cred, !s.cred.IsZero()
}

// Set replaces the current credential as a whole.
func (s *Store) Set(cred Credential) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.cred = cred
	s.generation++
}

// SetToken stores a freshly issued token observed now.
func (s *Store) SetToken(token, userID string) Credential {
	cred := NewCredential(token, userID, s.clock.Now())
	s.Set(cred)
	return cred
}

// Clear drops the credential and its expiry bookkeeping. It returns what the
// store held and the generation it belonged to.
func (s *Store) Clear() (Credential, uint64) {
	s.lock.Lock()
	defer s.lock.Unlock()
	cred := s.cred
	s.cred = Credential{}
	return cred, s.generation
}

// Generation counts the credentials ever set. Teardown uses it to tell one
// session apart from the next.
func (s *Store) Generation() uint64 {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.generation
}

// Clock returns the clock the store stamps credentials with.
func (s *Store) Clock() clockwork.Clock {
	return s.clock
}
