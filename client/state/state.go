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

// Package state persists a client session between process runs.
package state

import (
	"net/http"
	"os"
	"time"

	"github.com/gravitational/trace"
	"github.com/jonboulle/clockwork"
	jsoniter "github.com/json-iterator/go"
	"github.com/peterbourgon/diskv/v3"

	"github.com/gravitational/workspace-client/client/auth"
)

const (
	// cacheSizeMaxBytes max memory cache
	cacheSizeMaxBytes = 4096

	// sessionKey is the session record name
	sessionKey = "session"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Cookie is a persisted cookie of the API host, usually the refresh cookie.
type Cookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Path    string    `json:"path,omitempty"`
	Expires time.Time `json:"expires,omitempty"`
}

// Session is everything needed to resume a session in a new process.
type Session struct {
	UserID      string    `json:"user_id"`
	AccessToken string    `json:"access_token,omitempty"`
	IssuedAt    time.Time `json:"issued_at,omitempty"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
	Cookies     []Cookie  `json:"cookies,omitempty"`
	SavedAt     time.Time `json:"saved_at"`
}

// Credential returns the persisted credential, if the session carries one.
func (s *Session) Credential() (auth.Credential, bool) {
	if s.AccessToken == "" {
		return auth.Credential{}, false
	}
	return auth.Credential{
		Token:     s.AccessToken,
		UserID:    s.UserID,
		IssuedAt:  s.IssuedAt,
		ExpiresAt: s.ExpiresAt,
	}, true
}

// SetCredential records cred in the session.
func (s *Session) SetCredential(cred auth.Credential) {
	s.AccessToken = cred.Token
	s.IssuedAt = cred.IssuedAt
	s.ExpiresAt = cred.ExpiresAt
	if cred.UserID != "" {
		s.UserID = cred.UserID
	}
}

// HTTPCookies converts the persisted cookies, dropping expired ones.
func (s *Session) HTTPCookies(now time.Time) []*http.Cookie {
	var cookies []*http.Cookie
	for _, c := range s.Cookies {
		if !c.Expires.IsZero() && !now.Before(c.Expires) {
			continue
		}
		path := c.Path
		if path == "" {
			path = "/"
		}
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: path, Expires: c.Expires})
	}
	return cookies
}

// SetHTTPCookies replaces the persisted cookies.
func (s *Session) SetHTTPCookies(cookies []*http.Cookie) {
	s.Cookies = s.Cookies[:0]
	for _, c := range cookies {
		s.Cookies = append(s.Cookies, Cookie{Name: c.Name, Value: c.Value, Path: c.Path, Expires: c.Expires})
	}
}

// Config configures the state storage.
type Config struct {
	// Dir is the storage directory.
	Dir string
	// Clock stamps saved sessions.
	Clock clockwork.Clock
}

// CheckAndSetDefaults validates the config.
func (c *Config) CheckAndSetDefaults() error {
	if c.Dir == "" {
		return trace.BadParameter("missing state directory")
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	return nil
}

// State is the session repository.
type State struct {
	// dv is a diskv instance
	dv    *diskv.Diskv
	clock clockwork.Clock
}

// New opens the state directory, creating it when missing.
func New(cfg Config) (*State, error) {
	if err := cfg.CheckAndSetDefaults(); err != nil {
		return nil, trace.Wrap(err)
	}
	if err := os.MkdirAll(cfg.Dir, 0700); err != nil {
		return nil, trace.ConvertSystemError(err)
	}

	// Simplest transform function: put all the data files into the base dir.
	flatTransform := func(s string) []string { return []string{} }

	dv := diskv.New(diskv.Options{
		BasePath:     cfg.Dir,
		Transform:    flatTransform,
		CacheSizeMax: cacheSizeMaxBytes,
		FilePerm:     0600,
		PathPerm:     0700,
	})
	return &State{dv: dv, clock: cfg.Clock}, nil
}

// GetSession returns the persisted session or a NotFound error.
func (s *State) GetSession() (*Session, error) {
	if !s.dv.Has(sessionKey) {
		return nil, trace.NotFound("no saved session")
	}
	b, err := s.dv.Read(sessionKey)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	var session Session
	if err := json.Unmarshal(b, &session); err != nil {
		return nil, trace.Wrap(err, "corrupted session state")
	}
	return &session, nil
}

// PutSession persists the session.
func (s *State) PutSession(session *Session) error {
	session.SavedAt = s.clock.Now().UTC()
	b, err := json.Marshal(session)
	if err != nil {
		return trace.Wrap(err)
	}
	return trace.Wrap(s.dv.Write(sessionKey, b))
}

// ClearSession removes the persisted session. Clearing an empty state is not
// an error.
func (s *State) ClearSession() error {
	if !s.dv.Has(sessionKey) {
		return nil
	}
	return trace.Wrap(s.dv.Erase(sessionKey))
}
