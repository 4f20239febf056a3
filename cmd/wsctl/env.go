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

package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gravitational/trace"
	"github.com/jonboulle/clockwork"
	"github.com/manifoldco/promptui"
	"github.com/redis/go-redis/v9"

	"github.com/gravitational/workspace-client/client"
	"github.com/gravitational/workspace-client/client/auth"
	"github.com/gravitational/workspace-client/client/cache"
	"github.com/gravitational/workspace-client/client/state"
	"github.com/gravitational/workspace-client/lib/logger"
)

// Prompter asks the user for input.
type Prompter interface {
	Prompt(label string, mask bool, validate func(string) error) (string, error)
	Confirm(label string) bool
}

type terminalPrompter struct{}

func (terminalPrompter) Prompt(label string, mask bool, validate func(string) error) (string, error) {
	prompt := promptui.Prompt{
		Label:    label,
		Validate: validate,
	}
	if mask {
		prompt.Mask = '*'
	}
	result, err := prompt.Run()
	return result, trace.Wrap(err)
}

func (terminalPrompter) Confirm(label string) bool {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	result, err := prompt.Run()
	if err != nil {
		return false
	}
	return result == "y"
}

// Env is what every command runs with.
type Env struct {
	Ctx      context.Context
	Globals  *Globals
	Out      io.Writer
	ErrOut   io.Writer
	Prompter Prompter
	Clock    clockwork.Clock
}

func (e *Env) now() time.Time {
	if e.Clock == nil {
		return time.Now()
	}
	return e.Clock.Now()
}

// session is a client bound to the persisted session.
type session struct {
	*client.Client
	state   *state.State
	closers []func() error
}

// openSession builds a client and restores the persisted session into it.
func (e *Env) openSession() (*session, error) {
	st, err := state.New(state.Config{Dir: e.Globals.StorageDir, Clock: e.Clock})
	if err != nil {
		return nil, trace.Wrap(err)
	}
	s := &session{state: st}

	var resourceCache cache.Cache
	if addr := e.Globals.CacheRedisAddr; addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		s.closers = append(s.closers, rdb.Close)
		resourceCache, err = cache.NewRedis(cache.RedisConfig{
			Client: rdb,
			Prefix: e.Globals.CacheRedisPrefix,
			TTL:    e.Globals.CacheTTL,
		})
		if err != nil {
			s.close()
			return nil, trace.Wrap(err)
		}
	}

	s.Client, err = client.New(client.Config{
		BaseURL: e.Globals.ServerURL,
		Timeout: e.Globals.ServerTimeout,
		RateLimit: client.RateLimitConfig{
			Requests: e.Globals.ServerRateLimit,
			Interval: e.Globals.ServerRateInterval,
		},
		Cache: resourceCache,
		Clock: e.Clock,
	})
	if err != nil {
		s.close()
		return nil, trace.Wrap(err)
	}
	s.closers = append(s.closers, func() error { return s.Client.Close(context.Background()) })
	s.OnSessionEnded(e.sessionEnded(st))

	saved, err := st.GetSession()
	switch {
	case trace.IsNotFound(err):
		return s, nil
	case err != nil:
		s.close()
		return nil, trace.Wrap(err)
	}
	cred, _ := saved.Credential()
	if err := s.RestoreSession(e.Ctx, cred, saved.HTTPCookies(e.now())); err != nil {
		logger.Get(e.Ctx).WithError(err).Warn("Failed to open the resource cache")
	}
	return s, nil
}

func (e *Env) sessionEnded(st *state.State) auth.Listener {
	return func(ctx context.Context, event auth.SessionEvent) {
		if event.Reason == auth.ReasonExpired {
			fmt.Fprintln(e.ErrOut, "Your session has expired. Run 'wsctl login' to sign in again.")
		}
		if err := st.ClearSession(); err != nil {
			logger.Get(ctx).WithError(err).Warn("Failed to clear the saved session")
		}
	}
}

// save persists the current credential and refresh cookie. Nothing is saved
// once the session has ended.
func (s *session) save() error {
	cred, ok := s.Credential()
	if !ok {
		return nil
	}
	saved := &state.Session{}
	saved.SetCredential(cred)
	saved.SetHTTPCookies(s.Cookies())
	return trace.Wrap(s.state.PutSession(saved))
}

func (s *session) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			logger.Standard().WithError(err).Debug("Failed to close session resource")
		}
	}
}

// withSession runs fn with a restored session and saves the session after,
// since fn may have renewed the credential.
func (e *Env) withSession(fn func(s *session) error) error {
	s, err := e.openSession()
	if err != nil {
		return trace.Wrap(err)
	}
	defer s.close()

	err = fn(s)
	if saveErr := s.save(); saveErr != nil {
		return trace.NewAggregate(err, saveErr)
	}
	return trace.Wrap(err)
}
