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

package testing

import (
	"context"
	"os"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/gravitational/workspace-client/lib/logger"
)

// Suite is a testify suite with per-test contexts.
type Suite struct {
	suite.Suite
	clientCtx context.Context
	ctx       context.Context
}

// Closer is a test fixture released at the end of a test.
type Closer interface {
	Close()
}

// SetContext sets the per-test contexts. ClientCtx outlives Ctx a little so
// test assertions time out before the client calls they wait for.
func (s *Suite) SetContext(timeout time.Duration) (context.Context, context.Context) {
	t := s.T()
	t.Helper()

	require.Nil(t, s.clientCtx, "Context cannot be set twice")

	ctx, _ := logger.WithField(context.Background(), "test", t.Name())
	clientCtx, clientCancel := context.WithTimeout(ctx, timeout+100*time.Millisecond)
	ctx, cancel := context.WithTimeout(clientCtx, timeout)
	t.Cleanup(func() {
		cancel()
		clientCancel()
		s.clientCtx = nil
		s.ctx = nil
	})
	s.clientCtx, s.ctx = clientCtx, ctx
	return clientCtx, ctx
}

// ClientCtx is the context for client calls made by the test.
func (s *Suite) ClientCtx() context.Context {
	if ctx := s.clientCtx; ctx != nil {
		return ctx
	}
	ctx, _ := s.SetContext(5 * time.Second)
	return ctx
}

// Ctx is the context for test assertions.
func (s *Suite) Ctx() context.Context {
	t := s.T()
	t.Helper()

	if ctx := s.ctx; ctx != nil {
		return ctx
	}
	_, ctx := s.SetContext(5 * time.Second)
	return ctx
}

// NewTmpDir creates a directory removed at the end of the test.
func (s *Suite) NewTmpDir(pattern string) string {
	t := s.T()
	t.Helper()

	dir, err := os.MkdirTemp("", pattern)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, os.RemoveAll(dir))
	})
	return dir
}

// Track closes the fixture at the end of the test.
func (s *Suite) Track(fixture Closer) {
	s.T().Cleanup(fixture.Close)
}
