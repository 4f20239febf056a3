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

package stringset

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStringSet(t *testing.T) {
	set := New("POST /users", "POST /auth/login")
	require.True(t, set.Contains("POST /users"))
	require.False(t, set.Contains("GET /users"))

	require.True(t, set.Insert("GET /users"))
	require.False(t, set.Insert("GET /users"))
	require.Equal(t, []string{"GET /users", "POST /auth/login", "POST /users"}, set.Sorted())

	require.Nil(t, NewWithCap(4).Sorted())
}
