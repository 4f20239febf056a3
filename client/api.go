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

	"github.com/gravitational/trace"

	"github.com/gravitational/workspace-client/lib"
	"github.com/gravitational/workspace-client/lib/logger"
)

const projectKind = "project"

// Account returns the signed-in user.
func (c *Client) Account(ctx context.Context) (*User, error) {
	var user User
	_, err := c.client.R().
		SetContext(ctx).
		SetResult(&user).
		Get("/account")
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return &user, nil
}

func (c *Client) GetUser(ctx context.Context, id string) (*User, error) {
	var user User
	_, err := c.client.R().
		SetContext(ctx).
		SetResult(&user).
		Get(lib.BuildURLPath("users", id))
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return &user, nil
}

func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var result ProjectList
	_, err := c.client.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/projects")
	if err != nil {
		return nil, trace.Wrap(err)
	}
	for _, project := range result.Projects {
		c.cachePut(ctx, project.ID, project)
	}
	return result.Projects, nil
}

// GetProject fetches a project and refreshes its cached copy. A revoked
// project fails with KindForbiddenResource and is evicted from the cache.
func (c *Client) GetProject(ctx context.Context, id string) (*Project, error) {
	var project Project
	_, err := c.client.R().
		SetContext(ctx).
		SetResult(&project).
		Get(lib.BuildURLPath("projects", id))
	if err != nil {
		return nil, trace.Wrap(err)
	}
	c.cachePut(ctx, project.ID, project)
	return &project, nil
}

// CachedProject returns the last fetched copy of a project, if any.
func (c *Client) CachedProject(ctx context.Context, id string) (*Project, bool, error) {
	data, ok, err := c.cache.Get(ctx, projectKind, id)
	if err != nil || !ok {
		return nil, false, trace.Wrap(err)
	}
	var project Project
	if err := json.Unmarshal(data, &project); err != nil {
		return nil, false, trace.Wrap(err)
	}
	return &project, true, nil
}

func (c *Client) CreateProject(ctx context.Context, req CreateProjectRequest) (*Project, error) {
	var project Project
	_, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&project).
		Post("/projects")
	if err != nil {
		return nil, trace.Wrap(err)
	}
	c.cachePut(ctx, project.ID, project)
	return &project, nil
}

func (c *Client) DeleteProject(ctx context.Context, id string) error {
	_, err := c.client.R().
		SetContext(ctx).
		Delete(lib.BuildURLPath("projects", id))
	if err != nil {
		return trace.Wrap(err)
	}
	return trace.Wrap(c.cache.Evict(ctx, projectKind, id))
}

// ListMembers returns the members of a project.
func (c *Client) ListMembers(ctx context.Context, projectID string) ([]Member, error) {
	var result MemberList
	_, err := c.client.R().
		SetContext(ctx).
		SetResult(&result).
		Get(lib.BuildURLPath("projects", projectID, "members"))
	if err != nil {
		return nil, trace.Wrap(err)
	}
	c.cachePut(ctx, projectID+"/members", result.Members)
	return result.Members, nil
}

// cachePut stores a copy of a project resource. Cache failures never fail
// the call.
func (c *Client) cachePut(ctx context.Context, id string, value interface{}) {
	data, err := json.Marshal(value)
	if err == nil {
		err = c.cache.Put(ctx, projectKind, id, data)
	}
	if err != nil {
		logger.Get(ctx).WithError(err).WithField("project_id", id).Warn("Failed to cache project")
	}
}
