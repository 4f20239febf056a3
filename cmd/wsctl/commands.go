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
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gravitational/trace"
	"github.com/olekukonko/tablewriter"

	"github.com/gravitational/workspace-client/client"
	"github.com/gravitational/workspace-client/lib"
)

const exampleConfig = `# Example wsctl configuration file
[server]
url = "https://workspace.example.com/api/v1"
timeout = "10s"
# rate-limit = 20
# rate-interval = "1s"

[storage]
dir = "~/.wsctl"

[cache]
# redis-addr = "localhost:6379"
redis-prefix = "wsctl"
ttl = "24h"

[log]
output = "stderr" # Logger output. Could be "stdout", "stderr" or "/var/lib/wsctl/wsctl.log"
severity = "warn" # Logger severity. Could be "info", "error", "debug" or "warn".
`

const timeFormat = time.RFC3339

func (c *VersionCmd) Run(env *Env) error {
	lib.PrintVersion(env.Out, appName, Version, Gitref)
	return nil
}

func (c *ConfigureCmd) Run(env *Env) error {
	if c.Out == "" {
		fmt.Fprint(env.Out, exampleConfig)
		return nil
	}
	if err := os.WriteFile(c.Out, []byte(exampleConfig), 0600); err != nil {
		return trace.ConvertSystemError(err)
	}
	fmt.Fprintf(env.Out, "Wrote example configuration to %s\n", c.Out)
	return nil
}

func (c *LoginCmd) Run(env *Env) error {
	username, err := env.ask(c.Username, "Username", false, notEmpty)
	if err != nil {
		return trace.Wrap(err)
	}
	password, err := env.ask(c.Password, "Password", true, notEmpty)
	if err != nil {
		return trace.Wrap(err)
	}
	return env.withSession(func(s *session) error {
		if _, err := s.Login(env.Ctx, client.LoginRequest{Username: username, Password: password}); err != nil {
			return trace.Wrap(err)
		}
		fmt.Fprintf(env.Out, "Logged in as %s.\n", username)
		return nil
	})
}

func (c *RegisterCmd) Run(env *Env) error {
	username, err := env.ask(c.Username, "Username", false, notEmpty)
	if err != nil {
		return trace.Wrap(err)
	}
	email, err := env.ask(c.Email, "Email", false, lib.CheckEmail)
	if err != nil {
		return trace.Wrap(err)
	}
	password, err := env.ask(c.Password, "Password", true, notEmpty)
	if err != nil {
		return trace.Wrap(err)
	}
	return env.withSession(func(s *session) error {
		available, err := s.ValidateUsername(env.Ctx, username)
		if err != nil {
			return trace.Wrap(err)
		}
		if !available {
			return trace.AlreadyExists("username %q is taken", username)
		}
		if available, err = s.ValidateEmail(env.Ctx, email); err != nil {
			return trace.Wrap(err)
		}
		if !available {
			return trace.AlreadyExists("email %q is already registered", email)
		}
		if _, err := s.Register(env.Ctx, client.RegisterRequest{Username: username, Email: email, Password: password}); err != nil {
			return trace.Wrap(err)
		}
		fmt.Fprintf(env.Out, "Registered and logged in as %s.\n", username)
		return nil
	})
}

func (c *LogoutCmd) Run(env *Env) error {
	return env.withSession(func(s *session) error {
		if err := s.Logout(env.Ctx); err != nil {
			fmt.Fprintln(env.ErrOut, "Could not reach the server, the local session was cleared.")
			return trace.Wrap(err)
		}
		fmt.Fprintln(env.Out, "Logged out.")
		return nil
	})
}

func (c *StatusCmd) Run(env *Env) error {
	return env.withSession(func(s *session) error {
		table := newTable(env, "Property", "Value")
		table.Append([]string{"Server", env.Globals.ServerURL})

		cred, hasCred := s.Credential()
		hasCookie := len(s.Cookies()) > 0
		if !hasCred && !hasCookie {
			table.Append([]string{"Session", "none"})
			table.Render()
			return nil
		}

		if hasCred {
			table.Append([]string{"Access expires", cred.ExpiresAt.Format(timeFormat)})
		}
		table.Append([]string{"Refresh cookie", yesNo(hasCookie)})

		account, err := s.Account(env.Ctx)
		switch {
		case client.IsSessionTerminated(err):
			table.Append([]string{"Session", "expired"})
		case err != nil:
			return trace.Wrap(err)
		default:
			table.Append([]string{"Session", "active"})
			table.Append([]string{"User", account.Username})
			table.Append([]string{"User ID", account.ID})
		}
		table.Render()
		return nil
	})
}

func (c *ProjectsListCmd) Run(env *Env) error {
	return env.withSession(func(s *session) error {
		projects, err := s.ListProjects(env.Ctx)
		if err != nil {
			return trace.Wrap(err)
		}
		table := newTable(env, "ID", "Name", "Owner", "Created")
		for _, project := range projects {
			table.Append([]string{project.ID, project.Name, project.OwnerID, project.CreatedAt.Format(timeFormat)})
		}
		table.Render()
		return nil
	})
}

func (c *ProjectsGetCmd) Run(env *Env) error {
	return env.withSession(func(s *session) error {
		var project *client.Project
		if c.Cached {
			cached, ok, err := s.CachedProject(env.Ctx, c.ID)
			if err != nil {
				return trace.Wrap(err)
			}
			if !ok {
				return trace.NotFound("project %q is not cached", c.ID)
			}
			project = cached
		} else {
			fetched, err := s.GetProject(env.Ctx, c.ID)
			if err != nil {
				return trace.Wrap(err)
			}
			project = fetched
		}
		printProject(env, project)
		return nil
	})
}

func (c *ProjectsCreateCmd) Run(env *Env) error {
	return env.withSession(func(s *session) error {
		project, err := s.CreateProject(env.Ctx, client.CreateProjectRequest{Name: c.Name, Description: c.Description})
		if err != nil {
			return trace.Wrap(err)
		}
		printProject(env, project)
		return nil
	})
}

func (c *ProjectsDeleteCmd) Run(env *Env) error {
	if !c.Yes && !env.Prompter.Confirm(fmt.Sprintf("Delete project %s", c.ID)) {
		return trace.CompareFailed("deletion of project %q was not confirmed", c.ID)
	}
	return env.withSession(func(s *session) error {
		if err := s.DeleteProject(env.Ctx, c.ID); err != nil {
			return trace.Wrap(err)
		}
		fmt.Fprintf(env.Out, "Deleted project %s.\n", c.ID)
		return nil
	})
}

func (c *ProjectsMembersCmd) Run(env *Env) error {
	return env.withSession(func(s *session) error {
		members, err := s.ListMembers(env.Ctx, c.ID)
		if err != nil {
			return trace.Wrap(err)
		}
		table := newTable(env, "User ID", "Role")
		for _, member := range members {
			table.Append([]string{member.UserID, member.Role})
		}
		table.Render()
		return nil
	})
}

func (c *UsersGetCmd) Run(env *Env) error {
	return env.withSession(func(s *session) error {
		user, err := s.GetUser(env.Ctx, c.ID)
		if err != nil {
			return trace.Wrap(err)
		}
		table := newTable(env, "Property", "Value")
		table.Append([]string{"ID", user.ID})
		table.Append([]string{"Username", user.Username})
		table.Render()
		return nil
	})
}

// ask returns value, prompting for it when empty.
func (e *Env) ask(value, label string, mask bool, validate func(string) error) (string, error) {
	if value != "" {
		return value, trace.Wrap(validate(value))
	}
	if e.Prompter == nil {
		return "", trace.BadParameter("%s is required", strings.ToLower(label))
	}
	value, err := e.Prompter.Prompt(label, mask, validate)
	return strings.TrimSpace(value), trace.Wrap(err)
}

func notEmpty(value string) error {
	if strings.TrimSpace(value) == "" {
		return trace.BadParameter("value is required")
	}
	return nil
}

func newTable(env *Env, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(env.Out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	table.SetCenterSeparator("|")
	return table
}

func printProject(env *Env, project *client.Project) {
	table := newTable(env, "Property", "Value")
	table.Append([]string{"ID", project.ID})
	table.Append([]string{"Name", project.Name})
	if project.Description != "" {
		table.Append([]string{"Description", project.Description})
	}
	table.Append([]string{"Owner", project.OwnerID})
	table.Append([]string{"Created", project.CreatedAt.Format(timeFormat)})
	table.Render()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
