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
	"time"

	"github.com/alecthomas/kong"
)

const (
	appName        = "wsctl"
	appDescription = "Command line client for the workspace API"
)

// ServerConfig describes the API server.
type ServerConfig struct {
	// ServerURL is the API base URL
	ServerURL string `help:"Workspace API base URL" name:"server-url" default:"https://localhost:8443/api/v1" env:"WSCTL_SERVER_URL"`

	// ServerTimeout bounds every HTTP exchange
	ServerTimeout time.Duration `help:"HTTP request timeout" name:"server-timeout" default:"10s" env:"WSCTL_SERVER_TIMEOUT"`

	// ServerRateLimit is the number of requests allowed per ServerRateInterval
	ServerRateLimit uint64 `help:"Requests per rate interval, 0 disables throttling" name:"server-rate-limit" default:"0" env:"WSCTL_SERVER_RATE_LIMIT"`

	// ServerRateInterval is the throttling interval
	ServerRateInterval time.Duration `help:"Rate limit interval" name:"server-rate-interval" default:"1s" env:"WSCTL_SERVER_RATE_INTERVAL"`
}

// StorageConfig describes where the session is kept between runs.
type StorageConfig struct {
	StorageDir string `help:"Session storage directory" name:"storage-dir" type:"path" default:"~/.wsctl" env:"WSCTL_STORAGE_DIR"`
}

// CacheConfig describes the resource cache.
type CacheConfig struct {
	// CacheRedisAddr enables the Redis cache, the cache is in-memory otherwise
	CacheRedisAddr   string        `help:"Redis address of the resource cache" name:"cache-redis-addr" env:"WSCTL_CACHE_REDIS_ADDR"`
	CacheRedisPrefix string        `help:"Redis key prefix" name:"cache-redis-prefix" default:"wsctl" env:"WSCTL_CACHE_REDIS_PREFIX"`
	CacheTTL         time.Duration `help:"Cached resource TTL" name:"cache-ttl" default:"24h" env:"WSCTL_CACHE_TTL"`
}

// LogConfig describes logging.
type LogConfig struct {
	LogOutput   string `help:"Log output: stderr, stdout or a file path" name:"log-output" default:"stderr" env:"WSCTL_LOG_OUTPUT"`
	LogSeverity string `help:"Log severity" name:"log-severity" default:"warn" env:"WSCTL_LOG_SEVERITY"`
}

// Globals are the flags shared by every command.
type Globals struct {
	// Config is the path to configuration file
	Config kong.ConfigFlag `help:"Path to TOML configuration file" optional:"true" type:"existingfile" env:"WSCTL_CONFIG"`

	// Debug is a debug logging mode flag
	Debug bool `help:"Debug logging" short:"d"`

	ServerConfig
	StorageConfig
	CacheConfig
	LogConfig
}

// LoginCmd signs in.
type LoginCmd struct {
	Username string `help:"Username, prompted when empty" short:"u"`
	Password string `help:"Password, prompted when empty" env:"WSCTL_PASSWORD"`
}

// RegisterCmd creates an account and signs in.
type RegisterCmd struct {
	Username string `help:"Username, prompted when empty" short:"u"`
	Email    string `help:"Email, prompted when empty"`
	Password string `help:"Password, prompted when empty" env:"WSCTL_PASSWORD"`
}

// LogoutCmd signs out.
type LogoutCmd struct{}

// StatusCmd prints the session status.
type StatusCmd struct{}

// VersionCmd prints the version.
type VersionCmd struct{}

// ConfigureCmd prints an example configuration.
type ConfigureCmd struct {
	Out string `arg:"true" optional:"true" help:"Write the configuration to this file instead of stdout" type:"path"`
}

// ProjectsListCmd lists projects.
type ProjectsListCmd struct{}

// ProjectsGetCmd prints a project.
type ProjectsGetCmd struct {
	ID     string `arg:"true" required:"true" help:"Project id"`
	Cached bool   `help:"Print the cached copy without calling the API"`
}

// ProjectsCreateCmd creates a project.
type ProjectsCreateCmd struct {
	Name        string `arg:"true" required:"true" help:"Project name"`
	Description string `help:"Project description"`
}

// ProjectsDeleteCmd deletes a project.
type ProjectsDeleteCmd struct {
	ID  string `arg:"true" required:"true" help:"Project id"`
	Yes bool   `help:"Do not ask for confirmation" short:"y"`
}

// ProjectsMembersCmd lists project members.
type ProjectsMembersCmd struct {
	ID string `arg:"true" required:"true" help:"Project id"`
}

// ProjectsCmd groups the project commands.
type ProjectsCmd struct {
	List    ProjectsListCmd    `cmd:"true" help:"List projects"`
	Get     ProjectsGetCmd     `cmd:"true" help:"Print a project"`
	Create  ProjectsCreateCmd  `cmd:"true" help:"Create a project"`
	Delete  ProjectsDeleteCmd  `cmd:"true" help:"Delete a project"`
	Members ProjectsMembersCmd `cmd:"true" help:"List project members"`
}

// UsersGetCmd prints a user.
type UsersGetCmd struct {
	ID string `arg:"true" required:"true" help:"User id"`
}

// UsersCmd groups the user commands.
type UsersCmd struct {
	Get UsersGetCmd `cmd:"true" help:"Print a user"`
}

// CLI represents command structure
type CLI struct {
	Globals

	Version   VersionCmd   `cmd:"true" help:"Print wsctl version"`
	Configure ConfigureCmd `cmd:"true" help:"Print an example TOML configuration"`
	Login     LoginCmd     `cmd:"true" help:"Sign in"`
	Register  RegisterCmd  `cmd:"true" help:"Create an account and sign in"`
	Logout    LogoutCmd    `cmd:"true" help:"Sign out"`
	Status    StatusCmd    `cmd:"true" help:"Print the session status"`
	Projects  ProjectsCmd  `cmd:"true" help:"Manage projects"`
	Users     UsersCmd     `cmd:"true" help:"Look up users"`
}

func newParser(cli *CLI, options ...kong.Option) (*kong.Kong, error) {
	return kong.New(cli, append([]kong.Option{
		kong.UsageOnError(),
		kong.Configuration(KongTOMLResolver),
		kong.Name(appName),
		kong.Description(appDescription),
	}, options...)...)
}
