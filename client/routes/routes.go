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

// Package routes holds the canonical table of API routes that never carry a
// credential, and classifies outbound requests against it.
package routes

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gravitational/trace"
	"github.com/julienschmidt/httprouter"

	"github.com/gravitational/workspace-client/lib/stringset"
)

// Class is the security class of a request.
type Class int

const (
	// Protected requests carry the current credential. The zero value, so
	// anything not explicitly classified is protected.
	Protected Class = iota
	// Unauthenticated requests never carry or react to a credential.
	Unauthenticated
	// Public requests are readable by anyone and never carry a credential.
	Public
)

func (c Class) String() string {
	switch c {
	case Protected:
		return "protected"
	case Unauthenticated:
		return "unauthenticated"
	case Public:
		return "public"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// Category names an endpoint of the unauthenticated table.
type Category string

const (
	Login                Category = "login"
	Register             Category = "register"
	Refresh              Category = "refresh"
	Logout               Category = "logout"
	PasswordResetRequest Category = "password-reset-request"
	PasswordReset        Category = "password-reset"
	ValidateEmail        Category = "validate-email"
	ValidateUsername     Category = "validate-username"
)

// Route is one entry of the classification table. Path is an httprouter
// pattern relative to the API base path.
type Route struct {
	Category Category
	Method   string
	Path     string
	Class    Class
}

// ResourcePattern maps a path prefix onto a collaborative resource type. Param
// names the path parameter holding the resource id.
type ResourcePattern struct {
	Type  string
	Path  string
	Param string
}

// Resource identifies a collaborative resource addressed by a request.
type Resource struct {
	Type string
	ID   string
}

// DefaultRoutes returns the canonical unauthenticated/public route table.
func DefaultRoutes() []Route {
	return []Route{
		{Category: Login, Method: http.MethodPost, Path: "/auth/login", Class: Unauthenticated},
		{Category: Register, Method: http.MethodPost, Path: "/users", Class: Unauthenticated},
		{Category: Refresh, Method: http.MethodPost, Path: "/auth/refresh", Class: Unauthenticated},
		{Category: Logout, Method: http.MethodPost, Path: "/auth/logout", Class: Unauthenticated},
		{Category: PasswordResetRequest, Method: http.MethodPost, Path: "/auth/password-reset/request", Class: Unauthenticated},
		{Category: PasswordReset, Method: http.MethodPost, Path: "/auth/password-reset", Class: Unauthenticated},
		{Category: ValidateEmail, Method: http.MethodGet, Path: "/validate/email", Class: Public},
		{Category: ValidateUsername, Method: http.MethodGet, Path: "/validate/username", Class: Public},
	}
}

// DefaultResources returns the collaborative resources whose cache entries
// are evicted when access to them is revoked.
func DefaultResources() []ResourcePattern {
	return []ResourcePattern{
		{Type: "project", Path: "/projects/:id", Param: "id"},
	}
}

// Config configures a Classifier.
type Config struct {
	// BasePath is stripped from request paths before matching, e.g. "/api/v1".
	BasePath  string
	Routes    []Route
	Resources []ResourcePattern
}

// CheckAndSetDefaults validates the tables and fills in the defaults.
func (c *Config) CheckAndSetDefaults() error {
	c.BasePath = strings.TrimSuffix(c.BasePath, "/")
	if c.BasePath != "" && !strings.HasPrefix(c.BasePath, "/") {
		return trace.BadParameter("base path %q must start with /", c.BasePath)
	}
	if c.Routes == nil {
		c.Routes = DefaultRoutes()
	}
	if c.Resources == nil {
		c.Resources = DefaultResources()
	}

	seen := stringset.NewWithCap(len(c.Routes))
	for i := range c.Routes {
		route := &c.Routes[i]
		route.Method = strings.ToUpper(route.Method)
		if route.Method == "" {
			return trace.BadParameter("route %q has no method", route.Category)
		}
		if !strings.HasPrefix(route.Path, "/") {
			return trace.BadParameter("route %q path %q must start with /", route.Category, route.Path)
		}
		if route.Class == Protected {
			return trace.BadParameter("route %q: protected routes are implied and must not be listed", route.Category)
		}
		if key := route.Method + " " + route.Path; !seen.Insert(key) {
			return trace.BadParameter("duplicate route %s", key)
		}
	}

	for _, resource := range c.Resources {
		if resource.Type == "" {
			return trace.BadParameter("resource pattern %q has no type", resource.Path)
		}
		if !strings.HasPrefix(resource.Path, "/") {
			return trace.BadParameter("resource pattern %q must start with /", resource.Path)
		}
		if !strings.Contains(resource.Path, ":"+resource.Param) || resource.Param == "" {
			return trace.BadParameter("resource pattern %q does not bind parameter %q", resource.Path, resource.Param)
		}
	}
	return nil
}

type compiledRoute struct {
	Route
	router *httprouter.Router
}

type compiledResource struct {
	ResourcePattern
	depth  int
	router *httprouter.Router
}

// Classifier classifies requests against a fixed table. It is immutable after
// construction and safe for concurrent use.
type Classifier struct {
	basePath  string
	routes    []compiledRoute
	resources []compiledResource
}

// resourceMethod is the pseudo-method resource patterns are registered under:
// resource matching ignores the request method.
const resourceMethod = "RESOURCE"

func noopHandle(http.ResponseWriter, *http.Request, httprouter.Params) {}

// New compiles the tables of cfg.
func New(cfg Config) (classifier *Classifier, err error) {
	if err := cfg.CheckAndSetDefaults(); err != nil {
		return nil, trace.Wrap(err)
	}

	// httprouter reports malformed patterns by panicking.
	defer func() {
		if r := recover(); r != nil {
			classifier, err = nil, trace.BadParameter("invalid route table: %v", r)
		}
	}()

	classifier = &Classifier{basePath: cfg.BasePath}
	for _, route := range cfg.Routes {
		router := httprouter.New()
		router.Handle(route.Method, route.Path, noopHandle)
		classifier.routes = append(classifier.routes, compiledRoute{Route: route, router: router})
	}
	for _, resource := range cfg.Resources {
		router := httprouter.New()
		router.Handle(resourceMethod, resource.Path, noopHandle)
		classifier.resources = append(classifier.resources, compiledResource{
			ResourcePattern: resource,
			depth:           len(segments(resource.Path)),
			router:          router,
		})
	}
	return classifier, nil
}

// MustNew is New that panics on error. Meant for the default tables.
func MustNew(cfg Config) *Classifier {
	classifier, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return classifier
}

// Classify returns the class of a request. Paths outside the base path and
// paths not in the table are protected.
func (c *Classifier) Classify(method, path string) Class {
	if route, ok := c.Match(method, path); ok {
		return route.Class
	}
	return Protected
}

// Match returns the table entry for a request. Matching is exact at segment
// boundaries: trailing-slash variants and longer paths do not match.
func (c *Classifier) Match(method, path string) (Route, bool) {
	relative, ok := c.relative(path)
	if !ok {
		return Route{}, false
	}
	method = strings.ToUpper(method)
	for _, route := range c.routes {
		if handle, _, _ := route.router.Lookup(method, relative); handle != nil {
			return route.Route, true
		}
	}
	return Route{}, false
}

// Resource returns the collaborative resource a path addresses, matching
// resource patterns as path prefixes. The longest pattern wins.
func (c *Classifier) Resource(path string) (Resource, bool) {
	relative, ok := c.relative(path)
	if !ok {
		return Resource{}, false
	}
	parts := segments(relative)

	var (
		best      Resource
		bestDepth int
	)
	for _, resource := range c.resources {
		if resource.depth > len(parts) || resource.depth <= bestDepth {
			continue
		}
		prefix := "/" + strings.Join(parts[:resource.depth], "/")
		handle, params, _ := resource.router.Lookup(resourceMethod, prefix)
		if handle == nil {
			continue
		}
		if id := params.ByName(resource.Param); id != "" {
			best, bestDepth = Resource{Type: resource.Type, ID: id}, resource.depth
		}
	}
	return best, bestDepth > 0
}

func (c *Classifier) relative(path string) (string, bool) {
	if c.basePath == "" {
		return path, strings.HasPrefix(path, "/")
	}
	rest := strings.TrimPrefix(path, c.basePath)
	if len(rest) == len(path) || !strings.HasPrefix(rest, "/") {
		return "", false
	}
	return rest, true
}

func segments(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
