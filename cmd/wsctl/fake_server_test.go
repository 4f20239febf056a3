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
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/gravitational/workspace-client/client"
)

const (
	fakePassword   = "secret"
	fakeRefreshKey = "refresh_token"
)

// fakeServer is a minimal workspace API for command tests.
type fakeServer struct {
	srv *httptest.Server

	mu          sync.Mutex // protects the below fields
	users       map[string]client.User
	tokens      map[string]string
	refresh     map[string]string
	projects    map[string]client.Project
	tokenSeq    int
	refreshDown bool
}

func newFakeServer() *fakeServer {
	router := httprouter.New()
	f := &fakeServer{
		srv:     httptest.NewServer(router),
		users:   map[string]client.User{"alice": {ID: "u1", Username: "alice", Email: "alice@example.com"}},
		tokens:  make(map[string]string),
		refresh: make(map[string]string),
		projects: map[string]client.Project{
			"p1": {ID: "p1", Name: "Roadmap", OwnerID: "u1", CreatedAt: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)},
		},
	}

	router.POST("/api/v1/auth/login", func(rw http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req client.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		user, ok := f.users[req.Username]
		f.mu.Unlock()
		if !ok || req.Password != fakePassword {
			reply(rw, http.StatusUnauthorized, map[string]string{"detail": "Invalid username or password."})
			return
		}
		f.startSession(rw, user.ID)
	})
	router.POST("/api/v1/users", func(rw http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req client.RegisterRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		user := client.User{ID: fmt.Sprintf("u%d", len(f.users)+1), Username: req.Username, Email: req.Email}
		f.users[req.Username] = user
		f.mu.Unlock()
		f.startSession(rw, user.ID)
	})
	router.POST("/api/v1/auth/refresh", func(rw http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		cookie, err := r.Cookie(fakeRefreshKey)
		f.mu.Lock()
		down := f.refreshDown
		userID, ok := "", false
		if err == nil {
			userID, ok = f.refresh[cookie.Value]
		}
		f.mu.Unlock()
		if down || !ok {
			reply(rw, http.StatusUnauthorized, map[string]string{"detail": "Refresh token expired."})
			return
		}
		reply(rw, http.StatusOK, client.AuthResult{AccessToken: f.issue(userID), UserID: userID})
	})
	router.POST("/api/v1/auth/logout", func(rw http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		http.SetCookie(rw, &http.Cookie{Name: fakeRefreshKey, Path: "/", MaxAge: -1})
		rw.WriteHeader(http.StatusNoContent)
	})
	router.GET("/api/v1/validate/username", func(rw http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		f.mu.Lock()
		_, taken := f.users[r.URL.Query().Get("username")]
		f.mu.Unlock()
		reply(rw, http.StatusOK, client.AvailabilityResult{Available: !taken})
	})
	router.GET("/api/v1/validate/email", func(rw http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		reply(rw, http.StatusOK, client.AvailabilityResult{Available: true})
	})
	router.GET("/api/v1/account", f.authenticated(func(rw http.ResponseWriter, _ *http.Request, _ httprouter.Params, userID string) {
		f.mu.Lock()
		defer f.mu.Unlock()
		for _, user := range f.users {
			if user.ID == userID {
				reply(rw, http.StatusOK, user)
				return
			}
		}
		reply(rw, http.StatusNotFound, map[string]string{"detail": "User not found."})
	}))
	router.GET("/api/v1/users/:id", f.authenticated(func(rw http.ResponseWriter, _ *http.Request, ps httprouter.Params, _ string) {
		f.mu.Lock()
		defer f.mu.Unlock()
		for _, user := range f.users {
			if user.ID == ps.ByName("id") {
				reply(rw, http.StatusOK, user)
				return
			}
		}
		reply(rw, http.StatusNotFound, map[string]string{"detail": "User not found."})
	}))
	router.GET("/api/v1/projects", f.authenticated(func(rw http.ResponseWriter, _ *http.Request, _ httprouter.Params, _ string) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var list client.ProjectList
		for _, project := range f.projects {
			list.Projects = append(list.Projects, project)
		}
		reply(rw, http.StatusOK, list)
	}))
	router.POST("/api/v1/projects", f.authenticated(func(rw http.ResponseWriter, r *http.Request, _ httprouter.Params, userID string) {
		var req client.CreateProjectRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		reply(rw, http.StatusCreated, f.addProject(req.Name, userID))
	}))
	router.GET("/api/v1/projects/:id", f.authenticated(func(rw http.ResponseWriter, _ *http.Request, ps httprouter.Params, _ string) {
		f.mu.Lock()
		project, ok := f.projects[ps.ByName("id")]
		f.mu.Unlock()
		if !ok {
			reply(rw, http.StatusNotFound, map[string]string{"detail": "Project not found."})
			return
		}
		reply(rw, http.StatusOK, project)
	}))
	router.DELETE("/api/v1/projects/:id", f.authenticated(func(rw http.ResponseWriter, _ *http.Request, ps httprouter.Params, _ string) {
		f.mu.Lock()
		delete(f.projects, ps.ByName("id"))
		f.mu.Unlock()
		rw.WriteHeader(http.StatusNoContent)
	}))
	router.GET("/api/v1/projects/:id/members", f.authenticated(func(rw http.ResponseWriter, _ *http.Request, ps httprouter.Params, _ string) {
		reply(rw, http.StatusOK, client.MemberList{Members: []client.Member{{UserID: "u1", Role: "owner"}}})
	}))

	return f
}

func (f *fakeServer) URL() string {
	return f.srv.URL + "/api/v1"
}

func (f *fakeServer) Close() {
	f.srv.Close()
}

func (f *fakeServer) expireTokens() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = make(map[string]string)
}

func (f *fakeServer) breakRefresh() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshDown = true
}

func (f *fakeServer) addProject(name, ownerID string) client.Project {
	f.mu.Lock()
	defer f.mu.Unlock()
	project := client.Project{
		ID:        fmt.Sprintf("p%d", len(f.projects)+1),
		Name:      name,
		OwnerID:   ownerID,
		CreatedAt: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
	}
	f.projects[project.ID] = project
	return project
}

func (f *fakeServer) issue(userID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokenSeq++
	token := fmt.Sprintf("T%d", f.tokenSeq)
	f.tokens[token] = userID
	return token
}

func (f *fakeServer) startSession(rw http.ResponseWriter, userID string) {
	f.mu.Lock()
	value := fmt.Sprintf("refresh-%s-%d", userID, len(f.refresh)+1)
	f.refresh[value] = userID
	f.mu.Unlock()
	http.SetCookie(rw, &http.Cookie{Name: fakeRefreshKey, Value: value, Path: "/"})
	reply(rw, http.StatusOK, client.AuthResult{AccessToken: f.issue(userID), UserID: userID})
}

func (f *fakeServer) authenticated(handle func(rw http.ResponseWriter, r *http.Request, ps httprouter.Params, userID string)) httprouter.Handle {
	return func(rw http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		f.mu.Lock()
		userID, ok := f.tokens[strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")]
		f.mu.Unlock()
		if !ok {
			reply(rw, http.StatusUnauthorized, map[string]string{"detail": "Access token expired."})
			return
		}
		handle(rw, r, ps, userID)
	}
}

func reply(rw http.ResponseWriter, status int, value interface{}) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(value)
}
