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
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/julienschmidt/httprouter"
	log "github.com/sirupsen/logrus"
)

const (
	fakeBasePath      = "/api/v1"
	refreshCookieName = "refresh_token"
)

type refreshMode int

const (
	refreshOK refreshMode = iota
	refreshRejected
	refreshAborted
)

type fakeUser struct {
	User
	password string
}

type recordedRequest struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
	Body          string
}

// FakeWorkspace is an in-process workspace API.
type FakeWorkspace struct {
	srv *httptest.Server

	refreshCalls   atomic.Int32
	refreshStarted chan struct{}

	mu              sync.Mutex // protects the below fields
	users           map[string]fakeUser
	tokens          map[string]string
	refreshTokens   map[string]string
	projects        map[string]Project
	members         map[string][]Member
	forbidden       map[string]bool
	queuedTokens    []string
	tokenSeq        int
	rejectAllTokens bool
	refreshMode     refreshMode
	refreshGate     chan struct{}
	requests        []recordedRequest
}

func NewFakeWorkspace() *FakeWorkspace {
	router := httprouter.New()
	f := &FakeWorkspace{
		refreshStarted: make(chan struct{}, 100),
		users:          make(map[string]fakeUser),
		tokens:         make(map[string]string),
		refreshTokens:  make(map[string]string),
		projects:       make(map[string]Project),
		members:        make(map[string][]Member),
		forbidden:      make(map[string]bool),
	}
	f.srv = httptest.NewServer(f.record(router))

	router.POST(fakeBasePath+"/auth/login", func(rw http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(rw, http.StatusBadRequest, map[string]string{"title": "Malformed request"})
			return
		}
		f.mu.Lock()
		user, ok := f.users[req.Username]
		f.mu.Unlock()
		if !ok || user.password != req.Password {
			writeJSON(rw, http.StatusUnauthorized, map[string]string{
				"title":  "Unauthorized",
				"detail": "Invalid username or password.",
			})
			return
		}
		f.startSession(rw, user.ID)
	})
	router.POST(fakeBasePath+"/users", func(rw http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(rw, http.StatusBadRequest, map[string]string{"title": "Malformed request"})
			return
		}
		f.mu.Lock()
		_, taken := f.users[req.Username]
		f.mu.Unlock()
		if taken {
			writeJSON(rw, http.StatusConflict, map[string]string{"detail": "Username is already taken."})
			return
		}
		user := f.AddUser(req.Username, req.Email, req.Password)
		f.startSession(rw, user.ID)
	})
	router.POST(fakeBasePath+"/auth/refresh", func(rw http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		f.refreshCalls.Add(1)
		f.refreshStarted <- struct{}{}

		f.mu.Lock()
		gate, mode := f.refreshGate, f.refreshMode
		f.mu.Unlock()
		if gate != nil {
			<-gate
		}

		switch mode {
		case refreshAborted:
			panic(http.ErrAbortHandler)
		case refreshRejected:
			writeJSON(rw, http.StatusUnauthorized, map[string]string{"detail": "Refresh token expired."})
			return
		}

		cookie, err := r.Cookie(refreshCookieName)
		if err != nil {
			writeJSON(rw, http.StatusUnauthorized, map[string]string{"detail": "Missing refresh token."})
			return
		}
		f.mu.Lock()
		userID, ok := f.refreshTokens[cookie.Value]
		f.mu.Unlock()
		if !ok {
			writeJSON(rw, http.StatusUnauthorized, map[string]string{"detail": "Refresh token expired."})
			return
		}
		writeJSON(rw, http.StatusOK, AuthResult{AccessToken: f.issueToken(userID), UserID: userID})
	})
	router.POST(fakeBasePath+"/auth/logout", func(rw http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		if cookie, err := r.Cookie(refreshCookieName); err == nil {
			f.mu.Lock()
			delete(f.refreshTokens, cookie.Value)
			f.mu.Unlock()
		}
		http.SetCookie(rw, &http.Cookie{Name: refreshCookieName, Path: "/", MaxAge: -1})
		rw.WriteHeader(http.StatusNoContent)
	})
	router.POST(fakeBasePath+"/auth/password-reset/request", func(rw http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		rw.WriteHeader(http.StatusAccepted)
	})
	router.POST(fakeBasePath+"/auth/password-reset", func(rw http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req PasswordReset
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token != "reset-token" {
			writeJSON(rw, http.StatusBadRequest, map[string]string{"title": "Invalid reset token"})
			return
		}
		rw.WriteHeader(http.StatusNoContent)
	})
	router.GET(fakeBasePath+"/validate/email", func(rw http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		email := r.URL.Query().Get("email")
		f.mu.Lock()
		available := true
		for _, user := range f.users {
			if strings.EqualFold(user.Email, email) {
				available = false
			}
		}
		f.mu.Unlock()
		writeJSON(rw, http.StatusOK, AvailabilityResult{Available: available})
	})
	router.GET(fakeBasePath+"/validate/username", func(rw http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		f.mu.Lock()
		_, taken := f.users[r.URL.Query().Get("username")]
		f.mu.Unlock()
		writeJSON(rw, http.StatusOK, AvailabilityResult{Available: !taken})
	})

	router.GET(fakeBasePath+"/account", f.authenticated(func(rw http.ResponseWriter, r *http.Request, ps httprouter.Params, userID string) {
		f.mu.Lock()
		defer f.mu.Unlock()
		for _, user := range f.users {
			if user.ID == userID {
				writeJSON(rw, http.StatusOK, user.User)
				return
			}
		}
		writeJSON(rw, http.StatusNotFound, map[string]string{"detail": "User not found."})
	}))
	router.GET(fakeBasePath+"/users/:id", f.authenticated(func(rw http.ResponseWriter, r *http.Request, ps httprouter.Params, _ string) {
		f.mu.Lock()
		defer f.mu.Unlock()
		for _, user := range f.users {
			if user.ID == ps.ByName("id") {
				writeJSON(rw, http.StatusOK, User{ID: user.ID, Username: user.Username})
				return
			}
		}
		writeJSON(rw, http.StatusNotFound, map[string]string{"detail": "User not found."})
	}))
	router.GET(fakeBasePath+"/projects", f.authenticated(func(rw http.ResponseWriter, r *http.Request, _ httprouter.Params, _ string) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var result ProjectList
		for id, project := range f.projects {
			if !f.forbidden[id] {
				result.Projects = append(result.Projects, project)
			}
		}
		writeJSON(rw, http.StatusOK, result)
	}))
	router.POST(fakeBasePath+"/projects", f.authenticated(func(rw http.ResponseWriter, r *http.Request, _ httprouter.Params, userID string) {
		var req CreateProjectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
			writeJSON(rw, http.StatusUnprocessableEntity, map[string]string{"message": "Project name is required."})
			return
		}
		f.mu.Lock()
		project := Project{
			ID:          fmt.Sprintf("p%d", len(f.projects)+1),
			Name:        req.Name,
			Description: req.Description,
			OwnerID:     userID,
			CreatedAt:   time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
		}
		f.projects[project.ID] = project
		f.mu.Unlock()
		writeJSON(rw, http.StatusCreated, project)
	}))
	router.GET(fakeBasePath+"/projects/:id", f.authenticated(f.withProject(func(rw http.ResponseWriter, project Project) {
		if project.ID == "broken" {
			rw.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(rw, "<html>upstream failure</html>")
			return
		}
		writeJSON(rw, http.StatusOK, project)
	})))
	router.DELETE(fakeBasePath+"/projects/:id", f.authenticated(f.withProject(func(rw http.ResponseWriter, project Project) {
		f.mu.Lock()
		delete(f.projects, project.ID)
		f.mu.Unlock()
		rw.WriteHeader(http.StatusNoContent)
	})))
	router.GET(fakeBasePath+"/projects/:id/members", f.authenticated(f.withProject(func(rw http.ResponseWriter, project Project) {
		f.mu.Lock()
		members := f.members[project.ID]
		f.mu.Unlock()
		writeJSON(rw, http.StatusOK, MemberList{Members: members})
	})))

	return f
}

func (f *FakeWorkspace) URL() string {
	return f.srv.URL + fakeBasePath
}

func (f *FakeWorkspace) Close() {
	f.mu.Lock()
	if f.refreshGate != nil {
		close(f.refreshGate)
		f.refreshGate = nil
	}
	f.mu.Unlock()
	f.srv.Close()
}

func (f *FakeWorkspace) AddUser(username, email, password string) User {
	f.mu.Lock()
	defer f.mu.Unlock()
	user := fakeUser{
		User:     User{ID: fmt.Sprintf("u%d", len(f.users)+1), Username: username, Email: email},
		password: password,
	}
	f.users[username] = user
	return user.User
}

func (f *FakeWorkspace) AddProject(project Project, members ...Member) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.projects[project.ID] = project
	f.members[project.ID] = members
}

// RevokeProject makes every request to the project fail with 403.
func (f *FakeWorkspace) RevokeProject(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forbidden[id] = true
}

// NewRefreshToken registers a refresh cookie value for the user.
func (f *FakeWorkspace) NewRefreshToken(userID string) *http.Cookie {
	f.mu.Lock()
	defer f.mu.Unlock()
	value := fmt.Sprintf("refresh-%s-%d", userID, len(f.refreshTokens)+1)
	f.refreshTokens[value] = userID
	return &http.Cookie{Name: refreshCookieName, Value: value, Path: "/"}
}

// QueueTokens sets the next access tokens to issue.
func (f *FakeWorkspace) QueueTokens(tokens ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queuedTokens = append(f.queuedTokens, tokens...)
}

// ExpireTokens invalidates every access token issued so far.
func (f *FakeWorkspace) ExpireTokens() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = make(map[string]string)
}

// RejectAllTokens makes every protected request fail with 401.
func (f *FakeWorkspace) RejectAllTokens() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejectAllTokens = true
}

func (f *FakeWorkspace) SetRefreshMode(mode refreshMode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshMode = mode
}

// HoldRefresh blocks refresh calls until the returned function is called.
func (f *FakeWorkspace) HoldRefresh() (release func()) {
	gate := make(chan struct{})
	f.mu.Lock()
	f.refreshGate = gate
	f.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			if f.refreshGate == gate {
				f.refreshGate = nil
			}
			f.mu.Unlock()
			close(gate)
		})
	}
}

func (f *FakeWorkspace) RefreshCalls() int {
	return int(f.refreshCalls.Load())
}

// Requests returns the recorded requests to the given path.
func (f *FakeWorkspace) Requests(method, path string) []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []recordedRequest
	for _, req := range f.requests {
		if req.Method == method && req.Path == fakeBasePath+path {
			result = append(result, req)
		}
	}
	return result
}

func (f *FakeWorkspace) issueToken(userID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var token string
	if len(f.queuedTokens) > 0 {
		token, f.queuedTokens = f.queuedTokens[0], f.queuedTokens[1:]
	} else {
		f.tokenSeq++
		token = fmt.Sprintf("T%d", f.tokenSeq)
	}
	f.tokens[token] = userID
	return token
}

func (f *FakeWorkspace) startSession(rw http.ResponseWriter, userID string) {
	http.SetCookie(rw, f.NewRefreshToken(userID))
	writeJSON(rw, http.StatusOK, AuthResult{AccessToken: f.issueToken(userID), UserID: userID})
}

type authenticatedHandle func(rw http.ResponseWriter, r *http.Request, ps httprouter.Params, userID string)

func (f *FakeWorkspace) authenticated(handle authenticatedHandle) httprouter.Handle {
	return func(rw http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		f.mu.Lock()
		userID, ok := f.tokens[token]
		reject := f.rejectAllTokens
		f.mu.Unlock()
		if !ok || reject {
			writeJSON(rw, http.StatusUnauthorized, map[string]string{
				"detail": "Access token expired.",
				"code":   "token_expired",
			})
			return
		}
		handle(rw, r, ps, userID)
	}
}

func (f *FakeWorkspace) withProject(handle func(rw http.ResponseWriter, project Project)) authenticatedHandle {
	return func(rw http.ResponseWriter, r *http.Request, ps httprouter.Params, _ string) {
		id := ps.ByName("id")
		f.mu.Lock()
		project, ok := f.projects[id]
		forbidden := f.forbidden[id]
		f.mu.Unlock()
		switch {
		case forbidden:
			writeJSON(rw, http.StatusForbidden, map[string]string{
				"title":  "Forbidden",
				"detail": "You no longer have access to this project.",
			})
		case !ok:
			writeJSON(rw, http.StatusNotFound, map[string]string{"detail": "Project not found."})
		default:
			handle(rw, project)
		}
	}
}

func (f *FakeWorkspace) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		fatalIf(err)
		r.Body = io.NopCloser(bytes.NewReader(body))
		f.mu.Lock()
		f.requests = append(f.requests, recordedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get(RequestIDHeader),
			Body:          string(body),
		})
		f.mu.Unlock()
		next.ServeHTTP(rw, r)
	})
}

func writeJSON(rw http.ResponseWriter, status int, value interface{}) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	err := json.NewEncoder(rw).Encode(value)
	fatalIf(err)
}

func fatalIf(err error) {
	if err != nil {
		log.WithError(err).Error(string(debug.Stack()))
	}
}
