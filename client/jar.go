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
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// sessionJar is a cookie jar remembering the path and expiry of the cookies it
// stores. http.CookieJar returns only names and values, which is not enough to
// put a cookie back in a later process.
type sessionJar struct {
	http.CookieJar
	clock clockwork.Clock

	mu    sync.Mutex // protects attrs
	attrs map[string]*http.Cookie
}

func newSessionJar(jar http.CookieJar, clock clockwork.Clock) *sessionJar {
	return &sessionJar{
		CookieJar: jar,
		clock:     clock,
		attrs:     make(map[string]*http.Cookie),
	}
}

// SetCookies implements http.CookieJar.
func (j *sessionJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.CookieJar.SetCookies(u, cookies)

	j.mu.Lock()
	defer j.mu.Unlock()
	now := j.clock.Now()
	for _, c := range cookies {
		key := cookieKey(c.Name, c.Value)
		if c.MaxAge < 0 {
			delete(j.attrs, key)
			continue
		}
		stored := &http.Cookie{Name: c.Name, Value: c.Value, Path: c.Path, Expires: c.Expires}
		if stored.Path == "" || stored.Path[0] != '/' {
			stored.Path = defaultCookiePath(u)
		}
		if c.MaxAge > 0 {
			stored.Expires = now.Add(time.Duration(c.MaxAge) * time.Second)
		}
		j.attrs[key] = stored
	}
}

// sessionCookies returns the cookies the jar sends to any of the URLs, with
// the path and expiry they were stored with.
func (j *sessionJar) sessionCookies(urls ...*url.URL) []*http.Cookie {
	var cookies []*http.Cookie
	seen := make(map[string]bool)
	for _, u := range urls {
		for _, c := range j.CookieJar.Cookies(u) {
			key := cookieKey(c.Name, c.Value)
			if seen[key] {
				continue
			}
			seen[key] = true
			cookies = append(cookies, j.attributes(c, u))
		}
	}
	return cookies
}

func (j *sessionJar) attributes(c *http.Cookie, u *url.URL) *http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	if stored, ok := j.attrs[cookieKey(c.Name, c.Value)]; ok {
		copied := *stored
		return &copied
	}
	// Set on the wrapped jar directly.
	return &http.Cookie{Name: c.Name, Value: c.Value, Path: defaultCookiePath(u)}
}

func cookieKey(name, value string) string {
	return name + "=" + value
}

// defaultCookiePath is the path a cookie without one applies to: the
// directory of the request path.
func defaultCookiePath(u *url.URL) string {
	dir := u.Path
	if dir == "" || dir[0] != '/' {
		return "/"
	}
	i := strings.LastIndex(dir, "/")
	if i == 0 {
		return "/"
	}
	return dir[:i]
}
