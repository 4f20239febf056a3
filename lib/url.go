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

package lib

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/gravitational/trace"
)

// AddrToURL turns a server address into the API base URL. Bare host:port
// addresses default to https, and a redundant :443 is cut off.
func AddrToURL(addr string) (*url.URL, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, trace.BadParameter("empty server address")
	}
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "https://" + addr
	}
	result, err := url.Parse(addr)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	if result.Host == "" {
		return nil, trace.BadParameter("server address %q has no host", addr)
	}
	if result.Scheme == "https" && result.Port() == "443" {
		result.Host = result.Hostname()
	}
	result.Path = strings.TrimSuffix(result.Path, "/")
	result.RawQuery, result.Fragment = "", ""
	return result, nil
}

// BuildURLPath joins escaped path segments into an absolute path.
func BuildURLPath(args ...interface{}) string {
	segments := make([]string, 0, len(args)+1)
	segments = append(segments, "/")
	for _, a := range args {
		var str string
		switch v := a.(type) {
		case string:
			str = v
		default:
			str = fmt.Sprint(v)
		}
		segments = append(segments, url.PathEscape(str))
	}
	return path.Join(segments...)
}
