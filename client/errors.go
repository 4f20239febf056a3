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
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/gravitational/workspace-client/client/routes"
)

// GenericErrorMessage is shown when a failed response carries no message.
const GenericErrorMessage = "Something went wrong. Please try again."

var messageFields = []string{"detail", "title", "error", "message"}

// NormalizeMessage extracts a user-displayable message from an error body.
func NormalizeMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return GenericErrorMessage
	}
	for _, field := range messageFields {
		value := gjson.GetBytes(body, field)
		if value.Type == gjson.String && strings.TrimSpace(value.Str) != "" {
			return value.Str
		}
	}
	return GenericErrorMessage
}

// Kind classifies a failed API call.
type Kind int

const (
	// KindApplication is any other failure, surfaced with its message.
	KindApplication Kind = iota
	// KindUnauthenticatedRoute is a failure of a route that never carries a
	// credential, e.g. bad login details. It has no session side effects.
	KindUnauthenticatedRoute
	// KindSessionTerminated means the credential could not be renewed, or the
	// request was still rejected after renewal. The session has been torn down.
	KindSessionTerminated
	// KindForbiddenResource means access to a collaborative resource was
	// revoked. Its cached copies have been evicted.
	KindForbiddenResource
)

func (k Kind) String() string {
	switch k {
	case KindApplication:
		return "application"
	case KindUnauthenticatedRoute:
		return "unauthenticated_route"
	case KindSessionTerminated:
		return "session_terminated"
	case KindForbiddenResource:
		return "forbidden_resource"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// APIError is the error returned for every non-2xx API response.
type APIError struct {
	Kind       Kind
	StatusCode int
	// Message is the server message, or GenericErrorMessage.
	Message string
	Body    []byte
	Class   routes.Class
	// Resource is set for KindForbiddenResource.
	Resource routes.Resource
}

// Error returns the user-displayable message.
func (e *APIError) Error() string {
	return e.Message
}

// newAPIError classifies a failed response.
func newAPIError(classifier *routes.Classifier, expired map[int]bool, resp *resty.Response) *APIError {
	var method, path string
	if raw := resp.Request.RawRequest; raw != nil {
		method, path = raw.Method, raw.URL.Path
	}
	apiErr := &APIError{
		Kind:       KindApplication,
		StatusCode: resp.StatusCode(),
		Message:    NormalizeMessage(resp.Body()),
		Body:       resp.Body(),
		Class:      classifier.Classify(method, path),
	}
	switch {
	case apiErr.Class != routes.Protected:
		apiErr.Kind = KindUnauthenticatedRoute
	case expired[apiErr.StatusCode]:
		apiErr.Kind = KindSessionTerminated
	case apiErr.StatusCode == http.StatusForbidden:
		if resource, ok := classifier.Resource(path); ok {
			apiErr.Kind, apiErr.Resource = KindForbiddenResource, resource
		}
	}
	return apiErr
}

// AsAPIError unwraps err into an APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func isKind(err error, kind Kind) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Kind == kind
}

// IsSessionTerminated reports whether err ended the session.
func IsSessionTerminated(err error) bool {
	return isKind(err, KindSessionTerminated)
}

// IsForbiddenResource reports whether err is a revoked resource access.
func IsForbiddenResource(err error) bool {
	return isKind(err, KindForbiddenResource)
}

// IsUnauthenticatedRoute reports whether err came from an unauthenticated or
// public route.
func IsUnauthenticatedRoute(err error) bool {
	return isKind(err, KindUnauthenticatedRoute)
}
