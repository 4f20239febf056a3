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
	"net/mail"
	"strings"

	"github.com/gravitational/trace"
)

// IsEmail reports whether str is a bare email address.
func IsEmail(str string) bool {
	address, err := mail.ParseAddress(str)
	if err != nil {
		return false
	}
	return str == address.Address
}

// CheckEmail returns BadParameter unless str is a bare email address.
func CheckEmail(str string) error {
	if !IsEmail(strings.TrimSpace(str)) {
		return trace.BadParameter("%q is not a valid email address", str)
	}
	return nil
}
