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
	"os"

	"github.com/gravitational/trace"

	"github.com/gravitational/workspace-client/lib/logger"
)

const (
	exitFailure  = 1
	exitBadUsage = 2
)

// Bail logs an error and exits with a nonzero exit code.
func Bail(err error) {
	os.Exit(report(logger.Standard(), err))
}

// report logs every error of an aggregate and picks the exit code.
func report(log logger.Entry, err error) int {
	if agg, ok := trace.Unwrap(err).(trace.Aggregate); ok {
		for _, err := range agg.Errors() {
			log.WithError(err).Error("Terminating...")
		}
	} else {
		log.WithError(err).Error("Terminating...")
	}
	if trace.IsBadParameter(err) {
		return exitBadUsage
	}
	return exitFailure
}
