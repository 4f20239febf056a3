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
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/gravitational/trace"

	"github.com/gravitational/workspace-client/lib"
	"github.com/gravitational/workspace-client/lib/logger"
)

func main() {
	logger.Init()

	var cli CLI
	parser, err := newParser(&cli)
	if err != nil {
		lib.Bail(err)
	}
	kctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	// See respective commands Run() methods
	err = run(kctx, &cli)
	if err == nil {
		return
	}
	if cli.Debug {
		fmt.Fprintf(os.Stderr, "%v\n", trace.DebugReport(err))
	}
	if code := contextExitCode(err); code != 0 {
		if lib.IsDeadline(err) {
			fmt.Fprintln(os.Stderr, "ERROR: timed out waiting for the server")
		}
		os.Exit(code)
	}
	lib.Bail(err)
}

// contextExitCode maps interrupted and timed out commands to the exit codes
// shells use for them. Other errors map to 0.
func contextExitCode(err error) int {
	switch {
	case lib.IsCanceled(err):
		return 130
	case lib.IsDeadline(err):
		return 124
	default:
		return 0
	}
}

func run(kctx *kong.Context, cli *CLI) error {
	logConfig := logger.Config{Output: cli.LogOutput, Severity: cli.LogSeverity}
	if cli.Debug {
		logConfig.Severity = "debug"
	}
	if err := logger.Setup(logConfig); err != nil {
		return trace.Wrap(err)
	}
	if cli.Debug {
		logger.Standard().Debugf("DEBUG logging enabled")
	}

	ctx, cancel := lib.WithSignals(context.Background())
	defer cancel()

	return kctx.Run(&Env{
		Ctx:      ctx,
		Globals:  &cli.Globals,
		Out:      os.Stdout,
		ErrOut:   os.Stderr,
		Prompter: terminalPrompter{},
	})
}
