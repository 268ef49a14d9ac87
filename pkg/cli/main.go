/* Copyright 2025 Fieldsync Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"os"
	"strings"

	"github.com/fieldsync/fieldsync/pkg/cli/infra"
	"github.com/fieldsync/fieldsync/pkg/cli/log"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	// commands
	"github.com/fieldsync/fieldsync/pkg/cli/cmd/autosync"
	"github.com/fieldsync/fieldsync/pkg/cli/cmd/capture"
	"github.com/fieldsync/fieldsync/pkg/cli/cmd/login"
	"github.com/fieldsync/fieldsync/pkg/cli/cmd/logout"
	"github.com/fieldsync/fieldsync/pkg/cli/cmd/pending"
	"github.com/fieldsync/fieldsync/pkg/cli/cmd/prepare"
	"github.com/fieldsync/fieldsync/pkg/cli/cmd/pull"
	"github.com/fieldsync/fieldsync/pkg/cli/cmd/push"
	"github.com/fieldsync/fieldsync/pkg/cli/cmd/root"
	"github.com/fieldsync/fieldsync/pkg/cli/cmd/status"
	"github.com/fieldsync/fieldsync/pkg/cli/cmd/sync"
	"github.com/fieldsync/fieldsync/pkg/cli/cmd/version"
)

// apiEndpoint and versionTag are populated during link time
var apiEndpoint string
var versionTag = "master"

// parseDBPath extracts --dbPath flag value from command line arguments
// regardless of where it appears (before or after subcommand).
// Returns empty string if not found.
func parseDBPath(args []string) string {
	for i, arg := range args {
		if strings.HasPrefix(arg, "--dbPath=") {
			return strings.TrimPrefix(arg, "--dbPath=")
		}
		if arg == "--dbPath" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func main() {
	// --dbPath has to be known before cobra runs, because the store is
	// opened before the commands are registered
	dbPath := parseDBPath(os.Args[1:])

	ctx, err := infra.Init(versionTag, apiEndpoint, dbPath)
	if err != nil {
		panic(errors.Wrap(err, "initializing context"))
	}
	defer ctx.Store.Close()

	root.Register(login.NewCmd(*ctx))
	root.Register(logout.NewCmd(*ctx))
	root.Register(prepare.NewCmd(*ctx))
	root.Register(sync.NewCmd(*ctx))
	root.Register(push.NewCmd(*ctx))
	root.Register(pull.NewCmd(*ctx))
	root.Register(pending.NewCmd(*ctx))
	root.Register(status.NewCmd(*ctx))
	root.Register(capture.NewCmd(*ctx))
	root.Register(autosync.NewCmd(*ctx))
	root.Register(version.NewCmd(*ctx))

	if err := root.Execute(); err != nil {
		log.Errorf("%s\n", err.Error())
		os.Exit(1)
	}
}
