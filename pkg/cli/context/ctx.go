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

// Package context defines the fieldsync runtime context
package context

import (
	"net/http"
	"path/filepath"

	"github.com/fieldsync/fieldsync/pkg/cli/connectivity"
	"github.com/fieldsync/fieldsync/pkg/cli/consts"
	"github.com/fieldsync/fieldsync/pkg/cli/localdb"
	"github.com/fieldsync/fieldsync/pkg/cli/utils"
	"github.com/fieldsync/fieldsync/pkg/clock"
	"github.com/pkg/errors"
)

// Paths contain directory definitions
type Paths struct {
	Home   string
	Config string
	Data   string
	Cache  string
}

// FieldsyncCtx is a context holding the information of the current runtime
type FieldsyncCtx struct {
	Paths              Paths
	APIEndpoint        string
	Version            string
	Store              *localdb.Store
	SessionKey         string
	SessionKeyExpiry   int64
	SyncTables         []string
	Clock              clock.Clock
	Connectivity       connectivity.Provider
	EnableUpgradeCheck bool
	HTTPClient         *http.Client
}

// InitFieldsyncDirs creates the fieldsync directories under the config and
// data homes if they do not exist
func InitFieldsyncDirs(paths Paths) error {
	if err := utils.EnsureDir(filepath.Join(paths.Config, consts.FieldsyncDirName)); err != nil {
		return errors.Wrap(err, "creating the config dir")
	}
	if err := utils.EnsureDir(filepath.Join(paths.Data, consts.FieldsyncDirName)); err != nil {
		return errors.Wrap(err, "creating the data dir")
	}

	return nil
}

// Redact replaces private information from the context with a set of
// placeholder values.
func Redact(ctx FieldsyncCtx) FieldsyncCtx {
	var sessionKey string
	if ctx.SessionKey != "" {
		sessionKey = "1"
	} else {
		sessionKey = "0"
	}
	ctx.SessionKey = sessionKey

	return ctx
}
