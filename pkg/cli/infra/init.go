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

// Package infra provides operations and definitions for the
// local infrastructure for fieldsync
package infra

import (
	"encoding/json"
	"fmt"

	"github.com/fieldsync/fieldsync/pkg/cli/client"
	"github.com/fieldsync/fieldsync/pkg/cli/config"
	"github.com/fieldsync/fieldsync/pkg/cli/connectivity"
	"github.com/fieldsync/fieldsync/pkg/cli/consts"
	"github.com/fieldsync/fieldsync/pkg/cli/context"
	"github.com/fieldsync/fieldsync/pkg/cli/localdb"
	"github.com/fieldsync/fieldsync/pkg/cli/log"
	"github.com/fieldsync/fieldsync/pkg/cli/utils"
	"github.com/fieldsync/fieldsync/pkg/clock"
	"github.com/fieldsync/fieldsync/pkg/dirs"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const (
	// DefaultAPIEndpoint is the default API endpoint used when none is configured
	DefaultAPIEndpoint = "http://localhost:3001/api"
)

// DefaultSyncTables are the tables cached for offline use when the config
// file does not name any
var DefaultSyncTables = []string{"products", "clients", "orders"}

// RunEFunc is a function type of fieldsync commands
type RunEFunc func(*cobra.Command, []string) error

func getDBPath(paths context.Paths, customPath string) string {
	if customPath != "" {
		return customPath
	}

	return fmt.Sprintf("%s/%s/%s", paths.Data, consts.FieldsyncDirName, consts.FieldsyncDBFileName)
}

// newBaseCtx creates a minimal context with paths and an open local store.
// This base context is used for file initialization before being enriched
// with config values by setupCtx.
func newBaseCtx(versionTag, customDBPath string) (context.FieldsyncCtx, error) {
	paths := context.Paths{
		Home:   dirs.Home,
		Config: dirs.ConfigHome,
		Data:   dirs.DataHome,
		Cache:  dirs.CacheHome,
	}

	if err := context.InitFieldsyncDirs(paths); err != nil {
		return context.FieldsyncCtx{}, errors.Wrap(err, "creating the fieldsync dirs")
	}

	dbPath := getDBPath(paths, customDBPath)

	store, err := localdb.Open(dbPath)
	if err != nil {
		return context.FieldsyncCtx{}, errors.Wrap(err, "connecting to the local store")
	}

	ctx := context.FieldsyncCtx{
		Paths:   paths,
		Version: versionTag,
		Store:   store,
	}

	return ctx, nil
}

// Init initializes the fieldsync environment and returns a new context.
// apiEndpoint is used when creating a new config file.
func Init(versionTag, apiEndpoint, dbPath string) (*context.FieldsyncCtx, error) {
	ctx, err := newBaseCtx(versionTag, dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "initializing a context")
	}

	if err := initConfigFile(ctx, apiEndpoint); err != nil {
		return nil, errors.Wrap(err, "generating the config file")
	}

	ctx, err = setupCtx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "setting up the context")
	}

	log.Debug("context: %+v\n", context.Redact(ctx))

	return &ctx, nil
}

// setupCtx enriches the base context with values from the config file and
// the local store
func setupCtx(ctx context.FieldsyncCtx) (context.FieldsyncCtx, error) {
	var sessionKey string
	var sessionKeyExpiry int64

	val, ok, err := ctx.Store.GetSystem(consts.SystemSession)
	if err != nil {
		return ctx, errors.Wrap(err, "finding the session")
	}
	if ok {
		var blob struct {
			Key       string `json:"key"`
			ExpiresAt int64  `json:"expires_at"`
		}
		if err := json.Unmarshal([]byte(val), &blob); err != nil {
			return ctx, errors.Wrap(err, "decoding the session")
		}

		sessionKey = blob.Key
		sessionKeyExpiry = blob.ExpiresAt
	}

	cf, err := config.Read(ctx)
	if err != nil {
		return ctx, errors.Wrap(err, "reading config")
	}

	syncTables := cf.SyncTables
	if len(syncTables) == 0 {
		syncTables = DefaultSyncTables
	}

	httpClient := client.NewRateLimitedHTTPClient()

	ret := context.FieldsyncCtx{
		Paths:              ctx.Paths,
		Version:            ctx.Version,
		Store:              ctx.Store,
		SessionKey:         sessionKey,
		SessionKeyExpiry:   sessionKeyExpiry,
		APIEndpoint:        cf.APIEndpoint,
		SyncTables:         syncTables,
		Clock:              clock.New(),
		Connectivity:       &connectivity.Probe{Endpoint: cf.APIEndpoint, HTTPClient: httpClient},
		EnableUpgradeCheck: cf.EnableUpgradeCheck,
		HTTPClient:         httpClient,
	}

	return ret, nil
}

// initConfigFile populates a new config file if it does not exist yet
func initConfigFile(ctx context.FieldsyncCtx, apiEndpoint string) error {
	path := config.GetPath(ctx)
	ok, err := utils.FileExists(path)
	if err != nil {
		return errors.Wrap(err, "checking if config exists")
	}
	if ok {
		return nil
	}

	endpoint := apiEndpoint
	if endpoint == "" {
		endpoint = DefaultAPIEndpoint
	}

	cf := config.Config{
		APIEndpoint:        endpoint,
		EnableUpgradeCheck: true,
		SyncTables:         DefaultSyncTables,
	}

	if err := config.Write(ctx, cf); err != nil {
		return errors.Wrap(err, "writing config")
	}

	return nil
}
