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

package sync

import (
	"fmt"

	"github.com/fieldsync/fieldsync/pkg/cli/client"
	"github.com/fieldsync/fieldsync/pkg/cli/context"
	"github.com/fieldsync/fieldsync/pkg/cli/infra"
	"github.com/fieldsync/fieldsync/pkg/cli/log"
	"github.com/fieldsync/fieldsync/pkg/cli/repo"
	"github.com/fieldsync/fieldsync/pkg/cli/syncengine"
	"github.com/fieldsync/fieldsync/pkg/cli/tablecache"
	"github.com/fieldsync/fieldsync/pkg/cli/upgrade"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var example = `
  fieldsync sync

  * Sync specific tables
  fieldsync sync products orders`

var apiEndpointFlag string

// NewCmd returns a new sync command
func NewCmd(ctx context.FieldsyncCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sync [tables...]",
		Aliases: []string{"s"},
		Short:   "Sync data with the server",
		Example: example,
		RunE:    newRun(ctx),
	}

	f := cmd.Flags()
	f.StringVar(&apiEndpointFlag, "apiEndpoint", "", "API endpoint to connect to (defaults to value in config)")

	return cmd
}

// NewEngine builds a sync engine wired to the server named by the context
func NewEngine(ctx context.FieldsyncCtx) *syncengine.Engine {
	c := &client.Client{
		Endpoint:   ctx.APIEndpoint,
		SessionKey: ctx.SessionKey,
		Version:    ctx.Version,
		HTTPClient: ctx.HTTPClient,
	}
	r := repo.New(ctx.Store, ctx.Clock)

	return syncengine.New(r, tablecache.New(r, ctx.Clock), c, ctx.Clock)
}

func registerOutput(engine *syncengine.Engine) {
	engine.Events().On(syncengine.KindSyncStart, func(ev syncengine.Event) {
		log.Info("syncing with the server\n")
	})
	engine.Events().On(syncengine.KindSyncProgress, func(ev syncengine.Event) {
		log.Plainf("  (%d/%d) %s\n", ev.Progress, ev.Total, ev.Message)
	})
	engine.Events().On(syncengine.KindSyncError, func(ev syncengine.Event) {
		log.Warnf("%s: %v\n", ev.Message, ev.Err)
	})
}

func newRun(ctx context.FieldsyncCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		if apiEndpointFlag != "" {
			ctx.APIEndpoint = apiEndpointFlag
		}

		if ctx.SessionKey == "" {
			return errors.New("not logged in")
		}

		tables := args
		if len(tables) == 0 {
			tables = ctx.SyncTables
		}

		engine := NewEngine(ctx)
		registerOutput(engine)

		result, err := engine.Sync(tables)
		if err != nil {
			return errors.Wrap(err, "syncing")
		}

		fmt.Printf("uploaded %d, downloaded %d\n", result.Upload.Succeeded, result.Download.Downloaded)

		errCount := len(result.Upload.Errors) + len(result.Download.Errors)
		if errCount > 0 {
			log.Warnf("completed with %d errors\n", errCount)
		} else {
			log.Success("success\n")
		}

		if err := upgrade.Check(ctx); err != nil {
			log.Error(errors.Wrap(err, "automatically checking updates").Error())
		}

		return nil
	}
}
