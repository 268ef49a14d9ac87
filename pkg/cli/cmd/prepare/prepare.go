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

package prepare

import (
	"github.com/fieldsync/fieldsync/pkg/cli/client"
	"github.com/fieldsync/fieldsync/pkg/cli/context"
	"github.com/fieldsync/fieldsync/pkg/cli/infra"
	"github.com/fieldsync/fieldsync/pkg/cli/log"
	"github.com/fieldsync/fieldsync/pkg/cli/repo"
	"github.com/fieldsync/fieldsync/pkg/cli/session"
	"github.com/fieldsync/fieldsync/pkg/cli/tablecache"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var example = `
  * Cache the configured tables for offline use
  fieldsync prepare

  * Cache specific tables
  fieldsync prepare products clients`

// NewCmd returns a new prepare command
func NewCmd(ctx context.FieldsyncCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "prepare [tables...]",
		Short:   "Cache tables for offline use",
		Example: example,
		RunE:    newRun(ctx),
	}

	return cmd
}

func newRun(ctx context.FieldsyncCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		tables := args
		if len(tables) == 0 {
			tables = ctx.SyncTables
		}
		if len(tables) == 0 {
			return errors.New("no tables to prepare")
		}

		c := &client.Client{
			Endpoint:   ctx.APIEndpoint,
			SessionKey: ctx.SessionKey,
			Version:    ctx.Version,
			HTTPClient: ctx.HTTPClient,
		}
		r := repo.New(ctx.Store, ctx.Clock)
		cache := session.New(ctx.Store, c, tablecache.New(r, ctx.Clock), ctx.Clock)

		result := cache.Prepare(tables)

		for _, err := range result.Errors {
			log.Error(err.Error() + "\n")
		}

		for _, table := range result.Cached {
			log.Plainf("%s: %d rows\n", table, result.Counts[table])
		}

		if result.Success {
			log.Successf("prepared %d tables\n", len(result.Cached))
		} else {
			log.Warnf("prepared %d of %d tables with %d errors\n", len(result.Cached), len(tables), len(result.Errors))
		}

		return nil
	}
}
