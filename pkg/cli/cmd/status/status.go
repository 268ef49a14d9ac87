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

package status

import (
	"fmt"

	"github.com/fieldsync/fieldsync/pkg/cli/consts"
	"github.com/fieldsync/fieldsync/pkg/cli/context"
	"github.com/fieldsync/fieldsync/pkg/cli/infra"
	"github.com/fieldsync/fieldsync/pkg/cli/log"
	"github.com/fieldsync/fieldsync/pkg/cli/repo"
	"github.com/fieldsync/fieldsync/pkg/cli/session"
	"github.com/fieldsync/fieldsync/pkg/cli/syncengine"
	"github.com/fieldsync/fieldsync/pkg/cli/tablecache"
	"github.com/spf13/cobra"
)

var example = `
  fieldsync status`

var staleAfterMinutes int

// NewCmd returns a new status command
func NewCmd(ctx context.FieldsyncCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "status",
		Short:   "Show offline readiness and sync state",
		Example: example,
		RunE:    newRun(ctx),
	}

	f := cmd.Flags()
	f.IntVar(&staleAfterMinutes, "staleAfter", 720, "the age in minutes after which cached data counts as stale")

	return cmd
}

func formatBool(v bool) string {
	if v {
		return "yes"
	}

	return "no"
}

func orNever(ts string) string {
	if ts == "" {
		return "never"
	}

	return ts
}

func newRun(ctx context.FieldsyncCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		r := repo.New(ctx.Store, ctx.Clock)
		cache := session.New(ctx.Store, nil, tablecache.New(r, ctx.Clock), ctx.Clock)
		engine := syncengine.New(r, tablecache.New(r, ctx.Clock), nil, ctx.Clock)

		log.Plainf("logged in: %s\n", formatBool(cache.HasValidSession()))
		log.Plainf("ready for offline use: %s\n", formatBool(cache.IsReady()))
		log.Plainf("cache stale: %s\n", formatBool(cache.IsStale(staleAfterMinutes)))

		for _, table := range r.Tables() {
			if table == consts.SyncMetaTable {
				continue
			}

			pending := len(r.Search(table, func(rec repo.Record) bool {
				return !repo.IsSynced(rec.Payload)
			}))
			wm := engine.GetWatermark(table)

			fmt.Printf("%s: %d records, %d pending, last upload %s, last download %s\n",
				table, r.Count(table), pending, orNever(wm.LastUploadAt), orNever(wm.LastDownloadAt))
		}

		return nil
	}
}
