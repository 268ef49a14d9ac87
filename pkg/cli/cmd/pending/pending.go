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

package pending

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fieldsync/fieldsync/pkg/cli/consts"
	"github.com/fieldsync/fieldsync/pkg/cli/context"
	"github.com/fieldsync/fieldsync/pkg/cli/infra"
	"github.com/fieldsync/fieldsync/pkg/cli/log"
	"github.com/fieldsync/fieldsync/pkg/cli/repo"
	"github.com/fieldsync/fieldsync/pkg/cli/utils/diff"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var example = `
  * List queued offline writes
  fieldsync pending

  * Show what each queued update changes
  fieldsync pending --diff`

var showDiff bool

// NewCmd returns a new pending command
func NewCmd(ctx context.FieldsyncCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "pending",
		Short:   "List writes queued for the next sync",
		Example: example,
		RunE:    newRun(ctx),
	}

	f := cmd.Flags()
	f.BoolVar(&showDiff, "diff", false, "show the changes of each pending update against its last synced copy")

	return cmd
}

func stripMarkers(payload map[string]interface{}) map[string]interface{} {
	ret := map[string]interface{}{}
	for k, v := range payload {
		if strings.HasPrefix(k, "_") {
			continue
		}
		ret[k] = v
	}

	return ret
}

func formatPayload(payload map[string]interface{}) (string, error) {
	b, err := json.MarshalIndent(stripMarkers(payload), "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "marshaling payload")
	}

	return string(b) + "\n", nil
}

func printDiff(rec repo.Record) error {
	snapshot, ok := rec.Payload[repo.KeySnapshot].(map[string]interface{})
	if !ok {
		return nil
	}

	before, err := formatPayload(snapshot)
	if err != nil {
		return errors.Wrap(err, "formatting the synced copy")
	}
	after, err := formatPayload(rec.Payload)
	if err != nil {
		return errors.Wrap(err, "formatting the pending copy")
	}

	diffs := diff.Do(before, after)
	fmt.Print(diff.Format(diffs))

	return nil
}

func newRun(ctx context.FieldsyncCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		r := repo.New(ctx.Store, ctx.Clock)

		total := 0
		for _, table := range r.Tables() {
			if table == consts.SyncMetaTable {
				continue
			}

			records := r.Search(table, func(rec repo.Record) bool {
				return !repo.IsSynced(rec.Payload)
			})
			if len(records) == 0 {
				continue
			}

			log.Plainf("%s\n", table)
			for _, rec := range records {
				operation, _ := rec.Payload[repo.KeyOperation].(string)
				capturedAt, _ := rec.Payload[repo.KeyTimestamp].(string)

				fmt.Printf("  %s  %s  %s\n", rec.ID, operation, capturedAt)

				if showDiff {
					if err := printDiff(rec); err != nil {
						return errors.Wrapf(err, "printing the diff of record %s", rec.ID)
					}
				}

				total++
			}
		}

		if total == 0 {
			log.Info("no pending writes\n")
			return nil
		}

		fmt.Printf("%d pending\n", total)

		return nil
	}
}
