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

package capture

import (
	"encoding/json"

	"github.com/fieldsync/fieldsync/pkg/cli/client"
	"github.com/fieldsync/fieldsync/pkg/cli/context"
	"github.com/fieldsync/fieldsync/pkg/cli/infra"
	"github.com/fieldsync/fieldsync/pkg/cli/log"
	"github.com/fieldsync/fieldsync/pkg/cli/repo"
	"github.com/fieldsync/fieldsync/pkg/cli/router"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var example = `
  * Capture an order, online or offline
  fieldsync capture orders '{"client_id": "c-1", "total": 99.5}'`

// NewCmd returns a new capture command
func NewCmd(ctx context.FieldsyncCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "capture <table> <json>",
		Short:   "Record a row, remotely when online and locally otherwise",
		Example: example,
		Args:    cobra.ExactArgs(2),
		RunE:    newRun(ctx),
	}

	return cmd
}

func newRun(ctx context.FieldsyncCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		table := args[0]

		var row map[string]interface{}
		if err := json.Unmarshal([]byte(args[1]), &row); err != nil {
			return errors.Wrap(err, "parsing the row")
		}

		c := &client.Client{
			Endpoint:   ctx.APIEndpoint,
			SessionKey: ctx.SessionKey,
			Version:    ctx.Version,
			HTTPClient: ctx.HTTPClient,
		}
		r := repo.New(ctx.Store, ctx.Clock)
		s := router.New(c, r, ctx.Connectivity, ctx.Clock)

		saved, err := s.Insert(table, row)
		if err != nil {
			return errors.Wrapf(err, "capturing a row into table %s", table)
		}

		if repo.IsSynced(saved) || saved[repo.KeyOperation] == nil {
			log.Successf("captured into %s\n", table)
		} else {
			log.Successf("captured into %s (queued for sync)\n", table)
		}

		return nil
	}
}
