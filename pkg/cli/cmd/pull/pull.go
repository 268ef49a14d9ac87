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

package pull

import (
	"github.com/fieldsync/fieldsync/pkg/cli/cmd/sync"
	"github.com/fieldsync/fieldsync/pkg/cli/context"
	"github.com/fieldsync/fieldsync/pkg/cli/infra"
	"github.com/fieldsync/fieldsync/pkg/cli/log"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var example = `
  * Download the latest changes of the products table
  fieldsync pull products

  * Discard the local copy and fetch the table in full
  fieldsync pull products --full`

var isFullRefresh bool

// NewCmd returns a new pull command
func NewCmd(ctx context.FieldsyncCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "pull <table>",
		Short:   "Download the latest rows of a table",
		Example: example,
		Args:    cobra.ExactArgs(1),
		RunE:    newRun(ctx),
	}

	f := cmd.Flags()
	f.BoolVarP(&isFullRefresh, "full", "f", false, "replace the local table with a full fetch instead of downloading incrementally")

	return cmd
}

func newRun(ctx context.FieldsyncCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		if ctx.SessionKey == "" {
			return errors.New("not logged in")
		}

		table := args[0]
		engine := sync.NewEngine(ctx)

		count, err := engine.DownloadTable(table, isFullRefresh)
		if err != nil {
			return errors.Wrapf(err, "downloading table %s", table)
		}

		log.Successf("downloaded %d rows of %s\n", count, table)

		return nil
	}
}
