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

package push

import (
	"github.com/fieldsync/fieldsync/pkg/cli/cmd/sync"
	"github.com/fieldsync/fieldsync/pkg/cli/context"
	"github.com/fieldsync/fieldsync/pkg/cli/infra"
	"github.com/fieldsync/fieldsync/pkg/cli/log"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var example = `
  * Upload the pending writes of the orders table
  fieldsync push orders`

// NewCmd returns a new push command
func NewCmd(ctx context.FieldsyncCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "push <table>",
		Short:   "Upload the pending writes of a table",
		Example: example,
		Args:    cobra.ExactArgs(1),
		RunE:    newRun(ctx),
	}

	return cmd
}

func newRun(ctx context.FieldsyncCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		if ctx.SessionKey == "" {
			return errors.New("not logged in")
		}

		table := args[0]
		engine := sync.NewEngine(ctx)

		uploaded, itemErrs := engine.UploadTable(table)

		for _, itemErr := range itemErrs {
			log.Warnf("record %s: %v\n", itemErr.ID, itemErr.Err)
		}

		if len(itemErrs) > 0 {
			log.Warnf("uploaded %d records with %d errors\n", uploaded, len(itemErrs))
		} else {
			log.Successf("uploaded %d records\n", uploaded)
		}

		return nil
	}
}
