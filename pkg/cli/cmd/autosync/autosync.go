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

package autosync

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fieldsync/fieldsync/pkg/cli/cmd/sync"
	"github.com/fieldsync/fieldsync/pkg/cli/context"
	"github.com/fieldsync/fieldsync/pkg/cli/infra"
	"github.com/fieldsync/fieldsync/pkg/cli/log"
	"github.com/fieldsync/fieldsync/pkg/cli/syncengine"
	"github.com/pkg/errors"
	"github.com/robfig/cron"
	"github.com/spf13/cobra"
)

var example = `
  * Sync every five minutes until interrupted
  fieldsync autosync --every 5m`

var everyFlag string

// NewCmd returns a new autosync command
func NewCmd(ctx context.FieldsyncCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "autosync",
		Short:   "Sync with the server on a schedule",
		Example: example,
		RunE:    newRun(ctx),
	}

	f := cmd.Flags()
	f.StringVar(&everyFlag, "every", "5m", "the interval between sync passes")

	return cmd
}

func runOnce(engine *syncengine.Engine, tables []string) {
	result, err := engine.Sync(tables)
	if err == syncengine.ErrSyncInProgress {
		log.Debug("skipping a pass, sync still running\n")
		return
	} else if err != nil {
		log.Error(errors.Wrap(err, "syncing").Error() + "\n")
		return
	}

	errCount := len(result.Upload.Errors) + len(result.Download.Errors)
	log.Infof("uploaded %d, downloaded %d, %d errors\n", result.Upload.Succeeded, result.Download.Downloaded, errCount)
}

func newRun(ctx context.FieldsyncCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		if ctx.SessionKey == "" {
			return errors.New("not logged in")
		}

		engine := sync.NewEngine(ctx)
		tables := ctx.SyncTables

		c := cron.New()
		if err := c.AddFunc(fmt.Sprintf("@every %s", everyFlag), func() {
			runOnce(engine, tables)
		}); err != nil {
			return errors.Wrapf(err, "scheduling a sync every %s", everyFlag)
		}

		log.Infof("syncing every %s\n", everyFlag)

		runOnce(engine, tables)
		c.Start()
		defer c.Stop()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		return nil
	}
}
