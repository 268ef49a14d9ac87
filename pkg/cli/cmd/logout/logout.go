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

package logout

import (
	"github.com/fieldsync/fieldsync/pkg/cli/client"
	"github.com/fieldsync/fieldsync/pkg/cli/context"
	"github.com/fieldsync/fieldsync/pkg/cli/infra"
	"github.com/fieldsync/fieldsync/pkg/cli/log"
	"github.com/fieldsync/fieldsync/pkg/cli/session"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// ErrNotLoggedIn is an error for logging out when not logged in
var ErrNotLoggedIn = errors.New("not logged in")

var example = `
  fieldsync logout`

var apiEndpointFlag string

// NewCmd returns a new logout command
func NewCmd(ctx context.FieldsyncCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "logout",
		Short:   "Logout from the server",
		Example: example,
		RunE:    newRun(ctx),
	}

	f := cmd.Flags()
	f.StringVar(&apiEndpointFlag, "apiEndpoint", "", "API endpoint to connect to (defaults to value in config)")

	return cmd
}

// Do signs out of the server and clears the readiness manifest. The server
// side signout is best effort; the local session goes away either way so
// that a rep can always log out of a device.
func Do(ctx context.FieldsyncCtx) error {
	cache := session.New(ctx.Store, nil, nil, ctx.Clock)

	s, ok := cache.GetSession()
	if !ok || s.Key == "" {
		return ErrNotLoggedIn
	}

	c := client.Client{
		Endpoint:   ctx.APIEndpoint,
		SessionKey: s.Key,
		Version:    ctx.Version,
		HTTPClient: ctx.HTTPClient,
	}
	if err := c.Signout(); err != nil {
		log.Debug("requesting signout: %v\n", err)
	}

	if err := cache.Clear(); err != nil {
		return errors.Wrap(err, "clearing the session")
	}

	return nil
}

func newRun(ctx context.FieldsyncCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		if apiEndpointFlag != "" {
			ctx.APIEndpoint = apiEndpointFlag
		}

		err := Do(ctx)
		if err == ErrNotLoggedIn {
			log.Error("not logged in\n")
			return nil
		} else if err != nil {
			return errors.Wrap(err, "logging out")
		}

		log.Success("logged out\n")

		return nil
	}
}
