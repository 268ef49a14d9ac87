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

package login

import (
	"github.com/fieldsync/fieldsync/pkg/cli/client"
	"github.com/fieldsync/fieldsync/pkg/cli/context"
	"github.com/fieldsync/fieldsync/pkg/cli/infra"
	"github.com/fieldsync/fieldsync/pkg/cli/log"
	"github.com/fieldsync/fieldsync/pkg/cli/session"
	"github.com/fieldsync/fieldsync/pkg/cli/ui"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var example = `
  fieldsync login`

var apiEndpointFlag string

// NewCmd returns a new login command
func NewCmd(ctx context.FieldsyncCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "login",
		Short:   "Login to the server",
		Example: example,
		RunE:    newRun(ctx),
	}

	f := cmd.Flags()
	f.StringVar(&apiEndpointFlag, "apiEndpoint", "", "API endpoint to connect to (defaults to value in config)")

	return cmd
}

// Do requests a session with the given credentials and persists it
func Do(ctx context.FieldsyncCtx, email, password string) error {
	c := client.Client{
		Endpoint:   ctx.APIEndpoint,
		Version:    ctx.Version,
		HTTPClient: ctx.HTTPClient,
	}

	resp, err := c.Signin(email, password)
	if err != nil {
		return errors.Wrap(err, "requesting a session")
	}

	cache := session.New(ctx.Store, nil, nil, ctx.Clock)
	if err := cache.SaveSession(session.Session{Key: resp.Key, ExpiresAt: resp.ExpiresAt}); err != nil {
		return errors.Wrap(err, "persisting the session")
	}

	return nil
}

func newRun(ctx context.FieldsyncCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		if apiEndpointFlag != "" {
			ctx.APIEndpoint = apiEndpointFlag
		}

		var email, password string
		if err := ui.PromptInput("email", &email); err != nil {
			return errors.Wrap(err, "getting email input")
		}
		if email == "" {
			return errors.New("email is empty")
		}

		if err := ui.PromptPassword("password", &password); err != nil {
			return errors.Wrap(err, "getting password input")
		}
		if password == "" {
			return errors.New("password is empty")
		}

		err := Do(ctx, email, password)
		if errors.Cause(err) == client.ErrInvalidLogin {
			log.Error("wrong login\n")
			return nil
		} else if err != nil {
			return errors.Wrap(err, "logging in")
		}

		log.Success("logged in\n")

		return nil
	}
}
