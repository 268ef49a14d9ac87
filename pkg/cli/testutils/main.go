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

// Package testutils provides utilities used in tests
package testutils

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/fieldsync/fieldsync/pkg/cli/consts"
	"github.com/fieldsync/fieldsync/pkg/cli/localdb"
	"github.com/pkg/errors"
)

// Login simulates a logged in user by inserting a session in the local store
func Login(t *testing.T, store *localdb.Store, key string) {
	blob, err := json.Marshal(map[string]interface{}{
		"key":        key,
		"expires_at": time.Now().Add(24 * time.Hour).Unix(),
	})
	if err != nil {
		t.Fatal(errors.Wrap(err, "marshaling session"))
	}

	if err := store.SetSystem(consts.SystemSession, string(blob)); err != nil {
		t.Fatal(errors.Wrap(err, "saving session"))
	}
}
