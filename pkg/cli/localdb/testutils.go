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

package localdb

import (
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
)

// InitTestStore initializes a file-based test store in a temporary directory
func InitTestStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fieldsync-test.db")

	store, err := Open(path)
	if err != nil {
		t.Fatal(errors.Wrap(err, "opening test store"))
	}

	t.Cleanup(func() { store.Close() })

	return store
}

// MustExec executes the given SQL query and fails a test if an error occurs
func MustExec(t *testing.T, message string, store *Store, query string, args ...interface{}) {
	t.Helper()

	if _, err := store.Exec(query, args...); err != nil {
		t.Fatal(errors.Wrap(errors.Wrap(err, "executing sql"), message))
	}
}
