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
	"database/sql"

	"github.com/pkg/errors"
)

// GetSystem retrieves the value for the given key from the system table.
// The second return value reports whether the key exists.
func (s *Store) GetSystem(key string) (string, bool, error) {
	var value string

	err := s.QueryRow("SELECT value FROM system WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	} else if err != nil {
		return "", false, errors.Wrapf(err, "querying system value for %s", key)
	}

	return value, true, nil
}

// SetSystem upserts the value for the given key in the system table
func (s *Store) SetSystem(key, value string) error {
	_, err := s.Exec("INSERT INTO system (key, value) VALUES (?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value", key, value)
	if err != nil {
		return errors.Wrapf(err, "setting system value for %s", key)
	}

	return nil
}

// DeleteSystem removes the given key from the system table. Removing a
// missing key is a no-op.
func (s *Store) DeleteSystem(key string) error {
	if _, err := s.Exec("DELETE FROM system WHERE key = ?", key); err != nil {
		return errors.Wrapf(err, "deleting system value for %s", key)
	}

	return nil
}
