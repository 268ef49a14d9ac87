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

// Package session persists the authenticated session and a manifest of
// which tables have been bulk cached, and answers the readiness and
// staleness questions asked at app start and after login. The entries
// live in the system key/value table, outside the record space, so
// clearing the session never touches captured data.
package session

import (
	"encoding/json"
	"time"

	"github.com/fieldsync/fieldsync/pkg/cli/client"
	"github.com/fieldsync/fieldsync/pkg/cli/consts"
	"github.com/fieldsync/fieldsync/pkg/cli/localdb"
	"github.com/fieldsync/fieldsync/pkg/cli/log"
	"github.com/fieldsync/fieldsync/pkg/cli/tablecache"
	"github.com/fieldsync/fieldsync/pkg/clock"
	"github.com/pkg/errors"
)

// Remote is the subset of the backend client the session cache depends on
type Remote interface {
	Select(table string, q client.Query) ([]map[string]interface{}, error)
	GetMe() (client.MeResp, error)
}

// Session is the persisted session blob
type Session struct {
	Key       string `json:"key"`
	ExpiresAt int64  `json:"expires_at"`
}

// PrepareResult aggregates the outcome of a prepare pass. Counts holds
// the number of rows cached per successfully fetched table.
type PrepareResult struct {
	Success bool
	Cached  []string
	Counts  map[string]int
	Errors  []error
}

// Cache persists the session and the readiness manifest
type Cache struct {
	store  *localdb.Store
	remote Remote
	tables *tablecache.Cache
	clock  clock.Clock
}

// New returns a new session cache
func New(store *localdb.Store, remote Remote, tables *tablecache.Cache, c clock.Clock) *Cache {
	return &Cache{
		store:  store,
		remote: remote,
		tables: tables,
		clock:  c,
	}
}

// SaveSession persists the session blob
func (c *Cache) SaveSession(s Session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "marshaling the session")
	}

	if err := c.store.SetSystem(consts.SystemSession, string(b)); err != nil {
		return errors.Wrap(err, "persisting the session")
	}

	return nil
}

// GetSession returns the persisted session blob, if any
func (c *Cache) GetSession() (Session, bool) {
	val, ok, err := c.store.GetSystem(consts.SystemSession)
	if err != nil {
		log.Debug("reading the session: %v\n", err)
		return Session{}, false
	}
	if !ok {
		return Session{}, false
	}

	var s Session
	if err := json.Unmarshal([]byte(val), &s); err != nil {
		log.Debug("decoding the session: %v\n", err)
		return Session{}, false
	}

	return s, true
}

// HasValidSession reports whether a session is present and, when the blob
// carries an expiry, whether it is still in the future
func (c *Cache) HasValidSession() bool {
	s, ok := c.GetSession()
	if !ok || s.Key == "" {
		return false
	}

	if s.ExpiresAt != 0 && s.ExpiresAt <= c.clock.Now().Unix() {
		return false
	}

	return true
}

func (c *Cache) cachedTables() []string {
	val, ok, err := c.store.GetSystem(consts.SystemCachedTables)
	if err != nil || !ok {
		return []string{}
	}

	var tables []string
	if err := json.Unmarshal([]byte(val), &tables); err != nil {
		log.Debug("decoding the cached table manifest: %v\n", err)
		return []string{}
	}

	return tables
}

// Prepare snapshots the remote session state and bulk caches the given
// tables for offline use. The user snapshot is best effort; a failure is
// recorded but does not abort the pass. Each table is fetched in full and
// replaced through the bulk table cache. Success means zero errors across
// both steps.
func (c *Cache) Prepare(tables []string) PrepareResult {
	ret := PrepareResult{Cached: []string{}, Counts: map[string]int{}, Errors: []error{}}

	if c.HasValidSession() {
		me, err := c.remote.GetMe()
		if err != nil {
			ret.Errors = append(ret.Errors, errors.Wrap(err, "snapshotting the user profile"))
		} else {
			b, err := json.Marshal(me)
			if err != nil {
				ret.Errors = append(ret.Errors, errors.Wrap(err, "marshaling the user profile"))
			} else if err := c.store.SetSystem(consts.SystemUser, string(b)); err != nil {
				ret.Errors = append(ret.Errors, errors.Wrap(err, "persisting the user profile"))
			}
		}
	}

	for _, table := range tables {
		rows, err := c.remote.Select(table, client.Query{})
		if err != nil {
			ret.Errors = append(ret.Errors, errors.Wrapf(err, "fetching table %s", table))
			continue
		}

		ret.Counts[table] = c.tables.Set(table, rows)
		ret.Cached = append(ret.Cached, table)
	}

	cachedAt := c.clock.Now().UTC().Format(time.RFC3339)
	if err := c.store.SetSystem(consts.SystemCachedAt, cachedAt); err != nil {
		ret.Errors = append(ret.Errors, errors.Wrap(err, "persisting the cache timestamp"))
	}

	b, err := json.Marshal(ret.Cached)
	if err != nil {
		ret.Errors = append(ret.Errors, errors.Wrap(err, "marshaling the cached table manifest"))
	} else if err := c.store.SetSystem(consts.SystemCachedTables, string(b)); err != nil {
		ret.Errors = append(ret.Errors, errors.Wrap(err, "persisting the cached table manifest"))
	}

	ret.Success = len(ret.Errors) == 0

	return ret
}

// IsReady reports whether the app is usable offline: a session is present
// and at least one table has been cached
func (c *Cache) IsReady() bool {
	if _, ok := c.GetSession(); !ok {
		return false
	}

	return len(c.cachedTables()) > 0
}

// IsStale reports whether the cached data is older than the given number
// of minutes. A missing cache timestamp counts as stale.
func (c *Cache) IsStale(maxAgeMinutes int) bool {
	val, ok, err := c.store.GetSystem(consts.SystemCachedAt)
	if err != nil || !ok {
		return true
	}

	cachedAt, err := time.Parse(time.RFC3339, val)
	if err != nil {
		log.Debug("parsing the cache timestamp: %v\n", err)
		return true
	}

	age := c.clock.Now().Sub(cachedAt)

	return age > time.Duration(maxAgeMinutes)*time.Minute
}

// Clear removes the session, the user snapshot, the cache timestamp, and
// the cached table manifest. Captured records stay in the local store.
func (c *Cache) Clear() error {
	for _, key := range []string{
		consts.SystemSession,
		consts.SystemUser,
		consts.SystemCachedAt,
		consts.SystemCachedTables,
	} {
		if err := c.store.DeleteSystem(key); err != nil {
			return errors.Wrapf(err, "deleting system entry %s", key)
		}
	}

	return nil
}
