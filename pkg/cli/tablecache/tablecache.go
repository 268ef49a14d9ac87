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

// Package tablecache mirrors reference data (clients, products, teams) for
// offline reads by replacing a logical table's local contents wholesale.
// Reference data is read-mostly and the remote is the source of truth, so
// replace-the-whole-table is the model; there is no per-field merging.
//
// Every operation returns a safe default on error instead of propagating it.
// Callers therefore cannot distinguish "no data" from "error"; the tradeoff
// keeps offline screens rendering on a broken store.
package tablecache

import (
	"fmt"
	"time"

	"github.com/fieldsync/fieldsync/pkg/cli/log"
	"github.com/fieldsync/fieldsync/pkg/cli/repo"
	"github.com/fieldsync/fieldsync/pkg/clock"
)

// Metadata describes the cached state of one logical table
type Metadata struct {
	Table    string
	Count    int
	CachedAt string
}

// Cache is the bulk table cache
type Cache struct {
	repo  *repo.Repo
	clock clock.Clock
}

// New returns a new bulk table cache over the given repo
func New(r *repo.Repo, c clock.Clock) *Cache {
	return &Cache{repo: r, clock: c}
}

// Set replaces the entire local contents of the given table with the given
// items. Each item is tagged as managed by the cache, stamped with a refresh
// timestamp, and marked synced, since it mirrors the remote verbatim. It
// returns the number of items successfully saved; per-item failures are
// logged and swallowed, not retried.
func (c *Cache) Set(table string, items []map[string]interface{}) int {
	c.repo.Clear(table)

	cachedAt := c.clock.Now().UTC().Format(time.RFC3339)

	saved := 0
	for _, item := range items {
		payload := map[string]interface{}{}
		for k, v := range item {
			payload[k] = v
		}
		payload[repo.KeyCached] = true
		payload[repo.KeyCachedAt] = cachedAt
		payload[repo.KeySynced] = true

		rec := repo.Record{Payload: payload}
		if id, ok := item["id"]; ok {
			rec.ID = fmt.Sprint(id)
		}

		if _, err := c.repo.Save(table, rec); err != nil {
			log.Debug("caching an item of table %s: %v\n", table, err)
			continue
		}

		saved++
	}

	return saved
}

// Get returns the payloads of every cached record in the given table
func (c *Cache) Get(table string) []map[string]interface{} {
	records := c.repo.GetAll(table)

	ret := make([]map[string]interface{}, 0, len(records))
	for _, rec := range records {
		ret = append(ret, rec.Payload)
	}

	return ret
}

// matchesDomainID checks the domain id field inside a payload. The domain id
// may differ from the storage-level record id.
func matchesDomainID(payload map[string]interface{}, id string) bool {
	v, ok := payload["id"]
	if !ok {
		return false
	}

	return fmt.Sprint(v) == id
}

func (c *Cache) findByDomainID(table, id string) *repo.Record {
	for _, rec := range c.repo.GetAll(table) {
		if matchesDomainID(rec.Payload, id) {
			match := rec
			return &match
		}
	}

	return nil
}

// GetByID returns the payload whose domain id field matches, or nil
func (c *Cache) GetByID(table, id string) map[string]interface{} {
	rec := c.findByDomainID(table, id)
	if rec == nil {
		return nil
	}

	return rec.Payload
}

// Find returns the payloads whose given field equals the given value
func (c *Cache) Find(table, field string, value interface{}) []map[string]interface{} {
	ret := []map[string]interface{}{}
	for _, rec := range c.repo.GetAll(table) {
		v, ok := rec.Payload[field]
		if ok && fmt.Sprint(v) == fmt.Sprint(value) {
			ret = append(ret, rec.Payload)
		}
	}

	return ret
}

// Update applies the given changes to the record whose domain id field
// matches. It reports whether a record was updated.
func (c *Cache) Update(table, id string, changes map[string]interface{}) bool {
	rec := c.findByDomainID(table, id)
	if rec == nil {
		return false
	}

	for k, v := range changes {
		rec.Payload[k] = v
	}

	if _, err := c.repo.Save(table, *rec); err != nil {
		log.Debug("updating cached item %s of table %s: %v\n", id, table, err)
		return false
	}

	return true
}

// Remove deletes the record whose domain id field matches. It reports
// whether a record was removed.
func (c *Cache) Remove(table, id string) bool {
	rec := c.findByDomainID(table, id)
	if rec == nil {
		return false
	}

	ok, err := c.repo.Remove(table, rec.ID)
	if err != nil {
		log.Debug("removing cached item %s of table %s: %v\n", id, table, err)
		return false
	}

	return ok
}

// Clear deletes every record in the given table and returns the count deleted
func (c *Cache) Clear(table string) int {
	return c.repo.Clear(table)
}

// Count returns the number of cached records in the given table
func (c *Cache) Count(table string) int {
	return c.repo.Count(table)
}

// Exists reports whether a record with the given domain id is cached
func (c *Cache) Exists(table, id string) bool {
	return c.findByDomainID(table, id) != nil
}

// BatchUpdate applies each update, matched by its domain id field, and
// returns the number of records updated. Updates without an id are skipped.
func (c *Cache) BatchUpdate(table string, updates []map[string]interface{}) int {
	updated := 0
	for _, changes := range updates {
		id, ok := changes["id"]
		if !ok {
			continue
		}

		if c.Update(table, fmt.Sprint(id), changes) {
			updated++
		}
	}

	return updated
}

// Search returns the payloads matching the given predicate
func (c *Cache) Search(table string, predicate func(map[string]interface{}) bool) []map[string]interface{} {
	ret := []map[string]interface{}{}
	for _, rec := range c.repo.GetAll(table) {
		if predicate(rec.Payload) {
			ret = append(ret, rec.Payload)
		}
	}

	return ret
}

// GetMetadata describes the cached state of the given table. The refresh
// timestamp is read off the stored records; an uncached table has none.
func (c *Cache) GetMetadata(table string) Metadata {
	ret := Metadata{Table: table}

	records := c.repo.GetAll(table)
	ret.Count = len(records)

	for _, rec := range records {
		if at, ok := rec.Payload[repo.KeyCachedAt].(string); ok {
			ret.CachedAt = at
			break
		}
	}

	return ret
}
