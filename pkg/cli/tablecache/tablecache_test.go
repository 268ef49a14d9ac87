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

package tablecache

import (
	"testing"

	"github.com/fieldsync/fieldsync/pkg/assert"
	"github.com/fieldsync/fieldsync/pkg/cli/localdb"
	"github.com/fieldsync/fieldsync/pkg/cli/repo"
	"github.com/fieldsync/fieldsync/pkg/clock"
)

func newTestCache(t *testing.T) *Cache {
	store := localdb.InitTestStore(t)
	c := clock.NewMock()

	return New(repo.New(store, c), c)
}

func TestSetReplacesTable(t *testing.T) {
	cache := newTestCache(t)

	items := []map[string]interface{}{
		{"id": "c-1", "name": "ACME"},
		{"id": "c-2", "name": "Globex"},
	}

	saved := cache.Set("clients", items)
	assert.Equal(t, saved, 2, "saved count mismatch")
	assert.Equal(t, cache.Count("clients"), 2, "cached count mismatch")

	// setting again must replace, not accumulate
	saved = cache.Set("clients", items)
	assert.Equal(t, saved, 2, "saved count mismatch on second set")
	assert.Equal(t, cache.Count("clients"), 2, "set must be idempotent")
}

func TestSetTagsItems(t *testing.T) {
	cache := newTestCache(t)

	cache.Set("teams", []map[string]interface{}{{"id": "t-1", "name": "north"}})

	got := cache.GetByID("teams", "t-1")
	if got == nil {
		t.Fatal("cached item should have been found")
	}

	assert.Equal(t, got[repo.KeyCached], true, "cache marker mismatch")
	assert.Equal(t, got[repo.KeySynced], true, "synced marker mismatch")
	assert.NotEqual(t, got[repo.KeyCachedAt], nil, "refresh timestamp missing")
}

func TestGetByIDMatchesDomainID(t *testing.T) {
	cache := newTestCache(t)

	// domain ids are numeric here; storage ids are their string forms
	cache.Set("products", []map[string]interface{}{
		{"id": 10, "name": "drill"},
		{"id": 11, "name": "saw"},
	})

	got := cache.GetByID("products", "11")
	if got == nil {
		t.Fatal("cached item should have been found")
	}
	assert.Equal(t, got["name"], "saw", "item mismatch")

	assert.True(t, cache.GetByID("products", "99") == nil, "missing id should be nil")
}

func TestUpdateRemove(t *testing.T) {
	cache := newTestCache(t)

	cache.Set("clients", []map[string]interface{}{{"id": "c-1", "name": "ACME", "tier": "a"}})

	ok := cache.Update("clients", "c-1", map[string]interface{}{"tier": "b"})
	assert.Equal(t, ok, true, "update should have succeeded")
	assert.Equal(t, cache.GetByID("clients", "c-1")["tier"], "b", "change should have been applied")

	assert.Equal(t, cache.Update("clients", "missing", map[string]interface{}{}), false, "updating a missing id should report false")

	assert.Equal(t, cache.Remove("clients", "c-1"), true, "remove should have succeeded")
	assert.Equal(t, cache.Remove("clients", "c-1"), false, "removing twice should report false")
	assert.Equal(t, cache.Count("clients"), 0, "table should be empty")
}

func TestFindExistsSearch(t *testing.T) {
	cache := newTestCache(t)

	cache.Set("products", []map[string]interface{}{
		{"id": "p-1", "brand": "bosch"},
		{"id": "p-2", "brand": "bosch"},
		{"id": "p-3", "brand": "makita"},
	})

	assert.Equal(t, len(cache.Find("products", "brand", "bosch")), 2, "find count mismatch")
	assert.Equal(t, cache.Exists("products", "p-3"), true, "exists mismatch")
	assert.Equal(t, cache.Exists("products", "p-4"), false, "exists mismatch for missing id")

	matches := cache.Search("products", func(p map[string]interface{}) bool {
		return p["brand"] == "makita"
	})
	assert.Equal(t, len(matches), 1, "search count mismatch")
}

func TestBatchUpdate(t *testing.T) {
	cache := newTestCache(t)

	cache.Set("products", []map[string]interface{}{
		{"id": "p-1", "price": 10.0},
		{"id": "p-2", "price": 20.0},
	})

	updated := cache.BatchUpdate("products", []map[string]interface{}{
		{"id": "p-1", "price": 12.0},
		{"id": "p-9", "price": 1.0},
		{"price": 2.0},
	})

	assert.Equal(t, updated, 1, "updated count mismatch")
	assert.Equal(t, cache.GetByID("products", "p-1")["price"], 12.0, "price should have been updated")
}

func TestGetMetadata(t *testing.T) {
	cache := newTestCache(t)

	meta := cache.GetMetadata("clients")
	assert.Equal(t, meta.Count, 0, "uncached table count mismatch")
	assert.Equal(t, meta.CachedAt, "", "uncached table should have no refresh timestamp")

	cache.Set("clients", []map[string]interface{}{{"id": "c-1"}})

	meta = cache.GetMetadata("clients")
	assert.Equal(t, meta.Count, 1, "count mismatch")
	assert.NotEqual(t, meta.CachedAt, "", "refresh timestamp missing")
}
