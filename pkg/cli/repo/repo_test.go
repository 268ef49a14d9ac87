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

package repo

import (
	"testing"
	"time"

	"github.com/fieldsync/fieldsync/pkg/assert"
	"github.com/fieldsync/fieldsync/pkg/cli/localdb"
	"github.com/fieldsync/fieldsync/pkg/clock"
	"github.com/pkg/errors"
)

func newTestRepo(t *testing.T) (*Repo, *clock.Mock) {
	store := localdb.InitTestStore(t)
	c := clock.NewMock()

	return New(store, c), c
}

func TestSaveRoundTrip(t *testing.T) {
	r, _ := newTestRepo(t)

	saved, err := r.Save("products", Record{
		Payload: map[string]interface{}{"name": "cordless drill", "sku": "DR-100"},
	})
	if err != nil {
		t.Fatal(errors.Wrap(err, "saving record"))
	}

	assert.NotEqual(t, saved.ID, "", "id should have been generated")
	assert.NotEqual(t, saved.Revision, "", "revision should have been assigned")
	assert.NotEqual(t, saved.CreatedAt, "", "createdAt should have been stamped")
	assert.Equal(t, saved.UpdatedAt, saved.CreatedAt, "timestamps should match on first save")

	all := r.GetAll("products")
	assert.Equal(t, len(all), 1, "record count mismatch")
	assert.DeepEqual(t, all[0].Payload, map[string]interface{}{"name": "cordless drill", "sku": "DR-100"}, "payload mismatch")
}

func TestSaveCarriesForwardCreatedAt(t *testing.T) {
	r, c := newTestRepo(t)

	saved, err := r.Save("products", Record{
		ID:      "prod-1",
		Payload: map[string]interface{}{"name": "cordless drill"},
	})
	if err != nil {
		t.Fatal(errors.Wrap(err, "saving record"))
	}

	c.Advance(time.Hour)

	resaved, err := r.Save("products", Record{
		ID:      "prod-1",
		Payload: map[string]interface{}{"name": "impact drill"},
	})
	if err != nil {
		t.Fatal(errors.Wrap(err, "re-saving record"))
	}

	assert.Equal(t, resaved.CreatedAt, saved.CreatedAt, "createdAt should have been carried forward")
	assert.NotEqual(t, resaved.UpdatedAt, saved.UpdatedAt, "updatedAt should have been refreshed")
	assert.NotEqual(t, resaved.Revision, saved.Revision, "revision should have changed")

	assert.Equal(t, r.Count("products"), 1, "re-saving must not duplicate the record")
}

func TestSaveTableImmutable(t *testing.T) {
	r, _ := newTestRepo(t)

	if _, err := r.Save("products", Record{ID: "rec-1", Payload: map[string]interface{}{}}); err != nil {
		t.Fatal(errors.Wrap(err, "saving record"))
	}

	_, err := r.Save("clients", Record{ID: "rec-1", Payload: map[string]interface{}{}})
	assert.NotEqual(t, err, nil, "saving under a different table should fail")
}

func TestGetByID(t *testing.T) {
	r, _ := newTestRepo(t)

	if _, err := r.Save("products", Record{ID: "prod-1", Payload: map[string]interface{}{"name": "drill"}}); err != nil {
		t.Fatal(errors.Wrap(err, "saving record"))
	}

	rec := r.GetByID("products", "prod-1")
	if rec == nil {
		t.Fatal("record should have been found")
	}
	assert.Equal(t, rec.Payload["name"], "drill", "payload mismatch")

	assert.True(t, r.GetByID("products", "missing") == nil, "missing id should be nil")
	assert.True(t, r.GetByID("clients", "prod-1") == nil, "table mismatch should be treated as not found")
}

func TestRemove(t *testing.T) {
	r, _ := newTestRepo(t)

	if _, err := r.Save("products", Record{ID: "prod-1", Payload: map[string]interface{}{}}); err != nil {
		t.Fatal(errors.Wrap(err, "saving record"))
	}

	ok, err := r.Remove("products", "missing")
	if err != nil {
		t.Fatal(errors.Wrap(err, "removing a missing record"))
	}
	assert.Equal(t, ok, false, "removing a missing record should report false")

	ok, err = r.Remove("products", "prod-1")
	if err != nil {
		t.Fatal(errors.Wrap(err, "removing record"))
	}
	assert.Equal(t, ok, true, "removing an existing record should report true")
	assert.Equal(t, r.Count("products"), 0, "record should have been removed")
}

func TestClear(t *testing.T) {
	r, _ := newTestRepo(t)

	for _, id := range []string{"a", "b", "c"} {
		if _, err := r.Save("clients", Record{ID: id, Payload: map[string]interface{}{}}); err != nil {
			t.Fatal(errors.Wrap(err, "saving record"))
		}
	}
	if _, err := r.Save("products", Record{ID: "p", Payload: map[string]interface{}{}}); err != nil {
		t.Fatal(errors.Wrap(err, "saving record"))
	}

	deleted := r.Clear("clients")
	assert.Equal(t, deleted, 3, "deleted count mismatch")
	assert.Equal(t, r.Count("clients"), 0, "clients should be empty")
	assert.Equal(t, r.Count("products"), 1, "products should be untouched")
}

func TestSearch(t *testing.T) {
	r, _ := newTestRepo(t)

	if _, err := r.Save("orders", Record{ID: "o-1", Payload: map[string]interface{}{"status": "draft"}}); err != nil {
		t.Fatal(errors.Wrap(err, "saving record"))
	}
	if _, err := r.Save("orders", Record{ID: "o-2", Payload: map[string]interface{}{"status": "sent"}}); err != nil {
		t.Fatal(errors.Wrap(err, "saving record"))
	}

	matches := r.Search("orders", func(rec Record) bool {
		return rec.Payload["status"] == "draft"
	})
	assert.Equal(t, len(matches), 1, "match count mismatch")
	assert.Equal(t, matches[0].ID, "o-1", "matched record mismatch")
}

func TestIsSynced(t *testing.T) {
	assert.Equal(t, IsSynced(map[string]interface{}{}), false, "missing marker should be pending")
	assert.Equal(t, IsSynced(map[string]interface{}{KeySynced: false}), false, "false marker should be pending")
	assert.Equal(t, IsSynced(map[string]interface{}{KeySynced: true}), true, "true marker should be synced")
	assert.Equal(t, IsSynced(map[string]interface{}{KeySynced: "yes"}), false, "non-bool marker should be pending")
}
