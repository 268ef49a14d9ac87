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

package router

import (
	"testing"

	"github.com/fieldsync/fieldsync/pkg/assert"
	"github.com/fieldsync/fieldsync/pkg/cli/client"
	"github.com/fieldsync/fieldsync/pkg/cli/connectivity"
	"github.com/fieldsync/fieldsync/pkg/cli/localdb"
	"github.com/fieldsync/fieldsync/pkg/cli/repo"
	"github.com/fieldsync/fieldsync/pkg/clock"
	"github.com/pkg/errors"
)

type fakeRemote struct {
	failing bool

	insertCalls int
	deleteCalls int
	selectRows  []map[string]interface{}
	lastTable   string
	lastRow     map[string]interface{}
}

func (f *fakeRemote) Select(table string, q client.Query) ([]map[string]interface{}, error) {
	if f.failing {
		return nil, errors.New("remote unavailable")
	}
	f.lastTable = table
	return f.selectRows, nil
}

func (f *fakeRemote) Insert(table string, row map[string]interface{}) (map[string]interface{}, error) {
	if f.failing {
		return nil, errors.New("remote unavailable")
	}
	f.insertCalls++
	f.lastTable = table
	f.lastRow = row
	return row, nil
}

func (f *fakeRemote) Update(table, id string, row map[string]interface{}) (map[string]interface{}, error) {
	if f.failing {
		return nil, errors.New("remote unavailable")
	}
	f.lastTable = table
	f.lastRow = row
	return row, nil
}

func (f *fakeRemote) Delete(table, id string) error {
	if f.failing {
		return errors.New("remote unavailable")
	}
	f.deleteCalls++
	f.lastTable = table
	return nil
}

func (f *fakeRemote) Upsert(table string, row map[string]interface{}) (map[string]interface{}, error) {
	if f.failing {
		return nil, errors.New("remote unavailable")
	}
	f.lastTable = table
	f.lastRow = row
	return row, nil
}

func newTestRouter(t *testing.T, remote Remote, online bool) (*SmartRequest, *repo.Repo) {
	t.Helper()

	store := localdb.InitTestStore(t)
	r := repo.New(store, clock.NewMock())

	return New(remote, r, connectivity.Static(online), clock.NewMock()), r
}

func TestInsertOnline(t *testing.T) {
	remote := &fakeRemote{}
	s, r := newTestRouter(t, remote, true)

	row, err := s.Insert("orders", map[string]interface{}{"id": "o-1", "total": 50.0})
	if err != nil {
		t.Fatal(errors.Wrap(err, "inserting"))
	}

	assert.Equal(t, remote.insertCalls, 1, "remote insert call count mismatch")
	assert.Equal(t, row["total"], 50.0, "returned row mismatch")
	assert.Equal(t, r.Count("orders"), 0, "online insert should not write locally")
}

func TestInsertOffline(t *testing.T) {
	remote := &fakeRemote{}
	s, r := newTestRouter(t, remote, false)

	row, err := s.Insert("orders", map[string]interface{}{"id": "o-1", "total": 50.0})
	if err != nil {
		t.Fatal(errors.Wrap(err, "inserting"))
	}

	assert.Equal(t, remote.insertCalls, 0, "remote should not be called while offline")
	assert.Equal(t, row[repo.KeySynced], false, "pending row should be marked unsynced")
	assert.Equal(t, row[repo.KeyOperation], "insert", "pending operation mismatch")
	assert.Equal(t, row[repo.KeyTimestamp], "2020-03-14T09:00:00Z", "pending timestamp mismatch")

	got := r.GetByID("orders", "o-1")
	if got == nil {
		t.Fatal("expected a pending record in the local store")
	}
	assert.Equal(t, got.Payload["total"], 50.0, "pending payload mismatch")
}

func TestInsertOfflineGeneratesID(t *testing.T) {
	s, r := newTestRouter(t, &fakeRemote{}, false)

	row, err := s.Insert("orders", map[string]interface{}{"total": 50.0})
	if err != nil {
		t.Fatal(errors.Wrap(err, "inserting"))
	}

	id, ok := row["id"].(string)
	assert.True(t, ok && id != "", "pending insert should carry a generated id")
	assert.True(t, r.GetByID("orders", id) != nil, "pending record should be stored under the generated id")
}

func TestInsertRemoteFailureFallsBack(t *testing.T) {
	remote := &fakeRemote{failing: true}
	s, r := newTestRouter(t, remote, true)

	row, err := s.Insert("orders", map[string]interface{}{"id": "o-1", "total": 50.0})
	if err != nil {
		t.Fatal(errors.Wrap(err, "inserting"))
	}

	assert.Equal(t, row[repo.KeyOperation], "insert", "failed remote insert should degrade to a pending write")
	assert.Equal(t, r.Count("orders"), 1, "pending record count mismatch")
}

func TestUpdateOfflineSnapshotsSyncedCopy(t *testing.T) {
	s, r := newTestRouter(t, &fakeRemote{}, false)

	if _, err := r.Save("orders", repo.Record{
		ID: "o-1",
		Payload: map[string]interface{}{
			"id":           "o-1",
			"total":        50.0,
			repo.KeySynced: true,
		},
	}); err != nil {
		t.Fatal(errors.Wrap(err, "preparing a synced record"))
	}

	row, err := s.Update("orders", "o-1", map[string]interface{}{"total": 75.0})
	if err != nil {
		t.Fatal(errors.Wrap(err, "updating"))
	}

	assert.Equal(t, row[repo.KeyOperation], "update", "pending operation mismatch")
	assert.Equal(t, row["total"], 75.0, "updated payload mismatch")

	snapshot, ok := row[repo.KeySnapshot].(map[string]interface{})
	if !ok {
		t.Fatal("expected a snapshot of the synced copy")
	}
	assert.Equal(t, snapshot["total"], 50.0, "snapshot payload mismatch")

	assert.Equal(t, r.Count("orders"), 1, "pending update should overwrite the local copy in place")
}

func TestDeleteOffline(t *testing.T) {
	remote := &fakeRemote{}
	s, r := newTestRouter(t, remote, false)

	if err := s.Delete("orders", "o-1"); err != nil {
		t.Fatal(errors.Wrap(err, "deleting"))
	}

	assert.Equal(t, remote.deleteCalls, 0, "remote should not be called while offline")

	got := r.GetByID("orders", "o-1")
	if got == nil {
		t.Fatal("expected a pending delete record")
	}
	assert.Equal(t, got.Payload[repo.KeyOperation], "delete", "pending operation mismatch")
}

func TestDeleteOnline(t *testing.T) {
	remote := &fakeRemote{}
	s, r := newTestRouter(t, remote, true)

	if err := s.Delete("orders", "o-1"); err != nil {
		t.Fatal(errors.Wrap(err, "deleting"))
	}

	assert.Equal(t, remote.deleteCalls, 1, "remote delete call count mismatch")
	assert.Equal(t, r.Count("orders"), 0, "online delete should not write locally")
}

func TestSelectOffline(t *testing.T) {
	s, r := newTestRouter(t, &fakeRemote{}, false)

	seed := []map[string]interface{}{
		{"id": "p-1", "name": "drill", "brand": "bosch", "price": 120.0},
		{"id": "p-2", "name": "saw", "brand": "makita", "price": 80.0},
		{"id": "p-3", "name": "sander", "brand": "bosch", "price": 60.0},
	}
	for _, payload := range seed {
		if _, err := r.Save("products", repo.Record{ID: payload["id"].(string), Payload: payload}); err != nil {
			t.Fatal(errors.Wrap(err, "seeding products"))
		}
	}

	rows := s.Select("products", client.Query{
		Where:   &client.Eq{Column: "brand", Value: "bosch"},
		OrderBy: "price",
	})

	assert.Equal(t, len(rows), 2, "row count mismatch")
	assert.Equal(t, rows[0]["name"], "sander", "sort order mismatch")
	assert.Equal(t, rows[1]["name"], "drill", "sort order mismatch")

	rows = s.Select("products", client.Query{OrderBy: "price", Desc: true, Limit: 1})
	assert.Equal(t, len(rows), 1, "limit mismatch")
	assert.Equal(t, rows[0]["name"], "drill", "descending sort mismatch")
}

func TestSelectRemoteFailureFallsBack(t *testing.T) {
	remote := &fakeRemote{failing: true}
	s, r := newTestRouter(t, remote, true)

	if _, err := r.Save("products", repo.Record{
		ID:      "p-1",
		Payload: map[string]interface{}{"id": "p-1", "name": "drill"},
	}); err != nil {
		t.Fatal(errors.Wrap(err, "seeding products"))
	}

	rows := s.Select("products", client.Query{})

	assert.Equal(t, len(rows), 1, "fallback row count mismatch")
	assert.Equal(t, rows[0]["name"], "drill", "fallback row mismatch")
}

func TestSelectNeverFails(t *testing.T) {
	s, _ := newTestRouter(t, &fakeRemote{failing: true}, true)

	rows := s.Select("missing", client.Query{})
	assert.Equal(t, len(rows), 0, "select on an unknown table should yield an empty list")
}
