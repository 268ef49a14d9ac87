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

package app

import (
	"testing"

	"github.com/fieldsync/fieldsync/pkg/assert"
	"github.com/fieldsync/fieldsync/pkg/server/database"
	"github.com/fieldsync/fieldsync/pkg/server/testutils"
)

func TestInsertRow(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	a := NewTest()
	a.DB = db

	got, err := a.InsertRow("products", map[string]interface{}{"id": "p-1", "name": "drill"})
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, got["id"], "p-1", "id mismatch")
	assert.Equal(t, got["name"], "drill", "name mismatch")
	if got["updated_at"] == "" {
		t.Fatal("updated_at was not set")
	}

	var count int64
	testutils.MustExec(t, db.Model(database.Row{}).Where("table_name = ?", "products").Count(&count), "counting rows")
	assert.Equal(t, count, int64(1), "row count mismatch")
}

func TestInsertRowGeneratesID(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	a := NewTest()
	a.DB = db

	got, err := a.InsertRow("products", map[string]interface{}{"name": "drill"})
	if err != nil {
		t.Fatal(err)
	}

	id, ok := got["id"].(string)
	if !ok || id == "" {
		t.Fatalf("expected a generated id, got %v", got["id"])
	}
}

func TestInsertRowDuplicate(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	a := NewTest()
	a.DB = db

	if _, err := a.InsertRow("products", map[string]interface{}{"id": "p-1"}); err != nil {
		t.Fatal(err)
	}

	_, err := a.InsertRow("products", map[string]interface{}{"id": "p-1"})
	assert.Equal(t, err, ErrDuplicateRow, "error mismatch")
}

func TestUpdateRowMergesChanges(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	a := NewTest()
	a.DB = db

	if _, err := a.InsertRow("products", map[string]interface{}{"id": "p-1", "name": "drill", "price": 10.0}); err != nil {
		t.Fatal(err)
	}

	got, err := a.UpdateRow("products", "p-1", map[string]interface{}{"price": 12.5})
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, got["name"], "drill", "name should be untouched")
	assert.Equal(t, got["price"], 12.5, "price mismatch")
}

func TestUpdateRowNotFound(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	a := NewTest()
	a.DB = db

	_, err := a.UpdateRow("products", "p-404", map[string]interface{}{"price": 1.0})
	assert.Equal(t, err, ErrNotFound, "error mismatch")
}

func TestUpsertRowReplacesPayload(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	a := NewTest()
	a.DB = db

	if _, err := a.InsertRow("products", map[string]interface{}{"id": "p-1", "name": "drill", "discontinued": true}); err != nil {
		t.Fatal(err)
	}

	got, err := a.UpsertRow("products", "p-1", map[string]interface{}{"name": "hammer"})
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, got["name"], "hammer", "name mismatch")
	if _, ok := got["discontinued"]; ok {
		t.Fatal("upsert should have replaced the whole payload")
	}

	var count int64
	testutils.MustExec(t, db.Model(database.Row{}).Where("table_name = ?", "products").Count(&count), "counting rows")
	assert.Equal(t, count, int64(1), "row count mismatch")
}

func TestUpsertRowCreates(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	a := NewTest()
	a.DB = db

	got, err := a.UpsertRow("products", "p-9", map[string]interface{}{"name": "saw"})
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, got["id"], "p-9", "id mismatch")
	assert.Equal(t, got["name"], "saw", "name mismatch")
}

func TestDeleteRow(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	a := NewTest()
	a.DB = db

	if _, err := a.InsertRow("products", map[string]interface{}{"id": "p-1"}); err != nil {
		t.Fatal(err)
	}

	if err := a.DeleteRow("products", "p-1"); err != nil {
		t.Fatal(err)
	}

	_, err := a.GetRow("products", "p-1")
	assert.Equal(t, err, ErrNotFound, "error mismatch")

	err = a.DeleteRow("products", "p-1")
	assert.Equal(t, err, ErrNotFound, "deleting twice should not find the row")
}

func TestListRowsFilterSortLimit(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	a := NewTest()
	a.DB = db

	seed := []map[string]interface{}{
		{"id": "p-1", "brand": "bosch", "price": 30.0},
		{"id": "p-2", "brand": "makita", "price": 20.0},
		{"id": "p-3", "brand": "bosch", "price": 10.0},
	}
	for _, row := range seed {
		if _, err := a.InsertRow("products", row); err != nil {
			t.Fatal(err)
		}
	}

	got, err := a.ListRows("products", RowQuery{WhereCol: "brand", WhereVal: "bosch", OrderBy: "price"})
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, len(got), 2, "result count mismatch")
	assert.Equal(t, got[0]["id"], "p-3", "first row mismatch")
	assert.Equal(t, got[1]["id"], "p-1", "second row mismatch")

	got, err = a.ListRows("products", RowQuery{OrderBy: "price", Desc: true, Limit: 1})
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, len(got), 1, "limited result count mismatch")
	assert.Equal(t, got[0]["id"], "p-1", "limited row mismatch")
}

func TestListRowsScopedToTable(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	a := NewTest()
	a.DB = db

	if _, err := a.InsertRow("products", map[string]interface{}{"id": "p-1"}); err != nil {
		t.Fatal(err)
	}
	if _, err := a.InsertRow("clients", map[string]interface{}{"id": "c-1"}); err != nil {
		t.Fatal(err)
	}

	got, err := a.ListRows("clients", RowQuery{})
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, len(got), 1, "result count mismatch")
	assert.Equal(t, got[0]["id"], "c-1", "row mismatch")
}
