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

package database

import (
	"path/filepath"
	"testing"

	"github.com/fieldsync/fieldsync/pkg/assert"
)

func TestOpenInitSchema(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "server.db")

	db := Open(dbPath)
	InitSchema(db)

	row := Row{
		TableName: "products",
		DomainID:  "p-1",
		Payload:   `{"id": "p-1", "name": "drill"}`,
	}
	if err := db.Save(&row).Error; err != nil {
		t.Fatal(err)
	}

	var got Row
	if err := db.Where("table_name = ? AND domain_id = ?", "products", "p-1").First(&got).Error; err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, got.Payload, row.Payload, "payload mismatch")
	if got.UpdatedAt.IsZero() {
		t.Fatal("updated_at should be set on save")
	}
}

func TestNullStringJSON(t *testing.T) {
	s := ToNullString("hello")

	b, err := s.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, string(b), `"hello"`, "marshaled value mismatch")

	var empty NullString
	b, err = empty.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, string(b), "null", "marshaled null mismatch")

	var decoded NullString
	if err := decoded.UnmarshalJSON([]byte(`"world"`)); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, decoded.String, "world", "unmarshaled value mismatch")
	assert.Equal(t, decoded.Valid, true, "unmarshaled validity mismatch")
}
