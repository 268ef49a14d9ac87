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

// Package localdb implements the local document store backing every other
// component. Documents are keyed by id, tagged with a logical table name,
// and versioned with an opaque revision that updates and removals must
// present (optimistic concurrency at the storage layer).
package localdb

import (
	"database/sql"
	_ "embed"
	"encoding/json"

	"github.com/fieldsync/fieldsync/pkg/cli/utils"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

//go:embed schema.sql
var schemaSQL string

// ErrNotFound is an error for a document that does not exist
var ErrNotFound = errors.New("document not found")

// ErrRevisionConflict is an error for an update or removal carrying a stale revision
var ErrRevisionConflict = errors.New("revision conflict")

// Doc is the unit stored in the local store
type Doc struct {
	ID        string
	Table     string
	Revision  string
	Payload   map[string]interface{}
	CreatedAt string
	UpdatedAt string
}

// Store is a handle to the local store
type Store struct {
	*sql.DB
}

// Open opens the local store at the given path and initializes its schema
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, errors.Wrap(err, "setting busy timeout")
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, errors.Wrap(err, "initializing schema")
	}

	return &Store{db}, nil
}

func scanDoc(scan func(...interface{}) error) (Doc, error) {
	var doc Doc
	var payload string

	if err := scan(&doc.ID, &doc.Table, &doc.Revision, &payload, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return doc, err
	}

	if err := json.Unmarshal([]byte(payload), &doc.Payload); err != nil {
		return doc, errors.Wrapf(err, "unmarshalling payload of document %s", doc.ID)
	}

	return doc, nil
}

// Get looks up a document by its id
func (s *Store) Get(id string) (Doc, error) {
	row := s.QueryRow("SELECT id, table_name, revision, payload, created_at, updated_at FROM records WHERE id = ?", id)

	doc, err := scanDoc(row.Scan)
	if err == sql.ErrNoRows {
		return doc, ErrNotFound
	} else if err != nil {
		return doc, errors.Wrapf(err, "getting document %s", id)
	}

	return doc, nil
}

// Put writes the given document. A document without a revision is inserted;
// one with a revision is updated, and the revision must match the stored one.
// It returns the newly assigned revision.
func (s *Store) Put(doc Doc) (string, error) {
	payload, err := json.Marshal(doc.Payload)
	if err != nil {
		return "", errors.Wrapf(err, "marshalling payload of document %s", doc.ID)
	}

	revision, err := utils.GenerateUUID()
	if err != nil {
		return "", errors.Wrap(err, "generating a revision")
	}

	if doc.Revision == "" {
		_, err = s.Exec("INSERT INTO records (id, table_name, revision, payload, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
			doc.ID, doc.Table, revision, string(payload), doc.CreatedAt, doc.UpdatedAt)
		if err != nil {
			return "", errors.Wrapf(err, "inserting document %s", doc.ID)
		}

		return revision, nil
	}

	result, err := s.Exec("UPDATE records SET table_name = ?, revision = ?, payload = ?, created_at = ?, updated_at = ? WHERE id = ? AND revision = ?",
		doc.Table, revision, string(payload), doc.CreatedAt, doc.UpdatedAt, doc.ID, doc.Revision)
	if err != nil {
		return "", errors.Wrapf(err, "updating document %s", doc.ID)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return "", errors.Wrap(err, "counting affected rows")
	}
	if n == 0 {
		if _, err := s.Get(doc.ID); err == ErrNotFound {
			return "", ErrNotFound
		}

		return "", errors.Wrapf(ErrRevisionConflict, "updating document %s", doc.ID)
	}

	return revision, nil
}

// Remove deletes a document. The given revision must match the stored one.
func (s *Store) Remove(id, revision string) error {
	result, err := s.Exec("DELETE FROM records WHERE id = ? AND revision = ?", id, revision)
	if err != nil {
		return errors.Wrapf(err, "deleting document %s", id)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "counting affected rows")
	}
	if n == 0 {
		if _, err := s.Get(id); err == ErrNotFound {
			return ErrNotFound
		}

		return errors.Wrapf(ErrRevisionConflict, "deleting document %s", id)
	}

	return nil
}

func (s *Store) queryDocs(query string, args ...interface{}) ([]Doc, error) {
	rows, err := s.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying documents")
	}
	defer rows.Close()

	ret := []Doc{}
	for rows.Next() {
		doc, err := scanDoc(rows.Scan)
		if err != nil {
			return nil, errors.Wrap(err, "scanning a document row")
		}

		ret = append(ret, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating document rows")
	}

	return ret, nil
}

// FindByTable returns every document whose table field equals the argument.
// The query is served by the index on table_name.
func (s *Store) FindByTable(table string) ([]Doc, error) {
	return s.queryDocs("SELECT id, table_name, revision, payload, created_at, updated_at FROM records WHERE table_name = ?", table)
}

// AllDocs returns every document in the store
func (s *Store) AllDocs() ([]Doc, error) {
	return s.queryDocs("SELECT id, table_name, revision, payload, created_at, updated_at FROM records")
}

// Tables returns the distinct table names observed across all stored documents
func (s *Store) Tables() ([]string, error) {
	rows, err := s.Query("SELECT DISTINCT table_name FROM records ORDER BY table_name")
	if err != nil {
		return nil, errors.Wrap(err, "querying table names")
	}
	defer rows.Close()

	ret := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "scanning a table name")
		}

		ret = append(ret, name)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating table name rows")
	}

	return ret, nil
}

// CountByTable returns the number of documents in the given table
func (s *Store) CountByTable(table string) (int, error) {
	var count int
	if err := s.QueryRow("SELECT count(*) FROM records WHERE table_name = ?", table).Scan(&count); err != nil {
		return 0, errors.Wrapf(err, "counting documents in table %s", table)
	}

	return count, nil
}

// Destroy removes every document and system entry from the store
func (s *Store) Destroy() error {
	if _, err := s.Exec("DELETE FROM records"); err != nil {
		return errors.Wrap(err, "deleting documents")
	}
	if _, err := s.Exec("DELETE FROM system"); err != nil {
		return errors.Wrap(err, "deleting system entries")
	}

	return nil
}
