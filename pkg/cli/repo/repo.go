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

// Package repo provides a typed façade over the local store that groups
// documents by logical table, stamps creation and update timestamps, and
// generates ids when absent. Write paths propagate errors; read paths
// collapse errors to safe defaults so callers never crash on a broken store.
package repo

import (
	"time"

	"github.com/fieldsync/fieldsync/pkg/cli/localdb"
	"github.com/fieldsync/fieldsync/pkg/cli/log"
	"github.com/fieldsync/fieldsync/pkg/cli/utils"
	"github.com/fieldsync/fieldsync/pkg/clock"
	"github.com/pkg/errors"
)

// Payload marker keys used by the router, the bulk table cache, and the
// sync engine. Keys starting with an underscore are local bookkeeping and
// are stripped before a record is sent to the remote backend.
const (
	// KeySynced marks a payload as confirmed against the remote backend
	KeySynced = "_synced"
	// KeyOperation records the CRUD verb of a pending write
	KeyOperation = "_operation"
	// KeyTimestamp records when a pending write was captured
	KeyTimestamp = "_timestamp"
	// KeyCached marks a payload as managed by the bulk table cache
	KeyCached = "_cached"
	// KeyCachedAt records when the bulk table cache last refreshed a payload
	KeyCachedAt = "_cachedAt"
	// KeySnapshot preserves the previously synced payload of a pending update
	KeySnapshot = "_snapshot"
)

// Record is a document scoped to a logical table
type Record struct {
	ID        string
	Table     string
	Revision  string
	Payload   map[string]interface{}
	CreatedAt string
	UpdatedAt string
}

// Repo is a table-scoped façade over the local store
type Repo struct {
	store *localdb.Store
	clock clock.Clock
}

// New returns a new repo backed by the given store
func New(store *localdb.Store, c clock.Clock) *Repo {
	return &Repo{store: store, clock: c}
}

// Store returns the underlying local store
func (r *Repo) Store() *localdb.Store {
	return r.store
}

func (r *Repo) now() string {
	return r.clock.Now().UTC().Format(time.RFC3339)
}

func toRecord(doc localdb.Doc) Record {
	return Record{
		ID:        doc.ID,
		Table:     doc.Table,
		Revision:  doc.Revision,
		Payload:   doc.Payload,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}

// Save writes the record under the given table, generating an id when the
// record carries none. When a document with the same id already exists, its
// revision and creation timestamp are carried forward; a missing document is
// the expected insert path, not an error. The table of an existing id is
// immutable.
func (r *Repo) Save(table string, rec Record) (Record, error) {
	if rec.ID == "" {
		id, err := utils.GenerateUUID()
		if err != nil {
			return Record{}, errors.Wrap(err, "generating a record id")
		}
		rec.ID = id
	}

	now := r.now()
	doc := localdb.Doc{
		ID:        rec.ID,
		Table:     table,
		Payload:   rec.Payload,
		CreatedAt: now,
		UpdatedAt: now,
	}

	existing, err := r.store.Get(rec.ID)
	if err == nil {
		if existing.Table != table {
			return Record{}, errors.Errorf("record %s belongs to table %s, not %s", rec.ID, existing.Table, table)
		}

		doc.Revision = existing.Revision
		doc.CreatedAt = existing.CreatedAt
	} else if err != localdb.ErrNotFound {
		return Record{}, errors.Wrapf(err, "looking up record %s", rec.ID)
	}

	revision, err := r.store.Put(doc)
	if err != nil {
		return Record{}, errors.Wrapf(err, "saving record %s", rec.ID)
	}

	return Record{
		ID:        doc.ID,
		Table:     table,
		Revision:  revision,
		Payload:   doc.Payload,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

func (r *Repo) getAll(table string) ([]Record, error) {
	docs, err := r.store.FindByTable(table)
	if err != nil {
		return nil, errors.Wrapf(err, "finding records in table %s", table)
	}

	ret := make([]Record, 0, len(docs))
	for _, doc := range docs {
		ret = append(ret, toRecord(doc))
	}

	return ret, nil
}

// GetAll returns every record in the given table. It returns an empty list
// when the underlying store fails.
func (r *Repo) GetAll(table string) []Record {
	records, err := r.getAll(table)
	if err != nil {
		log.Debug("getting records of table %s: %v\n", table, err)
		return []Record{}
	}

	return records
}

// GetByID looks up a record by its id. It returns nil when the id does not
// exist or when the stored table does not match the requested one; the table
// field acts as a recorded assertion, so a mismatch is treated as not found.
func (r *Repo) GetByID(table, id string) *Record {
	doc, err := r.store.Get(id)
	if err == localdb.ErrNotFound {
		return nil
	} else if err != nil {
		log.Debug("getting record %s: %v\n", id, err)
		return nil
	}

	if doc.Table != table {
		return nil
	}

	rec := toRecord(doc)
	return &rec
}

// Remove deletes the record with the given id using its stored revision.
// It reports false when the record is absent. A revision conflict from the
// storage layer surfaces as an error.
func (r *Repo) Remove(table, id string) (bool, error) {
	rec := r.GetByID(table, id)
	if rec == nil {
		return false, nil
	}

	if err := r.store.Remove(id, rec.Revision); err != nil {
		if err == localdb.ErrNotFound {
			return false, nil
		}

		return false, errors.Wrapf(err, "removing record %s", id)
	}

	return true, nil
}

// Clear deletes every record in the given table and returns the number of
// records deleted. It is best-effort: a failing delete is logged and the
// remaining records are still attempted.
func (r *Repo) Clear(table string) int {
	records := r.GetAll(table)

	deleted := 0
	for _, rec := range records {
		if err := r.store.Remove(rec.ID, rec.Revision); err != nil {
			log.Debug("clearing record %s of table %s: %v\n", rec.ID, table, err)
			continue
		}

		deleted++
	}

	return deleted
}

// Count returns the number of records in the given table, or zero when the
// underlying store fails.
func (r *Repo) Count(table string) int {
	count, err := r.store.CountByTable(table)
	if err != nil {
		log.Debug("counting records of table %s: %v\n", table, err)
		return 0
	}

	return count
}

// Search returns every record in the given table matching the predicate
func (r *Repo) Search(table string, predicate func(Record) bool) []Record {
	ret := []Record{}
	for _, rec := range r.GetAll(table) {
		if predicate(rec) {
			ret = append(ret, rec)
		}
	}

	return ret
}

// Tables returns the distinct table names observed across all stored records
func (r *Repo) Tables() []string {
	tables, err := r.store.Tables()
	if err != nil {
		log.Debug("listing tables: %v\n", err)
		return []string{}
	}

	return tables
}

// IsSynced reports whether the given payload is confirmed against the
// remote backend. A missing or falsy marker means the record is pending.
func IsSynced(payload map[string]interface{}) bool {
	v, ok := payload[KeySynced]
	if !ok {
		return false
	}

	b, ok := v.(bool)
	return ok && b
}
