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

// Package router executes CRUD operations against the remote backend when
// online and degrades to durable local pending writes when offline or when
// the remote call fails. Every write succeeds from the caller's point of
// view unless the local store itself is unavailable; reads never fail.
package router

import (
	"fmt"
	"sort"
	"time"

	"github.com/fieldsync/fieldsync/pkg/cli/client"
	"github.com/fieldsync/fieldsync/pkg/cli/connectivity"
	"github.com/fieldsync/fieldsync/pkg/cli/log"
	"github.com/fieldsync/fieldsync/pkg/cli/repo"
	"github.com/fieldsync/fieldsync/pkg/cli/utils"
	"github.com/fieldsync/fieldsync/pkg/clock"
	"github.com/pkg/errors"
)

// Remote is the subset of the backend client the router depends on
type Remote interface {
	Select(table string, q client.Query) ([]map[string]interface{}, error)
	Insert(table string, row map[string]interface{}) (map[string]interface{}, error)
	Update(table, id string, row map[string]interface{}) (map[string]interface{}, error)
	Delete(table, id string) error
	Upsert(table string, row map[string]interface{}) (map[string]interface{}, error)
}

// SmartRequest routes operations between the remote backend and the local store
type SmartRequest struct {
	remote   Remote
	repo     *repo.Repo
	provider connectivity.Provider
	clock    clock.Clock
}

// New returns a new SmartRequest
func New(remote Remote, r *repo.Repo, provider connectivity.Provider, c clock.Clock) *SmartRequest {
	return &SmartRequest{
		remote:   remote,
		repo:     r,
		provider: provider,
		clock:    c,
	}
}

// savePending records the operation as a pending write in the local store.
// The record is tagged so that the sync engine can find it and reconcile it
// with the remote backend later.
//
// Pending writes for the same domain id are not coalesced: an offline update
// following an un-synced offline insert leaves two independent records, and
// upload applies them in enumeration order. The sync engine exposes the
// coalescing seam.
func (s *SmartRequest) savePending(table, operation string, row map[string]interface{}) (map[string]interface{}, error) {
	payload := map[string]interface{}{}
	for k, v := range row {
		payload[k] = v
	}

	if _, ok := payload["id"]; !ok {
		// a client-generated id mirrors the remote primary key once uploaded
		id, err := utils.GenerateUUID()
		if err != nil {
			return nil, errors.Wrap(err, "generating a domain id")
		}
		payload["id"] = id
	}

	payload[repo.KeySynced] = false
	payload[repo.KeyOperation] = operation
	payload[repo.KeyTimestamp] = s.clock.Now().UTC().Format(time.RFC3339)

	recID := fmt.Sprint(payload["id"])

	// keep the last synced copy around so that pending changes can be inspected
	if existing := s.repo.GetByID(table, recID); existing != nil && repo.IsSynced(existing.Payload) {
		snapshot := map[string]interface{}{}
		for k, v := range existing.Payload {
			snapshot[k] = v
		}
		delete(snapshot, repo.KeySnapshot)
		payload[repo.KeySnapshot] = snapshot
	}

	saved, err := s.repo.Save(table, repo.Record{ID: recID, Payload: payload})
	if err != nil {
		return nil, errors.Wrapf(err, "saving a pending %s for table %s", operation, table)
	}

	return saved.Payload, nil
}

func (s *SmartRequest) write(table, operation string, row map[string]interface{}, remoteFn func() (map[string]interface{}, error)) (map[string]interface{}, error) {
	if s.provider.IsOnline() {
		result, err := remoteFn()
		if err == nil {
			return result, nil
		}

		log.Debug("remote %s on table %s failed, falling back to local: %v\n", operation, table, err)
	}

	return s.savePending(table, operation, row)
}

// Insert creates a row remotely, or records a pending insert when offline
// or when the remote call fails
func (s *SmartRequest) Insert(table string, row map[string]interface{}) (map[string]interface{}, error) {
	return s.write(table, "insert", row, func() (map[string]interface{}, error) {
		return s.remote.Insert(table, row)
	})
}

// Update updates a row remotely, or records a pending update
func (s *SmartRequest) Update(table, id string, row map[string]interface{}) (map[string]interface{}, error) {
	payload := map[string]interface{}{}
	for k, v := range row {
		payload[k] = v
	}
	payload["id"] = id

	return s.write(table, "update", payload, func() (map[string]interface{}, error) {
		return s.remote.Update(table, id, row)
	})
}

// Upsert creates or overwrites a row remotely, or records a pending upsert
func (s *SmartRequest) Upsert(table string, row map[string]interface{}) (map[string]interface{}, error) {
	return s.write(table, "upsert", row, func() (map[string]interface{}, error) {
		return s.remote.Upsert(table, row)
	})
}

// Delete removes a row remotely, or records a pending delete
func (s *SmartRequest) Delete(table, id string) error {
	if s.provider.IsOnline() {
		err := s.remote.Delete(table, id)
		if err == nil {
			return nil
		}

		log.Debug("remote delete on table %s failed, falling back to local: %v\n", table, err)
	}

	_, err := s.savePending(table, "delete", map[string]interface{}{"id": id})
	return err
}

// Select fetches rows remotely when online, degrading to the local store.
// The offline path supports one equality predicate, a single-column sort,
// and a limit; it is a deliberate reduction of the remote query surface.
// Select never fails; a total failure yields an empty list.
func (s *SmartRequest) Select(table string, q client.Query) []map[string]interface{} {
	if s.provider.IsOnline() {
		rows, err := s.remote.Select(table, q)
		if err == nil {
			return rows
		}

		log.Debug("remote select on table %s failed, falling back to local: %v\n", table, err)
	}

	return s.selectLocal(table, q)
}

func (s *SmartRequest) selectLocal(table string, q client.Query) []map[string]interface{} {
	records := s.repo.GetAll(table)

	rows := []map[string]interface{}{}
	for _, rec := range records {
		if q.Where != nil {
			v, ok := rec.Payload[q.Where.Column]
			if !ok || fmt.Sprint(v) != q.Where.Value {
				continue
			}
		}

		rows = append(rows, rec.Payload)
	}

	if q.OrderBy != "" {
		sortRows(rows, q.OrderBy, q.Desc)
	}

	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}

	return rows
}

// sortRows orders rows by a single column, numerically when both values are
// numbers and lexically otherwise
func sortRows(rows []map[string]interface{}, column string, desc bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		less := lessValue(rows[i][column], rows[j][column])
		if desc {
			return !less && !equalValue(rows[i][column], rows[j][column])
		}
		return less
	})
}

func lessValue(a, b interface{}) bool {
	af, aok := a.(float64)
	bf, bok := b.(float64)
	if aok && bok {
		return af < bf
	}

	return fmt.Sprint(a) < fmt.Sprint(b)
}

func equalValue(a, b interface{}) bool {
	af, aok := a.(float64)
	bf, bok := b.(float64)
	if aok && bok {
		return af == bf
	}

	return fmt.Sprint(a) == fmt.Sprint(b)
}
