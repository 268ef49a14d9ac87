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

// Package syncengine reconciles the local store with the remote backend.
// Upload pushes pending writes and removes the local copy only after the
// server confirms each one. Download refreshes tables, fully on first
// contact and incrementally afterwards using a per-table watermark.
// Individual failures are collected and reported; they never abort a pass.
package syncengine

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fieldsync/fieldsync/pkg/cli/client"
	"github.com/fieldsync/fieldsync/pkg/cli/consts"
	"github.com/fieldsync/fieldsync/pkg/cli/log"
	"github.com/fieldsync/fieldsync/pkg/cli/repo"
	"github.com/fieldsync/fieldsync/pkg/cli/tablecache"
	"github.com/fieldsync/fieldsync/pkg/clock"
	"github.com/pkg/errors"
)

// ErrSyncInProgress is returned when a sync pass is requested while one
// is already running
var ErrSyncInProgress = errors.New("sync already in progress")

// Remote is the subset of the backend client the engine depends on
type Remote interface {
	Select(table string, q client.Query) ([]map[string]interface{}, error)
	Upsert(table string, row map[string]interface{}) (map[string]interface{}, error)
}

// ItemError records a failure to upload one pending record
type ItemError struct {
	Table string
	ID    string
	Err   error
}

// TableError records a failure to download one table
type TableError struct {
	Table string
	Err   error
}

// UploadSummary is the result of an upload pass
type UploadSummary struct {
	Succeeded int
	Failed    int
	Errors    []ItemError
}

// DownloadSummary is the result of a download pass
type DownloadSummary struct {
	Downloaded int
	Errors     []TableError
}

// SyncResult is the result of a full sync pass
type SyncResult struct {
	Upload   UploadSummary
	Download DownloadSummary
}

// Engine performs upload and download passes against the remote backend
type Engine struct {
	repo   *repo.Repo
	cache  *tablecache.Cache
	remote Remote
	clock  clock.Clock
	events *Emitter

	mu        sync.Mutex
	isSyncing bool
}

// New returns a new engine
func New(r *repo.Repo, cache *tablecache.Cache, remote Remote, c clock.Clock) *Engine {
	return &Engine{
		repo:   r,
		cache:  cache,
		remote: remote,
		clock:  c,
		events: NewEmitter(),
	}
}

// Events returns the engine's event emitter
func (e *Engine) Events() *Emitter {
	return e.events
}

// begin acquires the single-flight sync guard
func (e *Engine) begin() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.isSyncing {
		return ErrSyncInProgress
	}
	e.isSyncing = true

	return nil
}

func (e *Engine) end() {
	e.mu.Lock()
	e.isSyncing = false
	e.mu.Unlock()
}

// Watermark tracks the last confirmed upload and download times of a table
type Watermark struct {
	Table          string
	LastUploadAt   string
	LastDownloadAt string
}

func watermarkID(table string) string {
	return fmt.Sprintf("%s:%s", consts.SyncMetaTable, table)
}

// GetWatermark returns the stored watermark of the given table. A table
// that was never synced has a zero watermark.
func (e *Engine) GetWatermark(table string) Watermark {
	ret := Watermark{Table: table}

	rec := e.repo.GetByID(consts.SyncMetaTable, watermarkID(table))
	if rec == nil {
		return ret
	}

	if v, ok := rec.Payload["last_upload_at"].(string); ok {
		ret.LastUploadAt = v
	}
	if v, ok := rec.Payload["last_download_at"].(string); ok {
		ret.LastDownloadAt = v
	}

	return ret
}

// laterTimestamp keeps a watermark monotonic. It returns the candidate only
// when the current value is absent or strictly earlier.
func laterTimestamp(current, candidate string) string {
	if current == "" {
		return candidate
	}

	ct, err := time.Parse(time.RFC3339, current)
	if err != nil {
		return candidate
	}
	nt, err := time.Parse(time.RFC3339, candidate)
	if err != nil {
		return current
	}

	if nt.After(ct) {
		return candidate
	}

	return current
}

// advanceWatermark moves the watermark of the given table forward. A
// candidate earlier than the stored value is ignored, so watermarks never
// roll back.
func (e *Engine) advanceWatermark(table, uploadAt, downloadAt string) error {
	wm := e.GetWatermark(table)

	if uploadAt != "" {
		wm.LastUploadAt = laterTimestamp(wm.LastUploadAt, uploadAt)
	}
	if downloadAt != "" {
		wm.LastDownloadAt = laterTimestamp(wm.LastDownloadAt, downloadAt)
	}

	payload := map[string]interface{}{
		"table":            table,
		"last_upload_at":   wm.LastUploadAt,
		"last_download_at": wm.LastDownloadAt,
	}

	_, err := e.repo.Save(consts.SyncMetaTable, repo.Record{
		ID:      watermarkID(table),
		Payload: payload,
	})
	if err != nil {
		return errors.Wrapf(err, "saving the watermark of table %s", table)
	}

	return nil
}

// stripMarkers removes local bookkeeping keys before a payload goes to
// the remote backend
func stripMarkers(payload map[string]interface{}) map[string]interface{} {
	ret := map[string]interface{}{}
	for k, v := range payload {
		if strings.HasPrefix(k, "_") {
			continue
		}
		ret[k] = v
	}

	return ret
}

// coalescePending is the seam for merging multiple pending writes against
// the same domain id before upload. It currently uploads them as captured,
// in enumeration order.
func coalescePending(records []repo.Record) []repo.Record {
	return records
}

func (e *Engine) pendingRecords(table string) []repo.Record {
	return coalescePending(e.repo.Search(table, func(rec repo.Record) bool {
		return !repo.IsSynced(rec.Payload)
	}))
}

// syncTables lists the tables subject to upload, which is every table in
// the store except the watermark table
func (e *Engine) syncTables() []string {
	ret := []string{}
	for _, table := range e.repo.Tables() {
		if table == consts.SyncMetaTable {
			continue
		}
		ret = append(ret, table)
	}

	return ret
}

// uploadTable pushes the given pending records of one table. The progress
// callback, when set, fires before each record goes out.
func (e *Engine) uploadTable(table, passStart string, records []repo.Record, progress func(repo.Record)) (int, []ItemError) {
	uploaded := 0
	itemErrs := []ItemError{}
	for _, rec := range records {
		if progress != nil {
			progress(rec)
		}

		row := stripMarkers(rec.Payload)

		if _, err := e.remote.Upsert(table, row); err != nil {
			itemErrs = append(itemErrs, ItemError{Table: table, ID: rec.ID, Err: err})
			continue
		}

		// the local copy goes away only after the server confirmed the write
		if _, err := e.repo.Remove(table, rec.ID); err != nil {
			itemErrs = append(itemErrs, ItemError{Table: table, ID: rec.ID, Err: errors.Wrap(err, "removing an uploaded record")})
			continue
		}

		uploaded++
	}

	if uploaded > 0 {
		if err := e.advanceWatermark(table, passStart, ""); err != nil {
			log.Debug("advancing the upload watermark of table %s: %v\n", table, err)
		}
	}

	return uploaded, itemErrs
}

func (e *Engine) upload() UploadSummary {
	passStart := e.clock.Now().UTC().Format(time.RFC3339)

	tables := e.syncTables()
	pending := map[string][]repo.Record{}
	total := 0
	for _, table := range tables {
		pending[table] = e.pendingRecords(table)
		total += len(pending[table])
	}

	// per-record failures stay out of the event stream; they are reported
	// through the completion summary and retried on the next pass
	current := 0
	ret := UploadSummary{Errors: []ItemError{}}
	for _, table := range tables {
		progress := func(rec repo.Record) {
			current++
			e.events.emit(Event{
				Kind:     KindSyncProgress,
				Message:  fmt.Sprintf("uploading record %s of table %s", rec.ID, table),
				Progress: current,
				Total:    total,
			})
		}

		uploaded, itemErrs := e.uploadTable(table, passStart, pending[table], progress)

		ret.Succeeded += uploaded
		ret.Failed += len(itemErrs)
		ret.Errors = append(ret.Errors, itemErrs...)
	}

	return ret
}

// Upload pushes every pending write to the remote backend. Confirmed
// records are removed locally; failures are collected and the pass
// continues. Upload may run while a full sync pass is in flight; only
// Sync takes the single-flight guard.
func (e *Engine) Upload() UploadSummary {
	return e.upload()
}

// UploadTable pushes the pending writes of a single table and returns
// the number of records confirmed. It emits no events.
func (e *Engine) UploadTable(table string) (int, []ItemError) {
	passStart := e.clock.Now().UTC().Format(time.RFC3339)

	return e.uploadTable(table, passStart, e.pendingRecords(table), nil)
}

func (e *Engine) downloadTable(table, passStart string, fullRefresh bool) (int, error) {
	wm := e.GetWatermark(table)

	var count int
	if fullRefresh || wm.LastDownloadAt == "" {
		rows, err := e.remote.Select(table, client.Query{})
		if err != nil {
			return 0, errors.Wrapf(err, "fetching table %s", table)
		}

		count = e.cache.Set(table, rows)
	} else {
		rows, err := e.remote.Select(table, client.Query{UpdatedAfter: wm.LastDownloadAt})
		if err != nil {
			return 0, errors.Wrapf(err, "fetching table %s incrementally", table)
		}

		for _, row := range rows {
			payload := map[string]interface{}{}
			for k, v := range row {
				payload[k] = v
			}
			payload[repo.KeySynced] = true

			rec := repo.Record{Payload: payload}
			if id, ok := row["id"]; ok {
				rec.ID = fmt.Sprint(id)
			}

			if _, err := e.repo.Save(table, rec); err != nil {
				return count, errors.Wrapf(err, "saving a downloaded row of table %s", table)
			}

			count++
		}
	}

	// a successful fetch with zero rows still moves the watermark, so the
	// next pass does not refetch the same window
	if err := e.advanceWatermark(table, "", passStart); err != nil {
		return count, err
	}

	return count, nil
}

func (e *Engine) download(tables []string) DownloadSummary {
	passStart := e.clock.Now().UTC().Format(time.RFC3339)

	ret := DownloadSummary{Errors: []TableError{}}
	for i, table := range tables {
		e.events.emit(Event{
			Kind:     KindSyncProgress,
			Message:  fmt.Sprintf("downloading table %s", table),
			Progress: i + 1,
			Total:    len(tables),
		})

		count, err := e.downloadTable(table, passStart, false)
		ret.Downloaded += count

		if err != nil {
			ret.Errors = append(ret.Errors, TableError{Table: table, Err: err})
			e.events.emit(Event{
				Kind:    KindSyncError,
				Message: fmt.Sprintf("downloading table %s", table),
				Err:     err,
			})
		}
	}

	return ret
}

// Download refreshes the given tables from the remote backend. A table
// without a watermark is fetched in full and replaced; otherwise only rows
// with a newer updated_at are fetched. Per-table failures are collected
// and the pass continues. Like Upload, it does not take the single-flight
// guard.
func (e *Engine) Download(tables []string) DownloadSummary {
	return e.download(tables)
}

// DownloadTable refreshes a single table, in full when fullRefresh is set,
// and returns the number of rows applied. It emits no events.
func (e *Engine) DownloadTable(table string, fullRefresh bool) (int, error) {
	passStart := e.clock.Now().UTC().Format(time.RFC3339)

	return e.downloadTable(table, passStart, fullRefresh)
}

// Sync runs an upload pass followed by a download pass of the given tables.
// A concurrent call fails immediately with ErrSyncInProgress.
func (e *Engine) Sync(tables []string) (SyncResult, error) {
	if err := e.begin(); err != nil {
		return SyncResult{}, err
	}
	defer e.end()

	e.events.emit(Event{Kind: KindSyncStart, Message: "sync started"})

	ret := SyncResult{
		Upload:   e.upload(),
		Download: e.download(tables),
	}

	e.events.emit(Event{
		Kind:    KindSyncCompleted,
		Message: "sync completed",
		Data:    ret,
	})

	return ret, nil
}
