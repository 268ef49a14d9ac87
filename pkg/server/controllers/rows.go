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

package controllers

import (
	"net/http"
	"strconv"

	"github.com/fieldsync/fieldsync/pkg/server/app"
	"github.com/gorilla/mux"
)

// NewRows creates a new Rows controller.
func NewRows(app *app.App) *Rows {
	return &Rows{
		app: app,
	}
}

// Rows is a controller for synced rows
type Rows struct {
	app *app.App
}

// SelectResp is the response for the list rows endpoint
type SelectResp struct {
	Rows []map[string]interface{} `json:"rows"`
}

// RowResp is the response for the row mutation endpoints
type RowResp struct {
	Row map[string]interface{} `json:"row"`
}

func parseRowQuery(r *http.Request) app.RowQuery {
	q := r.URL.Query()

	limit := 0
	if v := q.Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}

	return app.RowQuery{
		WhereCol:     q.Get("where_col"),
		WhereVal:     q.Get("where_val"),
		UpdatedAfter: q.Get("updated_after"),
		OrderBy:      q.Get("order_by"),
		Desc:         q.Get("desc") == "true",
		Limit:        limit,
	}
}

// Index handles GET /v1/tables/{table}/rows
func (c *Rows) Index(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	table := vars["table"]

	rows, err := c.app.ListRows(table, parseRowQuery(r))
	if err != nil {
		handleJSONError(w, err, "listing rows")
		return
	}

	respondJSON(w, http.StatusOK, SelectResp{Rows: rows})
}

// Create handles POST /v1/tables/{table}/rows
func (c *Rows) Create(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	table := vars["table"]

	var payload map[string]interface{}
	if err := parseRequestData(r, &payload); err != nil {
		handleJSONError(w, err, "parsing payload")
		return
	}

	row, err := c.app.InsertRow(table, payload)
	if err != nil {
		handleJSONError(w, err, "inserting a row")
		return
	}

	respondJSON(w, http.StatusCreated, RowResp{Row: row})
}

// Update handles PATCH /v1/tables/{table}/rows/{rowID}
func (c *Rows) Update(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	table := vars["table"]
	rowID := vars["rowID"]

	var changes map[string]interface{}
	if err := parseRequestData(r, &changes); err != nil {
		handleJSONError(w, err, "parsing payload")
		return
	}

	row, err := c.app.UpdateRow(table, rowID, changes)
	if err != nil {
		handleJSONError(w, err, "updating a row")
		return
	}

	respondJSON(w, http.StatusOK, RowResp{Row: row})
}

// Upsert handles PUT /v1/tables/{table}/rows/{rowID}
func (c *Rows) Upsert(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	table := vars["table"]
	rowID := vars["rowID"]

	var payload map[string]interface{}
	if err := parseRequestData(r, &payload); err != nil {
		handleJSONError(w, err, "parsing payload")
		return
	}

	row, err := c.app.UpsertRow(table, rowID, payload)
	if err != nil {
		handleJSONError(w, err, "upserting a row")
		return
	}

	respondJSON(w, http.StatusOK, RowResp{Row: row})
}

// Delete handles DELETE /v1/tables/{table}/rows/{rowID}
func (c *Rows) Delete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	table := vars["table"]
	rowID := vars["rowID"]

	if err := c.app.DeleteRow(table, rowID); err != nil {
		handleJSONError(w, err, "deleting a row")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
