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
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/fieldsync/fieldsync/pkg/server/database"
	"github.com/fieldsync/fieldsync/pkg/server/helpers"
	pkgErrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

// RowQuery is the query surface for listing rows: one equality predicate,
// a greater-than filter on updated_at, a single-column order, and a limit.
type RowQuery struct {
	WhereCol     string
	WhereVal     string
	UpdatedAfter string
	OrderBy      string
	Desc         bool
	Limit        int
}

// presentRow decodes a stored row into the payload that clients see.
// The domain id and the server-side timestamps always win over whatever
// is inside the stored payload.
func presentRow(row database.Row) (map[string]interface{}, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(row.Payload), &payload); err != nil {
		return nil, pkgErrors.Wrapf(err, "decoding payload for row %s", row.DomainID)
	}

	payload["id"] = row.DomainID
	payload["created_at"] = row.CreatedAt.UTC().Format(time.RFC3339)
	payload["updated_at"] = row.UpdatedAt.UTC().Format(time.RFC3339)

	return payload, nil
}

// encodePayload serializes the given payload for storage, dropping the
// server-managed timestamp keys
func encodePayload(payload map[string]interface{}) (string, error) {
	stored := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		if k == "created_at" || k == "updated_at" {
			continue
		}

		stored[k] = v
	}

	b, err := json.Marshal(stored)
	if err != nil {
		return "", pkgErrors.Wrap(err, "marshaling payload")
	}

	return string(b), nil
}

func compareValues(a, b interface{}) int {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}

	as := fmt.Sprint(a)
	bs := fmt.Sprint(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(val, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// ListRows returns the rows of the given table matching the given query
func (a *App) ListRows(table string, q RowQuery) ([]map[string]interface{}, error) {
	if table == "" {
		return nil, ErrTableNameRequired
	}

	conn := a.DB.Where("table_name = ?", table)
	if q.UpdatedAfter != "" {
		t, err := time.Parse(time.RFC3339, q.UpdatedAfter)
		if err != nil {
			return nil, pkgErrors.Wrapf(err, "parsing updated_after %s", q.UpdatedAfter)
		}

		conn = conn.Where("updated_at > ?", t)
	}

	var rows []database.Row
	if err := conn.Find(&rows).Error; err != nil {
		return nil, pkgErrors.Wrap(err, "finding rows")
	}

	ret := []map[string]interface{}{}
	for _, row := range rows {
		payload, err := presentRow(row)
		if err != nil {
			return nil, err
		}

		if q.WhereCol != "" && fmt.Sprint(payload[q.WhereCol]) != q.WhereVal {
			continue
		}

		ret = append(ret, payload)
	}

	if q.OrderBy != "" {
		sort.SliceStable(ret, func(i, j int) bool {
			cmp := compareValues(ret[i][q.OrderBy], ret[j][q.OrderBy])
			if q.Desc {
				return cmp > 0
			}

			return cmp < 0
		})
	}

	if q.Limit > 0 && len(ret) > q.Limit {
		ret = ret[:q.Limit]
	}

	return ret, nil
}

func (a *App) getRow(table, id string) (database.Row, error) {
	var row database.Row
	err := a.DB.Where("table_name = ? AND domain_id = ?", table, id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return row, ErrNotFound
	} else if err != nil {
		return row, pkgErrors.Wrap(err, "finding row")
	}

	return row, nil
}

// GetRow returns the row of the given table with the given domain id
func (a *App) GetRow(table, id string) (map[string]interface{}, error) {
	row, err := a.getRow(table, id)
	if err != nil {
		return nil, err
	}

	return presentRow(row)
}

// InsertRow creates a new row in the given table. If the payload carries
// no id, one is generated.
func (a *App) InsertRow(table string, payload map[string]interface{}) (map[string]interface{}, error) {
	if table == "" {
		return nil, ErrTableNameRequired
	}

	var id string
	if v, ok := payload["id"]; ok {
		id = fmt.Sprint(v)
	} else {
		generated, err := helpers.GenUUID()
		if err != nil {
			return nil, pkgErrors.Wrap(err, "generating row id")
		}

		id = generated
		payload["id"] = id
	}

	if _, err := a.getRow(table, id); err == nil {
		return nil, ErrDuplicateRow
	} else if err != ErrNotFound {
		return nil, err
	}

	encoded, err := encodePayload(payload)
	if err != nil {
		return nil, err
	}

	row := database.Row{
		TableName: table,
		DomainID:  id,
		Payload:   encoded,
	}
	if err := a.DB.Save(&row).Error; err != nil {
		return nil, pkgErrors.Wrap(err, "saving row")
	}

	return presentRow(row)
}

// UpdateRow merges the given changes into the row of the given table
// with the given domain id
func (a *App) UpdateRow(table, id string, changes map[string]interface{}) (map[string]interface{}, error) {
	row, err := a.getRow(table, id)
	if err != nil {
		return nil, err
	}

	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(row.Payload), &payload); err != nil {
		return nil, pkgErrors.Wrapf(err, "decoding payload for row %s", id)
	}

	for k, v := range changes {
		if k == "id" {
			continue
		}

		payload[k] = v
	}

	encoded, err := encodePayload(payload)
	if err != nil {
		return nil, err
	}

	row.Payload = encoded
	if err := a.DB.Save(&row).Error; err != nil {
		return nil, pkgErrors.Wrap(err, "saving row")
	}

	return presentRow(row)
}

// UpsertRow creates the row of the given table with the given domain id,
// or replaces its payload entirely if it already exists
func (a *App) UpsertRow(table, id string, payload map[string]interface{}) (map[string]interface{}, error) {
	if table == "" {
		return nil, ErrTableNameRequired
	}
	if id == "" {
		return nil, ErrRowIDRequired
	}

	payload["id"] = id
	encoded, err := encodePayload(payload)
	if err != nil {
		return nil, err
	}

	row, err := a.getRow(table, id)
	if err == ErrNotFound {
		row = database.Row{
			TableName: table,
			DomainID:  id,
		}
	} else if err != nil {
		return nil, err
	}

	row.Payload = encoded
	if err := a.DB.Save(&row).Error; err != nil {
		return nil, pkgErrors.Wrap(err, "saving row")
	}

	return presentRow(row)
}

// DeleteRow removes the row of the given table with the given domain id
func (a *App) DeleteRow(table, id string) error {
	row, err := a.getRow(table, id)
	if err != nil {
		return err
	}

	if err := a.DB.Delete(&row).Error; err != nil {
		return pkgErrors.Wrap(err, "deleting row")
	}

	return nil
}
