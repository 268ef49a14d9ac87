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
	"encoding/json"
	"net/http"

	"github.com/fieldsync/fieldsync/pkg/server/app"
	"github.com/fieldsync/fieldsync/pkg/server/log"
	"github.com/pkg/errors"
)

// respondJSON writes the JSON-encoding of the given value with the given status code
func respondJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.ErrorWrap(err, "encoding response")
	}
}

// parseRequestData decodes the JSON body of the given request into the given value
func parseRequestData(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Wrap(err, "decoding payload")
	}

	return nil
}

// statusCodeForError maps a domain error to an http status code
func statusCodeForError(err error) int {
	switch errors.Cause(err) {
	case app.ErrNotFound:
		return http.StatusNotFound
	case app.ErrLoginInvalid, app.ErrEmailRequired, app.ErrPasswordRequired:
		return http.StatusUnauthorized
	case app.ErrDuplicateRow:
		return http.StatusConflict
	case app.ErrTableNameRequired, app.ErrRowIDRequired, app.ErrPasswordTooShort, app.ErrDuplicateEmail:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// handleJSONError logs the given error and responds with its message and
// an appropriate status code
func handleJSONError(w http.ResponseWriter, err error, msg string) {
	statusCode := statusCodeForError(err)

	if statusCode == http.StatusInternalServerError {
		log.WithFields(log.Fields{
			"statusCode": statusCode,
		}).ErrorWrap(err, msg)
	} else {
		log.WithFields(log.Fields{
			"statusCode": statusCode,
			"error":      err,
		}).Debug(msg)
	}

	http.Error(w, errors.Cause(err).Error(), statusCode)
}
