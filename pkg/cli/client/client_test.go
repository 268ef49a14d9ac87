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

package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fieldsync/fieldsync/pkg/assert"
	"github.com/pkg/errors"
)

func TestSelect(t *testing.T) {
	var gotPath, gotAuth string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.String()
		gotAuth = r.Header.Get("Authorization")

		fmt.Fprint(w, `{"rows": [{"id": "p-1", "name": "drill", "updated_at": "2020-03-14T09:00:00Z"}]}`)
	}))
	defer ts.Close()

	c := Client{Endpoint: ts.URL, SessionKey: "someSessionKey"}

	rows, err := c.Select("products", Query{
		Where:        &Eq{Column: "brand", Value: "bosch"},
		UpdatedAfter: "2020-03-14T00:00:00Z",
		OrderBy:      "name",
		Limit:        10,
	})
	if err != nil {
		t.Fatal(errors.Wrap(err, "selecting rows"))
	}

	assert.Equal(t, len(rows), 1, "row count mismatch")
	assert.Equal(t, rows[0]["name"], "drill", "row mismatch")
	assert.Equal(t, gotAuth, "Bearer someSessionKey", "authorization header mismatch")
	assert.Equal(t, gotPath, "/v1/tables/products/rows?limit=10&order_by=name&updated_after=2020-03-14T00%3A00%3A00Z&where_col=brand&where_val=bosch", "path mismatch")
}

func TestUpsert(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody map[string]interface{}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatal(errors.Wrap(err, "decoding request body"))
		}

		fmt.Fprint(w, `{"row": {"id": "o-1", "total": 99.5}}`)
	}))
	defer ts.Close()

	c := Client{Endpoint: ts.URL, SessionKey: "someSessionKey"}

	row, err := c.Upsert("orders", map[string]interface{}{"id": "o-1", "total": 99.5})
	if err != nil {
		t.Fatal(errors.Wrap(err, "upserting row"))
	}

	assert.Equal(t, gotMethod, "PUT", "method mismatch")
	assert.Equal(t, gotPath, "/v1/tables/orders/rows/o-1", "path mismatch")
	assert.Equal(t, gotBody["total"], 99.5, "request body mismatch")
	assert.Equal(t, row["total"], 99.5, "response row mismatch")
}

func TestUpsertWithoutID(t *testing.T) {
	c := Client{Endpoint: "http://localhost:0", SessionKey: "someSessionKey"}

	_, err := c.Upsert("orders", map[string]interface{}{"total": 1.0})
	assert.NotEqual(t, err, nil, "upserting without an id should fail")
}

func TestErrorResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such table", http.StatusNotFound)
	}))
	defer ts.Close()

	c := Client{Endpoint: ts.URL, SessionKey: "someSessionKey"}

	_, err := c.Select("nope", Query{})

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected an HTTPError. got %v", err)
	}
	assert.Equal(t, httpErr.StatusCode, http.StatusNotFound, "status code mismatch")
	assert.Equal(t, httpErr.Message, "no such table", "message mismatch")
}

func TestSigninInvalidLogin(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer ts.Close()

	c := Client{Endpoint: ts.URL}

	_, err := c.Signin("rep@example.com", "wrong")
	assert.Equal(t, err, ErrInvalidLogin, "error mismatch")
}

func TestAuthorizedReqWithoutSession(t *testing.T) {
	c := Client{Endpoint: "http://localhost:0"}

	_, err := c.Select("products", Query{})
	assert.NotEqual(t, err, nil, "request without a session should fail")
}
