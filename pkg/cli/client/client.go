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

// Package client provides interfaces for interacting with the fieldsync
// backend and the data structures for responses
package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fieldsync/fieldsync/pkg/cli/log"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// ErrInvalidLogin is an error for invalid credentials for login
var ErrInvalidLogin = errors.New("wrong credentials")

// HTTPError represents an HTTP error response from the server
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf(`response %d "%s"`, e.StatusCode, e.Message)
}

// IsConflict returns true if the error is a 409 Conflict error
func (e *HTTPError) IsConflict() bool {
	return e.StatusCode == 409
}

const (
	// clientRateLimitPerSecond is the max requests per second the client will make
	clientRateLimitPerSecond = 50
	// clientRateLimitBurst is the burst capacity for rate limiting
	clientRateLimitBurst = 100
)

// rateLimitedTransport wraps an http.RoundTripper with rate limiting
type rateLimitedTransport struct {
	transport http.RoundTripper
	limiter   *rate.Limiter
}

func (t *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.transport.RoundTrip(req)
}

// NewRateLimitedHTTPClient creates an HTTP client with rate limiting
func NewRateLimitedHTTPClient() *http.Client {
	interval := time.Second / time.Duration(clientRateLimitPerSecond)

	transport := &rateLimitedTransport{
		transport: http.DefaultTransport,
		limiter:   rate.NewLimiter(rate.Every(interval), clientRateLimitBurst),
	}
	return &http.Client{
		Transport: transport,
	}
}

// Client talks to the fieldsync backend as a single authenticated user
type Client struct {
	// Endpoint is the base URL of the API, without a trailing slash
	Endpoint   string
	SessionKey string
	Version    string
	HTTPClient *http.Client
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}

	return &http.Client{}
}

func (c *Client) getReq(method, path, body string) (*http.Request, error) {
	endpoint := fmt.Sprintf("%s%s", c.Endpoint, path)
	req, err := http.NewRequest(method, endpoint, strings.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "constructing http request")
	}

	req.Header.Set("CLI-Version", c.Version)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.SessionKey != "" {
		credential := fmt.Sprintf("Bearer %s", c.SessionKey)
		req.Header.Set("Authorization", credential)
	}

	return req, nil
}

// checkRespErr checks if the given http response indicates an error
func checkRespErr(res *http.Response) error {
	if res.StatusCode < 400 {
		return nil
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return errors.Wrapf(err, "server responded with %d but client could not read the response body", res.StatusCode)
	}

	return &HTTPError{
		StatusCode: res.StatusCode,
		Message:    strings.TrimRight(string(body), "\n"),
	}
}

// doReq does a http request to the given path in the api endpoint
func (c *Client) doReq(method, path, body string) (*http.Response, error) {
	req, err := c.getReq(method, path, body)
	if err != nil {
		return nil, errors.Wrap(err, "getting request")
	}

	log.Debug("HTTP %s %s\n", method, path)

	res, err := c.httpClient().Do(req)
	if err != nil {
		return res, errors.Wrap(err, "making http request")
	}

	log.Debug("HTTP %d %s\n", res.StatusCode, res.Status)

	if err = checkRespErr(res); err != nil {
		return res, errors.Wrap(err, "server responded with an error")
	}

	return res, nil
}

// doAuthorizedReq does a http request to the given path in the api endpoint
// as a user, with the appropriate headers. The given path should include the
// preceding slash.
func (c *Client) doAuthorizedReq(method, path, body string) (*http.Response, error) {
	if c.SessionKey == "" {
		return nil, errors.New("no session key found")
	}

	return c.doReq(method, path, body)
}

// Eq is a single equality predicate on a column
type Eq struct {
	Column string
	Value  string
}

// Query is the query surface the backend supports for select: one equality
// predicate, a greater-than filter on updated_at, a single-column order, and
// a limit.
type Query struct {
	Where        *Eq
	UpdatedAfter string
	OrderBy      string
	Desc         bool
	Limit        int
}

func (q Query) encode() string {
	v := url.Values{}

	if q.Where != nil {
		v.Set("where_col", q.Where.Column)
		v.Set("where_val", q.Where.Value)
	}
	if q.UpdatedAfter != "" {
		v.Set("updated_after", q.UpdatedAfter)
	}
	if q.OrderBy != "" {
		v.Set("order_by", q.OrderBy)
		if q.Desc {
			v.Set("desc", "true")
		}
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}

	return v.Encode()
}

// SelectResp is the response from the select rows endpoint
type SelectResp struct {
	Rows []map[string]interface{} `json:"rows"`
}

// Select fetches rows of the given table from the server
func (c *Client) Select(table string, q Query) ([]map[string]interface{}, error) {
	path := fmt.Sprintf("/v1/tables/%s/rows", table)
	if queryStr := q.encode(); queryStr != "" {
		path = fmt.Sprintf("%s?%s", path, queryStr)
	}

	res, err := c.doAuthorizedReq("GET", path, "")
	if err != nil {
		return nil, errors.Wrap(err, "making the request")
	}

	var resp SelectResp
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return nil, errors.Wrap(err, "decoding payload")
	}

	return resp.Rows, nil
}

// RowResp is the response from the row mutation endpoints
type RowResp struct {
	Row map[string]interface{} `json:"row"`
}

// Insert creates a row of the given table in the server
func (c *Client) Insert(table string, row map[string]interface{}) (map[string]interface{}, error) {
	b, err := json.Marshal(row)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling payload")
	}

	path := fmt.Sprintf("/v1/tables/%s/rows", table)
	res, err := c.doAuthorizedReq("POST", path, string(b))
	if err != nil {
		return nil, errors.Wrap(err, "posting a row to the server")
	}

	var resp RowResp
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return nil, errors.Wrap(err, "decoding payload")
	}

	return resp.Row, nil
}

// Update updates a row of the given table in the server
func (c *Client) Update(table, id string, row map[string]interface{}) (map[string]interface{}, error) {
	b, err := json.Marshal(row)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling payload")
	}

	path := fmt.Sprintf("/v1/tables/%s/rows/%s", table, id)
	res, err := c.doAuthorizedReq("PATCH", path, string(b))
	if err != nil {
		return nil, errors.Wrap(err, "patching a row in the server")
	}

	var resp RowResp
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return nil, errors.Wrap(err, "decoding payload")
	}

	return resp.Row, nil
}

// Delete removes a row of the given table in the server
func (c *Client) Delete(table, id string) error {
	path := fmt.Sprintf("/v1/tables/%s/rows/%s", table, id)
	if _, err := c.doAuthorizedReq("DELETE", path, ""); err != nil {
		return errors.Wrap(err, "deleting a row in the server")
	}

	return nil
}

// Upsert creates or overwrites a row of the given table in the server,
// keyed by the domain id field inside the row
func (c *Client) Upsert(table string, row map[string]interface{}) (map[string]interface{}, error) {
	id, ok := row["id"]
	if !ok {
		return nil, errors.New("upserting a row without an id")
	}

	b, err := json.Marshal(row)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling payload")
	}

	path := fmt.Sprintf("/v1/tables/%s/rows/%s", table, fmt.Sprint(id))
	res, err := c.doAuthorizedReq("PUT", path, string(b))
	if err != nil {
		return nil, errors.Wrap(err, "putting a row to the server")
	}

	var resp RowResp
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return nil, errors.Wrap(err, "decoding payload")
	}

	return resp.Row, nil
}

// SigninPayload is a payload for /v1/signin
type SigninPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SigninResponse is a response from /v1/signin endpoint
type SigninResponse struct {
	Key       string `json:"key"`
	ExpiresAt int64  `json:"expires_at"`
}

// Signin requests a session token
func (c *Client) Signin(email, password string) (SigninResponse, error) {
	payload := SigninPayload{
		Email:    email,
		Password: password,
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return SigninResponse{}, errors.Wrap(err, "marshaling payload")
	}

	res, err := c.doReq("POST", "/v1/signin", string(b))
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusUnauthorized {
			return SigninResponse{}, ErrInvalidLogin
		}
		return SigninResponse{}, errors.Wrap(err, "making http request")
	}

	var resp SigninResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return SigninResponse{}, errors.Wrap(err, "decoding payload")
	}

	return resp, nil
}

// Signout deletes a user session on the server side
func (c *Client) Signout() error {
	if _, err := c.doAuthorizedReq("POST", "/v1/signout", ""); err != nil {
		return errors.Wrap(err, "making http request")
	}

	return nil
}

// MeResp is the response from the get user profile endpoint
type MeResp struct {
	UUID  string `json:"uuid"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// GetMe gets the profile of the authenticated user
func (c *Client) GetMe() (MeResp, error) {
	res, err := c.doAuthorizedReq("GET", "/v1/me", "")
	if err != nil {
		return MeResp{}, errors.Wrap(err, "making http request")
	}

	var resp MeResp
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return MeResp{}, errors.Wrap(err, "decoding payload")
	}

	return resp, nil
}
