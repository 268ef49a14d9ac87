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

package session

import (
	"testing"
	"time"

	"github.com/fieldsync/fieldsync/pkg/assert"
	"github.com/fieldsync/fieldsync/pkg/cli/client"
	"github.com/fieldsync/fieldsync/pkg/cli/localdb"
	"github.com/fieldsync/fieldsync/pkg/cli/repo"
	"github.com/fieldsync/fieldsync/pkg/cli/tablecache"
	"github.com/fieldsync/fieldsync/pkg/clock"
	"github.com/pkg/errors"
)

type fakeRemote struct {
	rows       map[string][]map[string]interface{}
	failTables map[string]bool
	failMe     bool
	meCalls    int
}

func (f *fakeRemote) Select(table string, q client.Query) ([]map[string]interface{}, error) {
	if f.failTables[table] {
		return nil, errors.New("remote unavailable")
	}

	return f.rows[table], nil
}

func (f *fakeRemote) GetMe() (client.MeResp, error) {
	f.meCalls++
	if f.failMe {
		return client.MeResp{}, errors.New("remote unavailable")
	}

	return client.MeResp{UUID: "u-1", Email: "rep@example.com", Name: "Rep"}, nil
}

func newTestCache(t *testing.T, remote *fakeRemote) (*Cache, *tablecache.Cache, *clock.Mock) {
	t.Helper()

	store := localdb.InitTestStore(t)
	c := clock.NewMock()
	tables := tablecache.New(repo.New(store, c), c)

	return New(store, remote, tables, c), tables, c
}

func TestPrepareThenReady(t *testing.T) {
	remote := &fakeRemote{
		rows: map[string][]map[string]interface{}{
			"products": {{"id": "p-1", "name": "drill"}},
		},
	}
	c, tables, _ := newTestCache(t, remote)

	if err := c.SaveSession(Session{Key: "someSessionKey"}); err != nil {
		t.Fatal(errors.Wrap(err, "saving the session"))
	}

	result := c.Prepare([]string{"products"})

	assert.True(t, result.Success, "prepare should succeed")
	assert.DeepEqual(t, result.Cached, []string{"products"}, "cached table manifest mismatch")
	assert.DeepEqual(t, result.Counts, map[string]int{"products": 1}, "cached row counts mismatch")
	assert.Equal(t, tables.Count("products"), 1, "cached row count mismatch")
	assert.Equal(t, remote.meCalls, 1, "user snapshot call count mismatch")
	assert.True(t, c.IsReady(), "app should be ready after prepare")

	if err := c.Clear(); err != nil {
		t.Fatal(errors.Wrap(err, "clearing"))
	}
	assert.True(t, !c.IsReady(), "app should not be ready after clear")
}

func TestPrepareCollectsErrors(t *testing.T) {
	remote := &fakeRemote{
		rows: map[string][]map[string]interface{}{
			"products": {{"id": "p-1", "name": "drill"}},
		},
		failTables: map[string]bool{"clients": true},
	}
	c, _, _ := newTestCache(t, remote)

	result := c.Prepare([]string{"products", "clients"})

	assert.True(t, !result.Success, "prepare with a failed table should not succeed")
	assert.DeepEqual(t, result.Cached, []string{"products"}, "cached table manifest mismatch")
	assert.DeepEqual(t, result.Counts, map[string]int{"products": 1}, "a failed table should record no count")
	assert.Equal(t, len(result.Errors), 1, "error count mismatch")
}

func TestPrepareUserSnapshotFailureIsNotFatal(t *testing.T) {
	remote := &fakeRemote{
		rows: map[string][]map[string]interface{}{
			"products": {{"id": "p-1", "name": "drill"}},
		},
		failMe: true,
	}
	c, _, _ := newTestCache(t, remote)

	if err := c.SaveSession(Session{Key: "someSessionKey"}); err != nil {
		t.Fatal(errors.Wrap(err, "saving the session"))
	}

	result := c.Prepare([]string{"products"})

	assert.True(t, !result.Success, "a failed user snapshot should surface as an error")
	assert.DeepEqual(t, result.Cached, []string{"products"}, "table caching should proceed regardless")
}

func TestIsReadyRequiresSession(t *testing.T) {
	remote := &fakeRemote{
		rows: map[string][]map[string]interface{}{
			"products": {{"id": "p-1", "name": "drill"}},
		},
	}
	c, _, _ := newTestCache(t, remote)

	result := c.Prepare([]string{"products"})
	assert.True(t, result.Success, "prepare should succeed")

	assert.True(t, !c.IsReady(), "readiness requires a session")
}

func TestHasValidSession(t *testing.T) {
	c, _, clk := newTestCache(t, &fakeRemote{})

	assert.True(t, !c.HasValidSession(), "no session should not be valid")

	expiry := clk.Now().Add(time.Hour).Unix()
	if err := c.SaveSession(Session{Key: "someSessionKey", ExpiresAt: expiry}); err != nil {
		t.Fatal(errors.Wrap(err, "saving the session"))
	}
	assert.True(t, c.HasValidSession(), "unexpired session should be valid")

	clk.Advance(2 * time.Hour)
	assert.True(t, !c.HasValidSession(), "expired session should not be valid")
}

func TestIsStale(t *testing.T) {
	c, _, clk := newTestCache(t, &fakeRemote{})

	assert.True(t, c.IsStale(60), "missing cache timestamp should be stale")

	c.Prepare([]string{})
	assert.True(t, !c.IsStale(60), "a fresh cache should not be stale")

	clk.Advance(2 * time.Hour)
	assert.True(t, c.IsStale(60), "an old cache should be stale")
}
