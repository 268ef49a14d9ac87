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
	"testing"

	"github.com/fieldsync/fieldsync/pkg/assert"
	"github.com/fieldsync/fieldsync/pkg/server/database"
	"github.com/fieldsync/fieldsync/pkg/server/testutils"
)

func TestCreateUser(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	a := NewTest()
	a.DB = db

	user, err := a.CreateUser("rep@example.com", "password123", "Field Rep")
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, user.Email.String, "rep@example.com", "email mismatch")
	assert.Equal(t, user.Name.String, "Field Rep", "name mismatch")
	assert.NotEqual(t, user.UUID, "", "uuid should be set")
	assert.NotEqual(t, user.Password.String, "password123", "password should be hashed")
}

func TestCreateUserValidation(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	a := NewTest()
	a.DB = db

	_, err := a.CreateUser("", "password123", "")
	assert.Equal(t, err, ErrEmailRequired, "error mismatch for empty email")

	_, err = a.CreateUser("rep@example.com", "short", "")
	assert.Equal(t, err, ErrPasswordTooShort, "error mismatch for short password")

	if _, err := a.CreateUser("rep@example.com", "password123", ""); err != nil {
		t.Fatal(err)
	}
	_, err = a.CreateUser("rep@example.com", "password456", "")
	assert.Equal(t, err, ErrDuplicateEmail, "error mismatch for duplicate email")
}

func TestAuthenticate(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	a := NewTest()
	a.DB = db

	testutils.SetupUserData(db, "rep@example.com", "password123")

	user, err := a.Authenticate("rep@example.com", "password123")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, user.Email.String, "rep@example.com", "email mismatch")

	_, err = a.Authenticate("rep@example.com", "wrongpass")
	assert.Equal(t, err, ErrLoginInvalid, "error mismatch for wrong password")

	_, err = a.Authenticate("nobody@example.com", "password123")
	assert.Equal(t, err, ErrNotFound, "error mismatch for unknown email")
}

func TestSignInCreatesSession(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	a := NewTest()
	a.DB = db

	user := testutils.SetupUserData(db, "rep@example.com", "password123")

	session, err := a.SignIn(&user)
	if err != nil {
		t.Fatal(err)
	}

	assert.NotEqual(t, session.Key, "", "session key should be set")
	assert.Equal(t, session.UserID, user.ID, "user id mismatch")
	if !session.ExpiresAt.After(a.Clock.Now()) {
		t.Fatal("session should expire in the future")
	}

	var count int64
	testutils.MustExec(t, db.Model(database.Session{}).Where("user_id = ?", user.ID).Count(&count), "counting sessions")
	assert.Equal(t, count, int64(1), "session count mismatch")
}

func TestDeleteSession(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	a := NewTest()
	a.DB = db

	user := testutils.SetupUserData(db, "rep@example.com", "password123")
	session := testutils.SetupSession(db, user)

	if err := a.DeleteSession(session.Key); err != nil {
		t.Fatal(err)
	}

	var count int64
	testutils.MustExec(t, db.Model(database.Session{}).Count(&count), "counting sessions")
	assert.Equal(t, count, int64(0), "session count mismatch")
}
