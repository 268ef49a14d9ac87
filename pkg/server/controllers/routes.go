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

	"github.com/fieldsync/fieldsync/pkg/server/app"
	mw "github.com/fieldsync/fieldsync/pkg/server/middleware"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
)

// Route represents a single route
type Route struct {
	Method    string
	Pattern   string
	Handler   http.HandlerFunc
	RateLimit bool
}

// RouteConfig is the configuration for routes
type RouteConfig struct {
	Controllers *Controllers
	APIRoutes   []Route
}

// NewAPIRoutes returns a new api routes
func NewAPIRoutes(a *app.App, c *Controllers) []Route {
	return []Route{
		{"POST", "/v1/signin", c.Users.Login, true},
		{"POST", "/v1/signout", c.Users.Logout, true},
		{"GET", "/v1/me", mw.Auth(a.DB, c.Users.Me), true},

		{"GET", "/v1/tables/{table}/rows", mw.Auth(a.DB, c.Rows.Index), false},
		{"POST", "/v1/tables/{table}/rows", mw.Auth(a.DB, c.Rows.Create), false},
		{"PATCH", "/v1/tables/{table}/rows/{rowID}", mw.Auth(a.DB, c.Rows.Update), false},
		{"PUT", "/v1/tables/{table}/rows/{rowID}", mw.Auth(a.DB, c.Rows.Upsert), false},
		{"DELETE", "/v1/tables/{table}/rows/{rowID}", mw.Auth(a.DB, c.Rows.Delete), false},
	}
}

func registerRoutes(router *mux.Router, wrapper mw.Middleware, app *app.App, routes []Route) {
	for _, route := range routes {
		wrappedHandler := wrapper(route.Handler, app, route.RateLimit)

		router.
			Handle(route.Pattern, wrappedHandler).
			Methods(route.Method)
	}
}

// NewRouter creates and returns a new router
func NewRouter(app *app.App, rc RouteConfig) (http.Handler, error) {
	if err := app.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating the app parameters")
	}

	router := mux.NewRouter().StrictSlash(true)

	apiRouter := router.PathPrefix("/api").Subrouter()
	registerRoutes(apiRouter, mw.APIMw, app, rc.APIRoutes)

	// connectivity probes send HEAD requests, so the health endpoint
	// answers both verbs at the root and under the api prefix
	apiRouter.HandleFunc("/health", rc.Controllers.Health.Index).Methods("GET", "HEAD")
	router.HandleFunc("/health", rc.Controllers.Health.Index).Methods("GET", "HEAD")

	return mw.Global(router), nil
}
