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

// Package connectivity reports whether the remote backend is reachable.
// The check is injected as a capability so that the request routing logic
// stays identical across host environments; only the provider differs.
package connectivity

import (
	"net/http"
	"time"

	"github.com/fieldsync/fieldsync/pkg/cli/log"
)

// Provider reports the current connectivity state
type Provider interface {
	IsOnline() bool
}

// Static is a provider with a fixed answer. Hosts without a connectivity
// signal assume they are online and rely on request failures to degrade.
type Static bool

// IsOnline returns the fixed answer
func (s Static) IsOnline() bool {
	return bool(s)
}

// Probe checks connectivity by issuing a short-timeout request against the
// health endpoint of the API.
type Probe struct {
	Endpoint   string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// IsOnline reports whether the health endpoint answered
func (p *Probe) IsOnline() bool {
	hc := p.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}

	timeout := p.Timeout
	if timeout == 0 {
		timeout = 3 * time.Second
	}

	probe := &http.Client{
		Transport:     hc.Transport,
		CheckRedirect: hc.CheckRedirect,
		Timeout:       timeout,
	}

	res, err := probe.Head(p.Endpoint + "/health")
	if err != nil {
		log.Debug("connectivity probe failed: %v\n", err)
		return false
	}
	defer res.Body.Close()

	return res.StatusCode < 500
}
