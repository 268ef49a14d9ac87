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

package syncengine

import "sync"

// Kind identifies a sync lifecycle event
type Kind string

// Sync lifecycle event kinds
const (
	KindSyncStart     Kind = "sync-start"
	KindSyncProgress  Kind = "sync-progress"
	KindSyncCompleted Kind = "sync-completed"
	KindSyncError     Kind = "sync-error"
)

// Event is a sync lifecycle notification. Progress and Total are set for
// progress events, Data for completion events, and Err for error events.
type Event struct {
	Kind     Kind
	Message  string
	Progress int
	Total    int
	Data     interface{}
	Err      error
}

// Handler consumes events of one kind
type Handler func(Event)

// Subscription identifies a registered handler so it can be removed
type Subscription struct {
	kind Kind
	id   int
}

type handlerEntry struct {
	id int
	fn Handler
}

// Emitter dispatches sync lifecycle events to registered handlers, in
// registration order. Dispatch is synchronous on the emitting goroutine,
// so handlers observe events in order and a slow handler slows the sync
// down rather than racing it.
type Emitter struct {
	mu       sync.Mutex
	nextID   int
	handlers map[Kind][]handlerEntry
}

// NewEmitter returns a new emitter with no handlers
func NewEmitter() *Emitter {
	return &Emitter{
		handlers: map[Kind][]handlerEntry{},
	}
}

// On registers a handler for the given event kind
func (e *Emitter) On(kind Kind, fn Handler) Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	e.handlers[kind] = append(e.handlers[kind], handlerEntry{id: e.nextID, fn: fn})

	return Subscription{kind: kind, id: e.nextID}
}

// Off removes a previously registered handler. Removing a subscription
// twice is a no-op.
func (e *Emitter) Off(sub Subscription) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entries := e.handlers[sub.kind]
	for i, entry := range entries {
		if entry.id == sub.id {
			e.handlers[sub.kind] = append(entries[:i:i], entries[i+1:]...)
			break
		}
	}
}

func (e *Emitter) emit(ev Event) {
	e.mu.Lock()
	fns := make([]Handler, 0, len(e.handlers[ev.Kind]))
	for _, entry := range e.handlers[ev.Kind] {
		fns = append(fns, entry.fn)
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
