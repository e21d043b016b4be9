/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package binding implements point bindings: the (name, client UUID,
// server UUID) triples that translate a point identifier across a
// session boundary, and the Login info carried alongside a connection.
package binding

import (
	"sync"

	"github.com/xapiens/rvpf/internal/uuid"
)

// Point is a (name, client UUID, optional server UUID) binding.
type Point struct {
	Name       string
	ClientUUID uuid.UUID
	ServerUUID uuid.UUID // uuid.Nil if not yet resolved against the backend
}

// HasServerUUID reports whether the binding has been resolved.
func (p Point) HasServerUUID() bool { return p.ServerUUID != uuid.Nil }

// Table holds the two mappings a session keeps over its bindings:
// client UUID -> binding and server UUID -> binding. Every binding
// present in the server map is also present in the client map, keyed
// by the same binding's client UUID.
type Table struct {
	mu       sync.RWMutex
	byClient map[uuid.UUID]Point
	byServer map[uuid.UUID]Point
}

// NewTable builds an empty binding table.
func NewTable() *Table {
	return &Table{
		byClient: make(map[uuid.UUID]Point),
		byServer: make(map[uuid.UUID]Point),
	}
}

// Put records a binding in both maps (the server map only if the
// binding has been resolved).
func (t *Table) Put(p Point) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byClient[p.ClientUUID] = p
	if p.HasServerUUID() {
		t.byServer[p.ServerUUID] = p
	}
}

// ByClient looks up a binding by its client UUID.
func (t *Table) ByClient(client uuid.UUID) (Point, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.byClient[client]
	return p, ok
}

// ByServer looks up a binding by its server UUID.
func (t *Table) ByServer(server uuid.UUID) (Point, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.byServer[server]
	return p, ok
}

// ToServer translates a client UUID to its bound server UUID, if any.
func (t *Table) ToServer(client uuid.UUID) (uuid.UUID, bool) {
	p, ok := t.ByClient(client)
	if !ok || !p.HasServerUUID() {
		return uuid.Nil, false
	}
	return p.ServerUUID, true
}

// ToClient translates a server UUID back to its client UUID.
func (t *Table) ToClient(server uuid.UUID) (uuid.UUID, bool) {
	p, ok := t.ByServer(server)
	if !ok {
		return uuid.Nil, false
	}
	return p.ClientUUID, true
}

// Login bundles the credentials a session proxy presents when
// connecting.
type Login struct {
	User     string
	Password string
}
