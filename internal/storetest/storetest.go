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

// Package storetest provides an in-memory store.Backend fake for
// exercising internal/store without a real point-value store. Since a
// concrete point-value store is an external collaborator reached only
// through the Backend interface, rvpf-store-server also uses this
// implementation as its default backend rather than shipping a second
// one for production.
package storetest

import (
	"sync"
	"time"

	"github.com/xapiens/rvpf/internal/binding"
	"github.com/xapiens/rvpf/internal/rtime"
	"github.com/xapiens/rvpf/internal/store"
	"github.com/xapiens/rvpf/internal/uuid"
)

// Backend is a single-process, in-memory store.Backend. It is private
// (IsPrivate true): callers in the same process never observe a
// concurrently mutated response, so internal/store's translation layer
// may rewrite responses in place.
type Backend struct {
	mu        sync.Mutex
	points    map[string]uuid.UUID // name -> server uuid
	values    map[uuid.UUID][]store.PointValue
	listeners map[uuid.UUID][]store.NoticeListener

	// SubscribeCalls counts invocations of Subscribe, for tests
	// asserting the backend only sees one registration per point.
	SubscribeCalls int
}

// New builds an empty fake backend.
func New() *Backend {
	return &Backend{
		points:    make(map[string]uuid.UUID),
		values:    make(map[uuid.UUID][]store.PointValue),
		listeners: make(map[uuid.UUID][]store.NoticeListener),
	}
}

// IsPrivate reports true: this fake never shares its response slices
// outside of the call that produced them.
func (b *Backend) IsPrivate() bool { return true }

// Declare registers a point name with a fixed server UUID, as backend
// metadata would already hold it before any client connects.
func (b *Backend) Declare(name string, server uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.points[name] = server
}

// Bind resolves each request's name (or passes through an
// already-known client UUID) into a binding.Point.
func (b *Backend) Bind(requests []store.BindRequest) ([]binding.Point, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]binding.Point, 0, len(requests))
	for _, r := range requests {
		server, ok := b.points[r.Name]
		if !ok {
			server = uuid.New()
			b.points[r.Name] = server
		}
		client := r.ClientUUID
		if client == uuid.Nil {
			client = uuid.New()
		}
		out = append(out, binding.Point{Name: r.Name, ClientUUID: client, ServerUUID: server})
	}
	return out, nil
}

// Select returns every stored value for each query's point, ignoring
// Interval filtering (the fake keeps no history windows).
func (b *Backend) Select(queries []store.Query) ([]store.StoreValues, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]store.StoreValues, len(queries))
	for i, q := range queries {
		out[i] = store.StoreValues{Values: append([]store.PointValue(nil), b.values[q.PointUUID]...)}
	}
	return out, nil
}

// Pull returns the latest stored value for query's point, polling until
// one exists or a positive timeout elapses; a point that already has a
// value is answered at once.
func (b *Backend) Pull(query store.Query, timeout time.Duration, listener store.NoticeListener, identity string) (store.StoreValues, error) {
	deadline := time.Now().Add(timeout)
	for {
		b.mu.Lock()
		values := b.values[query.PointUUID]
		b.mu.Unlock()
		if len(values) > 0 {
			return store.StoreValues{Values: values[len(values)-1:]}, nil
		}
		if timeout > 0 && time.Now().After(deadline) {
			return store.StoreValues{}, nil
		}
		time.Sleep(time.Millisecond)
	}
}

// Update appends each value to its point's history and fans it out to
// subscribed listeners.
func (b *Backend) Update(values []store.PointValue, identity string) ([]error, error) {
	b.mu.Lock()
	errs := make([]error, len(values))
	var notify []store.NoticeListener
	var notifyValues []store.PointValue
	for _, v := range values {
		b.values[v.PointUUID] = append(b.values[v.PointUUID], v)
		for _, l := range b.listeners[v.PointUUID] {
			notify = append(notify, l)
			notifyValues = append(notifyValues, v)
		}
	}
	b.mu.Unlock()
	for i, l := range notify {
		l.Notify(notifyValues[i])
	}
	return errs, nil
}

// Purge drops all stored values for the given points.
func (b *Backend) Purge(uuids []uuid.UUID, interval rtime.Interval) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, u := range uuids {
		n += len(b.values[u])
		delete(b.values, u)
	}
	return n, nil
}

// Subscribe registers listener for notices on the given points.
func (b *Backend) Subscribe(listener store.NoticeListener, uuids []uuid.UUID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.SubscribeCalls++
	for _, u := range uuids {
		b.listeners[u] = append(b.listeners[u], listener)
	}
	return nil
}

// Unsubscribe drops listener's registration for the given points.
func (b *Backend) Unsubscribe(listener store.NoticeListener, uuids []uuid.UUID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range uuids {
		ls := b.listeners[u]
		for i, l := range ls {
			if l == listener {
				b.listeners[u] = append(ls[:i], ls[i+1:]...)
				break
			}
		}
	}
	return nil
}

// ResolveState is a pass-through: the fake has no conflicting-writer
// scenario to reconcile.
func (b *Backend) ResolveState(state store.ValueState, id uuid.UUID) (store.ValueState, error) {
	return state, nil
}

// DisableSuspend is a no-op; resume is a no-op too.
func (b *Backend) DisableSuspend() (func(), error) {
	return func() {}, nil
}
