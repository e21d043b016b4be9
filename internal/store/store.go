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

// Package store implements the store session multiplexer: the per-connection state machine that brokers queries,
// updates, subscriptions, notifications and identity impersonation
// against a pluggable point-value store, and the notice-delivery path
// from store notifications to a subscribed client.
//
// The concrete backend is an external collaborator scoped to
// bind/select/pull/update/purge/subscribe-notify/resolve-state/
// disable-enable-suspend; Backend below is its interface, exercised
// in tests by internal/storetest's in-memory fake.
package store

import (
	"time"

	"github.com/xapiens/rvpf/internal/binding"
	"github.com/xapiens/rvpf/internal/rtime"
	"github.com/xapiens/rvpf/internal/uuid"
)

// ValueState distinguishes a live point value from the two tombstone
// states a store entry can carry.
type ValueState int

const (
	// StateNormal is an ordinary live value.
	StateNormal ValueState = iota
	// StateDeleted marks a value removed by the owning application.
	StateDeleted
	// StatePurged marks a value removed by a retention purge.
	StatePurged
)

// PointValue is one timestamped reading or status change for a point.
type PointValue struct {
	PointUUID uuid.UUID
	Stamp     rtime.Timestamp
	State     ValueState
	Value     any
}

// Mark is an opaque continuation cursor returned by a paged Select and
// fed back into the next one. The store backend owns its meaning; the
// multiplexer only ever copies it through.
type Mark []byte

// StoreValues is a page of point values plus an optional continuation
// Mark for the next page.
type StoreValues struct {
	Values []PointValue
	Mark   Mark
}

// BindRequest names a point to resolve into a binding.Point, either by
// client UUID (already known to the caller) or by a name/selection
// pattern to expand against backend metadata.
type BindRequest struct {
	ClientUUID uuid.UUID
	Name       string // exact name, or a selection pattern if Pattern is true
	Pattern    bool
}

// Query selects point values, optionally as a continuous pull.
type Query struct {
	PointUUID uuid.UUID
	Interval  rtime.Interval
	IsPull    bool
	Mark      Mark
	Limit     int
}

// NoticeListener is the sink a Backend calls back into when a
// subscribed point receives a new value.
type NoticeListener interface {
	Notify(pv PointValue)
}

// Backend is the pluggable point-value store collaborator.
// IsPrivate reports whether query/update translation may mutate
// requests in place instead of cloning them first.
type Backend interface {
	IsPrivate() bool
	Bind(requests []BindRequest) ([]binding.Point, error)
	Select(queries []Query) ([]StoreValues, error)
	Pull(query Query, timeout time.Duration, listener NoticeListener, identity string) (StoreValues, error)
	Update(values []PointValue, identity string) ([]error, error)
	Purge(uuids []uuid.UUID, interval rtime.Interval) (int, error)
	Subscribe(listener NoticeListener, uuids []uuid.UUID) error
	Unsubscribe(listener NoticeListener, uuids []uuid.UUID) error
	ResolveState(state ValueState, id uuid.UUID) (ValueState, error)
	DisableSuspend() (resume func(), err error)
}
