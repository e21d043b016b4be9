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

package store

import (
	"sync"

	"github.com/xapiens/rvpf/internal/binding"
	"github.com/xapiens/rvpf/internal/rerror"
	"github.com/xapiens/rvpf/internal/rtime"
	"github.com/xapiens/rvpf/internal/uuid"
)

// StoreSession is the per-connection multiplexer state machine: it authorizes each request against the connection's granted
// roles, translates point identifiers between the client's and the
// backend's UUID space via its binding.Table, and brokers subscribe /
// notify / deliver / commit between the backend and the client.
//
// A StoreSession is not itself reentrant-safe across its exported
// methods concurrently mutating the same point's binding or
// subscription state; callers serialize requests the way a session
// proxy serializes RPCs on one connection.
type StoreSession struct {
	backend Backend

	mu               sync.Mutex
	cond             *sync.Cond
	roles            RoleSet
	user             string
	impersonatedUser string
	bindings         *binding.Table
	subscribed       map[uuid.UUID]bool
	notified         []PointValue // appended by Notify, awaiting Commit
	committed        []PointValue // moved here by Commit, awaiting Deliver
	interrupted      bool
	snooze           *SnoozeAlarm
}

// NewStoreSession builds a multiplexer for one authenticated connection.
func NewStoreSession(backend Backend, user string, roles RoleSet) *StoreSession {
	s := &StoreSession{
		backend:    backend,
		roles:      roles,
		user:       user,
		bindings:   binding.NewTable(),
		subscribed: make(map[uuid.UUID]bool),
		snooze:     NewSnoozeAlarm(),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// effectiveUser is the impersonated user if one is active, else the
// authenticated user.
func (s *StoreSession) effectiveUser() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.impersonatedUser != "" {
		return s.impersonatedUser
	}
	return s.user
}

// Impersonate switches the identity attached to subsequent Update
// calls. It requires RoleImpersonate and may only be invoked from the
// session's own authenticated identity, never from an already
// impersonated one.
func (s *StoreSession) Impersonate(user string) error {
	if err := s.roles.requireRole(RoleImpersonate); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.impersonatedUser != "" {
		return rerror.New(rerror.KindIllegalState, "already impersonating "+s.impersonatedUser)
	}
	s.impersonatedUser = user
	return nil
}

// GetPointBindings resolves names/patterns (or already-known client
// UUIDs) into binding.Points and records them in the session's table.
// Requires RoleInfo.
func (s *StoreSession) GetPointBindings(requests []BindRequest) ([]binding.Point, error) {
	if err := s.roles.requireRole(RoleInfo); err != nil {
		return nil, err
	}
	points, err := s.backend.Bind(requests)
	if err != nil {
		return nil, rerror.Classify(err)
	}
	for _, p := range points {
		s.bindings.Put(p)
	}
	return points, nil
}

// Subscribe registers the session to receive notices for the given
// client point UUIDs. Re-subscribing to an already subscribed point is
// an IllegalState error for the whole call. For each remaining point
// this runs a last-value query against the backend and only records
// the subscription (and forwards it to the backend) when the point
// actually has a value; the last value is returned for every point
// that was subscribed. The backend only learns of this session as a
// notice listener the first time any point is added — later calls
// simply extend the set of points it watches on our behalf through
// the same Subscribe call.
func (s *StoreSession) Subscribe(clientUUIDs []uuid.UUID) ([]PointValue, error) {
	if err := s.roles.requireRole(RoleListen); err != nil {
		return nil, err
	}
	s.mu.Lock()
	var toAdd []uuid.UUID
	for _, cu := range clientUUIDs {
		if s.subscribed[cu] {
			s.mu.Unlock()
			return nil, rerror.New(rerror.KindIllegalState, "already subscribed to "+cu.String())
		}
		toAdd = append(toAdd, cu)
	}
	s.mu.Unlock()

	serverUUIDs := make([]uuid.UUID, len(toAdd))
	for i, cu := range toAdd {
		su, ok := s.bindings.ToServer(cu)
		if !ok {
			return nil, rerror.New(rerror.KindPointUnknown, "unbound point "+cu.String())
		}
		serverUUIDs[i] = su
	}

	queries := make([]Query, len(serverUUIDs))
	for i, su := range serverUUIDs {
		queries[i] = Query{PointUUID: su}
	}
	responses, err := s.backend.Select(queries)
	if err != nil {
		return nil, rerror.Classify(err)
	}

	var existingClient, existingServer []uuid.UUID
	var lastValues []PointValue
	for i, resp := range responses {
		if len(resp.Values) == 0 {
			continue // the point has no value: never recorded as subscribed
		}
		last := resp.Values[len(resp.Values)-1]
		last.PointUUID = toAdd[i]
		existingClient = append(existingClient, toAdd[i])
		existingServer = append(existingServer, serverUUIDs[i])
		lastValues = append(lastValues, last)
	}

	if len(existingServer) > 0 {
		if err := s.backend.Subscribe(s, existingServer); err != nil {
			return nil, rerror.Classify(err)
		}
	}

	s.mu.Lock()
	for _, cu := range existingClient {
		s.subscribed[cu] = true
	}
	s.mu.Unlock()
	return lastValues, nil
}

// Unsubscribe drops notices for the given client point UUIDs. Points
// not currently subscribed are silently ignored. When this empties the
// subscribed set, the session deregisters from the backend (already
// implicit once no UUIDs remain) and flushes the notified/committed
// queues, since no more deliveries are coming.
func (s *StoreSession) Unsubscribe(clientUUIDs []uuid.UUID) error {
	if err := s.roles.requireRole(RoleListen); err != nil {
		return err
	}
	s.mu.Lock()
	var toDrop []uuid.UUID
	for _, cu := range clientUUIDs {
		if s.subscribed[cu] {
			toDrop = append(toDrop, cu)
		}
	}
	s.mu.Unlock()
	if len(toDrop) == 0 {
		return nil
	}

	serverUUIDs := make([]uuid.UUID, 0, len(toDrop))
	for _, cu := range toDrop {
		if su, ok := s.bindings.ToServer(cu); ok {
			serverUUIDs = append(serverUUIDs, su)
		}
	}
	if err := s.backend.Unsubscribe(s, serverUUIDs); err != nil {
		return rerror.Classify(err)
	}

	s.mu.Lock()
	for _, cu := range toDrop {
		delete(s.subscribed, cu)
	}
	if len(s.subscribed) == 0 {
		s.notified = nil
		s.committed = nil
	}
	s.mu.Unlock()
	return nil
}

// Update applies a batch of point values. Each value is authorized
// against the role its State requires (Update, Delete or Purge), so a
// single batch mixing live values with deletions needs every role the
// batch touches. Per-value backend errors
// are returned positionally in the first result; a non-nil second
// result means the whole batch failed before reaching the backend.
func (s *StoreSession) Update(values []PointValue) ([]error, error) {
	needed := make(map[Role]bool)
	for _, v := range values {
		needed[roleForState(v.State)] = true
	}
	for role := range needed {
		if err := s.roles.requireRole(role); err != nil {
			return nil, err
		}
	}

	translated := make([]PointValue, len(values))
	for i, v := range values {
		su, ok := s.bindings.ToServer(v.PointUUID)
		if !ok {
			return nil, rerror.New(rerror.KindPointUnknown, "unbound point "+v.PointUUID.String())
		}
		v.PointUUID = su
		translated[i] = v
	}

	errs, err := s.backend.Update(translated, s.effectiveUser())
	if err != nil {
		return nil, rerror.Classify(err)
	}
	return errs, nil
}

// Purge permanently removes values for the given client point UUIDs
// within interval. Requires RolePurge.
func (s *StoreSession) Purge(clientUUIDs []uuid.UUID, interval rtime.Interval) (int, error) {
	if err := s.roles.requireRole(RolePurge); err != nil {
		return 0, err
	}
	serverUUIDs := make([]uuid.UUID, 0, len(clientUUIDs))
	for _, cu := range clientUUIDs {
		su, ok := s.bindings.ToServer(cu)
		if !ok {
			return 0, rerror.New(rerror.KindPointUnknown, "unbound point "+cu.String())
		}
		serverUUIDs = append(serverUUIDs, su)
	}
	n, err := s.backend.Purge(serverUUIDs, interval)
	if err != nil {
		return 0, rerror.Classify(err)
	}
	return n, nil
}

// ResolveState asks the backend to reconcile the claimed state of id
// (e.g. after a conflicting concurrent delete/purge). Requires
// RoleInfo.
func (s *StoreSession) ResolveState(state ValueState, clientUUID uuid.UUID) (ValueState, error) {
	if err := s.roles.requireRole(RoleInfo); err != nil {
		return state, err
	}
	su, ok := s.bindings.ToServer(clientUUID)
	if !ok {
		return state, rerror.New(rerror.KindPointUnknown, "unbound point "+clientUUID.String())
	}
	resolved, err := s.backend.ResolveState(state, su)
	if err != nil {
		return state, rerror.Classify(err)
	}
	return resolved, nil
}
