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
	"time"

	"github.com/xapiens/rvpf/internal/rerror"
)

// translateQueries rewrites each query's PointUUID from client to
// server space, failing the whole batch on the first unbound point.
func (s *StoreSession) translateQueries(queries []Query) ([]Query, error) {
	out := make([]Query, len(queries))
	for i, q := range queries {
		su, ok := s.bindings.ToServer(q.PointUUID)
		if !ok {
			return nil, rerror.New(rerror.KindPointUnknown, "unbound point "+q.PointUUID.String())
		}
		q.PointUUID = su
		out[i] = q
	}
	return out, nil
}

// translateValues rewrites each value's PointUUID from server back to
// client space in place when the backend is private (exclusive to this
// multiplexer, so no other reader can observe the mutation) or into a
// freshly cloned slice otherwise. Each response is translated against
// its own index rather than always against responses[0].
func (s *StoreSession) translateValues(responses []StoreValues) ([]StoreValues, error) {
	out := responses
	if !s.backend.IsPrivate() {
		out = make([]StoreValues, len(responses))
		copy(out, responses)
	}
	for i := range out {
		values := out[i].Values
		if !s.backend.IsPrivate() {
			cloned := make([]PointValue, len(values))
			copy(cloned, values)
			values = cloned
		}
		for j, pv := range values {
			cu, ok := s.bindings.ToClient(pv.PointUUID)
			if !ok {
				return nil, rerror.New(rerror.KindPointUnknown, "unresolved server point "+pv.PointUUID.String())
			}
			values[j].PointUUID = cu
		}
		out[i].Values = values
	}
	return out, nil
}

// Select evaluates a batch of queries, one StoreValues page per query
// in the same order, translating point identifiers in both
// directions. Requires RoleQuery.
func (s *StoreSession) Select(queries []Query) ([]StoreValues, error) {
	if err := s.roles.requireRole(RoleQuery); err != nil {
		return nil, err
	}
	translated, err := s.translateQueries(queries)
	if err != nil {
		return nil, err
	}
	responses, err := s.backend.Select(translated)
	if err != nil {
		return nil, rerror.Classify(err)
	}
	return s.translateValues(responses)
}

// Pull blocks for up to timeout waiting for a new value on query's
// point, returning it directly rather than through the Deliver queue.
// Requires RoleQuery and query.IsPull; also clears this session's
// committed queue, since a new pull supersedes pending deliveries.
func (s *StoreSession) Pull(query Query, timeout time.Duration) (StoreValues, error) {
	if err := s.roles.requireRole(RoleQuery); err != nil {
		return StoreValues{}, err
	}
	if !query.IsPull {
		return StoreValues{}, rerror.New(rerror.KindIllegalState, "pull requires query.IsPull")
	}
	translated, err := s.translateQueries([]Query{query})
	if err != nil {
		return StoreValues{}, err
	}

	s.mu.Lock()
	s.committed = nil
	s.mu.Unlock()

	sv, err := s.backend.Pull(translated[0], timeout, s, s.effectiveUser())
	if err != nil {
		return StoreValues{}, rerror.Classify(err)
	}
	out, err := s.translateValues([]StoreValues{sv})
	if err != nil {
		return StoreValues{}, err
	}
	return out[0], nil
}
