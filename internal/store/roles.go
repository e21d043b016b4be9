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

import "github.com/xapiens/rvpf/internal/rerror"

// Role is one of the authorization roles a store session may be
// granted.
type Role string

const (
	RoleInfo        Role = "Info"
	RoleQuery       Role = "Query"
	RoleListen      Role = "Listen"
	RoleUpdate      Role = "Update"
	RolePurge       Role = "Purge"
	RoleDelete      Role = "Delete"
	RoleImpersonate Role = "Impersonate"
)

// RoleSet is the set of roles granted to one authenticated user.
type RoleSet map[Role]bool

// NewRoleSet builds a RoleSet from the given roles.
func NewRoleSet(roles ...Role) RoleSet {
	s := make(RoleSet, len(roles))
	for _, r := range roles {
		s[r] = true
	}
	return s
}

// Has reports whether role is granted.
func (s RoleSet) Has(role Role) bool { return s[role] }

// requireRole fails with Unauthorized unless role is granted.
func (s RoleSet) requireRole(role Role) error {
	if !s.Has(role) {
		return rerror.New(rerror.KindUnauthorized, "role "+string(role)+" not granted")
	}
	return nil
}

// roleForState returns the role an update to a value in the given
// state requires.
func roleForState(state ValueState) Role {
	switch state {
	case StateDeleted:
		return RoleDelete
	case StatePurged:
		return RolePurge
	default:
		return RoleUpdate
	}
}
