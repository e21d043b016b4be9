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

// Package uuid wraps google/uuid with the opaque 128-bit identifier
// used for session contexts and point identities throughout the
// fabric.
package uuid

import (
	"github.com/google/uuid"
)

// UUID is a 128-bit opaque identifier.
type UUID = uuid.UUID

// Nil is the zero UUID, used as the unset/unbound sentinel.
var Nil = uuid.Nil

// New generates a fresh random (v4) UUID.
func New() UUID {
	return uuid.New()
}

// Parse decodes the string form of a UUID.
func Parse(s string) (UUID, error) {
	return uuid.Parse(s)
}

// FromBytes decodes the 16-byte form of a UUID.
func FromBytes(b []byte) (UUID, error) {
	return uuid.FromBytes(b)
}
