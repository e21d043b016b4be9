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

// Package security implements connection-mode classification and the
// TLS material lifecycle of a session client context.
//
// Socket factories are created lazily, after the owning context may
// already have gone out of scope, so they cannot hold a back-pointer
// to it without risking a reference cycle. Contexts instead register
// themselves in a process-wide map keyed by session UUID with a
// reference count; factories look the context up lazily and, when it
// has disappeared, log through the registry's capped warning counter
// (at most warnCap warnings per Registry).
package security

import (
	"crypto/tls"
	"sync"

	"github.com/xapiens/rvpf/internal/registry"
	"github.com/xapiens/rvpf/internal/uuid"
)

// ConnectionMode classifies the trust level negotiated for a
// connection.
type ConnectionMode int

const (
	// ModePrivate is an in-process, unauthenticated connection.
	ModePrivate ConnectionMode = iota
	// ModeLocal is a loopback connection without TLS.
	ModeLocal
	// ModeSecure is a TLS connection without client certificate
	// verification.
	ModeSecure
	// ModeCertified is a mutually authenticated TLS connection.
	ModeCertified
)

func (m ConnectionMode) String() string {
	switch m {
	case ModePrivate:
		return "Private"
	case ModeLocal:
		return "Local"
	case ModeSecure:
		return "Secure"
	case ModeCertified:
		return "Certified"
	default:
		return "Unknown"
	}
}

// Context holds the TLS material and connection-mode classification
// for one session client, registered under a UUID generated at
// construction.
type Context struct {
	UUID   uuid.UUID
	Mode   ConnectionMode
	Config *tls.Config
}

// NewContext builds a Context with a fresh UUID.
func NewContext(mode ConnectionMode, cfg *tls.Config) *Context {
	return &Context{UUID: uuid.New(), Mode: mode, Config: cfg}
}

// registration is the refcounted process-wide map entry for one
// session UUID.
type registration struct {
	ctx   *Context
	count int
}

// ContextRegistry is the process-wide map of session UUID -> security
// context, mutated only by Register/Unregister. Socket factories read
// it lazily via Lookup.
type ContextRegistry struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*registration
	reg  *registry.Registry // for the capped "context gone" warning
}

// NewContextRegistry builds an empty registry. reg supplies the capped
// warning logger; pass nil to disable the warning.
func NewContextRegistry(reg *registry.Registry) *ContextRegistry {
	return &ContextRegistry{byID: make(map[uuid.UUID]*registration), reg: reg}
}

// Register increments the reference count for ctx, inserting it on the
// first call.
func (r *ContextRegistry) Register(ctx *Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[ctx.UUID]
	if !ok {
		e = &registration{ctx: ctx}
		r.byID[ctx.UUID] = e
	}
	e.count++
}

// Unregister decrements the reference count, removing the entry when
// it reaches zero.
func (r *ContextRegistry) Unregister(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok {
		return
	}
	e.count--
	if e.count <= 0 {
		delete(r.byID, id)
	}
}

// Lookup is what a lazily-created socket factory calls to find its
// context; it never holds a reference back, only this key.
func (r *ContextRegistry) Lookup(id uuid.UUID) (*Context, bool) {
	r.mu.Lock()
	e, ok := r.byID[id]
	r.mu.Unlock()
	if !ok {
		if r.reg != nil {
			r.reg.WarnContextGone(id.String())
		}
		return nil, false
	}
	return e.ctx, true
}
