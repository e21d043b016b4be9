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

// Package registry implements the URI-addressed service directory: each
// Registry value maps lookup keys to bound targets, with local/remote
// and private/public classification derived from the URI shape.
package registry

import (
	"net/url"
	"strings"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ErrEmptyPath is returned when a registry URI has an empty or root
// path, which is never a valid entry name.
var ErrEmptyPath = errors.New("registry: empty or root path is not a valid entry name")

// warnCap bounds "context gone" log amplification.
const warnCap = 99

// Entry is an immutable name->URI record. IsLocal is decided by the
// registry that created it; IsPrivate and IsRemote are derived.
type Entry struct {
	URI     string
	IsLocal bool

	// declaredPrivate mirrors the owning Registry.private flag at the
	// time the entry was resolved.
	declaredPrivate bool
	host            string
	path            string
}

// IsPrivate reports whether the entry is local and was resolved
// against a registry declared private.
func (e Entry) IsPrivate() bool { return e.IsLocal && e.declaredPrivate }

// IsRemote reports whether the entry's URI host is not the local host.
func (e Entry) IsRemote() bool { return !e.IsLocal }

// LookupKey is the path for local private registries, and the full
// scheme-specific part of the URI otherwise.
func (e Entry) LookupKey() string {
	if e.IsPrivate() {
		return e.path
	}
	if i := strings.Index(e.URI, ":"); i >= 0 {
		return e.URI[i+1:]
	}
	return e.URI
}

// Registry is a URI-addressed service directory. A Registry declared
// private resolves local lookups by bare path; otherwise lookups are
// keyed by the URI's scheme-specific part.
type Registry struct {
	mu      sync.RWMutex
	private bool
	local   map[string]string // lookup key -> target URI
	remote  map[string]bool   // host names considered local

	warnMu    sync.Mutex
	warnCount int
}

// New builds a Registry; private controls whether local lookups are
// keyed by bare path (true) or the URI's scheme-specific part (false).
func New(private bool) *Registry {
	return &Registry{
		private: private,
		local:   make(map[string]string),
		remote:  make(map[string]bool),
	}
}

// Resolve parses a "rmi://host[:port]/[prefix/]name" URI into an
// Entry, classifying it local/remote from the host component.
func (r *Registry) Resolve(uri string) (Entry, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return Entry{}, errors.Wrapf(err, "registry: bad uri %q", uri)
	}
	path := strings.TrimPrefix(u.Path, "/")
	if path == "" {
		return Entry{}, errors.Wrapf(ErrEmptyPath, "uri=%q", uri)
	}

	r.mu.RLock()
	isLocal := u.Host == "" || r.remote[u.Host]
	r.mu.RUnlock()

	return Entry{
		URI:             uri,
		IsLocal:         isLocal,
		declaredPrivate: r.private,
		host:            u.Host,
		path:            path,
	}, nil
}

// Bind records uri -> target in the local directory, keyed the way
// LookupKey would resolve it.
func (r *Registry) Bind(uri, target string) error {
	e, err := r.Resolve(uri)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.local[e.LookupKey()] = target
	return nil
}

// Lookup finds the target bound to uri, if any.
func (r *Registry) Lookup(uri string) (string, error) {
	e, err := r.Resolve(uri)
	if err != nil {
		return "", err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	target, ok := r.local[e.LookupKey()]
	if !ok {
		return "", errors.Errorf("registry: no entry bound for %q", uri)
	}
	return target, nil
}

// DeclareLocalHost marks host as resolving to a local entry.
func (r *Registry) DeclareLocalHost(host string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remote[host] = true
}

// WarnContextGone logs a "socket factory context gone" warning, capped
// at warnCap occurrences per Registry to bound log amplification.
func (r *Registry) WarnContextGone(sessionUUID string) {
	r.warnMu.Lock()
	defer r.warnMu.Unlock()
	if r.warnCount >= warnCap {
		return
	}
	r.warnCount++
	log.Warnf("registry: security context for session %s is gone (%d/%d)", sessionUUID, r.warnCount, warnCap)
}
