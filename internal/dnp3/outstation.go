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

package dnp3

import (
	"net"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/xapiens/rvpf/internal/store"
)

// Update is one point value queued for delivery to the master on the
// next unsolicited-response cycle.
type Update struct {
	Group     byte
	Variation byte
	Index     uint16
	Value     any
}

// Responder is the data-logger's ingest hook into the outstation: a
// store update translates into a DNP3 Update and is queued here.
type Responder interface {
	Respond(u Update)
}

// OutstationContext keeps the configured origin names (case-insensitive)
// an outstation accepts metadata points from, and the queue of pending
// unsolicited updates.
type OutstationContext struct {
	mu      sync.Mutex
	origins map[string]bool
	pending []Update
}

// NewOutstationContext builds a context accepting only the given
// origin names (case-insensitive); no names means accept all.
func NewOutstationContext(origins ...string) *OutstationContext {
	oc := &OutstationContext{origins: make(map[string]bool, len(origins))}
	for _, o := range origins {
		oc.origins[strings.ToLower(o)] = true
	}
	return oc
}

// AcceptsOrigin reports whether origin is configured (or no filter is
// configured at all).
func (oc *OutstationContext) AcceptsOrigin(origin string) bool {
	if len(oc.origins) == 0 {
		return true
	}
	return oc.origins[strings.ToLower(origin)]
}

// Respond implements Responder: queues u for the next unsolicited
// response cycle.
func (oc *OutstationContext) Respond(u Update) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	oc.pending = append(oc.pending, u)
}

// DrainPending returns and clears the queued updates.
func (oc *OutstationContext) DrainPending() []Update {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	pending := oc.pending
	oc.pending = nil
	return pending
}

// FromPointValue translates a store point value into a queued Update
// for master ev, using its group/variation as resolved by the caller
// (the outstation's point-to-object mapping is backend metadata, out
// of scope here).
func (oc *OutstationContext) FromPointValue(pv store.PointValue, group, variation byte, index uint16) {
	oc.Respond(Update{Group: group, Variation: variation, Index: index, Value: pv.Value})
}

// DNP3MasterProxy is the outstation-side handle to one connected
// master: it owns the socket. Draining the OutstationContext's pending
// updates is left to the handler the TCPListener hands the proxy to.
type DNP3MasterProxy struct {
	conn    net.Conn
	context *OutstationContext
}

// NewDNP3MasterProxy wraps a freshly accepted connection.
func NewDNP3MasterProxy(conn net.Conn, oc *OutstationContext) *DNP3MasterProxy {
	return &DNP3MasterProxy{conn: conn, context: oc}
}

// Close closes the underlying connection.
func (p *DNP3MasterProxy) Close() error { return p.conn.Close() }

// Conn exposes the underlying connection so a caller can watch for it
// going away (e.g. to stop draining updates once the master
// disconnects).
func (p *DNP3MasterProxy) Conn() net.Conn { return p.conn }

// TCPListener runs a single accept loop per listen address, handing
// each accepted connection to handle. Shutdown closes the listener,
// which unblocks Accept with a "use of closed network connection"
// error treated as normal termination.
type TCPListener struct {
	listener net.Listener
	context  *OutstationContext
	handle   func(*DNP3MasterProxy)
}

// NewTCPListener binds addr and returns a listener ready to Serve.
func NewTCPListener(addr string, oc *OutstationContext, handle func(*DNP3MasterProxy)) (*TCPListener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &TCPListener{listener: ln, context: oc, handle: handle}, nil
}

// Serve loops accepting connections until Close is called.
func (l *TCPListener) Serve() {
	for {
		conn, err := l.listener.Accept()
		if err != nil {
			if strings.Contains(err.Error(), "use of closed network connection") {
				log.Infof("dnp3: listener closed")
				return
			}
			log.Errorf("dnp3: accept: %v", err)
			continue
		}
		proxy := NewDNP3MasterProxy(conn, l.context)
		go l.handle(proxy)
	}
}

// Close stops accepting new connections.
func (l *TCPListener) Close() error {
	return l.listener.Close()
}
