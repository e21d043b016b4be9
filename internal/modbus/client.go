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

package modbus

import (
	"io"
	"sync"
	"time"

	"github.com/xapiens/rvpf/internal/rerror"
)

// FrameCodec reads and writes one Prefix+PDU frame on a connection; TCP
// (MBAP), RTU (CRC16) and ASCII (LRC) each implement it with their own
// framing.
type FrameCodec interface {
	WriteFrame(w io.Writer, prefix Prefix, pdu PDU) error
	ReadFrame(r io.Reader) (Prefix, PDU, error)
}

// Client is one server connection's request queue and receiver loop.
// pending is unbounded; batched is bounded by BatchSize and holds
// requests sent but not yet answered.
type Client struct {
	conn      io.ReadWriteCloser
	codec     FrameCodec
	batchSize int
	timeout   time.Duration

	mu      sync.Mutex
	pending []*Transaction
	batched []*Transaction
	closed  bool
	timer   *time.Timer

	OnLostConnection func(error)
}

// NewClient wraps conn, codec and batchSize/timeout into a client
// connection. batchSize <= 0 means unbounded.
func NewClient(conn io.ReadWriteCloser, codec FrameCodec, batchSize int, timeout time.Duration) *Client {
	return &Client{conn: conn, codec: codec, batchSize: batchSize, timeout: timeout}
}

// SendRequest enqueues a request, transmitting it immediately if idle
// and room remains in the batched queue, else appending it to pending.
// It returns the Transaction to await on Done.
func (c *Client) SendRequest(prefix Prefix, pdu PDU) (*Transaction, error) {
	txn := NewTransaction(prefix, pdu)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, rerror.New(rerror.KindServiceClosed, "modbus: client connection closed")
	}
	if len(c.pending) == 0 && (c.batchSize <= 0 || len(c.batched) < c.batchSize) {
		c.batched = append(c.batched, txn)
		txn.State = StateSent
		c.armTimeoutLocked()
		c.mu.Unlock()
		if err := c.codec.WriteFrame(c.conn, prefix, pdu); err != nil {
			c.failAll(err)
			return txn, err
		}
		return txn, nil
	}
	c.pending = append(c.pending, txn)
	c.mu.Unlock()
	return txn, nil
}

// armTimeoutLocked (re)starts the request-timeout monitor against the
// current head of batched, stopping any prior timer. Callers hold
// c.mu; a zero Client.timeout disables the monitor.
func (c *Client) armTimeoutLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.timeout <= 0 || len(c.batched) == 0 {
		return
	}
	c.timer = time.AfterFunc(c.timeout, func() {
		c.failAll(rerror.New(rerror.KindTimeout, "modbus: request timed out"))
	})
}

// refillLocked sends as many pending requests as the batched queue has
// room for. Callers hold c.mu.
func (c *Client) refillLocked() {
	for len(c.pending) > 0 && (c.batchSize <= 0 || len(c.batched) < c.batchSize) {
		txn := c.pending[0]
		c.pending = c.pending[1:]
		c.batched = append(c.batched, txn)
		txn.State = StateSent
		c.armTimeoutLocked()
		c.mu.Unlock()
		err := c.codec.WriteFrame(c.conn, txn.Prefix, txn.Request)
		c.mu.Lock()
		if err != nil {
			c.mu.Unlock()
			c.failAll(err)
			c.mu.Lock()
			return
		}
	}
}

// Serve runs the receiver loop until the connection fails or is
// closed: it reads one frame per iteration, matches it against the
// head of batched, and fails the connection on mismatch, EOF, I/O
// error, or format exception.
func (c *Client) Serve() {
	for {
		prefix, pdu, err := c.codec.ReadFrame(c.conn)
		if err != nil {
			c.failAll(err)
			return
		}

		c.mu.Lock()
		if len(c.batched) == 0 {
			c.mu.Unlock()
			c.failAll(rerror.New(rerror.KindProtocol, "modbus: response with no outstanding request"))
			return
		}
		head := c.batched[0]
		if pdu.Function.WithoutError() != head.Request.Function {
			c.mu.Unlock()
			c.failAll(rerror.New(rerror.KindProtocol, "modbus: function code mismatch"))
			return
		}
		c.batched = c.batched[1:]
		c.mu.Unlock()

		_ = prefix
		head.complete(pdu, nil)

		c.mu.Lock()
		c.refillLocked()
		c.armTimeoutLocked()
		c.mu.Unlock()
	}
}

// failAll stops the connection: every queued (pending and batched)
// transaction fails, and OnLostConnection fires exactly once.
func (c *Client) failAll(err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	batched := c.batched
	pending := c.pending
	c.batched, c.pending = nil, nil
	c.mu.Unlock()

	for _, txn := range batched {
		txn.complete(PDU{}, err)
	}
	for _, txn := range pending {
		txn.complete(PDU{}, err)
	}
	_ = c.conn.Close()
	if c.OnLostConnection != nil {
		c.OnLostConnection(err)
	}
}

// Close stops the connection cleanly, as if the peer had dropped it.
func (c *Client) Close() {
	c.failAll(rerror.New(rerror.KindServiceClosed, "modbus: client closed"))
}
