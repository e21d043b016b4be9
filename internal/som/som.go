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

// Package som implements the queue/topic messaging layer (Sender,
// Receiver, Publisher, Subscriber) built on top of a session.Proxy.
package som

import (
	"sync"
	"time"

	"github.com/xapiens/rvpf/internal/rerror"
	"github.com/xapiens/rvpf/internal/session"
)

// Message is an opaque byte-blob payload with an out-of-band schema
// tag, rather than a language-specific serialized object.
type Message struct {
	Schema  string
	Payload []byte
}

// SOMSession is the wire contract every queue/topic session exposes
// on top of login/logout.
type SOMSession interface {
	session.Session
	Close() error
	Name() string
	GetKeepAlive() time.Duration
}

// SenderSession is the server-side contract a Sender proxy calls.
type SenderSession interface {
	SOMSession
	Send(messages []Message, commit bool) error
	Commit() error
	Rollback() error
}

// ReceiverSession is the server-side contract a Receiver/Subscriber
// proxy calls. Receive with a negative timeout means "wait
// indefinitely", looping over empty keep-alive returns.
type ReceiverSession interface {
	SOMSession
	Receive(limit int, timeout time.Duration) ([]Message, error)
	Commit() error
	Rollback() error
	Purge() error
}

// proxyBase is the common (keep_alive_timeout, in_transaction, closed)
// state every SOM proxy carries in addition to its embedded
// session.Proxy.
type proxyBase struct {
	mu            sync.Mutex
	somName       string
	keepAlive     time.Duration
	inTransaction bool
	closed        bool
}

func (b *proxyBase) setInTransaction(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inTransaction = v
}

func (b *proxyBase) isInTransaction() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inTransaction
}

func (b *proxyBase) markClosed() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}

func (b *proxyBase) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// SOMName returns the lazily-fetched queue/topic name, empty until the
// first successful operation sets it via setSOMName.
func (b *proxyBase) SOMName() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.somName
}

func (b *proxyBase) setSOMName(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.somName = name
}

// KeepAlive returns the configured keep-alive timeout.
func (b *proxyBase) KeepAlive() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.keepAlive
}

// SetKeepAlive configures the keep-alive timeout used to size the
// channel's socket timeout.
func (b *proxyBase) SetKeepAlive(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.keepAlive = d
}

// QueueReceiver wraps a session.Proxy with the receive/commit/rollback
// contract for point-to-point queues.
type QueueReceiver struct {
	*session.Proxy
	proxyBase
}

// NewQueueReceiver builds a QueueReceiver over proxy. keepAlive
// defaults to 0 unless set explicitly; Receive's keep-alive looping
// depends only on a negative timeout.
func NewQueueReceiver(proxy *session.Proxy) *QueueReceiver {
	return &QueueReceiver{Proxy: proxy}
}

// receiverSession fetches and type-asserts the current session.
func (q *QueueReceiver) receiverSession() (ReceiverSession, error) {
	s, err := q.GetSession()
	if err != nil {
		return nil, err
	}
	rs, ok := s.(ReceiverSession)
	if !ok {
		return nil, rerror.New(rerror.KindSession, "session does not implement ReceiverSession")
	}
	if q.SOMName() == "" {
		q.setSOMName(rs.Name())
	}
	return rs, nil
}

// Receive returns up to limit messages. A negative timeout waits
// indefinitely, looping over empty keep-alive returns from the
// backend rather than treating them as "no messages".
func (q *QueueReceiver) Receive(limit int, timeout time.Duration) ([]Message, error) {
	if q.isClosed() {
		return nil, rerror.New(rerror.KindServiceClosed, "receiver is closed")
	}
	for {
		rs, err := q.receiverSession()
		if err != nil {
			return nil, err
		}
		msgs, err := rs.Receive(limit, timeout)
		if err != nil {
			return nil, q.HandleSessionError(err)
		}
		if len(msgs) > 0 {
			q.setInTransaction(true)
			return msgs, nil
		}
		if timeout >= 0 {
			return msgs, nil
		}
		// timeout < 0: this was a keep-alive-only return, loop again.
	}
}

// Commit is a no-op outside a transaction; otherwise commits and
// clears the transaction flag. A transport failure disconnects and
// surfaces the error.
func (q *QueueReceiver) Commit() error {
	if !q.isInTransaction() {
		return nil
	}
	rs, err := q.receiverSession()
	if err != nil {
		return err
	}
	if err := rs.Commit(); err != nil {
		return q.HandleSessionError(err)
	}
	q.setInTransaction(false)
	return nil
}

// Close tears down the underlying proxy and marks this receiver
// closed.
func (q *QueueReceiver) Close() {
	q.markClosed()
	q.TearDown()
}

// Rollback is a no-op outside a transaction; otherwise rolls back and
// clears the transaction flag.
func (q *QueueReceiver) Rollback() error {
	if !q.isInTransaction() {
		return nil
	}
	rs, err := q.receiverSession()
	if err != nil {
		return err
	}
	if err := rs.Rollback(); err != nil {
		return q.HandleSessionError(err)
	}
	q.setInTransaction(false)
	return nil
}

// QueueSender wraps a session.Proxy with the send contract for
// point-to-point queues.
type QueueSender struct {
	*session.Proxy
	proxyBase
}

// NewQueueSender builds a QueueSender over proxy.
func NewQueueSender(proxy *session.Proxy) *QueueSender {
	return &QueueSender{Proxy: proxy}
}

// Close tears down the underlying proxy and marks this sender closed.
func (q *QueueSender) Close() {
	q.markClosed()
	q.TearDown()
}

// Send ships a batch, piggybacking commit to save a round-trip when
// commit is true.
func (q *QueueSender) Send(messages []Message, commit bool) error {
	if q.isClosed() {
		return rerror.New(rerror.KindServiceClosed, "sender is closed")
	}
	s, err := q.GetSession()
	if err != nil {
		return err
	}
	ss, ok := s.(SenderSession)
	if !ok {
		return rerror.New(rerror.KindSession, "session does not implement SenderSession")
	}
	if q.SOMName() == "" {
		q.setSOMName(ss.Name())
	}
	if err := ss.Send(messages, commit); err != nil {
		return q.HandleSessionError(err)
	}
	return nil
}

// TopicSubscriber wraps a session.Proxy, computing its own keep-alive
// timeout as 2x the server's keep-alive unless explicitly configured
//, and looping the same way QueueReceiver does.
type TopicSubscriber struct {
	*session.Proxy
	proxyBase
}

// NewTopicSubscriber builds a TopicSubscriber over proxy.
func NewTopicSubscriber(proxy *session.Proxy) *TopicSubscriber {
	return &TopicSubscriber{Proxy: proxy}
}

// EffectiveTimeout returns the keep-alive timeout set via
// SetKeepAlive, or 2x the server's keep-alive when none was set
// explicitly. The channel's socket timeout must be at least this, per
// the design.
func (s *TopicSubscriber) EffectiveTimeout(serverKeepAlive time.Duration) time.Duration {
	if d := s.KeepAlive(); d > 0 {
		return d
	}
	return 2 * serverKeepAlive
}

// Close tears down the underlying proxy and marks this subscriber
// closed.
func (s *TopicSubscriber) Close() {
	s.markClosed()
	s.TearDown()
}

// Receive mirrors QueueReceiver.Receive's keep-alive looping semantics
// for subscribed topics.
func (s *TopicSubscriber) Receive(limit int, timeout time.Duration) ([]Message, error) {
	if s.isClosed() {
		return nil, rerror.New(rerror.KindServiceClosed, "subscriber is closed")
	}
	for {
		sess, err := s.GetSession()
		if err != nil {
			return nil, err
		}
		rs, ok := sess.(ReceiverSession)
		if !ok {
			return nil, rerror.New(rerror.KindSession, "session does not implement ReceiverSession")
		}
		if s.SOMName() == "" {
			s.setSOMName(rs.Name())
		}
		msgs, err := rs.Receive(limit, timeout)
		if err != nil {
			return nil, s.HandleSessionError(err)
		}
		if len(msgs) > 0 {
			return msgs, nil
		}
		if timeout >= 0 {
			return msgs, nil
		}
	}
}

// TopicPublisher wraps a session.Proxy with the send contract for
// topics; analogous to QueueSender.
type TopicPublisher struct {
	*session.Proxy
	proxyBase
}

// NewTopicPublisher builds a TopicPublisher over proxy.
func NewTopicPublisher(proxy *session.Proxy) *TopicPublisher {
	return &TopicPublisher{Proxy: proxy}
}

// Send publishes a batch of messages.
func (p *TopicPublisher) Send(messages []Message, commit bool) error {
	if p.isClosed() {
		return rerror.New(rerror.KindServiceClosed, "publisher is closed")
	}
	s, err := p.GetSession()
	if err != nil {
		return err
	}
	ss, ok := s.(SenderSession)
	if !ok {
		return rerror.New(rerror.KindSession, "session does not implement SenderSession")
	}
	if p.SOMName() == "" {
		p.setSOMName(ss.Name())
	}
	if err := ss.Send(messages, commit); err != nil {
		return p.HandleSessionError(err)
	}
	return nil
}

// Close tears down the underlying proxy and marks this publisher
// closed.
func (p *TopicPublisher) Close() {
	p.markClosed()
	p.TearDown()
}
