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

// Package session implements the client-side session proxy: the
// connect/disconnect/login/logout state machine layered over the
// registry and security context.
//
// The source's proxy uses a reentrant lock because connect() and
// disconnect() call each other during veto rollback. Go has no
// built-in reentrant mutex, and the idiomatic replacement is not to
// fake one: Proxy keeps a single sync.Mutex and splits every public,
// locking entry point from an internal *Locked helper that assumes the
// lock is already held, so rollback can call the helper directly
// instead of re-entering the lock.
package session

import (
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/xapiens/rvpf/internal/binding"
	"github.com/xapiens/rvpf/internal/rerror"
	"github.com/xapiens/rvpf/internal/security"
)

// State is one of the session proxy's three lifecycle states.
type State int

const (
	// Disconnected is the initial and post-disconnect state.
	Disconnected State = iota
	// Connected means a session object exists and login (if any)
	// succeeded.
	Connected
	// TornDown is terminal: TearDown was called and the proxy refuses
	// further connects.
	TornDown
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case Connected:
		return "Connected"
	case TornDown:
		return "TornDown"
	default:
		return "Unknown"
	}
}

// Session is the server-side object a proxy connects to.
type Session interface {
	Login(user, password string) error
	Logout() error
	GetConnectionMode() security.ConnectionMode
	Close() error
}

// Factory resolves and creates a Session, e.g. by looking an entry up
// in the registry and dialing it.
type Factory func() (Session, error)

// Listener receives session lifecycle callbacks. OnSessionConnected
// may return an error to veto the connect.
type Listener interface {
	OnSessionConnected() error
	OnSessionDisconnected()
}

// Proxy is the client-side connect/disconnect/login/logout state
// machine.
type Proxy struct {
	mu sync.Mutex

	state       State
	autoconnect bool
	factory     Factory
	listener    Listener
	login       *binding.Login

	securityRegistry *security.ContextRegistry
	securityContext  *security.Context

	session Session
}

// NewProxy builds a disconnected Proxy. factory is called once per
// connect cycle; its result is not cached across reconnects.
// securityRegistry is the process-wide context map new socket factories
// will read from.
func NewProxy(factory Factory, securityRegistry *security.ContextRegistry, autoconnect bool) *Proxy {
	return &Proxy{
		state:            Disconnected,
		factory:          factory,
		securityRegistry: securityRegistry,
		autoconnect:      autoconnect,
	}
}

// SetListener installs the connect/disconnect callback hooks.
func (p *Proxy) SetListener(l Listener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listener = l
}

// SetLogin installs the credentials presented on the next connect.
func (p *Proxy) SetLogin(login *binding.Login) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.login = login
}

// State returns the current lifecycle state.
func (p *Proxy) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Connect is idempotent: calling it while already Connected is a
// no-op. A listener veto rolls the proxy back to Disconnected and
// returns a KindSessionConnectVeto error.
func (p *Proxy) Connect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connectLocked()
}

func (p *Proxy) connectLocked() error {
	if p.state == TornDown {
		return rerror.New(rerror.KindServiceClosed, "proxy has been torn down")
	}
	if p.state == Connected {
		return nil
	}

	p.securityContext = security.NewContext(security.ModeSecure, nil)
	p.securityRegistry.Register(p.securityContext)

	sess, err := p.factory()
	if err != nil {
		p.securityRegistry.Unregister(p.securityContext.UUID)
		return rerror.Classify(err)
	}

	if p.login != nil {
		if err := sess.Login(p.login.User, p.login.Password); err != nil {
			p.securityRegistry.Unregister(p.securityContext.UUID)
			return rerror.Wrap(rerror.KindSession, err, "login failed")
		}
	}

	p.session = sess
	p.state = Connected

	if p.listener != nil {
		if err := p.listener.OnSessionConnected(); err != nil {
			log.Warnf("session proxy: connect vetoed: %v", err)
			p.disconnectLocked()
			return rerror.Wrap(rerror.KindSessionConnectVeto, err, "connect vetoed by listener")
		}
	}
	return nil
}

// Disconnect logs out, unregisters the security context, and fires
// OnSessionDisconnected. It is a no-op when already disconnected.
func (p *Proxy) Disconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.disconnectLocked()
}

func (p *Proxy) disconnectLocked() error {
	if p.state != Connected {
		return nil
	}
	var err error
	if p.session != nil {
		if logoutErr := p.session.Logout(); logoutErr != nil {
			err = rerror.Classify(logoutErr)
		}
		_ = p.session.Close()
	}
	if p.securityContext != nil {
		p.securityRegistry.Unregister(p.securityContext.UUID)
		p.securityContext = nil
	}
	p.session = nil
	p.state = Disconnected
	if p.listener != nil {
		p.listener.OnSessionDisconnected()
	}
	return err
}

// TearDown permanently closes the proxy, disconnecting any active
// session; future Connect calls fail with KindServiceClosed.
func (p *Proxy) TearDown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disconnectLocked()
	p.state = TornDown
}

// GetSession returns the active session, autoconnecting first if so
// configured; otherwise fails with KindServiceClosed if not connected.
func (p *Proxy) GetSession() (Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != Connected {
		if !p.autoconnect {
			return nil, rerror.New(rerror.KindServiceClosed, "not connected")
		}
		if err := p.connectLocked(); err != nil {
			return nil, err
		}
	}
	return p.session, nil
}

// HandleSessionError classifies err into the fabric taxonomy and, if
// autoconnect is enabled and the error is not a veto, drops the
// current session so the next GetSession reconnects fresh.
func (p *Proxy) HandleSessionError(err error) error {
	classified := rerror.Classify(err)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.autoconnect && classified.Kind != rerror.KindSessionConnectVeto {
		p.disconnectLocked()
	}
	return classified
}
