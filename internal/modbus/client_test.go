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
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xapiens/rvpf/internal/rerror"
)

// fakeProxy backs a Server in tests: holding registers are settable,
// everything else fails.
type fakeProxy struct {
	holding map[uint16]uint16
}

func newFakeProxy() *fakeProxy { return &fakeProxy{holding: map[uint16]uint16{}} }

func (p *fakeProxy) ReadCoils(address, quantity uint16) ([]bool, error) { return nil, errUnsupported }
func (p *fakeProxy) ReadDiscreteInputs(address, quantity uint16) ([]bool, error) {
	return nil, errUnsupported
}

func (p *fakeProxy) ReadHoldingRegisters(address, quantity uint16) ([]uint16, error) {
	out := make([]uint16, quantity)
	for i := range out {
		out[i] = p.holding[address+uint16(i)]
	}
	return out, nil
}

func (p *fakeProxy) ReadInputRegisters(address, quantity uint16) ([]uint16, error) {
	return nil, errUnsupported
}
func (p *fakeProxy) WriteSingleCoil(address uint16, value bool) error { return errUnsupported }
func (p *fakeProxy) WriteSingleRegister(address uint16, value uint16) error {
	p.holding[address] = value
	return nil
}
func (p *fakeProxy) WriteMultipleCoils(address uint16, values []bool) error { return errUnsupported }
func (p *fakeProxy) WriteMultipleRegisters(address uint16, values []uint16) error {
	return errUnsupported
}

var errUnsupported = rerror.New(rerror.KindProtocol, "modbus: unsupported in test fixture")

func TestClientServerReadHoldingRegistersRoundTrip(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	proxy := newFakeProxy()
	proxy.holding[10] = 42
	proxy.holding[11] = 7

	server := NewServer(serverConn, TCPCodec{}, 1, proxy, false)
	go server.Serve()

	client := NewClient(clientConn, TCPCodec{}, 0, 0)
	go client.Serve()

	txn, err := client.SendRequest(Prefix{TransactionID: 1, UnitID: 1}, PDU{
		Function: FuncReadHoldingRegisters,
		Data:     append(putBE16(10), putBE16(2)...),
	})
	require.NoError(t, err)

	select {
	case err := <-txn.Done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for transaction")
	}
	require.Equal(t, StateCompleted, txn.State)
	require.Equal(t, packRegisters([]uint16{42, 7}), txn.Response.Data)
}

func TestServerWriteOnlyRejectsReadFunctionCode(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	server := NewServer(serverConn, TCPCodec{}, 1, newFakeProxy(), true)
	go server.Serve()

	client := NewClient(clientConn, TCPCodec{}, 0, 0)
	go client.Serve()

	txn, err := client.SendRequest(Prefix{TransactionID: 1, UnitID: 1}, PDU{
		Function: FuncReadHoldingRegisters,
		Data:     append(putBE16(0), putBE16(1)...),
	})
	require.NoError(t, err)

	select {
	case err := <-txn.Done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for transaction")
	}
	require.True(t, txn.Response.Function.IsError())
	require.Equal(t, []byte{byte(ExceptionIllegalFunction)}, txn.Response.Data)
}

func TestClientFunctionCodeMismatchFailsConnection(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	client := NewClient(clientConn, TCPCodec{}, 0, 0)
	go client.Serve()

	go func() {
		prefix, _, err := TCPCodec{}.ReadFrame(serverConn)
		if err != nil {
			return
		}
		_ = TCPCodec{}.WriteFrame(serverConn, prefix, PDU{
			Function: FuncReadCoils,
			Data:     []byte{0x02, 0x00},
		})
	}()

	txn, err := client.SendRequest(Prefix{TransactionID: 1, UnitID: 1}, PDU{
		Function: FuncReadHoldingRegisters,
		Data:     append(putBE16(0), putBE16(1)...),
	})
	require.NoError(t, err)

	select {
	case err := <-txn.Done:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for transaction")
	}
	require.Equal(t, StateFailed, txn.State)
}

func TestClientBatchSizeBoundsPendingQueue(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	client := NewClient(clientConn, TCPCodec{}, 1, 0)
	go client.Serve()

	type received struct {
		prefix Prefix
		pdu    PDU
	}
	firstRequest := make(chan received, 1)
	go func() {
		prefix, pdu := readRequest(t, serverConn)
		firstRequest <- received{prefix, pdu}
	}()

	first, err := client.SendRequest(Prefix{TransactionID: 1, UnitID: 1}, PDU{Function: FuncReadHoldingRegisters, Data: append(putBE16(0), putBE16(1)...)})
	require.NoError(t, err)
	require.Equal(t, StateSent, first.State)

	second, err := client.SendRequest(Prefix{TransactionID: 2, UnitID: 1}, PDU{Function: FuncReadHoldingRegisters, Data: append(putBE16(0), putBE16(1)...)})
	require.NoError(t, err)
	require.Equal(t, StateQueued, second.State)

	client.mu.Lock()
	require.Len(t, client.batched, 1)
	require.Len(t, client.pending, 1)
	client.mu.Unlock()

	var req received
	select {
	case req = <-firstRequest:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for first request")
	}
	require.Equal(t, uint16(1), req.prefix.TransactionID)
	err = TCPCodec{}.WriteFrame(serverConn, req.prefix, PDU{Function: req.pdu.Function, Data: packRegisters([]uint16{0})})
	require.NoError(t, err)

	select {
	case err := <-first.Done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for first transaction")
	}

	require.Eventually(t, func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		return len(client.batched) == 1 && len(client.pending) == 0
	}, time.Second, 10*time.Millisecond)

	client.mu.Lock()
	require.Equal(t, second, client.batched[0])
	client.mu.Unlock()
}

func TestClientTimeoutFiresOnLostConnectionOnce(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer serverConn.Close()

	client := NewClient(clientConn, TCPCodec{}, 0, 20*time.Millisecond)
	lost := make(chan error, 4)
	client.OnLostConnection = func(err error) { lost <- err }
	go client.Serve()

	// Drain the request off the wire without ever answering it, so the
	// timeout monitor -- not a blocked write -- is what fails the
	// connection.
	go func() {
		buf := make([]byte, 64)
		_, _ = serverConn.Read(buf)
	}()

	_, err := client.SendRequest(Prefix{TransactionID: 1, UnitID: 1}, PDU{Function: FuncReadHoldingRegisters, Data: append(putBE16(0), putBE16(1)...)})
	require.NoError(t, err)

	select {
	case err := <-lost:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for OnLostConnection")
	}

	select {
	case <-lost:
		t.Fatal("OnLostConnection fired more than once")
	case <-time.After(50 * time.Millisecond):
	}
}

// readRequest reads one frame off conn as the codec's server side would.
func readRequest(t *testing.T, conn net.Conn) (Prefix, PDU) {
	t.Helper()
	prefix, pdu, err := TCPCodec{}.ReadFrame(conn)
	require.NoError(t, err)
	return prefix, pdu
}
