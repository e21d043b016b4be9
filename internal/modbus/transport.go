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
	"encoding/binary"
	"io"
	"net"
	"time"

	log "github.com/sirupsen/logrus"
	"go.bug.st/serial"

	"github.com/xapiens/rvpf/internal/rerror"
)

// TCPCodec frames PDUs with the MBAP header: transaction id, protocol
// id (always 0), length, unit id.
type TCPCodec struct{}

func (TCPCodec) WriteFrame(w io.Writer, prefix Prefix, pdu PDU) error {
	header := make([]byte, 7)
	binary.BigEndian.PutUint16(header[0:2], prefix.TransactionID)
	binary.BigEndian.PutUint16(header[2:4], 0)
	binary.BigEndian.PutUint16(header[4:6], uint16(len(pdu.Data)+2))
	header[6] = prefix.UnitID
	frame := append(header, byte(pdu.Function))
	frame = append(frame, pdu.Data...)
	_, err := w.Write(frame)
	return err
}

func (TCPCodec) ReadFrame(r io.Reader) (Prefix, PDU, error) {
	header := make([]byte, 7)
	if _, err := io.ReadFull(r, header); err != nil {
		return Prefix{}, PDU{}, err
	}
	length := binary.BigEndian.Uint16(header[4:6])
	if length < 2 {
		return Prefix{}, PDU{}, rerror.New(rerror.KindProtocol, "modbus: mbap length too short")
	}
	body := make([]byte, length-1)
	if _, err := io.ReadFull(r, body); err != nil {
		return Prefix{}, PDU{}, err
	}
	prefix := Prefix{TransactionID: binary.BigEndian.Uint16(header[0:2]), UnitID: header[6]}
	return prefix, PDU{Function: FunctionCode(body[0]), Data: body[1:]}, nil
}

// RTUCodec frames PDUs for serial RTU transport: unit id, function,
// data, CRC-16 (low byte first).
type RTUCodec struct{}

func (RTUCodec) WriteFrame(w io.Writer, prefix Prefix, pdu PDU) error {
	frame := append([]byte{prefix.UnitID, byte(pdu.Function)}, pdu.Data...)
	crc := NewCRC16()
	crc.Update(frame)
	frame = append(frame, crc.Bytes()...)
	_, err := w.Write(frame)
	return err
}

// ReadFrame reads a fixed 2-byte header then relies on the caller's
// transport framing (serial ports have no explicit length prefix); a
// production RTU reader frames on inter-character silence, which the
// serial port's read-timeout approximates here via one bounded read.
func (RTUCodec) ReadFrame(r io.Reader) (Prefix, PDU, error) {
	header := make([]byte, 2)
	if _, err := io.ReadFull(r, header); err != nil {
		return Prefix{}, PDU{}, err
	}
	rest := make([]byte, 256)
	n, err := r.Read(rest)
	if err != nil && n == 0 {
		return Prefix{}, PDU{}, err
	}
	if n < 2 {
		return Prefix{}, PDU{}, rerror.New(rerror.KindProtocol, "modbus: rtu frame too short")
	}
	body, crcBytes := rest[:n-2], rest[n-2:n]
	crc := NewCRC16()
	crc.Update(header)
	crc.Update(body)
	if crc.Bytes()[0] != crcBytes[0] || crc.Bytes()[1] != crcBytes[1] {
		return Prefix{}, PDU{}, rerror.New(rerror.KindProtocol, "modbus: rtu crc mismatch")
	}
	return Prefix{UnitID: header[0]}, PDU{Function: FunctionCode(header[1]), Data: body}, nil
}

// TCPListener accepts Modbus/TCP connections and hands each to handle.
type TCPListener struct {
	listener net.Listener
}

// NewTCPListener binds addr.
func NewTCPListener(addr string) (*TCPListener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &TCPListener{listener: ln}, nil
}

// Serve loops accepting connections until Close is called.
func (l *TCPListener) Serve(handle func(net.Conn)) {
	for {
		conn, err := l.listener.Accept()
		if err != nil {
			log.Infof("modbus: tcp listener stopped: %v", err)
			return
		}
		go handle(conn)
	}
}

// Close stops accepting new connections.
func (l *TCPListener) Close() error { return l.listener.Close() }

// SerialListener owns one serial port and watches its modem-control
// status (DSR) when enabled, idling the port until DSR reasserts
// before serving the next connection.
type SerialListener struct {
	port         serial.Port
	modemControl bool
	pollInterval time.Duration
}

// NewSerialListener opens portName at baud with the given mode;
// modemControl enables the DSR idle-on-drop behavior.
func NewSerialListener(portName string, baud int, modemControl bool) (*SerialListener, error) {
	port, err := serial.Open(portName, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, err
	}
	return &SerialListener{port: port, modemControl: modemControl, pollInterval: 200 * time.Millisecond}, nil
}

// Serve runs handle against the port, re-entering the idle wait
// whenever DSR drops, until Close is called.
func (l *SerialListener) Serve(handle func(serial.Port)) {
	for {
		if l.modemControl {
			l.waitForDSR()
		}
		handle(l.port)
	}
}

// waitForDSR polls the port's modem status bits, idling while DSR is
// low.
func (l *SerialListener) waitForDSR() {
	for {
		status, err := l.port.GetModemStatusBits()
		if err != nil {
			log.Warnf("modbus: reading modem status: %v", err)
			return
		}
		if status.DSR {
			return
		}
		time.Sleep(l.pollInterval)
	}
}

// Close closes the serial port.
func (l *SerialListener) Close() error { return l.port.Close() }
