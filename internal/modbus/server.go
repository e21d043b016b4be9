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

	log "github.com/sirupsen/logrus"
	"github.com/xapiens/rvpf/internal/rerror"
)

// ClientProxy is the backing register/coil store a Server dispatches
// read/write requests against. Writes commit atomically.
type ClientProxy interface {
	ReadCoils(address, quantity uint16) ([]bool, error)
	ReadDiscreteInputs(address, quantity uint16) ([]bool, error)
	ReadHoldingRegisters(address, quantity uint16) ([]uint16, error)
	ReadInputRegisters(address, quantity uint16) ([]uint16, error)
	WriteSingleCoil(address uint16, value bool) error
	WriteSingleRegister(address uint16, value uint16) error
	WriteMultipleCoils(address uint16, values []bool) error
	WriteMultipleRegisters(address uint16, values []uint16) error
}

// Server is one accepted connection's request dispatcher. WriteOnly rejects every read function
// code with IllegalFunction.
type Server struct {
	conn      io.ReadWriteCloser
	codec     FrameCodec
	unitID    byte
	proxy     ClientProxy
	writeOnly bool

	mu sync.Mutex
}

// NewServer wraps conn, codec, the unit identifier this server answers
// for, and the backing proxy.
func NewServer(conn io.ReadWriteCloser, codec FrameCodec, unitID byte, proxy ClientProxy, writeOnly bool) *Server {
	return &Server{conn: conn, codec: codec, unitID: unitID, proxy: proxy, writeOnly: writeOnly}
}

// Serve loops decoding and dispatching requests until the connection
// fails.
func (s *Server) Serve() {
	for {
		prefix, pdu, err := s.codec.ReadFrame(s.conn)
		if err != nil {
			if err != io.EOF {
				log.Debugf("modbus: server connection read: %v", err)
			}
			return
		}
		if prefix.UnitID != s.unitID {
			log.Warnf("modbus: unit id mismatch: got %d want %d", prefix.UnitID, s.unitID)
			continue
		}

		response := s.dispatch(pdu)
		s.mu.Lock()
		err = s.codec.WriteFrame(s.conn, prefix, response)
		s.mu.Unlock()
		if err != nil {
			log.Debugf("modbus: server connection write: %v", err)
			return
		}
	}
}

// Close closes the underlying connection.
func (s *Server) Close() error { return s.conn.Close() }

func (s *Server) dispatch(req PDU) PDU {
	if s.writeOnly && req.Function.IsReadOnly() {
		return exceptionResponse(req.Function, ExceptionIllegalFunction)
	}
	switch req.Function {
	case FuncReadCoils:
		return s.handleReadCoils(req)
	case FuncReadDiscreteInputs:
		return s.handleReadDiscreteInputs(req)
	case FuncReadHoldingRegisters:
		return s.handleReadHoldingRegisters(req)
	case FuncReadInputRegisters:
		return s.handleReadInputRegisters(req)
	case FuncWriteSingleCoil:
		return s.handleWriteSingleCoil(req)
	case FuncWriteSingleRegister:
		return s.handleWriteSingleRegister(req)
	case FuncWriteMultipleCoils:
		return s.handleWriteMultipleCoils(req)
	case FuncWriteMultipleRegisters:
		return s.handleWriteMultipleRegisters(req)
	default:
		return exceptionResponse(req.Function, ExceptionIllegalFunction)
	}
}

func exceptionResponse(fn FunctionCode, code ExceptionCode) PDU {
	return PDU{Function: fn.AsError(), Data: []byte{byte(code)}}
}

func addressQuantity(data []byte) (address, quantity uint16, err error) {
	if len(data) < 4 {
		return 0, 0, rerror.New(rerror.KindProtocol, "modbus: short read request")
	}
	return be16(data[0:2]), be16(data[2:4]), nil
}

func be16(b []byte) uint16 { return uint16(b[0])<<8 | uint16(b[1]) }

func putBE16(v uint16) []byte { return []byte{byte(v >> 8), byte(v)} }

func (s *Server) handleReadCoils(req PDU) PDU {
	address, quantity, err := addressQuantity(req.Data)
	if err != nil {
		return exceptionResponse(req.Function, ExceptionIllegalDataValue)
	}
	bits, err := s.proxy.ReadCoils(address, quantity)
	if err != nil {
		return exceptionResponse(req.Function, ExceptionServerDeviceFailure)
	}
	return PDU{Function: req.Function, Data: packBits(bits)}
}

func (s *Server) handleReadDiscreteInputs(req PDU) PDU {
	address, quantity, err := addressQuantity(req.Data)
	if err != nil {
		return exceptionResponse(req.Function, ExceptionIllegalDataValue)
	}
	bits, err := s.proxy.ReadDiscreteInputs(address, quantity)
	if err != nil {
		return exceptionResponse(req.Function, ExceptionServerDeviceFailure)
	}
	return PDU{Function: req.Function, Data: packBits(bits)}
}

func (s *Server) handleReadHoldingRegisters(req PDU) PDU {
	address, quantity, err := addressQuantity(req.Data)
	if err != nil {
		return exceptionResponse(req.Function, ExceptionIllegalDataValue)
	}
	values, err := s.proxy.ReadHoldingRegisters(address, quantity)
	if err != nil {
		return exceptionResponse(req.Function, ExceptionServerDeviceFailure)
	}
	return PDU{Function: req.Function, Data: packRegisters(values)}
}

func (s *Server) handleReadInputRegisters(req PDU) PDU {
	address, quantity, err := addressQuantity(req.Data)
	if err != nil {
		return exceptionResponse(req.Function, ExceptionIllegalDataValue)
	}
	values, err := s.proxy.ReadInputRegisters(address, quantity)
	if err != nil {
		return exceptionResponse(req.Function, ExceptionServerDeviceFailure)
	}
	return PDU{Function: req.Function, Data: packRegisters(values)}
}

func (s *Server) handleWriteSingleCoil(req PDU) PDU {
	if len(req.Data) < 4 {
		return exceptionResponse(req.Function, ExceptionIllegalDataValue)
	}
	address := be16(req.Data[0:2])
	on := be16(req.Data[2:4]) == 0xFF00
	if err := s.proxy.WriteSingleCoil(address, on); err != nil {
		return exceptionResponse(req.Function, ExceptionServerDeviceFailure)
	}
	return PDU{Function: req.Function, Data: append([]byte{}, req.Data...)}
}

func (s *Server) handleWriteSingleRegister(req PDU) PDU {
	if len(req.Data) < 4 {
		return exceptionResponse(req.Function, ExceptionIllegalDataValue)
	}
	address := be16(req.Data[0:2])
	value := be16(req.Data[2:4])
	if err := s.proxy.WriteSingleRegister(address, value); err != nil {
		return exceptionResponse(req.Function, ExceptionServerDeviceFailure)
	}
	return PDU{Function: req.Function, Data: append([]byte{}, req.Data...)}
}

func (s *Server) handleWriteMultipleCoils(req PDU) PDU {
	if len(req.Data) < 5 {
		return exceptionResponse(req.Function, ExceptionIllegalDataValue)
	}
	address := be16(req.Data[0:2])
	quantity := be16(req.Data[2:4])
	byteCount := req.Data[4]
	if len(req.Data) < int(5+byteCount) {
		return exceptionResponse(req.Function, ExceptionIllegalDataValue)
	}
	bits := unpackBits(req.Data[5:5+byteCount], int(quantity))
	if err := s.proxy.WriteMultipleCoils(address, bits); err != nil {
		return exceptionResponse(req.Function, ExceptionServerDeviceFailure)
	}
	return PDU{Function: req.Function, Data: append(putBE16(address), putBE16(quantity)...)}
}

func (s *Server) handleWriteMultipleRegisters(req PDU) PDU {
	if len(req.Data) < 5 {
		return exceptionResponse(req.Function, ExceptionIllegalDataValue)
	}
	address := be16(req.Data[0:2])
	quantity := be16(req.Data[2:4])
	byteCount := req.Data[4]
	if len(req.Data) < int(5+byteCount) || byteCount != byte(quantity)*2 {
		return exceptionResponse(req.Function, ExceptionIllegalDataValue)
	}
	values := make([]uint16, quantity)
	for i := range values {
		values[i] = be16(req.Data[5+2*i : 7+2*i])
	}
	if err := s.proxy.WriteMultipleRegisters(address, values); err != nil {
		return exceptionResponse(req.Function, ExceptionServerDeviceFailure)
	}
	return PDU{Function: req.Function, Data: append(putBE16(address), putBE16(quantity)...)}
}

func packBits(bits []bool) []byte {
	byteCount := (len(bits) + 7) / 8
	out := make([]byte, 1+byteCount)
	out[0] = byte(byteCount)
	for i, b := range bits {
		if b {
			out[1+i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

func unpackBits(data []byte, quantity int) []bool {
	bits := make([]bool, quantity)
	for i := range bits {
		bits[i] = data[i/8]&(1<<uint(i%8)) != 0
	}
	return bits
}

func packRegisters(values []uint16) []byte {
	out := make([]byte, 1+2*len(values))
	out[0] = byte(2 * len(values))
	for i, v := range values {
		copy(out[1+2*i:3+2*i], putBE16(v))
	}
	return out
}
