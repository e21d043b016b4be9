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

// Package modbus implements the Modbus client and server connection
// state machines, PDU framing and the TCP/serial transports.
package modbus

// FunctionCode identifies the operation a request/response PDU carries.
// The high bit (0x80) marks an error response.
type FunctionCode byte

const (
	FuncReadCoils              FunctionCode = 1
	FuncReadDiscreteInputs     FunctionCode = 2
	FuncReadHoldingRegisters   FunctionCode = 3
	FuncReadInputRegisters     FunctionCode = 4
	FuncWriteSingleCoil        FunctionCode = 5
	FuncWriteSingleRegister    FunctionCode = 6
	FuncWriteMultipleCoils     FunctionCode = 15
	FuncWriteMultipleRegisters FunctionCode = 16
	FuncMaskWriteRegister      FunctionCode = 22
	FuncWriteReadMultiple      FunctionCode = 23

	errorBit FunctionCode = 0x80
)

// IsError reports whether fc is an error-response function code.
func (fc FunctionCode) IsError() bool { return fc&errorBit != 0 }

// AsError returns fc with the error bit set.
func (fc FunctionCode) AsError() FunctionCode { return fc | errorBit }

// WithoutError strips the error bit, for matching a response's function
// code against the request it answers.
func (fc FunctionCode) WithoutError() FunctionCode { return fc &^ errorBit }

// IsReadOnly reports whether fc only reads registers/coils, used to
// reject reads against a write-only server connection.
func (fc FunctionCode) IsReadOnly() bool {
	switch fc {
	case FuncReadCoils, FuncReadDiscreteInputs, FuncReadHoldingRegisters, FuncReadInputRegisters:
		return true
	default:
		return false
	}
}

// ExceptionCode is a Modbus exception response body (one byte).
type ExceptionCode byte

const (
	ExceptionIllegalFunction     ExceptionCode = 1
	ExceptionIllegalDataAddress  ExceptionCode = 2
	ExceptionIllegalDataValue    ExceptionCode = 3
	ExceptionServerDeviceFailure ExceptionCode = 4
)

// TransactionState is the lifecycle state of one request/response pair.
type TransactionState int

const (
	StateQueued TransactionState = iota
	StateSent
	StateCompleted
	StateFailed
)

// Prefix carries the transport-specific framing that precedes a PDU:
// the MBAP transaction identifier over TCP, or the unit identifier over
// RTU/ASCII.
type Prefix struct {
	TransactionID uint16 // TCP only
	UnitID        byte   // RTU/ASCII (and echoed in the TCP MBAP header)
}

// PDU is one request or response protocol data unit.
type PDU struct {
	Function FunctionCode
	Data     []byte
}

// Transaction is a request/response pair tracked by a client
// connection.
type Transaction struct {
	Prefix   Prefix
	Request  PDU
	Response PDU
	State    TransactionState
	Done     chan error // closed (after setting err, if any) when State settles
}

// NewTransaction builds a queued transaction for request.
func NewTransaction(prefix Prefix, request PDU) *Transaction {
	return &Transaction{Prefix: prefix, Request: request, State: StateQueued, Done: make(chan error, 1)}
}

// complete marks the transaction done, delivering response or err to
// the waiter exactly once.
func (t *Transaction) complete(response PDU, err error) {
	t.Response = response
	if err != nil {
		t.State = StateFailed
	} else {
		t.State = StateCompleted
	}
	t.Done <- err
	close(t.Done)
}
