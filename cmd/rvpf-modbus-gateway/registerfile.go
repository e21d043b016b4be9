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

package main

import "sync"

// registerFile is a minimal in-memory modbus.ClientProxy: four flat
// address spaces, guarded by one mutex so writes commit atomically.
// It stands in for the point-value binding a gateway would otherwise
// maintain against live store data.
type registerFile struct {
	mu               sync.Mutex
	coils            map[uint16]bool
	discreteInputs   map[uint16]bool
	holdingRegisters map[uint16]uint16
	inputRegisters   map[uint16]uint16
}

func newRegisterFile() *registerFile {
	return &registerFile{
		coils:            map[uint16]bool{},
		discreteInputs:   map[uint16]bool{},
		holdingRegisters: map[uint16]uint16{},
		inputRegisters:   map[uint16]uint16{},
	}
}

func (r *registerFile) ReadCoils(address, quantity uint16) ([]bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]bool, quantity)
	for i := range out {
		out[i] = r.coils[address+uint16(i)]
	}
	return out, nil
}

func (r *registerFile) ReadDiscreteInputs(address, quantity uint16) ([]bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]bool, quantity)
	for i := range out {
		out[i] = r.discreteInputs[address+uint16(i)]
	}
	return out, nil
}

func (r *registerFile) ReadHoldingRegisters(address, quantity uint16) ([]uint16, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uint16, quantity)
	for i := range out {
		out[i] = r.holdingRegisters[address+uint16(i)]
	}
	return out, nil
}

func (r *registerFile) ReadInputRegisters(address, quantity uint16) ([]uint16, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uint16, quantity)
	for i := range out {
		out[i] = r.inputRegisters[address+uint16(i)]
	}
	return out, nil
}

func (r *registerFile) WriteSingleCoil(address uint16, value bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.coils[address] = value
	return nil
}

func (r *registerFile) WriteSingleRegister(address uint16, value uint16) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.holdingRegisters[address] = value
	return nil
}

func (r *registerFile) WriteMultipleCoils(address uint16, values []bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, v := range values {
		r.coils[address+uint16(i)] = v
	}
	return nil
}

func (r *registerFile) WriteMultipleRegisters(address uint16, values []uint16) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, v := range values {
		r.holdingRegisters[address+uint16(i)] = v
	}
	return nil
}
