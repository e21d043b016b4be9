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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCRC16KnownVector(t *testing.T) {
	// Read Holding Registers request: unit 1, function 3, address 0,
	// quantity 10 -- a commonly cited Modbus RTU CRC test vector.
	frame := []byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x0A}
	crc := NewCRC16()
	crc.Update(frame)
	require.Equal(t, []byte{0xC5, 0xCD}, crc.Bytes())
}

func TestLRCZeroSumIsZero(t *testing.T) {
	lrc := NewLRC()
	lrc.Update([]byte{0, 0, 0})
	require.Equal(t, byte(0), lrc.Sum())
}

func TestLRCTwosComplementOfSum(t *testing.T) {
	lrc := NewLRC()
	lrc.Update([]byte{0x01, 0x02, 0x03})
	require.Equal(t, byte(0xFA), lrc.Sum())
}

func TestFunctionCodeErrorBit(t *testing.T) {
	fc := FuncReadHoldingRegisters
	errFC := fc.AsError()
	require.True(t, errFC.IsError())
	require.Equal(t, fc, errFC.WithoutError())
	require.False(t, fc.IsError())
}

func TestFunctionCodeIsReadOnly(t *testing.T) {
	require.True(t, FuncReadCoils.IsReadOnly())
	require.False(t, FuncWriteSingleCoil.IsReadOnly())
}
