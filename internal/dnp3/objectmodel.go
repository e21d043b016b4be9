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

// Package dnp3 implements the DNP3 application-layer object model and
// outstation transport: a two-level group/variation
// taxonomy resolved through static lookup tables built at package
// init rather than through reflection, plus the internal-indications
// vector and the outstation/listener plumbing that ties updates from
// the store into unsolicited responses.
package dnp3

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/xapiens/rvpf/internal/rerror"
)

// GroupCategory classifies a range of DNP3 object group codes.
type GroupCategory int

const (
	CategoryAttributes GroupCategory = iota
	CategoryBinaryInput
	CategoryBinaryOutput
	CategoryCounter
	CategoryAnalogInput
	CategoryAnalogOutput
	CategoryTime
	CategoryClass
	CategoryFile
	CategoryDevice
	CategoryDataSet
	CategoryApplication
	CategoryAlternateNumeric
	CategoryOther
	CategorySecurity
)

// categoryRanges maps a group code to its category.
var categoryRanges = []struct {
	category   GroupCategory
	lo, hi     byte
}{
	{CategoryAttributes, 0, 0},
	{CategoryBinaryInput, 1, 9},
	{CategoryBinaryOutput, 10, 19},
	{CategoryCounter, 20, 29},
	{CategoryAnalogInput, 30, 39},
	{CategoryAnalogOutput, 40, 49},
	{CategoryTime, 50, 59},
	{CategoryClass, 60, 69},
	{CategoryFile, 70, 79},
	{CategoryDevice, 80, 82},
	{CategoryDataSet, 83, 89},
	{CategoryApplication, 90, 99},
	{CategoryAlternateNumeric, 100, 109},
	{CategoryOther, 110, 119},
	{CategorySecurity, 120, 129},
}

// CategoryForGroup classifies group code by the static range table.
func CategoryForGroup(group byte) (GroupCategory, error) {
	for _, r := range categoryRanges {
		if group >= r.lo && group <= r.hi {
			return r.category, nil
		}
	}
	return 0, rerror.New(rerror.KindProtocol, fmt.Sprintf("dnp3: unknown group code %d", group))
}

// Encoder/Decoder materialize and serialize one object variation's
// payload. Point values flow through Load/Dump as the typed `any`
// already used by internal/store.PointValue.
type Decoder func(buf []byte) (value any, consumed int, err error)
type Encoder func(value any) ([]byte, error)

// ObjectVariation is one (group, variation) leaf of the taxonomy.
// Variation 0 is the ANY wildcard: zero-length body, no codec.
type ObjectVariation struct {
	Group    byte
	Code     byte
	Title    string
	DataType string // e.g. "bool", "float32", "uint32"; empty for ANY
	Decode   Decoder
	Encode   Encoder
}

// IsAny reports whether this is the group's ANY (variation 0) entry.
func (v ObjectVariation) IsAny() bool { return v.Code == 0 }

// ObjectGroup is one concrete group: a code, a title and its defined
// variations (always including ANY at code 0).
type ObjectGroup struct {
	Category   GroupCategory
	Code       byte
	Title      string
	Variations map[byte]ObjectVariation
}

// groupTable is the static group-code lookup table built in init(),
// replacing a reflective enum scan; variations are looked up through
// each group's own Variations map.
var groupTable = map[byte]*ObjectGroup{}

// registerGroup installs a group with its ANY wildcard already
// present, then registers variations added via registerVariation.
func registerGroup(code byte, title string) *ObjectGroup {
	category, err := CategoryForGroup(code)
	if err != nil {
		panic(err)
	}
	g := &ObjectGroup{
		Category: category,
		Code:     code,
		Title:    title,
		Variations: map[byte]ObjectVariation{
			0: {Group: code, Code: 0, Title: "ANY"},
		},
	}
	groupTable[code] = g
	return g
}

func (g *ObjectGroup) registerVariation(code byte, title, dataType string, dec Decoder, enc Encoder) {
	g.Variations[code] = ObjectVariation{
		Group: g.Code, Code: code, Title: title, DataType: dataType, Decode: dec, Encode: enc,
	}
}

func init() {
	bi := registerGroup(1, "Binary Input")
	bi.registerVariation(1, "Packed Format", "bool", decodeBool, encodeBool)
	bi.registerVariation(2, "With Flags", "bool", decodeBool, encodeBool)

	bo := registerGroup(10, "Binary Output")
	bo.registerVariation(1, "Packed Format", "bool", decodeBool, encodeBool)
	bo.registerVariation(2, "Output Status With Flags", "bool", decodeBool, encodeBool)

	ctr := registerGroup(20, "Counter")
	ctr.registerVariation(1, "32-Bit With Flag", "uint32", decodeUint32, encodeUint32)
	ctr.registerVariation(2, "16-Bit With Flag", "uint16", decodeUint16, encodeUint16)

	ai := registerGroup(30, "Analog Input")
	ai.registerVariation(1, "32-Bit With Flag", "int32", decodeInt32, encodeInt32)
	ai.registerVariation(5, "32-Bit Float With Flag", "float32", decodeFloat32, encodeFloat32)

	ao := registerGroup(40, "Analog Output")
	ao.registerVariation(1, "32-Bit With Flag", "int32", decodeInt32, encodeInt32)
	ao.registerVariation(3, "32-Bit Float With Flag", "float32", decodeFloat32, encodeFloat32)

	registerGroup(50, "Time and Date")
	registerGroup(60, "Class Objects")
}

// ObjectGroupFor resolves a group code to its descriptor.
func ObjectGroupFor(group byte) (*ObjectGroup, error) {
	g, ok := groupTable[group]
	if !ok {
		return nil, rerror.New(rerror.KindProtocol, fmt.Sprintf("dnp3: unregistered group %d", group))
	}
	return g, nil
}

// ObjectVariationFor resolves (group, variation) to its descriptor.
func ObjectVariationFor(group, variation byte) (ObjectVariation, error) {
	g, err := ObjectGroupFor(group)
	if err != nil {
		return ObjectVariation{}, err
	}
	v, ok := g.Variations[variation]
	if !ok {
		return ObjectVariation{}, rerror.New(rerror.KindProtocol, fmt.Sprintf("dnp3: group %d has no variation %d", group, variation))
	}
	return v, nil
}

// NewObjectInstance materializes a codec invocation pair for round
// tripping v's payload: Decode(buf) loads a value, Encode(value) dumps
// it back out. The ANY variation has neither and always round-trips a
// zero-length body.
func NewObjectInstance(v ObjectVariation) (load func([]byte) (any, int, error), dump func(any) ([]byte, error)) {
	if v.IsAny() {
		return func([]byte) (any, int, error) { return nil, 0, nil },
			func(any) ([]byte, error) { return nil, nil }
	}
	return v.Decode, v.Encode
}

func decodeBool(buf []byte) (any, int, error) {
	if len(buf) < 1 {
		return nil, 0, rerror.New(rerror.KindProtocol, "dnp3: short buffer for bool")
	}
	return buf[0]&0x01 != 0, 1, nil
}

func encodeBool(value any) ([]byte, error) {
	b, ok := value.(bool)
	if !ok {
		return nil, rerror.New(rerror.KindProtocol, "dnp3: value is not bool")
	}
	if b {
		return []byte{1}, nil
	}
	return []byte{0}, nil
}

func decodeUint16(buf []byte) (any, int, error) {
	if len(buf) < 2 {
		return nil, 0, rerror.New(rerror.KindProtocol, "dnp3: short buffer for uint16")
	}
	return binary.LittleEndian.Uint16(buf), 2, nil
}

func encodeUint16(value any) ([]byte, error) {
	v, ok := value.(uint16)
	if !ok {
		return nil, rerror.New(rerror.KindProtocol, "dnp3: value is not uint16")
	}
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, v)
	return buf, nil
}

func decodeUint32(buf []byte) (any, int, error) {
	if len(buf) < 4 {
		return nil, 0, rerror.New(rerror.KindProtocol, "dnp3: short buffer for uint32")
	}
	return binary.LittleEndian.Uint32(buf), 4, nil
}

func encodeUint32(value any) ([]byte, error) {
	v, ok := value.(uint32)
	if !ok {
		return nil, rerror.New(rerror.KindProtocol, "dnp3: value is not uint32")
	}
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, v)
	return buf, nil
}

func decodeInt32(buf []byte) (any, int, error) {
	if len(buf) < 4 {
		return nil, 0, rerror.New(rerror.KindProtocol, "dnp3: short buffer for int32")
	}
	return int32(binary.LittleEndian.Uint32(buf)), 4, nil
}

func encodeInt32(value any) ([]byte, error) {
	v, ok := value.(int32)
	if !ok {
		return nil, rerror.New(rerror.KindProtocol, "dnp3: value is not int32")
	}
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(v))
	return buf, nil
}

func decodeFloat32(buf []byte) (any, int, error) {
	if len(buf) < 4 {
		return nil, 0, rerror.New(rerror.KindProtocol, "dnp3: short buffer for float32")
	}
	bits := binary.LittleEndian.Uint32(buf)
	return math.Float32frombits(bits), 4, nil
}

func encodeFloat32(value any) ([]byte, error) {
	v, ok := value.(float32)
	if !ok {
		return nil, rerror.New(rerror.KindProtocol, "dnp3: value is not float32")
	}
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
	return buf, nil
}
