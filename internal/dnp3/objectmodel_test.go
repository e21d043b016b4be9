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

package dnp3

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCategoryForGroupRanges(t *testing.T) {
	cases := []struct {
		group byte
		want  GroupCategory
	}{
		{0, CategoryAttributes},
		{1, CategoryBinaryInput},
		{9, CategoryBinaryInput},
		{10, CategoryBinaryOutput},
		{30, CategoryAnalogInput},
		{120, CategorySecurity},
	}
	for _, c := range cases {
		got, err := CategoryForGroup(c.group)
		require.NoError(t, err)
		require.Equal(t, c.want, got)
	}
}

func TestCategoryForGroupUnknown(t *testing.T) {
	_, err := CategoryForGroup(250)
	require.Error(t, err)
}

func TestObjectVariationForAny(t *testing.T) {
	v, err := ObjectVariationFor(1, 0)
	require.NoError(t, err)
	require.True(t, v.IsAny())

	load, dump := NewObjectInstance(v)
	val, n, err := load([]byte{0xFF})
	require.NoError(t, err)
	require.Equal(t, 0, n)
	require.Nil(t, val)

	buf, err := dump(nil)
	require.NoError(t, err)
	require.Empty(t, buf)
}

func TestObjectVariationRoundTripFloat32(t *testing.T) {
	v, err := ObjectVariationFor(30, 5)
	require.NoError(t, err)

	encoded, err := v.Encode(float32(98.6))
	require.NoError(t, err)

	decoded, n, err := v.Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.InDelta(t, float32(98.6), decoded.(float32), 0.0001)
}

func TestObjectVariationUnknownGroup(t *testing.T) {
	_, err := ObjectVariationFor(255, 1)
	require.Error(t, err)
}
