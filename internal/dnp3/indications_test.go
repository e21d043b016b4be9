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

func TestInternalIndicationsStringJoinsSetBitsOnly(t *testing.T) {
	v := NewInternalIndications(IndicationClass1Events, IndicationNeedTime)
	s := v.String()
	require.Contains(t, s, "Class1Events")
	require.Contains(t, s, "NeedTime")
	require.NotContains(t, s, "Broadcast")
	require.False(t, v.HasBroadcast())
}

func TestInternalIndicationsSetClear(t *testing.T) {
	v := NewInternalIndications(IndicationDeviceRestart)
	require.True(t, v.Get(IndicationDeviceRestart))
	v = v.Set(IndicationDeviceRestart, false)
	require.False(t, v.Get(IndicationDeviceRestart))
}

func TestInternalIndicationsMerge(t *testing.T) {
	a := NewInternalIndications(IndicationClass1Events)
	b := NewInternalIndications(IndicationClass2Events)
	merged := a.Merge(b)
	require.True(t, merged.Get(IndicationClass1Events))
	require.True(t, merged.Get(IndicationClass2Events))
}
