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

package rtime

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnixEpochRaw(t *testing.T) {
	ts, err := FromString("1970-01-01T00:00:00Z")
	require.NoError(t, err)
	require.Equal(t, int64(0x007C95674BEB4000), ts.ToRaw())
}

func TestBoTEoTLiterals(t *testing.T) {
	require.Equal(t, "EoT", EndOfTime.String())
	require.Equal(t, "BoT", BeginningOfTime.String())

	got, err := FromString("BoT")
	require.NoError(t, err)
	require.Equal(t, BeginningOfTime, got)

	got, err = FromString("eot")
	require.NoError(t, err)
	require.Equal(t, EndOfTime, got)
}

func TestAfterBeforeInfinity(t *testing.T) {
	now, err := FromString("2026-07-31T12:00:00Z")
	require.NoError(t, err)
	require.Equal(t, EndOfTime, now.After(Infinity))
	require.Equal(t, BeginningOfTime, now.Before(Infinity))
}

func TestRoundTripRaw(t *testing.T) {
	cases := []int64{0, 1, -1, unixEpochRaw, maxRaw, minRaw, 123456789000}
	for _, raw := range cases {
		ts, err := FromRaw(raw)
		require.NoError(t, err)
		require.Equal(t, raw, ts.ToRaw())
	}
}

func TestRoundTripStrings(t *testing.T) {
	ts, err := FromString("2026-07-31T12:34:56.1234567Z")
	require.NoError(t, err)

	cases := []struct {
		name string
		s    string
	}{
		{"extended", ts.String()},
		{"full", ts.ToFullString()},
		{"base", ts.ToBaseString()},
		{"hex", ts.ToHexString()},
		{"ordinal", ts.ToOrdinalString()},
	}
	for _, c := range cases {
		got, err := FromString(c.s)
		require.NoError(t, err, c.name)
		require.Equal(t, ts, got, c.name)
	}
}

func TestFileNameRoundTrip(t *testing.T) {
	ts, err := FromString("2026-07-31T12:34:56.1234567Z")
	require.NoError(t, err)
	name := ts.ToFileName()
	require.Len(t, name, 23)

	got, err := FromString(name)
	require.NoError(t, err)
	require.Equal(t, ts, got)
}

func TestAfterBeforeIdentity(t *testing.T) {
	ts, err := FromString("2026-07-31T12:34:56Z")
	require.NoError(t, err)
	delta := Elapsed(5 * ticksPerSecond)
	require.Equal(t, ts, ts.After(delta).Before(delta))
}

func TestFloored(t *testing.T) {
	ts := Timestamp(107)
	w := Elapsed(10)
	f := ts.Floored(w)
	require.True(t, int64(f) <= int64(ts))
	require.True(t, int64(ts) < int64(f)+int64(w))

	neg := Timestamp(-3)
	fn := neg.Floored(w)
	require.True(t, int64(fn) <= int64(neg))
	require.True(t, int64(neg) < int64(fn)+int64(w))
}

func TestMaxMin(t *testing.T) {
	a, _ := FromString("2026-01-01T00:00:00Z")
	b, _ := FromString("2026-06-01T00:00:00Z")
	c, _ := FromString("2026-03-01T00:00:00Z")
	ts := []Timestamp{a, b, c}
	require.Equal(t, b, Max(ts))
	require.Equal(t, a, Min(ts))
}

func TestOutOfRange(t *testing.T) {
	_, err := FromRaw(maxRaw + 1)
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestBadFormat(t *testing.T) {
	_, err := FromString("not-a-timestamp")
	require.ErrorIs(t, err, ErrBadFormat)
}
