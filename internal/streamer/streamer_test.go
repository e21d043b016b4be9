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

package streamer

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var rerrorNegativeSize = errors.New("streamer: negative batch size")

func TestParseWriteRoundTrip(t *testing.T) {
	s, err := Parse(strings.NewReader(`<point uuid="abc"><value>42</value></point>`))
	require.NoError(t, err)
	root := s.Root()
	require.NotNil(t, root)
	require.Equal(t, "point", root.Tag)
	require.Equal(t, "abc", root.SelectAttrValue("uuid", ""))
}

func TestInputIteratorNextSkip(t *testing.T) {
	s, err := Parse(strings.NewReader(`<batch><a/><b/><c/></batch>`))
	require.NoError(t, err)
	it := NewInputIterator(s.Root())

	first, ok := it.Next()
	require.True(t, ok)
	require.Equal(t, "a", first.Tag)

	it.Skip(1)
	require.Equal(t, 1, it.Remaining())

	third, ok := it.Next()
	require.True(t, ok)
	require.Equal(t, "c", third.Tag)

	_, ok = it.Next()
	require.False(t, ok)
}

func TestOutputIteratorBuildsChildren(t *testing.T) {
	s := New()
	root := s.CreateRoot("batch")
	out := NewOutputIterator(root)
	out.Next("a").CreateAttr("id", "1")
	out.Next("b").SetText("hello")

	require.Len(t, root.ChildElements(), 2)
	require.Equal(t, "1", root.ChildElements()[0].SelectAttrValue("id", ""))
	require.Equal(t, "hello", root.ChildElements()[1].Text())
}

func TestToJSONLeafElementIsText(t *testing.T) {
	s, err := Parse(strings.NewReader(`<value>42</value>`))
	require.NoError(t, err)
	require.Equal(t, "42", ToJSON(s.Root()))
}

func TestToJSONAttributesAndRepeatedChildren(t *testing.T) {
	s, err := Parse(strings.NewReader(`<point uuid="abc"><tag>a</tag><tag>b</tag></point>`))
	require.NoError(t, err)
	got := ToJSON(s.Root())
	want := map[string]any{
		"uuid": "abc",
		"tag":  []any{"a", "b"},
	}
	require.Equal(t, want, got)
}

func TestFromJSONRoundTripsScalarsAndArrays(t *testing.T) {
	value := map[string]any{
		"uuid": "abc",
		"tag":  []any{"a", "b"},
	}
	e := FromJSON("point", value)
	require.Equal(t, "abc", e.SelectAttrValue("uuid", ""))
	tags := e.SelectElements("tag")
	require.Len(t, tags, 2)
	require.Equal(t, "a", tags[0].Text())
	require.Equal(t, "b", tags[1].Text())
}

type boundedBatch struct {
	size int
}

func (b boundedBatch) Validate() error {
	if b.size < 0 {
		return rerrorNegativeSize
	}
	return nil
}

func TestValidateIfValidatedSkipsNonValidatedValues(t *testing.T) {
	require.NoError(t, ValidateIfValidated(42))
	require.NoError(t, ValidateIfValidated(boundedBatch{size: 3}))
	require.Error(t, ValidateIfValidated(boundedBatch{size: -1}))
}
