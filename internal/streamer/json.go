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
	"strconv"

	"github.com/beevik/etree"
)

// ToJSON mechanically translates an element into a JSON-ready value:
// attributes become named values, text becomes the empty-key value,
// and repeated child tag names collapse into an array. A leaf element
// with neither attributes nor children translates to its text
// directly rather than a one-field object.
func ToJSON(e *etree.Element) any {
	if len(e.Attr) == 0 && len(e.ChildElements()) == 0 {
		return e.Text()
	}

	obj := map[string]any{}
	for _, attr := range e.Attr {
		obj[attr.Key] = attr.Value
	}
	if text := e.Text(); text != "" {
		obj[""] = text
	}
	for _, child := range e.ChildElements() {
		value := ToJSON(child)
		if existing, ok := obj[child.Tag]; ok {
			if arr, isArray := existing.([]any); isArray {
				obj[child.Tag] = append(arr, value)
			} else {
				obj[child.Tag] = []any{existing, value}
			}
			continue
		}
		obj[child.Tag] = value
	}
	return obj
}

// FromJSON mechanically rebuilds an element tree under tag from a
// JSON-shaped value, inverting ToJSON for the cases it can invert
// without ambiguity: a map's scalar entries become attributes, its
// empty-key entry becomes text, a []any entry becomes one sibling
// child per item, and any other nested map becomes a single child.
// JSON carries no attribute/element distinction, so this is a
// reasonable reconstruction rather than a lossless inverse.
func FromJSON(tag string, value any) *etree.Element {
	e := etree.NewElement(tag)
	switch v := value.(type) {
	case map[string]any:
		for key, val := range v {
			if key == "" {
				if text, ok := val.(string); ok {
					e.SetText(text)
				}
				continue
			}
			if arr, ok := val.([]any); ok {
				for _, item := range arr {
					e.AddChild(FromJSON(key, item))
				}
				continue
			}
			if s, ok := scalarString(val); ok {
				e.CreateAttr(key, s)
			} else {
				e.AddChild(FromJSON(key, val))
			}
		}
	case string:
		e.SetText(v)
	default:
		if s, ok := scalarString(value); ok {
			e.SetText(s)
		}
	}
	return e
}

func scalarString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(x), true
	case nil:
		return "", true
	default:
		return "", false
	}
}
