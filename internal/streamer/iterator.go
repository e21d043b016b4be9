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

import "github.com/beevik/etree"

// InputIterator walks a parent element's children one at a time,
// without exposing the backing slice.
type InputIterator struct {
	children []*etree.Element
	pos      int
}

// NewInputIterator positions an iterator at the first child of parent.
func NewInputIterator(parent *etree.Element) *InputIterator {
	return &InputIterator{children: parent.ChildElements()}
}

// Next returns the current child and advances, or reports false once
// the children are exhausted.
func (it *InputIterator) Next() (*etree.Element, bool) {
	if it.pos >= len(it.children) {
		return nil, false
	}
	e := it.children[it.pos]
	it.pos++
	return e, true
}

// Skip advances past n children without returning them, clamped to the
// number remaining.
func (it *InputIterator) Skip(n int) {
	it.pos += n
	if it.pos > len(it.children) {
		it.pos = len(it.children)
	}
}

// Remaining reports how many children have not yet been returned by
// Next.
func (it *InputIterator) Remaining() int { return len(it.children) - it.pos }

// OutputIterator appends children to a parent element one at a time,
// mirroring InputIterator's next/skip shape on the write side.
type OutputIterator struct {
	parent  *etree.Element
	skipped int
}

// NewOutputIterator builds an iterator that appends children to
// parent.
func NewOutputIterator(parent *etree.Element) *OutputIterator {
	return &OutputIterator{parent: parent}
}

// Next creates and appends a new child element named tag, returning it
// for the caller to populate.
func (it *OutputIterator) Next(tag string) *etree.Element {
	return it.parent.CreateElement(tag)
}

// Skip leaves a gap of n positions, recorded for callers that need a
// stable index alongside the produced children (e.g. error reporting
// against a fixed schema position).
func (it *OutputIterator) Skip(n int) { it.skipped += n }

// Skipped reports the total gap left by Skip calls so far.
func (it *OutputIterator) Skipped() int { return it.skipped }
