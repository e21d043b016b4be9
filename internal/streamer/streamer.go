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

// Package streamer is a thin façade over an XML-ish element tree,
// reached through input/output iterators rather than direct tree
// manipulation, with JSON as a mechanical translation of the same tree.
package streamer

import (
	"io"

	"github.com/beevik/etree"

	"github.com/xapiens/rvpf/internal/rerror"
)

// Element is one node of the tree: a tag, its attributes, optional
// text, and its children.
type Element = etree.Element

// Validated is satisfied by a value decoded off an element tree that
// can check itself against a structural contract before being
// accepted.
type Validated interface {
	Validate() error
}

// Streamer wraps one parsed or freshly built document.
type Streamer struct {
	doc *etree.Document
}

// New starts an empty streamer for building a document to emit.
func New() *Streamer {
	doc := etree.NewDocument()
	doc.Indent(2)
	return &Streamer{doc: doc}
}

// Parse reads a complete document from r.
func Parse(r io.Reader) (*Streamer, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, rerror.New(rerror.KindProtocol, "streamer: parse: "+err.Error())
	}
	return &Streamer{doc: doc}, nil
}

// Root returns the document's root element, or nil if none has been
// set.
func (s *Streamer) Root() *etree.Element { return s.doc.Root() }

// SetRoot replaces the document's root element.
func (s *Streamer) SetRoot(e *etree.Element) { s.doc.SetRoot(e) }

// CreateRoot starts a fresh root element named tag and returns it for
// population via an OutputIterator.
func (s *Streamer) CreateRoot(tag string) *etree.Element {
	return s.doc.CreateElement(tag)
}

// WriteTo emits the document to w.
func (s *Streamer) WriteTo(w io.Writer) (int64, error) {
	n, err := s.doc.WriteTo(w)
	if err != nil {
		return n, rerror.New(rerror.KindProtocol, "streamer: write: "+err.Error())
	}
	return n, nil
}

// ValidateIfValidated calls v.Validate when v implements Validated,
// else reports no error; it gives decoders a single uniform
// validation point regardless of the concrete type they produced.
func ValidateIfValidated(v any) error {
	if valid, ok := v.(Validated); ok {
		return valid.Validate()
	}
	return nil
}
