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

package cmd

import (
	"os"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"

	"github.com/xapiens/rvpf/internal/registry"
)

// loadRegistry builds a Registry from the binding file at path,
// replaying every uri->target pair through Bind. A missing file yields
// an empty registry, the way a fresh environment starts with nothing
// bound.
func loadRegistry(path string, private bool) (*registry.Registry, error) {
	reg := registry.New(private)

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return reg, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "registryctl: reading %q", path)
	}

	bindings := map[string]string{}
	if err := yaml.UnmarshalStrict(data, &bindings); err != nil {
		return nil, errors.Wrapf(err, "registryctl: parsing %q", path)
	}
	for uri, target := range bindings {
		if err := reg.Bind(uri, target); err != nil {
			return nil, errors.Wrapf(err, "registryctl: replaying binding %q", uri)
		}
	}
	return reg, nil
}

// saveBinding appends (or overwrites) one uri->target pair in the
// binding file at path.
func saveBinding(path, uri, target string) error {
	bindings := map[string]string{}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.UnmarshalStrict(data, &bindings); err != nil {
			return errors.Wrapf(err, "registryctl: parsing %q", path)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return errors.Wrapf(err, "registryctl: reading %q", path)
	}

	bindings[uri] = target

	data, err := yaml.Marshal(bindings)
	if err != nil {
		return errors.Wrap(err, "registryctl: encoding bindings")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "registryctl: writing %q", path)
	}
	return nil
}
