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

package binding

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xapiens/rvpf/internal/uuid"
)

func TestTablePutAndTranslate(t *testing.T) {
	tbl := NewTable()
	client := uuid.New()
	server := uuid.New()
	tbl.Put(Point{Name: "pressure.1", ClientUUID: client, ServerUUID: server})

	got, ok := tbl.ByClient(client)
	require.True(t, ok)
	require.Equal(t, server, got.ServerUUID)

	back, ok := tbl.ToClient(server)
	require.True(t, ok)
	require.Equal(t, client, back)
}

func TestTableUnresolvedBindingNotInServerMap(t *testing.T) {
	tbl := NewTable()
	client := uuid.New()
	tbl.Put(Point{Name: "pressure.1", ClientUUID: client})

	_, ok := tbl.ToServer(client)
	require.False(t, ok)
}
