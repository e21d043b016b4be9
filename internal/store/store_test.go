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

package store_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xapiens/rvpf/internal/rerror"
	"github.com/xapiens/rvpf/internal/rtime"
	"github.com/xapiens/rvpf/internal/store"
	"github.com/xapiens/rvpf/internal/storetest"
	"github.com/xapiens/rvpf/internal/uuid"
)

func allRoles() store.RoleSet {
	return store.NewRoleSet(
		store.RoleInfo, store.RoleQuery, store.RoleListen,
		store.RoleUpdate, store.RolePurge, store.RoleDelete, store.RoleImpersonate,
	)
}

// bindOne binds a single point name and returns its client UUID.
func bindOne(t *testing.T, sess *store.StoreSession, name string) uuid.UUID {
	t.Helper()
	points, err := sess.GetPointBindings([]store.BindRequest{{Name: name}})
	require.NoError(t, err)
	require.Len(t, points, 1)
	return points[0].ClientUUID
}

func TestUpdateThenSelectRoundTrip(t *testing.T) {
	backend := storetest.New()
	sess := store.NewStoreSession(backend, "alice", allRoles())

	clientUUID := bindOne(t, sess, "p1")

	errs, err := sess.Update([]store.PointValue{{PointUUID: clientUUID, Value: 42}})
	require.NoError(t, err)
	require.Len(t, errs, 1)
	require.NoError(t, errs[0])

	results, err := sess.Select([]store.Query{{PointUUID: clientUUID}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Len(t, results[0].Values, 1)
	require.Equal(t, clientUUID, results[0].Values[0].PointUUID)
	require.Equal(t, 42, results[0].Values[0].Value)
}

func TestUpdateRequiresRoleForEachStateInBatch(t *testing.T) {
	backend := storetest.New()
	sess := store.NewStoreSession(backend, "alice", store.NewRoleSet(store.RoleUpdate))

	clientUUID := bindOne(t, sess, "p1")
	live := store.PointValue{PointUUID: clientUUID, Value: 1}
	deleted := store.PointValue{PointUUID: clientUUID, State: store.StateDeleted}

	_, err := sess.Update([]store.PointValue{live, deleted})
	require.Error(t, err)
	require.True(t, rerror.Is(err, rerror.KindUnauthorized))
}

func TestSubscribeReturnsLastValueThenIllegalStateOnRepeat(t *testing.T) {
	backend := storetest.New()
	sess := store.NewStoreSession(backend, "alice", allRoles())
	clientUUID := bindOne(t, sess, "p1")

	_, err := sess.Update([]store.PointValue{{PointUUID: clientUUID, Value: 1}})
	require.NoError(t, err)

	last, err := sess.Subscribe([]uuid.UUID{clientUUID})
	require.NoError(t, err)
	require.Len(t, last, 1)
	require.Equal(t, clientUUID, last[0].PointUUID)
	require.Equal(t, 1, last[0].Value)

	_, err = sess.Subscribe([]uuid.UUID{clientUUID})
	require.Error(t, err)
	require.True(t, rerror.Is(err, rerror.KindIllegalState))
	require.Equal(t, 1, backend.SubscribeCalls)
}

func TestSubscribeSkipsPointsWithNoValue(t *testing.T) {
	backend := storetest.New()
	sess := store.NewStoreSession(backend, "alice", allRoles())
	clientUUID := bindOne(t, sess, "p1")

	// p1 has never been updated: it is not recorded as subscribed and
	// nothing is forwarded to the backend.
	last, err := sess.Subscribe([]uuid.UUID{clientUUID})
	require.NoError(t, err)
	require.Empty(t, last)
	require.Equal(t, 0, backend.SubscribeCalls)

	// Since it was never recorded as subscribed, subscribing again is
	// not an IllegalState.
	_, err = sess.Update([]store.PointValue{{PointUUID: clientUUID, Value: 1}})
	require.NoError(t, err)
	last, err = sess.Subscribe([]uuid.UUID{clientUUID})
	require.NoError(t, err)
	require.Len(t, last, 1)
}

func TestDeliverBlocksUntilCommit(t *testing.T) {
	backend := storetest.New()
	sess := store.NewStoreSession(backend, "alice", allRoles())
	clientUUID := bindOne(t, sess, "p1")

	_, err := sess.Update([]store.PointValue{{PointUUID: clientUUID, Value: 1}})
	require.NoError(t, err)
	_, err = sess.Subscribe([]uuid.UUID{clientUUID})
	require.NoError(t, err)

	_, err = sess.Update([]store.PointValue{{PointUUID: clientUUID, Value: 7}})
	require.NoError(t, err)

	// Notify only appended to notified: deliver must not see it yet.
	notices, err := sess.Deliver(10, 50*time.Millisecond)
	require.NoError(t, err)
	require.Empty(t, notices)

	sess.Commit()

	notices, err = sess.Deliver(10, time.Second)
	require.NoError(t, err)
	require.Len(t, notices, 1)
	require.Equal(t, clientUUID, notices[0].PointUUID)
	require.Equal(t, 7, notices[0].Value)
}

func TestCommitIsAtomicAgainstConcurrentNotify(t *testing.T) {
	backend := storetest.New()
	sess := store.NewStoreSession(backend, "alice", allRoles())
	clientUUID := bindOne(t, sess, "p1")

	_, err := sess.Update([]store.PointValue{{PointUUID: clientUUID, Value: 1}})
	require.NoError(t, err)
	_, err = sess.Subscribe([]uuid.UUID{clientUUID})
	require.NoError(t, err)

	_, err = sess.Update([]store.PointValue{{PointUUID: clientUUID, Value: 2}})
	require.NoError(t, err)

	sess.Commit()

	// This notify happens after the commit above returned, so it must
	// land in notified, never directly in committed.
	_, err = sess.Update([]store.PointValue{{PointUUID: clientUUID, Value: 3}})
	require.NoError(t, err)

	notices, err := sess.Deliver(10, 50*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, notices, 1)
	require.Equal(t, 2, notices[0].Value)

	sess.Commit()
	notices, err = sess.Deliver(10, time.Second)
	require.NoError(t, err)
	require.Len(t, notices, 1)
	require.Equal(t, 3, notices[0].Value)
}

func TestInterruptUnblocksDeliver(t *testing.T) {
	backend := storetest.New()
	sess := store.NewStoreSession(backend, "alice", allRoles())

	done := make(chan []store.PointValue, 1)
	go func() {
		notices, _ := sess.Deliver(10, 0)
		done <- notices
	}()

	time.Sleep(20 * time.Millisecond)
	sess.Interrupt()

	select {
	case notices := <-done:
		require.Empty(t, notices)
	case <-time.After(time.Second):
		t.Fatal("Deliver did not unblock on Interrupt")
	}
}

func TestImpersonateRequiresRole(t *testing.T) {
	backend := storetest.New()
	sess := store.NewStoreSession(backend, "alice", store.NewRoleSet(store.RoleUpdate))

	err := sess.Impersonate("bob")
	require.Error(t, err)
	require.True(t, rerror.Is(err, rerror.KindUnauthorized))
}

func TestImpersonateCannotStack(t *testing.T) {
	backend := storetest.New()
	sess := store.NewStoreSession(backend, "alice", allRoles())

	require.NoError(t, sess.Impersonate("bob"))
	err := sess.Impersonate("carol")
	require.Error(t, err)
	require.True(t, rerror.Is(err, rerror.KindIllegalState))
}

func TestPurgeRequiresRole(t *testing.T) {
	backend := storetest.New()
	sess := store.NewStoreSession(backend, "alice", store.NewRoleSet(store.RoleInfo))
	clientUUID := bindOne(t, sess, "p1")

	_, err := sess.Purge([]uuid.UUID{clientUUID}, rtime.Interval{})
	require.Error(t, err)
	require.True(t, rerror.Is(err, rerror.KindUnauthorized))
}
