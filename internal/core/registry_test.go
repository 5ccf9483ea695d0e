package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/someonesays/roomserver/internal/capacity"
	"github.com/someonesays/roomserver/internal/domain"
)

type recordingReporter struct {
	mu     sync.Mutex
	counts []int
}

func (r *recordingReporter) ReportRoomCount(_ context.Context, _ domain.ServerID, count int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts = append(r.counts, count)
	return nil
}

func (r *recordingReporter) last() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.counts) == 0 {
		return 0, false
	}
	return r.counts[len(r.counts)-1], true
}

func newTestRegistry(maxRooms int, rep capacity.Reporter) *Registry {
	return NewRegistry("srv1", maxRooms, time.Second, fakeStore{}, rep)
}

func TestRegistry_CreateAndGet(t *testing.T) {
	rep := &recordingReporter{}
	reg := newTestRegistry(0, rep)

	room, created, err := reg.Create("srv1:room1")
	require.NoError(t, err)
	require.True(t, created)
	require.NotNil(t, room)

	got, ok := reg.Get("srv1:room1")
	require.True(t, ok)
	assert.Same(t, room, got)
	assert.Equal(t, 1, reg.Count())

	require.Eventually(t, func() bool {
		count, ok := rep.last()
		return ok && count == 1
	}, time.Second, 5*time.Millisecond)
}

func TestRegistry_CreateRaceReturnsExisting(t *testing.T) {
	reg := newTestRegistry(0, nil)

	first, created, err := reg.Create("srv1:room1")
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := reg.Create("srv1:room1")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, first, second)
	assert.Equal(t, 1, reg.Count())
}

func TestRegistry_CapacityEnforced(t *testing.T) {
	reg := newTestRegistry(2, nil)

	for _, id := range []domain.RoomID{"srv1:a", "srv1:b"} {
		_, _, err := reg.Create(id)
		require.NoError(t, err)
	}
	_, _, err := reg.Create("srv1:c")
	assert.ErrorIs(t, err, ErrAtCapacity)

	// Freed capacity is usable again.
	reg.Remove("srv1:a")
	_, created, err := reg.Create("srv1:c")
	require.NoError(t, err)
	assert.True(t, created)
}

func TestRegistry_RemovedRoomNotRetrievable(t *testing.T) {
	rep := &recordingReporter{}
	reg := newTestRegistry(0, rep)

	room, _, err := reg.Create("srv1:room1")
	require.NoError(t, err)
	sess := join(t, room, "alice")

	empty := room.Disconnect("alice", sess.ID())
	require.True(t, empty)
	reg.Remove(room.ID())

	_, ok := reg.Get("srv1:room1")
	assert.False(t, ok)
	assert.Equal(t, 0, reg.Count())
	require.Eventually(t, func() bool {
		count, ok := rep.last()
		return ok && count == 0
	}, time.Second, 5*time.Millisecond)
}

func TestRegistry_RemoveAbsentIsNoop(t *testing.T) {
	reg := newTestRegistry(0, nil)
	reg.Remove("srv1:ghost")
	assert.Equal(t, 0, reg.Count())
}

func TestRegistry_ClosedRoomRejectsLateJoin(t *testing.T) {
	reg := newTestRegistry(0, nil)
	room, _, err := reg.Create("srv1:room1")
	require.NoError(t, err)
	sess := join(t, room, "alice")
	require.True(t, room.Disconnect("alice", sess.ID()))

	// A join that raced the teardown sees the closed flag.
	late := &fakeSession{id: "conn-late"}
	joinErr := room.Join(domain.User{ID: "bob", DisplayName: "bob", Avatar: "a.png"}, late)
	require.NotNil(t, joinErr)
	assert.Equal(t, domain.CodeServersBusy, joinErr.Code)
}
