package rooms_test

import (
	"testing"

	"duocall/backend/internal/models"
	"duocall/backend/internal/rooms"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seq returns an intn that replays values in order, then repeats the last.
func seq(values ...int) func(int) int {
	i := 0
	return func(n int) int {
		v := values[len(values)-1]
		if i < len(values) {
			v = values[i]
			i++
		}
		return v % n
	}
}

func TestAllocator_ZeroPadsAndReserves(t *testing.T) {
	store := rooms.NewStore()
	alloc := rooms.NewAllocator(store, seq(42))

	code, err := alloc.Allocate()

	require.NoError(t, err)
	assert.Equal(t, "0042", code)
	assert.True(t, store.IsUsed("0042"), "code must be reserved before it is returned")
}

func TestAllocator_ResamplesOnCollision(t *testing.T) {
	store := rooms.NewStore()
	store.Reserve("4821")
	alloc := rooms.NewAllocator(store, seq(4821, 4821, 7))

	code, err := alloc.Allocate()

	require.NoError(t, err)
	assert.Equal(t, "0007", code)
}

func TestAllocator_FallsBackToScanAfterMaxAttempts(t *testing.T) {
	store := rooms.NewStore()
	store.Reserve("1234")
	store.Reserve("1235")
	// Every sample collides, so the scan starting at 1234 must find 1236.
	alloc := rooms.NewAllocator(store, seq(1234))

	code, err := alloc.Allocate()

	require.NoError(t, err)
	assert.Equal(t, "1236", code)
}

func TestAllocator_ScanWrapsAround(t *testing.T) {
	store := rooms.NewStore()
	store.Reserve("9999")
	alloc := rooms.NewAllocator(store, seq(9999))

	code, err := alloc.Allocate()

	require.NoError(t, err)
	assert.Equal(t, "0000", code)
}

func TestAllocator_ExhaustedSpace(t *testing.T) {
	store := rooms.NewStore()
	for i := 0; i < rooms.CodeSpace; i++ {
		store.Reserve(rooms.FormatCode(i))
	}
	alloc := rooms.NewAllocator(store, nil)

	_, err := alloc.Allocate()

	assert.ErrorIs(t, err, rooms.ErrCodeSpaceExhausted)
}

func TestAllocator_NeverReturnsLiveCode(t *testing.T) {
	store := rooms.NewStore()
	alloc := rooms.NewAllocator(store, nil)

	seen := make(map[string]bool)
	for i := 0; i < 2000; i++ {
		code, err := alloc.Allocate()
		require.NoError(t, err)
		require.False(t, seen[code], "code %s handed out twice", code)
		seen[code] = true
		require.NoError(t, store.Create(&models.Room{Code: code}))
	}
	assert.Equal(t, 2000, store.Len())
}

func TestAllocator_PeekDoesNotReserve(t *testing.T) {
	store := rooms.NewStore()
	alloc := rooms.NewAllocator(store, seq(5))

	code, err := alloc.Peek()

	require.NoError(t, err)
	assert.Equal(t, "0005", code)
	assert.False(t, store.IsUsed(code))
}

func TestAllocator_ReleasedCodeIsAllocatableAgain(t *testing.T) {
	store := rooms.NewStore()
	alloc := rooms.NewAllocator(store, seq(4821))

	code, err := alloc.Allocate()
	require.NoError(t, err)
	require.NoError(t, store.Create(&models.Room{Code: code}))
	store.Delete(code)

	again, err := alloc.Allocate()
	require.NoError(t, err)
	assert.Equal(t, "4821", again)
}
