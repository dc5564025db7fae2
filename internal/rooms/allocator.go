package rooms

import "math/rand/v2"

// DefaultMaxAttempts bounds random sampling before the allocator scans.
const DefaultMaxAttempts = 100

// Allocator hands out room codes that do not collide with live rooms.
// It is not safe for concurrent use; the hub serialises calls.
type Allocator struct {
	store       *Store
	intn        func(n int) int
	maxAttempts int
}

// NewAllocator builds an allocator over store. A nil intn uses math/rand/v2.
func NewAllocator(store *Store, intn func(n int) int) *Allocator {
	if intn == nil {
		intn = rand.IntN
	}
	return &Allocator{store: store, intn: intn, maxAttempts: DefaultMaxAttempts}
}

// Allocate returns a free code and reserves it before returning.
func (a *Allocator) Allocate() (string, error) {
	code, err := a.find()
	if err != nil {
		return "", err
	}
	a.store.Reserve(code)
	return code, nil
}

// Peek returns a code that is free right now without reserving it.
func (a *Allocator) Peek() (string, error) {
	return a.find()
}

func (a *Allocator) find() (string, error) {
	for i := 0; i < a.maxAttempts; i++ {
		code := FormatCode(a.intn(CodeSpace))
		if !a.store.IsUsed(code) {
			return code, nil
		}
	}

	// Pathological collision run: walk the whole space from a random offset
	// so the result is bounded even when nearly every code is taken.
	start := a.intn(CodeSpace)
	for i := 0; i < CodeSpace; i++ {
		code := FormatCode((start + i) % CodeSpace)
		if !a.store.IsUsed(code) {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}
