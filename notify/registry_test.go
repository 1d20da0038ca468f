package notify

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryRegisterAndSnapshot(t *testing.T) {
	r := NewRegistry()

	a := newConn("user-1", "pro", nil)
	b := newConn("user-1", "pro", nil)
	c := newConn("user-2", "ultra", nil)

	r.Register(a)
	r.Register(b)
	r.Register(c)

	assert.Equal(t, 3, r.Count())
	assert.Equal(t, 2, r.IdentityCount())
	assert.Len(t, r.Snapshot("user-1"), 2)
	assert.Len(t, r.Snapshot("user-2"), 1)
}

func TestRegistrySnapshotUnknownIdentity(t *testing.T) {
	r := NewRegistry()
	assert.Empty(t, r.Snapshot("nobody"))
}

func TestRegistryUnregisterPrunesEmptyIdentity(t *testing.T) {
	r := NewRegistry()
	c := newConn("user-1", "pro", nil)

	r.Register(c)
	assert.Equal(t, 1, r.IdentityCount())

	r.Unregister(c)
	assert.Equal(t, 0, r.IdentityCount(), "identity with zero connections is pruned")
	assert.Equal(t, 0, r.Count())
}

func TestRegistryUnregisterIsIdempotent(t *testing.T) {
	r := NewRegistry()
	c := newConn("user-1", "pro", nil)

	r.Register(c)
	r.Unregister(c)
	r.Unregister(c)
	r.Unregister(newConn("never-registered", "pro", nil))

	assert.Equal(t, 0, r.Count())
}

func TestRegistryUnregisterLeavesSiblings(t *testing.T) {
	r := NewRegistry()
	a := newConn("user-1", "pro", nil)
	b := newConn("user-1", "pro", nil)

	r.Register(a)
	r.Register(b)
	r.Unregister(a)

	remaining := r.Snapshot("user-1")
	assert.Len(t, remaining, 1)
	assert.Same(t, b, remaining[0])
}

func TestRegistryAll(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 5; i++ {
		r.Register(newConn(fmt.Sprintf("user-%d", i%2), "pro", nil))
	}
	assert.Len(t, r.All(), 5)
}

func TestRegistryConcurrentMutation(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			identity := fmt.Sprintf("user-%d", i%3)
			for j := 0; j < 50; j++ {
				c := newConn(identity, "pro", nil)
				r.Register(c)
				r.Snapshot(identity)
				r.Unregister(c)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, r.Count())
	assert.Equal(t, 0, r.IdentityCount())
}
