package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type staticDirectory []string

func (d staticDirectory) Usernames() []string {
	return d
}

func TestRegistry_Snapshot(t *testing.T) {
	reg := NewRegistry(staticDirectory{"Ann", "Bob", "Yahyo"})

	snapshot := reg.Snapshot()
	assert.Len(t, snapshot, 3, "expected snapshot to cover every known username")
	for name, online := range snapshot {
		assert.Falsef(t, online, "expected %q to be offline by default", name)
	}

	s := &Session{id: "conn-1"}
	reg.Register("Ann", s)

	snapshot = reg.Snapshot()
	assert.True(t, snapshot["Ann"], "expected Ann to be online after register")
	assert.False(t, snapshot["Bob"], "expected Bob to remain offline")
	assert.Len(t, snapshot, 3, "expected snapshot to stay total over known usernames")
}

func TestRegistry_RegisterLookup(t *testing.T) {
	reg := NewRegistry(staticDirectory{"Ann"})

	assert.Nil(t, reg.Lookup("Ann"), "expected no session before register")
	assert.False(t, reg.IsOnline("Ann"))

	s := &Session{id: "conn-1"}
	reg.Register("Ann", s)

	assert.Equal(t, s, reg.Lookup("Ann"), "expected lookup to return registered session")
	assert.True(t, reg.IsOnline("Ann"))
}

func TestRegistry_Unregister(t *testing.T) {
	t.Run("removes matching handle", func(t *testing.T) {
		reg := NewRegistry(staticDirectory{"Ann"})
		s := &Session{id: "conn-1"}
		reg.Register("Ann", s)

		assert.True(t, reg.Unregister("Ann", s), "expected unregister to report removal")
		assert.False(t, reg.IsOnline("Ann"), "expected Ann to be offline after unregister")
	})

	t.Run("stale handle does not evict newer login", func(t *testing.T) {
		reg := NewRegistry(staticDirectory{"Ann"})

		stale := &Session{id: "conn-old"}
		reg.Register("Ann", stale)

		fresh := &Session{id: "conn-new"}
		reg.Register("Ann", fresh)

		assert.False(t, reg.Unregister("Ann", stale), "expected stale unregister to be a no-op")
		assert.True(t, reg.IsOnline("Ann"), "expected Ann to remain online")
		assert.Equal(t, fresh, reg.Lookup("Ann"), "expected the newer session to stay registered")
	})

	t.Run("unknown user", func(t *testing.T) {
		reg := NewRegistry(staticDirectory{"Ann"})
		assert.False(t, reg.Unregister("Ann", &Session{id: "conn-1"}))
	})
}
