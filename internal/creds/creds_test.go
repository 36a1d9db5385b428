package creds

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSeeds() []Seed {
	return []Seed{
		{Username: "Yahyo", Password: "Yahyo123", Avatar: "/avatars/yahyo.jpg"},
		{Username: "Fedya", Password: "Fedya123", Avatar: "/avatars/fedya.jpg"},
	}
}

func TestNewStore(t *testing.T) {
	t.Run("valid seeds", func(t *testing.T) {
		s, err := NewStore(testSeeds())
		require.NoError(t, err)
		assert.Equal(t, []string{"Yahyo", "Fedya"}, s.Usernames(), "expected usernames in seed order")
	})

	t.Run("empty username", func(t *testing.T) {
		_, err := NewStore([]Seed{{Username: "", Password: "pw"}})
		assert.Error(t, err, "expected an error for an empty username")
	})

	t.Run("username with room separator", func(t *testing.T) {
		_, err := NewStore([]Seed{{Username: "Ann-Bob", Password: "pw"}})
		assert.Error(t, err, "expected an error for a username containing a dash")
	})

	t.Run("duplicate username", func(t *testing.T) {
		_, err := NewStore([]Seed{
			{Username: "Yahyo", Password: "a"},
			{Username: "Yahyo", Password: "b"},
		})
		assert.Error(t, err, "expected an error for a duplicate username")
	})
}

func TestStore_Verify(t *testing.T) {
	s, err := NewStore(testSeeds())
	require.NoError(t, err)

	t.Run("correct password", func(t *testing.T) {
		user, ok := s.Verify("Yahyo", "Yahyo123")
		assert.True(t, ok, "expected verification to succeed")
		assert.Equal(t, "Yahyo", user.Username)
		assert.Equal(t, "/avatars/yahyo.jpg", user.Avatar)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, ok := s.Verify("Yahyo", "wrong")
		assert.False(t, ok, "expected verification to fail")
	})

	t.Run("unknown user", func(t *testing.T) {
		_, ok := s.Verify("Nobody", "Yahyo123")
		assert.False(t, ok, "expected verification to fail for an unknown user")
	})
}

func TestStore_UpdateAvatar(t *testing.T) {
	s, err := NewStore(testSeeds())
	require.NoError(t, err)

	user, err := s.UpdateAvatar("Fedya", "/avatars/new.jpg")
	assert.NoError(t, err)
	assert.Equal(t, "Fedya", user.Username)
	assert.Equal(t, "/avatars/new.jpg", user.Avatar)
	assert.Equal(t, "/avatars/new.jpg", s.Avatars()["Fedya"], "expected the directory to reflect the change")

	_, err = s.UpdateAvatar("Nobody", "/avatars/x.jpg")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Avatars(t *testing.T) {
	s, err := NewStore(testSeeds())
	require.NoError(t, err)

	avatars := s.Avatars()
	assert.Equal(t, map[string]string{
		"Yahyo": "/avatars/yahyo.jpg",
		"Fedya": "/avatars/fedya.jpg",
	}, avatars)
}

func TestLoadSeeds(t *testing.T) {
	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "users.json")
		content := `[{"username":"Yahyo","password":"Yahyo123","avatar":"/avatars/yahyo.jpg"}]`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		seeds, err := LoadSeeds(path)
		require.NoError(t, err)
		require.Len(t, seeds, 1)
		assert.Equal(t, "Yahyo", seeds[0].Username)
		assert.Equal(t, "Yahyo123", seeds[0].Password)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadSeeds(filepath.Join(t.TempDir(), "nope.json"))
		assert.Error(t, err)
	})

	t.Run("malformed json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "users.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

		_, err := LoadSeeds(path)
		assert.Error(t, err)
	})
}
