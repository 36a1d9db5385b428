// Package creds holds the seeded credential directory. Users are created at
// startup, their plaintext seed passwords are hashed immediately and never
// retained.
package creds

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"privchat/internal/types"
)

var ErrNotFound = errors.New("user not found")

// Seed is one entry of the startup user list, read from a JSON file or the
// built-in defaults.
type Seed struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Avatar   string `json:"avatar"`
}

type user struct {
	username     string
	passwordHash []byte
	avatar       string
}

type Store struct {
	mu sync.RWMutex
	// order preserves the seed order for directory listings
	order []string
	users map[string]*user
}

func NewStore(seeds []Seed) (*Store, error) {
	s := &Store{
		users: make(map[string]*user, len(seeds)),
	}

	for _, seed := range seeds {
		if seed.Username == "" {
			return nil, fmt.Errorf("seed user with empty username")
		}
		// room ids are built by joining two usernames with "-"
		if strings.Contains(seed.Username, "-") {
			return nil, fmt.Errorf("username %q must not contain %q", seed.Username, "-")
		}
		if _, ok := s.users[seed.Username]; ok {
			return nil, fmt.Errorf("duplicate seed user %q", seed.Username)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(seed.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password for %q: %w", seed.Username, err)
		}

		s.users[seed.Username] = &user{
			username:     seed.Username,
			passwordHash: hash,
			avatar:       seed.Avatar,
		}
		s.order = append(s.order, seed.Username)
	}

	return s, nil
}

// LoadSeeds reads a JSON array of seed users from path.
func LoadSeeds(path string) ([]Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read users file: %w", err)
	}

	var seeds []Seed
	if err := json.Unmarshal(data, &seeds); err != nil {
		return nil, fmt.Errorf("parse users file: %w", err)
	}

	return seeds, nil
}

// Verify checks the password against the stored bcrypt hash. The comparison
// is constant-time, plaintext is never compared directly.
func (s *Store) Verify(username, password string) (types.User, bool) {
	s.mu.RLock()
	u, ok := s.users[username]
	s.mu.RUnlock()
	if !ok {
		return types.User{}, false
	}

	if err := bcrypt.CompareHashAndPassword(u.passwordHash, []byte(password)); err != nil {
		return types.User{}, false
	}

	return types.User{Username: u.username, Avatar: u.avatar}, true
}

func (s *Store) UpdateAvatar(username, avatar string) (types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[username]
	if !ok {
		return types.User{}, ErrNotFound
	}

	u.avatar = avatar
	return types.User{Username: u.username, Avatar: u.avatar}, nil
}

// Usernames returns every known username in seed order.
func (s *Store) Usernames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.order))
	copy(names, s.order)
	return names
}

func (s *Store) Avatars() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	avatars := make(map[string]string, len(s.users))
	for name, u := range s.users {
		avatars[name] = u.avatar
	}
	return avatars
}
