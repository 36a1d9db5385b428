package server

import "strings"

// roomSeparator joins the two participant usernames into a room id.
// Usernames must not contain it; the credential store rejects such seeds.
const roomSeparator = "-"

// RoomId returns the canonical identifier of the two-party conversation
// between a and b. It is order-independent: RoomId(a, b) == RoomId(b, a).
// All access-control and history lookups key on this value, so it must stay
// deterministic.
func RoomId(a, b string) string {
	if a > b {
		a, b = b, a
	}

	return a + roomSeparator + b
}

// Participants splits a canonical room id back into its two usernames.
func Participants(room string) (string, string, bool) {
	a, b, ok := strings.Cut(room, roomSeparator)
	if !ok || a == "" || b == "" {
		return "", "", false
	}

	return a, b, true
}

// Counterpart returns the other participant of room, or "" when self is not
// a participant.
func Counterpart(room, self string) string {
	a, b, ok := Participants(room)
	if !ok {
		return ""
	}

	switch self {
	case a:
		return b
	case b:
		return a
	default:
		return ""
	}
}
