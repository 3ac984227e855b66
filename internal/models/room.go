package models

import (
	"fmt"
	"strings"
)

// RoomKind distinguishes the delivery scopes a message can target.
type RoomKind string

const (
	RoomBroadcast RoomKind = "broadcast"
	RoomClass     RoomKind = "class"
	RoomDirect    RoomKind = "direct"

	// BroadcastRoomID is the reserved identifier of the community-wide room.
	BroadcastRoomID = "public"

	// unassignedSegment stands in for a missing stage or grade so a user
	// without a class assignment still resolves to a stable room key.
	unassignedSegment = "unassigned"

	classKeySeparator = "_"

	directPairSeparator = ":"
)

// RoomKey is a validated room identifier. Constructing keys through the
// functions below prevents a raw user id from colliding with a composed
// class-room key.
type RoomKey struct {
	kind RoomKind
	id   string
}

// BroadcastRoom returns the key of the community-wide room.
func BroadcastRoom() RoomKey {
	return RoomKey{kind: RoomBroadcast, id: BroadcastRoomID}
}

// ClassRoom composes the key for a (stage, grade) class room. Empty
// components resolve to a stable "unassigned" segment rather than failing.
func ClassRoom(stage, grade string) RoomKey {
	stage = strings.TrimSpace(stage)
	grade = strings.TrimSpace(grade)
	if stage == "" {
		stage = unassignedSegment
	}
	if grade == "" {
		grade = unassignedSegment
	}
	return RoomKey{kind: RoomClass, id: stage + classKeySeparator + grade}
}

// DirectRoom returns the key of the one-to-one conversation with the given
// counterpart.
func DirectRoom(counterpartID string) (RoomKey, error) {
	counterpartID = strings.TrimSpace(counterpartID)
	if counterpartID == "" {
		return RoomKey{}, fmt.Errorf("direct room requires a counterpart id")
	}
	return RoomKey{kind: RoomDirect, id: counterpartID}, nil
}

// ParseRoomID classifies a raw room identifier by its shape: the reserved
// broadcast id, a composed class key, or a counterpart user id. Empty and
// padded identifiers are rejected.
func ParseRoomID(id string) (RoomKey, error) {
	id = strings.TrimSpace(id)
	switch {
	case id == "":
		return RoomKey{}, fmt.Errorf("empty room id")
	case id == BroadcastRoomID:
		return BroadcastRoom(), nil
	case strings.Contains(id, classKeySeparator):
		return RoomKey{kind: RoomClass, id: id}, nil
	default:
		return DirectRoom(id)
	}
}

// DirectPairKey folds the two participants of a direct conversation into a
// single order-independent key. Each party addresses the counterpart's id,
// but delivery and caching happen on the shared pair key so both sides of
// the conversation meet on one channel.
func DirectPairKey(a, b string) string {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if b < a {
		a, b = b, a
	}
	return a + directPairSeparator + b
}

// Kind returns the delivery scope of the key.
func (k RoomKey) Kind() RoomKind { return k.kind }

// ID returns the canonical room identifier messages are addressed to.
func (k RoomKey) ID() string { return k.id }

// IsZero reports whether the key was never constructed.
func (k RoomKey) IsZero() bool { return k.id == "" }

// ClassComponents splits a class key back into its stage and grade. The
// second return is false for non-class keys.
func (k RoomKey) ClassComponents() (stage, grade string, ok bool) {
	if k.kind != RoomClass {
		return "", "", false
	}
	parts := strings.SplitN(k.id, classKeySeparator, 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}
