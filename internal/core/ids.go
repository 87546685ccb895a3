// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package core

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex
)

// ActorID is the stable identity of a participant for the whole session.
// It is only ever compared for equality and used as a map key.
type ActorID ulid.ULID

// NewActorID generates a new ActorID.
func NewActorID() ActorID {
	entropyLock.Lock()
	defer entropyLock.Unlock()
	return ActorID(ulid.MustNew(ulid.Timestamp(time.Now()), entropy))
}

// ParseActorID parses an ActorID from its canonical string form.
func ParseActorID(s string) (ActorID, error) {
	id, err := ulid.Parse(s)
	if err != nil {
		return ActorID{}, oops.Code("INVALID_ACTOR_ID").With("value", s).Wrap(err)
	}
	return ActorID(id), nil
}

// String returns the canonical ULID encoding.
func (id ActorID) String() string {
	return ulid.ULID(id).String()
}

// IsZero reports whether id is the zero value.
func (id ActorID) IsZero() bool {
	return ulid.ULID(id).IsZero()
}

// MarshalText implements encoding.TextMarshaler.
func (id ActorID) MarshalText() ([]byte, error) {
	//nolint:wrapcheck // ulid text encoding cannot fail for a fixed-size buffer
	return ulid.ULID(id).MarshalText()
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ActorID) UnmarshalText(data []byte) error {
	parsed, err := ParseActorID(string(data))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
