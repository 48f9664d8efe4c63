// Package ids mints identifiers. Request and token ids are ULIDs so they sort
// by creation time in logs; user ids are random UUIDs.
package ids

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// TemporaryPasswordLength is the size of credentials issued at registration.
const TemporaryPasswordLength = 8

var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

// New returns a ULID, monotonic within the process.
func New() string {
	mu.Lock()
	defer mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// NewUserID returns the id assigned to a new identity user.
func NewUserID() string {
	return uuid.NewString()
}

// TemporaryPassword returns the leading hex block of a random UUID. It never
// contains a hyphen.
func TemporaryPassword() string {
	return uuid.NewString()[:TemporaryPasswordLength]
}
