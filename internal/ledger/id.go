package ledger

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"time"
)

// ID prefixes, one per event kind. IDs are client-generated so a batch can
// reference its own events without a round-trip.
const (
	prefixRun     = "run"
	prefixGroup   = "grp"
	prefixCall    = "cal"
	prefixOutcome = "out"
	prefixAct     = "act"
)

// newID builds a ledger id: type prefix, millisecond timestamp in base36,
// and a 16-hex-char random suffix.
func newID(prefix string) string {
	millis := strconv.FormatInt(time.Now().UnixMilli(), 36)

	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails when the OS entropy source is broken;
		// fall back to the nanosecond clock rather than panicking.
		nanos := time.Now().UnixNano()
		for i := range buf {
			buf[i] = byte(nanos >> (8 * i))
		}
	}

	return prefix + "_" + millis + hex.EncodeToString(buf)
}

// NewRunID returns a fresh issue-run id.
func NewRunID() string { return newID(prefixRun) }

// NewGroupID returns a fresh phase-group id.
func NewGroupID() string { return newID(prefixGroup) }

// NewCallID returns a fresh pipeline-run id.
func NewCallID() string { return newID(prefixCall) }

// NewOutcomeID returns a fresh outcome id.
func NewOutcomeID() string { return newID(prefixOutcome) }

// NewActID returns a fresh act id.
func NewActID() string { return newID(prefixAct) }
