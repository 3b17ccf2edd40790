// Package orderid mints the server-side order identifiers the settlement
// API treats as authoritative. Clients can never supply one for creation.
package orderid

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"
)

// randomBits is the width of the random suffix. 22 bits bounds the
// collision probability within a single millisecond across all instances.
const randomBits = 22

const randomMask = (1 << randomBits) - 1

// last is the highest identifier issued by this process. It is the floor
// for the next one, so ids are strictly unique in-process even when a
// burst lands many requests in the same millisecond.
var last atomic.Uint64

// Next returns a decimal-encoded identifier packing the wall-clock
// millisecond timestamp into the high bits and a crypto-random suffix into
// the low bits, so identifiers sort by creation time. Safe for concurrent
// use; ids never repeat within a process and collide across instances
// only if two pick the same random suffix in the same millisecond.
func Next() string {
	for {
		var buf [4]byte
		if _, err := rand.Read(buf[:]); err != nil {
			// crypto/rand failing means the platform entropy source is
			// broken; there is no safe fallback for an anti-guessing id.
			panic(fmt.Sprintf("orderid: crypto/rand unavailable: %v", err))
		}
		random := uint64(binary.BigEndian.Uint32(buf[:])) & randomMask

		millis := uint64(time.Now().UnixMilli())
		candidate := millis<<randomBits | random

		prev := last.Load()
		if candidate <= prev {
			candidate = prev + 1
		}
		if last.CompareAndSwap(prev, candidate) {
			return strconv.FormatUint(candidate, 10)
		}
	}
}

// Timestamp recovers the embedded creation time from an identifier. Used
// for audit trails and tests; the pipeline itself never decodes ids.
func Timestamp(id string) (time.Time, error) {
	v, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed order id %q: %w", id, err)
	}
	return time.UnixMilli(int64(v >> randomBits)), nil
}
