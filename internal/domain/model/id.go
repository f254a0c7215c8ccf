package model

import (
	"math/rand"
	"sync"
	"time"
)

// idEpochMS is 2024-01-01T00:00:00Z. Shifting the timestamp base keeps ids
// inside 64 bits for decades with 22 random bits to spare.
const idEpochMS = 1_704_067_200_000

var idRand = struct {
	sync.Mutex
	*rand.Rand
}{Rand: rand.New(rand.NewSource(time.Now().UnixNano()))}

// NewID returns a roughly time-ordered identifier: 42 bits of milliseconds
// since the epoch above, then 22 random bits. Collisions are possible within
// one millisecond; callers that insert ids retry once on a duplicate.
func NewID() uint64 {
	ms := uint64(time.Now().UnixMilli() - idEpochMS)
	idRand.Lock()
	r := uint64(idRand.Uint32()) & (1<<22 - 1)
	idRand.Unlock()
	return ms<<22 | r
}

// IDTime recovers the creation time embedded in an id.
func IDTime(id uint64) time.Time {
	return time.UnixMilli(int64(id>>22) + idEpochMS)
}
