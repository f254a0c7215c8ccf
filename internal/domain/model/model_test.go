package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConversationIDIsSymmetric(t *testing.T) {
	assert.Equal(t, "3_12", ConversationID(12, 3))
	assert.Equal(t, "3_12", ConversationID(3, 12))
	assert.Equal(t, "5_5", ConversationID(5, 5))
}

func TestNewIDMonotonicAcrossMillis(t *testing.T) {
	a := NewID()
	time.Sleep(2 * time.Millisecond)
	b := NewID()
	assert.Less(t, a, b)
}

func TestIDTimeRoundTrip(t *testing.T) {
	before := time.Now().Truncate(time.Millisecond)
	id := NewID()
	at := IDTime(id)
	assert.False(t, at.Before(before))
	assert.WithinDuration(t, time.Now(), at, time.Second)
}

func TestNewIDTimeOrdering(t *testing.T) {
	// Ids minted in separate milliseconds sort by creation time.
	var ids []uint64
	for i := 0; i < 5; i++ {
		ids = append(ids, NewID())
		time.Sleep(2 * time.Millisecond)
	}
	for i := 1; i < len(ids); i++ {
		assert.Less(t, ids[i-1], ids[i])
	}
}

// These values live in im_friend.status rows written by earlier deployments.
func TestFriendStatusValuesAreStable(t *testing.T) {
	assert.Equal(t, FriendStatus(0), FriendPending)
	assert.Equal(t, FriendStatus(1), FriendAccepted)
	assert.Equal(t, FriendStatus(2), FriendRejected)
}
