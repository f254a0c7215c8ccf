package model

import "fmt"

//go:generate stringer -type=ContentType
type ContentType int16

const (
	// [ZERO_VALUE_GUARD] WE START FROM 1 TO DISTINGUISH FROM UNINITIALIZED DATA
	ContentText ContentType = iota + 1
	ContentImage
	ContentFile
)

// [MESSAGE] CORE ENTITY REPRESENTING ONE PERSISTED CHAT MESSAGE
type Message struct {
	ID             uint64
	ConversationID string
	SenderID       uint64
	ReceiverID     uint64
	ContentType    ContentType
	Content        []byte
	CreatedAt      int64 // unix milliseconds
}

// ConversationID derives the shared conversation key for two users. Both
// directions of a chat map to the same key.
func ConversationID(a, b uint64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d_%d", a, b)
}
