package model

//go:generate stringer -type=FriendStatus
type FriendStatus int16

// [WIRE_COMPAT] VALUES ARE PERSISTED IN im_friend.status; DO NOT RENUMBER
const (
	FriendPending FriendStatus = iota
	FriendAccepted
	FriendRejected
)

// [FRIEND] DIRECTED EDGE IN MYSQL im_friend; AN ACCEPTED FRIENDSHIP IS
// STORED AS TWO EDGES, ONE PER DIRECTION
type Friend struct {
	ID         uint64
	UserID     uint64
	FriendID   uint64
	Status     FriendStatus
	VerifyMsg  string
	CreatedAt  int64
	UpdatedAt  int64
}

// FriendRequest is the pending-edge view replayed to a user at login.
type FriendRequest struct {
	ReqID      uint64
	SenderID   uint64
	SenderName string
	VerifyMsg  string
	CreatedAt  int64
}
