package model

// [USER] ACCOUNT ROW BACKED BY MYSQL im_user
type User struct {
	ID        uint64
	Username  string
	Password  string
	CreatedAt int64
}

//go:generate stringer -type=Presence
type Presence int16

const (
	PresenceOffline Presence = iota
	PresenceOnline
)
