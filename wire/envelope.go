// Package wire defines the binary protocol: protobuf-encoded envelopes
// carried in frames of a 4-byte big-endian length prefix. The envelope is a
// command code, a sequence number echoed on responses, a unix-seconds
// timestamp and a one-of payload.
package wire

// Envelope is the top-level protocol message. Exactly one payload pointer is
// set; which one is implied by Cmd.
type Envelope struct {
	Cmd       Command
	Seq       uint64
	Timestamp uint64

	RegisterReq      *RegisterReq
	RegisterRes      *RegisterRes
	LoginReq         *LoginReq
	LoginRes         *LoginRes
	AddFriendReq     *AddFriendReq
	AddFriendRes     *AddFriendRes
	HandleFriendReq  *HandleFriendReq
	HandleFriendRes  *HandleFriendRes
	GetFriendListRes *GetFriendListRes
	P2PMsgReq        *P2PMessage
	MsgAck           *MessageAck
	SyncMsgsRes      *SyncMessagesRes
	FriendReqPush    *FriendReqPush
	FriendStatusPush *FriendStatusPush
	P2PMsgPush       *P2PMessage
}

type RegisterReq struct {
	Username string
	Password string
}

type RegisterRes struct {
	Success  bool
	UserID   uint64
	ErrorMsg string
}

type LoginReq struct {
	Username string
	Password string
}

type UserInfo struct {
	UserID   uint64
	Username string
	Status   UserStatus
}

type LoginRes struct {
	Success  bool
	Token    string
	UserInfo *UserInfo
	ErrorMsg string
}

type AddFriendReq struct {
	ReceiverID uint64
	VerifyMsg  string
}

type AddFriendRes struct {
	Success  bool
	ErrorMsg string
}

type HandleFriendReq struct {
	ReqID    uint64
	SenderID uint64
	Action   FriendAction
}

type HandleFriendRes struct {
	Success  bool
	SenderID uint64
	ErrorMsg string
}

type GetFriendListRes struct {
	Success  bool
	Friends  []*UserInfo
	ErrorMsg string
}

type P2PMessage struct {
	MsgID       uint64
	SenderID    uint64
	ReceiverID  uint64
	ContentType uint32
	Content     []byte
	Timestamp   uint64
}

type MessageAck struct {
	MsgID    uint64
	Success  bool
	RefSeq   uint64
	ErrorMsg string
}

type SyncMessagesRes struct {
	Success  bool
	Messages []*P2PMessage
	ErrorMsg string
}

type FriendReqPush struct {
	ReqID      uint64
	SenderID   uint64
	SenderName string
	VerifyMsg  string
	Timestamp  uint64
}

type FriendStatusPush struct {
	ReceiverID   uint64
	ReceiverName string
	Action       FriendAction
	Timestamp    uint64
}
