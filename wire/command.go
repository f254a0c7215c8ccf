package wire

// Command identifies the envelope payload on the binary protocol.
type Command uint32

const (
	CmdUnknown Command = 0

	CmdRegisterReq      Command = 1
	CmdRegisterRes      Command = 2
	CmdLoginReq         Command = 3
	CmdLoginRes         Command = 4
	CmdAddFriendReq     Command = 5
	CmdAddFriendRes     Command = 6
	CmdHandleFriendReq  Command = 7
	CmdHandleFriendRes  Command = 8
	CmdGetFriendListReq Command = 9
	CmdGetFriendListRes Command = 10
	CmdP2PMsgReq        Command = 11
	CmdMsgAck           Command = 12
	CmdSyncMsgsReq      Command = 13
	CmdSyncMsgsRes      Command = 14
	CmdHeartbeat        Command = 15

	// Server-initiated pushes carry seq 0.
	CmdFriendReqPush    Command = 20
	CmdFriendStatusPush Command = 21
	CmdP2PMsgPush       Command = 22
)

var commandNames = map[Command]string{
	CmdUnknown:          "UNKNOWN",
	CmdRegisterReq:      "REGISTER_REQ",
	CmdRegisterRes:      "REGISTER_RES",
	CmdLoginReq:         "LOGIN_REQ",
	CmdLoginRes:         "LOGIN_RES",
	CmdAddFriendReq:     "ADD_FRIEND_REQ",
	CmdAddFriendRes:     "ADD_FRIEND_RES",
	CmdHandleFriendReq:  "HANDLE_FRIEND_REQ",
	CmdHandleFriendRes:  "HANDLE_FRIEND_RES",
	CmdGetFriendListReq: "GET_FRIEND_LIST_REQ",
	CmdGetFriendListRes: "GET_FRIEND_LIST_RES",
	CmdP2PMsgReq:        "P2P_MSG_REQ",
	CmdMsgAck:           "MSG_ACK",
	CmdSyncMsgsReq:      "SYNC_MSGS_REQ",
	CmdSyncMsgsRes:      "SYNC_MSGS_RES",
	CmdHeartbeat:        "HEARTBEAT",
	CmdFriendReqPush:    "FRIEND_REQ_PUSH",
	CmdFriendStatusPush: "FRIEND_STATUS_PUSH",
	CmdP2PMsgPush:       "P2P_MSG_PUSH",
}

func (c Command) String() string {
	if s, ok := commandNames[c]; ok {
		return s
	}
	return "UNKNOWN"
}

// ResponseFor maps a request command to its response command. Commands that
// have no response (heartbeat, pushes, responses themselves) map to
// CmdUnknown.
func ResponseFor(c Command) Command {
	switch c {
	case CmdRegisterReq:
		return CmdRegisterRes
	case CmdLoginReq:
		return CmdLoginRes
	case CmdAddFriendReq:
		return CmdAddFriendRes
	case CmdHandleFriendReq:
		return CmdHandleFriendRes
	case CmdGetFriendListReq:
		return CmdGetFriendListRes
	case CmdP2PMsgReq:
		return CmdMsgAck
	case CmdSyncMsgsReq:
		return CmdSyncMsgsRes
	default:
		return CmdUnknown
	}
}

// FriendAction is the verdict on a pending friend request.
type FriendAction uint32

const (
	ActionAccept FriendAction = 1
	ActionReject FriendAction = 2
)

// UserStatus mirrors the presence field on UserInfo.
type UserStatus uint32

const (
	UserStatusOffline UserStatus = 0
	UserStatusOnline  UserStatus = 1
)
