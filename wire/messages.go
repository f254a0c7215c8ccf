package wire

import "google.golang.org/protobuf/encoding/protowire"

func appendRegisterReq(b []byte, m *RegisterReq) []byte {
	b = appendStringField(b, 1, m.Username)
	b = appendStringField(b, 2, m.Password)
	return b
}

func unmarshalRegisterReq(data []byte) (*RegisterReq, error) {
	m := &RegisterReq{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) error {
		switch num {
		case 1:
			v, err := consumeBytes(typ, b)
			m.Username = string(v)
			return err
		case 2:
			v, err := consumeBytes(typ, b)
			m.Password = string(v)
			return err
		}
		return nil
	})
	return m, err
}

func appendRegisterRes(b []byte, m *RegisterRes) []byte {
	b = appendBoolField(b, 1, m.Success)
	b = appendVarintField(b, 2, m.UserID)
	b = appendStringField(b, 3, m.ErrorMsg)
	return b
}

func unmarshalRegisterRes(data []byte) (*RegisterRes, error) {
	m := &RegisterRes{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) error {
		switch num {
		case 1:
			v, err := consumeVarint(typ, b)
			m.Success = v != 0
			return err
		case 2:
			v, err := consumeVarint(typ, b)
			m.UserID = v
			return err
		case 3:
			v, err := consumeBytes(typ, b)
			m.ErrorMsg = string(v)
			return err
		}
		return nil
	})
	return m, err
}

func appendLoginReq(b []byte, m *LoginReq) []byte {
	b = appendStringField(b, 1, m.Username)
	b = appendStringField(b, 2, m.Password)
	return b
}

func unmarshalLoginReq(data []byte) (*LoginReq, error) {
	m := &LoginReq{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) error {
		switch num {
		case 1:
			v, err := consumeBytes(typ, b)
			m.Username = string(v)
			return err
		case 2:
			v, err := consumeBytes(typ, b)
			m.Password = string(v)
			return err
		}
		return nil
	})
	return m, err
}

func appendUserInfo(b []byte, m *UserInfo) []byte {
	b = appendVarintField(b, 1, m.UserID)
	b = appendStringField(b, 2, m.Username)
	b = appendVarintField(b, 3, uint64(m.Status))
	return b
}

func unmarshalUserInfo(data []byte) (*UserInfo, error) {
	m := &UserInfo{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) error {
		switch num {
		case 1:
			v, err := consumeVarint(typ, b)
			m.UserID = v
			return err
		case 2:
			v, err := consumeBytes(typ, b)
			m.Username = string(v)
			return err
		case 3:
			v, err := consumeVarint(typ, b)
			m.Status = UserStatus(v)
			return err
		}
		return nil
	})
	return m, err
}

func appendLoginRes(b []byte, m *LoginRes) []byte {
	b = appendBoolField(b, 1, m.Success)
	b = appendStringField(b, 2, m.Token)
	if m.UserInfo != nil {
		b = appendSubField(b, 3, appendUserInfo(nil, m.UserInfo))
	}
	b = appendStringField(b, 4, m.ErrorMsg)
	return b
}

func unmarshalLoginRes(data []byte) (*LoginRes, error) {
	m := &LoginRes{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) error {
		switch num {
		case 1:
			v, err := consumeVarint(typ, b)
			m.Success = v != 0
			return err
		case 2:
			v, err := consumeBytes(typ, b)
			m.Token = string(v)
			return err
		case 3:
			return decodeSub(typ, b, &m.UserInfo, unmarshalUserInfo)
		case 4:
			v, err := consumeBytes(typ, b)
			m.ErrorMsg = string(v)
			return err
		}
		return nil
	})
	return m, err
}

func appendAddFriendReq(b []byte, m *AddFriendReq) []byte {
	b = appendVarintField(b, 1, m.ReceiverID)
	b = appendStringField(b, 2, m.VerifyMsg)
	return b
}

func unmarshalAddFriendReq(data []byte) (*AddFriendReq, error) {
	m := &AddFriendReq{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) error {
		switch num {
		case 1:
			v, err := consumeVarint(typ, b)
			m.ReceiverID = v
			return err
		case 2:
			v, err := consumeBytes(typ, b)
			m.VerifyMsg = string(v)
			return err
		}
		return nil
	})
	return m, err
}

func appendAddFriendRes(b []byte, m *AddFriendRes) []byte {
	b = appendBoolField(b, 1, m.Success)
	b = appendStringField(b, 2, m.ErrorMsg)
	return b
}

func unmarshalAddFriendRes(data []byte) (*AddFriendRes, error) {
	m := &AddFriendRes{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) error {
		switch num {
		case 1:
			v, err := consumeVarint(typ, b)
			m.Success = v != 0
			return err
		case 2:
			v, err := consumeBytes(typ, b)
			m.ErrorMsg = string(v)
			return err
		}
		return nil
	})
	return m, err
}

func appendHandleFriendReq(b []byte, m *HandleFriendReq) []byte {
	b = appendVarintField(b, 1, m.ReqID)
	b = appendVarintField(b, 2, m.SenderID)
	b = appendVarintField(b, 3, uint64(m.Action))
	return b
}

func unmarshalHandleFriendReq(data []byte) (*HandleFriendReq, error) {
	m := &HandleFriendReq{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) error {
		switch num {
		case 1:
			v, err := consumeVarint(typ, b)
			m.ReqID = v
			return err
		case 2:
			v, err := consumeVarint(typ, b)
			m.SenderID = v
			return err
		case 3:
			v, err := consumeVarint(typ, b)
			m.Action = FriendAction(v)
			return err
		}
		return nil
	})
	return m, err
}

func appendHandleFriendRes(b []byte, m *HandleFriendRes) []byte {
	b = appendBoolField(b, 1, m.Success)
	b = appendVarintField(b, 2, m.SenderID)
	b = appendStringField(b, 3, m.ErrorMsg)
	return b
}

func unmarshalHandleFriendRes(data []byte) (*HandleFriendRes, error) {
	m := &HandleFriendRes{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) error {
		switch num {
		case 1:
			v, err := consumeVarint(typ, b)
			m.Success = v != 0
			return err
		case 2:
			v, err := consumeVarint(typ, b)
			m.SenderID = v
			return err
		case 3:
			v, err := consumeBytes(typ, b)
			m.ErrorMsg = string(v)
			return err
		}
		return nil
	})
	return m, err
}

func appendGetFriendListRes(b []byte, m *GetFriendListRes) []byte {
	b = appendBoolField(b, 1, m.Success)
	for _, f := range m.Friends {
		b = appendSubField(b, 2, appendUserInfo(nil, f))
	}
	b = appendStringField(b, 3, m.ErrorMsg)
	return b
}

func unmarshalGetFriendListRes(data []byte) (*GetFriendListRes, error) {
	m := &GetFriendListRes{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) error {
		switch num {
		case 1:
			v, err := consumeVarint(typ, b)
			m.Success = v != 0
			return err
		case 2:
			raw, err := consumeBytes(typ, b)
			if err != nil {
				return err
			}
			f, err := unmarshalUserInfo(raw)
			if err != nil {
				return err
			}
			m.Friends = append(m.Friends, f)
			return nil
		case 3:
			v, err := consumeBytes(typ, b)
			m.ErrorMsg = string(v)
			return err
		}
		return nil
	})
	return m, err
}

func appendP2PMessage(b []byte, m *P2PMessage) []byte {
	b = appendVarintField(b, 1, m.MsgID)
	b = appendVarintField(b, 2, m.SenderID)
	b = appendVarintField(b, 3, m.ReceiverID)
	b = appendVarintField(b, 4, uint64(m.ContentType))
	b = appendBytesField(b, 5, m.Content)
	b = appendVarintField(b, 6, m.Timestamp)
	return b
}

func unmarshalP2PMessage(data []byte) (*P2PMessage, error) {
	m := &P2PMessage{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) error {
		switch num {
		case 1:
			v, err := consumeVarint(typ, b)
			m.MsgID = v
			return err
		case 2:
			v, err := consumeVarint(typ, b)
			m.SenderID = v
			return err
		case 3:
			v, err := consumeVarint(typ, b)
			m.ReceiverID = v
			return err
		case 4:
			v, err := consumeVarint(typ, b)
			m.ContentType = uint32(v)
			return err
		case 5:
			v, err := consumeBytes(typ, b)
			m.Content = append([]byte(nil), v...)
			return err
		case 6:
			v, err := consumeVarint(typ, b)
			m.Timestamp = v
			return err
		}
		return nil
	})
	return m, err
}

func appendMessageAck(b []byte, m *MessageAck) []byte {
	b = appendVarintField(b, 1, m.MsgID)
	b = appendBoolField(b, 2, m.Success)
	b = appendVarintField(b, 3, m.RefSeq)
	b = appendStringField(b, 4, m.ErrorMsg)
	return b
}

func unmarshalMessageAck(data []byte) (*MessageAck, error) {
	m := &MessageAck{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) error {
		switch num {
		case 1:
			v, err := consumeVarint(typ, b)
			m.MsgID = v
			return err
		case 2:
			v, err := consumeVarint(typ, b)
			m.Success = v != 0
			return err
		case 3:
			v, err := consumeVarint(typ, b)
			m.RefSeq = v
			return err
		case 4:
			v, err := consumeBytes(typ, b)
			m.ErrorMsg = string(v)
			return err
		}
		return nil
	})
	return m, err
}

func appendSyncMessagesRes(b []byte, m *SyncMessagesRes) []byte {
	b = appendBoolField(b, 1, m.Success)
	for _, msg := range m.Messages {
		b = appendSubField(b, 2, appendP2PMessage(nil, msg))
	}
	b = appendStringField(b, 3, m.ErrorMsg)
	return b
}

func unmarshalSyncMessagesRes(data []byte) (*SyncMessagesRes, error) {
	m := &SyncMessagesRes{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) error {
		switch num {
		case 1:
			v, err := consumeVarint(typ, b)
			m.Success = v != 0
			return err
		case 2:
			raw, err := consumeBytes(typ, b)
			if err != nil {
				return err
			}
			msg, err := unmarshalP2PMessage(raw)
			if err != nil {
				return err
			}
			m.Messages = append(m.Messages, msg)
			return nil
		case 3:
			v, err := consumeBytes(typ, b)
			m.ErrorMsg = string(v)
			return err
		}
		return nil
	})
	return m, err
}

func appendFriendReqPush(b []byte, m *FriendReqPush) []byte {
	b = appendVarintField(b, 1, m.ReqID)
	b = appendVarintField(b, 2, m.SenderID)
	b = appendStringField(b, 3, m.SenderName)
	b = appendStringField(b, 4, m.VerifyMsg)
	b = appendVarintField(b, 5, m.Timestamp)
	return b
}

func unmarshalFriendReqPush(data []byte) (*FriendReqPush, error) {
	m := &FriendReqPush{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) error {
		switch num {
		case 1:
			v, err := consumeVarint(typ, b)
			m.ReqID = v
			return err
		case 2:
			v, err := consumeVarint(typ, b)
			m.SenderID = v
			return err
		case 3:
			v, err := consumeBytes(typ, b)
			m.SenderName = string(v)
			return err
		case 4:
			v, err := consumeBytes(typ, b)
			m.VerifyMsg = string(v)
			return err
		case 5:
			v, err := consumeVarint(typ, b)
			m.Timestamp = v
			return err
		}
		return nil
	})
	return m, err
}

func appendFriendStatusPush(b []byte, m *FriendStatusPush) []byte {
	b = appendVarintField(b, 1, m.ReceiverID)
	b = appendStringField(b, 2, m.ReceiverName)
	b = appendVarintField(b, 3, uint64(m.Action))
	b = appendVarintField(b, 4, m.Timestamp)
	return b
}

func unmarshalFriendStatusPush(data []byte) (*FriendStatusPush, error) {
	m := &FriendStatusPush{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) error {
		switch num {
		case 1:
			v, err := consumeVarint(typ, b)
			m.ReceiverID = v
			return err
		case 2:
			v, err := consumeBytes(typ, b)
			m.ReceiverName = string(v)
			return err
		case 3:
			v, err := consumeVarint(typ, b)
			m.Action = FriendAction(v)
			return err
		case 4:
			v, err := consumeVarint(typ, b)
			m.Timestamp = v
			return err
		}
		return nil
	})
	return m, err
}
